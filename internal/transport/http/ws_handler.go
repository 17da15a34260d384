package http

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"quiz-platform-service/internal/domain"
)

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type joinedPayload struct {
	Attempt          AttemptResponse `json:"attempt"`
	Timed            bool            `json:"timed"`
	Deadline         *time.Time      `json:"deadline,omitempty"`
	RemainingSeconds *int            `json:"remainingSeconds,omitempty"`
}

type tickPayload struct {
	ElapsedSeconds   int  `json:"elapsedSeconds"`
	RemainingSeconds *int `json:"remainingSeconds,omitempty"`
}

type submittedPayload struct {
	Attempt       AttemptResponse `json:"attempt"`
	AutoSubmitted bool            `json:"autoSubmitted"`
}

func errorMessage(err error) outboundMessage {
	return outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}}
}

// AttemptSocket streams the clock of an open attempt and accepts answers.
// Client messages: {"type":"answer","payload":AnswerSubmission} and {"type":"submit"}.
// Server messages: joined, tick, answerRecorded, submitted, error. A timed attempt is
// submitted automatically once its deadline passes.
func (h *Handler) AttemptSocket(c *gin.Context) {
	studentID := identity(c).UserID
	attemptID := c.Param("id")
	ctx := c.Request.Context()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	clock, err := h.attempts.Clock(ctx, studentID, attemptID)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	tickerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug().Err(err).Str("attemptID", attemptID).Msg("ws write error")
				return
			}
		}
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}()

	// finish unblocks the read loop once the attempt is over.
	finish := func() {
		_ = conn.SetReadDeadline(time.Now())
	}

	joined := joinedPayload{Attempt: newAttemptResponse(clock.Attempt), Timed: clock.Timed}
	if clock.Timed {
		deadline := clock.Deadline
		remaining := remainingSeconds(deadline, h.attempts.Now())
		joined.Deadline = &deadline
		joined.RemainingSeconds = &remaining
	}
	send <- outboundMessage{Type: "joined", Payload: joined}

	go func() {
		defer close(tickerDone)
		ticker := time.NewTicker(h.tick)
		defer ticker.Stop()
		for {
			select {
			case <-closeSignals:
				return
			case <-ticker.C:
			}
			now := h.attempts.Now()
			tick := tickPayload{ElapsedSeconds: int(now.Sub(clock.Attempt.StartedAt).Seconds())}
			if clock.Timed {
				remaining := remainingSeconds(clock.Deadline, now)
				tick.RemainingSeconds = &remaining
				if remaining == 0 {
					msg := h.submit(ctx, studentID, attemptID, true)
					select {
					case send <- msg:
					case <-closeSignals:
					}
					finish()
					return
				}
			}
			select {
			case send <- outboundMessage{Type: "tick", Payload: tick}:
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload domain.AnswerSubmission
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			receipt, err := h.attempts.SubmitResponse(ctx, studentID, attemptID, payload)
			if err != nil {
				send <- errorMessage(err)
				continue
			}
			send <- outboundMessage{Type: "answerRecorded", Payload: receipt}
		case "submit":
			msg := h.submit(ctx, studentID, attemptID, false)
			send <- msg
			if msg.Type == "submitted" {
				finish()
			}
		default:
			send <- outboundMessage{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-tickerDone
	close(send)
	<-writerDone
}

func (h *Handler) submit(ctx context.Context, studentID, attemptID string, auto bool) outboundMessage {
	attempt, err := h.attempts.SubmitAttempt(ctx, studentID, attemptID)
	if err != nil {
		if !errors.Is(err, domain.ErrAttemptCompleted) {
			log.Warn().Err(err).Str("attemptID", attemptID).Msg("submit attempt over ws")
		}
		return errorMessage(err)
	}
	if auto {
		log.Info().Str("attemptID", attemptID).Msg("attempt auto-submitted at deadline")
	}
	return outboundMessage{Type: "submitted", Payload: submittedPayload{Attempt: newAttemptResponse(attempt), AutoSubmitted: auto}}
}

func remainingSeconds(deadline, now time.Time) int {
	left := deadline.Sub(now)
	if left <= 0 {
		return 0
	}
	return int((left + time.Second - 1) / time.Second)
}

// MonitorSocket streams roster snapshots of a quiz to its instructor.
func (h *Handler) MonitorSocket(c *gin.Context) {
	instructorID := identity(c).UserID
	quizID := c.Param("id")
	ctx := c.Request.Context()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	updates, cancel, err := h.attempts.SubscribeRoster(ctx, instructorID, quizID)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}
	defer cancel()

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case roster, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(outboundMessage{Type: "roster", Payload: roster}); err != nil {
				log.Debug().Err(err).Str("quizID", quizID).Msg("ws write error")
				return
			}
		case <-readerDone:
			return
		}
	}
}
