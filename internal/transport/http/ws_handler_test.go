package http

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"quiz-platform-service/internal/auth"
	"quiz-platform-service/internal/domain"
)

func TestAttemptSocketAnswersAndSubmits(t *testing.T) {
	f := newAPIFixture(t)
	detail := f.createQuiz(quizInput(0))
	attempt := f.startAttempt(detail.Quiz.ID)

	conn := f.dial("/api/v1/ws/attempts/"+attempt.ID, f.student)

	joined := readUntil(t, conn, "joined")
	var jp joinedPayload
	if err := json.Unmarshal(joined.Payload, &jp); err != nil {
		t.Fatalf("decode joined: %v", err)
	}
	if jp.Attempt.ID != attempt.ID || jp.Timed {
		t.Fatalf("unexpected joined payload %+v", jp)
	}

	// ticks keep coming for untimed attempts
	readUntil(t, conn, "tick")

	mc := detail.Questions[0]
	answer := map[string]any{
		"type":    "answer",
		"payload": domain.AnswerSubmission{QuestionID: mc.ID, OptionID: correctOptionID(t, mc)},
	}
	if err := conn.WriteJSON(answer); err != nil {
		t.Fatalf("write answer: %v", err)
	}
	recorded := readUntil(t, conn, "answerRecorded")
	var receipt domain.AnswerReceipt
	if err := json.Unmarshal(recorded.Payload, &receipt); err != nil {
		t.Fatalf("decode receipt: %v", err)
	}
	if receipt.Answered != 1 || receipt.Correct == nil || !*receipt.Correct {
		t.Fatalf("unexpected receipt %+v", receipt)
	}

	if err := conn.WriteJSON(map[string]any{"type": "bogus"}); err != nil {
		t.Fatalf("write bogus: %v", err)
	}
	readUntil(t, conn, "error")

	if err := conn.WriteJSON(map[string]any{"type": "submit"}); err != nil {
		t.Fatalf("write submit: %v", err)
	}
	submitted := readUntil(t, conn, "submitted")
	var sp submittedPayload
	if err := json.Unmarshal(submitted.Payload, &sp); err != nil {
		t.Fatalf("decode submitted: %v", err)
	}
	if sp.AutoSubmitted || sp.Attempt.Status != "completed" || sp.Attempt.Score == nil || *sp.Attempt.Score != 50 {
		t.Fatalf("unexpected submitted payload %+v", sp)
	}

	// server closes the socket once the attempt is over
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func TestAttemptSocketAutoSubmitsAtDeadline(t *testing.T) {
	f := newAPIFixture(t)
	detail := f.createQuiz(quizInput(1))
	attempt := f.startAttempt(detail.Quiz.ID)

	conn := f.dial("/api/v1/ws/attempts/"+attempt.ID, f.student)
	joined := readUntil(t, conn, "joined")
	var jp joinedPayload
	if err := json.Unmarshal(joined.Payload, &jp); err != nil {
		t.Fatalf("decode joined: %v", err)
	}
	if !jp.Timed || jp.RemainingSeconds == nil || *jp.RemainingSeconds != 60 {
		t.Fatalf("unexpected joined payload %+v", jp)
	}

	f.clock.Advance(61 * time.Second)

	submitted := readUntil(t, conn, "submitted")
	var sp submittedPayload
	if err := json.Unmarshal(submitted.Payload, &sp); err != nil {
		t.Fatalf("decode submitted: %v", err)
	}
	if !sp.AutoSubmitted || sp.Attempt.Status != "completed" {
		t.Fatalf("expected auto submission, got %+v", sp)
	}
	if sp.Attempt.TimeSpent != 60 {
		t.Fatalf("expected time spent capped at the limit, got %d", sp.Attempt.TimeSpent)
	}

	var result domain.AttemptResult
	if status := f.do(http.MethodGet, "/api/v1/attempts/"+attempt.ID+"/results", f.student, nil, &result); status != http.StatusOK {
		t.Fatalf("results after auto submit: status %d", status)
	}
}

func TestAttemptSocketRejectsOtherStudents(t *testing.T) {
	f := newAPIFixture(t)
	detail := f.createQuiz(quizInput(0))
	attempt := f.startAttempt(detail.Quiz.ID)

	other, err := auth.NewIssuer(testSecret, "", time.Hour).Issue(auth.Identity{UserID: "student-2", Role: domain.RoleStudent})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	conn := f.dial("/api/v1/ws/attempts/"+attempt.ID, other)
	msg := readUntil(t, conn, "error")
	var ep errorPayload
	if err := json.Unmarshal(msg.Payload, &ep); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if ep.Message != domain.ErrForbidden.Error() {
		t.Fatalf("expected forbidden, got %q", ep.Message)
	}
}

func TestAttemptSocketRequiresToken(t *testing.T) {
	f := newAPIFixture(t)
	u := "ws" + f.server.URL[len("http"):] + "/api/v1/ws/attempts/a1"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial to fail without token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 handshake response, got %v", resp)
	}
}

func TestMonitorSocketStreamsRoster(t *testing.T) {
	f := newAPIFixture(t)
	detail := f.createQuiz(quizInput(0))

	conn := f.dial("/api/v1/ws/quizzes/"+detail.Quiz.ID+"/monitor", f.instructor)
	initial := readUntil(t, conn, "roster")
	var roster domain.Roster
	if err := json.Unmarshal(initial.Payload, &roster); err != nil {
		t.Fatalf("decode roster: %v", err)
	}
	if roster.QuizID != detail.Quiz.ID || len(roster.Entries) != 0 {
		t.Fatalf("unexpected initial roster %+v", roster)
	}

	attempt := f.startAttempt(detail.Quiz.ID)

	for i := 0; i < 10; i++ {
		msg := readUntil(t, conn, "roster")
		if err := json.Unmarshal(msg.Payload, &roster); err != nil {
			t.Fatalf("decode roster: %v", err)
		}
		if len(roster.Entries) > 0 {
			break
		}
	}
	if len(roster.Entries) != 1 || roster.Entries[0].AttemptID != attempt.ID || roster.Entries[0].Completed {
		t.Fatalf("unexpected roster %+v", roster)
	}
}

func TestMonitorSocketRejectsOtherInstructors(t *testing.T) {
	f := newAPIFixture(t)
	detail := f.createQuiz(quizInput(0))

	other, err := auth.NewIssuer(testSecret, "", time.Hour).Issue(auth.Identity{UserID: "instructor-2", Role: domain.RoleInstructor})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	conn := f.dial("/api/v1/ws/quizzes/"+detail.Quiz.ID+"/monitor", other)
	readUntil(t, conn, "error")
}
