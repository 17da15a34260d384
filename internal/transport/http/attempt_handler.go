package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"quiz-platform-service/internal/domain"
)

func (h *Handler) StudentDashboard(c *gin.Context) {
	overview, err := h.analytics.StudentOverview(c.Request.Context(), identity(c).UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

func (h *Handler) StudentQuizzes(c *gin.Context) {
	rows, err := h.attempts.ListStudentQuizzes(c.Request.Context(), identity(c).UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newStudentQuizResponses(rows))
}

// StartAttempt answers 201 for a new attempt and 200 when an open one is resumed.
func (h *Handler) StartAttempt(c *gin.Context) {
	attempt, resumed, err := h.attempts.StartAttempt(c.Request.Context(), identity(c).UserID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	resp := newAttemptResponse(attempt)
	resp.Resumed = resumed
	status := http.StatusCreated
	if resumed {
		status = http.StatusOK
	}
	c.JSON(status, resp)
}

func (h *Handler) AttemptHistory(c *gin.Context) {
	attempts, err := h.attempts.ListAttempts(c.Request.Context(), identity(c).UserID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newAttemptResponses(attempts))
}

func (h *Handler) PlayableQuiz(c *gin.Context) {
	quiz, err := h.attempts.PlayableQuiz(c.Request.Context(), identity(c).UserID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

func (h *Handler) SubmitResponse(c *gin.Context) {
	var req domain.AnswerSubmission
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	receipt, err := h.attempts.SubmitResponse(c.Request.Context(), identity(c).UserID, c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

func (h *Handler) SubmitAttempt(c *gin.Context) {
	attempt, err := h.attempts.SubmitAttempt(c.Request.Context(), identity(c).UserID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newAttemptResponse(attempt))
}

func (h *Handler) Results(c *gin.Context) {
	id := identity(c)
	result, err := h.attempts.Results(c.Request.Context(), id.UserID, id.Role, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
