package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"quiz-platform-service/internal/app"
)

func (h *Handler) CreateQuiz(c *gin.Context) {
	var req app.QuizInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	detail, err := h.quizzes.CreateQuiz(c.Request.Context(), identity(c).UserID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, detail)
}

func (h *Handler) ListQuizzes(c *gin.Context) {
	quizzes, err := h.quizzes.ListInstructorQuizzes(c.Request.Context(), identity(c).UserID, app.QuizListFilter{
		Search:   c.Query("search"),
		Category: c.Query("category"),
		Status:   c.Query("status"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quizzes)
}

func (h *Handler) GetQuiz(c *gin.Context) {
	detail, err := h.quizzes.GetQuiz(c.Request.Context(), identity(c).UserID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) UpdateQuiz(c *gin.Context) {
	var req app.QuizInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	detail, err := h.quizzes.UpdateQuiz(c.Request.Context(), identity(c).UserID, c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) PatchQuiz(c *gin.Context) {
	var req app.QuizPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	quiz, err := h.quizzes.PatchQuiz(c.Request.Context(), identity(c).UserID, c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

// DeleteQuiz takes the confirmation from the body or the ?confirmation= query.
func (h *Handler) DeleteQuiz(c *gin.Context) {
	var req deleteQuizRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	if req.Confirmation == "" {
		req.Confirmation = c.Query("confirmation")
	}
	if err := h.quizzes.DeleteQuiz(c.Request.Context(), identity(c).UserID, c.Param("id"), req.Confirmation); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) UpdateSettings(c *gin.Context) {
	var req app.SettingsInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	settings, err := h.quizzes.UpdateSettings(c.Request.Context(), identity(c).UserID, c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *Handler) AddQuestion(c *gin.Context) {
	var req app.QuestionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	question, err := h.quizzes.AddQuestion(c.Request.Context(), identity(c).UserID, c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, question)
}

func (h *Handler) DeleteQuestion(c *gin.Context) {
	if err := h.quizzes.DeleteQuestion(c.Request.Context(), identity(c).UserID, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ReorderQuestions(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.quizzes.ReorderQuestions(c.Request.Context(), identity(c).UserID, c.Param("id"), req.Order); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) AssignQuiz(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	assignments, err := h.quizzes.AssignQuiz(c.Request.Context(), identity(c).UserID, c.Param("id"), req.StudentIDs, req.DueDate)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, assignments)
}

// UploadCover accepts a multipart "file" field.
func (h *Handler) UploadCover(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, err)
		return
	}
	file, err := fh.Open()
	if err != nil {
		badRequest(c, err)
		return
	}
	defer file.Close()

	quiz, err := h.quizzes.SetCoverImage(c.Request.Context(), identity(c).UserID, c.Param("id"), fh.Filename, fh.Header.Get("Content-Type"), fh.Size, file)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

func (h *Handler) QuizAnalytics(c *gin.Context) {
	analytics, err := h.analytics.QuizAnalytics(c.Request.Context(), identity(c).UserID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, analytics)
}

func (h *Handler) InstructorDashboard(c *gin.Context) {
	overview, err := h.analytics.InstructorOverview(c.Request.Context(), identity(c).UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}
