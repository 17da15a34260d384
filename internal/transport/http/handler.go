package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"quiz-platform-service/internal/app"
)

// Handler serves the REST and websocket API.
type Handler struct {
	quizzes   *app.QuizService
	attempts  *app.AttemptService
	analytics *app.AnalyticsService
	verifier  TokenVerifier
	upgrader  websocket.Upgrader
	tick      time.Duration
}

// HandlerOption customizes a Handler.
type HandlerOption func(*Handler)

// WithTickInterval sets how often the attempt socket reports the clock.
func WithTickInterval(d time.Duration) HandlerOption {
	return func(h *Handler) {
		if d > 0 {
			h.tick = d
		}
	}
}

func NewHandler(quizzes *app.QuizService, attempts *app.AttemptService, analytics *app.AnalyticsService, verifier TokenVerifier, opts ...HandlerOption) *Handler {
	h := &Handler{
		quizzes:   quizzes,
		attempts:  attempts,
		analytics: analytics,
		verifier:  verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		tick: time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.quizzes.ListCategories(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}
