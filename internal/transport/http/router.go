package http

import (
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// NewEngine builds a gin engine with zerolog request logging, recovery and CORS.
func NewEngine(allowedOrigins []string) *gin.Engine {
	r := gin.New()

	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		log.Info().
			Str("client_ip", param.ClientIP).
			Str("method", param.Method).
			Str("path", param.Path).
			Int("status_code", param.StatusCode).
			Dur("latency", param.Latency).
			Str("user_agent", param.Request.UserAgent()).
			Str("error_message", param.ErrorMessage).
			Msg("gin_request")
		return ""
	}))
	r.Use(gin.Recovery())

	r.Use(cors.New(corsConfig(allowedOrigins)))
	return r
}

// corsConfig allows credentials only for an explicit origin list. An empty
// list or one containing "*" opens the API to any origin without credentials.
func corsConfig(allowedOrigins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = allowedOrigins
	cfg.AllowCredentials = true
	return cfg
}

// NewRouter wires every route of h onto a fresh engine.
func NewRouter(h *Handler, allowedOrigins []string) *gin.Engine {
	r := NewEngine(allowedOrigins)
	h.RegisterRoutes(r)
	return r
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/healthz", h.Health)

	api := router.Group("/api/v1")
	api.Use(h.Authenticate())
	{
		api.GET("/categories", h.ListCategories)
		api.GET("/attempts/:id/results", h.Results)

		instructor := api.Group("/instructor", RequireRole(roleInstructor))
		instructor.GET("/dashboard", h.InstructorDashboard)
		instructor.GET("/quizzes", h.ListQuizzes)
		instructor.POST("/quizzes", h.CreateQuiz)
		instructor.GET("/quizzes/:id", h.GetQuiz)
		instructor.PUT("/quizzes/:id", h.UpdateQuiz)
		instructor.PATCH("/quizzes/:id", h.PatchQuiz)
		instructor.DELETE("/quizzes/:id", h.DeleteQuiz)
		instructor.PUT("/quizzes/:id/settings", h.UpdateSettings)
		instructor.POST("/quizzes/:id/questions", h.AddQuestion)
		instructor.PUT("/quizzes/:id/questions/order", h.ReorderQuestions)
		instructor.POST("/quizzes/:id/assignments", h.AssignQuiz)
		instructor.POST("/quizzes/:id/cover", h.UploadCover)
		instructor.GET("/quizzes/:id/analytics", h.QuizAnalytics)
		instructor.DELETE("/questions/:id", h.DeleteQuestion)

		student := api.Group("/student", RequireRole(roleStudent))
		student.GET("/dashboard", h.StudentDashboard)
		student.GET("/quizzes", h.StudentQuizzes)
		student.POST("/quizzes/:id/attempts", h.StartAttempt)
		student.GET("/quizzes/:id/attempts", h.AttemptHistory)

		attempts := api.Group("/attempts", RequireRole(roleStudent))
		attempts.GET("/:id", h.PlayableQuiz)
		attempts.POST("/:id/responses", h.SubmitResponse)
		attempts.POST("/:id/submit", h.SubmitAttempt)

		api.GET("/ws/attempts/:id", RequireRole(roleStudent), h.AttemptSocket)
		api.GET("/ws/quizzes/:id/monitor", RequireRole(roleInstructor), h.MonitorSocket)
	}
}
