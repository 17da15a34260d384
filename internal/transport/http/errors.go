package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"quiz-platform-service/internal/domain"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func abortError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: code, Message: message})
}

func badRequest(c *gin.Context, err error) {
	abortError(c, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
}

// writeError maps domain errors onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "validation failed",
			Fields:  verr.Fields,
		})
		return
	}

	status, code := classify(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		abortError(c, status, code, "internal server error")
		return
	}
	abortError(c, status, code, err.Error())
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrAttemptNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrOptionNotFound),
		errors.Is(err, domain.ErrConfirmationMismatch):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrQuizNotAvailable),
		errors.Is(err, domain.ErrAttemptCompleted),
		errors.Is(err, domain.ErrAttemptInProgress),
		errors.Is(err, domain.ErrRetakesExhausted),
		errors.Is(err, domain.ErrTimeLimitExceeded),
		errors.Is(err, domain.ErrQuizHasAttempts):
		return http.StatusConflict, "conflict"
	case errors.Is(err, domain.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, "storage_unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
