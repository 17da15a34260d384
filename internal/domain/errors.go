package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates a submitted option ID is invalid.
	ErrOptionNotFound = errors.New("option not found")
	// ErrAttemptNotFound is returned for unknown attempts.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrForbidden is returned when the caller does not own the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrQuizNotAvailable means the quiz is unpublished or archived.
	ErrQuizNotAvailable = errors.New("quiz is not open for attempts")
	// ErrAttemptCompleted is returned when mutating a finished attempt.
	ErrAttemptCompleted = errors.New("attempt already completed")
	// ErrAttemptInProgress is returned when an open attempt blocks the operation.
	ErrAttemptInProgress = errors.New("attempt still in progress")
	// ErrRetakesExhausted is returned when the retake policy forbids a new attempt.
	ErrRetakesExhausted = errors.New("no retakes remaining")
	// ErrTimeLimitExceeded is returned for answers that arrive after the deadline.
	ErrTimeLimitExceeded = errors.New("time limit exceeded")
	// ErrQuizHasAttempts blocks replacing the question set of a quiz that was already taken.
	ErrQuizHasAttempts = errors.New("quiz already has attempts")
	// ErrConfirmationMismatch is returned when a delete confirmation does not match the quiz title.
	ErrConfirmationMismatch = errors.New("confirmation does not match quiz title")
	// ErrStorageUnavailable is returned when object storage is not configured.
	ErrStorageUnavailable = errors.New("object storage unavailable")
)

// ValidationError carries per-field input problems.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a field problem, keeping the first message per field.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = message
	}
}

// OrNil returns nil when nothing was recorded.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}
