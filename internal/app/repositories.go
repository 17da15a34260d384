package app

import (
	"context"
	"io"
	"time"

	"quiz-platform-service/internal/domain"
)

// QuizLoader fetches full quiz content from the backing store.
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.QuizDetail, error)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.QuizDetail, error)
	Invalidate(ctx context.Context, quizID string) error
}

// QuizStore persists authored quizzes.
type QuizStore interface {
	// CreateQuiz stores the quiz, its settings, questions and options atomically.
	CreateQuiz(ctx context.Context, detail domain.QuizDetail) error
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	UpdateQuiz(ctx context.Context, quiz domain.Quiz) error
	DeleteQuiz(ctx context.Context, quizID string) error
	ListQuizzes(ctx context.Context, filter domain.QuizFilter) ([]domain.QuizSummary, error)
	SaveSettings(ctx context.Context, settings domain.QuizSettings) error
	// ApplyQuizUpdate writes metadata, settings and a replacement question set in one
	// transaction. Replacing questions fails with domain.ErrQuizHasAttempts once the
	// quiz has attempts.
	ApplyQuizUpdate(ctx context.Context, update domain.QuizUpdate) error
	// AddQuestion appends a question; a zero Position means "after the last one".
	AddQuestion(ctx context.Context, question domain.Question) (domain.Question, error)
	GetQuestion(ctx context.Context, questionID string) (domain.Question, error)
	DeleteQuestion(ctx context.Context, questionID string) error
	ReorderQuestions(ctx context.Context, quizID string, order []domain.QuestionPosition) error
	ListCategories(ctx context.Context) ([]string, error)
	AssignQuiz(ctx context.Context, assignments []domain.Assignment) error
	ListAssignments(ctx context.Context, studentID string) ([]domain.Assignment, error)
}

// AttemptStore persists attempts and responses.
type AttemptStore interface {
	// CreateAttempt numbers and inserts a new attempt. It returns
	// domain.ErrAttemptInProgress when the student already has an open attempt.
	CreateAttempt(ctx context.Context, quizID, studentID string, startedAt time.Time) (domain.Attempt, error)
	FindOpenAttempt(ctx context.Context, quizID, studentID string) (domain.Attempt, error)
	GetAttempt(ctx context.Context, attemptID string) (domain.Attempt, error)
	ListAttempts(ctx context.Context, filter domain.AttemptFilter) ([]domain.Attempt, error)
	// CompleteAttempt finalizes an open attempt exactly once. score is called with every
	// stored response while the attempt is locked against further answers.
	CompleteAttempt(ctx context.Context, attemptID string, completedAt time.Time, timeSpent int, score func([]domain.Response) int) (domain.Attempt, []domain.Response, error)
	// SaveResponse upserts by (attempt, question).
	SaveResponse(ctx context.Context, response domain.Response) (domain.Response, error)
	ListResponses(ctx context.Context, attemptIDs ...string) ([]domain.Response, error)
}

// AttemptLocker serializes attempt starts per (quiz, student).
type AttemptLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// EventPublisher sends domain events to a broker queue.
type EventPublisher interface {
	Publish(ctx context.Context, queue string, body []byte) error
}

// CoverStore uploads cover images and returns their public URL.
type CoverStore interface {
	Put(ctx context.Context, key, contentType string, size int64, body io.Reader) (string, error)
}

// RosterRepository abstracts where live rosters are kept.
type RosterRepository interface {
	// Update runs fn on the quiz roster, creating it when missing. It is atomic
	// with respect to DeleteIfIdle.
	Update(quizID string, fn func(*Roster))
	Get(quizID string) (*Roster, bool)
	DeleteIfIdle(quizID string)
}
