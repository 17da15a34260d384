package redis

import (
	"context"
	"sync/atomic"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quiz-platform-service/internal/app"
	"quiz-platform-service/internal/domain"
)

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

type countingLoader struct {
	app.QuizLoader
	calls atomic.Int32
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID string) (domain.QuizDetail, error) {
	l.calls.Add(1)
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func sampleDetail() domain.QuizDetail {
	return domain.QuizDetail{
		Quiz: domain.Quiz{
			ID:           "quiz-1",
			InstructorID: "instructor-1",
			Title:        "Arithmetic",
			Category:     "Mathematics",
			Published:    true,
		},
		Settings: domain.DefaultSettings("quiz-1"),
		Questions: []domain.Question{
			{
				ID:     "q1",
				QuizID: "quiz-1",
				Type:   domain.QuestionMultipleChoice,
				Text:   "What is 2 + 2?",
				Points: 1,
				Options: []domain.Option{
					{ID: "o1", QuestionID: "q1", Text: "3"},
					{ID: "o2", QuestionID: "q1", Text: "4", Correct: true, Position: 1},
				},
			},
			{
				ID:       "q2",
				QuizID:   "quiz-1",
				Type:     domain.QuestionShortAnswer,
				Text:     "Spell the number after one.",
				Points:   2,
				Position: 1,
				Answer:   "two",
				Options:  []domain.Option{},
			},
		},
	}
}
