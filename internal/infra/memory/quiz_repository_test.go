package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"quiz-platform-service/internal/app"
	"quiz-platform-service/internal/domain"
)

func TestQuizRepositoryCaches(t *testing.T) {
	store := NewStore()
	if err := store.CreateQuiz(context.Background(), sampleDetail()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	loader := &countingLoader{QuizLoader: store}
	repo := NewQuizRepository(loader, time.Minute)

	if _, err := repo.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestQuizRepositoryInvalidateReloads(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	if err := store.CreateQuiz(ctx, sampleDetail()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	loader := &countingLoader{QuizLoader: store}
	repo := NewQuizRepository(loader, time.Minute)

	if _, err := repo.GetQuiz(ctx, "quiz-1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	quiz, _ := store.GetQuiz(ctx, "quiz-1")
	quiz.Title = "Renamed"
	if err := store.UpdateQuiz(ctx, quiz); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := repo.Invalidate(ctx, "quiz-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	detail, err := repo.GetQuiz(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("get quiz after invalidate: %v", err)
	}
	if detail.Quiz.Title != "Renamed" || loader.calls != 2 {
		t.Fatalf("expected reload with new title, got %q after %d loads", detail.Quiz.Title, loader.calls)
	}
}

func TestQuizRepositoryPropagatesNotFound(t *testing.T) {
	repo := NewQuizRepository(NewStore(), time.Minute)
	if _, err := repo.GetQuiz(context.Background(), "missing"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestQuizRepositoryExpiresEntries(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	if err := store.CreateQuiz(ctx, sampleDetail()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	loader := &countingLoader{QuizLoader: store}
	repo := NewQuizRepository(loader, time.Minute)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	if _, err := repo.GetQuiz(ctx, "quiz-1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := repo.GetQuiz(ctx, "quiz-1"); err != nil {
		t.Fatalf("get quiz after ttl: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after expiry, got %d loads", loader.calls)
	}
}

func TestQuizRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	if err := store.CreateQuiz(ctx, sampleDetail()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	repo := NewQuizRepository(store, time.Minute)

	first, err := repo.GetQuiz(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	first.Questions[0].Options[0].Correct = true
	first.Questions[0].Text = "changed"

	second, err := repo.GetQuiz(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if second.Questions[0].Text != "What is 2 + 2?" || second.Questions[0].Options[0].Correct {
		t.Fatalf("cached detail was mutated: %+v", second.Questions[0])
	}
}

func TestQuizRepositoryZeroTTLDisablesCache(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	if err := store.CreateQuiz(ctx, sampleDetail()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	loader := &countingLoader{QuizLoader: store}
	repo := NewQuizRepository(loader, 0)
	for i := 0; i < 3; i++ {
		if _, err := repo.GetQuiz(ctx, "quiz-1"); err != nil {
			t.Fatalf("get quiz: %v", err)
		}
	}
	if loader.calls != 3 {
		t.Fatalf("expected every read to load, got %d", loader.calls)
	}
}

type countingLoader struct {
	app.QuizLoader
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID string) (domain.QuizDetail, error) {
	l.calls++
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func sampleDetail() domain.QuizDetail {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return domain.QuizDetail{
		Quiz: domain.Quiz{
			ID:           "quiz-1",
			InstructorID: "instructor-1",
			Title:        "Arithmetic",
			Category:     "Mathematics",
			Published:    true,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
		Settings: domain.DefaultSettings("quiz-1"),
		Questions: []domain.Question{
			{
				ID:       "q1",
				QuizID:   "quiz-1",
				Type:     domain.QuestionMultipleChoice,
				Text:     "What is 2 + 2?",
				Points:   1,
				Position: 1,
				Options: []domain.Option{
					{ID: "o1", QuestionID: "q1", Text: "3", Position: 1},
					{ID: "o2", QuestionID: "q1", Text: "4", Correct: true, Position: 2},
				},
			},
		},
	}
}
