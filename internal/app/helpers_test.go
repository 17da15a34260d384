package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"quiz-platform-service/internal/app"
	"quiz-platform-service/internal/domain"
	"quiz-platform-service/internal/infra/memory"
)

const (
	instructorID = "instructor-1"
	studentID    = "student-1"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	store     *memory.Store
	events    *memory.EventRecorder
	covers    *memory.CoverStore
	rosters   *memory.RosterStore
	clock     *testClock
	quizzes   *app.QuizService
	attempts  *app.AttemptService
	analytics *app.AnalyticsService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := newTestClock()
	store := memory.NewStore()
	repo := memory.NewQuizRepository(store, time.Minute)
	events := memory.NewEventRecorder()
	covers := memory.NewCoverStore("http://covers.test")
	rosters := memory.NewRosterStore()
	return &fixture{
		store:     store,
		events:    events,
		covers:    covers,
		rosters:   rosters,
		clock:     clock,
		quizzes:   app.NewQuizService(store, repo, store, covers, app.WithClock(clock.Now)),
		attempts:  app.NewAttemptService(repo, store, store, memory.NewAttemptLocker(), events, rosters, app.WithClock(clock.Now)),
		analytics: app.NewAnalyticsService(store, repo, store),
	}
}

// sampleInput is worth 4 points: a 2-point multiple choice, a true/false and a short answer.
func sampleInput() app.QuizInput {
	return app.QuizInput{
		Title:       "World Basics",
		Description: "Warm-up quiz",
		Category:    "Geography",
		Published:   true,
		Settings: &app.SettingsInput{
			ShowResults:  "immediately",
			AllowRetakes: true,
			MaxRetakes:   1,
			PassingScore: 70,
		},
		Questions: []app.QuestionInput{
			{
				Type:   "multiple-choice",
				Text:   "Largest ocean?",
				Points: 2,
				Options: []app.OptionInput{
					{Text: "Atlantic"},
					{Text: "Pacific", Correct: true},
					{Text: "Indian"},
				},
			},
			{Type: "true-false", Text: "The Nile is in Africa.", Answer: "true"},
			{Type: "short-answer", Text: "Capital of France?", Answer: "Paris", Explanation: "Paris has been the capital since 987."},
		},
	}
}

func (f *fixture) createQuiz(t *testing.T, in app.QuizInput) domain.QuizDetail {
	t.Helper()
	detail, err := f.quizzes.CreateQuiz(context.Background(), instructorID, in)
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	return detail
}

func (f *fixture) start(t *testing.T, quizID string) domain.Attempt {
	t.Helper()
	attempt, _, err := f.attempts.StartAttempt(context.Background(), studentID, quizID)
	if err != nil {
		t.Fatalf("start attempt: %v", err)
	}
	return attempt
}

func (f *fixture) answer(t *testing.T, attemptID string, sub domain.AnswerSubmission) domain.AnswerReceipt {
	t.Helper()
	receipt, err := f.attempts.SubmitResponse(context.Background(), studentID, attemptID, sub)
	if err != nil {
		t.Fatalf("submit response: %v", err)
	}
	return receipt
}

func (f *fixture) submit(t *testing.T, attemptID string) domain.Attempt {
	t.Helper()
	attempt, err := f.attempts.SubmitAttempt(context.Background(), studentID, attemptID)
	if err != nil {
		t.Fatalf("submit attempt: %v", err)
	}
	return attempt
}

func correctOption(t *testing.T, q domain.Question) string {
	t.Helper()
	for _, o := range q.Options {
		if o.Correct {
			return o.ID
		}
	}
	t.Fatalf("question %s has no correct option", q.ID)
	return ""
}

func wrongOption(t *testing.T, q domain.Question) string {
	t.Helper()
	for _, o := range q.Options {
		if !o.Correct {
			return o.ID
		}
	}
	t.Fatalf("question %s has no wrong option", q.ID)
	return ""
}
