package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"quiz-platform-service/internal/domain"
)

func TestQuizAnalytics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := sampleInput()
	in.Settings.MaxRetakes = 0
	detail := f.createQuiz(t, in)
	mc, tf := detail.Questions[0], detail.Questions[1]

	// 100: everything right.
	a := f.start(t, detail.Quiz.ID)
	f.answer(t, a.ID, domain.AnswerSubmission{QuestionID: mc.ID, OptionID: correctOption(t, mc)})
	f.answer(t, a.ID, domain.AnswerSubmission{QuestionID: tf.ID, OptionID: correctOption(t, tf)})
	f.answer(t, a.ID, domain.AnswerSubmission{QuestionID: detail.Questions[2].ID, Text: "paris"})
	f.submit(t, a.ID)

	// 25: only the true/false.
	a = f.start(t, detail.Quiz.ID)
	f.answer(t, a.ID, domain.AnswerSubmission{QuestionID: mc.ID, OptionID: wrongOption(t, mc)})
	f.answer(t, a.ID, domain.AnswerSubmission{QuestionID: tf.ID, OptionID: correctOption(t, tf)})
	f.submit(t, a.ID)

	// still running
	f.start(t, detail.Quiz.ID)

	stats, err := f.analytics.QuizAnalytics(ctx, instructorID, detail.Quiz.ID)
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	if stats.TotalAttempts != 3 || stats.CompletedAttempts != 2 {
		t.Fatalf("unexpected counts %+v", stats)
	}
	if stats.AverageScore != 63 || stats.CompletionRate != 67 || stats.PassRate != 50 {
		t.Fatalf("unexpected rates %+v", stats)
	}
	if len(stats.ScoreDistribution) != 5 || stats.ScoreDistribution[1].Count != 1 || stats.ScoreDistribution[4].Count != 1 {
		t.Fatalf("unexpected distribution %+v", stats.ScoreDistribution)
	}
	perf := stats.QuestionPerformance
	if len(perf) != 3 || perf[0].Label != "Q1" || perf[0].CorrectPercentage != 50 || perf[1].CorrectPercentage != 100 || perf[2].Responses != 1 {
		t.Fatalf("unexpected question performance %+v", perf)
	}

	if _, err := f.analytics.QuizAnalytics(ctx, "instructor-2", detail.Quiz.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestQuizAnalyticsWithoutAttempts(t *testing.T) {
	f := newFixture(t)
	detail := f.createQuiz(t, sampleInput())

	stats, err := f.analytics.QuizAnalytics(context.Background(), instructorID, detail.Quiz.ID)
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	if stats.AverageScore != 0 || stats.CompletionRate != 0 || len(stats.ScoreDistribution) != 0 {
		t.Fatalf("expected empty analytics, got %+v", stats)
	}
	if len(stats.QuestionPerformance) != 3 || stats.QuestionPerformance[0].CorrectPercentage != 0 {
		t.Fatalf("expected zeroed question rows, got %+v", stats.QuestionPerformance)
	}
}

func TestDashboards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	geo := f.createQuiz(t, sampleInput())
	math := sampleInput()
	math.Title = "Numbers"
	math.Category = "Mathematics"
	mathQuiz := f.createQuiz(t, math)
	if _, err := f.quizzes.AssignQuiz(ctx, instructorID, geo.Quiz.ID, []string{studentID, "student-2"}, nil); err != nil {
		t.Fatalf("assign: %v", err)
	}

	a := f.start(t, geo.Quiz.ID)
	f.answer(t, a.ID, domain.AnswerSubmission{QuestionID: geo.Questions[2].ID, Text: "Paris"})
	f.submit(t, a.ID) // 25
	f.clock.Advance(time.Minute)
	a = f.start(t, mathQuiz.Quiz.ID)
	mc := mathQuiz.Questions[0]
	f.answer(t, a.ID, domain.AnswerSubmission{QuestionID: mc.ID, OptionID: correctOption(t, mc)})
	f.submit(t, a.ID) // 50

	owner, err := f.analytics.InstructorOverview(ctx, instructorID)
	if err != nil {
		t.Fatalf("instructor overview: %v", err)
	}
	if owner.TotalQuizzes != 2 || owner.PublishedQuizzes != 2 || owner.TotalAttempts != 2 || owner.ActiveStudents != 1 || owner.AverageScore != 38 {
		t.Fatalf("unexpected instructor overview %+v", owner)
	}
	if len(owner.RecentAttempts) != 2 || owner.RecentAttempts[0].QuizTitle != "Numbers" {
		t.Fatalf("expected newest attempt first, got %+v", owner.RecentAttempts)
	}

	student, err := f.analytics.StudentOverview(ctx, studentID)
	if err != nil {
		t.Fatalf("student overview: %v", err)
	}
	if student.AssignedQuizzes != 1 || student.CompletedAttempts != 2 || student.BestScore != 50 || student.AverageScore != 38 {
		t.Fatalf("unexpected student overview %+v", student)
	}
	if len(student.Mastery) != 2 || student.Mastery[0].Category != "Geography" || student.Mastery[0].AverageScore != 25 {
		t.Fatalf("unexpected mastery %+v", student.Mastery)
	}

	empty, err := f.analytics.StudentOverview(ctx, "newcomer")
	if err != nil || empty.CompletedAttempts != 0 || len(empty.Mastery) != 0 {
		t.Fatalf("expected empty overview, got %+v err=%v", empty, err)
	}
}
