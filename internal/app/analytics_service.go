package app

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"quiz-platform-service/internal/domain"
)

const recentActivityLimit = 5

var scoreBuckets = []domain.ScoreBucket{
	{Range: "0-20", Min: 0, Max: 20},
	{Range: "21-40", Min: 21, Max: 40},
	{Range: "41-60", Min: 41, Max: 60},
	{Range: "61-80", Min: 61, Max: 80},
	{Range: "81-100", Min: 81, Max: 100},
}

// AnalyticsService aggregates attempts for dashboards.
type AnalyticsService struct {
	catalog  QuizStore
	quizzes  QuizRepository
	attempts AttemptStore
}

func NewAnalyticsService(catalog QuizStore, quizzes QuizRepository, attempts AttemptStore) *AnalyticsService {
	return &AnalyticsService{catalog: catalog, quizzes: quizzes, attempts: attempts}
}

// QuizAnalytics summarizes every attempt of one quiz for its instructor.
func (s *AnalyticsService) QuizAnalytics(ctx context.Context, instructorID, quizID string) (domain.QuizAnalytics, error) {
	var (
		detail   domain.QuizDetail
		attempts []domain.Attempt
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		detail, err = s.quizzes.GetQuiz(gctx, quizID)
		return err
	})
	g.Go(func() error {
		var err error
		attempts, err = s.attempts.ListAttempts(gctx, domain.AttemptFilter{QuizID: quizID})
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.QuizAnalytics{}, err
	}
	if detail.Quiz.InstructorID != instructorID {
		return domain.QuizAnalytics{}, domain.ErrForbidden
	}

	ids := make([]string, 0, len(attempts))
	for _, a := range attempts {
		ids = append(ids, a.ID)
	}
	responses, err := s.attempts.ListResponses(ctx, ids...)
	if err != nil {
		return domain.QuizAnalytics{}, err
	}
	return computeQuizAnalytics(detail, attempts, responses), nil
}

func computeQuizAnalytics(detail domain.QuizDetail, attempts []domain.Attempt, responses []domain.Response) domain.QuizAnalytics {
	out := domain.QuizAnalytics{
		QuizID:              detail.Quiz.ID,
		TotalAttempts:       len(attempts),
		ScoreDistribution:   []domain.ScoreBucket{},
		QuestionPerformance: []domain.QuestionPerformance{},
	}

	scores := completedScores(attempts)
	out.CompletedAttempts = len(scores)
	out.AverageScore = averageRounded(scores)
	out.CompletionRate = percentOf(len(scores), len(attempts))
	passed := 0
	for _, sc := range scores {
		if detail.Settings.Passed(sc) {
			passed++
		}
	}
	out.PassRate = percentOf(passed, len(scores))

	if len(scores) > 0 {
		out.ScoreDistribution = distribution(scores)
	}

	type tally struct{ responses, correct int }
	perQuestion := make(map[string]*tally, len(detail.Questions))
	for _, r := range responses {
		t, ok := perQuestion[r.QuestionID]
		if !ok {
			t = &tally{}
			perQuestion[r.QuestionID] = t
		}
		t.responses++
		if r.Correct {
			t.correct++
		}
	}
	questions := make([]domain.Question, len(detail.Questions))
	copy(questions, detail.Questions)
	sort.SliceStable(questions, func(i, j int) bool { return questions[i].Position < questions[j].Position })
	for i, q := range questions {
		perf := domain.QuestionPerformance{QuestionID: q.ID, Label: fmt.Sprintf("Q%d", i+1), Text: q.Text}
		if t, ok := perQuestion[q.ID]; ok {
			perf.Responses = t.responses
			perf.Correct = t.correct
			perf.CorrectPercentage = percentOf(t.correct, t.responses)
		}
		out.QuestionPerformance = append(out.QuestionPerformance, perf)
	}
	return out
}

// InstructorOverview aggregates all quizzes owned by the instructor.
func (s *AnalyticsService) InstructorOverview(ctx context.Context, instructorID string) (domain.InstructorOverview, error) {
	quizzes, err := s.catalog.ListQuizzes(ctx, domain.QuizFilter{InstructorID: instructorID})
	if err != nil {
		return domain.InstructorOverview{}, err
	}
	out := domain.InstructorOverview{TotalQuizzes: len(quizzes), RecentAttempts: []domain.AttemptActivity{}}
	if len(quizzes) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(quizzes))
	titles := make(map[string]string, len(quizzes))
	for _, q := range quizzes {
		ids = append(ids, q.ID)
		titles[q.ID] = q.Title
		if q.Published && !q.Archived {
			out.PublishedQuizzes++
		}
	}
	attempts, err := s.attempts.ListAttempts(ctx, domain.AttemptFilter{QuizIDs: ids})
	if err != nil {
		return domain.InstructorOverview{}, err
	}

	students := make(map[string]struct{})
	for _, a := range attempts {
		students[a.StudentID] = struct{}{}
	}
	out.TotalAttempts = len(attempts)
	out.ActiveStudents = len(students)
	out.AverageScore = averageRounded(completedScores(attempts))
	out.RecentAttempts = recentActivity(attempts, titles)
	return out, nil
}

// StudentOverview aggregates a student's progress across assigned and attempted quizzes.
func (s *AnalyticsService) StudentOverview(ctx context.Context, studentID string) (domain.StudentOverview, error) {
	var (
		assignments []domain.Assignment
		attempts    []domain.Attempt
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		assignments, err = s.catalog.ListAssignments(gctx, studentID)
		return err
	})
	g.Go(func() error {
		var err error
		attempts, err = s.attempts.ListAttempts(gctx, domain.AttemptFilter{StudentID: studentID})
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.StudentOverview{}, err
	}

	out := domain.StudentOverview{
		AssignedQuizzes: len(assignments),
		Mastery:         []domain.CategoryMastery{},
		RecentAttempts:  []domain.AttemptActivity{},
	}
	scores := completedScores(attempts)
	out.CompletedAttempts = len(scores)
	out.AverageScore = averageRounded(scores)
	for _, sc := range scores {
		if sc > out.BestScore {
			out.BestScore = sc
		}
	}
	if len(attempts) == 0 {
		return out, nil
	}

	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, a := range attempts {
		if _, ok := seen[a.QuizID]; !ok {
			seen[a.QuizID] = struct{}{}
			ids = append(ids, a.QuizID)
		}
	}
	quizzes, err := s.catalog.ListQuizzes(ctx, domain.QuizFilter{IDs: ids})
	if err != nil {
		return domain.StudentOverview{}, err
	}
	titles := make(map[string]string, len(quizzes))
	categories := make(map[string]string, len(quizzes))
	for _, q := range quizzes {
		titles[q.ID] = q.Title
		categories[q.ID] = q.Category
	}

	perCategory := make(map[string][]int)
	for _, a := range attempts {
		if a.InProgress() || a.Score == nil {
			continue
		}
		cat := categories[a.QuizID]
		perCategory[cat] = append(perCategory[cat], *a.Score)
	}
	for cat, list := range perCategory {
		out.Mastery = append(out.Mastery, domain.CategoryMastery{Category: cat, Attempts: len(list), AverageScore: averageRounded(list)})
	}
	sort.Slice(out.Mastery, func(i, j int) bool { return out.Mastery[i].Category < out.Mastery[j].Category })
	out.RecentAttempts = recentActivity(attempts, titles)
	return out, nil
}

func completedScores(attempts []domain.Attempt) []int {
	scores := make([]int, 0, len(attempts))
	for _, a := range attempts {
		if !a.InProgress() && a.Score != nil {
			scores = append(scores, *a.Score)
		}
	}
	return scores
}

func distribution(scores []int) []domain.ScoreBucket {
	buckets := make([]domain.ScoreBucket, len(scoreBuckets))
	copy(buckets, scoreBuckets)
	for _, sc := range scores {
		for i := range buckets {
			if sc >= buckets[i].Min && sc <= buckets[i].Max {
				buckets[i].Count++
				break
			}
		}
	}
	return buckets
}

func recentActivity(attempts []domain.Attempt, titles map[string]string) []domain.AttemptActivity {
	done := make([]domain.Attempt, 0, len(attempts))
	for _, a := range attempts {
		if !a.InProgress() && a.Score != nil {
			done = append(done, a)
		}
	}
	sort.Slice(done, func(i, j int) bool { return done[i].CompletedAt.After(*done[j].CompletedAt) })
	if len(done) > recentActivityLimit {
		done = done[:recentActivityLimit]
	}
	out := make([]domain.AttemptActivity, 0, len(done))
	for _, a := range done {
		out = append(out, domain.AttemptActivity{
			AttemptID:   a.ID,
			QuizID:      a.QuizID,
			QuizTitle:   titles[a.QuizID],
			StudentID:   a.StudentID,
			Score:       *a.Score,
			CompletedAt: *a.CompletedAt,
		})
	}
	return out
}
