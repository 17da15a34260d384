package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"quiz-platform-service/internal/domain"
)

// DefaultCategories seeds the category catalogue of a fresh store.
var DefaultCategories = []string{
	"Mathematics", "Science", "History", "Language", "Programming", "Geography", "Art", "Music", "General Knowledge",
}

// Store keeps quizzes, attempts and responses in memory. It implements
// app.QuizStore, app.AttemptStore and app.QuizLoader for tests and single-node demos.
type Store struct {
	mu          sync.RWMutex
	quizzes     map[string]domain.Quiz
	settings    map[string]domain.QuizSettings
	questions   map[string]domain.Question
	attempts    map[string]domain.Attempt
	responses   map[string]domain.Response
	assignments map[string]domain.Assignment
	categories  []string
}

func NewStore() *Store {
	return &Store{
		quizzes:     make(map[string]domain.Quiz),
		settings:    make(map[string]domain.QuizSettings),
		questions:   make(map[string]domain.Question),
		attempts:    make(map[string]domain.Attempt),
		responses:   make(map[string]domain.Response),
		assignments: make(map[string]domain.Assignment),
		categories:  append([]string(nil), DefaultCategories...),
	}
}

func (s *Store) CreateQuiz(_ context.Context, detail domain.QuizDetail) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes[detail.Quiz.ID] = detail.Quiz
	detail.Settings.QuizID = detail.Quiz.ID
	s.settings[detail.Quiz.ID] = detail.Settings
	for _, q := range detail.Questions {
		s.questions[q.ID] = cloneQuestion(q)
	}
	return nil
}

func (s *Store) GetQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

func (s *Store) UpdateQuiz(_ context.Context, quiz domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quiz.ID]; !ok {
		return domain.ErrQuizNotFound
	}
	s.quizzes[quiz.ID] = quiz
	return nil
}

func (s *Store) DeleteQuiz(_ context.Context, quizID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quizID]; !ok {
		return domain.ErrQuizNotFound
	}
	delete(s.quizzes, quizID)
	delete(s.settings, quizID)
	for id, q := range s.questions {
		if q.QuizID == quizID {
			delete(s.questions, id)
		}
	}
	for id, a := range s.attempts {
		if a.QuizID != quizID {
			continue
		}
		for key, r := range s.responses {
			if r.AttemptID == id {
				delete(s.responses, key)
			}
		}
		delete(s.attempts, id)
	}
	for key, a := range s.assignments {
		if a.QuizID == quizID {
			delete(s.assignments, key)
		}
	}
	return nil
}

func (s *Store) ListQuizzes(_ context.Context, filter domain.QuizFilter) ([]domain.QuizSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids map[string]struct{}
	if len(filter.IDs) > 0 {
		ids = make(map[string]struct{}, len(filter.IDs))
		for _, id := range filter.IDs {
			ids[id] = struct{}{}
		}
	}
	counts := make(map[string]int)
	for _, q := range s.questions {
		counts[q.QuizID]++
	}

	out := make([]domain.QuizSummary, 0)
	for _, q := range s.quizzes {
		if filter.InstructorID != "" && q.InstructorID != filter.InstructorID {
			continue
		}
		if ids != nil {
			if _, ok := ids[q.ID]; !ok {
				continue
			}
		}
		out = append(out, domain.QuizSummary{Quiz: q, QuestionCount: counts[q.ID]})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) SaveSettings(_ context.Context, settings domain.QuizSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[settings.QuizID]; !ok {
		return domain.ErrQuizNotFound
	}
	s.settings[settings.QuizID] = settings
	return nil
}

// ApplyQuizUpdate applies metadata, settings and questions under one lock.
func (s *Store) ApplyQuizUpdate(_ context.Context, update domain.QuizUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	quizID := update.Quiz.ID
	if _, ok := s.quizzes[quizID]; !ok {
		return domain.ErrQuizNotFound
	}
	if update.Questions != nil {
		for _, a := range s.attempts {
			if a.QuizID == quizID {
				return domain.ErrQuizHasAttempts
			}
		}
	}

	s.quizzes[quizID] = update.Quiz
	if update.Settings != nil {
		settings := *update.Settings
		settings.QuizID = quizID
		s.settings[quizID] = settings
	}
	if update.Questions != nil {
		for id, q := range s.questions {
			if q.QuizID == quizID {
				delete(s.questions, id)
			}
		}
		for _, q := range update.Questions {
			q.QuizID = quizID
			s.questions[q.ID] = cloneQuestion(q)
		}
	}
	return nil
}

func (s *Store) AddQuestion(_ context.Context, question domain.Question) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[question.QuizID]; !ok {
		return domain.Question{}, domain.ErrQuizNotFound
	}
	if question.Position == 0 {
		last := 0
		for _, q := range s.questions {
			if q.QuizID == question.QuizID && q.Position > last {
				last = q.Position
			}
		}
		question.Position = last + 1
	}
	s.questions[question.ID] = cloneQuestion(question)
	return cloneQuestion(question), nil
}

func (s *Store) GetQuestion(_ context.Context, questionID string) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[questionID]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return cloneQuestion(q), nil
}

func (s *Store) DeleteQuestion(_ context.Context, questionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[questionID]; !ok {
		return domain.ErrQuestionNotFound
	}
	delete(s.questions, questionID)
	for key, r := range s.responses {
		if r.QuestionID == questionID {
			delete(s.responses, key)
		}
	}
	return nil
}

func (s *Store) ReorderQuestions(_ context.Context, quizID string, order []domain.QuestionPosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range order {
		q, ok := s.questions[p.QuestionID]
		if !ok || q.QuizID != quizID {
			return domain.ErrQuestionNotFound
		}
	}
	for _, p := range order {
		q := s.questions[p.QuestionID]
		q.Position = p.Position
		s.questions[p.QuestionID] = q
	}
	return nil
}

func (s *Store) ListCategories(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]string(nil), s.categories...)
	sort.Strings(out)
	return out, nil
}

func (s *Store) AssignQuiz(_ context.Context, assignments []domain.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range assignments {
		if _, ok := s.quizzes[a.QuizID]; !ok {
			return domain.ErrQuizNotFound
		}
	}
	for _, a := range assignments {
		key := a.QuizID + "/" + a.StudentID
		if existing, ok := s.assignments[key]; ok {
			a.AssignedAt = existing.AssignedAt
		}
		s.assignments[key] = a
	}
	return nil
}

func (s *Store) ListAssignments(_ context.Context, studentID string) ([]domain.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Assignment, 0)
	for _, a := range s.assignments {
		if a.StudentID == studentID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuizID < out[j].QuizID })
	return out, nil
}

// LoadQuiz implements app.QuizLoader.
func (s *Store) LoadQuiz(_ context.Context, quizID string) (domain.QuizDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.QuizDetail{}, domain.ErrQuizNotFound
	}
	settings, ok := s.settings[quizID]
	if !ok {
		settings = domain.DefaultSettings(quizID)
	}
	questions := make([]domain.Question, 0)
	for _, q := range s.questions {
		if q.QuizID == quizID {
			questions = append(questions, cloneQuestion(q))
		}
	}
	sort.Slice(questions, func(i, j int) bool {
		if questions[i].Position != questions[j].Position {
			return questions[i].Position < questions[j].Position
		}
		return questions[i].ID < questions[j].ID
	})
	return domain.QuizDetail{Quiz: quiz, Settings: settings, Questions: questions}, nil
}

func (s *Store) CreateAttempt(_ context.Context, quizID, studentID string, startedAt time.Time) (domain.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quizID]; !ok {
		return domain.Attempt{}, domain.ErrQuizNotFound
	}
	last := 0
	for _, a := range s.attempts {
		if a.QuizID != quizID || a.StudentID != studentID {
			continue
		}
		if a.InProgress() {
			return domain.Attempt{}, domain.ErrAttemptInProgress
		}
		if a.AttemptNumber > last {
			last = a.AttemptNumber
		}
	}
	attempt := domain.Attempt{
		ID:            uuid.NewString(),
		QuizID:        quizID,
		StudentID:     studentID,
		StartedAt:     startedAt,
		AttemptNumber: last + 1,
	}
	s.attempts[attempt.ID] = attempt
	return attempt, nil
}

func (s *Store) FindOpenAttempt(_ context.Context, quizID, studentID string) (domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.attempts {
		if a.QuizID == quizID && a.StudentID == studentID && a.InProgress() {
			return a, nil
		}
	}
	return domain.Attempt{}, domain.ErrAttemptNotFound
}

func (s *Store) GetAttempt(_ context.Context, attemptID string) (domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.attempts[attemptID]
	if !ok {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return a, nil
}

func (s *Store) ListAttempts(_ context.Context, filter domain.AttemptFilter) ([]domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var quizIDs map[string]struct{}
	if len(filter.QuizIDs) > 0 {
		quizIDs = make(map[string]struct{}, len(filter.QuizIDs))
		for _, id := range filter.QuizIDs {
			quizIDs[id] = struct{}{}
		}
	}
	out := make([]domain.Attempt, 0)
	for _, a := range s.attempts {
		if filter.QuizID != "" && a.QuizID != filter.QuizID {
			continue
		}
		if filter.StudentID != "" && a.StudentID != filter.StudentID {
			continue
		}
		if quizIDs != nil {
			if _, ok := quizIDs[a.QuizID]; !ok {
				continue
			}
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.Before(out[j].StartedAt)
		}
		return out[i].AttemptNumber < out[j].AttemptNumber
	})
	return out, nil
}

// CompleteAttempt scores and closes an attempt under the store lock, so no
// response can be saved between scoring and completion.
func (s *Store) CompleteAttempt(_ context.Context, attemptID string, completedAt time.Time, timeSpent int, score func([]domain.Response) int) (domain.Attempt, []domain.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[attemptID]
	if !ok {
		return domain.Attempt{}, nil, domain.ErrAttemptNotFound
	}
	if !a.InProgress() {
		return domain.Attempt{}, nil, domain.ErrAttemptCompleted
	}
	responses := s.responsesLocked(attemptID)
	sc := score(responses)
	done := completedAt
	a.CompletedAt = &done
	a.Score = &sc
	a.TimeSpent = timeSpent
	s.attempts[attemptID] = a
	return a, responses, nil
}

func (s *Store) SaveResponse(_ context.Context, response domain.Response) (domain.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[response.AttemptID]
	if !ok {
		return domain.Response{}, domain.ErrAttemptNotFound
	}
	if !a.InProgress() {
		return domain.Response{}, domain.ErrAttemptCompleted
	}
	key := response.AttemptID + "/" + response.QuestionID
	if existing, ok := s.responses[key]; ok {
		response.ID = existing.ID
	}
	s.responses[key] = response
	return response, nil
}

func (s *Store) ListResponses(_ context.Context, attemptIDs ...string) ([]domain.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.responsesLocked(attemptIDs...), nil
}

func (s *Store) responsesLocked(attemptIDs ...string) []domain.Response {
	out := make([]domain.Response, 0)
	if len(attemptIDs) == 0 {
		return out
	}
	ids := make(map[string]struct{}, len(attemptIDs))
	for _, id := range attemptIDs {
		ids[id] = struct{}{}
	}
	for _, r := range s.responses {
		if _, ok := ids[r.AttemptID]; ok {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AnsweredAt.Equal(out[j].AnsweredAt) {
			return out[i].AnsweredAt.Before(out[j].AnsweredAt)
		}
		return out[i].QuestionID < out[j].QuestionID
	})
	return out
}

func cloneQuestion(q domain.Question) domain.Question {
	q.Options = append([]domain.Option(nil), q.Options...)
	return q
}
