package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"quiz-platform-service/internal/domain"
)

// AttemptCompletedQueue receives one message per finished attempt.
const AttemptCompletedQueue = "quiz.attempt.completed"

// AttemptCompletedEvent is the payload published on AttemptCompletedQueue.
type AttemptCompletedEvent struct {
	AttemptID     string    `json:"attemptId"`
	QuizID        string    `json:"quizId"`
	StudentID     string    `json:"studentId"`
	AttemptNumber int       `json:"attemptNumber"`
	Score         int       `json:"score"`
	Passed        bool      `json:"passed"`
	TimeSpent     int       `json:"timeSpent"`
	CompletedAt   time.Time `json:"completedAt"`
}

// AttemptClock describes the timing of an open attempt.
type AttemptClock struct {
	Attempt  domain.Attempt
	Deadline time.Time
	Timed    bool
}

// AttemptService contains the quiz-taking use cases.
type AttemptService struct {
	quizzes QuizRepository
	store   AttemptStore
	catalog QuizStore
	locker  AttemptLocker
	events  EventPublisher
	rosters RosterRepository
	now     func() time.Time
}

// NewAttemptService wires the attempt service. events may be nil.
func NewAttemptService(quizzes QuizRepository, store AttemptStore, catalog QuizStore, locker AttemptLocker, events EventPublisher, rosters RosterRepository, opts ...Option) *AttemptService {
	o := buildOptions(opts)
	return &AttemptService{
		quizzes: quizzes,
		store:   store,
		catalog: catalog,
		locker:  locker,
		events:  events,
		rosters: rosters,
		now:     o.now,
	}
}

// Now exposes the service clock to transports that count down deadlines.
func (s *AttemptService) Now() time.Time {
	return s.now()
}

// StartAttempt opens a new attempt or resumes the open one. The boolean reports a resume.
func (s *AttemptService) StartAttempt(ctx context.Context, studentID, quizID string) (domain.Attempt, bool, error) {
	detail, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Attempt{}, false, err
	}
	if !detail.Quiz.Open() {
		return domain.Attempt{}, false, domain.ErrQuizNotAvailable
	}

	unlock, err := s.locker.Lock(ctx, quizID+":"+studentID)
	if err != nil {
		return domain.Attempt{}, false, fmt.Errorf("lock attempt: %w", err)
	}
	defer unlock()

	open, err := s.store.FindOpenAttempt(ctx, quizID, studentID)
	switch {
	case err == nil:
		if !s.expired(open, detail.Quiz) {
			return open, true, nil
		}
		if _, err := s.finalize(ctx, open, detail); err != nil && !errors.Is(err, domain.ErrAttemptCompleted) {
			return domain.Attempt{}, false, err
		}
	case !errors.Is(err, domain.ErrAttemptNotFound):
		return domain.Attempt{}, false, err
	}

	previous, err := s.store.ListAttempts(ctx, domain.AttemptFilter{QuizID: quizID, StudentID: studentID})
	if err != nil {
		return domain.Attempt{}, false, err
	}
	if !detail.Settings.CanStartAttempt(countCompleted(previous)) {
		return domain.Attempt{}, false, domain.ErrRetakesExhausted
	}

	attempt, err := s.store.CreateAttempt(ctx, quizID, studentID, s.now())
	if errors.Is(err, domain.ErrAttemptInProgress) {
		open, err := s.store.FindOpenAttempt(ctx, quizID, studentID)
		return open, true, err
	}
	if err != nil {
		return domain.Attempt{}, false, err
	}

	s.rosters.Update(quizID, func(r *Roster) { r.started(attempt, 0) })
	log.Info().Str("attemptID", attempt.ID).Str("quizID", quizID).Str("studentID", studentID).
		Int("attemptNumber", attempt.AttemptNumber).Msg("attempt started")
	return attempt, false, nil
}

// PlayableQuiz returns the questions of an open attempt without answers, in a stable shuffled order.
func (s *AttemptService) PlayableQuiz(ctx context.Context, studentID, attemptID string) (domain.PlayableQuiz, error) {
	attempt, detail, err := s.ownedOpenAttempt(ctx, studentID, attemptID)
	if err != nil {
		return domain.PlayableQuiz{}, err
	}
	if s.expired(attempt, detail.Quiz) {
		if _, err := s.finalize(ctx, attempt, detail); err != nil && !errors.Is(err, domain.ErrAttemptCompleted) {
			return domain.PlayableQuiz{}, err
		}
		return domain.PlayableQuiz{}, domain.ErrTimeLimitExceeded
	}
	responses, err := s.store.ListResponses(ctx, attempt.ID)
	if err != nil {
		return domain.PlayableQuiz{}, err
	}

	view := domain.PlayableQuiz{
		AttemptID:     attempt.ID,
		AttemptNumber: attempt.AttemptNumber,
		QuizID:        detail.Quiz.ID,
		Title:         detail.Quiz.Title,
		Description:   detail.Quiz.Description,
		Category:      detail.Quiz.Category,
		CoverImage:    detail.Quiz.CoverImage,
		TimeLimit:     detail.Quiz.TimeLimit,
		StartedAt:     attempt.StartedAt,
		Questions:     playableQuestions(detail, newSeededRand(attempt.ID)),
		Answered:      make([]string, 0, len(responses)),
	}
	if deadline, ok := attempt.Deadline(detail.Quiz.TimeLimit); ok {
		view.Deadline = &deadline
	}
	for _, r := range responses {
		view.Answered = append(view.Answered, r.QuestionID)
	}
	return view, nil
}

// SubmitResponse grades and stores one answer; answering again replaces the previous answer.
func (s *AttemptService) SubmitResponse(ctx context.Context, studentID, attemptID string, submission domain.AnswerSubmission) (domain.AnswerReceipt, error) {
	attempt, detail, err := s.ownedOpenAttempt(ctx, studentID, attemptID)
	if err != nil {
		return domain.AnswerReceipt{}, err
	}
	if s.expired(attempt, detail.Quiz) {
		if _, err := s.finalize(ctx, attempt, detail); err != nil && !errors.Is(err, domain.ErrAttemptCompleted) {
			return domain.AnswerReceipt{}, err
		}
		return domain.AnswerReceipt{}, domain.ErrTimeLimitExceeded
	}

	question, ok := detail.Question(submission.QuestionID)
	if !ok {
		return domain.AnswerReceipt{}, domain.ErrQuestionNotFound
	}
	correct, points, err := gradeResponse(question, submission)
	if err != nil {
		return domain.AnswerReceipt{}, err
	}

	response := domain.Response{
		ID:           uuid.NewString(),
		AttemptID:    attempt.ID,
		QuestionID:   question.ID,
		Correct:      correct,
		PointsEarned: points,
		AnsweredAt:   s.now(),
	}
	switch {
	case question.Type.UsesOptions():
		response.SelectedOptionID = submission.OptionID
	case question.Type.UsesText():
		response.TextResponse = strings.TrimSpace(submission.Text)
	default:
		response.Matches = submission.Matches
	}
	if _, err := s.store.SaveResponse(ctx, response); err != nil {
		return domain.AnswerReceipt{}, err
	}

	responses, err := s.store.ListResponses(ctx, attempt.ID)
	if err != nil {
		return domain.AnswerReceipt{}, err
	}
	s.rosters.Update(attempt.QuizID, func(r *Roster) { r.answered(attempt, len(responses)) })

	receipt := domain.AnswerReceipt{QuestionID: question.ID, Answered: len(responses)}
	if detail.Settings.RevealsCorrectness() {
		receipt.Correct = &correct
		receipt.PointsEarned = &points
	}
	return receipt, nil
}

// SubmitAttempt finalizes an open attempt and returns it with its score.
func (s *AttemptService) SubmitAttempt(ctx context.Context, studentID, attemptID string) (domain.Attempt, error) {
	attempt, detail, err := s.ownedOpenAttempt(ctx, studentID, attemptID)
	if err != nil {
		return domain.Attempt{}, err
	}
	return s.finalize(ctx, attempt, detail)
}

// Clock reports the deadline of an open attempt owned by the student.
func (s *AttemptService) Clock(ctx context.Context, studentID, attemptID string) (AttemptClock, error) {
	attempt, detail, err := s.ownedOpenAttempt(ctx, studentID, attemptID)
	if err != nil {
		return AttemptClock{}, err
	}
	deadline, timed := attempt.Deadline(detail.Quiz.TimeLimit)
	return AttemptClock{Attempt: attempt, Deadline: deadline, Timed: timed}, nil
}

// Results builds the results page of an attempt for its student or the quiz instructor.
func (s *AttemptService) Results(ctx context.Context, viewerID string, role domain.Role, attemptID string) (domain.AttemptResult, error) {
	attempt, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return domain.AttemptResult{}, err
	}
	detail, err := s.quizzes.GetQuiz(ctx, attempt.QuizID)
	if err != nil {
		return domain.AttemptResult{}, err
	}
	switch role {
	case domain.RoleStudent:
		if attempt.StudentID != viewerID {
			return domain.AttemptResult{}, domain.ErrForbidden
		}
	case domain.RoleInstructor:
		if detail.Quiz.InstructorID != viewerID {
			return domain.AttemptResult{}, domain.ErrForbidden
		}
	default:
		return domain.AttemptResult{}, domain.ErrForbidden
	}

	if attempt.InProgress() {
		if !s.expired(attempt, detail.Quiz) {
			return domain.AttemptResult{}, domain.ErrAttemptInProgress
		}
		attempt, err = s.finalize(ctx, attempt, detail)
		if errors.Is(err, domain.ErrAttemptCompleted) {
			attempt, err = s.store.GetAttempt(ctx, attemptID)
		}
		if err != nil {
			return domain.AttemptResult{}, err
		}
	}

	responses, err := s.store.ListResponses(ctx, attempt.ID)
	if err != nil {
		return domain.AttemptResult{}, err
	}
	history, err := s.store.ListAttempts(ctx, domain.AttemptFilter{QuizID: attempt.QuizID, StudentID: attempt.StudentID})
	if err != nil {
		return domain.AttemptResult{}, err
	}
	canRetake := detail.Quiz.Open() && !hasOpen(history) && detail.Settings.CanStartAttempt(countCompleted(history))
	review := role == domain.RoleInstructor || detail.Settings.ResultsVisible(s.now())
	return buildResult(attempt, detail, responses, canRetake, review), nil
}

// ListStudentQuizzes returns the open quizzes assigned to a student with their attempts.
func (s *AttemptService) ListStudentQuizzes(ctx context.Context, studentID string) ([]domain.StudentQuiz, error) {
	assignments, err := s.catalog.ListAssignments(ctx, studentID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.StudentQuiz, 0, len(assignments))
	if len(assignments) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(assignments))
	due := make(map[string]*time.Time, len(assignments))
	for _, a := range assignments {
		ids = append(ids, a.QuizID)
		due[a.QuizID] = a.DueDate
	}
	quizzes, err := s.catalog.ListQuizzes(ctx, domain.QuizFilter{IDs: ids})
	if err != nil {
		return nil, err
	}
	attempts, err := s.store.ListAttempts(ctx, domain.AttemptFilter{StudentID: studentID, QuizIDs: ids})
	if err != nil {
		return nil, err
	}
	byQuiz := make(map[string][]domain.Attempt)
	for _, a := range attempts {
		byQuiz[a.QuizID] = append(byQuiz[a.QuizID], a)
	}

	for _, q := range quizzes {
		if !q.Open() {
			continue
		}
		list := byQuiz[q.ID]
		if list == nil {
			list = []domain.Attempt{}
		}
		out = append(out, domain.StudentQuiz{Quiz: q.Quiz, DueDate: due[q.ID], Attempts: list})
	}
	sort.SliceStable(out, func(i, j int) bool {
		di, dj := out[i].DueDate, out[j].DueDate
		switch {
		case di != nil && dj != nil && !di.Equal(*dj):
			return di.Before(*dj)
		case di != nil && dj == nil:
			return true
		case di == nil && dj != nil:
			return false
		}
		return out[i].Quiz.Title < out[j].Quiz.Title
	})
	return out, nil
}

// ListAttempts returns the student's attempt history on one quiz.
func (s *AttemptService) ListAttempts(ctx context.Context, studentID, quizID string) ([]domain.Attempt, error) {
	return s.store.ListAttempts(ctx, domain.AttemptFilter{QuizID: quizID, StudentID: studentID})
}

// SubscribeRoster returns live roster snapshots of a quiz to its instructor.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *AttemptService) SubscribeRoster(ctx context.Context, instructorID, quizID string) (<-chan domain.Roster, func(), error) {
	detail, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, nil, err
	}
	if detail.Quiz.InstructorID != instructorID {
		return nil, nil, domain.ErrForbidden
	}
	var (
		ch     <-chan domain.Roster
		cancel func()
	)
	s.rosters.Update(quizID, func(r *Roster) { ch, cancel = r.subscribe() })
	return ch, func() {
		cancel()
		s.rosters.DeleteIfIdle(quizID)
	}, nil
}

func (s *AttemptService) ownedOpenAttempt(ctx context.Context, studentID, attemptID string) (domain.Attempt, domain.QuizDetail, error) {
	attempt, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return domain.Attempt{}, domain.QuizDetail{}, err
	}
	if attempt.StudentID != studentID {
		return domain.Attempt{}, domain.QuizDetail{}, domain.ErrForbidden
	}
	if !attempt.InProgress() {
		return domain.Attempt{}, domain.QuizDetail{}, domain.ErrAttemptCompleted
	}
	detail, err := s.quizzes.GetQuiz(ctx, attempt.QuizID)
	if err != nil {
		return domain.Attempt{}, domain.QuizDetail{}, err
	}
	return attempt, detail, nil
}

func (s *AttemptService) expired(attempt domain.Attempt, quiz domain.Quiz) bool {
	deadline, ok := attempt.Deadline(quiz.TimeLimit)
	return ok && !s.now().Before(deadline)
}

// finalize scores an attempt over the total points of the quiz and completes it.
// Scoring runs inside the store so an answer racing the submit is either counted or rejected.
func (s *AttemptService) finalize(ctx context.Context, attempt domain.Attempt, detail domain.QuizDetail) (domain.Attempt, error) {
	now := s.now()
	spent := timeSpent(attempt.StartedAt, now, detail.Quiz.TimeLimit)
	possible := detail.PossiblePoints()

	completed, responses, err := s.store.CompleteAttempt(ctx, attempt.ID, now, spent, func(responses []domain.Response) int {
		earned := 0
		for _, r := range responses {
			if _, ok := detail.Question(r.QuestionID); ok {
				earned += r.PointsEarned
			}
		}
		return ScorePercent(earned, possible)
	})
	if err != nil {
		return domain.Attempt{}, err
	}
	if roster, ok := s.rosters.Get(attempt.QuizID); ok {
		roster.completed(completed, len(responses))
	}
	s.publishCompleted(ctx, completed, detail.Settings)
	s.rosters.DeleteIfIdle(attempt.QuizID)
	log.Info().Str("attemptID", completed.ID).Str("quizID", completed.QuizID).Int("score", *completed.Score).
		Int("timeSpent", spent).Msg("attempt completed")
	return completed, nil
}

func (s *AttemptService) publishCompleted(ctx context.Context, attempt domain.Attempt, settings domain.QuizSettings) {
	if s.events == nil || attempt.Score == nil || attempt.CompletedAt == nil {
		return
	}
	body, err := json.Marshal(AttemptCompletedEvent{
		AttemptID:     attempt.ID,
		QuizID:        attempt.QuizID,
		StudentID:     attempt.StudentID,
		AttemptNumber: attempt.AttemptNumber,
		Score:         *attempt.Score,
		Passed:        settings.Passed(*attempt.Score),
		TimeSpent:     attempt.TimeSpent,
		CompletedAt:   *attempt.CompletedAt,
	})
	if err != nil {
		log.Error().Err(err).Str("attemptID", attempt.ID).Msg("marshal attempt event")
		return
	}
	if err := s.events.Publish(ctx, AttemptCompletedQueue, body); err != nil {
		log.Warn().Err(err).Str("attemptID", attempt.ID).Msg("publish attempt event")
	}
}

func countCompleted(attempts []domain.Attempt) int {
	n := 0
	for _, a := range attempts {
		if !a.InProgress() {
			n++
		}
	}
	return n
}

func hasOpen(attempts []domain.Attempt) bool {
	for _, a := range attempts {
		if a.InProgress() {
			return true
		}
	}
	return false
}

// newSeededRand gives every attempt its own stable shuffle.
func newSeededRand(attemptID string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(attemptID))
	return rand.New(rand.NewSource(int64(h.Sum64())))
}

func playableQuestions(detail domain.QuizDetail, rnd *rand.Rand) []domain.PlayableQuestion {
	questions := make([]domain.Question, len(detail.Questions))
	copy(questions, detail.Questions)
	sort.SliceStable(questions, func(i, j int) bool { return questions[i].Position < questions[j].Position })
	if detail.Settings.ShuffleQuestions {
		rnd.Shuffle(len(questions), func(i, j int) { questions[i], questions[j] = questions[j], questions[i] })
	}

	out := make([]domain.PlayableQuestion, 0, len(questions))
	for i, q := range questions {
		options := make([]domain.Option, len(q.Options))
		copy(options, q.Options)
		sort.SliceStable(options, func(a, b int) bool { return options[a].Position < options[b].Position })
		if detail.Settings.ShuffleOptions && q.Type != domain.QuestionTrueFalse {
			rnd.Shuffle(len(options), func(a, b int) { options[a], options[b] = options[b], options[a] })
		}

		pq := domain.PlayableQuestion{
			ID:       q.ID,
			Type:     q.Type,
			Text:     q.Text,
			Points:   q.PointValue(),
			Position: i + 1,
			Options:  make([]domain.PlayableOption, 0, len(options)),
		}
		for j, opt := range options {
			pq.Options = append(pq.Options, domain.PlayableOption{ID: opt.ID, Text: opt.Text, Position: j + 1})
		}
		if q.Type == domain.QuestionMatching {
			pq.MatchChoices = make([]string, 0, len(options))
			for _, opt := range options {
				pq.MatchChoices = append(pq.MatchChoices, opt.MatchText)
			}
			rnd.Shuffle(len(pq.MatchChoices), func(a, b int) {
				pq.MatchChoices[a], pq.MatchChoices[b] = pq.MatchChoices[b], pq.MatchChoices[a]
			})
		}
		out = append(out, pq)
	}
	return out
}
