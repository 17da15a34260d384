package app

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"quiz-platform-service/internal/domain"
)

const maxCoverSize = 5 << 20

// QuizListFilter mirrors the instructor quiz list controls.
type QuizListFilter struct {
	Search   string
	Category string
	Status   string // all, published, draft, archived
}

// QuizService contains the quiz authoring use cases.
type QuizService struct {
	store    QuizStore
	quizzes  QuizRepository
	attempts AttemptStore
	covers   CoverStore
	now      func() time.Time
}

// NewQuizService wires the authoring service. covers may be nil when object storage is not configured.
func NewQuizService(store QuizStore, quizzes QuizRepository, attempts AttemptStore, covers CoverStore, opts ...Option) *QuizService {
	o := buildOptions(opts)
	return &QuizService{store: store, quizzes: quizzes, attempts: attempts, covers: covers, now: o.now}
}

// CreateQuiz stores a quiz together with its settings and questions.
func (s *QuizService) CreateQuiz(ctx context.Context, instructorID string, in QuizInput) (domain.QuizDetail, error) {
	in.normalize()
	verr := validateStruct(in)

	now := s.now()
	quiz := domain.Quiz{
		ID:           uuid.NewString(),
		InstructorID: instructorID,
		Title:        in.Title,
		Description:  in.Description,
		Category:     in.Category,
		CoverImage:   in.CoverImage,
		TimeLimit:    in.TimeLimit,
		Published:    in.Published,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	settings := domain.DefaultSettings(quiz.ID)
	if in.Settings != nil {
		settings = in.Settings.toSettings(quiz.ID)
	}
	questions := buildQuestions(quiz.ID, in.Questions, verr)
	if in.Published && len(questions) == 0 {
		verr.Add("questions", "a published quiz needs at least one question")
	}
	if err := verr.OrNil(); err != nil {
		return domain.QuizDetail{}, err
	}

	detail := domain.QuizDetail{Quiz: quiz, Settings: settings, Questions: questions}
	if err := s.store.CreateQuiz(ctx, detail); err != nil {
		return domain.QuizDetail{}, err
	}
	log.Info().Str("quizID", quiz.ID).Str("instructorID", instructorID).Int("questions", len(questions)).Msg("quiz created")
	return detail, nil
}

// UpdateQuiz replaces metadata, settings (when given) and questions (when given).
func (s *QuizService) UpdateQuiz(ctx context.Context, instructorID, quizID string, in QuizInput) (domain.QuizDetail, error) {
	quiz, err := s.ownedQuiz(ctx, instructorID, quizID)
	if err != nil {
		return domain.QuizDetail{}, err
	}

	in.normalize()
	verr := validateStruct(in)
	var questions []domain.Question
	if in.Questions != nil {
		questions = buildQuestions(quizID, in.Questions, verr)
	}
	if err := verr.OrNil(); err != nil {
		return domain.QuizDetail{}, err
	}

	if in.Published {
		count := len(questions)
		if in.Questions == nil {
			current, err := s.quizzes.GetQuiz(ctx, quizID)
			if err != nil {
				return domain.QuizDetail{}, err
			}
			count = len(current.Questions)
		}
		if count == 0 {
			return domain.QuizDetail{}, domain.NewValidationError("questions", "a published quiz needs at least one question")
		}
	}

	quiz.Title = in.Title
	quiz.Description = in.Description
	quiz.Category = in.Category
	quiz.CoverImage = in.CoverImage
	quiz.TimeLimit = in.TimeLimit
	quiz.Published = in.Published
	quiz.UpdatedAt = s.now()
	update := domain.QuizUpdate{Quiz: quiz, Questions: questions}
	if in.Settings != nil {
		settings := in.Settings.toSettings(quizID)
		update.Settings = &settings
	}
	if err := s.store.ApplyQuizUpdate(ctx, update); err != nil {
		return domain.QuizDetail{}, err
	}
	s.invalidate(ctx, quizID)
	log.Info().Str("quizID", quizID).Bool("questionsReplaced", in.Questions != nil).Msg("quiz updated")
	return s.quizzes.GetQuiz(ctx, quizID)
}

// PatchQuiz changes selected metadata fields, including publish and archive flags.
func (s *QuizService) PatchQuiz(ctx context.Context, instructorID, quizID string, patch QuizPatch) (domain.Quiz, error) {
	quiz, err := s.ownedQuiz(ctx, instructorID, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	verr := validateStruct(patch)
	if patch.Title != nil {
		quiz.Title = strings.TrimSpace(*patch.Title)
		if len(quiz.Title) < 3 {
			verr.Add("title", "must be at least 3 characters")
		}
	}
	if patch.Description != nil {
		quiz.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Category != nil {
		quiz.Category = strings.TrimSpace(*patch.Category)
		if quiz.Category == "" {
			verr.Add("category", "is required")
		}
	}
	if patch.CoverImage != nil {
		quiz.CoverImage = strings.TrimSpace(*patch.CoverImage)
	}
	if patch.TimeLimit != nil {
		quiz.TimeLimit = *patch.TimeLimit
	}
	if patch.Archived != nil {
		quiz.Archived = *patch.Archived
	}
	if patch.Published != nil {
		quiz.Published = *patch.Published
	}
	if err := verr.OrNil(); err != nil {
		return domain.Quiz{}, err
	}
	if patch.Published != nil && *patch.Published {
		detail, err := s.quizzes.GetQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}
		if len(detail.Questions) == 0 {
			return domain.Quiz{}, domain.NewValidationError("published", "a published quiz needs at least one question")
		}
	}

	quiz.UpdatedAt = s.now()
	if err := s.store.UpdateQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, err
	}
	s.invalidate(ctx, quizID)
	return quiz, nil
}

// DeleteQuiz hard-deletes a quiz once the caller confirms its title.
func (s *QuizService) DeleteQuiz(ctx context.Context, instructorID, quizID, confirmation string) error {
	quiz, err := s.ownedQuiz(ctx, instructorID, quizID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(confirmation) != quiz.Title {
		return domain.ErrConfirmationMismatch
	}
	if err := s.store.DeleteQuiz(ctx, quizID); err != nil {
		return err
	}
	s.invalidate(ctx, quizID)
	log.Info().Str("quizID", quizID).Str("instructorID", instructorID).Msg("quiz deleted")
	return nil
}

// UpdateSettings upserts the settings row of a quiz.
func (s *QuizService) UpdateSettings(ctx context.Context, instructorID, quizID string, in SettingsInput) (domain.QuizSettings, error) {
	if _, err := s.ownedQuiz(ctx, instructorID, quizID); err != nil {
		return domain.QuizSettings{}, err
	}
	if err := validateStruct(in).OrNil(); err != nil {
		return domain.QuizSettings{}, err
	}
	settings := in.toSettings(quizID)
	if err := s.store.SaveSettings(ctx, settings); err != nil {
		return domain.QuizSettings{}, err
	}
	s.invalidate(ctx, quizID)
	return settings, nil
}

// GetQuiz returns the full quiz, answers included, to its owner.
func (s *QuizService) GetQuiz(ctx context.Context, instructorID, quizID string) (domain.QuizDetail, error) {
	detail, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.QuizDetail{}, err
	}
	if detail.Quiz.InstructorID != instructorID {
		return domain.QuizDetail{}, domain.ErrForbidden
	}
	return detail, nil
}

// ListInstructorQuizzes lists the instructor's quizzes with search, category and status filters.
func (s *QuizService) ListInstructorQuizzes(ctx context.Context, instructorID string, filter QuizListFilter) ([]domain.QuizSummary, error) {
	switch filter.Status {
	case "", "all", "published", "draft", "archived":
	default:
		return nil, domain.NewValidationError("status", "must be one of: all published draft archived")
	}
	all, err := s.store.ListQuizzes(ctx, domain.QuizFilter{InstructorID: instructorID})
	if err != nil {
		return nil, err
	}
	return filterQuizzes(all, filter), nil
}

func filterQuizzes(all []domain.QuizSummary, filter QuizListFilter) []domain.QuizSummary {
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	out := make([]domain.QuizSummary, 0, len(all))
	for _, q := range all {
		if search != "" &&
			!strings.Contains(strings.ToLower(q.Title), search) &&
			!strings.Contains(strings.ToLower(q.Description), search) {
			continue
		}
		if filter.Category != "" && filter.Category != "all" && q.Category != filter.Category {
			continue
		}
		switch filter.Status {
		case "published":
			if !q.Published || q.Archived {
				continue
			}
		case "draft":
			if q.Published || q.Archived {
				continue
			}
		case "archived":
			if !q.Archived {
				continue
			}
		}
		out = append(out, q)
	}
	return out
}

// AddQuestion appends a question to a quiz that has not been attempted yet.
func (s *QuizService) AddQuestion(ctx context.Context, instructorID, quizID string, in QuestionInput) (domain.Question, error) {
	if _, err := s.ownedQuiz(ctx, instructorID, quizID); err != nil {
		return domain.Question{}, err
	}
	in.normalize()
	verr := validateStruct(in)
	question := buildQuestion(quizID, 0, in, "", verr)
	if err := verr.OrNil(); err != nil {
		return domain.Question{}, err
	}
	if err := s.ensureNotTaken(ctx, quizID); err != nil {
		return domain.Question{}, err
	}

	saved, err := s.store.AddQuestion(ctx, question)
	if err != nil {
		return domain.Question{}, err
	}
	s.invalidate(ctx, quizID)
	return saved, nil
}

// DeleteQuestion removes a question after checking the caller owns its quiz.
func (s *QuizService) DeleteQuestion(ctx context.Context, instructorID, questionID string) error {
	question, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		return err
	}
	quiz, err := s.ownedQuiz(ctx, instructorID, question.QuizID)
	if err != nil {
		return err
	}
	if err := s.ensureNotTaken(ctx, question.QuizID); err != nil {
		return err
	}
	if quiz.Published {
		detail, err := s.quizzes.GetQuiz(ctx, question.QuizID)
		if err != nil {
			return err
		}
		if len(detail.Questions) <= 1 {
			return domain.NewValidationError("question", "a published quiz needs at least one question")
		}
	}
	if err := s.store.DeleteQuestion(ctx, questionID); err != nil {
		return err
	}
	s.invalidate(ctx, question.QuizID)
	return nil
}

// ReorderQuestions assigns new positions to questions of one quiz.
func (s *QuizService) ReorderQuestions(ctx context.Context, instructorID, quizID string, order []domain.QuestionPosition) error {
	if _, err := s.ownedQuiz(ctx, instructorID, quizID); err != nil {
		return err
	}
	if len(order) == 0 {
		return domain.NewValidationError("order", "is required")
	}
	seenIDs := make(map[string]struct{}, len(order))
	seenPos := make(map[int]struct{}, len(order))
	for i, p := range order {
		field := fmt.Sprintf("order[%d]", i)
		if p.Position < 1 {
			return domain.NewValidationError(field+".position", "must be at least 1")
		}
		if _, dup := seenPos[p.Position]; dup {
			return domain.NewValidationError(field+".position", "is duplicated")
		}
		if _, dup := seenIDs[p.QuestionID]; dup || p.QuestionID == "" {
			return domain.NewValidationError(field+".questionId", "is missing or duplicated")
		}
		seenIDs[p.QuestionID] = struct{}{}
		seenPos[p.Position] = struct{}{}
	}
	if err := s.store.ReorderQuestions(ctx, quizID, order); err != nil {
		return err
	}
	s.invalidate(ctx, quizID)
	return nil
}

// ListCategories returns the category catalogue.
func (s *QuizService) ListCategories(ctx context.Context) ([]string, error) {
	return s.store.ListCategories(ctx)
}

// AssignQuiz assigns a quiz to students, updating the due date of existing assignments.
func (s *QuizService) AssignQuiz(ctx context.Context, instructorID, quizID string, studentIDs []string, dueDate *time.Time) ([]domain.Assignment, error) {
	if _, err := s.ownedQuiz(ctx, instructorID, quizID); err != nil {
		return nil, err
	}
	now := s.now()
	seen := make(map[string]struct{}, len(studentIDs))
	assignments := make([]domain.Assignment, 0, len(studentIDs))
	for _, id := range studentIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		assignments = append(assignments, domain.Assignment{QuizID: quizID, StudentID: id, DueDate: dueDate, AssignedAt: now})
	}
	if len(assignments) == 0 {
		return nil, domain.NewValidationError("studentIds", "is required")
	}
	if err := s.store.AssignQuiz(ctx, assignments); err != nil {
		return nil, err
	}
	log.Info().Str("quizID", quizID).Int("students", len(assignments)).Msg("quiz assigned")
	return assignments, nil
}

// SetCoverImage uploads a cover image and stores its URL on the quiz.
func (s *QuizService) SetCoverImage(ctx context.Context, instructorID, quizID, filename, contentType string, size int64, body io.Reader) (domain.Quiz, error) {
	if s.covers == nil {
		return domain.Quiz{}, domain.ErrStorageUnavailable
	}
	quiz, err := s.ownedQuiz(ctx, instructorID, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if !strings.HasPrefix(contentType, "image/") {
		return domain.Quiz{}, domain.NewValidationError("cover", "must be an image")
	}
	if size <= 0 || size > maxCoverSize {
		return domain.Quiz{}, domain.NewValidationError("cover", "must be between 1 byte and 5MB")
	}

	key := "quizzes/" + quizID + "/" + uuid.NewString() + strings.ToLower(filepath.Ext(filename))
	url, err := s.covers.Put(ctx, key, contentType, size, body)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("upload cover: %w", err)
	}
	quiz.CoverImage = url
	quiz.UpdatedAt = s.now()
	if err := s.store.UpdateQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, err
	}
	s.invalidate(ctx, quizID)
	return quiz, nil
}

func (s *QuizService) ownedQuiz(ctx context.Context, instructorID, quizID string) (domain.Quiz, error) {
	quiz, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if quiz.InstructorID != instructorID {
		return domain.Quiz{}, domain.ErrForbidden
	}
	return quiz, nil
}

// invalidate drops the cached quiz after a committed write. A failure only
// leaves a stale copy until the cache TTL runs out.
func (s *QuizService) invalidate(ctx context.Context, quizID string) {
	if err := s.quizzes.Invalidate(ctx, quizID); err != nil {
		log.Warn().Err(err).Str("quizID", quizID).Msg("invalidate cached quiz")
	}
}

func (s *QuizService) hasAttempts(ctx context.Context, quizID string) (bool, error) {
	attempts, err := s.attempts.ListAttempts(ctx, domain.AttemptFilter{QuizID: quizID})
	if err != nil {
		return false, err
	}
	return len(attempts) > 0, nil
}

// ensureNotTaken freezes the question set once students have attempted the quiz.
func (s *QuizService) ensureNotTaken(ctx context.Context, quizID string) error {
	taken, err := s.hasAttempts(ctx, quizID)
	if err != nil {
		return err
	}
	if taken {
		return domain.ErrQuizHasAttempts
	}
	return nil
}

func buildQuestions(quizID string, inputs []QuestionInput, verr *domain.ValidationError) []domain.Question {
	questions := make([]domain.Question, 0, len(inputs))
	for i, in := range inputs {
		questions = append(questions, buildQuestion(quizID, i+1, in, fmt.Sprintf("questions[%d]", i), verr))
	}
	return questions
}
