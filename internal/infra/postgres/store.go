package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"quiz-platform-service/internal/domain"
)

// Store persists quizzes and attempts with bun. It implements app.QuizStore and app.AttemptStore.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateQuiz(ctx context.Context, detail domain.QuizDetail) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(newQuizRow(detail.Quiz)).Exec(ctx); err != nil {
			return fmt.Errorf("insert quiz: %w", err)
		}
		if _, err := tx.NewInsert().Model(newSettingsRow(detail.Settings)).Exec(ctx); err != nil {
			return fmt.Errorf("insert settings: %w", err)
		}
		return insertQuestions(ctx, tx, detail.Questions)
	})
}

func (s *Store) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var row quizRow
	err := s.db.NewSelect().Model(&row).Where("q.id = ?", quizID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("get quiz: %w", err)
	}
	return row.domain(), nil
}

func (s *Store) UpdateQuiz(ctx context.Context, quiz domain.Quiz) error {
	res, err := s.db.NewUpdate().Model(newQuizRow(quiz)).
		Column("title", "description", "category", "cover_image", "time_limit", "published", "archived", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update quiz: %w", err)
	}
	return expectRow(res, domain.ErrQuizNotFound)
}

func (s *Store) DeleteQuiz(ctx context.Context, quizID string) error {
	res, err := s.db.NewDelete().Model((*quizRow)(nil)).Where("id = ?", quizID).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	return expectRow(res, domain.ErrQuizNotFound)
}

func (s *Store) ListQuizzes(ctx context.Context, filter domain.QuizFilter) ([]domain.QuizSummary, error) {
	var rows []quizRow
	q := s.db.NewSelect().Model(&rows).OrderExpr("q.created_at DESC, q.id")
	if filter.InstructorID != "" {
		q = q.Where("q.instructor_id = ?", filter.InstructorID)
	}
	if len(filter.IDs) > 0 {
		q = q.Where("q.id IN (?)", bun.In(filter.IDs))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	out := make([]domain.QuizSummary, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	var counts []questionCount
	err := s.db.NewSelect().
		TableExpr("questions").
		ColumnExpr("quiz_id").
		ColumnExpr("count(*) AS n").
		Where("quiz_id IN (?)", bun.In(ids)).
		GroupExpr("quiz_id").
		Scan(ctx, &counts)
	if err != nil {
		return nil, fmt.Errorf("count questions: %w", err)
	}
	byQuiz := make(map[string]int, len(counts))
	for _, c := range counts {
		byQuiz[c.QuizID] = c.N
	}
	for _, r := range rows {
		out = append(out, domain.QuizSummary{Quiz: r.domain(), QuestionCount: byQuiz[r.ID]})
	}
	return out, nil
}

func (s *Store) SaveSettings(ctx context.Context, settings domain.QuizSettings) error {
	err := upsertSettings(ctx, s.db, settings)
	if isForeignKeyViolation(err) {
		return domain.ErrQuizNotFound
	}
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

func upsertSettings(ctx context.Context, db bun.IDB, settings domain.QuizSettings) error {
	_, err := db.NewInsert().Model(newSettingsRow(settings)).
		On("CONFLICT (quiz_id) DO UPDATE").
		Set("shuffle_questions = EXCLUDED.shuffle_questions").
		Set("shuffle_options = EXCLUDED.shuffle_options").
		Set("show_results = EXCLUDED.show_results").
		Set("allow_retakes = EXCLUDED.allow_retakes").
		Set("max_retakes = EXCLUDED.max_retakes").
		Set("passing_score = EXCLUDED.passing_score").
		Set("due_date = EXCLUDED.due_date").
		Exec(ctx)
	return err
}

// ApplyQuizUpdate holds the quiz row lock for the whole edit; CreateAttempt takes
// a share lock on the same row, so the attempts check cannot race a start.
func (s *Store) ApplyQuizUpdate(ctx context.Context, update domain.QuizUpdate) error {
	quizID := update.Quiz.ID
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var locked quizRow
		err := tx.NewSelect().Model(&locked).Where("q.id = ?", quizID).For("UPDATE").Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrQuizNotFound
		}
		if err != nil {
			return fmt.Errorf("lock quiz: %w", err)
		}
		if update.Questions != nil {
			taken, err := tx.NewSelect().Model((*attemptRow)(nil)).Where("quiz_id = ?", quizID).Exists(ctx)
			if err != nil {
				return fmt.Errorf("check attempts: %w", err)
			}
			if taken {
				return domain.ErrQuizHasAttempts
			}
		}

		_, err = tx.NewUpdate().Model(newQuizRow(update.Quiz)).
			Column("title", "description", "category", "cover_image", "time_limit", "published", "archived", "updated_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("update quiz: %w", err)
		}
		if update.Settings != nil {
			settings := *update.Settings
			settings.QuizID = quizID
			if err := upsertSettings(ctx, tx, settings); err != nil {
				return fmt.Errorf("save settings: %w", err)
			}
		}
		if update.Questions != nil {
			if _, err := tx.NewDelete().Model((*questionRow)(nil)).Where("quiz_id = ?", quizID).Exec(ctx); err != nil {
				return fmt.Errorf("delete questions: %w", err)
			}
			questions := make([]domain.Question, len(update.Questions))
			copy(questions, update.Questions)
			for i := range questions {
				questions[i].QuizID = quizID
			}
			return insertQuestions(ctx, tx, questions)
		}
		return nil
	})
}

func (s *Store) AddQuestion(ctx context.Context, question domain.Question) (domain.Question, error) {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if question.Position == 0 {
			var last int
			err := tx.NewSelect().Model((*questionRow)(nil)).
				ColumnExpr("COALESCE(MAX(position), 0)").
				Where("quiz_id = ?", question.QuizID).
				Scan(ctx, &last)
			if err != nil {
				return fmt.Errorf("next position: %w", err)
			}
			question.Position = last + 1
		}
		return insertQuestions(ctx, tx, []domain.Question{question})
	})
	if isForeignKeyViolation(err) {
		return domain.Question{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Question{}, err
	}
	return question, nil
}

func (s *Store) GetQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	var row questionRow
	err := s.db.NewSelect().Model(&row).Where("qn.id = ?", questionID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("get question: %w", err)
	}
	var opts []optionRow
	if err := s.db.NewSelect().Model(&opts).Where("o.question_id = ?", questionID).OrderExpr("o.position").Scan(ctx); err != nil {
		return domain.Question{}, fmt.Errorf("get options: %w", err)
	}
	return joinQuestion(row, opts), nil
}

func (s *Store) DeleteQuestion(ctx context.Context, questionID string) error {
	res, err := s.db.NewDelete().Model((*questionRow)(nil)).Where("id = ?", questionID).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	return expectRow(res, domain.ErrQuestionNotFound)
}

func (s *Store) ReorderQuestions(ctx context.Context, quizID string, order []domain.QuestionPosition) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, p := range order {
			res, err := tx.NewUpdate().Model((*questionRow)(nil)).
				Set("position = ?", p.Position).
				Where("id = ?", p.QuestionID).
				Where("quiz_id = ?", quizID).
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("reorder question: %w", err)
			}
			if err := expectRow(res, domain.ErrQuestionNotFound); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) ListCategories(ctx context.Context) ([]string, error) {
	var rows []categoryRow
	if err := s.db.NewSelect().Model(&rows).OrderExpr("c.name").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Name)
	}
	return out, nil
}

func (s *Store) AssignQuiz(ctx context.Context, assignments []domain.Assignment) error {
	if len(assignments) == 0 {
		return nil
	}
	rows := make([]assignmentRow, 0, len(assignments))
	for _, a := range assignments {
		rows = append(rows, assignmentRow{QuizID: a.QuizID, StudentID: a.StudentID, DueDate: a.DueDate, AssignedAt: a.AssignedAt})
	}
	_, err := s.db.NewInsert().Model(&rows).
		On("CONFLICT (quiz_id, student_id) DO UPDATE").
		Set("due_date = EXCLUDED.due_date").
		Exec(ctx)
	if isForeignKeyViolation(err) {
		return domain.ErrQuizNotFound
	}
	if err != nil {
		return fmt.Errorf("assign quiz: %w", err)
	}
	return nil
}

func (s *Store) ListAssignments(ctx context.Context, studentID string) ([]domain.Assignment, error) {
	var rows []assignmentRow
	if err := s.db.NewSelect().Model(&rows).Where("qa.student_id = ?", studentID).OrderExpr("qa.quiz_id").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	out := make([]domain.Assignment, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Assignment{QuizID: r.QuizID, StudentID: r.StudentID, DueDate: r.DueDate, AssignedAt: r.AssignedAt})
	}
	return out, nil
}

// CreateAttempt share-locks the quiz row and serializes starts per quiz and student
// with a transaction-scoped advisory lock.
func (s *Store) CreateAttempt(ctx context.Context, quizID, studentID string, startedAt time.Time) (domain.Attempt, error) {
	row := attemptRow{ID: uuid.NewString(), QuizID: quizID, StudentID: studentID, StartedAt: startedAt}
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var locked string
		err := tx.NewSelect().Model((*quizRow)(nil)).ColumnExpr("q.id").Where("q.id = ?", quizID).For("SHARE").Scan(ctx, &locked)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrQuizNotFound
		}
		if err != nil {
			return fmt.Errorf("lock quiz: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext(?))", quizID+":"+studentID); err != nil {
			return fmt.Errorf("attempt lock: %w", err)
		}
		open, err := tx.NewSelect().Model((*attemptRow)(nil)).
			Where("quiz_id = ?", quizID).
			Where("student_id = ?", studentID).
			Where("completed_at IS NULL").
			Exists(ctx)
		if err != nil {
			return fmt.Errorf("check open attempt: %w", err)
		}
		if open {
			return domain.ErrAttemptInProgress
		}
		var last int
		err = tx.NewSelect().Model((*attemptRow)(nil)).
			ColumnExpr("COALESCE(MAX(attempt_number), 0)").
			Where("quiz_id = ?", quizID).
			Where("student_id = ?", studentID).
			Scan(ctx, &last)
		if err != nil {
			return fmt.Errorf("next attempt number: %w", err)
		}
		row.AttemptNumber = last + 1
		_, err = tx.NewInsert().Model(&row).Exec(ctx)
		return err
	})
	switch {
	case errors.Is(err, domain.ErrAttemptInProgress), isUniqueViolation(err):
		return domain.Attempt{}, domain.ErrAttemptInProgress
	case errors.Is(err, domain.ErrQuizNotFound), isForeignKeyViolation(err):
		return domain.Attempt{}, domain.ErrQuizNotFound
	case err != nil:
		return domain.Attempt{}, fmt.Errorf("create attempt: %w", err)
	}
	return row.domain(), nil
}

func (s *Store) FindOpenAttempt(ctx context.Context, quizID, studentID string) (domain.Attempt, error) {
	var row attemptRow
	err := s.db.NewSelect().Model(&row).
		Where("a.quiz_id = ?", quizID).
		Where("a.student_id = ?", studentID).
		Where("a.completed_at IS NULL").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("find open attempt: %w", err)
	}
	return row.domain(), nil
}

func (s *Store) GetAttempt(ctx context.Context, attemptID string) (domain.Attempt, error) {
	var row attemptRow
	err := s.db.NewSelect().Model(&row).Where("a.id = ?", attemptID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("get attempt: %w", err)
	}
	return row.domain(), nil
}

func (s *Store) ListAttempts(ctx context.Context, filter domain.AttemptFilter) ([]domain.Attempt, error) {
	var rows []attemptRow
	q := s.db.NewSelect().Model(&rows).OrderExpr("a.started_at, a.attempt_number")
	if filter.QuizID != "" {
		q = q.Where("a.quiz_id = ?", filter.QuizID)
	}
	if filter.StudentID != "" {
		q = q.Where("a.student_id = ?", filter.StudentID)
	}
	if len(filter.QuizIDs) > 0 {
		q = q.Where("a.quiz_id IN (?)", bun.In(filter.QuizIDs))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	out := make([]domain.Attempt, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.domain())
	}
	return out, nil
}

// CompleteAttempt locks the attempt row, which SaveResponse also locks, scores the
// committed responses and closes the attempt in the same transaction.
func (s *Store) CompleteAttempt(ctx context.Context, attemptID string, completedAt time.Time, timeSpent int, score func([]domain.Response) int) (domain.Attempt, []domain.Response, error) {
	var (
		row       attemptRow
		responses []domain.Response
	)
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().Model(&row).Where("a.id = ?", attemptID).For("UPDATE").Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrAttemptNotFound
		}
		if err != nil {
			return fmt.Errorf("lock attempt: %w", err)
		}
		if row.CompletedAt != nil {
			return domain.ErrAttemptCompleted
		}

		var rows []responseRow
		if err := tx.NewSelect().Model(&rows).Where("r.attempt_id = ?", attemptID).OrderExpr("r.answered_at, r.question_id").Scan(ctx); err != nil {
			return fmt.Errorf("list responses: %w", err)
		}
		responses = make([]domain.Response, 0, len(rows))
		for _, r := range rows {
			responses = append(responses, r.domain())
		}

		return tx.NewUpdate().Model(&row).
			Set("completed_at = ?", completedAt).
			Set("score = ?", score(responses)).
			Set("time_spent = ?", timeSpent).
			Where("id = ?", attemptID).
			Returning("*").
			Scan(ctx)
	})
	switch {
	case errors.Is(err, domain.ErrAttemptNotFound), errors.Is(err, domain.ErrAttemptCompleted):
		return domain.Attempt{}, nil, err
	case err != nil:
		return domain.Attempt{}, nil, fmt.Errorf("complete attempt: %w", err)
	}
	return row.domain(), responses, nil
}

// SaveResponse upserts the answer for (attempt, question) while the attempt is open.
func (s *Store) SaveResponse(ctx context.Context, response domain.Response) (domain.Response, error) {
	row := newResponseRow(response)
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var attempt attemptRow
		err := tx.NewSelect().Model(&attempt).Where("a.id = ?", response.AttemptID).For("UPDATE").Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrAttemptNotFound
		}
		if err != nil {
			return err
		}
		if attempt.CompletedAt != nil {
			return domain.ErrAttemptCompleted
		}
		_, err = tx.NewInsert().Model(row).
			On("CONFLICT (attempt_id, question_id) DO UPDATE").
			Set("selected_option_id = EXCLUDED.selected_option_id").
			Set("text_response = EXCLUDED.text_response").
			Set("matches = EXCLUDED.matches").
			Set("is_correct = EXCLUDED.is_correct").
			Set("points_earned = EXCLUDED.points_earned").
			Set("answered_at = EXCLUDED.answered_at").
			Returning("*").
			Exec(ctx)
		return err
	})
	switch {
	case errors.Is(err, domain.ErrAttemptNotFound), errors.Is(err, domain.ErrAttemptCompleted):
		return domain.Response{}, err
	case isForeignKeyViolation(err):
		return domain.Response{}, domain.ErrQuestionNotFound
	case err != nil:
		return domain.Response{}, fmt.Errorf("save response: %w", err)
	}
	return row.domain(), nil
}

func (s *Store) ListResponses(ctx context.Context, attemptIDs ...string) ([]domain.Response, error) {
	out := make([]domain.Response, 0)
	if len(attemptIDs) == 0 {
		return out, nil
	}
	var rows []responseRow
	err := s.db.NewSelect().Model(&rows).
		Where("r.attempt_id IN (?)", bun.In(attemptIDs)).
		OrderExpr("r.answered_at, r.question_id").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	for _, r := range rows {
		out = append(out, r.domain())
	}
	return out, nil
}

func insertQuestions(ctx context.Context, tx bun.Tx, questions []domain.Question) error {
	if len(questions) == 0 {
		return nil
	}
	rows := make([]questionRow, 0, len(questions))
	var opts []optionRow
	for _, q := range questions {
		row, qopts := splitQuestion(q)
		rows = append(rows, *row)
		opts = append(opts, qopts...)
	}
	if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("insert questions: %w", err)
	}
	if len(opts) > 0 {
		if _, err := tx.NewInsert().Model(&opts).Exec(ctx); err != nil {
			return fmt.Errorf("insert options: %w", err)
		}
	}
	return nil
}

type questionCount struct {
	QuizID string `bun:"quiz_id"`
	N      int    `bun:"n"`
}

func expectRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func pgCode(err error) string {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C')
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return err != nil && pgCode(err) == "23505"
}

func isForeignKeyViolation(err error) bool {
	return err != nil && pgCode(err) == "23503"
}
