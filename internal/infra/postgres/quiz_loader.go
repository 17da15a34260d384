package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-platform-service/internal/domain"
)

// QuizLoader reads a full quiz (settings, questions, options) from Postgres.
// Quizzes without a settings row get the defaults.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

const loadQuizSQL = `
SELECT q.id, q.instructor_id, q.title, q.description, q.category, q.cover_image, q.time_limit,
       q.published, q.archived, q.created_at, q.updated_at,
       s.quiz_id IS NOT NULL, COALESCE(s.shuffle_questions, FALSE), COALESCE(s.shuffle_options, FALSE),
       COALESCE(s.show_results, ''), COALESCE(s.allow_retakes, FALSE), COALESCE(s.max_retakes, 0),
       COALESCE(s.passing_score, 0), s.due_date
FROM quizzes q
LEFT JOIN quiz_settings s ON s.quiz_id = q.id
WHERE q.id = $1`

const loadQuestionsSQL = `
SELECT id, quiz_id, type, text, explanation, points, position, answer_text
FROM questions
WHERE quiz_id = $1
ORDER BY position, id`

const loadOptionsSQL = `
SELECT o.id, o.question_id, o.option_text, o.is_correct, o.match_text, o.position
FROM question_options o
JOIN questions qn ON qn.id = o.question_id
WHERE qn.quiz_id = $1
ORDER BY o.question_id, o.position`

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID string) (domain.QuizDetail, error) {
	var (
		detail      domain.QuizDetail
		hasSettings bool
		settings    domain.QuizSettings
		show        string
		dueDate     *time.Time
	)
	q := &detail.Quiz
	err := l.pool.QueryRow(ctx, loadQuizSQL, quizID).Scan(
		&q.ID, &q.InstructorID, &q.Title, &q.Description, &q.Category, &q.CoverImage, &q.TimeLimit,
		&q.Published, &q.Archived, &q.CreatedAt, &q.UpdatedAt,
		&hasSettings, &settings.ShuffleQuestions, &settings.ShuffleOptions,
		&show, &settings.AllowRetakes, &settings.MaxRetakes,
		&settings.PassingScore, &dueDate,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuizDetail{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.QuizDetail{}, fmt.Errorf("load quiz: %w", err)
	}
	if hasSettings {
		settings.QuizID = quizID
		settings.ShowResults = domain.ResultVisibility(show)
		settings.DueDate = dueDate
		detail.Settings = settings
	} else {
		detail.Settings = domain.DefaultSettings(quizID)
	}

	options, err := l.loadOptions(ctx, quizID)
	if err != nil {
		return domain.QuizDetail{}, err
	}
	rows, err := l.pool.Query(ctx, loadQuestionsSQL, quizID)
	if err != nil {
		return domain.QuizDetail{}, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()
	detail.Questions = make([]domain.Question, 0)
	for rows.Next() {
		var qn domain.Question
		var typ string
		if err := rows.Scan(&qn.ID, &qn.QuizID, &typ, &qn.Text, &qn.Explanation, &qn.Points, &qn.Position, &qn.Answer); err != nil {
			return domain.QuizDetail{}, fmt.Errorf("scan question: %w", err)
		}
		qn.Type = domain.QuestionType(typ)
		qn.Options = options[qn.ID]
		if qn.Options == nil {
			qn.Options = []domain.Option{}
		}
		detail.Questions = append(detail.Questions, qn)
	}
	if err := rows.Err(); err != nil {
		return domain.QuizDetail{}, fmt.Errorf("load questions: %w", err)
	}
	return detail, nil
}

func (l *QuizLoader) loadOptions(ctx context.Context, quizID string) (map[string][]domain.Option, error) {
	rows, err := l.pool.Query(ctx, loadOptionsSQL, quizID)
	if err != nil {
		return nil, fmt.Errorf("load options: %w", err)
	}
	defer rows.Close()
	out := make(map[string][]domain.Option)
	for rows.Next() {
		var o domain.Option
		if err := rows.Scan(&o.ID, &o.QuestionID, &o.Text, &o.Correct, &o.MatchText, &o.Position); err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		out[o.QuestionID] = append(out[o.QuestionID], o)
	}
	return out, rows.Err()
}
