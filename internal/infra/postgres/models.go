package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"quiz-platform-service/internal/domain"
)

type quizRow struct {
	bun.BaseModel `bun:"table:quizzes,alias:q"`

	ID           string    `bun:"id,pk"`
	InstructorID string    `bun:"instructor_id"`
	Title        string    `bun:"title"`
	Description  string    `bun:"description"`
	Category     string    `bun:"category"`
	CoverImage   string    `bun:"cover_image"`
	TimeLimit    int       `bun:"time_limit"`
	Published    bool      `bun:"published"`
	Archived     bool      `bun:"archived"`
	CreatedAt    time.Time `bun:"created_at"`
	UpdatedAt    time.Time `bun:"updated_at"`
}

func newQuizRow(q domain.Quiz) *quizRow {
	return &quizRow{
		ID:           q.ID,
		InstructorID: q.InstructorID,
		Title:        q.Title,
		Description:  q.Description,
		Category:     q.Category,
		CoverImage:   q.CoverImage,
		TimeLimit:    q.TimeLimit,
		Published:    q.Published,
		Archived:     q.Archived,
		CreatedAt:    q.CreatedAt,
		UpdatedAt:    q.UpdatedAt,
	}
}

func (r quizRow) domain() domain.Quiz {
	return domain.Quiz{
		ID:           r.ID,
		InstructorID: r.InstructorID,
		Title:        r.Title,
		Description:  r.Description,
		Category:     r.Category,
		CoverImage:   r.CoverImage,
		TimeLimit:    r.TimeLimit,
		Published:    r.Published,
		Archived:     r.Archived,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type settingsRow struct {
	bun.BaseModel `bun:"table:quiz_settings,alias:qs"`

	QuizID           string     `bun:"quiz_id,pk"`
	ShuffleQuestions bool       `bun:"shuffle_questions"`
	ShuffleOptions   bool       `bun:"shuffle_options"`
	ShowResults      string     `bun:"show_results"`
	AllowRetakes     bool       `bun:"allow_retakes"`
	MaxRetakes       int        `bun:"max_retakes"`
	PassingScore     int        `bun:"passing_score"`
	DueDate          *time.Time `bun:"due_date,nullzero"`
}

func newSettingsRow(s domain.QuizSettings) *settingsRow {
	return &settingsRow{
		QuizID:           s.QuizID,
		ShuffleQuestions: s.ShuffleQuestions,
		ShuffleOptions:   s.ShuffleOptions,
		ShowResults:      string(s.ShowResults),
		AllowRetakes:     s.AllowRetakes,
		MaxRetakes:       s.MaxRetakes,
		PassingScore:     s.PassingScore,
		DueDate:          s.DueDate,
	}
}

type questionRow struct {
	bun.BaseModel `bun:"table:questions,alias:qn"`

	ID          string `bun:"id,pk"`
	QuizID      string `bun:"quiz_id"`
	Type        string `bun:"type"`
	Text        string `bun:"text"`
	Explanation string `bun:"explanation"`
	Points      int    `bun:"points"`
	Position    int    `bun:"position"`
	AnswerText  string `bun:"answer_text"`
}

type optionRow struct {
	bun.BaseModel `bun:"table:question_options,alias:o"`

	ID         string `bun:"id,pk"`
	QuestionID string `bun:"question_id"`
	Text       string `bun:"option_text"`
	IsCorrect  bool   `bun:"is_correct"`
	MatchText  string `bun:"match_text"`
	Position   int    `bun:"position"`
}

func splitQuestion(q domain.Question) (*questionRow, []optionRow) {
	row := &questionRow{
		ID:          q.ID,
		QuizID:      q.QuizID,
		Type:        string(q.Type),
		Text:        q.Text,
		Explanation: q.Explanation,
		Points:      q.PointValue(),
		Position:    q.Position,
		AnswerText:  q.Answer,
	}
	opts := make([]optionRow, 0, len(q.Options))
	for _, o := range q.Options {
		opts = append(opts, optionRow{
			ID:         o.ID,
			QuestionID: q.ID,
			Text:       o.Text,
			IsCorrect:  o.Correct,
			MatchText:  o.MatchText,
			Position:   o.Position,
		})
	}
	return row, opts
}

func joinQuestion(row questionRow, opts []optionRow) domain.Question {
	q := domain.Question{
		ID:          row.ID,
		QuizID:      row.QuizID,
		Type:        domain.QuestionType(row.Type),
		Text:        row.Text,
		Explanation: row.Explanation,
		Points:      row.Points,
		Position:    row.Position,
		Answer:      row.AnswerText,
		Options:     make([]domain.Option, 0, len(opts)),
	}
	for _, o := range opts {
		q.Options = append(q.Options, domain.Option{
			ID:         o.ID,
			QuestionID: o.QuestionID,
			Text:       o.Text,
			Correct:    o.IsCorrect,
			MatchText:  o.MatchText,
			Position:   o.Position,
		})
	}
	return q
}

type attemptRow struct {
	bun.BaseModel `bun:"table:quiz_attempts,alias:a"`

	ID            string     `bun:"id,pk"`
	QuizID        string     `bun:"quiz_id"`
	StudentID     string     `bun:"student_id"`
	StartedAt     time.Time  `bun:"started_at"`
	CompletedAt   *time.Time `bun:"completed_at,nullzero"`
	Score         *int       `bun:"score"`
	TimeSpent     int        `bun:"time_spent"`
	AttemptNumber int        `bun:"attempt_number"`
}

func (r attemptRow) domain() domain.Attempt {
	return domain.Attempt{
		ID:            r.ID,
		QuizID:        r.QuizID,
		StudentID:     r.StudentID,
		StartedAt:     r.StartedAt,
		CompletedAt:   r.CompletedAt,
		Score:         r.Score,
		TimeSpent:     r.TimeSpent,
		AttemptNumber: r.AttemptNumber,
	}
}

type responseRow struct {
	bun.BaseModel `bun:"table:quiz_responses,alias:r"`

	ID               string            `bun:"id,pk"`
	AttemptID        string            `bun:"attempt_id"`
	QuestionID       string            `bun:"question_id"`
	SelectedOptionID string            `bun:"selected_option_id,nullzero"`
	TextResponse     string            `bun:"text_response,nullzero"`
	Matches          map[string]string `bun:"matches,type:jsonb,nullzero"`
	IsCorrect        bool              `bun:"is_correct"`
	PointsEarned     int               `bun:"points_earned"`
	AnsweredAt       time.Time         `bun:"answered_at"`
}

func newResponseRow(r domain.Response) *responseRow {
	return &responseRow{
		ID:               r.ID,
		AttemptID:        r.AttemptID,
		QuestionID:       r.QuestionID,
		SelectedOptionID: r.SelectedOptionID,
		TextResponse:     r.TextResponse,
		Matches:          r.Matches,
		IsCorrect:        r.Correct,
		PointsEarned:     r.PointsEarned,
		AnsweredAt:       r.AnsweredAt,
	}
}

func (r responseRow) domain() domain.Response {
	return domain.Response{
		ID:               r.ID,
		AttemptID:        r.AttemptID,
		QuestionID:       r.QuestionID,
		SelectedOptionID: r.SelectedOptionID,
		TextResponse:     r.TextResponse,
		Matches:          r.Matches,
		Correct:          r.IsCorrect,
		PointsEarned:     r.PointsEarned,
		AnsweredAt:       r.AnsweredAt,
	}
}

type assignmentRow struct {
	bun.BaseModel `bun:"table:quiz_assignments,alias:qa"`

	QuizID     string     `bun:"quiz_id,pk"`
	StudentID  string     `bun:"student_id,pk"`
	DueDate    *time.Time `bun:"due_date,nullzero"`
	AssignedAt time.Time  `bun:"assigned_at"`
}

type categoryRow struct {
	bun.BaseModel `bun:"table:quiz_categories,alias:c"`

	Name string `bun:"name,pk"`
}
