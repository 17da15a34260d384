package app

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"quiz-platform-service/internal/domain"
)

// QuizInput is the payload of the create/edit quiz wizard.
type QuizInput struct {
	Title       string          `json:"title" validate:"required,min=3,max=200"`
	Description string          `json:"description" validate:"max=2000"`
	Category    string          `json:"category" validate:"required,max=100"`
	CoverImage  string          `json:"coverImage" validate:"omitempty,url"`
	TimeLimit   int             `json:"timeLimit" validate:"min=0,max=600"`
	Published   bool            `json:"published"`
	Settings    *SettingsInput  `json:"settings"`
	Questions   []QuestionInput `json:"questions" validate:"dive"`
}

// QuizPatch updates selected metadata fields.
type QuizPatch struct {
	Title       *string `json:"title" validate:"omitempty,min=3,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Category    *string `json:"category" validate:"omitempty,min=1,max=100"`
	CoverImage  *string `json:"coverImage" validate:"omitempty,url"`
	TimeLimit   *int    `json:"timeLimit" validate:"omitempty,min=0,max=600"`
	Published   *bool   `json:"published"`
	Archived    *bool   `json:"archived"`
}

// SettingsInput is the settings form.
type SettingsInput struct {
	ShuffleQuestions bool       `json:"shuffleQuestions"`
	ShuffleOptions   bool       `json:"shuffleOptions"`
	ShowResults      string     `json:"showResults" validate:"omitempty,oneof=immediately after-submission after-due-date"`
	AllowRetakes     bool       `json:"allowRetakes"`
	MaxRetakes       int        `json:"maxRetakes" validate:"min=0,max=10"`
	PassingScore     int        `json:"passingScore" validate:"min=0,max=100"`
	DueDate          *time.Time `json:"dueDate"`
}

// QuestionInput is one question of the wizard.
type QuestionInput struct {
	Type        string        `json:"type" validate:"required,oneof=multiple-choice true-false short-answer fill-blank matching"`
	Text        string        `json:"text" validate:"required,min=3"`
	Explanation string        `json:"explanation"`
	Points      int           `json:"points" validate:"min=0,max=100"`
	Answer      string        `json:"answer"`
	Options     []OptionInput `json:"options" validate:"dive"`
}

// OptionInput is one answer choice.
type OptionInput struct {
	Text      string `json:"text" validate:"required"`
	Correct   bool   `json:"correct"`
	MatchText string `json:"matchText"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct runs tag validation and converts failures into a domain.ValidationError.
func validateStruct(v any) *domain.ValidationError {
	verr := &domain.ValidationError{}
	err := validate.Struct(v)
	if err == nil {
		return verr
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		verr.Add("_", err.Error())
		return verr
	}
	for _, fe := range fieldErrs {
		verr.Add(fieldPath(fe.Namespace()), fieldMessage(fe))
	}
	return verr
}

func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "is invalid"
	}
}

func (in *QuizInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	in.CoverImage = strings.TrimSpace(in.CoverImage)
	for i := range in.Questions {
		in.Questions[i].normalize()
	}
}

func (in *QuestionInput) normalize() {
	in.Type = strings.TrimSpace(in.Type)
	in.Text = strings.TrimSpace(in.Text)
	in.Explanation = strings.TrimSpace(in.Explanation)
	in.Answer = strings.TrimSpace(in.Answer)
	for i := range in.Options {
		in.Options[i].Text = strings.TrimSpace(in.Options[i].Text)
		in.Options[i].MatchText = strings.TrimSpace(in.Options[i].MatchText)
	}
}

func (in SettingsInput) toSettings(quizID string) domain.QuizSettings {
	show := domain.ResultVisibility(in.ShowResults)
	if show == "" {
		show = domain.ShowAfterSubmission
	}
	return domain.QuizSettings{
		QuizID:           quizID,
		ShuffleQuestions: in.ShuffleQuestions,
		ShuffleOptions:   in.ShuffleOptions,
		ShowResults:      show,
		AllowRetakes:     in.AllowRetakes,
		MaxRetakes:       in.MaxRetakes,
		PassingScore:     in.PassingScore,
		DueDate:          in.DueDate,
	}
}

// buildQuestion applies the per-type rules and assigns ids. Problems are recorded under prefix.
func buildQuestion(quizID string, position int, in QuestionInput, prefix string, verr *domain.ValidationError) domain.Question {
	field := func(name string) string {
		if prefix == "" {
			return name
		}
		return prefix + "." + name
	}

	q := domain.Question{
		ID:          uuid.NewString(),
		QuizID:      quizID,
		Type:        domain.QuestionType(in.Type),
		Text:        in.Text,
		Explanation: in.Explanation,
		Points:      in.Points,
		Position:    position,
	}
	if q.Points <= 0 {
		q.Points = 1
	}

	switch q.Type {
	case domain.QuestionMultipleChoice:
		if len(in.Options) < 2 {
			verr.Add(field("options"), "needs at least 2 options")
			break
		}
		correct := 0
		for _, opt := range in.Options {
			if opt.Correct {
				correct++
			}
		}
		if correct == 0 {
			verr.Add(field("options"), "needs at least one correct option")
		}
		q.Options = buildAnswerOptions(q.ID, in.Options, false)
	case domain.QuestionTrueFalse:
		q.Options = trueFalseOptions(q.ID, in, field, verr)
	case domain.QuestionShortAnswer, domain.QuestionFillBlank:
		if in.Answer == "" {
			verr.Add(field("answer"), "is required")
		}
		q.Answer = in.Answer
	case domain.QuestionMatching:
		if len(in.Options) < 2 {
			verr.Add(field("options"), "needs at least 2 pairs")
			break
		}
		for _, opt := range in.Options {
			if opt.MatchText == "" {
				verr.Add(field("options"), "every pair needs a match text")
				break
			}
		}
		q.Options = buildAnswerOptions(q.ID, in.Options, true)
	}
	return q
}

func buildAnswerOptions(questionID string, in []OptionInput, matching bool) []domain.Option {
	opts := make([]domain.Option, 0, len(in))
	for i, o := range in {
		opt := domain.Option{
			ID:         uuid.NewString(),
			QuestionID: questionID,
			Text:       o.Text,
			Correct:    o.Correct,
			Position:   i + 1,
		}
		if matching {
			opt.Correct = false
			opt.MatchText = o.MatchText
		}
		opts = append(opts, opt)
	}
	return opts
}

// trueFalseOptions yields exactly two options, "True" then "False".
func trueFalseOptions(questionID string, in QuestionInput, field func(string) string, verr *domain.ValidationError) []domain.Option {
	var answerTrue bool
	switch {
	case len(in.Options) == 0:
		switch strings.ToLower(in.Answer) {
		case "true":
			answerTrue = true
		case "false":
			answerTrue = false
		default:
			verr.Add(field("answer"), "must be true or false")
			return nil
		}
	case len(in.Options) == 2:
		correct := 0
		for _, o := range in.Options {
			t := strings.ToLower(o.Text)
			if t != "true" && t != "false" {
				verr.Add(field("options"), "true/false options must be True and False")
				return nil
			}
			if o.Correct {
				correct++
				answerTrue = t == "true"
			}
		}
		if correct != 1 || strings.EqualFold(in.Options[0].Text, in.Options[1].Text) {
			verr.Add(field("options"), "exactly one of True/False must be correct")
			return nil
		}
	default:
		verr.Add(field("options"), "true/false questions have exactly 2 options")
		return nil
	}
	return []domain.Option{
		{ID: uuid.NewString(), QuestionID: questionID, Text: "True", Correct: answerTrue, Position: 1},
		{ID: uuid.NewString(), QuestionID: questionID, Text: "False", Correct: !answerTrue, Position: 2},
	}
}
