package domain

import "time"

// ResultVisibility controls when students see the per-question review.
type ResultVisibility string

const (
	ShowImmediately     ResultVisibility = "immediately"
	ShowAfterSubmission ResultVisibility = "after-submission"
	ShowAfterDueDate    ResultVisibility = "after-due-date"
)

// QuizSettings is the per-quiz policy bundle.
type QuizSettings struct {
	QuizID           string           `json:"quizId"`
	ShuffleQuestions bool             `json:"shuffleQuestions"`
	ShuffleOptions   bool             `json:"shuffleOptions"`
	ShowResults      ResultVisibility `json:"showResults"`
	AllowRetakes     bool             `json:"allowRetakes"`
	MaxRetakes       int              `json:"maxRetakes"`
	PassingScore     int              `json:"passingScore"`
	DueDate          *time.Time       `json:"dueDate,omitempty"`
}

// DefaultSettings is applied to new quizzes and to quizzes without a settings row.
func DefaultSettings(quizID string) QuizSettings {
	return QuizSettings{
		QuizID:           quizID,
		ShuffleQuestions: true,
		ShuffleOptions:   true,
		ShowResults:      ShowAfterSubmission,
		AllowRetakes:     true,
		MaxRetakes:       3,
		PassingScore:     70,
	}
}

// CanStartAttempt applies the retake policy given the number of completed attempts.
// MaxRetakes of zero means unlimited retakes when retakes are allowed.
func (s QuizSettings) CanStartAttempt(completed int) bool {
	if completed == 0 {
		return true
	}
	if !s.AllowRetakes {
		return false
	}
	if s.MaxRetakes <= 0 {
		return true
	}
	return completed <= s.MaxRetakes
}

// ResultsVisible reports whether students may see answers and explanations at now.
func (s QuizSettings) ResultsVisible(now time.Time) bool {
	if s.ShowResults != ShowAfterDueDate || s.DueDate == nil {
		return true
	}
	return !now.Before(*s.DueDate)
}

// RevealsCorrectness reports whether per-answer correctness is returned while answering.
func (s QuizSettings) RevealsCorrectness() bool {
	return s.ShowResults == ShowImmediately
}

// Passed reports whether score meets the passing threshold.
func (s QuizSettings) Passed(score int) bool {
	return score >= s.PassingScore
}
