package domain

import "time"

// Role is the application role carried by an authenticated identity.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleInstructor
}

// QuestionType enumerates the supported question formats.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple-choice"
	QuestionTrueFalse      QuestionType = "true-false"
	QuestionShortAnswer    QuestionType = "short-answer"
	QuestionFillBlank      QuestionType = "fill-blank"
	QuestionMatching       QuestionType = "matching"
)

// UsesOptions reports whether answers reference an option id.
func (t QuestionType) UsesOptions() bool {
	return t == QuestionMultipleChoice || t == QuestionTrueFalse
}

// UsesText reports whether answers are free text.
func (t QuestionType) UsesText() bool {
	return t == QuestionShortAnswer || t == QuestionFillBlank
}

// Quiz is the metadata of an authored quiz.
type Quiz struct {
	ID           string    `json:"id"`
	InstructorID string    `json:"instructorId"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Category     string    `json:"category"`
	CoverImage   string    `json:"coverImage"`
	TimeLimit    int       `json:"timeLimit"` // minutes, 0 = unlimited
	Published    bool      `json:"published"`
	Archived     bool      `json:"archived"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Open reports whether students may start attempts.
func (q Quiz) Open() bool {
	return q.Published && !q.Archived
}

// Option represents a possible answer for a question.
type Option struct {
	ID         string `json:"id"`
	QuestionID string `json:"questionId"`
	Text       string `json:"text"`
	Correct    bool   `json:"correct"`
	MatchText  string `json:"matchText,omitempty"`
	Position   int    `json:"position"`
}

// Question belongs to a quiz. Answer holds the accepted text for short-answer and fill-blank.
type Question struct {
	ID          string       `json:"id"`
	QuizID      string       `json:"quizId"`
	Type        QuestionType `json:"type"`
	Text        string       `json:"text"`
	Explanation string       `json:"explanation,omitempty"`
	Points      int          `json:"points"` // defaults to 1 if zero
	Position    int          `json:"position"`
	Answer      string       `json:"answer,omitempty"`
	Options     []Option     `json:"options"`
}

// PointValue returns the points awarded for a correct answer.
func (q Question) PointValue() int {
	if q.Points <= 0 {
		return 1
	}
	return q.Points
}

// QuestionPosition is one entry of a reorder request.
type QuestionPosition struct {
	QuestionID string `json:"questionId"`
	Position   int    `json:"position"`
}

// QuizDetail is a quiz with its settings and ordered questions.
type QuizDetail struct {
	Quiz      Quiz         `json:"quiz"`
	Settings  QuizSettings `json:"settings"`
	Questions []Question   `json:"questions"`
}

// Question looks up a question by id.
func (d QuizDetail) Question(id string) (Question, bool) {
	for _, q := range d.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// PossiblePoints sums the point value of every question.
func (d QuizDetail) PossiblePoints() int {
	total := 0
	for _, q := range d.Questions {
		total += q.PointValue()
	}
	return total
}

// QuizSummary is a list row for instructor dashboards.
type QuizSummary struct {
	Quiz
	QuestionCount int `json:"questionCount"`
}

// QuizFilter narrows store listings.
type QuizFilter struct {
	InstructorID string
	IDs          []string
}

// QuizUpdate is one authoring edit. Nil Settings keeps the stored settings and
// a nil Questions slice keeps the stored question set.
type QuizUpdate struct {
	Quiz      Quiz
	Settings  *QuizSettings
	Questions []Question
}

// Attempt is one student's run through a quiz.
type Attempt struct {
	ID            string     `json:"id"`
	QuizID        string     `json:"quizId"`
	StudentID     string     `json:"studentId"`
	StartedAt     time.Time  `json:"startedAt"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	Score         *int       `json:"score,omitempty"`
	TimeSpent     int        `json:"timeSpent"` // seconds
	AttemptNumber int        `json:"attemptNumber"`
}

// InProgress reports whether the attempt has no completion timestamp.
func (a Attempt) InProgress() bool {
	return a.CompletedAt == nil
}

// Deadline returns when a timed attempt must be submitted.
func (a Attempt) Deadline(timeLimitMinutes int) (time.Time, bool) {
	if timeLimitMinutes <= 0 {
		return time.Time{}, false
	}
	return a.StartedAt.Add(time.Duration(timeLimitMinutes) * time.Minute), true
}

// AttemptFilter narrows attempt listings; empty fields are ignored.
type AttemptFilter struct {
	QuizID    string
	StudentID string
	QuizIDs   []string
}

// AnswerSubmission is a student's answer to one question.
type AnswerSubmission struct {
	QuestionID string            `json:"questionId"`
	OptionID   string            `json:"optionId,omitempty"`
	Text       string            `json:"text,omitempty"`
	Matches    map[string]string `json:"matches,omitempty"`
}

// Response is a graded answer stored against an attempt.
type Response struct {
	ID               string            `json:"id"`
	AttemptID        string            `json:"attemptId"`
	QuestionID       string            `json:"questionId"`
	SelectedOptionID string            `json:"selectedOptionId,omitempty"`
	TextResponse     string            `json:"textResponse,omitempty"`
	Matches          map[string]string `json:"matches,omitempty"`
	Correct          bool              `json:"correct"`
	PointsEarned     int               `json:"pointsEarned"`
	AnsweredAt       time.Time         `json:"answeredAt"`
}

// Assignment links a student to a quiz.
type Assignment struct {
	QuizID     string     `json:"quizId"`
	StudentID  string     `json:"studentId"`
	DueDate    *time.Time `json:"dueDate,omitempty"`
	AssignedAt time.Time  `json:"assignedAt"`
}

// StudentQuiz is an assigned quiz with the student's attempts.
type StudentQuiz struct {
	Quiz     Quiz       `json:"quiz"`
	DueDate  *time.Time `json:"dueDate,omitempty"`
	Attempts []Attempt  `json:"attempts"`
}
