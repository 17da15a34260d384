package domain

import "time"

// PlayableOption is an option without correctness data.
type PlayableOption struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Position int    `json:"position"`
}

// PlayableQuestion is what a student sees while answering.
type PlayableQuestion struct {
	ID           string           `json:"id"`
	Type         QuestionType     `json:"type"`
	Text         string           `json:"text"`
	Points       int              `json:"points"`
	Position     int              `json:"position"`
	Options      []PlayableOption `json:"options"`
	MatchChoices []string         `json:"matchChoices,omitempty"`
}

// PlayableQuiz is the attempt-taking view of a quiz.
type PlayableQuiz struct {
	AttemptID     string             `json:"attemptId"`
	AttemptNumber int                `json:"attemptNumber"`
	QuizID        string             `json:"quizId"`
	Title         string             `json:"title"`
	Description   string             `json:"description"`
	Category      string             `json:"category"`
	CoverImage    string             `json:"coverImage"`
	TimeLimit     int                `json:"timeLimit"`
	StartedAt     time.Time          `json:"startedAt"`
	Deadline      *time.Time         `json:"deadline,omitempty"`
	Questions     []PlayableQuestion `json:"questions"`
	Answered      []string           `json:"answered"`
}

// ResponseReview is one row of the results page.
type ResponseReview struct {
	QuestionID    string       `json:"questionId"`
	QuestionText  string       `json:"questionText"`
	QuestionType  QuestionType `json:"questionType"`
	Explanation   string       `json:"explanation,omitempty"`
	StudentAnswer string       `json:"studentAnswer"`
	CorrectAnswer string       `json:"correctAnswer"`
	Answered      bool         `json:"answered"`
	Correct       bool         `json:"correct"`
	PointsEarned  int          `json:"pointsEarned"`
	Points        int          `json:"points"`
}

// AttemptResult summarizes a completed attempt.
type AttemptResult struct {
	AttemptID       string           `json:"attemptId"`
	QuizID          string           `json:"quizId"`
	QuizTitle       string           `json:"quizTitle"`
	StudentID       string           `json:"studentId"`
	AttemptNumber   int              `json:"attemptNumber"`
	Score           int              `json:"score"`
	Passed          bool             `json:"passed"`
	PassingScore    int              `json:"passingScore"`
	CanRetake       bool             `json:"canRetake"`
	TimeSpent       int              `json:"timeSpent"`
	TimeLimit       int              `json:"timeLimit"`
	StartedAt       time.Time        `json:"startedAt"`
	CompletedAt     *time.Time       `json:"completedAt,omitempty"`
	CorrectCount    int              `json:"correctCount"`
	TotalQuestions  int              `json:"totalQuestions"`
	PointsEarned    int              `json:"pointsEarned"`
	PointsPossible  int              `json:"pointsPossible"`
	ReviewAvailable bool             `json:"reviewAvailable"`
	Responses       []ResponseReview `json:"responses"`
}

// ScoreBucket is one bar of the score distribution.
type ScoreBucket struct {
	Range string `json:"range"`
	Min   int    `json:"min"`
	Max   int    `json:"max"`
	Count int    `json:"count"`
}

// QuestionPerformance is the per-question correct rate.
type QuestionPerformance struct {
	QuestionID        string `json:"questionId"`
	Label             string `json:"label"`
	Text              string `json:"text"`
	Responses         int    `json:"responses"`
	Correct           int    `json:"correct"`
	CorrectPercentage int    `json:"correctPercentage"`
}

// QuizAnalytics aggregates attempts for one quiz.
type QuizAnalytics struct {
	QuizID              string                `json:"quizId"`
	TotalAttempts       int                   `json:"totalAttempts"`
	CompletedAttempts   int                   `json:"completedAttempts"`
	AverageScore        int                   `json:"averageScore"`
	CompletionRate      int                   `json:"completionRate"`
	PassRate            int                   `json:"passRate"`
	ScoreDistribution   []ScoreBucket         `json:"scoreDistribution"`
	QuestionPerformance []QuestionPerformance `json:"questionPerformance"`
}

// AttemptActivity is a recent completion shown on dashboards.
type AttemptActivity struct {
	AttemptID   string    `json:"attemptId"`
	QuizID      string    `json:"quizId"`
	QuizTitle   string    `json:"quizTitle"`
	StudentID   string    `json:"studentId"`
	Score       int       `json:"score"`
	CompletedAt time.Time `json:"completedAt"`
}

// InstructorOverview backs the instructor dashboard.
type InstructorOverview struct {
	TotalQuizzes     int               `json:"totalQuizzes"`
	PublishedQuizzes int               `json:"publishedQuizzes"`
	TotalAttempts    int               `json:"totalAttempts"`
	ActiveStudents   int               `json:"activeStudents"`
	AverageScore     int               `json:"averageScore"`
	RecentAttempts   []AttemptActivity `json:"recentAttempts"`
}

// CategoryMastery is the average score per quiz category.
type CategoryMastery struct {
	Category     string `json:"category"`
	Attempts     int    `json:"attempts"`
	AverageScore int    `json:"averageScore"`
}

// StudentOverview backs the student dashboard.
type StudentOverview struct {
	AssignedQuizzes   int               `json:"assignedQuizzes"`
	CompletedAttempts int               `json:"completedAttempts"`
	AverageScore      int               `json:"averageScore"`
	BestScore         int               `json:"bestScore"`
	Mastery           []CategoryMastery `json:"mastery"`
	RecentAttempts    []AttemptActivity `json:"recentAttempts"`
}

// RosterEntry is one student's live progress in a quiz.
type RosterEntry struct {
	StudentID     string    `json:"studentId"`
	AttemptID     string    `json:"attemptId"`
	AttemptNumber int       `json:"attemptNumber"`
	Answered      int       `json:"answered"`
	Completed     bool      `json:"completed"`
	Score         *int      `json:"score,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Roster is the live monitor snapshot of a quiz.
type Roster struct {
	QuizID    string        `json:"quizId"`
	Entries   []RosterEntry `json:"entries"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// AnswerReceipt acknowledges a recorded answer. Correctness is only set when the
// quiz reveals it while answering.
type AnswerReceipt struct {
	QuestionID   string `json:"questionId"`
	Answered     int    `json:"answered"`
	Correct      *bool  `json:"correct,omitempty"`
	PointsEarned *int   `json:"pointsEarned,omitempty"`
}
