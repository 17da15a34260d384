package http

import (
	"time"

	"github.com/jinzhu/copier"

	"quiz-platform-service/internal/domain"
)

// AttemptResponse is the client view of an attempt.
type AttemptResponse struct {
	ID            string     `json:"id"`
	QuizID        string     `json:"quizId"`
	StudentID     string     `json:"studentId"`
	AttemptNumber int        `json:"attemptNumber"`
	StartedAt     time.Time  `json:"startedAt"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	Score         *int       `json:"score,omitempty"`
	TimeSpent     int        `json:"timeSpent"`
	Status        string     `json:"status"`
	Resumed       bool       `json:"resumed,omitempty"`
}

func newAttemptResponse(a domain.Attempt) AttemptResponse {
	var resp AttemptResponse
	_ = copier.Copy(&resp, &a)
	resp.Status = "in-progress"
	if !a.InProgress() {
		resp.Status = "completed"
	}
	return resp
}

func newAttemptResponses(attempts []domain.Attempt) []AttemptResponse {
	out := make([]AttemptResponse, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, newAttemptResponse(a))
	}
	return out
}

// StudentQuizResponse is one row of the student's quiz list.
type StudentQuizResponse struct {
	Quiz     domain.Quiz       `json:"quiz"`
	DueDate  *time.Time        `json:"dueDate,omitempty"`
	Attempts []AttemptResponse `json:"attempts"`
}

func newStudentQuizResponses(rows []domain.StudentQuiz) []StudentQuizResponse {
	out := make([]StudentQuizResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, StudentQuizResponse{
			Quiz:     row.Quiz,
			DueDate:  row.DueDate,
			Attempts: newAttemptResponses(row.Attempts),
		})
	}
	return out
}

type deleteQuizRequest struct {
	Confirmation string `json:"confirmation"`
}

type reorderRequest struct {
	Order []domain.QuestionPosition `json:"order" binding:"required"`
}

type assignRequest struct {
	StudentIDs []string   `json:"studentIds" binding:"required"`
	DueDate    *time.Time `json:"dueDate"`
}
