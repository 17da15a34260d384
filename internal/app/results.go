package app

import (
	"strings"

	"quiz-platform-service/internal/domain"
)

// buildResult assembles the results page. Without review the per-question rows are omitted.
func buildResult(attempt domain.Attempt, detail domain.QuizDetail, responses []domain.Response, canRetake, review bool) domain.AttemptResult {
	byQuestion := make(map[string]domain.Response, len(responses))
	for _, r := range responses {
		byQuestion[r.QuestionID] = r
	}

	score := 0
	if attempt.Score != nil {
		score = *attempt.Score
	}
	result := domain.AttemptResult{
		AttemptID:       attempt.ID,
		QuizID:          detail.Quiz.ID,
		QuizTitle:       detail.Quiz.Title,
		StudentID:       attempt.StudentID,
		AttemptNumber:   attempt.AttemptNumber,
		Score:           score,
		Passed:          detail.Settings.Passed(score),
		PassingScore:    detail.Settings.PassingScore,
		CanRetake:       canRetake,
		TimeSpent:       attempt.TimeSpent,
		TimeLimit:       detail.Quiz.TimeLimit,
		StartedAt:       attempt.StartedAt,
		CompletedAt:     attempt.CompletedAt,
		TotalQuestions:  len(detail.Questions),
		PointsPossible:  detail.PossiblePoints(),
		ReviewAvailable: review,
		Responses:       []domain.ResponseReview{},
	}

	for _, q := range detail.Questions {
		r, answered := byQuestion[q.ID]
		if answered {
			result.PointsEarned += r.PointsEarned
			if r.Correct {
				result.CorrectCount++
			}
		}
		if !review {
			continue
		}
		row := domain.ResponseReview{
			QuestionID:    q.ID,
			QuestionText:  q.Text,
			QuestionType:  q.Type,
			Explanation:   q.Explanation,
			CorrectAnswer: correctAnswerText(q),
			Answered:      answered,
			Points:        q.PointValue(),
		}
		if answered {
			row.StudentAnswer = studentAnswerText(q, r)
			row.Correct = r.Correct
			row.PointsEarned = r.PointsEarned
		}
		result.Responses = append(result.Responses, row)
	}
	return result
}

func studentAnswerText(q domain.Question, r domain.Response) string {
	switch {
	case q.Type.UsesOptions():
		if opt, ok := findOption(q, r.SelectedOptionID); ok {
			return opt.Text
		}
		return ""
	case q.Type.UsesText():
		return r.TextResponse
	default:
		pairs := make([]string, 0, len(q.Options))
		for _, opt := range q.Options {
			if m, ok := r.Matches[opt.ID]; ok {
				pairs = append(pairs, opt.Text+" → "+m)
			}
		}
		return strings.Join(pairs, "; ")
	}
}

func correctAnswerText(q domain.Question) string {
	switch {
	case q.Type.UsesOptions():
		correct := make([]string, 0, 1)
		for _, opt := range q.Options {
			if opt.Correct {
				correct = append(correct, opt.Text)
			}
		}
		return strings.Join(correct, ", ")
	case q.Type.UsesText():
		return q.Answer
	default:
		pairs := make([]string, 0, len(q.Options))
		for _, opt := range q.Options {
			pairs = append(pairs, opt.Text+" → "+opt.MatchText)
		}
		return strings.Join(pairs, "; ")
	}
}
