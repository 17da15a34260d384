package app

import (
	"math"
	"strings"
	"time"

	"quiz-platform-service/internal/domain"
)

// gradeResponse validates the answer against the question and returns (correct, points).
func gradeResponse(question domain.Question, submission domain.AnswerSubmission) (bool, int, error) {
	var correct bool
	switch {
	case question.Type.UsesOptions():
		if submission.OptionID == "" {
			return false, 0, domain.NewValidationError("optionId", "is required")
		}
		selected, ok := findOption(question, submission.OptionID)
		if !ok {
			return false, 0, domain.ErrOptionNotFound
		}
		correct = selected.Correct
	case question.Type.UsesText():
		correct = submission.Text != "" && normalizeAnswer(submission.Text) == normalizeAnswer(question.Answer)
	case question.Type == domain.QuestionMatching:
		for optionID := range submission.Matches {
			if _, ok := findOption(question, optionID); !ok {
				return false, 0, domain.ErrOptionNotFound
			}
		}
		correct = len(question.Options) > 0
		for _, opt := range question.Options {
			if normalizeAnswer(submission.Matches[opt.ID]) != normalizeAnswer(opt.MatchText) {
				correct = false
				break
			}
		}
	default:
		return false, 0, domain.NewValidationError("questionType", "unsupported question type")
	}

	if correct {
		return true, question.PointValue(), nil
	}
	return false, 0, nil
}

func findOption(question domain.Question, optionID string) (domain.Option, bool) {
	for _, opt := range question.Options {
		if opt.ID == optionID {
			return opt, true
		}
	}
	return domain.Option{}, false
}

func normalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ScorePercent returns round(100 * earned / possible) clamped to [0, 100].
// A quiz worth nothing scores 0.
func ScorePercent(earned, possible int) int {
	if possible <= 0 || earned <= 0 {
		return 0
	}
	score := int(math.Round(100 * float64(earned) / float64(possible)))
	if score > 100 {
		return 100
	}
	return score
}

// timeSpent is the attempt duration in whole seconds, capped at the time limit when one exists.
func timeSpent(start, end time.Time, limitMinutes int) int {
	d := end.Sub(start)
	if d < 0 {
		d = 0
	}
	if limitMinutes > 0 {
		if limit := time.Duration(limitMinutes) * time.Minute; d > limit {
			d = limit
		}
	}
	return int(d / time.Second)
}

// averageRounded is the rounded mean, 0 for an empty slice.
func averageRounded(values []int) int {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return int(math.Round(float64(sum) / float64(len(values))))
}

// percentOf returns round(100 * part / whole), 0 when whole is 0.
func percentOf(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(part) / float64(whole)))
}
