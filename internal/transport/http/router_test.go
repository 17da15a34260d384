package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"testing"

	"quiz-platform-service/internal/app"
	"quiz-platform-service/internal/domain"
)

func TestHealthAndAuthentication(t *testing.T) {
	f := newAPIFixture(t)

	var health map[string]string
	if status := f.do(http.MethodGet, "/healthz", "", nil, &health); status != http.StatusOK || health["status"] != "ok" {
		t.Fatalf("healthz: status %d body %v", status, health)
	}

	var errBody ErrorResponse
	if status := f.do(http.MethodGet, "/api/v1/categories", "", nil, &errBody); status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", status)
	}
	if errBody.Error != "unauthorized" {
		t.Fatalf("unexpected error body %+v", errBody)
	}
	if status := f.do(http.MethodGet, "/api/v1/categories", "garbage", nil, nil); status != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", status)
	}

	var categories []string
	if status := f.do(http.MethodGet, "/api/v1/categories", f.student, nil, &categories); status != http.StatusOK {
		t.Fatalf("categories: status %d", status)
	}
	if len(categories) == 0 {
		t.Fatalf("expected seeded categories")
	}

	if status := f.do(http.MethodGet, "/api/v1/instructor/quizzes", f.student, nil, &errBody); status != http.StatusForbidden {
		t.Fatalf("expected 403 for student on instructor route, got %d", status)
	}
	if status := f.do(http.MethodGet, "/api/v1/student/quizzes", f.instructor, nil, nil); status != http.StatusForbidden {
		t.Fatalf("expected 403 for instructor on student route, got %d", status)
	}
}

func TestInstructorQuizLifecycle(t *testing.T) {
	f := newAPIFixture(t)

	var verr ErrorResponse
	status := f.do(http.MethodPost, "/api/v1/instructor/quizzes", f.instructor, app.QuizInput{Title: "x"}, &verr)
	if status != http.StatusBadRequest || verr.Error != "validation_error" {
		t.Fatalf("expected validation error, got %d %+v", status, verr)
	}
	if verr.Fields["title"] == "" || verr.Fields["category"] == "" {
		t.Fatalf("expected title and category field errors, got %v", verr.Fields)
	}

	detail := f.createQuiz(quizInput(0))
	quizID := detail.Quiz.ID

	var list []domain.QuizSummary
	if status := f.do(http.MethodGet, "/api/v1/instructor/quizzes?status=published", f.instructor, nil, &list); status != http.StatusOK {
		t.Fatalf("list quizzes: status %d", status)
	}
	if len(list) != 1 || list[0].QuestionCount != 2 {
		t.Fatalf("unexpected list %+v", list)
	}

	var settings domain.QuizSettings
	status = f.do(http.MethodPut, "/api/v1/instructor/quizzes/"+quizID+"/settings", f.instructor, app.SettingsInput{ShowResults: "after-submission", PassingScore: 80}, &settings)
	if status != http.StatusOK || settings.PassingScore != 80 {
		t.Fatalf("update settings: status %d settings %+v", status, settings)
	}

	var question domain.Question
	status = f.do(http.MethodPost, "/api/v1/instructor/quizzes/"+quizID+"/questions", f.instructor, app.QuestionInput{Type: "true-false", Text: "Two is even.", Answer: "true"}, &question)
	if status != http.StatusCreated || question.ID == "" {
		t.Fatalf("add question: status %d question %+v", status, question)
	}
	if status := f.do(http.MethodDelete, "/api/v1/instructor/questions/"+question.ID, f.instructor, nil, nil); status != http.StatusNoContent {
		t.Fatalf("delete question: status %d", status)
	}

	var archived domain.Quiz
	archive := true
	if status := f.do(http.MethodPatch, "/api/v1/instructor/quizzes/"+quizID, f.instructor, app.QuizPatch{Archived: &archive}, &archived); status != http.StatusOK || !archived.Archived {
		t.Fatalf("archive quiz: status %d quiz %+v", status, archived)
	}

	var mismatch ErrorResponse
	if status := f.do(http.MethodDelete, "/api/v1/instructor/quizzes/"+quizID, f.instructor, deleteQuizRequest{Confirmation: "wrong"}, &mismatch); status != http.StatusBadRequest {
		t.Fatalf("expected 400 on confirmation mismatch, got %d", status)
	}
	if status := f.do(http.MethodDelete, "/api/v1/instructor/quizzes/"+quizID+"?confirmation=Arithmetic", f.instructor, nil, nil); status != http.StatusNoContent {
		t.Fatalf("delete quiz: status %d", status)
	}
	if status := f.do(http.MethodGet, "/api/v1/instructor/quizzes/"+quizID, f.instructor, nil, nil); status != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", status)
	}
}

func TestStudentAttemptOverREST(t *testing.T) {
	f := newAPIFixture(t)
	detail := f.createQuiz(quizInput(0))
	quizID := detail.Quiz.ID

	var assignments []domain.Assignment
	status := f.do(http.MethodPost, "/api/v1/instructor/quizzes/"+quizID+"/assignments", f.instructor, assignRequest{StudentIDs: []string{"student-1"}}, &assignments)
	if status != http.StatusCreated || len(assignments) != 1 {
		t.Fatalf("assign quiz: status %d assignments %+v", status, assignments)
	}

	var mine []StudentQuizResponse
	if status := f.do(http.MethodGet, "/api/v1/student/quizzes", f.student, nil, &mine); status != http.StatusOK || len(mine) != 1 {
		t.Fatalf("student quizzes: status %d rows %+v", status, mine)
	}

	attempt := f.startAttempt(quizID)
	if attempt.Status != "in-progress" || attempt.AttemptNumber != 1 || attempt.Resumed {
		t.Fatalf("unexpected attempt %+v", attempt)
	}
	if again := f.startAttempt(quizID); !again.Resumed || again.ID != attempt.ID {
		t.Fatalf("expected resumed attempt, got %+v", again)
	}

	var playable domain.PlayableQuiz
	if status := f.do(http.MethodGet, "/api/v1/attempts/"+attempt.ID, f.student, nil, &playable); status != http.StatusOK {
		t.Fatalf("playable quiz: status %d", status)
	}
	if len(playable.Questions) != 2 {
		t.Fatalf("expected 2 playable questions, got %d", len(playable.Questions))
	}

	mc := detail.Questions[0]
	var receipt domain.AnswerReceipt
	status = f.do(http.MethodPost, "/api/v1/attempts/"+attempt.ID+"/responses", f.student, domain.AnswerSubmission{QuestionID: mc.ID, OptionID: correctOptionID(t, mc)}, &receipt)
	if status != http.StatusOK || receipt.Correct == nil || !*receipt.Correct {
		t.Fatalf("submit response: status %d receipt %+v", status, receipt)
	}

	var bad ErrorResponse
	status = f.do(http.MethodPost, "/api/v1/attempts/"+attempt.ID+"/responses", f.student, domain.AnswerSubmission{QuestionID: mc.ID, OptionID: "nope"}, &bad)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown option, got %d", status)
	}

	var early ErrorResponse
	if status := f.do(http.MethodGet, "/api/v1/attempts/"+attempt.ID+"/results", f.student, nil, &early); status != http.StatusConflict {
		t.Fatalf("expected 409 for results of an open attempt, got %d", status)
	}

	var done AttemptResponse
	if status := f.do(http.MethodPost, "/api/v1/attempts/"+attempt.ID+"/submit", f.student, nil, &done); status != http.StatusOK {
		t.Fatalf("submit attempt: status %d", status)
	}
	if done.Status != "completed" || done.Score == nil || *done.Score != 50 {
		t.Fatalf("unexpected submitted attempt %+v", done)
	}
	if status := f.do(http.MethodPost, "/api/v1/attempts/"+attempt.ID+"/submit", f.student, nil, nil); status != http.StatusConflict {
		t.Fatalf("expected 409 on double submit, got %d", status)
	}

	var result domain.AttemptResult
	if status := f.do(http.MethodGet, "/api/v1/attempts/"+attempt.ID+"/results", f.student, nil, &result); status != http.StatusOK {
		t.Fatalf("results: status %d", status)
	}
	if result.Score != 50 || !result.Passed || len(result.Responses) != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
	var instructorView domain.AttemptResult
	if status := f.do(http.MethodGet, "/api/v1/attempts/"+attempt.ID+"/results", f.instructor, nil, &instructorView); status != http.StatusOK {
		t.Fatalf("instructor results: status %d", status)
	}

	var history []AttemptResponse
	if status := f.do(http.MethodGet, "/api/v1/student/quizzes/"+quizID+"/attempts", f.student, nil, &history); status != http.StatusOK || len(history) != 1 {
		t.Fatalf("history: status %d rows %+v", status, history)
	}

	var analytics domain.QuizAnalytics
	if status := f.do(http.MethodGet, "/api/v1/instructor/quizzes/"+quizID+"/analytics", f.instructor, nil, &analytics); status != http.StatusOK {
		t.Fatalf("analytics: status %d", status)
	}
	if analytics.CompletedAttempts != 1 || analytics.AverageScore != 50 {
		t.Fatalf("unexpected analytics %+v", analytics)
	}

	var dash domain.StudentOverview
	if status := f.do(http.MethodGet, "/api/v1/student/dashboard", f.student, nil, &dash); status != http.StatusOK || dash.CompletedAttempts != 1 {
		t.Fatalf("student dashboard: status %d body %+v", status, dash)
	}
	var idash domain.InstructorOverview
	if status := f.do(http.MethodGet, "/api/v1/instructor/dashboard", f.instructor, nil, &idash); status != http.StatusOK || idash.TotalAttempts != 1 {
		t.Fatalf("instructor dashboard: status %d body %+v", status, idash)
	}
}

func TestUploadCover(t *testing.T) {
	f := newAPIFixture(t)
	detail := f.createQuiz(quizInput(0))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="cover.png"`)
	header.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(header)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write([]byte("\x89PNG\r\n\x1a\nfake"))
	_ = mw.Close()

	req, _ := http.NewRequest(http.MethodPost, f.server.URL+"/api/v1/instructor/quizzes/"+detail.Quiz.ID+"/cover", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+f.instructor)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload cover: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload cover: status %d", resp.StatusCode)
	}
	var quiz domain.Quiz
	if err := json.NewDecoder(resp.Body).Decode(&quiz); err != nil {
		t.Fatalf("decode quiz: %v", err)
	}
	if !strings.HasPrefix(quiz.CoverImage, "http://covers.test/quizzes/"+detail.Quiz.ID+"/") {
		t.Fatalf("unexpected cover url %q", quiz.CoverImage)
	}
}

func TestClassifyErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{domain.ErrQuizNotFound, http.StatusNotFound},
		{fmt.Errorf("load: %w", domain.ErrAttemptNotFound), http.StatusNotFound},
		{domain.ErrOptionNotFound, http.StatusBadRequest},
		{domain.ErrConfirmationMismatch, http.StatusBadRequest},
		{domain.ErrForbidden, http.StatusForbidden},
		{domain.ErrRetakesExhausted, http.StatusConflict},
		{domain.ErrQuizHasAttempts, http.StatusConflict},
		{domain.ErrTimeLimitExceeded, http.StatusConflict},
		{domain.ErrStorageUnavailable, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if status, _ := classify(tc.err); status != tc.status {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.status, status)
		}
	}
}
