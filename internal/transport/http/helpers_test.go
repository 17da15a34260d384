package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"quiz-platform-service/internal/app"
	"quiz-platform-service/internal/auth"
	"quiz-platform-service/internal/domain"
	"quiz-platform-service/internal/infra/memory"
)

const testSecret = "test-secret"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type apiFixture struct {
	t          *testing.T
	clock      *testClock
	store      *memory.Store
	server     *httptest.Server
	instructor string
	student    string
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clock := &testClock{now: time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)}
	store := memory.NewStore()
	repo := memory.NewQuizRepository(store, time.Minute)
	quizzes := app.NewQuizService(store, repo, store, memory.NewCoverStore("http://covers.test"), app.WithClock(clock.Now))
	attempts := app.NewAttemptService(repo, store, store, memory.NewAttemptLocker(), memory.NewEventRecorder(), memory.NewRosterStore(), app.WithClock(clock.Now))
	analytics := app.NewAnalyticsService(store, repo, store)

	handler := NewHandler(quizzes, attempts, analytics, auth.NewVerifier(testSecret, ""), WithTickInterval(10*time.Millisecond))
	server := httptest.NewServer(NewRouter(handler, nil))
	t.Cleanup(server.Close)

	issuer := auth.NewIssuer(testSecret, "", time.Hour)
	instructor, err := issuer.Issue(auth.Identity{UserID: "instructor-1", Role: domain.RoleInstructor})
	if err != nil {
		t.Fatalf("issue instructor token: %v", err)
	}
	student, err := issuer.Issue(auth.Identity{UserID: "student-1", Role: domain.RoleStudent})
	if err != nil {
		t.Fatalf("issue student token: %v", err)
	}
	return &apiFixture{t: t, clock: clock, store: store, server: server, instructor: instructor, student: student}
}

// do sends a JSON request and decodes the JSON answer into out when non-nil.
func (f *apiFixture) do(method, path, token string, body any, out any) int {
	f.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			f.t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, f.server.URL+path, reader)
	if err != nil {
		f.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		f.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			f.t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (f *apiFixture) createQuiz(in app.QuizInput) domain.QuizDetail {
	f.t.Helper()
	var detail domain.QuizDetail
	if status := f.do(http.MethodPost, "/api/v1/instructor/quizzes", f.instructor, in, &detail); status != http.StatusCreated {
		f.t.Fatalf("create quiz: status %d", status)
	}
	return detail
}

func (f *apiFixture) startAttempt(quizID string) AttemptResponse {
	f.t.Helper()
	var attempt AttemptResponse
	status := f.do(http.MethodPost, "/api/v1/student/quizzes/"+quizID+"/attempts", f.student, nil, &attempt)
	if status != http.StatusCreated && status != http.StatusOK {
		f.t.Fatalf("start attempt: status %d", status)
	}
	return attempt
}

func (f *apiFixture) dial(path, token string) *websocket.Conn {
	f.t.Helper()
	u := "ws" + strings.TrimPrefix(f.server.URL, "http") + path + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		f.t.Fatalf("dial %s: %v", path, err)
	}
	f.t.Cleanup(func() { _ = conn.Close() })
	return conn
}

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// readUntil skips messages until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, want string) wsMessage {
	t.Helper()
	for i := 0; i < 200; i++ {
		var msg wsMessage
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read json waiting for %s: %v", want, err)
		}
		if msg.Type == want {
			return msg
		}
	}
	t.Fatalf("no %s message received", want)
	return wsMessage{}
}

func quizInput(timeLimit int) app.QuizInput {
	return app.QuizInput{
		Title:     "Arithmetic",
		Category:  "Mathematics",
		TimeLimit: timeLimit,
		Published: true,
		Settings:  &app.SettingsInput{ShowResults: "immediately", PassingScore: 50},
		Questions: []app.QuestionInput{
			{
				Type: "multiple-choice",
				Text: "What is 2 + 2?",
				Options: []app.OptionInput{
					{Text: "3"},
					{Text: "4", Correct: true},
				},
			},
			{Type: "short-answer", Text: "Spell 2 in words.", Answer: "two"},
		},
	}
}

func correctOptionID(t *testing.T, q domain.Question) string {
	t.Helper()
	for _, o := range q.Options {
		if o.Correct {
			return o.ID
		}
	}
	t.Fatalf("question %s has no correct option", q.ID)
	return ""
}
