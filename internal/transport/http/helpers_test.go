package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"coursehub-service/internal/app"
	"coursehub-service/internal/domain"
	"coursehub-service/internal/infra/memory"
	"coursehub-service/internal/logger"
)

type testServer struct {
	*httptest.Server
	api   *API
	svc   Services
	timer *manualTimer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := logger.Nop()
	users := memory.NewUserStore()
	catalog := memory.NewCatalog()
	enrollments := memory.NewEnrollmentStore()
	progressRows := memory.NewProgressStore()
	attempts := memory.NewAttemptStore()
	notifications := memory.NewNotificationStore()
	reviews := memory.NewReviewStore()

	for _, u := range []domain.User{
		{ID: "learner", Email: "learner@example.com", Role: domain.RoleUser, Subscription: domain.TierFree},
		{ID: "mod", Email: "mod@example.com", Role: domain.RoleModerator, Subscription: domain.TierFree},
		{ID: "admin", Email: "admin@example.com", Role: domain.RoleAdmin, Subscription: domain.TierB},
	} {
		if err := users.SaveUser(context.Background(), u); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}
	catalog.PutCourse(domain.Course{ID: "intro", Title: "Intro", OrderIndex: 1, Published: true, Modules: []domain.Module{
		{ID: "m-video", OrderIndex: 1, EstimatedMinutes: 20, Contents: []domain.ModuleContent{
			domain.NewVideoContent("c-video", "m-video", "Welcome", 1, "https://cdn.example.com/v.mp4", 90),
		}},
		{ID: "m-quiz", OrderIndex: 2, EstimatedMinutes: 20, Contents: []domain.ModuleContent{
			domain.NewQuizContent("c-quiz", "m-quiz", "Check", 1, "quiz-check"),
		}},
		{ID: "m-essay", OrderIndex: 3, EstimatedMinutes: 20, Contents: []domain.ModuleContent{
			domain.NewQuizContent("c-essay", "m-essay", "Essay", 1, "quiz-essay"),
		}},
		{ID: "m-timed", OrderIndex: 4, EstimatedMinutes: 20, Contents: []domain.ModuleContent{
			domain.NewQuizContent("c-timed", "m-timed", "Timed", 1, "quiz-timed"),
		}},
	}})
	catalog.PutCourse(domain.Course{ID: "advanced", Title: "Advanced", OrderIndex: 2, Published: true})

	choice := func(id string) domain.Question {
		return domain.Question{ID: id, Prompt: id, Type: domain.QuestionChoice, Choices: []domain.Choice{
			{ID: id + "-a", Text: "a", Correct: true, OrderIndex: 1},
			{ID: id + "-b", Text: "b", OrderIndex: 2},
		}}
	}
	catalog.PutQuiz(domain.Quiz{ID: "quiz-check", Questions: []domain.Question{choice("q1")}})
	catalog.PutQuiz(domain.Quiz{ID: "quiz-essay", Questions: []domain.Question{
		choice("e1"),
		{ID: "e2", Prompt: "Why?", Type: domain.QuestionText, OrderIndex: 2},
	}})
	catalog.PutQuiz(domain.Quiz{ID: "quiz-timed", TimerMinutes: 5, Questions: []domain.Question{choice("t1")}})

	timer := &manualTimer{}
	gate := app.NewEnrollmentService(users, catalog, enrollments, log)
	progress := app.NewProgressService(users, catalog, enrollments, progressRows, gate, log)
	quizCache := memory.NewQuizRepository(catalog, time.Minute)
	svc := Services{
		Enrollment: gate,
		Progress:   progress,
		Quizzes: app.NewQuizService(memory.NewSessionStore(), quizCache,
			catalog, attempts, gate, progress, log, app.WithTimer(timer.arm)),
		Corrections: app.NewCorrectionService(users, attempts, notifications, progress, log),
		Admin:       app.NewAdminService(users, log),
		Stats:       app.NewStatsService(users, catalog, enrollments, progressRows, attempts, reviews),
		Streaks:     app.NewStreakService(users, log),
		Authoring:   app.NewAuthoringService(users, catalog, catalog, quizCache, quizCache, attempts, log),
		Reviews:     app.NewReviewService(users, catalog, reviews, gate, log),
	}
	api := NewAPI(svc, log)
	api.ws.tickInterval = 10 * time.Millisecond
	server := httptest.NewServer(api.Routes())
	t.Cleanup(server.Close)
	return &testServer{Server: server, api: api, svc: svc, timer: timer}
}

// do sends a request as userID and decodes the JSON response into out when non-nil.
func (s *testServer) do(t *testing.T, method, path, userID string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, s.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if userID != "" {
		req.Header.Set(UserHeader, userID)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

type manualTimer struct {
	mu  sync.Mutex
	fns []func()
}

func (m *manualTimer) arm(_ time.Duration, fn func()) func() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fns = append(m.fns, fn)
	return func() bool { return true }
}

func (m *manualTimer) fireAll() {
	m.mu.Lock()
	fns := append([]func(){}, m.fns...)
	m.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
