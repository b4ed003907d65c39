package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"coursehub-service/internal/app"
	"coursehub-service/internal/domain"
	"coursehub-service/internal/infra/memory"
	"coursehub-service/internal/logger"
)

type testEnv struct {
	users         *memory.UserStore
	catalog       *memory.Catalog
	enrollments   *memory.EnrollmentStore
	progressRows  *memory.ProgressStore
	attempts      *memory.AttemptStore
	notifications *memory.NotificationStore
	sessions      *memory.SessionStore
	reviewRows    *memory.ReviewStore
	quizCache     *memory.QuizRepository
	timer         *fakeTimer

	gate        *app.EnrollmentService
	progress    *app.ProgressService
	quizzes     *app.QuizService
	corrections *app.CorrectionService
	stats       *app.StatsService
	admin       *app.AdminService
	authoring   *app.AuthoringService
	reviews     *app.ReviewService
}

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logger.Nop()
	env := &testEnv{
		users:         memory.NewUserStore(),
		catalog:       memory.NewCatalog(),
		enrollments:   memory.NewEnrollmentStore(),
		progressRows:  memory.NewProgressStore(),
		attempts:      memory.NewAttemptStore(),
		notifications: memory.NewNotificationStore(),
		sessions:      memory.NewSessionStore(),
		reviewRows:    memory.NewReviewStore(),
		timer:         &fakeTimer{},
	}
	seedUsers(t, env.users)
	seedCatalog(env.catalog)

	env.gate = app.NewEnrollmentService(env.users, env.catalog, env.enrollments, log)
	env.progress = app.NewProgressService(env.users, env.catalog, env.enrollments, env.progressRows, env.gate, log)
	env.quizCache = memory.NewQuizRepository(env.catalog, 5*time.Minute)
	env.quizzes = app.NewQuizService(env.sessions, env.quizCache, env.catalog, env.attempts, env.gate, env.progress, log,
		app.WithClock(func() time.Time { return testNow }),
		app.WithTimer(env.timer.arm),
	)
	env.corrections = app.NewCorrectionService(env.users, env.attempts, env.notifications, env.progress, log)
	env.stats = app.NewStatsService(env.users, env.catalog, env.enrollments, env.progressRows, env.attempts, env.reviewRows)
	env.admin = app.NewAdminService(env.users, log)
	env.authoring = app.NewAuthoringService(env.users, env.catalog, env.catalog, env.quizCache, env.quizCache, env.attempts, log)
	env.reviews = app.NewReviewService(env.users, env.catalog, env.reviewRows, env.gate, log)
	return env
}

func seedUsers(t *testing.T, users *memory.UserStore) {
	t.Helper()
	for _, u := range []domain.User{
		{ID: "u-free", Email: "free@example.com", FirstName: "Fatou", Role: domain.RoleUser, Subscription: domain.TierFree},
		{ID: "u-paid", Email: "paid@example.com", FirstName: "Paul", Role: domain.RoleUser, Subscription: domain.TierA},
		{ID: "mod", Email: "mod@example.com", Role: domain.RoleModerator, Subscription: domain.TierFree},
		{ID: "admin", Email: "admin@example.com", Role: domain.RoleAdmin, Subscription: domain.TierB},
	} {
		if err := users.SaveUser(context.Background(), u); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}
}

// seedCatalog builds:
//   - course-intro (first): m1 video, m2 file, m3 plain, m4 mixed quiz, m5 choice quiz; 30 min each
//   - course-adv (second): adv-1 with a timed quiz
//   - course-empty (third): no modules
func seedCatalog(c *memory.Catalog) {
	c.PutCourse(domain.Course{
		ID: "course-intro", Title: "Intro", OrderIndex: 1, Published: true,
		Modules: []domain.Module{
			{ID: "m1", OrderIndex: 1, EstimatedMinutes: 30, Contents: []domain.ModuleContent{
				domain.NewVideoContent("c-video", "m1", "Welcome", 1, "https://cdn.example.com/welcome.mp4", 120),
			}},
			{ID: "m2", OrderIndex: 2, EstimatedMinutes: 30, Contents: []domain.ModuleContent{
				domain.NewFileContent("c-file", "m2", "Handout", 1, "https://cdn.example.com/handout.pdf"),
			}},
			{ID: "m3", OrderIndex: 3, EstimatedMinutes: 30},
			{ID: "m4", OrderIndex: 4, EstimatedMinutes: 30, Contents: []domain.ModuleContent{
				domain.NewQuizContent("c-mixed", "m4", "Reflection", 1, "quiz-mixed"),
			}},
			{ID: "m5", OrderIndex: 5, EstimatedMinutes: 30, Contents: []domain.ModuleContent{
				domain.NewQuizContent("c-choice", "m5", "Checkpoint", 1, "quiz-choice"),
			}},
		},
	})
	c.PutCourse(domain.Course{
		ID: "course-adv", Title: "Advanced", OrderIndex: 2, Published: true,
		Modules: []domain.Module{
			{ID: "adv-1", OrderIndex: 1, EstimatedMinutes: 45, Contents: []domain.ModuleContent{
				domain.NewQuizContent("c-timed", "adv-1", "Timed", 1, "quiz-timed"),
			}},
		},
	})
	c.PutCourse(domain.Course{ID: "course-empty", Title: "Empty", OrderIndex: 3, Published: true})

	c.PutQuiz(domain.Quiz{ID: "quiz-choice", Title: "Checkpoint", Questions: []domain.Question{
		choiceQuestion("cq1", 1), choiceQuestion("cq2", 2), choiceQuestion("cq3", 3), choiceQuestion("cq4", 4),
	}})
	c.PutQuiz(domain.Quiz{ID: "quiz-mixed", Title: "Reflection", Questions: []domain.Question{
		choiceQuestion("mq1", 1), choiceQuestion("mq2", 2),
		{ID: "mq3", Prompt: "Explain in your own words", Type: domain.QuestionText, OrderIndex: 3},
	}})
	c.PutQuiz(domain.Quiz{ID: "quiz-timed", Title: "Timed", TimerMinutes: 10, Questions: []domain.Question{
		choiceQuestion("tq1", 1), choiceQuestion("tq2", 2),
	}})
}

// choiceQuestion has a correct choice "<id>-right" and a wrong one "<id>-wrong".
func choiceQuestion(id string, order int) domain.Question {
	return domain.Question{
		ID:         id,
		Prompt:     "Question " + id,
		Type:       domain.QuestionChoice,
		OrderIndex: order,
		Choices: []domain.Choice{
			{ID: id + "-wrong", Text: "wrong", OrderIndex: 1},
			{ID: id + "-right", Text: "right", Correct: true, OrderIndex: 2},
		},
	}
}

type fakeTimer struct {
	mu        sync.Mutex
	callbacks []func()
	durations []time.Duration
	stops     int
}

func (f *fakeTimer) arm(d time.Duration, fn func()) func() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callbacks = append(f.callbacks, fn)
	f.durations = append(f.durations, d)
	return func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.stops++
		return true
	}
}

func (f *fakeTimer) fire(t *testing.T) {
	t.Helper()
	f.mu.Lock()
	callbacks := append([]func(){}, f.callbacks...)
	f.mu.Unlock()
	if len(callbacks) == 0 {
		t.Fatalf("no timer armed")
	}
	for _, fn := range callbacks {
		fn()
	}
}
