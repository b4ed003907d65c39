package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"coursehub-service/internal/app"
	"coursehub-service/internal/domain"
	"coursehub-service/internal/infra/postgres"
	pgmigrations "coursehub-service/internal/infra/postgres/migrations"
	infraredis "coursehub-service/internal/infra/redis"
	"coursehub-service/internal/logger"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun/migrate"
)

func TestQuizLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := postgres.NewDB(pgURL)
	defer db.Close()
	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store := postgres.NewStore(db)
	seedCatalog(t, ctx, store)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	log := logger.Nop()
	quizRepo := infraredis.NewQuizRepository(redisClient, postgres.NewQuizLoader(pool), 5*time.Minute)
	sessions := infraredis.NewSessionStore(redisClient, 5*time.Minute)
	gate := app.NewEnrollmentService(store, store, store, log)
	progress := app.NewProgressService(store, store, store, store, gate, log)
	quizzes := app.NewQuizService(sessions, quizRepo, store, store, gate, progress, log)
	corrections := app.NewCorrectionService(store, store, store, progress, log)

	if err := gate.Register(ctx, "learner", "course-2"); !errors.Is(err, domain.ErrSubscriptionRequired) {
		t.Fatalf("expected ErrSubscriptionRequired for second course, got %v", err)
	}
	if err := gate.Register(ctx, "learner", "course-1"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := gate.Register(ctx, "learner", "course-1"); !errors.Is(err, domain.ErrAlreadyEnrolled) {
		t.Fatalf("expected ErrAlreadyEnrolled, got %v", err)
	}

	// Auto-graded quiz: 3 of 4 correct.
	session, err := quizzes.Start(ctx, "learner", "mod-choice")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	for i, value := range []string{"c1-right", "c2-right", "c3-right", "c4-wrong"} {
		if _, err := quizzes.Answer(ctx, session.ID(), "learner", fmt.Sprintf("c%d", i+1), value); err != nil {
			t.Fatalf("answer: %v", err)
		}
	}
	result, err := quizzes.Submit(ctx, session.ID(), "learner")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Attempt.Score == nil || *result.Attempt.Score != 75 || !result.Attempt.IsCorrected {
		t.Fatalf("expected auto-graded 75, got %+v", result.Attempt)
	}
	if _, err := quizzes.Submit(ctx, session.ID(), "learner"); !errors.Is(err, domain.ErrAlreadySubmitted) {
		t.Fatalf("expected ErrAlreadySubmitted, got %v", err)
	}
	stored, err := store.GetAttempt(ctx, result.Attempt.ID)
	if err != nil || len(stored.Answers) != 4 {
		t.Fatalf("expected stored attempt with 4 answers, got %+v err=%v", stored, err)
	}
	if err := store.CreateSubmitted(ctx, result.Attempt); !errors.Is(err, domain.ErrAlreadySubmitted) {
		t.Fatalf("expected unique submission key to reject a replay, got %v", err)
	}
	if !quizCached(ctx, redisClient, "quiz-choice") {
		t.Fatalf("expected quiz cached in redis")
	}
	replayed, err := store.GetAttemptBySubmissionKey(ctx, session.ID())
	if err != nil || replayed.ID != result.Attempt.ID {
		t.Fatalf("expected attempt stored under the session key, got %+v err=%v", replayed, err)
	}
	if _, err := store.GetAttemptBySubmissionKey(ctx, "no-such-session"); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected ErrAttemptNotFound, got %v", err)
	}

	cp, err := progress.CourseProgress(ctx, "learner", "course-1")
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if cp.Completed != 1 || cp.Total != 2 || cp.Percent != 50 {
		t.Fatalf("unexpected progress %+v", cp)
	}

	// Pending correction: 1 of 2 choices right plus a text answer.
	session, err = quizzes.Start(ctx, "learner", "mod-mixed")
	if err != nil {
		t.Fatalf("start mixed: %v", err)
	}
	for q, v := range map[string]string{"x1": "x1-right", "x2": "x2-wrong", "x3": "My answer"} {
		if _, err := quizzes.Answer(ctx, session.ID(), "learner", q, v); err != nil {
			t.Fatalf("answer %s: %v", q, err)
		}
	}
	result, err = quizzes.Submit(ctx, session.ID(), "learner")
	if err != nil {
		t.Fatalf("submit mixed: %v", err)
	}
	if result.Attempt.Score != nil || !result.Attempt.NeedsCorrection {
		t.Fatalf("expected pending correction, got %+v", result.Attempt)
	}

	if _, err := corrections.FinalizeAttempt(ctx, "moderator", result.Attempt.ID); !errors.Is(err, domain.ErrIncompleteCorrection) {
		t.Fatalf("expected ErrIncompleteCorrection, got %v", err)
	}
	pending, err := corrections.Pending(ctx, "moderator")
	if err != nil || len(pending) != 1 {
		t.Fatalf("expected one pending attempt, got %d err=%v", len(pending), err)
	}
	text := app.TextAnswers(pending[0])
	if len(text) != 1 {
		t.Fatalf("expected one text answer, got %+v", text)
	}
	if err := corrections.RecordAnswerCorrection(ctx, "moderator", result.Attempt.ID, text[0].ID, true, "Nice"); err != nil {
		t.Fatalf("record correction: %v", err)
	}
	final, err := corrections.FinalizeAttempt(ctx, "moderator", result.Attempt.ID)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if final.Score == nil || *final.Score != 67 {
		t.Fatalf("expected 67, got %+v", final.Score)
	}
	notes, err := corrections.Notifications(ctx, "learner")
	if err != nil || len(notes) != 1 || notes[0].Type != domain.NotificationQuizCorrected {
		t.Fatalf("expected correction notification, got %+v err=%v", notes, err)
	}

	authoring := app.NewAuthoringService(store, store, store, quizRepo, quizRepo, store, log)
	reviews := app.NewReviewService(store, store, store, gate, log)
	checkAuthoring(t, ctx, store, authoring, redisClient)
	checkReviews(t, ctx, reviews)
}

func checkAuthoring(t *testing.T, ctx context.Context, store *postgres.Store, authoring *app.AuthoringService, client *goredis.Client) {
	t.Helper()
	course, err := store.GetCourse(ctx, "course-1")
	if err != nil {
		t.Fatalf("get course: %v", err)
	}
	clash := course
	clash.Modules = append([]domain.Module(nil), course.Modules...)
	clash.Modules[1].OrderIndex = clash.Modules[0].OrderIndex
	if err := store.SaveCourse(ctx, clash); !errors.Is(err, domain.ErrDuplicateOrder) {
		t.Fatalf("expected ErrDuplicateOrder from the unique constraint, got %v", err)
	}

	// Swapping positions passes because the constraint is checked at commit.
	reordered, err := authoring.ReorderModules(ctx, "admin", "course-1", []string{"mod-mixed", "mod-choice"})
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if reordered.Modules[0].ID != "mod-mixed" || reordered.Modules[1].OrderIndex != 2 {
		t.Fatalf("unexpected order %+v", reordered.Modules)
	}

	draft, err := authoring.CreateCourse(ctx, "admin", app.CourseDraft{Title: "Third"})
	if err != nil || draft.Published || draft.OrderIndex != 3 {
		t.Fatalf("expected draft course at position 3, got %+v err=%v", draft, err)
	}
	if _, err := authoring.AddModule(ctx, "admin", draft.ID, app.ModuleDraft{Title: "Only", Contents: []app.ContentDraft{
		{Title: "Slides", Type: domain.ContentFile, URL: "https://cdn.example.com/slides.pdf"},
	}}); err != nil {
		t.Fatalf("add module: %v", err)
	}
	if err := authoring.DeleteCourse(ctx, "admin", draft.ID); err != nil {
		t.Fatalf("delete course: %v", err)
	}

	if !quizCached(ctx, client, "quiz-choice") {
		t.Fatalf("expected quiz-choice cached before the edit")
	}
	all, err := authoring.ListQuizzes(ctx, "admin")
	if err != nil {
		t.Fatalf("list quizzes: %v", err)
	}
	var quiz domain.Quiz
	for _, q := range all {
		if q.ID == "quiz-choice" {
			quiz = q
		}
	}
	if len(quiz.Questions) != 4 || len(quiz.Questions[0].Choices) != 2 {
		t.Fatalf("expected quiz-choice with its answer key, got %+v", quiz)
	}
	quiz.Title = "Checkpoint v2"
	if _, err := authoring.UpdateQuiz(ctx, "admin", "quiz-choice", quiz); err != nil {
		t.Fatalf("update quiz: %v", err)
	}
	if quizCached(ctx, client, "quiz-choice") {
		t.Fatalf("expected the edit to drop the cached quiz")
	}
	if err := authoring.DeleteQuiz(ctx, "admin", "quiz-choice"); !errors.Is(err, domain.ErrQuizInUse) {
		t.Fatalf("expected ErrQuizInUse, got %v", err)
	}
}

func checkReviews(t *testing.T, ctx context.Context, reviews *app.ReviewService) {
	t.Helper()
	first, err := reviews.Submit(ctx, "learner", "course-1", 3, "fine")
	if err != nil {
		t.Fatalf("submit review: %v", err)
	}
	edited, err := reviews.Submit(ctx, "learner", "course-1", 5, "great after all")
	if err != nil {
		t.Fatalf("edit review: %v", err)
	}
	if edited.ID != first.ID || edited.Rating != 5 {
		t.Fatalf("expected upsert on (course, user), got %+v", edited)
	}
	list, err := reviews.List(ctx, "admin", "course-1")
	if err != nil {
		t.Fatalf("list reviews: %v", err)
	}
	if list.Count != 1 || list.AverageRating != 5 || list.Reviews[0].Text != "great after all" {
		t.Fatalf("unexpected reviews %+v", list)
	}
	if _, err := reviews.Submit(ctx, "moderator", "course-1", 4, "ok"); !errors.Is(err, domain.ErrNotEnrolled) {
		t.Fatalf("expected ErrNotEnrolled, got %v", err)
	}
}

func seedCatalog(t *testing.T, ctx context.Context, store *postgres.Store) {
	t.Helper()
	choice := func(id string, order int) domain.Question {
		return domain.Question{ID: id, Prompt: id, Type: domain.QuestionChoice, OrderIndex: order, Choices: []domain.Choice{
			{ID: id + "-wrong", Text: "wrong", OrderIndex: 1},
			{ID: id + "-right", Text: "right", Correct: true, OrderIndex: 2},
		}}
	}
	quizzes := []domain.Quiz{
		{ID: "quiz-choice", Questions: []domain.Question{choice("c1", 1), choice("c2", 2), choice("c3", 3), choice("c4", 4)}},
		{ID: "quiz-mixed", Questions: []domain.Question{
			choice("x1", 1), choice("x2", 2),
			{ID: "x3", Prompt: "Explain", Type: domain.QuestionText, OrderIndex: 3},
		}},
	}
	for _, q := range quizzes {
		if err := store.SaveQuiz(ctx, q); err != nil {
			t.Fatalf("save quiz: %v", err)
		}
	}
	courses := []domain.Course{
		{ID: "course-1", Title: "First", OrderIndex: 1, Published: true, Modules: []domain.Module{
			{ID: "mod-choice", OrderIndex: 1, EstimatedMinutes: 30, Contents: []domain.ModuleContent{
				domain.NewQuizContent("content-choice", "mod-choice", "Checkpoint", 1, "quiz-choice"),
			}},
			{ID: "mod-mixed", OrderIndex: 2, EstimatedMinutes: 30, Contents: []domain.ModuleContent{
				domain.NewQuizContent("content-mixed", "mod-mixed", "Reflection", 1, "quiz-mixed"),
			}},
		}},
		{ID: "course-2", Title: "Second", OrderIndex: 2, Published: true},
	}
	for _, c := range courses {
		if err := store.SaveCourse(ctx, c); err != nil {
			t.Fatalf("save course: %v", err)
		}
	}
	for _, u := range []domain.User{
		{ID: "learner", Email: "learner@example.com", Role: domain.RoleUser, Subscription: domain.TierFree},
		{ID: "moderator", Email: "moderator@example.com", Role: domain.RoleModerator, Subscription: domain.TierFree},
		{ID: "admin", Email: "admin@example.com", FirstName: "Ada", Role: domain.RoleAdmin, Subscription: domain.TierB},
	} {
		if err := store.SaveUser(ctx, u); err != nil {
			t.Fatalf("save user: %v", err)
		}
	}
}

func quizCached(ctx context.Context, client *goredis.Client, quizID string) bool {
	n, err := client.Exists(ctx, "quiz:"+quizID+":content").Result()
	return err == nil && n == 1
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "coursehub", "POSTGRES_PASSWORD": "coursehub", "POSTGRES_DB": "coursehub"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://coursehub:coursehub@%s:%s/coursehub?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
