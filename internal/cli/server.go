package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coursehub-service/internal/app"
	"coursehub-service/internal/catalog"
	"coursehub-service/internal/config"
	"coursehub-service/internal/infra/memory"
	"coursehub-service/internal/infra/postgres"
	infraredis "coursehub-service/internal/infra/redis"
	"coursehub-service/internal/logger"
	transport "coursehub-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// stores is the repository set the services run on.
type stores struct {
	users         app.UserRepository
	courses       app.CourseRepository
	catalog       app.CatalogWriter
	enrollments   app.EnrollmentRepository
	progress      app.ProgressRepository
	attempts      app.AttemptRepository
	notifications app.NotificationRepository
	reviews       app.ReviewRepository
	quizLoader    memory.QuizLoader
	closers       []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, log, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	defer log.Sync()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = newRedisClient(cfg)
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)

	var quizRepo interface {
		app.QuizRepository
		app.QuizCache
	}
	var sessions app.SessionRepository
	if redisClient != nil {
		quizRepo = infraredis.NewQuizRepository(redisClient, st.quizLoader, quizTTL)
		sessions = infraredis.NewSessionStore(redisClient, redisTTL)
	} else {
		quizRepo = memory.NewQuizRepository(st.quizLoader, quizTTL)
		sessions = memory.NewSessionStore()
	}

	threshold := cfg.PassThreshold()
	gate := app.NewEnrollmentService(st.users, st.courses, st.enrollments, log)
	progress := app.NewProgressService(st.users, st.courses, st.enrollments, st.progress, gate, log)
	corrections := app.NewCorrectionService(st.users, st.attempts, st.notifications, progress, log)
	corrections.SetPassThreshold(threshold)
	stats := app.NewStatsService(st.users, st.courses, st.enrollments, st.progress, st.attempts, st.reviews)
	stats.SetPassThreshold(threshold)

	api := transport.NewAPI(transport.Services{
		Enrollment:  gate,
		Progress:    progress,
		Quizzes:     app.NewQuizService(sessions, quizRepo, st.courses, st.attempts, gate, progress, log, app.WithPassThreshold(threshold)),
		Corrections: corrections,
		Admin:       app.NewAdminService(st.users, log),
		Stats:       stats,
		Streaks:     app.NewStreakService(st.users, log),
		Authoring:   app.NewAuthoringService(st.users, st.courses, st.catalog, quizRepo, quizRepo, st.attempts, log),
		Reviews:     app.NewReviewService(st.users, st.courses, st.reviews, gate, log),
	}, log)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}
	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      api.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting coursehub service", "port", finalPort, "postgres", cfg.Postgres.URL != "", "redis", redisClient != nil)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// openStores picks Postgres when configured, otherwise in-memory stores filled from the seed.
func openStores(ctx context.Context, cfg config.Config, log *logger.Logger) (*stores, error) {
	if cfg.Postgres.URL != "" {
		db := postgres.NewDB(cfg.Postgres.URL)
		if err := runMigrations(ctx, db, log); err != nil {
			db.Close()
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			db.Close()
			return nil, err
		}
		store := postgres.NewStore(db)
		return &stores{
			users:         store,
			courses:       store,
			catalog:       store,
			enrollments:   store,
			progress:      store,
			attempts:      store,
			notifications: store,
			reviews:       store,
			quizLoader:    postgres.NewQuizLoader(pool),
			closers:       []func(){func() { db.Close() }, pool.Close},
		}, nil
	}

	users := memory.NewUserStore()
	courses := memory.NewCatalog()
	if cfg.Seed.Path != "" {
		seed, err := catalog.Load(cfg.Seed.Path)
		if err != nil {
			return nil, err
		}
		writer := struct {
			*memory.UserStore
			*memory.Catalog
		}{users, courses}
		if err := catalog.Apply(ctx, seed, writer); err != nil {
			return nil, err
		}
		log.Info("in-memory catalog seeded", "path", cfg.Seed.Path, "courses", len(seed.Courses))
	}
	return &stores{
		users:         users,
		courses:       courses,
		catalog:       courses,
		enrollments:   memory.NewEnrollmentStore(),
		progress:      memory.NewProgressStore(),
		attempts:      memory.NewAttemptStore(),
		notifications: memory.NewNotificationStore(),
		reviews:       memory.NewReviewStore(),
		quizLoader:    courses,
	}, nil
}

func newRedisClient(cfg config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}
