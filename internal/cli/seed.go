package cli

import (
	"context"
	"fmt"
	"time"

	"coursehub-service/internal/catalog"
	"coursehub-service/internal/config"
	"coursehub-service/internal/infra/postgres"
	infraredis "coursehub-service/internal/infra/redis"
	"coursehub-service/internal/logger"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
)

// NewSeedCmd loads the YAML catalog seed into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var seedPath string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the catalog seed into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			if seedPath == "" {
				seedPath = cfg.Seed.Path
			}
			seed, err := catalog.Load(seedPath)
			if err != nil {
				return err
			}

			db := postgres.NewDB(cfg.Postgres.URL)
			defer db.Close()
			if err := runMigrations(cmd.Context(), db, log); err != nil {
				return err
			}
			if err := catalog.Apply(cmd.Context(), seed, postgres.NewStore(db)); err != nil {
				return err
			}
			log.Info("catalog seeded", "path", seedPath, "courses", len(seed.Courses), "quizzes", len(seed.Quizzes), "users", len(seed.Users))
			if cfg.Redis.Addr != "" {
				return invalidateSeededQuizzes(cmd.Context(), cfg, seed, log)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&seedPath, "file", "", "seed file (defaults to seed.path from config)")
	return cmd
}

// invalidateSeededQuizzes drops the reseeded quizzes from the shared Redis cache so running
// servers stop serving the previous content.
func invalidateSeededQuizzes(ctx context.Context, cfg config.Config, seed catalog.Seed, log *logger.Logger) error {
	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()
	client := newRedisClient(cfg)
	defer client.Close()

	cache := infraredis.NewQuizRepository(client, postgres.NewQuizLoader(pool), config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute))
	for _, q := range seed.Quizzes {
		if err := cache.Invalidate(ctx, q.ID); err != nil {
			return fmt.Errorf("invalidate quiz %s: %w", q.ID, err)
		}
	}
	log.Info("quiz cache invalidated", "quizzes", len(seed.Quizzes))
	return nil
}
