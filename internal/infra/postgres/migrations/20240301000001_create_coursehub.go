package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

//go:embed 20240301000001_create_coursehub.sql
var createCoursehubSQL string

// Migrations holds every schema migration, applied in filename order.
var Migrations = migrate.NewMigrations()

// Child tables first.
var coursehubTables = []string{
	"notifications",
	"quiz_answers",
	"quiz_attempts",
	"module_progress",
	"course_registrations",
	"module_content",
	"question_choices",
	"quiz_questions",
	"quizzes",
	"course_modules",
	"courses",
	"users",
}

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createCoursehubSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			for _, table := range coursehubTables {
				if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
					return err
				}
			}
			return nil
		},
	)
}
