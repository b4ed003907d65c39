package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
)

//go:embed 20240315000001_authoring_and_reviews.sql
var authoringAndReviewsSQL string

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, authoringAndReviewsSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			for _, stmt := range []string{
				"DROP TABLE IF EXISTS course_reviews",
				"ALTER TABLE course_modules DROP CONSTRAINT IF EXISTS course_modules_order_key",
				"CREATE INDEX IF NOT EXISTS course_modules_course_idx ON course_modules (course_id, order_index)",
			} {
				if _, err := db.ExecContext(ctx, stmt); err != nil {
					return err
				}
			}
			return nil
		},
	)
}
