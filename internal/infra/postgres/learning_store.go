package postgres

import (
	"context"
	"database/sql"
	"errors"

	"coursehub-service/internal/domain"
	"github.com/uptrace/bun"
)

func (s *Store) GetEnrollment(ctx context.Context, userID, courseID string) (domain.Enrollment, bool, error) {
	row := new(enrollmentRow)
	err := s.db.NewSelect().Model(row).
		Where("cr.user_id = ? AND cr.course_id = ?", userID, courseID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Enrollment{}, false, nil
		}
		return domain.Enrollment{}, false, err
	}
	return row.toDomain(), true, nil
}

func (s *Store) CreateEnrollment(ctx context.Context, e domain.Enrollment) error {
	res, err := s.db.NewInsert().
		Model(&enrollmentRow{UserID: e.UserID, CourseID: e.CourseID, CreatedAt: e.CreatedAt}).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrAlreadyEnrolled
	}
	return nil
}

func (s *Store) DeleteEnrollment(ctx context.Context, userID, courseID string) error {
	res, err := s.db.NewDelete().Model((*enrollmentRow)(nil)).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotEnrolled
	}
	return nil
}

func (s *Store) ListEnrollmentsByUser(ctx context.Context, userID string) ([]domain.Enrollment, error) {
	var rows []enrollmentRow
	err := s.db.NewSelect().Model(&rows).
		Where("cr.user_id = ?", userID).
		Order("cr.created_at").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Enrollment, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (s *Store) CountEnrollmentsByCourse(ctx context.Context, courseID string) (int, error) {
	return s.db.NewSelect().Model((*enrollmentRow)(nil)).Where("cr.course_id = ?", courseID).Count(ctx)
}

// MarkCompleted upserts a completed row. A row that is already completed keeps its
// original completed_at.
func (s *Store) MarkCompleted(ctx context.Context, p domain.ModuleProgress) (domain.ModuleProgress, error) {
	row := &progressRow{
		UserID:      p.UserID,
		ModuleID:    p.ModuleID,
		Completed:   true,
		CompletedAt: p.CompletedAt,
	}
	_, err := s.db.NewInsert().Model(row).
		On("CONFLICT (user_id, module_id) DO UPDATE").
		Set("completed = TRUE").
		Set("completed_at = CASE WHEN mp.completed THEN mp.completed_at ELSE EXCLUDED.completed_at END").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return domain.ModuleProgress{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) ListProgress(ctx context.Context, userID string, moduleIDs []string) ([]domain.ModuleProgress, error) {
	if len(moduleIDs) == 0 {
		return nil, nil
	}
	var rows []progressRow
	err := s.db.NewSelect().Model(&rows).
		Where("mp.user_id = ?", userID).
		Where("mp.module_id IN (?)", bun.In(moduleIDs)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ModuleProgress, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (s *Store) CountCompletedByModule(ctx context.Context, moduleID string) (int, error) {
	return s.db.NewSelect().Model((*progressRow)(nil)).
		Where("mp.module_id = ? AND mp.completed", moduleID).
		Count(ctx)
}
