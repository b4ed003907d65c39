package postgres

import (
	"context"

	"coursehub-service/internal/domain"
)

// SaveReview upserts the user's review of a course. The first review's ID and created_at
// survive later edits.
func (s *Store) SaveReview(ctx context.Context, review domain.CourseReview) (domain.CourseReview, error) {
	row := &reviewRow{
		ID:        review.ID,
		CourseID:  review.CourseID,
		UserID:    review.UserID,
		Rating:    review.Rating,
		Text:      review.Text,
		CreatedAt: review.CreatedAt,
		UpdatedAt: review.UpdatedAt,
	}
	_, err := s.db.NewInsert().Model(row).
		On("CONFLICT (course_id, user_id) DO UPDATE").
		Set("rating = EXCLUDED.rating").
		Set("review_text = EXCLUDED.review_text").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return domain.CourseReview{}, err
	}
	return row.toDomain(), nil
}

// ListReviews returns a course's reviews, newest first.
func (s *Store) ListReviews(ctx context.Context, courseID string) ([]domain.CourseReview, error) {
	var rows []reviewRow
	err := s.db.NewSelect().Model(&rows).
		Where("rv.course_id = ?", courseID).
		Order("rv.created_at DESC", "rv.id").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	reviews := make([]domain.CourseReview, 0, len(rows))
	for i := range rows {
		reviews = append(reviews, rows[i].toDomain())
	}
	return reviews, nil
}
