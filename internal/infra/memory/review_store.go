package memory

import (
	"context"
	"sort"
	"sync"

	"coursehub-service/internal/domain"
)

// ReviewStore is an in-memory implementation of app.ReviewRepository.
type ReviewStore struct {
	mu      sync.RWMutex
	reviews map[string]map[string]domain.CourseReview // course -> user -> review
}

func NewReviewStore() *ReviewStore {
	return &ReviewStore{reviews: make(map[string]map[string]domain.CourseReview)}
}

func (s *ReviewStore) SaveReview(_ context.Context, review domain.CourseReview) (domain.CourseReview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byUser, ok := s.reviews[review.CourseID]
	if !ok {
		byUser = make(map[string]domain.CourseReview)
		s.reviews[review.CourseID] = byUser
	}
	if existing, ok := byUser[review.UserID]; ok {
		review.ID = existing.ID
		review.CreatedAt = existing.CreatedAt
	}
	byUser[review.UserID] = review
	return review, nil
}

func (s *ReviewStore) ListReviews(_ context.Context, courseID string) ([]domain.CourseReview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CourseReview, 0, len(s.reviews[courseID]))
	for _, r := range s.reviews[courseID] {
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
