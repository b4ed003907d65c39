package memory

import (
	"context"
	"testing"
	"time"

	"coursehub-service/internal/domain"
)

func TestReviewStoreUpsertKeepsIdentity(t *testing.T) {
	store := NewReviewStore()
	ctx := context.Background()
	first := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	saved, err := store.SaveReview(ctx, domain.CourseReview{ID: "r1", CourseID: "c1", UserID: "u1", Rating: 3, Text: "ok", CreatedAt: first, UpdatedAt: first})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.ID != "r1" {
		t.Fatalf("expected r1, got %s", saved.ID)
	}
	edited, _ := store.SaveReview(ctx, domain.CourseReview{ID: "r-new", CourseID: "c1", UserID: "u1", Rating: 5, Text: "great",
		CreatedAt: first.Add(time.Hour), UpdatedAt: first.Add(time.Hour)})
	if edited.ID != "r1" || !edited.CreatedAt.Equal(first) || edited.Rating != 5 {
		t.Fatalf("expected edit to keep id and created_at, got %+v", edited)
	}
	_, _ = store.SaveReview(ctx, domain.CourseReview{ID: "r2", CourseID: "c1", UserID: "u2", Rating: 4, Text: "nice",
		CreatedAt: first.Add(2 * time.Hour)})

	reviews, _ := store.ListReviews(ctx, "c1")
	if len(reviews) != 2 || reviews[0].ID != "r2" {
		t.Fatalf("expected two reviews newest first, got %+v", reviews)
	}
	if other, _ := store.ListReviews(ctx, "c2"); len(other) != 0 {
		t.Fatalf("expected no reviews for another course, got %+v", other)
	}
}
