package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"coursehub-service/internal/domain"
)

func TestAttemptStoreRejectsDuplicateSubmission(t *testing.T) {
	store := NewAttemptStore()
	ctx := context.Background()

	attempt := domain.Attempt{ID: "a1", SubmissionKey: "s1", UserID: "u1", QuizID: "quiz-1"}
	if err := store.CreateSubmitted(ctx, attempt); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := domain.Attempt{ID: "a2", SubmissionKey: "s1", UserID: "u1", QuizID: "quiz-1"}
	if err := store.CreateSubmitted(ctx, dup); !errors.Is(err, domain.ErrAlreadySubmitted) {
		t.Fatalf("expected ErrAlreadySubmitted, got %v", err)
	}
	if n, _ := store.CountAttempts(ctx, "u1", "quiz-1"); n != 1 {
		t.Fatalf("expected one attempt row, got %d", n)
	}
}

func TestAttemptStoreCorrectionLifecycle(t *testing.T) {
	store := NewAttemptStore()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"late", "early"} {
		err := store.CreateSubmitted(ctx, domain.Attempt{
			ID:              id,
			SubmissionKey:   id,
			UserID:          "u1",
			QuizID:          "quiz-1",
			CompletedAt:     base.Add(time.Duration(1-i) * time.Hour),
			NeedsCorrection: true,
			Answers: []domain.Answer{
				{ID: id + "-ans", AttemptID: id, QuestionID: "q1", QuestionType: domain.QuestionText, Text: "essay"},
			},
		})
		if err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	pending, err := store.ListPendingCorrection(ctx)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != "early" {
		t.Fatalf("expected oldest first, got %+v", pending)
	}

	if err := store.UpdateAnswerCorrection(ctx, "early-ans", true, "good"); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := store.GetAttempt(ctx, "early")
	if got.Answers[0].Correct == nil || !*got.Answers[0].Correct || got.Answers[0].Feedback != "good" {
		t.Fatalf("expected corrected answer, got %+v", got.Answers[0])
	}

	if err := store.FinalizeAttempt(ctx, "early", 100, "mod", base); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if err := store.FinalizeAttempt(ctx, "early", 100, "mod", base); !errors.Is(err, domain.ErrAttemptFinalized) {
		t.Fatalf("expected ErrAttemptFinalized, got %v", err)
	}
	pending, _ = store.ListPendingCorrection(ctx)
	if len(pending) != 1 || pending[0].ID != "late" {
		t.Fatalf("expected only late attempt pending, got %+v", pending)
	}
	if err := store.UpdateAnswerCorrection(ctx, "missing", true, ""); !errors.Is(err, domain.ErrAnswerNotFound) {
		t.Fatalf("expected ErrAnswerNotFound, got %v", err)
	}
}

func TestAttemptStoreReturnsCopies(t *testing.T) {
	store := NewAttemptStore()
	ctx := context.Background()
	correct := true
	_ = store.CreateSubmitted(ctx, domain.Attempt{
		ID:      "a1",
		Answers: []domain.Answer{{ID: "x", Correct: &correct}},
	})

	got, _ := store.GetAttempt(ctx, "a1")
	*got.Answers[0].Correct = false

	again, _ := store.GetAttempt(ctx, "a1")
	if !*again.Answers[0].Correct {
		t.Fatalf("expected store state isolated from caller mutation")
	}
}
