package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"coursehub-service/internal/config"
	"coursehub-service/internal/domain"
	"coursehub-service/internal/logger"
	"github.com/google/uuid"
)

// CorrectionService is the moderator queue for attempts containing text answers.
type CorrectionService struct {
	users         UserRepository
	attempts      AttemptRepository
	notifications NotificationRepository
	progress      *ProgressService
	passThreshold int
	now           func() time.Time
	newID         func() string
	log           *logger.Logger
}

func NewCorrectionService(users UserRepository, attempts AttemptRepository, notifications NotificationRepository, progress *ProgressService, log *logger.Logger) *CorrectionService {
	return &CorrectionService{
		users:         users,
		attempts:      attempts,
		notifications: notifications,
		progress:      progress,
		passThreshold: config.DefaultPassThreshold,
		now:           time.Now,
		newID:         uuid.NewString,
		log:           log,
	}
}

// SetPassThreshold aligns module completion with the quiz service's pass mark.
func (s *CorrectionService) SetPassThreshold(threshold int) {
	s.passThreshold = threshold
}

// Pending lists attempts awaiting correction, oldest completed first.
func (s *CorrectionService) Pending(ctx context.Context, moderatorID string) ([]domain.Attempt, error) {
	if err := s.requireStaff(ctx, moderatorID); err != nil {
		return nil, err
	}
	attempts, err := s.attempts.ListPendingCorrection(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(attempts, func(i, j int) bool {
		return attempts[i].CompletedAt.Before(attempts[j].CompletedAt)
	})
	return attempts, nil
}

// TextAnswers returns only the answers a moderator has to grade.
func TextAnswers(attempt domain.Attempt) []domain.Answer {
	var out []domain.Answer
	for _, a := range attempt.Answers {
		if a.QuestionType == domain.QuestionText {
			out = append(out, a)
		}
	}
	return out
}

// RecordAnswerCorrection sets correctness and optional feedback on one text answer. It does
// not finalize the attempt.
func (s *CorrectionService) RecordAnswerCorrection(ctx context.Context, moderatorID, attemptID, answerID string, correct bool, feedback string) error {
	if err := s.requireStaff(ctx, moderatorID); err != nil {
		return err
	}
	attempt, err := s.attempts.GetAttempt(ctx, attemptID)
	if err != nil {
		return err
	}
	if attempt.IsCorrected {
		return domain.ErrAttemptFinalized
	}
	answer, ok := findAnswer(attempt, answerID)
	if !ok {
		return domain.ErrAnswerNotFound
	}
	if answer.QuestionType != domain.QuestionText {
		return domain.ErrNotTextAnswer
	}
	if err := s.attempts.UpdateAnswerCorrection(ctx, answerID, correct, feedback); err != nil {
		return fmt.Errorf("record correction: %w", err)
	}
	s.log.Debug("answer corrected", "attempt_id", attemptID, "answer_id", answerID, "correct", correct)
	return nil
}

// FinalizeAttempt scores a fully corrected attempt over all of its answers, stamps the
// corrector and notifies the learner. Any ungraded text answer blocks it with
// ErrIncompleteCorrection.
func (s *CorrectionService) FinalizeAttempt(ctx context.Context, moderatorID, attemptID string) (domain.Attempt, error) {
	if err := s.requireStaff(ctx, moderatorID); err != nil {
		return domain.Attempt{}, err
	}
	attempt, err := s.attempts.GetAttempt(ctx, attemptID)
	if err != nil {
		return domain.Attempt{}, err
	}
	if attempt.IsCorrected {
		return domain.Attempt{}, domain.ErrAttemptFinalized
	}
	score, err := FinalScore(attempt.Answers)
	if err != nil {
		return domain.Attempt{}, err
	}

	correctedAt := s.now()
	if err := s.attempts.FinalizeAttempt(ctx, attemptID, score, moderatorID, correctedAt); err != nil {
		return domain.Attempt{}, err
	}
	attempt.Score = &score
	attempt.IsCorrected = true
	attempt.CorrectedBy = moderatorID
	attempt.CorrectedAt = &correctedAt

	if err := s.notifications.CreateNotification(ctx, domain.Notification{
		ID:        s.newID(),
		UserID:    attempt.UserID,
		Title:     "Quiz corrected",
		Message:   fmt.Sprintf("Your quiz has been corrected. Score: %d%%", score),
		Type:      domain.NotificationQuizCorrected,
		CreatedAt: correctedAt,
	}); err != nil {
		s.log.Warn("correction notification failed", "attempt_id", attemptID, "error", err)
	}

	if attempt.ModuleID != "" && score >= s.passThreshold {
		if _, err := s.progress.MarkModuleComplete(ctx, attempt.UserID, attempt.ModuleID); err != nil {
			s.log.Warn("corrected quiz did not complete module", "attempt_id", attemptID, "module_id", attempt.ModuleID, "error", err)
		}
	}

	s.log.Info("attempt finalized", "attempt_id", attemptID, "corrected_by", moderatorID, "score", score)
	return attempt, nil
}

// Notifications lists a user's notifications, newest first.
func (s *CorrectionService) Notifications(ctx context.Context, userID string) ([]domain.Notification, error) {
	notifications, err := s.notifications.ListNotifications(ctx, userID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})
	return notifications, nil
}

func (s *CorrectionService) requireStaff(ctx context.Context, userID string) error {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if !user.Role.IsStaff() {
		return domain.ErrForbidden
	}
	return nil
}

func findAnswer(attempt domain.Attempt, answerID string) (domain.Answer, bool) {
	for _, a := range attempt.Answers {
		if a.ID == answerID {
			return a, true
		}
	}
	return domain.Answer{}, false
}
