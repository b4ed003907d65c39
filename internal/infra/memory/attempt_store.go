package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"coursehub-service/internal/domain"
)

// AttemptStore is an in-memory implementation of app.AttemptRepository.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[string]domain.Attempt
	bySubKey map[string]string
	answerOf map[string]string // answer ID -> attempt ID
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		attempts: make(map[string]domain.Attempt),
		bySubKey: make(map[string]string),
		answerOf: make(map[string]string),
	}
}

func (s *AttemptStore) CreateSubmitted(_ context.Context, attempt domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if attempt.SubmissionKey != "" {
		if _, ok := s.bySubKey[attempt.SubmissionKey]; ok {
			return domain.ErrAlreadySubmitted
		}
		s.bySubKey[attempt.SubmissionKey] = attempt.ID
	}
	stored := cloneAttempt(attempt)
	for _, a := range stored.Answers {
		s.answerOf[a.ID] = stored.ID
	}
	s.attempts[stored.ID] = stored
	return nil
}

func (s *AttemptStore) GetAttempt(_ context.Context, attemptID string) (domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[attemptID]
	if !ok {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return cloneAttempt(attempt), nil
}

func (s *AttemptStore) GetAttemptBySubmissionKey(_ context.Context, key string) (domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attemptID, ok := s.bySubKey[key]
	if !ok {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return cloneAttempt(s.attempts[attemptID]), nil
}

func (s *AttemptStore) ListPendingCorrection(_ context.Context) ([]domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Attempt
	for _, a := range s.attempts {
		if a.NeedsCorrection && !a.IsCorrected {
			out = append(out, cloneAttempt(a))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CompletedAt.Before(out[j].CompletedAt) })
	return out, nil
}

func (s *AttemptStore) UpdateAnswerCorrection(_ context.Context, answerID string, correct bool, feedback string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	attemptID, ok := s.answerOf[answerID]
	if !ok {
		return domain.ErrAnswerNotFound
	}
	attempt := s.attempts[attemptID]
	for i := range attempt.Answers {
		if attempt.Answers[i].ID == answerID {
			c := correct
			attempt.Answers[i].Correct = &c
			attempt.Answers[i].Feedback = feedback
		}
	}
	s.attempts[attemptID] = attempt
	return nil
}

func (s *AttemptStore) FinalizeAttempt(_ context.Context, attemptID string, score int, correctedBy string, correctedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.attempts[attemptID]
	if !ok {
		return domain.ErrAttemptNotFound
	}
	if attempt.IsCorrected {
		return domain.ErrAttemptFinalized
	}
	attempt.Score = &score
	attempt.IsCorrected = true
	attempt.CorrectedBy = correctedBy
	attempt.CorrectedAt = &correctedAt
	s.attempts[attemptID] = attempt
	return nil
}

func (s *AttemptStore) ListAttemptsByQuiz(_ context.Context, quizID string) ([]domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Attempt
	for _, a := range s.attempts {
		if a.QuizID == quizID {
			out = append(out, cloneAttempt(a))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CompletedAt.Before(out[j].CompletedAt) })
	return out, nil
}

func (s *AttemptStore) CountAttempts(_ context.Context, userID, quizID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, a := range s.attempts {
		if a.UserID == userID && a.QuizID == quizID {
			n++
		}
	}
	return n, nil
}

// cloneAttempt copies the answers and pointer fields so callers never share state with the store.
func cloneAttempt(a domain.Attempt) domain.Attempt {
	if a.Score != nil {
		score := *a.Score
		a.Score = &score
	}
	if a.CorrectedAt != nil {
		at := *a.CorrectedAt
		a.CorrectedAt = &at
	}
	if a.Answers != nil {
		answers := make([]domain.Answer, len(a.Answers))
		for i, ans := range a.Answers {
			if ans.Correct != nil {
				c := *ans.Correct
				ans.Correct = &c
			}
			answers[i] = ans
		}
		a.Answers = answers
	}
	return a
}
