package memory

import (
	"context"
	"sync"

	"coursehub-service/internal/domain"
)

type progressKey struct {
	userID   string
	moduleID string
}

// ProgressStore is an in-memory implementation of app.ProgressRepository.
type ProgressStore struct {
	mu   sync.RWMutex
	rows map[progressKey]domain.ModuleProgress
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{rows: make(map[progressKey]domain.ModuleProgress)}
}

func (s *ProgressStore) MarkCompleted(_ context.Context, progress domain.ModuleProgress) (domain.ModuleProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := progressKey{progress.UserID, progress.ModuleID}
	if existing, ok := s.rows[key]; ok && existing.Completed {
		return existing, nil
	}
	progress.Completed = true
	s.rows[key] = progress
	return progress, nil
}

func (s *ProgressStore) ListProgress(_ context.Context, userID string, moduleIDs []string) ([]domain.ModuleProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ModuleProgress, 0, len(moduleIDs))
	for _, id := range moduleIDs {
		if row, ok := s.rows[progressKey{userID, id}]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *ProgressStore) CountCompletedByModule(_ context.Context, moduleID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for key, row := range s.rows {
		if key.moduleID == moduleID && row.Completed {
			n++
		}
	}
	return n, nil
}
