package memory

import (
	"context"
	"sync"

	"coursehub-service/internal/domain"
)

// NotificationStore is an in-memory implementation of app.NotificationRepository.
type NotificationStore struct {
	mu     sync.RWMutex
	byUser map[string][]domain.Notification
}

func NewNotificationStore() *NotificationStore {
	return &NotificationStore{byUser: make(map[string][]domain.Notification)}
}

func (s *NotificationStore) CreateNotification(_ context.Context, n domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser[n.UserID] = append(s.byUser[n.UserID], n)
	return nil
}

func (s *NotificationStore) ListNotifications(_ context.Context, userID string) ([]domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Notification, len(s.byUser[userID]))
	copy(out, s.byUser[userID])
	return out, nil
}
