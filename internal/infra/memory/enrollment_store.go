package memory

import (
	"context"
	"sync"

	"coursehub-service/internal/domain"
)

type enrollmentKey struct {
	userID   string
	courseID string
}

// EnrollmentStore is an in-memory implementation of app.EnrollmentRepository.
type EnrollmentStore struct {
	mu          sync.RWMutex
	enrollments map[enrollmentKey]domain.Enrollment
}

func NewEnrollmentStore() *EnrollmentStore {
	return &EnrollmentStore{enrollments: make(map[enrollmentKey]domain.Enrollment)}
}

func (s *EnrollmentStore) GetEnrollment(_ context.Context, userID, courseID string) (domain.Enrollment, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.enrollments[enrollmentKey{userID, courseID}]
	return e, ok, nil
}

func (s *EnrollmentStore) CreateEnrollment(_ context.Context, enrollment domain.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := enrollmentKey{enrollment.UserID, enrollment.CourseID}
	if _, ok := s.enrollments[key]; ok {
		return domain.ErrAlreadyEnrolled
	}
	s.enrollments[key] = enrollment
	return nil
}

func (s *EnrollmentStore) DeleteEnrollment(_ context.Context, userID, courseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := enrollmentKey{userID, courseID}
	if _, ok := s.enrollments[key]; !ok {
		return domain.ErrNotEnrolled
	}
	delete(s.enrollments, key)
	return nil
}

func (s *EnrollmentStore) ListEnrollmentsByUser(_ context.Context, userID string) ([]domain.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Enrollment
	for key, e := range s.enrollments {
		if key.userID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *EnrollmentStore) CountEnrollmentsByCourse(_ context.Context, courseID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for key := range s.enrollments {
		if key.courseID == courseID {
			n++
		}
	}
	return n, nil
}
