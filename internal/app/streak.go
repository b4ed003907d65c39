package app

import (
	"context"
	"time"

	"coursehub-service/internal/domain"
	"coursehub-service/internal/logger"
)

// StreakService maintains the consecutive-day login counter.
type StreakService struct {
	users UserRepository
	now   func() time.Time
	log   *logger.Logger
}

func NewStreakService(users UserRepository, log *logger.Logger) *StreakService {
	return &StreakService{users: users, now: time.Now, log: log}
}

// NextStreak returns the streak after a login at now, given the previous login date.
func NextStreak(current int, lastLogin, now time.Time) int {
	if lastLogin.IsZero() {
		return 1
	}
	last := truncateDay(lastLogin.In(now.Location()))
	today := truncateDay(now)
	switch {
	case last.Equal(today):
		if current < 1 {
			return 1
		}
		return current
	case last.AddDate(0, 0, 1).Equal(today):
		return current + 1
	default:
		return 1
	}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// RecordLogin updates the user's streak and last login date.
func (s *StreakService) RecordLogin(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	now := s.now()
	user.DayStreak = NextStreak(user.DayStreak, user.LastLoginDate, now)
	user.LastLoginDate = now
	if err := s.users.SaveUser(ctx, user); err != nil {
		return domain.User{}, err
	}
	s.log.Debug("login recorded", "user_id", userID, "streak", user.DayStreak)
	return user, nil
}
