package app

import (
	"context"
	"sort"
	"strings"

	"coursehub-service/internal/domain"
	"coursehub-service/internal/logger"
)

// UserFilter narrows the backoffice user list. Empty fields match everything.
type UserFilter struct {
	Role         domain.Role
	Subscription domain.SubscriptionTier
	Search       string
}

// UserSummary holds the backoffice headline counts.
type UserSummary struct {
	Total int `json:"total"`
	Free  int `json:"free"`
	Paid  int `json:"paid"`
	Staff int `json:"staff"`
}

// AdminService covers backoffice user management.
type AdminService struct {
	users UserRepository
	log   *logger.Logger
}

func NewAdminService(users UserRepository, log *logger.Logger) *AdminService {
	return &AdminService{users: users, log: log}
}

// ListUsers returns matching users ordered by email, plus counts over all users.
func (s *AdminService) ListUsers(ctx context.Context, actorID string, filter UserFilter) ([]domain.User, UserSummary, error) {
	if _, err := s.requireRole(ctx, actorID, domain.RoleModerator, domain.RoleAdmin); err != nil {
		return nil, UserSummary{}, err
	}
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, UserSummary{}, err
	}

	var (
		summary = UserSummary{Total: len(users)}
		out     []domain.User
		search  = strings.ToLower(strings.TrimSpace(filter.Search))
	)
	for _, u := range users {
		if u.Subscription.Unrestricted() {
			summary.Paid++
		} else {
			summary.Free++
		}
		if u.Role.IsStaff() {
			summary.Staff++
		}
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.Subscription != "" && u.Subscription != filter.Subscription {
			continue
		}
		if search != "" && !matchesSearch(u, search) {
			continue
		}
		out = append(out, u)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, summary, nil
}

func matchesSearch(u domain.User, search string) bool {
	for _, field := range []string{u.Email, u.FirstName, u.LastName} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}

// SetRole changes a user's role. Admin only.
func (s *AdminService) SetRole(ctx context.Context, actorID, userID string, role domain.Role) (domain.User, error) {
	if _, err := s.requireRole(ctx, actorID, domain.RoleAdmin); err != nil {
		return domain.User{}, err
	}
	switch role {
	case domain.RoleUser, domain.RoleModerator, domain.RoleAdmin:
	default:
		return domain.User{}, domain.ErrInvalidValue
	}
	return s.update(ctx, userID, func(u *domain.User) { u.Role = role })
}

// SetSubscription changes a user's tier. Admin only; payment is handled elsewhere.
func (s *AdminService) SetSubscription(ctx context.Context, actorID, userID string, tier domain.SubscriptionTier) (domain.User, error) {
	if _, err := s.requireRole(ctx, actorID, domain.RoleAdmin); err != nil {
		return domain.User{}, err
	}
	switch tier {
	case domain.TierFree, domain.TierA, domain.TierB:
	default:
		return domain.User{}, domain.ErrInvalidValue
	}
	return s.update(ctx, userID, func(u *domain.User) { u.Subscription = tier })
}

func (s *AdminService) update(ctx context.Context, userID string, mutate func(*domain.User)) (domain.User, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	mutate(&user)
	if err := s.users.SaveUser(ctx, user); err != nil {
		return domain.User{}, err
	}
	s.log.Info("user updated", "user_id", userID, "role", user.Role, "subscription", user.Subscription)
	return user, nil
}

func (s *AdminService) requireRole(ctx context.Context, userID string, roles ...domain.Role) (domain.User, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	for _, r := range roles {
		if user.Role == r {
			return user, nil
		}
	}
	return domain.User{}, domain.ErrForbidden
}
