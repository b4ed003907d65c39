package postgres

import (
	"context"
	"database/sql"
	"errors"

	"coursehub-service/internal/domain"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// NewDB opens a bun handle over the pgdriver connector.
func NewDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// Store implements the app repositories for users, catalog, enrollments, progress, attempts
// and notifications on top of bun.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetUser(ctx context.Context, userID string) (domain.User, error) {
	row := new(userRow)
	err := s.db.NewSelect().Model(row).Where("u.id = ?", userID).Scan(ctx)
	if err != nil {
		return domain.User{}, notFound(err, domain.ErrUserNotFound)
	}
	return row.toDomain(), nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	var rows []userRow
	if err := s.db.NewSelect().Model(&rows).Order("u.email").Scan(ctx); err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(rows))
	for i := range rows {
		users = append(users, rows[i].toDomain())
	}
	return users, nil
}

// SaveUser upserts a user by ID.
func (s *Store) SaveUser(ctx context.Context, user domain.User) error {
	_, err := s.db.NewInsert().
		Model(newUserRow(user)).
		On("CONFLICT (id) DO UPDATE").
		Set("email = EXCLUDED.email").
		Set("first_name = EXCLUDED.first_name").
		Set("last_name = EXCLUDED.last_name").
		Set("role = EXCLUDED.role").
		Set("subscription_type = EXCLUDED.subscription_type").
		Set("day_streak = EXCLUDED.day_streak").
		Set("last_login_date = EXCLUDED.last_login_date").
		Exec(ctx)
	return err
}

func (s *Store) CreateNotification(ctx context.Context, n domain.Notification) error {
	_, err := s.db.NewInsert().Model(&notificationRow{
		ID:        n.ID,
		UserID:    n.UserID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      n.Type,
		CreatedAt: n.CreatedAt,
	}).Exec(ctx)
	return err
}

func (s *Store) ListNotifications(ctx context.Context, userID string) ([]domain.Notification, error) {
	var rows []notificationRow
	err := s.db.NewSelect().Model(&rows).
		Where("n.user_id = ?", userID).
		Order("n.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Notification, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func notFound(err, sentinel error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel
	}
	return err
}
