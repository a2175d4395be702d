package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spacatty/subzone/internal/database"
	"github.com/spacatty/subzone/internal/models"
)

// UserStore is the user registry: the source of truth for the access gate.
type UserStore struct {
	db *database.DB
}

func NewUserStore(db *database.DB) *UserStore {
	return &UserStore{db: db}
}

// EnsurePending inserts the user in pending state if no row exists yet.
// It reports whether this call created the row, so concurrent first
// contacts resolve to exactly one registration.
func (s *UserStore) EnsurePending(ctx context.Context, userID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (user_id, status)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, models.StatusPending)
	if err != nil {
		return false, fmt.Errorf("EnsurePending: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("EnsurePending: %w", err)
	}
	return rows == 1, nil
}

func (s *UserStore) Get(ctx context.Context, userID int64) (*models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u, `
		SELECT user_id, status, created_at, updated_at
		FROM users
		WHERE user_id = $1
	`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("Get: %w", models.ErrNotFound)
		}
		return nil, fmt.Errorf("Get: %w", err)
	}
	return &u, nil
}

// Approve marks the user approved, creating the row if it never existed.
// Repeated calls are no-ops.
func (s *UserStore) Approve(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (user_id, status)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET status = EXCLUDED.status, updated_at = NOW()
	`, userID, models.StatusApproved)
	if err != nil {
		return fmt.Errorf("Approve: %w", err)
	}
	return nil
}
