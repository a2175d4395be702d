package store

import (
	"context"
	"fmt"

	"github.com/spacatty/subzone/internal/database"
	"github.com/spacatty/subzone/internal/models"
)

// ActivityStore is the append-only activity log. Entries are never updated
// or deleted by this system.
type ActivityStore struct {
	db *database.DB
}

func NewActivityStore(db *database.DB) *ActivityStore {
	return &ActivityStore{db: db}
}

func (s *ActivityStore) Append(ctx context.Context, entry models.ActivityEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activity_log (user_id, activity)
		VALUES ($1, $2)
	`, entry.UserID, entry.Activity)
	if err != nil {
		return fmt.Errorf("Append: %w", err)
	}
	return nil
}
