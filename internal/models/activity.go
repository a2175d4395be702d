package models

import "time"

// ActivityEntry is one line of the append-only activity log.
type ActivityEntry struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	Activity  string    `db:"activity"`
	CreatedAt time.Time `db:"created_at"`
}
