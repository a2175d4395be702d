package models

import "time"

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
)

// User is a chat identity known to the bot. Rows are created implicitly on
// first contact and only ever move from pending to approved.
type User struct {
	UserID    int64     `db:"user_id"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (u User) Approved() bool {
	return u.Status == StatusApproved
}
