package models

import "time"

// Invite lets an existing user bring in a new one. The token doubles as the
// invite id and expires a fixed window after CreatedAt.
type Invite struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
