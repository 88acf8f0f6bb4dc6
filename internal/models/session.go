package models

import "time"

// Session is a server-side login record. TokenHash is the keyed hash of the
// opaque token the client holds; the raw token never touches the database.
type Session struct {
	TokenHash  string    `json:"-"`
	UserID     string    `json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}
