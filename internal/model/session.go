package model

import "time"

// Session is an opaque bearer token bound to a user until ExpiresAt.
type Session struct {
	ID        int64
	UserID    int64
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// SessionInfo is the identity attached to a request after token validation.
type SessionInfo struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is no longer valid at now.
func (s SessionInfo) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
