package models

import "time"

// RefreshToken is a server-stored, single-use token exchanged for a new
// access token.
type RefreshToken struct {
	UserID    string
	Token     string
	ExpiresAt time.Time
}

func (t *RefreshToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}
