package models

import "time"

// VerificationToken bridges a successful answer verification to a
// password reset across two requests. Single use: the record is deleted
// the moment it is looked up, whether or not later checks pass.
type VerificationToken struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the token's validity window has passed.
func (t *VerificationToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
