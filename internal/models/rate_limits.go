package models

import "time"

// RateLimitRecord is one fixed-window attempt counter, keyed by an
// identifier (email for answer verification, user id elsewhere). The
// record is replaced, not incremented, once the window has elapsed.
type RateLimitRecord struct {
	Identifier string    `db:"identifier"`
	Attempts   int       `db:"attempts"`
	ResetAt    time.Time `db:"reset_at"`
}
