package models

import "time"

// User is the marketplace account record as stored in Scylla. The email
// address itself is envelope-encrypted at rest; lookups go through
// EmailHash (SHA-256 of the normalized address) via the email_to_user
// index table.
type User struct {
	UserBucket     int        `db:"user_bucket"`
	UserID         string     `db:"user_id"`
	EmailHash      string     `db:"email_hash"`
	EmailEncrypted []byte     `db:"email_encrypted"`
	EmailKeyID     string     `db:"email_key_id"`
	DisplayName    string     `db:"display_name"`
	CredentialHash string     `db:"credential_hash"`
	IsActive       bool       `db:"is_active"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      *time.Time `db:"updated_at"`
	LastLogin      *time.Time `db:"last_login"`
}
