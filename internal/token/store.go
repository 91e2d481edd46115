// Package token issues and consumes the short-lived, single-use
// verification tokens that bridge a successful answer check to a
// password reset.
//
// Consumption is delete-on-read: a token record is removed the moment
// it is looked up, before any caller-side checks run. Two concurrent
// consumers racing on one token therefore cannot both succeed, provided
// the backend's lookup-and-delete is atomic. The memory backend holds
// tokens in process memory only; it does not survive restarts or span
// instances, which is why multi-instance deployments use the Redis
// backend and its atomic script.
package token

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"recovery-service/internal/models"
)

var (
	// ErrNotFound reports a token that is absent from the store.
	ErrNotFound = errors.New("verification token not found")
	// ErrExpired reports a token found past its validity window. The
	// record is deleted before this is returned.
	ErrExpired = errors.New("verification token expired")
)

// Store issues and consumes verification tokens.
type Store interface {
	// Issue stores a fresh token for the verified user and returns the
	// opaque token string. Called only after all answers verified.
	Issue(ctx context.Context, userID, email string, ttl time.Duration) (string, error)

	// Consume looks up and deletes the record in one atomic step. It
	// returns ErrNotFound for an absent token and ErrExpired for one
	// past its window; either way the token can never be redeemed again.
	Consume(ctx context.Context, tok string) (*models.VerificationToken, error)
}

// newTokenString returns a 256-bit random token, base64url encoded.
// crypto/rand, not a time-seeded PRNG: token guessability is the whole
// security boundary of the reset step.
func newTokenString() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
