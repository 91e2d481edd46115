package service

import "errors"

// Sentinel errors for the recovery flow. Handlers map these to HTTP
// statuses; the user-facing messages stay deliberately uniform so that
// responses never reveal whether an email, a question set or a specific
// answer was the thing that failed.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrRateLimited        = errors.New("too many verification attempts")
	ErrVerificationFailed = errors.New("security answers incorrect")
	ErrTokenInvalid       = errors.New("verification token invalid or expired")
	ErrTokenMismatch      = errors.New("verification token does not match email")
	ErrUserMismatch       = errors.New("verification token does not match user")
	ErrWeakPassword       = errors.New("password does not meet requirements")
	ErrUnauthorized       = errors.New("permission denied")
)
