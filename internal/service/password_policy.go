package service

import (
	"fmt"
	"unicode"
)

// ValidatePassword enforces the reset password policy: minimum length
// plus at least one uppercase letter, one lowercase letter, one digit
// and one symbol. Returns ErrWeakPassword wrapped with the first
// requirement that failed.
func ValidatePassword(password string, minLength int) error {
	if len(password) < minLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrWeakPassword, minLength)
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSymbol = true
		}
	}

	switch {
	case !hasUpper:
		return fmt.Errorf("%w: must contain an uppercase letter", ErrWeakPassword)
	case !hasLower:
		return fmt.Errorf("%w: must contain a lowercase letter", ErrWeakPassword)
	case !hasDigit:
		return fmt.Errorf("%w: must contain a digit", ErrWeakPassword)
	case !hasSymbol:
		return fmt.Errorf("%w: must contain a symbol", ErrWeakPassword)
	}
	return nil
}
