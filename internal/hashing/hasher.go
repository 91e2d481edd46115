package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"recovery-service/internal/config"
)

// Hasher wraps bcrypt for one-way storage of security-question answers
// and primary credentials. The cost factor is fixed at construction so
// save-time and verify-time behavior match.
type Hasher struct {
	cost int
}

func NewHasher(cfg *config.Config) *Hasher {
	cost := cfg.Hashing.BcryptCost
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{cost: cost}
}

// Normalize lowercases and trims an answer. Applied identically at
// save-time and verify-time so case and surrounding whitespace never
// cause a false rejection.
func Normalize(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}

// HashAnswer hashes a normalized answer with a per-call random salt.
func (h *Hasher) HashAnswer(normalizedAnswer string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(normalizedAnswer), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyAnswer compares a normalized answer against a stored hash.
// A malformed hash reports false exactly like a wrong answer; callers
// must not be able to tell corrupt data from an incorrect guess.
func (h *Hasher) VerifyAnswer(normalizedAnswer, answerHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(answerHash), []byte(normalizedAnswer)) == nil
}

// HashPassword hashes a primary credential for the force-set path.
func (h *Hasher) HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword compares a credential against its stored hash.
func (h *Hasher) VerifyPassword(password, credentialHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(credentialHash), []byte(password)) == nil
}

// NormalizeEmail canonicalizes an address for hashing and comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EmailHash returns the SHA-256 lookup key for a normalized address.
// The address itself is stored encrypted; this hash is what the
// email_to_user index and audit events carry.
func EmailHash(email string) string {
	sum := sha256.Sum256([]byte(NormalizeEmail(email)))
	return hex.EncodeToString(sum[:])
}
