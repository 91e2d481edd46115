package token

import (
	"context"
	"sync"
	"time"

	"recovery-service/internal/models"
)

// MemoryStore keeps verification tokens in a locked map. Suitable for
// tests and single-instance development runs.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*models.VerificationToken
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory token store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*models.VerificationToken),
		now:     time.Now,
	}
}

// Issue generates a token and stores its record with the given TTL.
func (s *MemoryStore) Issue(ctx context.Context, userID, email string, ttl time.Duration) (string, error) {
	tok, err := newTokenString()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[tok] = &models.VerificationToken{
		Token:     tok,
		UserID:    userID,
		Email:     email,
		ExpiresAt: s.now().Add(ttl),
	}
	return tok, nil
}

// Consume removes the record under the lock before any expiry check, so
// a token is spent on first touch regardless of outcome.
func (s *MemoryStore) Consume(ctx context.Context, tok string) (*models.VerificationToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[tok]
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.records, tok)

	if rec.Expired(s.now()) {
		return nil, ErrExpired
	}
	return rec, nil
}

// Sweep drops expired records. Issue paths never read them, so this
// only bounds memory between restarts.
func (s *MemoryStore) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for tok, rec := range s.records {
		if rec.Expired(now) {
			delete(s.records, tok)
		}
	}
}

// SetClock overrides the time source for tests.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}
