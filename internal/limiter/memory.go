package limiter

import (
	"context"
	"sync"
	"time"

	"recovery-service/internal/models"
)

// MemoryLimiter is the in-process backend: a locked map of
// RateLimitRecord per identifier. Suitable for a single instance and
// for the client-side check in the recovery flow; multi-instance
// deployments need the Redis backend so concurrent handlers share one
// counter.
type MemoryLimiter struct {
	mu      sync.Mutex
	records map[string]*models.RateLimitRecord
	now     func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		records: make(map[string]*models.RateLimitRecord),
		now:     time.Now,
	}
}

// Allow implements Limiter with a single lock around the
// read-modify-write so concurrent callers on one key cannot both pass
// the maximum.
func (l *MemoryLimiter) Allow(_ context.Context, identifier string, maxAttempts int, window time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	rec, ok := l.records[identifier]
	if !ok || now.After(rec.ResetAt) {
		l.records[identifier] = &models.RateLimitRecord{
			Identifier: identifier,
			Attempts:   1,
			ResetAt:    now.Add(window),
		}
		return true, nil
	}

	if rec.Attempts >= maxAttempts {
		return false, nil
	}

	rec.Attempts++
	return true, nil
}

// Sweep drops expired records. Correctness never depends on it; it only
// bounds memory for long-running processes.
func (l *MemoryLimiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for id, rec := range l.records {
		if now.After(rec.ResetAt) {
			delete(l.records, id)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep on an interval until ctx is done.
func (l *MemoryLimiter) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.Sweep()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// SetClock replaces the time source. Tests use this to cross window
// boundaries without sleeping.
func (l *MemoryLimiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}
