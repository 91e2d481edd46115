package token

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMemoryStoreIssueAndConsume(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	tok, err := s.Issue(ctx, "u1", "alice@campus.edu", 10*time.Minute)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if tok == "" {
		t.Fatal("expected non-empty token")
	}

	rec, err := s.Consume(ctx, tok)
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if rec.UserID != "u1" || rec.Email != "alice@campus.edu" {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestMemoryStoreSingleUse(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	tok, _ := s.Issue(ctx, "u1", "alice@campus.edu", 10*time.Minute)
	if _, err := s.Consume(ctx, tok); err != nil {
		t.Fatalf("first consume failed: %v", err)
	}
	if _, err := s.Consume(ctx, tok); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second consume should report not found, got %v", err)
	}
}

func TestMemoryStoreConcurrentConsume(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	tok, _ := s.Issue(ctx, "u1", "alice@campus.edu", 10*time.Minute)

	const workers = 10
	var wg sync.WaitGroup
	successes := make(chan struct{}, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Consume(ctx, tok); err == nil {
				successes <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(successes)

	count := 0
	for range successes {
		count++
	}
	if count != 1 {
		t.Fatalf("expected exactly one successful consume, got %d", count)
	}
}

func TestMemoryStoreExpiredTokenConsumedOnLookup(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base
	s.SetClock(func() time.Time { return now })

	tok, _ := s.Issue(ctx, "u1", "alice@campus.edu", 10*time.Minute)

	now = base.Add(11 * time.Minute)
	if _, err := s.Consume(ctx, tok); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected expired error, got %v", err)
	}

	// The expired lookup already spent the token.
	if _, err := s.Consume(ctx, tok); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found after expired consume, got %v", err)
	}
}

func TestMemoryStoreUnknownToken(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Consume(context.Background(), "no-such-token"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryStoreTokensAreUnique(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := s.Issue(ctx, "u1", "alice@campus.edu", time.Minute)
		if err != nil {
			t.Fatalf("Issue failed: %v", err)
		}
		if seen[tok] {
			t.Fatal("duplicate token issued")
		}
		seen[tok] = true
	}
}

func TestMemoryStoreSweep(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base
	s.SetClock(func() time.Time { return now })

	stale, _ := s.Issue(ctx, "u1", "a@campus.edu", time.Minute)
	fresh, _ := s.Issue(ctx, "u2", "b@campus.edu", time.Hour)

	now = base.Add(2 * time.Minute)
	s.Sweep()

	if _, err := s.Consume(ctx, stale); !errors.Is(err, ErrNotFound) {
		t.Fatalf("swept token should be gone, got %v", err)
	}
	if _, err := s.Consume(ctx, fresh); err != nil {
		t.Fatalf("fresh token should survive sweep: %v", err)
	}
}
