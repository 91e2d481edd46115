package limiter

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryLimiterAllowsUpToMax(t *testing.T) {
	l := NewMemoryLimiter()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		allowed, err := l.Allow(ctx, "alice@campus.edu", 5, time.Hour)
		if err != nil {
			t.Fatalf("Allow failed: %v", err)
		}
		if !allowed {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}

	allowed, err := l.Allow(ctx, "alice@campus.edu", 5, time.Hour)
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if allowed {
		t.Fatal("attempt past the maximum should be rejected")
	}
}

func TestMemoryLimiterRejectionDoesNotExtendWindow(t *testing.T) {
	l := NewMemoryLimiter()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base
	l.SetClock(func() time.Time { return now })

	for i := 0; i < 3; i++ {
		if allowed, _ := l.Allow(ctx, "key", 3, time.Hour); !allowed {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}

	// Hammering a limited key must not push the reset time out.
	now = base.Add(30 * time.Minute)
	for i := 0; i < 10; i++ {
		if allowed, _ := l.Allow(ctx, "key", 3, time.Hour); allowed {
			t.Fatal("limited key should stay rejected inside the window")
		}
	}

	now = base.Add(61 * time.Minute)
	if allowed, _ := l.Allow(ctx, "key", 3, time.Hour); !allowed {
		t.Fatal("expired window should reset the counter")
	}
}

func TestMemoryLimiterIsolatesIdentifiers(t *testing.T) {
	l := NewMemoryLimiter()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		l.Allow(ctx, "a", 3, time.Hour)
	}
	if allowed, _ := l.Allow(ctx, "a", 3, time.Hour); allowed {
		t.Fatal("identifier a should be limited")
	}
	if allowed, _ := l.Allow(ctx, "b", 3, time.Hour); !allowed {
		t.Fatal("identifier b should be unaffected")
	}
}

func TestMemoryLimiterConcurrentAccess(t *testing.T) {
	l := NewMemoryLimiter()
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	allowedCount := make(chan bool, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed, err := l.Allow(ctx, "shared", 5, time.Hour)
			if err != nil {
				t.Errorf("Allow failed: %v", err)
				return
			}
			allowedCount <- allowed
		}()
	}
	wg.Wait()
	close(allowedCount)

	total := 0
	for allowed := range allowedCount {
		if allowed {
			total++
		}
	}
	if total != 5 {
		t.Fatalf("expected exactly 5 allowed attempts, got %d", total)
	}
}

func TestMemoryLimiterSweep(t *testing.T) {
	l := NewMemoryLimiter()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base
	l.SetClock(func() time.Time { return now })

	l.Allow(ctx, "stale", 5, time.Minute)
	l.Allow(ctx, "fresh", 5, time.Hour)

	now = base.Add(2 * time.Minute)
	if removed := l.Sweep(); removed != 1 {
		t.Fatalf("expected 1 swept record, got %d", removed)
	}
}
