package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"recovery-service/internal/client"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *client.RedisClient) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	return mr, client.NewRedisClientFromAddr(mr.Addr())
}

func TestRedisLimiterAllowsUpToMax(t *testing.T) {
	_, rc := newTestRedis(t)
	l := NewRedisLimiter(rc)
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

func TestRedisLimiterWindowExpiry(t *testing.T) {
	mr, rc := newTestRedis(t)
	l := NewRedisLimiter(rc)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		l.Allow(ctx, "key", 3, time.Minute)
	}
	if allowed, _ := l.Allow(ctx, "key", 3, time.Minute); allowed {
		t.Fatal("limited key should be rejected inside the window")
	}

	mr.FastForward(61 * time.Second)

	if allowed, _ := l.Allow(ctx, "key", 3, time.Minute); !allowed {
		t.Fatal("expired window should reset the counter")
	}
}

func TestRedisLimiterRejectionDoesNotResetExpiry(t *testing.T) {
	mr, rc := newTestRedis(t)
	l := NewRedisLimiter(rc)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		l.Allow(ctx, "key", 2, time.Minute)
	}

	// Burn half the window, keep hammering, then check the original
	// expiry still stands.
	mr.FastForward(30 * time.Second)
	for i := 0; i < 5; i++ {
		if allowed, _ := l.Allow(ctx, "key", 2, time.Minute); allowed {
			t.Fatal("limited key should stay rejected")
		}
	}
	mr.FastForward(31 * time.Second)

	if allowed, _ := l.Allow(ctx, "key", 2, time.Minute); !allowed {
		t.Fatal("window should expire on the original schedule")
	}
}

func TestRedisLimiterIsolatesIdentifiers(t *testing.T) {
	_, rc := newTestRedis(t)
	l := NewRedisLimiter(rc)
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
