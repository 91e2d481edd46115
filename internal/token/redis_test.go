package token

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"recovery-service/internal/client"
)

func newTestRedisStore(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	return mr, NewRedisStore(client.NewRedisClientFromAddr(mr.Addr()))
}

func TestRedisStoreIssueAndConsume(t *testing.T) {
	_, s := newTestRedisStore(t)
	ctx := context.Background()

	tok, err := s.Issue(ctx, "u1", "alice@campus.edu", 10*time.Minute)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	rec, err := s.Consume(ctx, tok)
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if rec.UserID != "u1" || rec.Email != "alice@campus.edu" {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestRedisStoreSingleUse(t *testing.T) {
	_, s := newTestRedisStore(t)
	ctx := context.Background()

	tok, _ := s.Issue(ctx, "u1", "alice@campus.edu", 10*time.Minute)
	if _, err := s.Consume(ctx, tok); err != nil {
		t.Fatalf("first consume failed: %v", err)
	}
	if _, err := s.Consume(ctx, tok); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second consume should report not found, got %v", err)
	}
}

func TestRedisStoreExpiry(t *testing.T) {
	mr, s := newTestRedisStore(t)
	ctx := context.Background()

	tok, _ := s.Issue(ctx, "u1", "alice@campus.edu", time.Minute)

	mr.FastForward(61 * time.Second)

	if _, err := s.Consume(ctx, tok); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired key should be gone from redis, got %v", err)
	}
}

func TestRedisStoreStaleRecordReportsExpired(t *testing.T) {
	mr, s := newTestRedisStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base
	s.now = func() time.Time { return now }

	tok, _ := s.Issue(ctx, "u1", "alice@campus.edu", time.Minute)

	// Key still present in redis but past its recorded window. The
	// consume must report expired and still have spent the token.
	now = base.Add(2 * time.Minute)
	if _, err := s.Consume(ctx, tok); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected expired error, got %v", err)
	}
	if mr.Exists(tokenPrefix + tok) {
		t.Fatal("expired consume should have deleted the key")
	}
}

func TestRedisStoreUnknownToken(t *testing.T) {
	_, s := newTestRedisStore(t)
	if _, err := s.Consume(context.Background(), "no-such-token"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
