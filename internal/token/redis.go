package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"recovery-service/internal/client"
	"recovery-service/internal/models"
	"recovery-service/internal/util"
)

const tokenPrefix = "recovery_token:"

// consumeScript fetches and deletes the token record in one atomic
// step. GET followed by DEL from Go would let two racing consumers both
// read the value before either deletes it.
const consumeScript = `
local value = redis.call('GET', KEYS[1])
if value == false then
    return false
end
redis.call('DEL', KEYS[1])
return value
`

// RedisStore keeps verification tokens in Redis with a server-side TTL
// matching the record's validity window.
type RedisStore struct {
	redisClient *client.RedisClient
	now         func() time.Time
}

// NewRedisStore creates a token store backed by the given Redis client.
func NewRedisStore(redisClient *client.RedisClient) *RedisStore {
	return &RedisStore{
		redisClient: redisClient,
		now:         time.Now,
	}
}

// Issue generates a token and stores its record under the token key,
// letting Redis expire it at the end of the window.
func (s *RedisStore) Issue(ctx context.Context, userID, email string, ttl time.Duration) (string, error) {
	tok, err := newTokenString()
	if err != nil {
		return "", err
	}

	rec := models.VerificationToken{
		Token:     tok,
		UserID:    userID,
		Email:     email,
		ExpiresAt: s.now().Add(ttl),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("failed to marshal token record: %w", err)
	}

	if err := s.redisClient.Set(ctx, tokenPrefix+tok, string(data), ttl); err != nil {
		return "", fmt.Errorf("failed to store token: %w", err)
	}

	util.Debug("Verification token issued",
		util.String("userId", userID))
	return tok, nil
}

// Consume atomically fetches and deletes the record. Redis normally
// expires stale keys itself; the ExpiresAt check covers the narrow case
// where a key outlives its window between expiry cycles.
func (s *RedisStore) Consume(ctx context.Context, tok string) (*models.VerificationToken, error) {
	result, err := s.redisClient.Eval(ctx, consumeScript, []string{tokenPrefix + tok})
	if err != nil {
		// A script returning false surfaces as redis.Nil.
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to consume token: %w", err)
	}
	if result == nil {
		return nil, ErrNotFound
	}

	raw, ok := result.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected token payload type %T", result)
	}

	var rec models.VerificationToken
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token record: %w", err)
	}

	if rec.Expired(s.now()) {
		return nil, ErrExpired
	}
	return &rec, nil
}
