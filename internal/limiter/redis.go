package limiter

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"recovery-service/internal/client"
	"recovery-service/internal/util"
)

const rateLimitPrefix = "rate_limit:"

// The script performs the whole check-and-consume atomically so two
// concurrent requests on one key cannot both observe "allowed" past the
// maximum. Key expiry is the window boundary: the key is created with
// PX window and replaced wholesale once Redis drops it.
const fixedWindowScript = `
local key = KEYS[1]
local max = tonumber(ARGV[1])
local window_ms = tonumber(ARGV[2])

local count = redis.call('GET', key)
if not count then
    redis.call('SET', key, 1, 'PX', window_ms)
    return 1
end
if tonumber(count) >= max then
    return 0
end
redis.call('INCR', key)
return 1
`

// RedisLimiter is the shared-store backend, required once more than one
// handler instance serves recovery traffic.
type RedisLimiter struct {
	client *client.RedisClient
}

func NewRedisLimiter(rc *client.RedisClient) *RedisLimiter {
	return &RedisLimiter{client: rc}
}

// Allow implements Limiter on top of the fixed-window Lua script.
func (l *RedisLimiter) Allow(ctx context.Context, identifier string, maxAttempts int, window time.Duration) (bool, error) {
	key := rateLimitPrefix + identifier

	result, err := l.client.Eval(ctx, fixedWindowScript, []string{key},
		maxAttempts, window.Milliseconds())
	if err != nil {
		util.Error("Failed to execute fixed window rate limit",
			zap.String("identifier", identifier),
			zap.Int("max_attempts", maxAttempts),
			zap.Duration("window", window),
			zap.Error(err))
		return false, fmt.Errorf("failed to execute fixed window rate limit: %w", err)
	}

	allowed, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected result type from rate limit script")
	}

	util.Debug("Rate limit check",
		zap.String("identifier", identifier),
		zap.Bool("allowed", allowed == 1))

	return allowed == 1, nil
}
