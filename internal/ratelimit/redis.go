package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript atomically increments the window counter and stamps the
// window TTL on first use.
// KEYS[1] = counter key
// ARGV[1] = window length in milliseconds
// Returns: [count, remaining ttl in milliseconds]
var fixedWindowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
    redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
return {count, ttl}
`)

// RedisLimiter is the shared-store swap-in for multi-instance deployments.
// It keeps the same fixed-window semantics as MemoryLimiter; Redis handles
// expiry instead of lazy eviction. Checks fail open on Redis errors.
type RedisLimiter struct {
	rdb         *redis.Client
	window      time.Duration
	maxRequests int
}

func NewRedisLimiter(rdb *redis.Client, window time.Duration, maxRequests int) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, window: window, maxRequests: maxRequests}
}

// Allow implements Limiter.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := time.Now()
	if l.rdb == nil {
		return Decision{Allowed: true, Remaining: l.maxRequests - 1, ResetAt: now.Add(l.window)}, nil
	}

	redisKey := fmt.Sprintf("draftly:rl:%s", key)
	result, err := fixedWindowScript.Run(ctx, l.rdb, []string{redisKey}, l.window.Milliseconds()).Int64Slice()
	if err != nil || len(result) < 2 {
		// Fail open on Redis errors
		return Decision{Allowed: true, Remaining: l.maxRequests, ResetAt: now.Add(l.window)}, nil
	}

	count := int(result[0])
	resetAt := now.Add(time.Duration(result[1]) * time.Millisecond)

	remaining := l.maxRequests - count
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   count <= l.maxRequests,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}
