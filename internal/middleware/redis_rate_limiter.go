package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vidshare/backend/internal/logging"
)

// tokenBucket refills `refill` tokens every interval up to capacity and
// takes one token per call. Returns {allowed, remaining}.
var tokenBucket = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill = tonumber(ARGV[3])
local interval_ms = tonumber(ARGV[4])
local ttl_seconds = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])
if tokens == nil or last_refill == nil then
    tokens = capacity
    last_refill = now_ms
end

if interval_ms > 0 and refill > 0 then
    local intervals = math.floor(math.max(0, now_ms - last_refill) / interval_ms)
    if intervals > 0 then
        tokens = math.min(capacity, tokens + intervals * refill)
        last_refill = last_refill + intervals * interval_ms
    end
end

local allowed = 0
if tokens > 0 then
    allowed = 1
    tokens = tokens - 1
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)
return {allowed, tokens}
`)

// RedisRateLimiter is a token bucket shared by every replica through Redis.
// When Redis is unreachable requests are allowed and the failure is logged.
type RedisRateLimiter struct {
	client   redis.Scripter
	prefix   string
	capacity int
	interval time.Duration
	ttl      time.Duration
	now      func() time.Time
}

// NewRedisRateLimiter allows `requests` per `window` per key with `burst` capacity.
func NewRedisRateLimiter(client redis.Scripter, prefix string, requests int, window time.Duration, burst int) *RedisRateLimiter {
	if requests <= 0 {
		requests = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	if burst <= 0 {
		burst = 1
	}
	interval := max(window/time.Duration(requests), time.Millisecond)
	ttl := interval * time.Duration(burst+1)
	if ttl < time.Second {
		ttl = time.Second
	}
	return &RedisRateLimiter{
		client:   client,
		prefix:   prefix,
		capacity: burst,
		interval: interval,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Allow takes one token from key's bucket.
func (l *RedisRateLimiter) Allow(ctx context.Context, key string) bool {
	if key == "" {
		key = "unknown"
	}
	args := []any{
		l.now().UnixMilli(),
		l.capacity,
		1,
		l.interval.Milliseconds(),
		int64(l.ttl / time.Second),
	}

	vals, err := tokenBucket.Run(ctx, l.client, []string{l.prefix + ":" + key}, args...).Int64Slice()
	if err != nil || len(vals) != 2 {
		if err == nil {
			err = fmt.Errorf("unexpected script result %v", vals)
		}
		logging.FromContext(ctx).Warn("rate limiter unavailable, allowing request", "key", key, "error", err)
		return true
	}
	return vals[0] == 1
}
