package middleware

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter decides whether the caller identified by key may proceed.
type RateLimiter interface {
	Allow(ctx context.Context, key string) bool
}

var (
	_ RateLimiter = (*LocalRateLimiter)(nil)
	_ RateLimiter = (*RedisRateLimiter)(nil)
)

// maxTrackedKeys caps memory use when many distinct clients show up at once.
const maxTrackedKeys = 100_000

type bucket struct {
	limiter *rate.Limiter
	seen    time.Time
}

// LocalRateLimiter keeps one token bucket per key in process memory. It is
// used when no Redis is configured, so limits are per instance.
type LocalRateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	limit     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewIPRateLimiter allows `requests` events per `window` per key on top of
// a burst. Buckets idle for longer than idle are forgotten.
func NewIPRateLimiter(requests int, window time.Duration, burst int, idle time.Duration) *LocalRateLimiter {
	return newLocalRateLimiter(requests, window, burst, idle, time.Now)
}

func newLocalRateLimiter(requests int, window time.Duration, burst int, idle time.Duration, now func() time.Time) *LocalRateLimiter {
	requests = max(requests, 1)
	burst = max(burst, 1)
	if window <= 0 {
		window = time.Minute
	}
	if idle <= 0 {
		idle = 5 * time.Minute
	}

	return &LocalRateLimiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Every(window / time.Duration(requests)),
		burst:   burst,
		idle:    idle,
		now:     now,
	}
}

// Allow takes one token from key's bucket.
func (l *LocalRateLimiter) Allow(_ context.Context, key string) bool {
	if key == "" {
		key = "unknown"
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idle/2 {
		l.sweepLocked(now)
	}

	b, ok := l.buckets[key]
	if !ok {
		if len(l.buckets) >= maxTrackedKeys {
			l.evictOldestLocked()
		}
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.seen = now
	return b.limiter.AllowN(now, 1)
}

func (l *LocalRateLimiter) sweepLocked(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.seen) > l.idle {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
}

func (l *LocalRateLimiter) evictOldestLocked() {
	var (
		oldestKey string
		oldest    time.Time
	)
	for key, b := range l.buckets {
		if oldestKey == "" || b.seen.Before(oldest) {
			oldestKey, oldest = key, b.seen
		}
	}
	delete(l.buckets, oldestKey)
}
