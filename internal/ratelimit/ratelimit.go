// Package ratelimit throttles model-backed calls per user. Redis carries the
// counters when configured; otherwise, or when Redis fails, a process-local
// token bucket takes over.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Result of one Allow call.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter decides whether key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// PerMinute returns a limit of n requests per minute with a burst of n.
func PerMinute(n int) redis_rate.Limit {
	return redis_rate.PerMinute(n)
}

// RedisLimiter uses the GCRA implementation of redis_rate.
type RedisLimiter struct {
	limiter  *redis_rate.Limiter
	limit    redis_rate.Limit
	fallback *LocalLimiter
	logger   *zap.Logger
}

func NewRedisLimiter(rdb *redis.Client, limit redis_rate.Limit, logger *zap.Logger) *RedisLimiter {
	return &RedisLimiter{
		limiter:  redis_rate.NewLimiter(rdb),
		limit:    limit,
		fallback: NewLocalLimiter(limit),
		logger:   logger,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	res, err := l.limiter.Allow(ctx, "ratelimit:user:"+key, l.limit)
	if err != nil {
		l.logger.Warn("Redis rate limiter failed, using local limiter", zap.String("key", key), zap.Error(err))
		return l.fallback.Allow(ctx, key)
	}
	return Result{Allowed: res.Allowed > 0, Remaining: res.Remaining, RetryAfter: res.RetryAfter}, nil
}

type localEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// LocalLimiter keeps one token bucket per key. Idle buckets are dropped on
// access once they are older than ten minutes.
type LocalLimiter struct {
	mu       sync.Mutex
	limiters map[string]*localEntry
	interval time.Duration
	burst    int
	now      func() time.Time
	lastGC   time.Time
}

const entryTTL = 10 * time.Minute

func NewLocalLimiter(limit redis_rate.Limit) *LocalLimiter {
	interval := time.Second
	if limit.Rate > 0 {
		interval = limit.Period / time.Duration(limit.Rate)
	}
	return &LocalLimiter{
		limiters: make(map[string]*localEntry),
		interval: interval,
		burst:    limit.Burst,
		now:      time.Now,
	}
}

func (l *LocalLimiter) Allow(_ context.Context, key string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.gc(now)
	e, ok := l.limiters[key]
	if !ok {
		e = &localEntry{limiter: rate.NewLimiter(rate.Every(l.interval), l.burst)}
		l.limiters[key] = e
	}
	e.lastAccess = now

	if !e.limiter.AllowN(now, 1) {
		return Result{Allowed: false, RetryAfter: l.interval}, nil
	}
	remaining := int(e.limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: true, Remaining: remaining, RetryAfter: -1}, nil
}

func (l *LocalLimiter) gc(now time.Time) {
	if now.Sub(l.lastGC) < entryTTL {
		return
	}
	l.lastGC = now
	for k, e := range l.limiters {
		if now.Sub(e.lastAccess) > entryTTL {
			delete(l.limiters, k)
		}
	}
}
