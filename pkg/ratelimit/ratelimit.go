package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Limiter is a fixed-window counter stored in Redis.
type Limiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// Result describes a single Allow decision.
type Result struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
}

func NewLimiter(rdb *redis.Client, limit int, window time.Duration, logger *zap.Logger) *Limiter {
	return &Limiter{rdb: rdb, limit: limit, window: window, now: time.Now, logger: logger}
}

// Allow counts one request for key in the current window. A limit of
// zero disables limiting. Redis errors fail open.
func (l *Limiter) Allow(ctx context.Context, key string) Result {
	if l.limit <= 0 {
		return Result{Allowed: true, Remaining: -1}
	}

	now := l.now()
	windowStart := now.Truncate(l.window)
	resetIn := windowStart.Add(l.window).Sub(now)
	redisKey := fmt.Sprintf("rl:%s:%d", key, windowStart.Unix())

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		l.logger.Warn("Rate limiter unavailable, allowing request",
			zap.String("key", key),
			zap.Error(err),
		)
		return Result{Allowed: true, Remaining: -1, ResetIn: resetIn}
	}

	count := int(incr.Val())
	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: count <= l.limit, Remaining: remaining, ResetIn: resetIn}
}
