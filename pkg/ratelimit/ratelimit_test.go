package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLimiterWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	now := time.Date(2026, 1, 5, 10, 0, 10, 0, time.UTC)
	l := NewLimiter(rdb, 2, time.Minute, zap.NewNop())
	l.now = func() time.Time { return now }

	ctx := context.Background()
	r := l.Allow(ctx, "user:1")
	require.True(t, r.Allowed)
	assert.Equal(t, 1, r.Remaining)
	assert.Equal(t, 50*time.Second, r.ResetIn)

	require.True(t, l.Allow(ctx, "user:1").Allowed)
	r = l.Allow(ctx, "user:1")
	assert.False(t, r.Allowed)
	assert.Equal(t, 0, r.Remaining)

	// other keys have their own budget
	assert.True(t, l.Allow(ctx, "user:2").Allowed)

	// next window starts fresh
	now = now.Add(time.Minute)
	assert.True(t, l.Allow(ctx, "user:1").Allowed)
}

func TestLimiterDisabled(t *testing.T) {
	l := NewLimiter(nil, 0, time.Minute, zap.NewNop())
	assert.True(t, l.Allow(context.Background(), "any").Allowed)
}

func TestLimiterFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	mr.Close()

	l := NewLimiter(rdb, 1, time.Minute, zap.NewNop())
	assert.True(t, l.Allow(context.Background(), "user:1").Allowed)
}
