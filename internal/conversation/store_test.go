package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gather/internal/model"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb, 0, zap.NewNop()), mr
}

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	sess, err := store.Create(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, sess.State)
	assert.True(t, mr.Exists("conv:"+sess.ID))
	assert.Equal(t, DefaultTTL, mr.TTL("conv:"+sess.ID))

	updated, err := store.Apply(ctx, sess.ID, 42, Event{Type: EventSubmit, Text: "file taxes"})
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingAIResponse, updated.State)

	got, err := store.Get(ctx, sess.ID, 42)
	require.NoError(t, err)
	assert.Equal(t, "file taxes", got.Input)
}

func TestStoreOwnership(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	sess, err := store.Create(ctx, 1)
	require.NoError(t, err)

	_, err = store.Get(ctx, sess.ID, 2)
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = store.Apply(ctx, sess.ID, 2, Event{Type: EventSubmit, Text: "x"})
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = store.Get(ctx, "missing", 1)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestStoreInvalidEventNotPersisted(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	sess, err := store.Create(ctx, 1)
	require.NoError(t, err)

	_, err = store.Apply(ctx, sess.ID, 1, Event{Type: EventBack})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	got, err := store.Get(ctx, sess.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, got.State)
}

func TestStoreSlidingTTL(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)
	sess, err := store.Create(ctx, 1)
	require.NoError(t, err)

	mr.FastForward(20 * time.Minute)
	_, err = store.Get(ctx, sess.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, mr.TTL("conv:"+sess.ID))

	mr.FastForward(DefaultTTL + time.Second)
	_, err = store.Get(ctx, sess.ID, 1)
	assert.ErrorIs(t, err, model.ErrNotFound)
}
