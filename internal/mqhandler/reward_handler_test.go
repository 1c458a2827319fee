package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mqcontracts "gather/contracts/mq"
	"gather/pkg/util"
)

type countingRewarder struct {
	tasks, steps, habits, moods int
	fail                        error
}

func (c *countingRewarder) OnTaskCompleted(context.Context, mqcontracts.TaskCompletedPayload) error {
	c.tasks++
	return c.fail
}

func (c *countingRewarder) OnStepCompleted(context.Context, mqcontracts.StepCompletedPayload) error {
	c.steps++
	return c.fail
}

func (c *countingRewarder) OnHabitChecked(context.Context, mqcontracts.HabitCheckedPayload) error {
	c.habits++
	return c.fail
}

func (c *countingRewarder) OnMoodLogged(context.Context, mqcontracts.MoodLoggedPayload) error {
	c.moods++
	return c.fail
}

func newHandler(t *testing.T, r Rewarder) *RewardHandler {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRewardHandler(r, util.NewDeduper(rdb, time.Hour, zap.NewNop()), zap.NewNop())
}

func raw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestDuplicateEventsAreSkipped(t *testing.T) {
	ctx := context.Background()
	r := &countingRewarder{}
	h := newHandler(t, r)

	msg := raw(t, mqcontracts.StepCompletedPayload{EventID: "e1", UserID: 1, TaskID: 2, StepID: 3})
	require.NoError(t, h.HandleStepCompleted(ctx, msg))
	require.NoError(t, h.HandleStepCompleted(ctx, msg))
	assert.Equal(t, 1, r.steps)

	require.NoError(t, h.HandleStepCompleted(ctx, raw(t, mqcontracts.StepCompletedPayload{EventID: "e2", UserID: 1})))
	assert.Equal(t, 2, r.steps)
}

func TestFailedEventCanBeRetried(t *testing.T) {
	ctx := context.Background()
	r := &countingRewarder{fail: errors.New("db down")}
	h := newHandler(t, r)

	msg := raw(t, mqcontracts.HabitCheckedPayload{EventID: "h1", UserID: 1, HabitID: 4, Streak: 2})
	assert.Error(t, h.HandleHabitChecked(ctx, msg))

	r.fail = nil
	require.NoError(t, h.HandleHabitChecked(ctx, msg))
	assert.Equal(t, 2, r.habits)
}

func TestMalformedPayload(t *testing.T) {
	r := &countingRewarder{}
	h := newHandler(t, r)
	assert.Error(t, h.HandleTaskCompleted(context.Background(), json.RawMessage(`{"user_id":"x"`)))
	assert.Zero(t, r.tasks)
}
