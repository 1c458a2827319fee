package runner

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"gather/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeJobs struct {
	overdue  atomic.Int32
	resets   atomic.Int32
	refresh  atomic.Int32
	failUser int64
}

func (f *fakeJobs) MarkOverdue(context.Context) (int64, error) {
	f.overdue.Add(1)
	return 2, nil
}

func (f *fakeJobs) ResetBrokenStreaks(context.Context) (int64, error) {
	f.resets.Add(1)
	return 1, nil
}

func (f *fakeJobs) ListActiveIDs(context.Context, int) ([]int64, error) {
	return []int64{1, 2, 3}, nil
}

func (f *fakeJobs) Refresh(_ context.Context, userID int64) ([]model.Insight, error) {
	f.refresh.Add(1)
	if userID == f.failUser {
		return nil, errors.New("boom")
	}
	return nil, nil
}

func TestRefreshInsightsContinuesPastFailures(t *testing.T) {
	f := &fakeJobs{failUser: 2}
	o := NewOrchestrator(f, f, f, f, time.Minute, zap.NewNop())
	require.NoError(t, o.RefreshInsights(context.Background()))
	assert.EqualValues(t, 3, f.refresh.Load())
}

func TestStartRunsJobsUntilCancelled(t *testing.T) {
	f := &fakeJobs{}
	o := NewOrchestrator(f, f, f, f, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		o.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return f.overdue.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}
	assert.EqualValues(t, 1, f.resets.Load())
	assert.EqualValues(t, 3, f.refresh.Load())
}
