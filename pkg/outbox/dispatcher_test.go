package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gather/pkg/trace"
)

type fakeStore struct {
	pending []*Event
	failed  []*Event
	sent    []int64
	marked  []int64
	reset   []int64
}

func (f *fakeStore) GetPendingEvents(context.Context, int) ([]*Event, error) { return f.pending, nil }
func (f *fakeStore) GetFailedEvents(context.Context, int) ([]*Event, error)  { return f.failed, nil }
func (f *fakeStore) MarkAsSent(_ context.Context, id int64) error {
	f.sent = append(f.sent, id)
	return nil
}
func (f *fakeStore) MarkAsFailed(_ context.Context, id int64, _ int) error {
	f.marked = append(f.marked, id)
	return nil
}
func (f *fakeStore) ResetForReplay(_ context.Context, id int64) error {
	f.reset = append(f.reset, id)
	return nil
}
func (f *fakeStore) GetEventByID(_ context.Context, id int64) (*Event, error) {
	for _, e := range append(f.pending, f.failed...) {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, ErrEventNotFound
}

type published struct {
	routingKey string
	traceID    string
	payload    any
}

type fakePublisher struct {
	fail map[string]bool
	out  []published
}

func (p *fakePublisher) PublishWithContext(ctx context.Context, routingKey string, payload any) error {
	if p.fail[routingKey] {
		return errors.New("broker down")
	}
	p.out = append(p.out, published{routingKey: routingKey, traceID: trace.FromContext(ctx), payload: payload})
	return nil
}

func TestDispatcherPublishesAndMarks(t *testing.T) {
	store := &fakeStore{pending: []*Event{
		{ID: 1, RoutingKey: "task.completed", Payload: json.RawMessage(`{"task_id":1,"trace_id":"t-1"}`)},
		{ID: 2, RoutingKey: "habit.checked", Payload: json.RawMessage(`{"habit_id":2}`)},
		{ID: 3, RoutingKey: "step.completed", Payload: json.RawMessage(`{not json`)},
	}}
	pub := &fakePublisher{fail: map[string]bool{"habit.checked": true}}

	d := NewDispatcher(store, pub, zap.NewNop())
	sent := d.ProcessPending(context.Background())

	assert.Equal(t, 1, sent)
	assert.Equal(t, []int64{1}, store.sent)
	assert.ElementsMatch(t, []int64{2, 3}, store.marked)
	require.Len(t, pub.out, 1)
	assert.Equal(t, "t-1", pub.out[0].traceID)
}

func TestReplayFallsBackToPending(t *testing.T) {
	store := &fakeStore{failed: []*Event{
		{ID: 7, RoutingKey: "task.completed", Payload: json.RawMessage(`{}`)},
		{ID: 8, RoutingKey: "habit.checked", Payload: json.RawMessage(`{}`)},
	}}
	pub := &fakePublisher{fail: map[string]bool{"habit.checked": true}}
	svc := NewReplayService(store, pub, zap.NewNop())

	n, err := svc.ReplayFailedEvents(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int64{7}, store.sent)
	assert.Equal(t, []int64{8}, store.reset)
}

func TestReplayUnknownEvent(t *testing.T) {
	svc := NewReplayService(&fakeStore{}, &fakePublisher{}, zap.NewNop())
	err := svc.ReplayEvent(context.Background(), 99)
	assert.ErrorIs(t, err, ErrEventNotFound)
}
