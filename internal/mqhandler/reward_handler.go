package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	mqcontracts "gather/contracts/mq"
	"gather/pkg/logger"
	"gather/pkg/util"
)

// Rewarder is implemented by *service.RewardService.
type Rewarder interface {
	OnTaskCompleted(ctx context.Context, p mqcontracts.TaskCompletedPayload) error
	OnStepCompleted(ctx context.Context, p mqcontracts.StepCompletedPayload) error
	OnHabitChecked(ctx context.Context, p mqcontracts.HabitCheckedPayload) error
	OnMoodLogged(ctx context.Context, p mqcontracts.MoodLoggedPayload) error
}

// RewardHandler turns outbox events into reward and insight updates. Each
// event is processed at most once per handler name; a failed attempt
// releases its dedup key so redelivery can retry it.
type RewardHandler struct {
	rewards Rewarder
	deduper *util.Deduper
	logger  *zap.Logger
}

func NewRewardHandler(rewards Rewarder, deduper *util.Deduper, logger *zap.Logger) *RewardHandler {
	return &RewardHandler{rewards: rewards, deduper: deduper, logger: logger}
}

func handleOnce[T any](ctx context.Context, h *RewardHandler, name string, raw json.RawMessage, eventID func(T) string, fn func(context.Context, T) error) error {
	log := logger.WithTrace(ctx, h.logger)
	var p T
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Error("Failed to unmarshal payload", zap.String("handler", name), zap.Error(err))
		return fmt.Errorf("unmarshal %s payload: %w", name, err)
	}
	id := eventID(p)
	if id != "" && h.deduper != nil {
		if !h.deduper.AcquireOnce(ctx, name, id) {
			return nil
		}
	}
	if err := fn(ctx, p); err != nil {
		if id != "" && h.deduper != nil {
			h.deduper.Release(ctx, name, id)
		}
		log.Error("Event handling failed", zap.String("handler", name), zap.String("event_id", id), zap.Error(err))
		return err
	}
	log.Debug("Event handled", zap.String("handler", name), zap.String("event_id", id))
	return nil
}

func (h *RewardHandler) HandleTaskCompleted(ctx context.Context, raw json.RawMessage) error {
	return handleOnce(ctx, h, "reward.task_completed", raw,
		func(p mqcontracts.TaskCompletedPayload) string { return p.EventID }, h.rewards.OnTaskCompleted)
}

func (h *RewardHandler) HandleStepCompleted(ctx context.Context, raw json.RawMessage) error {
	return handleOnce(ctx, h, "reward.step_completed", raw,
		func(p mqcontracts.StepCompletedPayload) string { return p.EventID }, h.rewards.OnStepCompleted)
}

func (h *RewardHandler) HandleHabitChecked(ctx context.Context, raw json.RawMessage) error {
	return handleOnce(ctx, h, "reward.habit_checked", raw,
		func(p mqcontracts.HabitCheckedPayload) string { return p.EventID }, h.rewards.OnHabitChecked)
}

func (h *RewardHandler) HandleMoodLogged(ctx context.Context, raw json.RawMessage) error {
	return handleOnce(ctx, h, "insight.mood_logged", raw,
		func(p mqcontracts.MoodLoggedPayload) string { return p.EventID }, h.rewards.OnMoodLogged)
}
