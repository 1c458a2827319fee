// Package runner holds the periodic jobs: overdue marking every tick and
// a daily pass that resets broken streaks and regenerates insights.
package runner

import (
	"context"
	"time"

	"go.uber.org/zap"

	"gather/internal/model"
)

type OverdueMarker interface {
	MarkOverdue(ctx context.Context) (int64, error)
}

type StreakResetter interface {
	ResetBrokenStreaks(ctx context.Context) (int64, error)
}

type ActiveUsers interface {
	ListActiveIDs(ctx context.Context, days int) ([]int64, error)
}

type InsightRefresher interface {
	Refresh(ctx context.Context, userID int64) ([]model.Insight, error)
}

// activeDays is how recently a user must have done something to get a
// daily insight refresh.
const activeDays = 30

type Orchestrator struct {
	tasks    OverdueMarker
	habits   StreakResetter
	users    ActiveUsers
	insights InsightRefresher
	logger   *zap.Logger

	interval time.Duration
	daily    time.Duration
}

func NewOrchestrator(tasks OverdueMarker, habits StreakResetter, users ActiveUsers, insights InsightRefresher, interval time.Duration, logger *zap.Logger) *Orchestrator {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Orchestrator{
		tasks:    tasks,
		habits:   habits,
		users:    users,
		insights: insights,
		logger:   logger,
		interval: interval,
		daily:    24 * time.Hour,
	}
}

// CheckAndMarkOverdue moves open tasks past their due date to overdue.
func (o *Orchestrator) CheckAndMarkOverdue(ctx context.Context) error {
	n, err := o.tasks.MarkOverdue(ctx)
	if err != nil {
		o.logger.Error("Failed to mark tasks as overdue", zap.Error(err))
		return err
	}
	if n > 0 {
		o.logger.Info("Overdue check completed", zap.Int64("overdue_count", n))
	} else {
		o.logger.Debug("No overdue tasks found")
	}
	return nil
}

// ResetStreaks zeroes streaks whose habit was not checked yesterday.
func (o *Orchestrator) ResetStreaks(ctx context.Context) error {
	n, err := o.habits.ResetBrokenStreaks(ctx)
	if err != nil {
		o.logger.Error("Failed to reset broken streaks", zap.Error(err))
		return err
	}
	o.logger.Info("Streak reset completed", zap.Int64("reset_count", n))
	return nil
}

// RefreshInsights regenerates insights for recently active users. One
// user's failure does not stop the pass.
func (o *Orchestrator) RefreshInsights(ctx context.Context) error {
	ids, err := o.users.ListActiveIDs(ctx, activeDays)
	if err != nil {
		o.logger.Error("Failed to list active users", zap.Error(err))
		return err
	}
	failed := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := o.insights.Refresh(ctx, id); err != nil {
			failed++
			o.logger.Warn("Insight refresh failed", zap.Int64("user_id", id), zap.Error(err))
		}
	}
	o.logger.Info("Insight pass completed", zap.Int("users", len(ids)), zap.Int("failed", failed))
	return nil
}

func (o *Orchestrator) runDaily(ctx context.Context) {
	_ = o.ResetStreaks(ctx)
	_ = o.RefreshInsights(ctx)
}

// Start runs every job once and then on its schedule until ctx is done.
func (o *Orchestrator) Start(ctx context.Context) {
	o.logger.Info("Runner started",
		zap.Duration("interval", o.interval),
		zap.Duration("daily", o.daily),
	)
	_ = o.CheckAndMarkOverdue(ctx)
	o.runDaily(ctx)

	tick := time.NewTicker(o.interval)
	defer tick.Stop()
	day := time.NewTicker(o.daily)
	defer day.Stop()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("Runner stopped")
			return
		case <-tick.C:
			_ = o.CheckAndMarkOverdue(ctx)
		case <-day.C:
			o.runDaily(ctx)
		}
	}
}
