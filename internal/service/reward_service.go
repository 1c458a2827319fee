package service

import (
	"context"

	"go.uber.org/zap"

	mqcontracts "gather/contracts/mq"
	"gather/internal/model"
	"gather/internal/rewards"
	"gather/pkg/metrics"
)

// InsightRefresher regenerates a user's insights.
type InsightRefresher interface {
	Refresh(ctx context.Context, userID int64) ([]model.Insight, error)
}

// RewardService runs in the worker and reacts to domain events: it grants
// points and keeps insights current.
type RewardService struct {
	stats    StatsStore
	insights InsightRefresher
	logger   *zap.Logger
}

func NewRewardService(stats StatsStore, insights InsightRefresher, logger *zap.Logger) *RewardService {
	return &RewardService{stats: stats, insights: insights, logger: logger}
}

func (s *RewardService) award(ctx context.Context, userID int64, reason rewards.Reason, points int) error {
	st, err := s.stats.Award(ctx, userID, reason, points)
	if err != nil {
		s.logger.Error("Failed to award points",
			zap.Error(err),
			zap.Int64("user_id", userID),
			zap.String("reason", string(reason)),
		)
		return err
	}
	metrics.AddRewardPoints(string(reason), points)
	s.logger.Info("Points awarded",
		zap.Int64("user_id", userID),
		zap.String("reason", string(reason)),
		zap.Int("points", points),
		zap.Int("total", st.Points),
		zap.Int("level", st.Level),
	)
	return nil
}

// refresh is best effort; a failed refresh must not redeliver the event
// and grant the points twice.
func (s *RewardService) refresh(ctx context.Context, userID int64) {
	if s.insights == nil {
		return
	}
	if _, err := s.insights.Refresh(ctx, userID); err != nil {
		s.logger.Warn("Insight refresh failed", zap.Error(err), zap.Int64("user_id", userID))
	}
}

func (s *RewardService) OnTaskCompleted(ctx context.Context, p mqcontracts.TaskCompletedPayload) error {
	if err := s.award(ctx, p.UserID, rewards.ReasonTask, rewards.TaskPoints(p.StepCount > 0)); err != nil {
		return err
	}
	s.refresh(ctx, p.UserID)
	return nil
}

func (s *RewardService) OnStepCompleted(ctx context.Context, p mqcontracts.StepCompletedPayload) error {
	return s.award(ctx, p.UserID, rewards.ReasonStep, rewards.StepPoints())
}

func (s *RewardService) OnHabitChecked(ctx context.Context, p mqcontracts.HabitCheckedPayload) error {
	return s.award(ctx, p.UserID, rewards.ReasonHabit, rewards.HabitPoints(p.Streak))
}

func (s *RewardService) OnMoodLogged(ctx context.Context, p mqcontracts.MoodLoggedPayload) error {
	s.refresh(ctx, p.UserID)
	return nil
}
