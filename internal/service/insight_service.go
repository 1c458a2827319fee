package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"gather/internal/intelligence"
	"gather/internal/model"
)

// completionWindow bounds how far back productive-hours analysis looks.
const completionWindow = 90 * 24 * time.Hour

type InsightService struct {
	insights InsightStore
	tasks    TaskStore
	moods    MoodStore
	users    UserStore
	logger   *zap.Logger
	now      func() time.Time
}

func NewInsightService(insights InsightStore, tasks TaskStore, moods MoodStore, users UserStore, logger *zap.Logger) *InsightService {
	return &InsightService{insights: insights, tasks: tasks, moods: moods, users: users, logger: logger, now: time.Now}
}

func (s *InsightService) List(ctx context.Context, userID int64) ([]model.Insight, error) {
	return s.insights.ListActive(ctx, userID)
}

func (s *InsightService) Dismiss(ctx context.Context, userID, id int64) error {
	return s.insights.Dismiss(ctx, userID, id)
}

// Refresh regenerates the user's insights from their tasks, completions
// and moods and returns the new active set.
func (s *InsightService) Refresh(ctx context.Context, userID int64) ([]model.Insight, error) {
	now := s.now()
	in := intelligence.InsightInput{Now: now, Location: time.UTC}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tasks, err := s.tasks.List(gctx, userID, "")
		in.Tasks = tasks
		return err
	})
	g.Go(func() error {
		times, err := s.tasks.CompletionTimes(gctx, userID, now.Add(-completionWindow))
		in.Completions = times
		return err
	})
	g.Go(func() error {
		moods, err := s.moods.ListSince(gctx, userID, now.AddDate(0, 0, -14))
		in.Moods = moods
		return err
	})
	g.Go(func() error {
		counts, err := s.insights.DismissalCounts(gctx, userID)
		in.Dismissals = counts
		return err
	})
	g.Go(func() error {
		p, err := s.users.GetPreferences(gctx, userID)
		if err == nil {
			in.Location = p.Location()
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("Failed to load insight inputs", zap.Error(err), zap.Int64("user_id", userID))
		return nil, err
	}

	generated := intelligence.Insights(in)
	if err := s.insights.Replace(ctx, userID, generated); err != nil {
		return nil, err
	}
	s.logger.Info("Insights refreshed", zap.Int64("user_id", userID), zap.Int("count", len(generated)))
	return s.insights.ListActive(ctx, userID)
}

// ProductiveHours returns the raw completion histogram in the user's
// timezone.
func (s *InsightService) ProductiveHours(ctx context.Context, userID int64) (intelligence.ProductiveHoursReport, error) {
	now := s.now()
	times, err := s.tasks.CompletionTimes(ctx, userID, now.Add(-completionWindow))
	if err != nil {
		return intelligence.ProductiveHoursReport{}, err
	}
	loc := localNow(ctx, s.users, userID, now).Location()
	return intelligence.ProductiveHours(times, loc), nil
}
