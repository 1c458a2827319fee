package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"gather/internal/model"
	"gather/internal/rewards"
)

type HabitService struct {
	habits HabitStore
	users  UserStore
	logger *zap.Logger
	now    func() time.Time
}

func NewHabitService(habits HabitStore, users UserStore, logger *zap.Logger) *HabitService {
	return &HabitService{habits: habits, users: users, logger: logger, now: time.Now}
}

func (s *HabitService) today(ctx context.Context, userID int64) time.Time {
	return rewards.Date(localNow(ctx, s.users, userID, s.now()))
}

func (s *HabitService) List(ctx context.Context, userID int64) ([]model.Habit, error) {
	return s.habits.ListActiveByUser(ctx, userID, s.today(ctx, userID))
}

func (s *HabitService) Create(ctx context.Context, userID int64, title string) (*model.Habit, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", model.ErrInvalidInput)
	}
	h := &model.Habit{UserID: userID, Title: title, IsActive: true}
	if err := s.habits.Insert(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

// Check marks the habit done for the user's local today. A second check on
// the same day returns the habit unchanged.
func (s *HabitService) Check(ctx context.Context, userID, id int64) (*model.Habit, error) {
	h, changed, err := s.habits.Check(ctx, userID, id, s.today(ctx, userID))
	if err != nil {
		return nil, err
	}
	if changed {
		s.logger.Info("Habit checked",
			zap.Int64("habit_id", id),
			zap.Int64("user_id", userID),
			zap.Int("streak", h.CurrentStreak),
		)
	}
	return h, nil
}

func (s *HabitService) Delete(ctx context.Context, userID, id int64) error {
	return s.habits.Deactivate(ctx, userID, id)
}
