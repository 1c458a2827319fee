package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"gather/internal/model"
	"gather/internal/rewards"
)

type StatsRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewStatsRepository(db *pgxpool.Pool, logger *zap.Logger) *StatsRepository {
	return &StatsRepository{db: db, logger: logger}
}

const statsColumns = `user_id, points, level, tasks_completed, steps_completed, habits_checked, updated_at`

func (r *StatsRepository) Get(ctx context.Context, userID int64) (*model.UserStats, error) {
	var s model.UserStats
	err := r.db.QueryRow(ctx, `SELECT `+statsColumns+` FROM user_stats WHERE user_id = $1`, userID).Scan(
		&s.UserID, &s.Points, &s.Level, &s.TasksCompleted, &s.StepsCompleted, &s.HabitsChecked, &s.UpdatedAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

// Award adds points for reason and bumps the matching counter. The level
// is recomputed in the same statement.
func (r *StatsRepository) Award(ctx context.Context, userID int64, reason rewards.Reason, points int) (*model.UserStats, error) {
	r.logger.Debug("Awarding points",
		zap.Int64("user_id", userID),
		zap.String("reason", string(reason)),
		zap.Int("points", points),
	)
	var task, step, habit int
	switch reason {
	case rewards.ReasonTask:
		task = 1
	case rewards.ReasonStep:
		step = 1
	case rewards.ReasonHabit:
		habit = 1
	}
	var s model.UserStats
	err := r.db.QueryRow(ctx, `
        INSERT INTO user_stats (user_id, points, level, tasks_completed, steps_completed, habits_checked)
        VALUES ($1, $2, 1 + $2::int / $6::int, $3, $4, $5)
        ON CONFLICT (user_id) DO UPDATE
        SET points = user_stats.points + EXCLUDED.points,
            level = 1 + (user_stats.points + EXCLUDED.points) / $6::int,
            tasks_completed = user_stats.tasks_completed + EXCLUDED.tasks_completed,
            steps_completed = user_stats.steps_completed + EXCLUDED.steps_completed,
            habits_checked = user_stats.habits_checked + EXCLUDED.habits_checked,
            updated_at = NOW()
        RETURNING `+statsColumns,
		userID, points, task, step, habit, rewards.PointsPerLevel,
	).Scan(&s.UserID, &s.Points, &s.Level, &s.TasksCompleted, &s.StepsCompleted, &s.HabitsChecked, &s.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to award points", zap.Error(err), zap.Int64("user_id", userID))
		return nil, translate(err)
	}
	r.logger.Info("Points awarded",
		zap.Int64("user_id", userID),
		zap.Int("points", s.Points),
		zap.Int("level", s.Level),
	)
	return &s, nil
}
