package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	mqcontracts "gather/contracts/mq"
	"gather/internal/model"
	"gather/internal/rewards"
	"gather/pkg/outbox"
)

const aggregateHabit = "habit"

type HabitRepository struct {
	db     *pgxpool.Pool
	outbox *outbox.Repository
	logger *zap.Logger
}

func NewHabitRepository(db *pgxpool.Pool, ob *outbox.Repository, logger *zap.Logger) *HabitRepository {
	return &HabitRepository{db: db, outbox: ob, logger: logger}
}

const habitColumns = `id, user_id, title, is_active, current_streak, longest_streak, last_checked_on, created_at`

func scanHabit(row pgx.Row, h *model.Habit) error {
	return row.Scan(&h.ID, &h.UserID, &h.Title, &h.IsActive, &h.CurrentStreak, &h.LongestStreak, &h.LastCheckedOn, &h.CreatedAt)
}

func (r *HabitRepository) Insert(ctx context.Context, h *model.Habit) error {
	r.logger.Debug("Inserting habit", zap.Int64("user_id", h.UserID), zap.String("title", h.Title))
	err := r.db.QueryRow(ctx, `
        INSERT INTO habits (user_id, title, is_active)
        VALUES ($1, $2, TRUE)
        RETURNING id, is_active, created_at
    `, h.UserID, h.Title).Scan(&h.ID, &h.IsActive, &h.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert habit", zap.Error(err))
		return translate(err)
	}
	r.logger.Info("Habit inserted successfully", zap.Int64("id", h.ID), zap.Int64("user_id", h.UserID))
	return nil
}

// ListActiveByUser returns active habits; CheckedToday is relative to today,
// a calendar date in the user's timezone.
func (r *HabitRepository) ListActiveByUser(ctx context.Context, userID int64, today time.Time) ([]model.Habit, error) {
	r.logger.Debug("Listing active habits for user", zap.Int64("user_id", userID))
	rows, err := r.db.Query(ctx, `SELECT `+habitColumns+`
        FROM habits
        WHERE user_id = $1 AND is_active = TRUE
        ORDER BY created_at`, userID)
	if err != nil {
		r.logger.Error("Failed to list habits", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	day := rewards.Date(today)
	habits := []model.Habit{}
	for rows.Next() {
		var h model.Habit
		if err := scanHabit(rows, &h); err != nil {
			r.logger.Error("Failed to scan habit", zap.Error(err))
			return nil, err
		}
		h.CheckedToday = h.LastCheckedOn != nil && rewards.Date(*h.LastCheckedOn).Equal(day)
		habits = append(habits, h)
	}
	r.logger.Debug("Listed habits", zap.Int64("user_id", userID), zap.Int("count", len(habits)))
	return habits, rows.Err()
}

// Deactivate hides a habit while keeping its history.
func (r *HabitRepository) Deactivate(ctx context.Context, userID, id int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE habits SET is_active = FALSE WHERE id = $1 AND user_id = $2 AND is_active`, id, userID)
	if err != nil {
		r.logger.Error("Failed to deactivate habit", zap.Error(err), zap.Int64("habit_id", id))
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	r.logger.Info("Habit deactivated", zap.Int64("habit_id", id))
	return nil
}

// Check records today's check-in and advances the streak. A second check
// on the same day returns the habit unchanged with checked=false.
func (r *HabitRepository) Check(ctx context.Context, userID, id int64, today time.Time) (habit *model.Habit, checked bool, err error) {
	r.logger.Debug("Checking habit", zap.Int64("habit_id", id), zap.Time("today", today))
	err = pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var h model.Habit
		if err := scanHabit(tx.QueryRow(ctx, `SELECT `+habitColumns+`
            FROM habits WHERE id = $1 AND user_id = $2 AND is_active FOR UPDATE`, id, userID), &h); err != nil {
			return err
		}
		habit = &h
		up := rewards.NextStreak(h.CurrentStreak, h.LongestStreak, h.LastCheckedOn, today)
		if !up.Changed {
			h.CheckedToday = true
			return nil
		}
		tag, err := tx.Exec(ctx, `
            INSERT INTO habit_checks (habit_id, checked_on) VALUES ($1, $2)
            ON CONFLICT DO NOTHING
        `, id, up.CheckedOn)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			h.CheckedToday = true
			return nil
		}
		if _, err := tx.Exec(ctx, `
            UPDATE habits SET current_streak = $1, longest_streak = $2, last_checked_on = $3
            WHERE id = $4
        `, up.Current, up.Longest, up.CheckedOn, id); err != nil {
			return err
		}
		h.CurrentStreak, h.LongestStreak = up.Current, up.Longest
		h.LastCheckedOn = &up.CheckedOn
		h.CheckedToday = true
		checked = true
		return enqueue(ctx, tx, r.outbox, aggregateHabit, id, mqcontracts.RoutingHabitChecked, mqcontracts.HabitCheckedPayload{
			EventID:   newEventID(),
			TraceID:   traceID(ctx),
			UserID:    userID,
			HabitID:   id,
			Streak:    up.Current,
			CheckedOn: up.CheckedOn.Format(time.DateOnly),
			At:        time.Now().UTC(),
		})
	})
	if err != nil {
		err = translate(err)
		r.logger.Error("Failed to check habit", zap.Error(err), zap.Int64("habit_id", id))
		return nil, false, err
	}
	r.logger.Info("Habit checked",
		zap.Int64("habit_id", id),
		zap.Bool("checked", checked),
		zap.Int("streak", habit.CurrentStreak),
	)
	return habit, checked, nil
}

// ResetBrokenStreaks zeroes streaks of habits not checked today or
// yesterday, judged in each user's timezone.
func (r *HabitRepository) ResetBrokenStreaks(ctx context.Context) (int64, error) {
	r.logger.Debug("Resetting broken habit streaks")
	tag, err := r.db.Exec(ctx, `
        UPDATE habits h
        SET current_streak = 0
        FROM preferences p
        WHERE p.user_id = h.user_id
        AND h.is_active
        AND h.current_streak > 0
        AND h.last_checked_on < (NOW() AT TIME ZONE p.timezone)::date - 1
    `)
	if err != nil {
		r.logger.Error("Failed to reset streaks", zap.Error(err))
		return 0, err
	}
	if n := tag.RowsAffected(); n > 0 {
		r.logger.Info("Broken streaks reset", zap.Int64("habits_updated", n))
	}
	return tag.RowsAffected(), nil
}
