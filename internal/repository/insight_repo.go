package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"gather/internal/model"
)

type InsightRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewInsightRepository(db *pgxpool.Pool, logger *zap.Logger) *InsightRepository {
	return &InsightRepository{db: db, logger: logger}
}

// ListActive returns insights that have not been dismissed, newest first.
func (r *InsightRepository) ListActive(ctx context.Context, userID int64) ([]model.Insight, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, user_id, kind, title, body, data, created_at, dismissed_at
        FROM insights
        WHERE user_id = $1 AND dismissed_at IS NULL
        ORDER BY created_at DESC, id
    `, userID)
	if err != nil {
		r.logger.Error("Failed to list insights", zap.Error(err), zap.Int64("user_id", userID))
		return nil, err
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Insight, error) {
		var in model.Insight
		err := row.Scan(&in.ID, &in.UserID, &in.Kind, &in.Title, &in.Body, &in.Data, &in.CreatedAt, &in.DismissedAt)
		return in, err
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Insight{}
	}
	return out, nil
}

// Replace swaps the user's active insights for a freshly generated set.
// Dismissed insights are kept as history.
func (r *InsightRepository) Replace(ctx context.Context, userID int64, insights []model.Insight) error {
	r.logger.Debug("Replacing insights", zap.Int64("user_id", userID), zap.Int("count", len(insights)))
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM insights WHERE user_id = $1 AND dismissed_at IS NULL`, userID); err != nil {
			return err
		}
		for i := range insights {
			in := &insights[i]
			in.UserID = userID
			data := in.Data
			if len(data) == 0 {
				data = []byte("{}")
			}
			if err := tx.QueryRow(ctx, `
                INSERT INTO insights (user_id, kind, title, body, data)
                VALUES ($1, $2, $3, $4, $5)
                RETURNING id, created_at
            `, userID, in.Kind, in.Title, in.Body, data).Scan(&in.ID, &in.CreatedAt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to replace insights", zap.Error(err), zap.Int64("user_id", userID))
		return translate(err)
	}
	r.logger.Info("Insights replaced", zap.Int64("user_id", userID), zap.Int("count", len(insights)))
	return nil
}

// Dismiss hides an insight and counts the dismissal against its kind.
func (r *InsightRepository) Dismiss(ctx context.Context, userID, id int64) error {
	r.logger.Debug("Dismissing insight", zap.Int64("insight_id", id))
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var kind string
		if err := tx.QueryRow(ctx, `
            UPDATE insights SET dismissed_at = NOW()
            WHERE id = $1 AND user_id = $2 AND dismissed_at IS NULL
            RETURNING kind
        `, id, userID).Scan(&kind); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
            INSERT INTO insight_dismissals (user_id, kind, count) VALUES ($1, $2, 1)
            ON CONFLICT (user_id, kind) DO UPDATE SET count = insight_dismissals.count + 1
        `, userID, kind)
		return err
	})
	if err != nil {
		err = translate(err)
		r.logger.Error("Failed to dismiss insight", zap.Error(err), zap.Int64("insight_id", id))
		return err
	}
	r.logger.Info("Insight dismissed", zap.Int64("insight_id", id))
	return nil
}

func (r *InsightRepository) DismissalCounts(ctx context.Context, userID int64) (map[model.InsightKind]int, error) {
	rows, err := r.db.Query(ctx, `SELECT kind, count FROM insight_dismissals WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[model.InsightKind]int)
	for rows.Next() {
		var kind model.InsightKind
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		out[kind] = n
	}
	return out, rows.Err()
}
