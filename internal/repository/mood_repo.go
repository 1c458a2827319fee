package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	mqcontracts "gather/contracts/mq"
	"gather/internal/model"
	"gather/pkg/outbox"
)

type MoodRepository struct {
	db     *pgxpool.Pool
	outbox *outbox.Repository
	logger *zap.Logger
}

func NewMoodRepository(db *pgxpool.Pool, ob *outbox.Repository, logger *zap.Logger) *MoodRepository {
	return &MoodRepository{db: db, outbox: ob, logger: logger}
}

func (r *MoodRepository) Insert(ctx context.Context, m *model.MoodEntry) error {
	r.logger.Debug("Inserting mood entry", zap.Int64("user_id", m.UserID), zap.Int("mood", m.Mood), zap.Int("energy", m.Energy))
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `
            INSERT INTO mood_entries (user_id, mood, energy, note)
            VALUES ($1, $2, $3, $4)
            RETURNING id, created_at
        `, m.UserID, m.Mood, m.Energy, m.Note).Scan(&m.ID, &m.CreatedAt); err != nil {
			return err
		}
		return enqueue(ctx, tx, r.outbox, "mood", m.ID, mqcontracts.RoutingMoodLogged, mqcontracts.MoodLoggedPayload{
			EventID: newEventID(),
			TraceID: traceID(ctx),
			UserID:  m.UserID,
			EntryID: m.ID,
			Mood:    m.Mood,
			Energy:  m.Energy,
			At:      m.CreatedAt,
		})
	})
	if err != nil {
		r.logger.Error("Failed to insert mood entry", zap.Error(err), zap.Int64("user_id", m.UserID))
		return translate(err)
	}
	r.logger.Info("Mood entry inserted", zap.Int64("entry_id", m.ID))
	return nil
}

// ListSince returns entries newest first.
func (r *MoodRepository) ListSince(ctx context.Context, userID int64, since time.Time) ([]model.MoodEntry, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, user_id, mood, energy, note, created_at
        FROM mood_entries
        WHERE user_id = $1 AND created_at >= $2
        ORDER BY created_at DESC
    `, userID, since)
	if err != nil {
		r.logger.Error("Failed to list moods", zap.Error(err), zap.Int64("user_id", userID))
		return nil, err
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.MoodEntry, error) {
		var m model.MoodEntry
		err := row.Scan(&m.ID, &m.UserID, &m.Mood, &m.Energy, &m.Note, &m.CreatedAt)
		return m, err
	})
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []model.MoodEntry{}
	}
	return entries, nil
}
