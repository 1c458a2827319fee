package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"gather/internal/model"
)

type UserRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewUserRepository(db *pgxpool.Pool, logger *zap.Logger) *UserRepository {
	return &UserRepository{db: db, logger: logger}
}

// Create inserts a user together with default preferences and stats.
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	r.logger.Debug("Creating user", zap.String("email", u.Email))

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
            INSERT INTO users (email, password_hash, display_name, role)
            VALUES ($1, $2, $3, $4)
            RETURNING id, created_at
        `, u.Email, u.PasswordHash, u.DisplayName, u.Role).Scan(&u.ID, &u.CreatedAt)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `INSERT INTO preferences (user_id) VALUES ($1)`, u.ID); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `INSERT INTO user_stats (user_id) VALUES ($1)`, u.ID)
		return err
	})
	if err != nil {
		err = translate(err)
		r.logger.Error("Failed to create user", zap.Error(err), zap.String("email", u.Email))
		return err
	}
	r.logger.Info("User created", zap.Int64("user_id", u.ID))
	return nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, `WHERE email = $1`, strings.ToLower(strings.TrimSpace(email)))
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	return r.findOne(ctx, `WHERE id = $1`, id)
}

func (r *UserRepository) findOne(ctx context.Context, where string, arg any) (*model.User, error) {
	query := `
        SELECT id, email, password_hash, display_name, role, created_at
        FROM users ` + where
	var u model.User
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.Role, &u.CreatedAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// ListActiveIDs returns users with any task, habit or mood activity since
// the given number of days.
func (r *UserRepository) ListActiveIDs(ctx context.Context, days int) ([]int64, error) {
	r.logger.Debug("Listing active users", zap.Int("days", days))
	query := `
        SELECT id FROM users u
        WHERE EXISTS (SELECT 1 FROM tasks t WHERE t.user_id = u.id AND t.updated_at > NOW() - make_interval(days => $1))
           OR EXISTS (SELECT 1 FROM mood_entries m WHERE m.user_id = u.id AND m.created_at > NOW() - make_interval(days => $1))
           OR EXISTS (SELECT 1 FROM habits h WHERE h.user_id = u.id AND h.is_active)
        ORDER BY id
    `
	rows, err := r.db.Query(ctx, query, days)
	if err != nil {
		r.logger.Error("Failed to list active users", zap.Error(err))
		return nil, err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		r.logger.Error("Failed to scan active users", zap.Error(err))
		return nil, err
	}
	return ids, nil
}

// GetPreferences returns the preferences row, which exists for every user.
func (r *UserRepository) GetPreferences(ctx context.Context, userID int64) (*model.Preferences, error) {
	var p model.Preferences
	err := r.db.QueryRow(ctx, `
        SELECT user_id, onboarding_complete, timezone, updated_at
        FROM preferences WHERE user_id = $1
    `, userID).Scan(&p.UserID, &p.OnboardingComplete, &p.Timezone, &p.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *UserRepository) UpdatePreferences(ctx context.Context, p *model.Preferences) error {
	r.logger.Debug("Updating preferences",
		zap.Int64("user_id", p.UserID),
		zap.Bool("onboarding_complete", p.OnboardingComplete),
		zap.String("timezone", p.Timezone),
	)
	err := r.db.QueryRow(ctx, `
        INSERT INTO preferences (user_id, onboarding_complete, timezone, updated_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (user_id) DO UPDATE
        SET onboarding_complete = EXCLUDED.onboarding_complete,
            timezone = EXCLUDED.timezone,
            updated_at = NOW()
        RETURNING updated_at
    `, p.UserID, p.OnboardingComplete, p.Timezone).Scan(&p.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to update preferences", zap.Error(err), zap.Int64("user_id", p.UserID))
		return translate(err)
	}
	return nil
}
