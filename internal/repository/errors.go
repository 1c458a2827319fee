package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"gather/internal/model"
	"gather/pkg/outbox"
	"gather/pkg/trace"
)

const uniqueViolation = "23505"

// translate maps driver errors onto the model sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", model.ErrConflict, pgErr.ConstraintName)
	}
	return err
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// event identity for outbox payloads
func newEventID() string { return uuid.NewString() }

func enqueue(ctx context.Context, tx pgx.Tx, ob *outbox.Repository, aggregate string, id int64, routingKey string, payload any) error {
	if err := ob.Enqueue(ctx, tx, aggregate, id, routingKey, payload); err != nil {
		return fmt.Errorf("enqueue %s: %w", routingKey, err)
	}
	return nil
}

func traceID(ctx context.Context) string { return trace.FromContext(ctx) }
