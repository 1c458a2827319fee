package repository

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"gather/internal/model"
)

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil))
	assert.ErrorIs(t, translate(pgx.ErrNoRows), model.ErrNotFound)
	assert.ErrorIs(t, translate(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}), model.ErrConflict)

	other := errors.New("boom")
	assert.Equal(t, other, translate(other))
	fk := &pgconn.PgError{Code: "23503"}
	assert.Equal(t, error(fk), translate(fk))
}
