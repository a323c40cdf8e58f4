package postgres

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

func TestDSN(t *testing.T) {
	assert.Equal(t, "postgres://u:p@db:5432/tj?sslmode=disable",
		DSN(ClientConfig{Host: "db", Database: "tj", User: "u", Password: "p"}))
	assert.Equal(t, "postgres://u:p@db:6543/tj?sslmode=require",
		DSN(ClientConfig{Host: "db", Port: 6543, Database: "tj", User: "u", Password: "p", SSLMode: "require"}))
	assert.Equal(t, "postgres://explicit", DSN(ClientConfig{DSN: "postgres://explicit", Host: "ignored"}))
}

func TestMigrationNamesSorted(t *testing.T) {
	names, err := migrationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "001_init.sql", names[0])
	assert.IsIncreasing(t, names)
}

func TestMapErr(t *testing.T) {
	assert.NoError(t, mapErr(nil))
	assert.ErrorIs(t, mapErr(fmt.Errorf("wrap: %w", pgx.ErrNoRows)), domain.ErrNotFound)
	assert.ErrorIs(t, mapErr(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}), domain.ErrAlreadyExists)

	other := errors.New("boom")
	assert.Equal(t, other, mapErr(other))
}

func TestDeleteAccountErr(t *testing.T) {
	fk := &pgconn.PgError{Code: "23503", ConstraintName: "trades_account_id_fkey"}
	assert.True(t, isForeignKeyViolation(fmt.Errorf("exec: %w", fk)))
	assert.ErrorIs(t, deleteAccountErr(fk), domain.ErrAccountHasTrades)
	assert.NotErrorIs(t, mapErr(fk), domain.ErrAccountHasTrades)

	assert.ErrorIs(t, deleteAccountErr(pgx.ErrNoRows), domain.ErrNotFound)
	assert.False(t, isForeignKeyViolation(&pgconn.PgError{Code: "23505"}))
}

func TestQueryBuilder(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	q := newQuery("SELECT * FROM trades WHERE user_id = $1", "u1")
	q.where("account_id = ?", "a1")
	q.and("exit_date IS NULL")
	q.where("entry_date >= ?", from)
	q.page("entry_date DESC", 50, 10)

	assert.Equal(t,
		"SELECT * FROM trades WHERE user_id = $1 AND account_id = $2 AND exit_date IS NULL"+
			" AND entry_date >= $3 ORDER BY entry_date DESC LIMIT $4 OFFSET $5",
		q.String())
	assert.Equal(t, []any{"u1", "a1", from, 50, 10}, q.args)

	q = newQuery("SELECT 1 WHERE x = $1", 1)
	q.page("id", 0, 0)
	assert.Equal(t, "SELECT 1 WHERE x = $1 ORDER BY id", q.String())
}
