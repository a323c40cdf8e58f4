package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

// UserStore implements domain.UserStore using PostgreSQL.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore creates a new UserStore backed by the given connection pool.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

const userSelectCols = `id, email, name, password_hash, created_at`

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt)
	return u, err
}

// CreateWithAccount inserts the user and its first account in one
// transaction. A duplicate email yields domain.ErrAlreadyExists.
func (s *UserStore) CreateWithAccount(ctx context.Context, u domain.User, a domain.Account) error {
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		const userQuery = `
			INSERT INTO users (id, email, name, password_hash, created_at)
			VALUES ($1, $2, $3, $4, $5)`
		if _, err := tx.Exec(ctx, userQuery, u.ID, u.Email, u.Name, u.PasswordHash, u.CreatedAt); err != nil {
			return mapErr(err)
		}
		return insertAccount(ctx, tx, a)
	})
	if err != nil {
		return fmt.Errorf("postgres: create user %s: %w", u.Email, err)
	}
	return nil
}

// GetByID returns the user with the given ID.
func (s *UserStore) GetByID(ctx context.Context, id string) (domain.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userSelectCols+` FROM users WHERE id = $1`, id))
	if err != nil {
		return domain.User{}, fmt.Errorf("postgres: get user %s: %w", id, mapErr(err))
	}
	return u, nil
}

// GetByEmail looks a user up by email, case-insensitively.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userSelectCols+` FROM users WHERE LOWER(email) = LOWER($1)`, email))
	if err != nil {
		return domain.User{}, fmt.Errorf("postgres: get user by email: %w", mapErr(err))
	}
	return u, nil
}

// ListIDs returns every user ID, oldest first.
func (s *UserStore) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list user ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("postgres: scan user ids: %w", err)
	}
	return ids, nil
}
