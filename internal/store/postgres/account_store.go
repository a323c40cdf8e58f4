package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

// AccountStore implements domain.AccountStore using PostgreSQL.
type AccountStore struct {
	pool *pgxpool.Pool
}

// NewAccountStore creates a new AccountStore backed by the given connection pool.
func NewAccountStore(pool *pgxpool.Pool) *AccountStore {
	return &AccountStore{pool: pool}
}

// accountSelect derives the trade count and current balance from the trades
// table so they can never drift from the stored trades.
const accountSelect = `
	SELECT a.id, a.user_id, a.name, a.color, a.is_default, a.initial_balance,
		a.initial_balance + COALESCE(SUM(t.pnl), 0),
		COUNT(t.id),
		a.created_at
	FROM accounts a
	LEFT JOIN trades t ON t.account_id = a.id`

const accountGroupBy = ` GROUP BY a.id`

func scanAccount(row pgx.Row) (domain.Account, error) {
	var a domain.Account
	err := row.Scan(
		&a.ID, &a.UserID, &a.Name, &a.Color, &a.IsDefault, &a.InitialBalance,
		&a.CurrentBalance, &a.TradeCount, &a.CreatedAt,
	)
	return a, err
}

func insertAccount(ctx context.Context, tx pgx.Tx, a domain.Account) error {
	const query = `
		INSERT INTO accounts (id, user_id, name, color, is_default, initial_balance, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := tx.Exec(ctx, query, a.ID, a.UserID, a.Name, a.Color, a.IsDefault, a.InitialBalance, a.CreatedAt)
	return mapErr(err)
}

// Create inserts a new account. When the account is flagged as default the
// user's previous default is cleared in the same transaction.
func (s *AccountStore) Create(ctx context.Context, a domain.Account) error {
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		if a.IsDefault {
			if _, err := tx.Exec(ctx,
				`UPDATE accounts SET is_default = FALSE WHERE user_id = $1 AND is_default`, a.UserID); err != nil {
				return err
			}
		}
		return insertAccount(ctx, tx, a)
	})
	if err != nil {
		return fmt.Errorf("postgres: create account %s: %w", a.ID, err)
	}
	return nil
}

// Update writes the editable fields of an account.
func (s *AccountStore) Update(ctx context.Context, a domain.Account) error {
	const query = `
		UPDATE accounts SET name = $3, color = $4, initial_balance = $5
		WHERE id = $1 AND user_id = $2`
	tag, err := s.pool.Exec(ctx, query, a.ID, a.UserID, a.Name, a.Color, a.InitialBalance)
	if err != nil {
		return fmt.Errorf("postgres: update account %s: %w", a.ID, mapErr(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: update account %s: %w", a.ID, domain.ErrNotFound)
	}
	return nil
}

// FindOwnedBy returns the account only when it belongs to userID.
func (s *AccountStore) FindOwnedBy(ctx context.Context, accountID, userID string) (domain.Account, error) {
	a, err := scanAccount(s.pool.QueryRow(ctx,
		accountSelect+` WHERE a.id = $1 AND a.user_id = $2`+accountGroupBy, accountID, userID))
	if err != nil {
		return domain.Account{}, fmt.Errorf("postgres: find account %s: %w", accountID, mapErr(err))
	}
	return a, nil
}

// ListByUser returns the user's accounts, default first.
func (s *AccountStore) ListByUser(ctx context.Context, userID string) ([]domain.Account, error) {
	rows, err := s.pool.Query(ctx,
		accountSelect+` WHERE a.user_id = $1`+accountGroupBy+` ORDER BY a.is_default DESC, a.created_at, a.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list accounts rows: %w", err)
	}
	return accounts, nil
}

// SetDefault moves the default flag to accountID.
func (s *AccountStore) SetDefault(ctx context.Context, accountID, userID string) error {
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1 AND user_id = $2)`,
			accountID, userID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrNotFound
		}
		if _, err := tx.Exec(ctx,
			`UPDATE accounts SET is_default = FALSE WHERE user_id = $1 AND is_default`, userID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `UPDATE accounts SET is_default = TRUE WHERE id = $1`, accountID)
		return err
	})
	if err != nil {
		return fmt.Errorf("postgres: set default account %s: %w", accountID, err)
	}
	return nil
}

// Delete removes an account owned by userID.
func (s *AccountStore) Delete(ctx context.Context, accountID, userID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1 AND user_id = $2`, accountID, userID)
	if err != nil {
		return fmt.Errorf("postgres: delete account %s: %w", accountID, deleteAccountErr(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: delete account %s: %w", accountID, domain.ErrNotFound)
	}
	return nil
}

// deleteAccountErr maps a failed account delete. A trade inserted after the
// service's trade-count check still holds the FK and surfaces as 23503.
func deleteAccountErr(err error) error {
	if isForeignKeyViolation(err) {
		return domain.ErrAccountHasTrades
	}
	return mapErr(err)
}
