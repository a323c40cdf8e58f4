package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a new TradeStore backed by the given connection pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

const tradeSelectCols = `id, account_id, user_id, symbol, direction,
	quantity, entry_price, entry_date, exit_price, exit_date,
	fees, pnl, strategy, notes, tags, created_at, updated_at`

const tradeInsert = `
	INSERT INTO trades (
		id, account_id, user_id, symbol, direction,
		quantity, entry_price, entry_date, exit_price, exit_date,
		fees, pnl, strategy, notes, tags, created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8, $9, $10,
		$11, $12, $13, $14, $15, $16, $17
	)`

func tradeArgs(t domain.Trade) []any {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return []any{
		t.ID, t.AccountID, t.UserID, t.Symbol, string(t.Direction),
		t.Quantity, t.EntryPrice, t.EntryDate, t.ExitPrice, t.ExitDate,
		t.Fees, t.PnL, t.Strategy, t.Notes, tags, t.CreatedAt, t.UpdatedAt,
	}
}

func scanTrade(row pgx.Row) (domain.Trade, error) {
	var t domain.Trade
	var direction string
	err := row.Scan(
		&t.ID, &t.AccountID, &t.UserID, &t.Symbol, &direction,
		&t.Quantity, &t.EntryPrice, &t.EntryDate, &t.ExitPrice, &t.ExitDate,
		&t.Fees, &t.PnL, &t.Strategy, &t.Notes, &t.Tags, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return domain.Trade{}, err
	}
	t.Direction = domain.Direction(direction)
	return t, nil
}

// Create inserts a single trade.
func (s *TradeStore) Create(ctx context.Context, t domain.Trade) error {
	if _, err := s.pool.Exec(ctx, tradeInsert, tradeArgs(t)...); err != nil {
		return fmt.Errorf("postgres: create trade %s: %w", t.ID, mapErr(err))
	}
	return nil
}

// InsertAtomic inserts all trades with a pgx Batch inside one transaction.
// Any failing row rolls back the whole batch.
func (s *TradeStore) InsertAtomic(ctx context.Context, trades []domain.Trade) (int64, error) {
	if len(trades) == 0 {
		return 0, nil
	}

	var inserted int64
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, t := range trades {
			batch.Queue(tradeInsert, tradeArgs(t)...)
		}
		br := tx.SendBatch(ctx, batch)
		for i := range trades {
			tag, err := br.Exec()
			if err != nil {
				_ = br.Close()
				return fmt.Errorf("insert trade batch item %d: %w", i, mapErr(err))
			}
			inserted += tag.RowsAffected()
		}
		return br.Close()
	})
	if err != nil {
		return 0, fmt.Errorf("postgres: insert trades: %w", err)
	}
	return inserted, nil
}

// Get returns a trade owned by userID.
func (s *TradeStore) Get(ctx context.Context, id, userID string) (domain.Trade, error) {
	t, err := scanTrade(s.pool.QueryRow(ctx,
		`SELECT `+tradeSelectCols+` FROM trades WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		return domain.Trade{}, fmt.Errorf("postgres: get trade %s: %w", id, mapErr(err))
	}
	return t, nil
}

// Update overwrites every mutable column of a trade.
func (s *TradeStore) Update(ctx context.Context, t domain.Trade) error {
	const query = `
		UPDATE trades SET
			account_id = $3, symbol = $4, direction = $5, quantity = $6,
			entry_price = $7, entry_date = $8, exit_price = $9, exit_date = $10,
			fees = $11, pnl = $12, strategy = $13, notes = $14, tags = $15,
			updated_at = $16
		WHERE id = $1 AND user_id = $2`
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	tag, err := s.pool.Exec(ctx, query,
		t.ID, t.UserID, t.AccountID, t.Symbol, string(t.Direction), t.Quantity,
		t.EntryPrice, t.EntryDate, t.ExitPrice, t.ExitDate,
		t.Fees, t.PnL, t.Strategy, t.Notes, tags, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: update trade %s: %w", t.ID, mapErr(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: update trade %s: %w", t.ID, domain.ErrNotFound)
	}
	return nil
}

// Delete removes a trade owned by userID.
func (s *TradeStore) Delete(ctx context.Context, id, userID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM trades WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("postgres: delete trade %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: delete trade %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Find returns the trades matching filter, newest entry first.
func (s *TradeStore) Find(ctx context.Context, f domain.TradeFilter) ([]domain.Trade, error) {
	q := newQuery(`SELECT `+tradeSelectCols+` FROM trades WHERE user_id = $1`, f.UserID)
	if f.AccountID != "" {
		q.where("account_id = ?", f.AccountID)
	}
	if f.Symbol != "" {
		q.where("symbol = ?", f.Symbol)
	}
	switch f.Status {
	case domain.TradeStatusOpen:
		q.and("exit_date IS NULL")
	case domain.TradeStatusClosed:
		q.and("exit_date IS NOT NULL")
	}
	if f.From != nil {
		q.where("entry_date >= ?", *f.From)
	}
	if f.To != nil {
		q.where("entry_date <= ?", *f.To)
	}
	q.page("entry_date DESC, id", f.Limit, f.Offset)

	rows, err := s.pool.Query(ctx, q.String(), q.args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: find trades: %w", err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan trade: %w", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: find trades rows: %w", err)
	}
	return trades, nil
}

// CountByAccount returns the number of trades recorded against an account.
func (s *TradeStore) CountByAccount(ctx context.Context, accountID string) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM trades WHERE account_id = $1`, accountID).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count trades for account %s: %w", accountID, err)
	}
	return n, nil
}

// CountOwned returns how many of ids are trades owned by userID.
func (s *TradeStore) CountOwned(ctx context.Context, userID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var n int64
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT id) FROM trades WHERE user_id = $1 AND id = ANY($2)`, userID, ids).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count owned trades: %w", err)
	}
	return n, nil
}
