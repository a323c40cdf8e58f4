package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

// JournalStore implements domain.JournalStore using PostgreSQL.
type JournalStore struct {
	pool *pgxpool.Pool
}

// NewJournalStore creates a new JournalStore backed by the given connection pool.
func NewJournalStore(pool *pgxpool.Pool) *JournalStore {
	return &JournalStore{pool: pool}
}

const journalSelectCols = `id, user_id, title, content, mood, entry_date,
	trade_ids, tags, created_at, updated_at`

func scanJournal(row pgx.Row) (domain.JournalEntry, error) {
	var e domain.JournalEntry
	err := row.Scan(
		&e.ID, &e.UserID, &e.Title, &e.Content, &e.Mood, &e.EntryDate,
		&e.TradeIDs, &e.Tags, &e.CreatedAt, &e.UpdatedAt,
	)
	return e, err
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Create inserts a journal entry.
func (s *JournalStore) Create(ctx context.Context, e domain.JournalEntry) error {
	const query = `
		INSERT INTO journal_entries (
			id, user_id, title, content, mood, entry_date,
			trade_ids, tags, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := s.pool.Exec(ctx, query,
		e.ID, e.UserID, e.Title, e.Content, e.Mood, e.EntryDate,
		nonNil(e.TradeIDs), nonNil(e.Tags), e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create journal entry %s: %w", e.ID, mapErr(err))
	}
	return nil
}

// Update overwrites the editable fields of an entry owned by e.UserID.
func (s *JournalStore) Update(ctx context.Context, e domain.JournalEntry) error {
	const query = `
		UPDATE journal_entries SET
			title = $3, content = $4, mood = $5, entry_date = $6,
			trade_ids = $7, tags = $8, updated_at = $9
		WHERE id = $1 AND user_id = $2`
	tag, err := s.pool.Exec(ctx, query,
		e.ID, e.UserID, e.Title, e.Content, e.Mood, e.EntryDate,
		nonNil(e.TradeIDs), nonNil(e.Tags), e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: update journal entry %s: %w", e.ID, mapErr(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: update journal entry %s: %w", e.ID, domain.ErrNotFound)
	}
	return nil
}

// Get returns an entry owned by userID.
func (s *JournalStore) Get(ctx context.Context, id, userID string) (domain.JournalEntry, error) {
	e, err := scanJournal(s.pool.QueryRow(ctx,
		`SELECT `+journalSelectCols+` FROM journal_entries WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		return domain.JournalEntry{}, fmt.Errorf("postgres: get journal entry %s: %w", id, mapErr(err))
	}
	return e, nil
}

// List returns the user's entries, newest entry date first.
func (s *JournalStore) List(ctx context.Context, userID string, opts domain.ListOpts) ([]domain.JournalEntry, error) {
	q := newQuery(`SELECT `+journalSelectCols+` FROM journal_entries WHERE user_id = $1`, userID)
	if opts.Since != nil {
		q.where("entry_date >= ?", *opts.Since)
	}
	if opts.Until != nil {
		q.where("entry_date <= ?", *opts.Until)
	}
	q.page("entry_date DESC, id", opts.Limit, opts.Offset)

	rows, err := s.pool.Query(ctx, q.String(), q.args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list journal entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.JournalEntry
	for rows.Next() {
		e, err := scanJournal(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan journal entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list journal entries rows: %w", err)
	}
	return entries, nil
}

// Delete removes an entry owned by userID.
func (s *JournalStore) Delete(ctx context.Context, id, userID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM journal_entries WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("postgres: delete journal entry %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: delete journal entry %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
