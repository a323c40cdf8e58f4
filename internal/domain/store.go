package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// UserStore persists users.
type UserStore interface {
	// CreateWithAccount inserts the user and its default account in one
	// transaction. It returns ErrAlreadyExists when the email is taken.
	CreateWithAccount(ctx context.Context, user User, account Account) error
	GetByID(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	ListIDs(ctx context.Context) ([]string, error)
}

// AccountStore persists trading accounts.
type AccountStore interface {
	Create(ctx context.Context, account Account) error
	Update(ctx context.Context, account Account) error
	// FindOwnedBy returns the account only if it belongs to userID, otherwise
	// ErrNotFound.
	FindOwnedBy(ctx context.Context, accountID, userID string) (Account, error)
	ListByUser(ctx context.Context, userID string) ([]Account, error)
	// SetDefault marks accountID as the user's default and clears the
	// previous default atomically.
	SetDefault(ctx context.Context, accountID, userID string) error
	Delete(ctx context.Context, accountID, userID string) error
}

// TradeStore persists trades.
type TradeStore interface {
	Create(ctx context.Context, trade Trade) error
	// InsertAtomic writes every trade in a single transaction and returns the
	// number inserted. Either all rows are committed or none are.
	InsertAtomic(ctx context.Context, trades []Trade) (int64, error)
	Get(ctx context.Context, id, userID string) (Trade, error)
	Update(ctx context.Context, trade Trade) error
	Delete(ctx context.Context, id, userID string) error
	Find(ctx context.Context, filter TradeFilter) ([]Trade, error)
	CountByAccount(ctx context.Context, accountID string) (int64, error)
	// CountOwned returns how many of ids belong to userID.
	CountOwned(ctx context.Context, userID string, ids []string) (int64, error)
}

// JournalStore persists journal entries.
type JournalStore interface {
	Create(ctx context.Context, entry JournalEntry) error
	Update(ctx context.Context, entry JournalEntry) error
	Get(ctx context.Context, id, userID string) (JournalEntry, error)
	List(ctx context.Context, userID string, opts ListOpts) ([]JournalEntry, error)
	Delete(ctx context.Context, id, userID string) error
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64          `json:"id"`
	UserID    string         `json:"userId"`
	Event     string         `json:"event"`
	Detail    map[string]any `json:"detail"`
	CreatedAt time.Time      `json:"createdAt"`
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, userID, event string, detail map[string]any) error
	List(ctx context.Context, userID string, opts ListOpts) ([]AuditEntry, error)
}
