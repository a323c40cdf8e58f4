package s3blob

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

const contentTypeJSONL = "application/x-ndjson"

// Archiver implements domain.Archiver. It snapshots one user's trades or
// journal entries as JSONL and uploads them to
//
//	backups/{userID}/{YYYY-MM-DD}/trades.jsonl
//	backups/{userID}/{YYYY-MM-DD}/journal.jsonl
//
// Backups never delete anything from the primary store.
type Archiver struct {
	writer   domain.BlobWriter
	trades   domain.TradeStore
	journal  domain.JournalStore
	audit    domain.AuditStore
	partSize int64
}

// ArchiverConfig wires an Archiver.
type ArchiverConfig struct {
	Writer   domain.BlobWriter
	Trades   domain.TradeStore
	Journal  domain.JournalStore
	Audit    domain.AuditStore
	PartSize int64
}

// NewArchiver creates an Archiver.
func NewArchiver(cfg ArchiverConfig) *Archiver {
	return &Archiver{
		writer:   cfg.Writer,
		trades:   cfg.Trades,
		journal:  cfg.Journal,
		audit:    cfg.Audit,
		partSize: cfg.PartSize,
	}
}

// BackupTrades uploads all of the user's trades and returns how many were
// written. Users without trades are skipped.
func (a *Archiver) BackupTrades(ctx context.Context, userID string, at time.Time) (int64, error) {
	trades, err := a.trades.Find(ctx, domain.TradeFilter{UserID: userID})
	if err != nil {
		return 0, fmt.Errorf("s3blob: backup trades query: %w", err)
	}
	return backup(ctx, a, userID, "trades", at, trades)
}

// BackupJournal uploads all of the user's journal entries.
func (a *Archiver) BackupJournal(ctx context.Context, userID string, at time.Time) (int64, error) {
	entries, err := a.journal.List(ctx, userID, domain.ListOpts{})
	if err != nil {
		return 0, fmt.Errorf("s3blob: backup journal query: %w", err)
	}
	return backup(ctx, a, userID, "journal", at, entries)
}

func backup[T any](ctx context.Context, a *Archiver, userID, kind string, at time.Time, records []T) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	path := BackupPath(userID, kind, at)
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(writeJSONL(pw, records))
	}()
	if err := a.writer.PutMultipart(ctx, path, pr, a.partSize); err != nil {
		_ = pr.CloseWithError(err)
		return 0, fmt.Errorf("s3blob: backup %s upload: %w", kind, err)
	}

	count := int64(len(records))
	if err := a.audit.Log(ctx, userID, "backup."+kind, map[string]any{
		"path":  path,
		"count": count,
	}); err != nil {
		return count, fmt.Errorf("s3blob: backup %s audit log: %w", kind, err)
	}
	return count, nil
}

// BackupPath builds the object key of a user's backup file.
func BackupPath(userID, kind string, at time.Time) string {
	return fmt.Sprintf("backups/%s/%s/%s.jsonl", userID, at.UTC().Format(time.DateOnly), kind)
}

// writeJSONL writes one compact JSON document per line.
func writeJSONL[T any](w io.Writer, records []T) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return nil
}

// Compile-time interface check.
var _ domain.Archiver = (*Archiver)(nil)
