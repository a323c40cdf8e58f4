package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/tradejournal/internal/domain"
	"github.com/alanyoungcy/tradejournal/internal/ingest"
	"github.com/alanyoungcy/tradejournal/internal/notify"
)

// ImportConfig tunes the ImportService.
type ImportConfig struct {
	// MaxBytes rejects larger uploads. Zero means unlimited.
	MaxBytes int64
	// LockTTL bounds how long one account's import may hold its lock.
	LockTTL time.Duration
	// Archive keeps a copy of every accepted upload in object storage.
	Archive bool
}

// ImportResult is the outcome of one import. When RowErrors is non-empty
// nothing was persisted.
type ImportResult struct {
	ImportID      string            `json:"importId"`
	InsertedCount int64             `json:"insertedCount"`
	RowErrors     []ingest.RowError `json:"rowErrors,omitempty"`
	ArchivePath   string            `json:"archivePath,omitempty"`
}

// Rejected reports whether the batch failed row validation.
func (r ImportResult) Rejected() bool {
	return len(r.RowErrors) > 0
}

// ImportService turns uploaded CSV files into trades, all or nothing.
type ImportService struct {
	accounts domain.AccountStore
	trades   domain.TradeStore
	locks    domain.LockManager
	parser   *ingest.Parser
	blobs    domain.BlobWriter
	archive  domain.BlobReader
	notifier domain.Notifier
	fx       effects
	cfg      ImportConfig
	logger   *slog.Logger
}

// ImportDeps wires an ImportService. Blobs, Archive and Notifier are optional.
type ImportDeps struct {
	Accounts domain.AccountStore
	Trades   domain.TradeStore
	Locks    domain.LockManager
	Parser   *ingest.Parser
	Blobs    domain.BlobWriter
	Archive  domain.BlobReader
	Bus      domain.SignalBus
	Audit    domain.AuditStore
	Cache    domain.StatsCache
	Notifier domain.Notifier
}

// NewImportService creates an ImportService.
func NewImportService(deps ImportDeps, cfg ImportConfig, logger *slog.Logger) *ImportService {
	logger = logger.With(slog.String("component", "import_service"))
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = time.Minute
	}
	return &ImportService{
		accounts: deps.Accounts,
		trades:   deps.Trades,
		locks:    deps.Locks,
		parser:   deps.Parser,
		blobs:    deps.Blobs,
		archive:  deps.Archive,
		notifier: deps.Notifier,
		fx:       effects{bus: deps.Bus, audit: deps.Audit, cache: deps.Cache, logger: logger},
		cfg:      cfg,
		logger:   logger,
	}
}

// Import parses text and inserts every trade into accountID in a single
// transaction. The account must belong to userID (ErrForbidden otherwise,
// checked before parsing). If any row fails validation the whole batch is
// rejected: the result carries every row error and nothing is stored.
func (s *ImportService) Import(ctx context.Context, userID, accountID, text string) (ImportResult, error) {
	if err := requireOwnedAccount(ctx, s.accounts, accountID, userID); err != nil {
		return ImportResult{}, fmt.Errorf("import_service: import: %w", err)
	}
	if s.cfg.MaxBytes > 0 && int64(len(text)) > s.cfg.MaxBytes {
		return ImportResult{}, fmt.Errorf("import_service: import: file exceeds %d bytes: %w",
			s.cfg.MaxBytes, domain.ErrInvalidInput)
	}

	unlock, err := s.locks.Acquire(ctx, "import:"+accountID, s.cfg.LockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			return ImportResult{}, fmt.Errorf("import_service: import: %w", domain.ErrImportInProgress)
		}
		return ImportResult{}, fmt.Errorf("import_service: import: lock: %w", err)
	}
	defer unlock()

	importID := uuid.New().String()
	log := s.logger.With(
		slog.String("import_id", importID),
		slog.String("user_id", userID),
		slog.String("account_id", accountID),
	)

	parsed, err := s.parser.Parse(text, accountID, userID)
	if err != nil {
		return ImportResult{}, fmt.Errorf("import_service: import: %w", err)
	}
	if !parsed.OK() {
		log.InfoContext(ctx, "import rejected", slog.Int("row_errors", len(parsed.RowErrors)))
		s.fx.auditLog(ctx, userID, "trades.import_rejected", map[string]any{
			"import_id":  importID,
			"account_id": accountID,
			"row_errors": len(parsed.RowErrors),
		})
		s.notify(ctx, notify.EventImportRejected, "Import rejected",
			fmt.Sprintf("%d row errors in import %s", len(parsed.RowErrors), importID))
		return ImportResult{ImportID: importID, RowErrors: parsed.RowErrors}, nil
	}

	inserted, err := s.trades.InsertAtomic(ctx, parsed.Trades)
	if err != nil {
		return ImportResult{}, fmt.Errorf("import_service: import: insert: %w", err)
	}
	res := ImportResult{ImportID: importID, InsertedCount: inserted}

	if s.cfg.Archive && s.blobs != nil {
		path := ImportArchivePath(userID, importID, time.Now())
		if err := s.blobs.Put(ctx, path, strings.NewReader(text), "text/csv"); err != nil {
			log.WarnContext(ctx, "archive upload failed", slog.String("error", err.Error()))
		} else {
			res.ArchivePath = path
		}
	}

	log.InfoContext(ctx, "import completed", slog.Int64("inserted", inserted))
	s.fx.auditLog(ctx, userID, "trades.imported", map[string]any{
		"import_id":  importID,
		"account_id": accountID,
		"count":      inserted,
		"archive":    res.ArchivePath,
	})
	s.fx.invalidate(ctx, userID)
	s.fx.publish(ctx, userID, EventTradesImported, map[string]any{
		"importId":      importID,
		"accountId":     accountID,
		"insertedCount": inserted,
	})
	s.notify(ctx, notify.EventImportCompleted, "Import completed",
		fmt.Sprintf("%d trades imported into account %s", inserted, accountID))
	return res, nil
}

// ListArchives returns the user's archived uploads, newest first.
func (s *ImportService) ListArchives(ctx context.Context, userID string) ([]domain.BlobInfo, error) {
	if s.archive == nil {
		return []domain.BlobInfo{}, nil
	}
	infos, err := s.archive.List(ctx, "imports/"+userID+"/")
	if err != nil {
		return nil, fmt.Errorf("import_service: list archives: %w", err)
	}
	if infos == nil {
		infos = []domain.BlobInfo{}
	}
	return infos, nil
}

func (s *ImportService) notify(ctx context.Context, event, title, msg string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, event, title, msg); err != nil {
		s.logger.WarnContext(ctx, "import notification failed", slog.String("error", err.Error()))
	}
}

// ImportArchivePath builds the object key of an archived upload.
func ImportArchivePath(userID, importID string, at time.Time) string {
	return fmt.Sprintf("imports/%s/%s/%s.csv", userID, at.UTC().Format(time.DateOnly), importID)
}
