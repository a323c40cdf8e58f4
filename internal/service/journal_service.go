package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

// JournalService manages free-form journal entries.
type JournalService struct {
	entries domain.JournalStore
	trades  domain.TradeStore
	fx      effects
	logger  *slog.Logger
}

// NewJournalService creates a JournalService.
func NewJournalService(entries domain.JournalStore, trades domain.TradeStore, audit domain.AuditStore, logger *slog.Logger) *JournalService {
	logger = logger.With(slog.String("component", "journal_service"))
	return &JournalService{
		entries: entries,
		trades:  trades,
		fx:      effects{audit: audit, logger: logger},
		logger:  logger,
	}
}

// JournalInput is the payload for creating or replacing an entry.
type JournalInput struct {
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Mood      string    `json:"mood"`
	EntryDate time.Time `json:"entryDate"`
	TradeIDs  []string  `json:"tradeIds"`
	Tags      []string  `json:"tags"`
}

// List returns the user's entries, newest first.
func (s *JournalService) List(ctx context.Context, userID string, opts domain.ListOpts) ([]domain.JournalEntry, error) {
	if opts.Limit <= 0 || opts.Limit > maxListLimit {
		opts.Limit = defaultListLimit
	}
	entries, err := s.entries.List(ctx, userID, opts)
	if err != nil {
		return nil, fmt.Errorf("journal_service: list: %w", err)
	}
	return entries, nil
}

// Get returns one of the user's entries.
func (s *JournalService) Get(ctx context.Context, userID, id string) (domain.JournalEntry, error) {
	e, err := s.entries.Get(ctx, id, userID)
	if err != nil {
		return domain.JournalEntry{}, fmt.Errorf("journal_service: get: %w", err)
	}
	return e, nil
}

// Create stores a new entry. Linked trades must belong to the user.
func (s *JournalService) Create(ctx context.Context, userID string, in JournalInput) (domain.JournalEntry, error) {
	now := time.Now().UTC()
	e := domain.JournalEntry{
		ID:        uuid.New().String(),
		UserID:    userID,
		CreatedAt: now,
	}
	if err := s.fill(ctx, &e, in, now); err != nil {
		return domain.JournalEntry{}, fmt.Errorf("journal_service: create: %w", err)
	}
	if err := s.entries.Create(ctx, e); err != nil {
		return domain.JournalEntry{}, fmt.Errorf("journal_service: create: %w", err)
	}
	s.fx.auditLog(ctx, userID, "journal.created", map[string]any{"entry_id": e.ID})
	return e, nil
}

// Update replaces the content of an entry.
func (s *JournalService) Update(ctx context.Context, userID, id string, in JournalInput) (domain.JournalEntry, error) {
	e, err := s.entries.Get(ctx, id, userID)
	if err != nil {
		return domain.JournalEntry{}, fmt.Errorf("journal_service: update: %w", err)
	}
	if err := s.fill(ctx, &e, in, time.Now().UTC()); err != nil {
		return domain.JournalEntry{}, fmt.Errorf("journal_service: update: %w", err)
	}
	if err := s.entries.Update(ctx, e); err != nil {
		return domain.JournalEntry{}, fmt.Errorf("journal_service: update: %w", err)
	}
	return e, nil
}

// Delete removes one of the user's entries.
func (s *JournalService) Delete(ctx context.Context, userID, id string) error {
	if err := s.entries.Delete(ctx, id, userID); err != nil {
		return fmt.Errorf("journal_service: delete: %w", err)
	}
	s.fx.auditLog(ctx, userID, "journal.deleted", map[string]any{"entry_id": id})
	return nil
}

func (s *JournalService) fill(ctx context.Context, e *domain.JournalEntry, in JournalInput, now time.Time) error {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return fmt.Errorf("title is required: %w", domain.ErrInvalidInput)
	}

	ids := cleanTags(in.TradeIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)
	if len(ids) > 0 {
		owned, err := s.trades.CountOwned(ctx, e.UserID, ids)
		if err != nil {
			return err
		}
		if owned != int64(len(ids)) {
			return fmt.Errorf("linked trades must belong to the user: %w", domain.ErrForbidden)
		}
	}

	e.Title = title
	e.Content = in.Content
	e.Mood = strings.TrimSpace(in.Mood)
	e.EntryDate = in.EntryDate.UTC()
	if in.EntryDate.IsZero() {
		e.EntryDate = now
	}
	e.TradeIDs = ids
	e.Tags = cleanTags(in.Tags)
	e.UpdatedAt = now
	return nil
}
