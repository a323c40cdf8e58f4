package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/tradejournal/internal/domain"
	"github.com/alanyoungcy/tradejournal/internal/service"
)

// JournalService defines the methods that the journal handler requires from
// the service layer.
type JournalService interface {
	List(ctx context.Context, userID string, opts domain.ListOpts) ([]domain.JournalEntry, error)
	Get(ctx context.Context, userID, id string) (domain.JournalEntry, error)
	Create(ctx context.Context, userID string, in service.JournalInput) (domain.JournalEntry, error)
	Update(ctx context.Context, userID, id string, in service.JournalInput) (domain.JournalEntry, error)
	Delete(ctx context.Context, userID, id string) error
}

// JournalHandler serves journal entry endpoints.
type JournalHandler struct {
	journal JournalService
	logger  *slog.Logger
}

// NewJournalHandler creates a JournalHandler.
func NewJournalHandler(journal JournalService, logger *slog.Logger) *JournalHandler {
	return &JournalHandler{journal: journal, logger: logger}
}

// List returns the caller's entries.
// GET /api/journal?from=&to=&limit=&offset=
func (h *JournalHandler) List(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)
	var err error
	if opts.Since, err = parseBound(r.URL.Query().Get("from"), false); err != nil {
		writeServiceError(w, r, h.logger, "list journal", err)
		return
	}
	if opts.Until, err = parseBound(r.URL.Query().Get("to"), true); err != nil {
		writeServiceError(w, r, h.logger, "list journal", err)
		return
	}
	entries, err := h.journal.List(r.Context(), currentUser(r), opts)
	if err != nil {
		writeServiceError(w, r, h.logger, "list journal", err)
		return
	}
	if entries == nil {
		entries = []domain.JournalEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// Get returns one entry.
// GET /api/journal/{id}
func (h *JournalHandler) Get(w http.ResponseWriter, r *http.Request) {
	e, err := h.journal.Get(r.Context(), currentUser(r), pathParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, "get journal entry", err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// Create adds an entry.
// POST /api/journal
func (h *JournalHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.JournalInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, h.logger, "create journal entry", err)
		return
	}
	e, err := h.journal.Create(r.Context(), currentUser(r), in)
	if err != nil {
		writeServiceError(w, r, h.logger, "create journal entry", err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// Update replaces an entry.
// PUT /api/journal/{id}
func (h *JournalHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in service.JournalInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, h.logger, "update journal entry", err)
		return
	}
	e, err := h.journal.Update(r.Context(), currentUser(r), pathParam(r, "id"), in)
	if err != nil {
		writeServiceError(w, r, h.logger, "update journal entry", err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// Delete removes an entry.
// DELETE /api/journal/{id}
func (h *JournalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.journal.Delete(r.Context(), currentUser(r), pathParam(r, "id")); err != nil {
		writeServiceError(w, r, h.logger, "delete journal entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
