package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/tradejournal/internal/domain"
	"github.com/alanyoungcy/tradejournal/internal/service"
)

// AccountService defines the methods that the account handler requires from
// the service layer.
type AccountService interface {
	List(ctx context.Context, userID string) ([]domain.Account, error)
	Create(ctx context.Context, userID string, in service.AccountInput) (domain.Account, error)
	Update(ctx context.Context, userID, accountID string, p domain.AccountPatch) (domain.Account, error)
	SetDefault(ctx context.Context, userID, accountID string) error
	Delete(ctx context.Context, userID, accountID string) error
}

// AccountHandler serves account endpoints.
type AccountHandler struct {
	accounts AccountService
	logger   *slog.Logger
}

// NewAccountHandler creates an AccountHandler.
func NewAccountHandler(accounts AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, logger: logger}
}

// List returns the caller's accounts.
// GET /api/accounts
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.List(r.Context(), currentUser(r))
	if err != nil {
		writeServiceError(w, r, h.logger, "list accounts", err)
		return
	}
	if accounts == nil {
		accounts = []domain.Account{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"accounts": accounts})
}

// Create adds an account.
// POST /api/accounts
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.AccountInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, h.logger, "create account", err)
		return
	}
	a, err := h.accounts.Create(r.Context(), currentUser(r), in)
	if err != nil {
		writeServiceError(w, r, h.logger, "create account", err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// Update edits name, color or initial balance.
// PUT /api/accounts/{id}
func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	var p domain.AccountPatch
	if err := decodeJSON(w, r, &p); err != nil {
		writeServiceError(w, r, h.logger, "update account", err)
		return
	}
	a, err := h.accounts.Update(r.Context(), currentUser(r), pathParam(r, "id"), p)
	if err != nil {
		writeServiceError(w, r, h.logger, "update account", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// SetDefault makes the account the caller's default.
// POST /api/accounts/{id}/default
func (h *AccountHandler) SetDefault(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.SetDefault(r.Context(), currentUser(r), pathParam(r, "id")); err != nil {
		writeServiceError(w, r, h.logger, "set default account", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete removes an account.
// DELETE /api/accounts/{id}
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.Delete(r.Context(), currentUser(r), pathParam(r, "id")); err != nil {
		writeServiceError(w, r, h.logger, "delete account", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
