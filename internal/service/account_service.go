package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

const defaultAccountColor = "#3b82f6"

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// AccountService manages a user's trading accounts.
type AccountService struct {
	accounts domain.AccountStore
	fx       effects
	logger   *slog.Logger
}

// NewAccountService creates an AccountService.
func NewAccountService(
	accounts domain.AccountStore,
	bus domain.SignalBus,
	audit domain.AuditStore,
	cache domain.StatsCache,
	logger *slog.Logger,
) *AccountService {
	logger = logger.With(slog.String("component", "account_service"))
	return &AccountService{
		accounts: accounts,
		fx:       effects{bus: bus, audit: audit, cache: cache, logger: logger},
		logger:   logger,
	}
}

// AccountInput is the payload for creating an account.
type AccountInput struct {
	Name           string  `json:"name"`
	Color          string  `json:"color"`
	InitialBalance float64 `json:"initialBalance"`
	IsDefault      bool    `json:"isDefault"`
}

// List returns the user's accounts, default first.
func (s *AccountService) List(ctx context.Context, userID string) ([]domain.Account, error) {
	accounts, err := s.accounts.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("account_service: list: %w", err)
	}
	return accounts, nil
}

// Create adds an account for the user.
func (s *AccountService) Create(ctx context.Context, userID string, in AccountInput) (domain.Account, error) {
	a := domain.Account{
		ID:             uuid.New().String(),
		UserID:         userID,
		Name:           strings.TrimSpace(in.Name),
		Color:          in.Color,
		IsDefault:      in.IsDefault,
		InitialBalance: in.InitialBalance,
		CurrentBalance: in.InitialBalance,
		CreatedAt:      time.Now().UTC(),
	}
	if a.Color == "" {
		a.Color = defaultAccountColor
	}
	if err := validateAccount(a); err != nil {
		return domain.Account{}, fmt.Errorf("account_service: create: %w", err)
	}
	if err := s.accounts.Create(ctx, a); err != nil {
		return domain.Account{}, fmt.Errorf("account_service: create: %w", err)
	}
	s.fx.auditLog(ctx, userID, "account.created", map[string]any{"account_id": a.ID})
	s.fx.publish(ctx, userID, EventAccountChanged, a)
	return a, nil
}

// Update applies a patch to the user's account.
func (s *AccountService) Update(ctx context.Context, userID, accountID string, p domain.AccountPatch) (domain.Account, error) {
	a, err := s.accounts.FindOwnedBy(ctx, accountID, userID)
	if err != nil {
		return domain.Account{}, fmt.Errorf("account_service: update: %w", err)
	}
	if p.Name != nil {
		a.Name = strings.TrimSpace(*p.Name)
	}
	if p.Color != nil {
		a.Color = *p.Color
	}
	balanceChanged := false
	if p.InitialBalance != nil {
		a.CurrentBalance += *p.InitialBalance - a.InitialBalance
		a.InitialBalance = *p.InitialBalance
		balanceChanged = true
	}
	if err := validateAccount(a); err != nil {
		return domain.Account{}, fmt.Errorf("account_service: update: %w", err)
	}
	if err := s.accounts.Update(ctx, a); err != nil {
		return domain.Account{}, fmt.Errorf("account_service: update: %w", err)
	}
	if balanceChanged {
		s.fx.invalidate(ctx, userID)
	}
	s.fx.publish(ctx, userID, EventAccountChanged, a)
	return a, nil
}

// SetDefault makes the account the user's default.
func (s *AccountService) SetDefault(ctx context.Context, userID, accountID string) error {
	if err := s.accounts.SetDefault(ctx, accountID, userID); err != nil {
		return fmt.Errorf("account_service: set default: %w", err)
	}
	s.fx.auditLog(ctx, userID, "account.default_changed", map[string]any{"account_id": accountID})
	s.fx.publish(ctx, userID, EventAccountChanged, map[string]string{"id": accountID})
	return nil
}

// Delete removes an account. The default account and accounts that still own
// trades cannot be deleted.
func (s *AccountService) Delete(ctx context.Context, userID, accountID string) error {
	a, err := s.accounts.FindOwnedBy(ctx, accountID, userID)
	if err != nil {
		return fmt.Errorf("account_service: delete: %w", err)
	}
	if a.IsDefault {
		return fmt.Errorf("account_service: delete: %w", domain.ErrDefaultAccount)
	}
	if a.TradeCount > 0 {
		return fmt.Errorf("account_service: delete: %w", domain.ErrAccountHasTrades)
	}
	if err := s.accounts.Delete(ctx, accountID, userID); err != nil {
		return fmt.Errorf("account_service: delete: %w", err)
	}
	s.fx.auditLog(ctx, userID, "account.deleted", map[string]any{"account_id": accountID})
	s.fx.publish(ctx, userID, EventAccountChanged, map[string]string{"id": accountID})
	return nil
}

// requireOwnedAccount maps a missing account to ErrForbidden so callers
// cannot probe for other users' account IDs.
func requireOwnedAccount(ctx context.Context, accounts domain.AccountStore, accountID, userID string) error {
	if accountID == "" {
		return fmt.Errorf("accountId is required: %w", domain.ErrInvalidInput)
	}
	if _, err := accounts.FindOwnedBy(ctx, accountID, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("account %s: %w", accountID, domain.ErrForbidden)
		}
		return err
	}
	return nil
}

func validateAccount(a domain.Account) error {
	switch {
	case a.Name == "":
		return fmt.Errorf("name is required: %w", domain.ErrInvalidInput)
	case len(a.Name) > 100:
		return fmt.Errorf("name is longer than 100 characters: %w", domain.ErrInvalidInput)
	case !hexColor.MatchString(a.Color):
		return fmt.Errorf("color must look like #rrggbb: %w", domain.ErrInvalidInput)
	case a.InitialBalance < 0:
		return fmt.Errorf("initialBalance must not be negative: %w", domain.ErrInvalidInput)
	}
	return nil
}
