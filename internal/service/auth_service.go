package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/tradejournal/internal/auth"
	"github.com/alanyoungcy/tradejournal/internal/domain"
	"github.com/alanyoungcy/tradejournal/internal/notify"
)

// AuthConfig tunes the AuthService.
type AuthConfig struct {
	BcryptCost  int
	LoginLimit  int
	LoginWindow time.Duration
}

// AuthService handles signup, login, logout and session verification.
type AuthService struct {
	users    domain.UserStore
	issuer   *auth.Issuer
	revoker  domain.TokenRevoker
	limiter  domain.RateLimiter
	notifier domain.Notifier
	fx       effects
	cfg      AuthConfig
	logger   *slog.Logger

	// decoyHash is compared against when the email is unknown.
	decoyHash     string
	checkPassword func(hash, password string) error
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users domain.UserStore,
	issuer *auth.Issuer,
	revoker domain.TokenRevoker,
	limiter domain.RateLimiter,
	audit domain.AuditStore,
	notifier domain.Notifier,
	cfg AuthConfig,
	logger *slog.Logger,
) *AuthService {
	logger = logger.With(slog.String("component", "auth_service"))
	decoy, err := auth.DecoyHash(cfg.BcryptCost)
	if err != nil {
		logger.Warn("decoy password hash unavailable", slog.String("error", err.Error()))
	}
	return &AuthService{
		users:         users,
		issuer:        issuer,
		revoker:       revoker,
		limiter:       limiter,
		notifier:      notifier,
		fx:            effects{audit: audit, logger: logger},
		cfg:           cfg,
		logger:        logger,
		decoyHash:     decoy,
		checkPassword: auth.CheckPassword,
	}
}

// SignupInput is the payload of a signup request.
type SignupInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Session is a logged-in user together with the token that identifies them.
type Session struct {
	User  domain.User
	Token auth.Token
}

// Signup creates the user and their default account in one transaction and
// returns a fresh session.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (Session, error) {
	email, err := normaliseEmail(in.Email)
	if err != nil {
		return Session{}, fmt.Errorf("auth_service: signup: %w", err)
	}
	hash, err := auth.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return Session{}, fmt.Errorf("auth_service: signup: %w", err)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    now,
	}
	account := domain.Account{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Name:      domain.DefaultAccountName,
		Color:     defaultAccountColor,
		IsDefault: true,
		CreatedAt: now,
	}
	if err := s.users.CreateWithAccount(ctx, user, account); err != nil {
		return Session{}, fmt.Errorf("auth_service: signup: %w", err)
	}

	tok, err := s.issuer.Issue(user.ID)
	if err != nil {
		return Session{}, fmt.Errorf("auth_service: signup: %w", err)
	}

	s.fx.auditLog(ctx, user.ID, "user.signup", map[string]any{"email": email})
	s.logger.InfoContext(ctx, "user signed up", slog.String("user_id", user.ID))
	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, notify.EventSignup, "New signup", email); err != nil {
			s.logger.WarnContext(ctx, "signup notification failed", slog.String("error", err.Error()))
		}
	}
	return Session{User: user, Token: tok}, nil
}

// Login checks the credentials and returns a fresh session. Attempts are rate
// limited per clientKey (usually the client IP). Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password, clientKey string) (Session, error) {
	if s.limiter != nil && s.cfg.LoginLimit > 0 {
		ok, err := s.limiter.Allow(ctx, "login:"+clientKey, s.cfg.LoginLimit, s.cfg.LoginWindow)
		switch {
		case err != nil:
			s.logger.WarnContext(ctx, "login rate limiter unavailable", slog.String("error", err.Error()))
		case !ok:
			return Session{}, fmt.Errorf("auth_service: login: %w", domain.ErrRateLimited)
		}
	}

	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			_ = s.checkPassword(s.decoyHash, password)
			return Session{}, fmt.Errorf("auth_service: login: %w", domain.ErrUnauthorized)
		}
		return Session{}, fmt.Errorf("auth_service: login: %w", err)
	}
	if err := s.checkPassword(user.PasswordHash, password); err != nil {
		return Session{}, fmt.Errorf("auth_service: login: %w", err)
	}

	tok, err := s.issuer.Issue(user.ID)
	if err != nil {
		return Session{}, fmt.Errorf("auth_service: login: %w", err)
	}
	s.fx.auditLog(ctx, user.ID, "user.login", nil)
	return Session{User: user, Token: tok}, nil
}

// Logout revokes the session token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, sess auth.Session) error {
	if err := s.revoker.Revoke(ctx, sess.TokenID, sess.ExpiresAt); err != nil {
		return fmt.Errorf("auth_service: logout: %w", err)
	}
	s.fx.auditLog(ctx, sess.UserID, "user.logout", nil)
	return nil
}

// Authenticate verifies a raw token and rejects revoked ones. Every failure
// wraps domain.ErrUnauthorized.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (auth.Session, error) {
	sess, err := s.issuer.Verify(raw)
	if err != nil {
		return auth.Session{}, err
	}
	revoked, err := s.revoker.IsRevoked(ctx, sess.TokenID)
	if err != nil {
		return auth.Session{}, fmt.Errorf("auth_service: authenticate: %w", err)
	}
	if revoked {
		return auth.Session{}, fmt.Errorf("auth_service: authenticate: %w: %w", domain.ErrUnauthorized, domain.ErrTokenRevoked)
	}
	return sess, nil
}

// Me returns the authenticated user.
func (s *AuthService) Me(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("auth_service: me: %w", err)
	}
	return user, nil
}

func normaliseEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("email %q is invalid: %w", raw, domain.ErrInvalidInput)
	}
	return email, nil
}
