// Package auth implements the single credential scheme of the journal: a
// bcrypt password exchanged at login for a short-lived HS256 session token.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

// MinSecretLen is the minimum signing secret length in bytes.
const MinSecretLen = 32

// Session is a verified token.
type Session struct {
	UserID    string
	TokenID   string
	ExpiresAt time.Time
}

// Token is a freshly issued session token.
type Token struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}

// Issuer signs and verifies session tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// IssuerConfig configures an Issuer.
type IssuerConfig struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
	// Now overrides the clock, mainly for tests.
	Now func() time.Time
}

// NewIssuer creates an Issuer. The secret must be at least MinSecretLen bytes.
func NewIssuer(cfg IssuerConfig) (*Issuer, error) {
	if len(cfg.Secret) < MinSecretLen {
		return nil, fmt.Errorf("auth: signing secret must be at least %d bytes", MinSecretLen)
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("auth: token ttl must be positive")
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "tradejournal"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Issuer{
		secret: cfg.Secret,
		ttl:    cfg.TTL,
		issuer: cfg.Issuer,
		now:    cfg.Now,
	}, nil
}

// TTL returns the lifetime of issued tokens.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue signs a new token for userID.
func (i *Issuer) Issue(userID string) (Token, error) {
	if userID == "" {
		return Token{}, fmt.Errorf("auth: issue: empty user id: %w", domain.ErrInvalidInput)
	}
	now := i.now()
	exp := now.Add(i.ttl)
	id := uuid.New().String()

	claims := jwt.RegisteredClaims{
		Issuer:    i.issuer,
		Subject:   userID,
		ID:        id,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return Token{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return Token{Value: signed, ID: id, ExpiresAt: exp.Truncate(time.Second)}, nil
}

// Verify checks the signature, algorithm, issuer and expiry of raw. Every
// failure is reported as domain.ErrUnauthorized.
func (i *Issuer) Verify(raw string) (Session, error) {
	if raw == "" {
		return Session{}, fmt.Errorf("auth: missing token: %w", domain.ErrUnauthorized)
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return Session{}, fmt.Errorf("auth: verify token: %w: %v", domain.ErrUnauthorized, err)
	}
	if claims.Subject == "" || claims.ID == "" {
		return Session{}, fmt.Errorf("auth: token lacks subject or id: %w", domain.ErrUnauthorized)
	}
	return Session{
		UserID:    claims.Subject,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
