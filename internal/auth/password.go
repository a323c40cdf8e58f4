package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

const (
	// MinPasswordLen is the shortest accepted password.
	MinPasswordLen = 8
	// maxPasswordLen is the bcrypt input limit.
	maxPasswordLen = 72
)

// HashPassword validates the length of password and returns its bcrypt hash.
func HashPassword(password string, cost int) (string, error) {
	if len(password) < MinPasswordLen || len(password) > maxPasswordLen {
		return "", fmt.Errorf("auth: password must be %d to %d bytes: %w",
			MinPasswordLen, maxPasswordLen, domain.ErrInvalidInput)
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares password against a bcrypt hash. A mismatch is
// reported as domain.ErrUnauthorized.
func CheckPassword(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return fmt.Errorf("auth: wrong password: %w", domain.ErrUnauthorized)
	default:
		return fmt.Errorf("auth: compare password: %w", err)
	}
}

// DecoyHash returns the bcrypt hash of a random secret at cost. Checking a
// password against it takes as long as a real check and never succeeds, which
// keeps logins for unknown emails as slow as wrong-password ones.
func DecoyHash(cost int) (string, error) {
	secret := make([]byte, 24)
	if _, err := rand.Read(secret); err != nil {
		return "", fmt.Errorf("auth: decoy secret: %w", err)
	}
	return HashPassword(hex.EncodeToString(secret), cost)
}
