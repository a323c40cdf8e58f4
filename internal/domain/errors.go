package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidInput     = errors.New("invalid input")
	ErrRateLimited      = errors.New("rate limited")
	ErrLockHeld         = errors.New("lock already held")
	ErrTokenRevoked     = errors.New("token revoked")
	ErrAccountHasTrades = errors.New("account still owns trades")
	ErrDefaultAccount   = errors.New("account is the default account")
	ErrEmptyImport      = errors.New("import file has no data rows")
	ErrImportInProgress = errors.New("import already in progress for account")
)
