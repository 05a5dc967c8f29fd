package service

import "errors"

// Error taxonomy mapped to HTTP statuses at the handler boundary.
var (
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("already exists")
	ErrUnauthorized = errors.New("invalid credentials")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrInternal     = errors.New("internal error")

	// ErrRevokeIncomplete means logout could not confirm revocation in both
	// the ledger and the session registry; the token must be treated as live.
	ErrRevokeIncomplete = errors.New("revocation incomplete")
)
