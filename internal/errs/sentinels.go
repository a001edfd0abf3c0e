// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service/client layers.
var (
	// ErrValidation indicates caller-supplied input violates a precondition (e.g. missing owner id).
	ErrValidation = errors.New("validation")

	// ErrRead indicates the backend or transport failed a read.
	ErrRead = errors.New("read failed")

	// ErrWrite indicates the backend or transport rejected or failed a write.
	ErrWrite = errors.New("write failed")

	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates failed authentication/authorization.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., email taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrRateLimited indicates too many failed sign-in attempts.
	ErrRateLimited = errors.New("rate limited")
)
