// Package common defines shared constants and sentinel errors used across
// the server, the repositories and the maintenance CLI. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Registration conflict: the username is already taken.
	ErrUserAlreadyExists = errors.New("username already registered")

	// Bad username/password, invalid token or unknown token subject.
	// One error for all of them so callers cannot tell which check failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Token codec errors (forged, malformed or expired token).
	// Never leaves the service layer.
	ErrInvalidToken = errors.New("invalid or expired token")

	// Input rejected before reaching the store.
	ErrValidation = errors.New("validation error")

	// Configuration errors.
	ErrMissingSecretKey = errors.New("secret key is not configured")
)
