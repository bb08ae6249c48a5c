// Package common defines shared constants and sentinel errors used across
// the gateway layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorUnauthorized = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")

	// Auth errors (invalid, malformed or expired host token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Capability errors raised before any side effect.
	ErrSignatureInvalid = errors.New("invalid signature")
	ErrMissingParameter = errors.New("missing parameter")
	ErrTokenMismatch    = errors.New("token mismatch")

	// Validation errors.
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrVersionKeyInvalid   = errors.New("invalid version key")

	// Save / restore pipeline errors. These are recorded in the asset's
	// gateway state rather than surfaced as transport errors.
	ErrUpstreamFetchFailed = errors.New("upstream fetch failed")
	ErrStorageWriteFailed  = errors.New("storage write failed")
)
