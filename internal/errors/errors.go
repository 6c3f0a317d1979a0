package errors

import "errors"

// Common application errors for type-safe error handling.
// These errors can be checked using errors.Is() instead of string comparison.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("service not ready")
	ErrStorage      = errors.New("storage operation failed")
	ErrNetwork      = errors.New("network request failed")
	ErrInternal     = errors.New("internal server error")

	// ErrOutsideBoundary marks coordinates that fall outside the configured
	// planting region. The client rejects these before any network call.
	ErrOutsideBoundary = errors.New("coordinates outside region boundary")

	// Geolocation acquisition errors. Permission denial is terminal; the
	// other two trigger the next step of the fallback chain.
	ErrPermissionDenied    = errors.New("geolocation permission denied")
	ErrPositionUnavailable = errors.New("position unavailable")
	ErrTimeout             = errors.New("position request timed out")
)
