package errors

import (
	"context"
	"errors"
	"fmt"
)

// Surface error taxonomy. Components wrap these sentinels so callers can
// categorize failures without depending on backend-specific error types.

var (
	// ErrInvalidInput indicates an empty query, unknown tag, or malformed
	// request. Never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfiguration indicates the configured providers cannot
	// produce any answer at all.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrStoreUnavailable indicates a document or conversation backend
	// failed after the configured retry policy.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrProviderUnavailable indicates an embedding or LLM backend failed
	// after retries (and fallbacks, when enabled).
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrSQLGenerationFailed indicates the validator rejected both
	// generation attempts for a database.
	ErrSQLGenerationFailed = errors.New("sql generation failed")

	// ErrSQLExecutionFailed indicates a driver-level failure after
	// sanitization.
	ErrSQLExecutionFailed = errors.New("sql execution failed")

	// ErrCancelled indicates the deadline passed or the caller cancelled.
	// Terminal; no session mutation happens after it.
	ErrCancelled = errors.New("cancelled")

	// ErrParserFailed indicates an external parser rejected a document.
	ErrParserFailed = errors.New("parser failed")

	// ErrNotFound indicates a requested document or session does not exist.
	ErrNotFound = errors.New("resource not found")
)

// Wrap wraps an error with a context message, preserving the sentinel chain.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// IsInvalidInput reports whether err is an invalid input error.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsStoreUnavailable reports whether err is a store availability error.
func IsStoreUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// IsProviderUnavailable reports whether err is a provider availability error.
func IsProviderUnavailable(err error) bool {
	return errors.Is(err, ErrProviderUnavailable)
}

// IsCancelled reports whether err is a cancellation, including the raw
// context errors surfaced by downstream drivers.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// IsNotFound reports whether err is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
