// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import (
	"errors"
	"fmt"
	"time"
)

// Common sentinels across validate/service/repo layers.
var (
	// ErrEmptyText indicates the submitted text is missing or blank after trimming.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrTextTooLong indicates the trimmed text exceeds the code point limit.
	ErrTextTooLong = errors.New("text cannot exceed 25 characters")

	// ErrRateLimited indicates the client fingerprint is temporarily throttled.
	ErrRateLimited = errors.New("rate limited")

	// ErrInternal marks faults that must surface to clients only as a generic server error.
	ErrInternal = errors.New("internal")

	// ErrMissingCredential indicates the log store credential was not configured.
	ErrMissingCredential = errors.New("missing store credential")
)

// RetryError wraps ErrRateLimited with the time left until the next allowed push.
type RetryError struct {
	After time.Duration
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("rate limited: retry after %s", e.After)
}

// Unwrap lets errors.Is match ErrRateLimited.
func (e *RetryError) Unwrap() error { return ErrRateLimited }

// IsValidation reports whether err is a client-recoverable validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyText) || errors.Is(err, ErrTextTooLong)
}
