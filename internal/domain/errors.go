package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource (corpus, cache entry).
	ErrNotFound = errors.New("not found")
	// ErrInvalidQuery signals a malformed query. Retrying with the same parameters will not help.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInterruptedSearch signals that a computation was cancelled while producing results.
	ErrInterruptedSearch = errors.New("search interrupted")
	// ErrSearchTimeout signals that a caller stopped waiting for a still running search.
	ErrSearchTimeout = errors.New("search timed out")
	// ErrIndexClosed signals that the underlying index was closed mid-search.
	ErrIndexClosed = errors.New("index closed")
)

// ComputationFailure wraps an error raised by the matching engine while producing results.
// It is cached with the entry, so identical requests fail fast until the entry ages out,
// unless the cause is ErrIndexClosed.
type ComputationFailure struct {
	SearchKey string
	Err       error
}

func (e *ComputationFailure) Error() string {
	return fmt.Sprintf("search %s failed: %v", e.SearchKey, e.Err)
}

func (e *ComputationFailure) Unwrap() error { return e.Err }

// Retryable reports whether the underlying cause is transient.
func (e *ComputationFailure) Retryable() bool {
	return !errors.Is(e.Err, ErrInvalidQuery)
}

// NewComputationFailure wraps err unless it already carries a classification of its own.
func NewComputationFailure(key string, err error) error {
	if err == nil {
		return nil
	}
	var cf *ComputationFailure
	if errors.As(err, &cf) || errors.Is(err, ErrInterruptedSearch) || errors.Is(err, ErrInvalidQuery) {
		return err
	}
	return &ComputationFailure{SearchKey: key, Err: err}
}

// Interrupted converts a context error into ErrInterruptedSearch, keeping the cause.
func Interrupted(cause error) error {
	if cause == nil {
		cause = context.Canceled
	}
	return fmt.Errorf("%w: %w", ErrInterruptedSearch, cause)
}

// IsRetryable reports whether repeating the request may succeed.
// Timeouts, interruptions and transient engine failures are retryable; invalid queries are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrInvalidQuery) || errors.Is(err, ErrNotFound) {
		return false
	}
	if errors.Is(err, ErrSearchTimeout) || errors.Is(err, ErrInterruptedSearch) {
		return true
	}
	var cf *ComputationFailure
	if errors.As(err, &cf) {
		return cf.Retryable()
	}
	return false
}
