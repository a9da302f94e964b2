package store

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnavailable means the backing database could not be reached or is closed.
	ErrUnavailable = errors.New("email store unavailable")

	// ErrInvalid means a document is missing a required field.
	ErrInvalid = errors.New("invalid document")

	// ErrNotFound means no document has the requested id.
	ErrNotFound = errors.New("document not found")

	// ErrQueryInvalid means a search query is malformed, e.g. an inverted date range.
	ErrQueryInvalid = errors.New("invalid query")
)

// unavailable wraps a database error as ErrUnavailable while keeping the
// driver error in the chain. Context errors are passed through unchanged so
// callers can tell cancellation from an outage.
func unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
