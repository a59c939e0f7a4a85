// Package remote is the client for the managed Postgres backend. Every
// collection lives in its own table as a JSONB document keyed by id.
package remote

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an update or delete matched no row.
	ErrNotFound = errors.New("remote record not found")

	// ErrNoConnection is returned by a Client that was never connected.
	ErrNoConnection = errors.New("no remote backend connection")
)

// QueryError wraps a failed statement with the table and operation.
type QueryError struct {
	Table string
	Op    string
	Err   error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("remote %s on %s: %v", e.Op, e.Table, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}
