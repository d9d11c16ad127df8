// Package storage defines the durable record log consumed by the admission
// coordinator (append) and by every replica (read-from-offset and tail).
package storage

import (
	"context"
	"errors"
)

// ErrNotFound indicates a requested record range is missing.
var ErrNotFound = errors.New("record not found")

// EventLog is an ordered, durable, append-only sequence of fixed-size records.
// Appends are writer-exclusive; reads and tails are shared and never observe
// a record mutate or disappear.
type EventLog interface {
	// Append durably appends one encoded record and returns its zero-based
	// sequence number. The record is visible to readers once Append returns.
	Append(ctx context.Context, record []byte) (uint64, error)

	// ReadFrom returns the concatenated bytes of every record at or after
	// fromRecord. Reading past the end returns an empty slice, not an error.
	ReadFrom(ctx context.Context, fromRecord uint64) ([]byte, error)

	// Count returns the number of records appended so far.
	Count(ctx context.Context) (uint64, error)

	// Tail streams record bytes starting at fromRecord: existing records
	// first, then each new append as it lands. The channel closes when ctx is
	// done; cancelling one tail does not affect other subscribers or the
	// writer.
	Tail(ctx context.Context, fromRecord uint64) (<-chan []byte, error)
}
