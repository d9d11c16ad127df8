// Package memory provides an in-process record log for tests and embedded
// replicas.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/louisbranch/dotgrid/internal/wire"
)

// Log is an in-memory append-only record log.
type Log struct {
	mu      sync.Mutex
	buf     []byte
	changed chan struct{}
}

// NewLog creates an empty in-memory log.
func NewLog() *Log {
	return &Log{changed: make(chan struct{})}
}

// Append appends one record and wakes every tail subscriber.
func (l *Log) Append(ctx context.Context, record []byte) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(record) != wire.RecordSize {
		return 0, fmt.Errorf("record must be %d bytes, got %d", wire.RecordSize, len(record))
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	seq := uint64(len(l.buf) / wire.RecordSize)
	l.buf = append(l.buf, record...)
	close(l.changed)
	l.changed = make(chan struct{})
	return seq, nil
}

// ReadFrom returns a copy of every record at or after fromRecord.
func (l *Log) ReadFrom(ctx context.Context, fromRecord uint64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	offset := int(fromRecord) * wire.RecordSize
	if offset >= len(l.buf) {
		return nil, nil
	}
	out := make([]byte, len(l.buf)-offset)
	copy(out, l.buf[offset:])
	return out, nil
}

// Count returns the number of records appended so far.
func (l *Log) Count(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return uint64(len(l.buf) / wire.RecordSize), nil
}

// Tail streams record bytes from fromRecord until ctx is cancelled.
func (l *Log) Tail(ctx context.Context, fromRecord uint64) (<-chan []byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(chan []byte)
	go func() {
		defer close(out)
		offset := int(fromRecord) * wire.RecordSize
		for {
			l.mu.Lock()
			avail := len(l.buf) - offset
			var chunk []byte
			if avail > 0 {
				chunk = make([]byte, avail)
				copy(chunk, l.buf[offset:])
			}
			changed := l.changed
			l.mu.Unlock()

			if len(chunk) > 0 {
				select {
				case out <- chunk:
					offset += len(chunk)
				case <-ctx.Done():
					return
				}
				continue
			}
			select {
			case <-changed:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
