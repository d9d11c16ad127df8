// Package replica maintains a read-only copy of the derived game state by
// folding the record log through its own engine. A fully synced replica is
// byte-for-byte identical to the writer's state for the same log prefix.
package replica

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/louisbranch/dotgrid/internal/engine"
	"github.com/louisbranch/dotgrid/internal/grid"
	"github.com/louisbranch/dotgrid/internal/storage"
	"github.com/louisbranch/dotgrid/internal/wire"
)

// ErrTailClosed reports that the log tail terminated while the follower was
// still live. The store closes its tail channel on a read failure, so a
// follower seeing this should resync rather than treat the log as complete.
var ErrTailClosed = errors.New("log tail closed unexpectedly")

// Replica folds records into an exclusively-owned engine. Folding is
// serialized internally; read accessors are safe concurrently.
type Replica struct {
	mu     sync.RWMutex
	engine *engine.Engine
	parser wire.StreamParser
	next   uint64
}

// New creates an empty replica for the given grid geometry.
func New(params grid.Params) (*Replica, error) {
	eng, err := engine.New(params)
	if err != nil {
		return nil, err
	}
	return &Replica{engine: eng}, nil
}

// Restore creates a replica warm-started from an engine snapshot. The caller
// supplies the record offset the snapshot corresponds to.
func Restore(params grid.Params, snapshot []byte, atRecord uint64) (*Replica, error) {
	eng, err := engine.Import(params, snapshot)
	if err != nil {
		return nil, err
	}
	if eng.EventsApplied() > atRecord {
		return nil, fmt.Errorf("snapshot folds %d events but claims offset %d", eng.EventsApplied(), atRecord)
	}
	return &Replica{engine: eng, next: atRecord}, nil
}

// Apply folds one already-decoded record.
func (r *Replica) Apply(rec wire.Record) ([]engine.BoxClaim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.engine.Params().ValidEdge(rec.EdgeID) {
		return nil, fmt.Errorf("record references edge %d outside the grid", rec.EdgeID)
	}
	claims, _ := r.engine.Apply(rec.EdgeID, rec.Team)
	r.next++
	return claims, nil
}

// ApplyChunk folds an arbitrary slice of the record byte stream. Partial
// trailing bytes carry over to the next call, so any chunking is safe. A
// record referencing an edge outside the grid stops the fold: the stream is
// not ours, and skipping it would silently diverge.
func (r *Replica) ApplyChunk(chunk []byte) ([]engine.BoxClaim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var claims []engine.BoxClaim
	for _, rec := range r.parser.Feed(chunk) {
		if !r.engine.Params().ValidEdge(rec.EdgeID) {
			return claims, fmt.Errorf("record references edge %d outside the grid", rec.EdgeID)
		}
		cs, _ := r.engine.Apply(rec.EdgeID, rec.Team)
		claims = append(claims, cs...)
		r.next++
	}
	return claims, nil
}

// Sync folds every record currently in the log.
func (r *Replica) Sync(ctx context.Context, eventLog storage.EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, err := eventLog.ReadFrom(ctx, r.next)
	if err != nil {
		return fmt.Errorf("read log from record %d: %w", r.next, err)
	}
	if (len(data)+r.parser.Pending())%wire.RecordSize != 0 {
		return fmt.Errorf("log read of %d bytes breaks record alignment", len(data))
	}
	for _, rec := range r.parser.Feed(data) {
		r.engine.Apply(rec.EdgeID, rec.Team)
		r.next++
	}
	return nil
}

// Follow folds the existing log and then every new record as it arrives,
// until ctx is cancelled. onClaim, when non-nil, observes each completed box.
// A tail that closes while ctx is still live returns ErrTailClosed.
func (r *Replica) Follow(ctx context.Context, eventLog storage.EventLog, onClaim func(engine.BoxClaim)) error {
	if err := r.Sync(ctx, eventLog); err != nil {
		return err
	}
	tail, err := eventLog.Tail(ctx, r.next)
	if err != nil {
		return fmt.Errorf("open log tail: %w", err)
	}
	for chunk := range tail {
		claims, err := r.ApplyChunk(chunk)
		if err != nil {
			return err
		}
		if onClaim != nil {
			for _, claim := range claims {
				onClaim(claim)
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return ErrTailClosed
}

// EdgeTaken reports whether an edge has been claimed.
func (r *Replica) EdgeTaken(edgeID int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.engine.EdgeTaken(edgeID)
}

// BoxOwner returns 0 for an unclaimed box, or team+1 for an owned box.
func (r *Replica) BoxOwner(boxID int) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.engine.BoxOwner(boxID)
}

// Scores returns the boxes owned by each team.
func (r *Replica) Scores() [grid.TeamCount]uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.engine.Scores()
}

// EventsApplied returns the number of records folded so far.
func (r *Replica) EventsApplied() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.engine.EventsApplied()
}

// Snapshot exports the replica's derived state.
func (r *Replica) Snapshot() ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.engine.Export()
}

// Params returns the grid geometry the replica folds for.
func (r *Replica) Params() grid.Params {
	return r.engine.Params()
}
