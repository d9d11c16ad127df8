// Package coordinator admits edge claims exactly once and records them
// durably before acknowledging. One coordinator instance is the single
// serialization point for all writes to a game.
package coordinator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/dotgrid/internal/engine"
	apperrors "github.com/louisbranch/dotgrid/internal/errors"
	"github.com/louisbranch/dotgrid/internal/grid"
	"github.com/louisbranch/dotgrid/internal/storage"
	"github.com/louisbranch/dotgrid/internal/telemetry"
	"github.com/louisbranch/dotgrid/internal/wire"
)

// Phase is the coordinator lifecycle state.
type Phase int

const (
	// PhaseBooting means the coordinator is replaying the log and refuses
	// writes with WarmingUp.
	PhaseBooting Phase = iota
	// PhaseReady means the coordinator accepts submissions.
	PhaseReady
	// PhaseFinished means every edge is taken and all submissions are
	// rejected with GameOver.
	PhaseFinished
)

// String returns the lowercase phase name.
func (p Phase) String() string {
	switch p {
	case PhaseBooting:
		return "booting"
	case PhaseReady:
		return "ready"
	case PhaseFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Coordinator owns the authoritative derived state for one game. The boot
// replay and each admitted write are serialized; reads run concurrently with
// each other. The phase lives outside the engine mutex so that submissions
// and health checks fail fast with WarmingUp while Boot holds the lock for
// the full replay.
type Coordinator struct {
	log     storage.EventLog
	metrics *telemetry.Metrics
	tracer  trace.Tracer

	phase  atomic.Int32
	mu     sync.RWMutex
	engine *engine.Engine
}

// New creates a coordinator in the Booting phase. Boot must run before any
// submission is accepted.
func New(params grid.Params, eventLog storage.EventLog, metrics *telemetry.Metrics) (*Coordinator, error) {
	if eventLog == nil {
		return nil, fmt.Errorf("event log is required")
	}
	eng, err := engine.New(params)
	if err != nil {
		return nil, err
	}
	c := &Coordinator{
		log:     eventLog,
		metrics: metrics,
		tracer:  otel.Tracer("dotgrid/coordinator"),
		engine:  eng,
	}
	c.phase.Store(int32(PhaseBooting))
	return c, nil
}

// Boot replays the full durable log into the coordinator's own engine and
// opens the write path. It is the one operation allowed to block everything
// else; submissions arriving meanwhile fail fast with WarmingUp.
func (c *Coordinator) Boot(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "coordinator.Boot")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Phase() != PhaseBooting {
		return nil
	}

	data, err := c.log.ReadFrom(ctx, 0)
	if err != nil {
		return fmt.Errorf("read log for boot replay: %w", err)
	}
	if len(data)%wire.RecordSize != 0 {
		return fmt.Errorf("log length %d is not a whole number of %d-byte records", len(data), wire.RecordSize)
	}

	var parser wire.StreamParser
	for _, rec := range parser.Feed(data) {
		if !c.engine.Params().ValidEdge(rec.EdgeID) {
			return fmt.Errorf("log record %d references edge %d outside the grid", c.engine.EventsApplied(), rec.EdgeID)
		}
		c.engine.Apply(rec.EdgeID, rec.Team)
	}

	next := PhaseReady
	if c.engine.Full() {
		next = PhaseFinished
	}
	c.phase.Store(int32(next))
	c.metrics.EventsApplied(c.engine.EventsApplied())
	span.SetAttributes(attribute.Int64("dotgrid.events_replayed", int64(c.engine.EventsApplied())))
	log.Printf("boot replay complete events=%d phase=%s", c.engine.EventsApplied(), next)
	return nil
}

// Submit admits one edge claim. A nil error means the claim was accepted and
// durably recorded; every rejection carries a machine-readable code. The
// taken-check and the append are indivisible with respect to concurrent
// submissions, so one edge yields exactly one acceptance.
func (c *Coordinator) Submit(ctx context.Context, edgeID, team int) error {
	ctx, span := c.tracer.Start(ctx, "coordinator.Submit", trace.WithAttributes(
		attribute.Int("dotgrid.edge_id", edgeID),
		attribute.Int("dotgrid.team", team),
	))
	defer span.End()

	err := c.submit(ctx, edgeID, team)
	outcome := "ACCEPTED"
	if err != nil {
		outcome = string(apperrors.GetCode(err))
		span.SetAttributes(attribute.String("dotgrid.outcome", outcome))
	}
	c.metrics.Submission(outcome)
	return err
}

func (c *Coordinator) submit(ctx context.Context, edgeID, team int) error {
	params := c.engine.Params()
	if !params.ValidEdge(edgeID) {
		return apperrors.New(apperrors.CodeOutOfRange, "edge id %d out of range [0, %d)", edgeID, params.EdgeCount())
	}
	if team < 0 || team >= grid.TeamCount {
		return apperrors.New(apperrors.CodeOutOfRange, "team %d out of range [0, %d)", team, grid.TeamCount)
	}

	// Checked before taking the lock: while Boot holds it for the replay, a
	// submission must fail fast rather than park until the replay finishes.
	switch c.Phase() {
	case PhaseBooting:
		return apperrors.New(apperrors.CodeWarmingUp, "coordinator is replaying the log")
	case PhaseFinished:
		return apperrors.New(apperrors.CodeGameOver, "every edge is taken")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// The phase can move to Finished between the fast check and the lock.
	if c.Phase() == PhaseFinished {
		return apperrors.New(apperrors.CodeGameOver, "every edge is taken")
	}
	if c.engine.EdgeTaken(edgeID) {
		return apperrors.New(apperrors.CodeEdgeTaken, "edge %d is already taken", edgeID)
	}

	record, err := wire.Encode(edgeID, team)
	if err != nil {
		return err
	}
	// Append before mutating: an event that is not durably recorded must not
	// be visible as accepted, in memory or to the caller.
	if _, err := c.log.Append(ctx, record[:]); err != nil {
		return apperrors.Wrap(apperrors.CodeAppendFailure, err, "append record for edge %d", edgeID)
	}

	claims, applied := c.engine.Apply(edgeID, team)
	if !applied {
		// Unreachable while the lock is held; the taken-check above ran under
		// the same critical section.
		return apperrors.New(apperrors.CodeEdgeTaken, "edge %d is already taken", edgeID)
	}
	for _, claim := range claims {
		c.metrics.BoxClaimed(claim.Team)
		log.Printf("box claimed box_id=%d team=%d", claim.BoxID, claim.Team)
	}
	c.metrics.EventsApplied(c.engine.EventsApplied())

	if c.engine.Full() {
		c.phase.Store(int32(PhaseFinished))
		log.Printf("game finished events=%d scores=%v", c.engine.EventsApplied(), c.engine.Scores())
	}
	return nil
}

// Phase returns the current lifecycle phase. It never blocks, even while the
// boot replay holds the engine lock.
func (c *Coordinator) Phase() Phase {
	return Phase(c.phase.Load())
}

// EdgeTaken reports whether an edge has been claimed.
func (c *Coordinator) EdgeTaken(edgeID int) (bool, error) {
	if !c.engine.Params().ValidEdge(edgeID) {
		return false, apperrors.New(apperrors.CodeOutOfRange, "edge id %d out of range [0, %d)", edgeID, c.engine.Params().EdgeCount())
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.engine.EdgeTaken(edgeID), nil
}

// Scores returns the boxes owned by each team.
func (c *Coordinator) Scores() [grid.TeamCount]uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.engine.Scores()
}

// EventsApplied returns the number of accepted claims folded so far.
func (c *Coordinator) EventsApplied() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.engine.EventsApplied()
}

// BoxOwner returns 0 for an unclaimed box, or team+1 for an owned box.
func (c *Coordinator) BoxOwner(boxID int) (int, error) {
	if boxID < 0 || boxID >= c.engine.Params().BoxCount() {
		return 0, apperrors.New(apperrors.CodeOutOfRange, "box id %d out of range [0, %d)", boxID, c.engine.Params().BoxCount())
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.engine.BoxOwner(boxID), nil
}

// Snapshot exports the derived state for a warm start elsewhere.
func (c *Coordinator) Snapshot() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.engine.Export()
}

// Params returns the grid geometry this coordinator serves.
func (c *Coordinator) Params() grid.Params {
	return c.engine.Params()
}
