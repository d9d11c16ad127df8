// Package engine derives game state by folding the record log in order. The
// log prefix is the only source of truth; everything here is a deterministic,
// byte-for-byte reproducible cache of it.
package engine

import (
	"fmt"

	"github.com/louisbranch/dotgrid/internal/grid"
	"github.com/louisbranch/dotgrid/internal/wire"
)

// BoxClaim reports a box completed by an applied event.
type BoxClaim struct {
	BoxID int
	Team  int
}

// Engine folds accepted edge claims into derived ownership and score state.
// Each replica owns exactly one Engine; folding is single-threaded by design
// and the zero synchronization here is intentional.
type Engine struct {
	params        grid.Params
	edgeTaken     []uint64
	boxOwner      []uint8
	scores        [grid.TeamCount]uint64
	eventsApplied uint64
}

// New creates an empty engine for the given grid geometry.
func New(params grid.Params) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	// The wire format reserves 21 bits for the edge; a grid that cannot be
	// encoded must be rejected at startup, not at first submit.
	if params.EdgeCount() > wire.MaxEdgeID+1 {
		return nil, fmt.Errorf("grid has %d edges, wire format carries at most %d", params.EdgeCount(), wire.MaxEdgeID+1)
	}
	return &Engine{
		params:    params,
		edgeTaken: make([]uint64, (params.EdgeCount()+63)/64),
		boxOwner:  make([]uint8, params.BoxCount()),
	}, nil
}

// Params returns the grid geometry the engine was built for.
func (e *Engine) Params() grid.Params {
	return e.params
}

// Apply folds one event into the derived state. A duplicate edge is a no-op,
// so any upstream duplicate that slips through cannot corrupt the fold.
// Claims lists the boxes this event completed, each credited to the event's
// team; an already-owned box is never re-evaluated.
func (e *Engine) Apply(edgeID, team int) (claims []BoxClaim, applied bool) {
	if e.EdgeTaken(edgeID) {
		return nil, false
	}
	e.edgeTaken[edgeID/64] |= 1 << (edgeID % 64)
	e.eventsApplied++
	for _, boxID := range e.params.AdjacentBoxes(edgeID) {
		if e.boxOwner[boxID] != 0 {
			continue
		}
		if !e.boxComplete(boxID) {
			continue
		}
		e.boxOwner[boxID] = uint8(team) + 1
		e.scores[team]++
		claims = append(claims, BoxClaim{BoxID: boxID, Team: team})
	}
	return claims, true
}

// Replay folds a sequence of records in order. It serves both cold-start
// replay and incremental tailing.
func (e *Engine) Replay(records []wire.Record) {
	for _, rec := range records {
		e.Apply(rec.EdgeID, rec.Team)
	}
}

// EdgeTaken reports whether an edge has been claimed.
func (e *Engine) EdgeTaken(edgeID int) bool {
	if !e.params.ValidEdge(edgeID) {
		panic(fmt.Sprintf("engine: edge id %d out of range [0, %d)", edgeID, e.params.EdgeCount()))
	}
	return e.edgeTaken[edgeID/64]&(1<<(edgeID%64)) != 0
}

// BoxOwner returns 0 for an unclaimed box, or team+1 for an owned box.
func (e *Engine) BoxOwner(boxID int) int {
	return int(e.boxOwner[boxID])
}

// Scores returns the number of boxes owned by each team.
func (e *Engine) Scores() [grid.TeamCount]uint64 {
	return e.scores
}

// EventsApplied returns the number of distinct edges folded so far.
func (e *Engine) EventsApplied() uint64 {
	return e.eventsApplied
}

// Full reports whether every edge on the grid has been claimed.
func (e *Engine) Full() bool {
	return e.eventsApplied == uint64(e.params.EdgeCount())
}

func (e *Engine) boxComplete(boxID int) bool {
	for _, edgeID := range e.params.BoxEdges(boxID) {
		if !e.EdgeTaken(edgeID) {
			return false
		}
	}
	return true
}
