// Package quota throttles a single client's submission rate ahead of
// server-side enforcement. The gate is advisory UX throttling, not a security
// boundary; its persisted state converges last-writer-wins across processes.
package quota

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// Config fixes the bucket size and refill cadence.
type Config struct {
	// Max is the bucket capacity in tokens.
	Max int
	// RefillInterval is the time one token takes to regenerate.
	RefillInterval time.Duration
}

// DefaultConfig is stricter than the server-side limit so the common case
// never reaches a server rejection.
var DefaultConfig = Config{Max: 8, RefillInterval: 7500 * time.Millisecond}

// Validate reports whether the configuration is usable.
func (c Config) Validate() error {
	if c.Max <= 0 {
		return fmt.Errorf("quota max must be positive, got %d", c.Max)
	}
	if c.RefillInterval <= 0 {
		return fmt.Errorf("quota refill interval must be positive, got %s", c.RefillInterval)
	}
	return nil
}

// State is the persisted gate record.
type State struct {
	Remaining        int   `json:"remaining"`
	LastRefillMillis int64 `json:"last_refill_ms"`
}

// Store persists gate state across process restarts. A nil Store is valid
// and keeps the gate in-memory only.
type Store interface {
	// Load returns the persisted state and whether one exists.
	Load() (State, bool, error)
	// Save replaces the persisted state.
	Save(State) error
}

// Gate is a token bucket local to one client.
type Gate struct {
	cfg   Config
	store Store

	mu         sync.Mutex
	remaining  int
	lastRefill time.Time
}

// New creates a gate, restoring persisted state when the store has any. A
// fresh gate starts with a full bucket.
func New(cfg Config, store Store) (*Gate, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g := &Gate{cfg: cfg, store: store, remaining: cfg.Max, lastRefill: time.Now()}
	if store == nil {
		return g, nil
	}
	state, ok, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load quota state: %w", err)
	}
	if ok {
		g.remaining = min(max(state.Remaining, 0), cfg.Max)
		g.lastRefill = time.UnixMilli(state.LastRefillMillis)
	}
	return g, nil
}

// Refill adds one token per whole interval elapsed since the last refill,
// capped at Max. The refill clock only ever advances by whole intervals, so
// fractional progress toward the next token is never lost.
func (g *Gate) Refill(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refillLocked(now)
	g.flushLocked()
}

// Consume takes one token if any is available.
func (g *Gate) Consume(now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refillLocked(now)
	if g.remaining <= 0 {
		return false
	}
	g.remaining--
	g.flushLocked()
	return true
}

// Refund returns one token, capped at Max. Callers refund only submissions
// rejected for reasons that should not cost the client, never rate limits.
func (g *Gate) Refund() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.remaining = min(g.cfg.Max, g.remaining+1)
	g.flushLocked()
}

// Remaining returns the tokens currently available.
func (g *Gate) Remaining() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.remaining
}

func (g *Gate) refillLocked(now time.Time) {
	elapsed := now.Sub(g.lastRefill)
	if elapsed < g.cfg.RefillInterval {
		return
	}
	add := int(elapsed / g.cfg.RefillInterval)
	g.remaining = min(g.cfg.Max, g.remaining+add)
	g.lastRefill = g.lastRefill.Add(time.Duration(add) * g.cfg.RefillInterval)
}

// flushLocked persists best-effort; the gate stays usable when the store
// write fails.
func (g *Gate) flushLocked() {
	if g.store == nil {
		return
	}
	state := State{Remaining: g.remaining, LastRefillMillis: g.lastRefill.UnixMilli()}
	if err := g.store.Save(state); err != nil {
		log.Printf("persist quota state err=%v", err)
	}
}
