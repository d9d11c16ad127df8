// Package bot parses bot command flags and runs a headless agent that claims
// random free edges for one team. The bot is an external client: it tails the
// record log like any other follower, rebuilds the board locally, and submits
// through the same quota-gated API a player would use.
package bot

import (
	"context"
	"flag"
	"log"
	"math/rand/v2"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/louisbranch/dotgrid/internal/client"
	apperrors "github.com/louisbranch/dotgrid/internal/errors"
	"github.com/louisbranch/dotgrid/internal/grid"
	entrypoint "github.com/louisbranch/dotgrid/internal/platform/cmd"
	"github.com/louisbranch/dotgrid/internal/quota"
	"github.com/louisbranch/dotgrid/internal/replica"
	"github.com/louisbranch/dotgrid/internal/wire"
)

// Config holds bot command configuration.
type Config struct {
	ServerURL     string `env:"DOTGRID_SERVER_URL" envDefault:"http://localhost:8080"`
	Team          int    `env:"DOTGRID_TEAM" envDefault:"0"`
	GridWidth     int    `env:"DOTGRID_GRID_WIDTH" envDefault:"1000"`
	GridHeight    int    `env:"DOTGRID_GRID_HEIGHT" envDefault:"1000"`
	QuotaPath     string `env:"DOTGRID_QUOTA_PATH"`
	QuotaMax      int    `env:"DOTGRID_QUOTA_MAX" envDefault:"8"`
	QuotaRefillMS int    `env:"DOTGRID_QUOTA_REFILL_MS" envDefault:"7500"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Base URL of the game server")
	fs.IntVar(&cfg.Team, "team", cfg.Team, "Team id to claim edges for")
	fs.IntVar(&cfg.GridWidth, "grid-width", cfg.GridWidth, "Grid width in boxes")
	fs.IntVar(&cfg.GridHeight, "grid-height", cfg.GridHeight, "Grid height in boxes")
	fs.StringVar(&cfg.QuotaPath, "quota", cfg.QuotaPath, "Path for persisted quota state (empty keeps it in memory)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run tails the record log into a local board and submits random free edges
// until the game finishes or ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceBot, func(ctx context.Context) error {
		params := grid.Params{Width: cfg.GridWidth, Height: cfg.GridHeight}
		rep, err := replica.New(params)
		if err != nil {
			return err
		}

		var store quota.Store
		if cfg.QuotaPath != "" {
			store, err = quota.NewFileStore(cfg.QuotaPath)
			if err != nil {
				return err
			}
		}
		gate, err := quota.New(quota.Config{
			Max:            cfg.QuotaMax,
			RefillInterval: time.Duration(cfg.QuotaRefillMS) * time.Millisecond,
		}, store)
		if err != nil {
			return err
		}

		api := client.New(cfg.ServerURL, gate)
		agent := &agent{cfg: cfg, params: params, rep: rep, api: api}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			err := api.TailEvents(ctx, 0, func(rec wire.Record) {
				if _, err := rep.Apply(rec); err != nil {
					log.Printf("bot team=%d apply edge=%d err=%v", cfg.Team, rec.EdgeID, err)
				}
			})
			if ctx.Err() != nil {
				return nil
			}
			return err
		})
		g.Go(func() error {
			defer cancel()
			return agent.run(ctx)
		})
		return g.Wait()
	})
}

// agent holds the bot's local view of the board and its submission loop.
type agent struct {
	cfg    Config
	params grid.Params
	rep    *replica.Replica
	api    *client.Client
}

func (a *agent) run(ctx context.Context) error {
	edgeCount := a.params.EdgeCount()
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		edgeID, ok := a.pickFreeEdge(edgeCount)
		if !ok {
			log.Printf("bot team=%d board full scores=%v", a.cfg.Team, a.rep.Scores())
			return nil
		}

		err := a.api.Submit(ctx, edgeID, a.cfg.Team)
		switch {
		case err == nil:
		case apperrors.IsCode(err, apperrors.CodeGameOver):
			log.Printf("bot team=%d game over scores=%v", a.cfg.Team, a.rep.Scores())
			return nil
		case apperrors.IsCode(err, apperrors.CodeRateLimited):
			if !sleep(ctx, time.Duration(a.cfg.QuotaRefillMS)*time.Millisecond) {
				return nil
			}
		case apperrors.IsCode(err, apperrors.CodeEdgeTaken):
			// The tail has not caught up to this edge yet; the local board
			// will converge, just pick another.
		case apperrors.IsCode(err, apperrors.CodeWarmingUp):
			if !sleep(ctx, time.Second) {
				return nil
			}
		default:
			log.Printf("bot team=%d submit edge=%d err=%v", a.cfg.Team, edgeID, err)
			if !sleep(ctx, time.Second) {
				return nil
			}
		}
	}
}

// pickFreeEdge samples random edges before falling back to a linear scan, so
// a sparse board stays O(1) and a nearly full board still terminates.
func (a *agent) pickFreeEdge(edgeCount int) (int, bool) {
	for range 64 {
		edgeID := rand.IntN(edgeCount)
		if !a.rep.EdgeTaken(edgeID) {
			return edgeID, true
		}
	}
	start := rand.IntN(edgeCount)
	for offset := range edgeCount {
		edgeID := (start + offset) % edgeCount
		if !a.rep.EdgeTaken(edgeID) {
			return edgeID, true
		}
	}
	return 0, false
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
