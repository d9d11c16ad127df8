// Package replica parses replica command flags and runs a read-only follower
// of a remote record log.
package replica

import (
	"context"
	"flag"
	"log"

	"github.com/google/uuid"

	"github.com/louisbranch/dotgrid/internal/client"
	"github.com/louisbranch/dotgrid/internal/engine"
	"github.com/louisbranch/dotgrid/internal/grid"
	entrypoint "github.com/louisbranch/dotgrid/internal/platform/cmd"
	"github.com/louisbranch/dotgrid/internal/replica"
	"github.com/louisbranch/dotgrid/internal/wire"
)

// Config holds replica command configuration.
type Config struct {
	ServerURL  string `env:"DOTGRID_SERVER_URL" envDefault:"http://localhost:8080"`
	GridWidth  int    `env:"DOTGRID_GRID_WIDTH" envDefault:"1000"`
	GridHeight int    `env:"DOTGRID_GRID_HEIGHT" envDefault:"1000"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Base URL of the game server")
	fs.IntVar(&cfg.GridWidth, "grid-width", cfg.GridWidth, "Grid width in boxes")
	fs.IntVar(&cfg.GridHeight, "grid-height", cfg.GridHeight, "Grid height in boxes")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run tails the remote record log and folds it into a local replica,
// logging every completed box as it happens.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceReplica, func(ctx context.Context) error {
		params := grid.Params{Width: cfg.GridWidth, Height: cfg.GridHeight}
		rep, err := replica.New(params)
		if err != nil {
			return err
		}

		replicaID := uuid.NewString()[:8]
		api := client.New(cfg.ServerURL, nil)
		log.Printf("replica=%s following server=%s grid=%dx%d", replicaID, cfg.ServerURL, params.Width, params.Height)

		err = api.TailEvents(ctx, 0, func(rec wire.Record) {
			claims, err := rep.Apply(rec)
			if err != nil {
				log.Printf("replica=%s apply edge=%d team=%d err=%v", replicaID, rec.EdgeID, rec.Team, err)
				return
			}
			for _, claim := range claims {
				logClaim(replicaID, claim, rep.Scores())
			}
		})
		if ctx.Err() != nil {
			return nil
		}
		return err
	})
}

func logClaim(replicaID string, claim engine.BoxClaim, scores [grid.TeamCount]uint64) {
	log.Printf("replica=%s box=%d team=%d scores=%v", replicaID, claim.BoxID, claim.Team, scores)
}
