// Package server parses server command flags and starts the game coordinator
// behind the HTTP API.
package server

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/louisbranch/dotgrid/internal/coordinator"
	"github.com/louisbranch/dotgrid/internal/grid"
	entrypoint "github.com/louisbranch/dotgrid/internal/platform/cmd"
	httpserver "github.com/louisbranch/dotgrid/internal/server"
	"github.com/louisbranch/dotgrid/internal/storage/sqlite"
	"github.com/louisbranch/dotgrid/internal/telemetry"
)

// Config holds server command configuration.
type Config struct {
	Port           int     `env:"DOTGRID_PORT" envDefault:"8080"`
	Addr           string  `env:"DOTGRID_ADDR"`
	DBPath         string  `env:"DOTGRID_DB_PATH" envDefault:"dotgrid.db"`
	GridWidth      int     `env:"DOTGRID_GRID_WIDTH" envDefault:"1000"`
	GridHeight     int     `env:"DOTGRID_GRID_HEIGHT" envDefault:"1000"`
	RateLimitRPS   float64 `env:"DOTGRID_RATE_LIMIT_RPS" envDefault:"2"`
	RateLimitBurst int     `env:"DOTGRID_RATE_LIMIT_BURST" envDefault:"8"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The server port")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The server listen address (overrides -port)")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the sqlite record log")
	fs.IntVar(&cfg.GridWidth, "grid-width", cfg.GridWidth, "Grid width in boxes")
	fs.IntVar(&cfg.GridHeight, "grid-height", cfg.GridHeight, "Grid height in boxes")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) listenAddr() string {
	if c.Addr != "" {
		return c.Addr
	}
	return fmt.Sprintf(":%d", c.Port)
}

// Run starts the coordinator and serves the HTTP API. The listener comes up
// immediately and answers WARMING_UP until the boot replay finishes.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceServer, func(ctx context.Context) error {
		params := grid.Params{Width: cfg.GridWidth, Height: cfg.GridHeight}
		if err := params.Validate(); err != nil {
			return err
		}

		store, err := sqlite.Open(cfg.DBPath, params)
		if err != nil {
			return err
		}
		defer store.Close()

		metrics := telemetry.New(prometheus.DefaultRegisterer)
		coord, err := coordinator.New(params, store, metrics)
		if err != nil {
			return err
		}

		var limiter httpserver.RateLimiter
		if cfg.RateLimitRPS > 0 {
			limiter = httpserver.NewKeyedLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		}
		srv := httpserver.New(coord, store, limiter, metrics)

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			if err := coord.Boot(ctx); err != nil {
				return fmt.Errorf("boot replay: %w", err)
			}
			log.Printf("boot complete events=%d phase=%s", coord.EventsApplied(), coord.Phase())
			return nil
		})
		g.Go(func() error {
			return srv.Serve(ctx, cfg.listenAddr())
		})
		return g.Wait()
	})
}
