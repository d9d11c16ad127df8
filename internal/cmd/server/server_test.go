package server

import (
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Port)
	}
	if cfg.DBPath != "dotgrid.db" {
		t.Fatalf("expected default db path dotgrid.db, got %q", cfg.DBPath)
	}
	if cfg.GridWidth != 1000 || cfg.GridHeight != 1000 {
		t.Fatalf("expected default 1000x1000 grid, got %dx%d", cfg.GridWidth, cfg.GridHeight)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-port", "9001", "-db", "/tmp/test.db", "-grid-width", "3", "-grid-height", "2"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 9001 {
		t.Fatalf("expected port 9001, got %d", cfg.Port)
	}
	if cfg.DBPath != "/tmp/test.db" {
		t.Fatalf("expected db override, got %q", cfg.DBPath)
	}
	if cfg.GridWidth != 3 || cfg.GridHeight != 2 {
		t.Fatalf("expected 3x2 grid, got %dx%d", cfg.GridWidth, cfg.GridHeight)
	}
}

func TestParseConfigEnv(t *testing.T) {
	t.Setenv("DOTGRID_ADDR", "127.0.0.1:9999")
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if got := cfg.listenAddr(); got != "127.0.0.1:9999" {
		t.Fatalf("expected env addr, got %q", got)
	}
}
