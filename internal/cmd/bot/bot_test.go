package bot

import (
	"flag"
	"testing"

	"github.com/louisbranch/dotgrid/internal/grid"
	"github.com/louisbranch/dotgrid/internal/replica"
	"github.com/louisbranch/dotgrid/internal/wire"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("bot", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Team != 0 {
		t.Fatalf("expected default team 0, got %d", cfg.Team)
	}
	if cfg.QuotaMax != 8 {
		t.Fatalf("expected default quota max 8, got %d", cfg.QuotaMax)
	}
	if cfg.QuotaRefillMS != 7500 {
		t.Fatalf("expected default refill 7500ms, got %d", cfg.QuotaRefillMS)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	fs := flag.NewFlagSet("bot", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-team", "2", "-quota", "/tmp/quota.json"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Team != 2 {
		t.Fatalf("expected team 2, got %d", cfg.Team)
	}
	if cfg.QuotaPath != "/tmp/quota.json" {
		t.Fatalf("expected quota path override, got %q", cfg.QuotaPath)
	}
}

func TestPickFreeEdge(t *testing.T) {
	params := grid.Params{Width: 2, Height: 1}
	rep, err := replica.New(params)
	if err != nil {
		t.Fatalf("replica.New returned error: %v", err)
	}
	a := &agent{params: params, rep: rep}

	edgeCount := params.EdgeCount()
	// Fill every edge but the last one.
	for edgeID := 0; edgeID < edgeCount-1; edgeID++ {
		if _, err := rep.Apply(wire.Record{EdgeID: edgeID, Team: 0}); err != nil {
			t.Fatalf("apply edge %d: %v", edgeID, err)
		}
	}

	edgeID, ok := a.pickFreeEdge(edgeCount)
	if !ok {
		t.Fatalf("pickFreeEdge found nothing with one edge free")
	}
	if edgeID != edgeCount-1 {
		t.Fatalf("pickFreeEdge = %d, want %d", edgeID, edgeCount-1)
	}

	if _, err := rep.Apply(wire.Record{EdgeID: edgeCount - 1, Team: 0}); err != nil {
		t.Fatalf("apply last edge: %v", err)
	}
	if _, ok := a.pickFreeEdge(edgeCount); ok {
		t.Fatalf("pickFreeEdge found an edge on a full board")
	}
}
