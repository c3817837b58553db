package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/glottolab/lateral/pkg/engine"
	"github.com/glottolab/lateral/pkg/matrix"
	"github.com/glottolab/lateral/pkg/tree"
)

func testResult(t *testing.T) (engine.Config, *engine.Result) {
	t.Helper()
	tr, err := tree.ParseNewick("((A,B),C);")
	if err != nil {
		t.Fatalf("ParseNewick: %v", err)
	}
	m, err := matrix.New([]matrix.Character{
		{ID: "c1", Present: map[string]bool{"A": true, "C": true}, Weight: 1},
		{ID: "c2", Present: map[string]bool{"A": true, "B": true, "C": true}, Weight: 1},
	})
	if err != nil {
		t.Fatalf("matrix.New: %v", err)
	}

	cfg := engine.DefaultConfig()
	cfg.GainWeight, cfg.LossWeight = 1, 10
	res, err := engine.Run(context.Background(), tr, m, cfg)
	if err != nil {
		t.Fatalf("engine.Run: %v", err)
	}
	return cfg, res
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "lateral.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewStore(t *testing.T) {
	s := newTestStore(t)

	for _, table := range []string{"runs", "edge_stats", "lateral_edges", "character_results"} {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestSaveAndGetRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	cfg, res := testResult(t)

	if err := s.SaveResult(ctx, "run-1", "demo", cfg, res); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}

	rec, err := s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if rec.ID != "run-1" || rec.Dataset != "demo" {
		t.Errorf("record = %+v", rec)
	}
	if rec.Config.GainWeight != cfg.GainWeight || rec.Config.LossWeight != cfg.LossWeight {
		t.Errorf("config round-trip lost weights: %+v", rec.Config)
	}
	if rec.Stats.Characters != res.Stats.Characters {
		t.Errorf("stats round-trip: got %d characters, want %d", rec.Stats.Characters, res.Stats.Characters)
	}

	if _, err := s.GetRun(ctx, "nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("missing run: got %v, want ErrRunNotFound", err)
	}
}

func TestSaveResult_DuplicateID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	cfg, res := testResult(t)

	if err := s.SaveResult(ctx, "run-1", "demo", cfg, res); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}
	if err := s.SaveResult(ctx, "run-1", "demo", cfg, res); err == nil {
		t.Error("duplicate run id accepted")
	}
}

func TestDerivedRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	cfg, res := testResult(t)

	if err := s.SaveResult(ctx, "run-1", "demo", cfg, res); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}

	edges, err := s.EdgeStats(ctx, "run-1")
	if err != nil {
		t.Fatalf("EdgeStats: %v", err)
	}
	if len(edges) != len(res.Edges.Rows()) {
		t.Errorf("got %d edge rows, want %d", len(edges), len(res.Edges.Rows()))
	}

	lateral, err := s.LateralEdges(ctx, "run-1")
	if err != nil {
		t.Fatalf("LateralEdges: %v", err)
	}
	if len(lateral) != len(res.Lateral) {
		t.Fatalf("got %d lateral rows, want %d", len(lateral), len(res.Lateral))
	}
	for i, e := range lateral {
		want := res.Lateral[i]
		if e.NodeA != want.NodeA || e.NodeB != want.NodeB || e.Support != want.Support {
			t.Errorf("lateral row %d = %+v, want %+v", i, e, want)
		}
		if len(e.Characters) != len(want.Characters) {
			t.Errorf("lateral row %d characters = %v, want %v", i, e.Characters, want.Characters)
		}
	}

	chars, err := s.CharacterResults(ctx, "run-1")
	if err != nil {
		t.Fatalf("CharacterResults: %v", err)
	}
	if len(chars) != 2 {
		t.Fatalf("got %d character rows, want 2", len(chars))
	}
	if chars[0].CharacterID != "c1" || chars[0].MinOrigins != 2 {
		t.Errorf("character row = %+v", chars[0])
	}

	if _, err := s.EdgeStats(ctx, "nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("missing run: got %v, want ErrRunNotFound", err)
	}
}

func TestListRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	cfg, res := testResult(t)

	for _, id := range []string{"run-1", "run-2", "run-3"} {
		if err := s.SaveResult(ctx, id, "demo", cfg, res); err != nil {
			t.Fatalf("SaveResult(%s): %v", id, err)
		}
	}

	runs, err := s.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	// Newest first; same timestamps fall back to descending id.
	if runs[0].ID < runs[1].ID {
		t.Errorf("runs out of order: %s before %s", runs[0].ID, runs[1].ID)
	}
}

func TestDeleteRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	cfg, res := testResult(t)

	if err := s.SaveResult(ctx, "run-1", "demo", cfg, res); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}
	if err := s.DeleteRun(ctx, "run-1"); err != nil {
		t.Fatalf("DeleteRun: %v", err)
	}
	if _, err := s.GetRun(ctx, "run-1"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("deleted run still readable: %v", err)
	}
	// Cascade removed the derived rows too.
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM edge_stats").Scan(&n); err != nil || n != 0 {
		t.Errorf("edge_stats count = %d (%v), want 0", n, err)
	}
	if err := s.DeleteRun(ctx, "run-1"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("double delete: got %v, want ErrRunNotFound", err)
	}
}
