package integration_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/glottolab/lateral/pkg/blob"
	"github.com/glottolab/lateral/pkg/dataset"
	"github.com/glottolab/lateral/pkg/engine"
	"github.com/glottolab/lateral/pkg/reports"
	"github.com/glottolab/lateral/pkg/store"
)

// TestPipelineIntegration drives the full local path: dataset files on disk,
// reconciliation, persistence, report generation and artifact storage.
func TestPipelineIntegration(t *testing.T) {
	tmpDir := t.TempDir()

	treePath := filepath.Join(tmpDir, "tree.nwk")
	if err := os.WriteFile(treePath, []byte("((A,B),C);\n"), 0644); err != nil {
		t.Fatalf("writing tree: %v", err)
	}

	wordlist := strings.Join([]string{
		"ID\tDOCULECT\tCONCEPT\tCOGID",
		"1\tA\tstone\t1",
		"2\tC\tstone\t1",
		"3\tA\twater\t2",
		"4\tB\twater\t2",
		"5\tC\twater\t2",
	}, "\n") + "\n"
	wordlistPath := filepath.Join(tmpDir, "wordlist.tsv")
	if err := os.WriteFile(wordlistPath, []byte(wordlist), 0644); err != nil {
		t.Fatalf("writing wordlist: %v", err)
	}

	groupsPath := filepath.Join(tmpDir, "groups.tsv")
	if err := os.WriteFile(groupsPath, []byte("A\tcoastal\nB\tinland\nC\tcoastal\n"), 0644); err != nil {
		t.Fatalf("writing groups: %v", err)
	}

	ds, err := dataset.Load("integration", treePath, wordlistPath, groupsPath)
	if err != nil {
		t.Fatalf("loading dataset: %v", err)
	}

	cfg := engine.Config{
		GainWeight:      1,
		LossWeight:      10,
		TransferCost:    0.5,
		OriginThreshold: 1,
		TieCap:          1000,
		Seed:            1,
		GroupBias:       2,
	}

	ctx := context.Background()
	res, err := engine.Run(ctx, ds.Tree, ds.Matrix, cfg)
	if err != nil {
		t.Fatalf("running analysis: %v", err)
	}

	if res.Stats.Characters != 2 {
		t.Fatalf("analyzed %d characters, want 2", res.Stats.Characters)
	}
	if len(res.Lateral) != 1 {
		t.Fatalf("lateral = %+v, want a single candidate", res.Lateral)
	}
	edge := res.Lateral[0]
	if edge.NodeA != "A" || edge.NodeB != "C" {
		t.Errorf("candidate endpoints = %s/%s, want A/C", edge.NodeA, edge.NodeB)
	}
	if !edge.SameGroup || edge.Group != "coastal" {
		t.Errorf("group annotation = %+v", edge)
	}
	if edge.Support != 1 {
		t.Errorf("Support = %v, want 1 ((gain-transfer) * group bias)", edge.Support)
	}

	// Persist and read back
	st, err := store.NewStore(filepath.Join(tmpDir, "lateral.db"))
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	defer st.Close()

	const runID = "run_integration"
	if err := st.SaveResult(ctx, runID, ds.Name, cfg, res); err != nil {
		t.Fatalf("persisting run: %v", err)
	}
	rec, err := st.GetRun(ctx, runID)
	if err != nil {
		t.Fatalf("reading run back: %v", err)
	}
	if rec.Dataset != "integration" || rec.Stats.Characters != 2 {
		t.Errorf("run record = %+v", rec)
	}

	// Reports render from the persisted rows
	gen, err := reports.NewReportGenerator(reports.ReportTypeLateral, st)
	if err != nil {
		t.Fatalf("creating generator: %v", err)
	}
	r, err := gen.Generate(ctx, reports.ReportParams{RunID: runID})
	if err != nil {
		t.Fatalf("generating report: %v", err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	if !strings.Contains(string(data), "coastal") {
		t.Errorf("lateral report missing group column:\n%s", data)
	}

	// Artifacts land under runs/<id>/
	artifacts := blob.NewLocalStore(filepath.Join(tmpDir, "artifacts"))
	if err := artifacts.Put(ctx, blob.RunKey(runID, "lateral.csv"), strings.NewReader(string(data))); err != nil {
		t.Fatalf("storing artifact: %v", err)
	}
	if err := artifacts.Put(ctx, blob.RunKey(runID, "scenarios.tsv"), reports.ScenarioTSV(ds.Tree, res)); err != nil {
		t.Fatalf("storing scenario dump: %v", err)
	}
	keys, err := artifacts.List(ctx, blob.RunPrefix(runID))
	if err != nil {
		t.Fatalf("listing artifacts: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("artifacts = %v, want 2 keys", keys)
	}
}
