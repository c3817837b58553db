// Command lateral runs a gain-loss analysis locally: it loads a Newick tree
// and a cognate wordlist, reconciles every character, prints a borrowing
// summary and optionally persists the run and its report artifacts.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/glottolab/lateral/pkg/blob"
	"github.com/glottolab/lateral/pkg/dataset"
	"github.com/glottolab/lateral/pkg/engine"
	"github.com/glottolab/lateral/pkg/reports"
	"github.com/glottolab/lateral/pkg/store"
)

var (
	Version   = "v1.0.0"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	var (
		treePath     string
		wordlistPath string
		groupsPath   string
		name         string
		dbPath       string
		outDir       string
		jsonOut      bool
	)

	def := engine.DefaultConfig()
	cfg := def

	flag.StringVar(&treePath, "tree", "", "path to the reference tree (Newick)")
	flag.StringVar(&wordlistPath, "wordlist", "", "path to the cognate wordlist (TSV)")
	flag.StringVar(&groupsPath, "groups", "", "optional taxon group file (TSV)")
	flag.StringVar(&name, "name", "dataset", "dataset label")
	flag.StringVar(&dbPath, "db", "", "persist the run to this SQLite database")
	flag.StringVar(&outDir, "out", "", "write report artifacts under this directory (requires -db)")
	flag.BoolVar(&jsonOut, "json", false, "print the summary as JSON")
	flag.Float64Var(&cfg.GainWeight, "gain", def.GainWeight, "cost of an innovation event")
	flag.Float64Var(&cfg.LossWeight, "loss", def.LossWeight, "cost of a loss event")
	flag.Float64Var(&cfg.TransferCost, "transfer", def.TransferCost, "cost attributed to a lateral transfer")
	flag.Float64Var(&cfg.GroupBias, "group-bias", def.GroupBias, "support multiplier for same-group candidates")
	flag.IntVar(&cfg.OriginThreshold, "threshold", def.OriginThreshold, "origins tolerated before the borrowing search triggers")
	flag.IntVar(&cfg.TieCap, "tie-cap", def.TieCap, "maximum tied scenarios materialized per character")
	flag.IntVar(&cfg.Workers, "workers", def.Workers, "reconciliation workers (0 = GOMAXPROCS)")
	flag.Int64Var(&cfg.Seed, "seed", def.Seed, "tie sampling seed")
	flag.BoolVar(&cfg.PreferPresentRoot, "prefer-present-root", def.PreferPresentRoot, "break root-state ties toward presence")
	flag.Parse()

	if treePath == "" || wordlistPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: lateral -tree tree.nwk -wordlist data.tsv [options]")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if outDir != "" && dbPath == "" {
		fmt.Fprintln(os.Stderr, "-out requires -db: report artifacts are generated from the persisted run")
		os.Exit(1)
	}

	ds, err := dataset.Load(name, treePath, wordlistPath, groupsPath)
	if err != nil {
		log.Fatalf("loading dataset: %v", err)
	}

	ctx := context.Background()
	res, err := engine.Run(ctx, ds.Tree, ds.Matrix, cfg)
	if err != nil {
		log.Fatalf("analysis failed: %v", err)
	}

	runID := newRunID()
	if dbPath != "" {
		st, err := store.NewStore(dbPath)
		if err != nil {
			log.Fatalf("opening store: %v", err)
		}
		defer st.Close()
		if err := st.SaveResult(ctx, runID, ds.Name, cfg, res); err != nil {
			log.Fatalf("persisting run: %v", err)
		}
		if outDir != "" {
			if err := writeArtifacts(ctx, st, ds, res, runID, outDir); err != nil {
				log.Fatalf("writing artifacts: %v", err)
			}
		}
	}

	if jsonOut {
		printJSON(runID, ds, cfg, res)
		return
	}
	printSummary(runID, ds, res)
}

func printSummary(runID string, ds *dataset.Dataset, res *engine.Result) {
	fmt.Printf("Dataset: %s (%d taxa, %d characters)\n", ds.Name, len(ds.Tree.Taxa()), ds.Matrix.Len())
	fmt.Printf("Run: %s\n", runID)
	fmt.Printf("Total cost: %g | Avg origins: %.2f | Max origins: %d | Workers: %d\n",
		res.Stats.TotalCost, res.Stats.AvgOrigins, res.Stats.MaxOrigins, res.Stats.Workers)

	if len(res.Lateral) == 0 {
		fmt.Println("No borrowing candidates.")
	} else {
		fmt.Printf("Borrowing candidates: %d\n", len(res.Lateral))
		for i, e := range res.Lateral {
			fmt.Printf("  %d. %s <-> %s support=%.3f distance=%d via %s",
				i+1, e.NodeA, e.NodeB, e.Support, e.Distance, strings.Join(e.Characters, ","))
			if e.SameGroup {
				fmt.Printf(" group=%s", e.Group)
			}
			fmt.Println()
		}
	}

	for _, w := range res.Warnings {
		fmt.Printf("warning (%s): %s\n", w.CharacterID, w.Message)
	}
}

func printJSON(runID string, ds *dataset.Dataset, cfg engine.Config, res *engine.Result) {
	out := struct {
		RunID      string               `json:"run_id"`
		Dataset    string               `json:"dataset"`
		Config     engine.Config        `json:"config"`
		Stats      engine.RunStats      `json:"stats"`
		Lateral    []engine.LateralEdge `json:"lateral"`
		Vocabulary engine.Vocabulary    `json:"vocabulary"`
		Warnings   []engine.Warning     `json:"warnings,omitempty"`
	}{runID, ds.Name, cfg, res.Stats, res.Lateral, res.Vocabulary, res.Warnings}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		log.Fatalf("encoding summary: %v", err)
	}
	fmt.Println(string(data))
}

// writeArtifacts renders every report of the run plus the scenario dump
// into the artifact directory under runs/<id>/.
func writeArtifacts(ctx context.Context, st *store.Store, ds *dataset.Dataset, res *engine.Result, runID, outDir string) error {
	artifacts := blob.NewLocalStore(outDir)

	files := []struct {
		reportType reports.ReportType
		name       string
	}{
		{reports.ReportTypeEdges, "edges.csv"},
		{reports.ReportTypeLateral, "lateral.csv"},
		{reports.ReportTypeCharacters, "characters.csv"},
		{reports.ReportTypeStats, "stats.txt"},
	}
	for _, f := range files {
		gen, err := reports.NewReportGenerator(f.reportType, st)
		if err != nil {
			return err
		}
		r, err := gen.Generate(ctx, reports.ReportParams{RunID: runID})
		if err != nil {
			return fmt.Errorf("generating %s: %w", f.name, err)
		}
		if err := artifacts.Put(ctx, blob.RunKey(runID, f.name), r); err != nil {
			return err
		}
	}

	if err := artifacts.Put(ctx, blob.RunKey(runID, "scenarios.tsv"), reports.ScenarioTSV(ds.Tree, res)); err != nil {
		return err
	}
	fmt.Printf("Artifacts written to %s\n", outDir)
	return nil
}

func newRunID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		log.Fatalf("generating run id: %v", err)
	}
	return "run_" + hex.EncodeToString(b)
}
