package engine

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/glottolab/lateral/pkg/matrix"
	"github.com/glottolab/lateral/pkg/tree"
)

// Warning is a non-fatal condition surfaced to the caller, e.g. a tie set
// that had to be sampled. Callers must qualify confidence in aggregate
// scores when warnings are present.
type Warning struct {
	CharacterID string `json:"character_id"`
	Message     string `json:"message"`
}

// RunStats summarizes one analysis run.
type RunStats struct {
	Characters  int           `json:"characters"`
	Sampled     int           `json:"sampled"`
	TotalCost   float64       `json:"total_cost"`
	AvgOrigins  float64       `json:"avg_origins"`
	MaxOrigins  int           `json:"max_origins"`
	LateralHits int           `json:"lateral_hits"`
	Workers     int           `json:"workers"`
	Duration    time.Duration `json:"duration"`
}

// Result is the complete, immutable output of one analysis run.
type Result struct {
	Characters []CharacterResult
	Edges      EdgeStats
	Lateral    []LateralEdge
	Vocabulary Vocabulary
	Warnings   []Warning
	Stats      RunStats
}

// Run reconciles every character against the tree, aggregates per-edge
// gain/loss scores and proposes lateral borrowing edges. Characters are
// independent, so reconciliation fans out over a worker pool; workers
// return immutable results and all reduction happens single-threaded after
// the pool drains. Deterministic for a fixed config: each character's
// sampler is seeded from cfg.Seed and the character's position, never from
// scheduling order.
func Run(ctx context.Context, t *tree.Tree, m *matrix.Matrix, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := m.Validate(t.Taxa()); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	workers := cfg.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > m.Len() {
		workers = m.Len()
	}

	start := time.Now()

	type job struct {
		index int
		char  matrix.Character
	}
	jobs := make(chan job)
	results := make([]CharacterResult, m.Len())
	errs := make([]error, m.Len())

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				rng := rand.New(rand.NewSource(cfg.Seed + int64(j.index)))
				results[j.index], errs[j.index] = Reconcile(t, j.char, cfg, rng)
			}
		}()
	}

	for i := 0; i < m.Len(); i++ {
		select {
		case jobs <- job{index: i, char: m.At(i)}:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil, ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	// A failed character aborts the whole run: skipping it would silently
	// bias the aggregate statistics.
	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("reconciling character %s: %w", m.At(i).ID, err)
		}
	}

	res := &Result{Characters: results}
	for _, cr := range results {
		LateralCharactersTotal.Inc()
		res.Stats.Characters++
		res.Stats.TotalCost += cr.MinCost
		res.Stats.AvgOrigins += float64(cr.MinOrigins)
		if cr.MinOrigins > res.Stats.MaxOrigins {
			res.Stats.MaxOrigins = cr.MinOrigins
		}
		if cr.Sampled {
			LateralTieSampledTotal.Inc()
			res.Stats.Sampled++
			res.Warnings = append(res.Warnings, Warning{
				CharacterID: cr.ID,
				Message: fmt.Sprintf("tie set of %d optimal scenarios exceeded cap %d; scores are based on a uniform sample",
					cr.TotalOptimal, cfg.TieCap),
			})
		}
	}
	if res.Stats.Characters > 0 {
		res.Stats.AvgOrigins /= float64(res.Stats.Characters)
	}

	res.Edges = Aggregate(t, results)
	res.Lateral = InferBorrowings(t, m, results, cfg)
	res.Vocabulary = VocabularySizes(t, m, results)

	for range res.Lateral {
		LateralEdgesProposedTotal.Inc()
	}
	res.Stats.LateralHits = len(res.Lateral)
	res.Stats.Workers = workers
	res.Stats.Duration = time.Since(start)
	LateralRunSeconds.Set(res.Stats.Duration.Seconds())

	return res, nil
}
