package store

import (
	"time"

	"github.com/glottolab/lateral/pkg/engine"
)

// RunRecord is the persisted header of one analysis run.
type RunRecord struct {
	ID        string           `json:"id"`
	Dataset   string           `json:"dataset"`
	CreatedAt time.Time        `json:"created_at"`
	Config    engine.Config    `json:"config"`
	Stats     engine.RunStats  `json:"stats"`
	Warnings  []engine.Warning `json:"warnings,omitempty"`
}

// CharacterRow is the persisted per-character summary. Scenario sets are
// not stored; they are reproducible from the run's config and inputs.
type CharacterRow struct {
	CharacterID  string  `json:"character_id"`
	Weight       float64 `json:"weight"`
	MinCost      float64 `json:"min_cost"`
	MinOrigins   int     `json:"min_origins"`
	TotalOptimal int64   `json:"total_optimal"`
	Sampled      bool    `json:"sampled"`
}
