package api

import (
	"github.com/glottolab/lateral/pkg/engine"
	"github.com/glottolab/lateral/pkg/store"
)

// CharacterSpec is the wire form of one presence/absence character.
type CharacterSpec struct {
	ID     string   `json:"id"`
	Taxa   []string `json:"taxa"`
	Weight float64  `json:"weight,omitempty"`
}

// RunRequest submits a complete analysis: tree, characters and config.
type RunRequest struct {
	Dataset    string            `json:"dataset"`
	Newick     string            `json:"newick"`
	Characters []CharacterSpec   `json:"characters"`
	Groups     map[string]string `json:"groups,omitempty"`
	Config     *engine.Config    `json:"config,omitempty"`
}

// RunResponse returns the persisted run header plus the ranked borrowing
// candidates, so simple clients need no follow-up request.
type RunResponse struct {
	Run     store.RunRecord      `json:"run"`
	Lateral []engine.LateralEdge `json:"lateral"`
	Cached  bool                 `json:"cached,omitempty"`
}

// RunListResponse wraps the run listing.
type RunListResponse struct {
	Runs []store.RunRecord `json:"runs"`
}
