package client

import (
	"time"
)

// Character is one presence/absence character in a submission.
type Character struct {
	// ID is the character identifier, e.g. a "cogid:concept" pair.
	ID string `json:"id"`
	// Taxa lists the taxa in which the character is present.
	Taxa []string `json:"taxa"`
	// Weight is the optional confidence weight. Default: 1.0.
	Weight float64 `json:"weight,omitempty"`
}

// Config mirrors the engine run configuration on the wire.
type Config struct {
	GainWeight        float64 `json:"gain_weight"`
	LossWeight        float64 `json:"loss_weight"`
	TransferCost      float64 `json:"transfer_cost"`
	OriginThreshold   int     `json:"origin_threshold"`
	TieCap            int     `json:"tie_cap"`
	Seed              int64   `json:"seed"`
	Workers           int     `json:"workers"`
	PreferPresentRoot bool    `json:"prefer_present_root"`
	GroupBias         float64 `json:"group_bias"`
}

// RunSubmission is a complete analysis request.
type RunSubmission struct {
	// Dataset labels the run. Default: "inline".
	Dataset string `json:"dataset"`
	// Newick is the reference tree.
	Newick string `json:"newick"`
	// Characters is the presence/absence matrix.
	Characters []Character `json:"characters"`
	// Groups optionally maps taxa to group labels.
	Groups map[string]string `json:"groups,omitempty"`
	// Config optionally overrides the server defaults.
	Config *Config `json:"config,omitempty"`
}

// RunStats summarizes one run.
type RunStats struct {
	Characters  int     `json:"characters"`
	Sampled     int     `json:"sampled"`
	TotalCost   float64 `json:"total_cost"`
	AvgOrigins  float64 `json:"avg_origins"`
	MaxOrigins  int     `json:"max_origins"`
	LateralHits int     `json:"lateral_hits"`
	Workers     int     `json:"workers"`
	// Duration is in nanoseconds.
	Duration int64 `json:"duration"`
}

// Warning is a non-fatal condition attached to a run.
type Warning struct {
	CharacterID string `json:"character_id"`
	Message     string `json:"message"`
}

// RunInfo is the persisted run header.
type RunInfo struct {
	ID        string    `json:"id"`
	Dataset   string    `json:"dataset"`
	CreatedAt time.Time `json:"created_at"`
	Config    Config    `json:"config"`
	Stats     RunStats  `json:"stats"`
	Warnings  []Warning `json:"warnings,omitempty"`
}

// EdgeStat is the gain/loss profile of one tree edge.
type EdgeStat struct {
	Edge      string  `json:"edge"`
	GainScore float64 `json:"gain_score"`
	LossScore float64 `json:"loss_score"`
}

// LateralEdge is a ranked borrowing candidate.
type LateralEdge struct {
	NodeA      string   `json:"node_a"`
	NodeB      string   `json:"node_b"`
	Support    float64  `json:"support"`
	Distance   int      `json:"distance"`
	Characters []string `json:"characters"`
	SameGroup  bool     `json:"same_group,omitempty"`
	Group      string   `json:"group,omitempty"`
}

// CharacterSummary is the per-character reconciliation outcome.
type CharacterSummary struct {
	CharacterID  string  `json:"character_id"`
	Weight       float64 `json:"weight"`
	MinCost      float64 `json:"min_cost"`
	MinOrigins   int     `json:"min_origins"`
	TotalOptimal int64   `json:"total_optimal"`
	Sampled      bool    `json:"sampled"`
}

// SubmitResponse is returned by Submit.
type SubmitResponse struct {
	Run     RunInfo       `json:"run"`
	Lateral []LateralEdge `json:"lateral"`
	// Cached is true when the server reused a cached result.
	Cached bool `json:"cached,omitempty"`
}

// Status is the health check response.
type Status struct {
	Status string `json:"status"`
}
