// Package simulation generates synthetic datasets with planted borrowing
// events and checks that the analysis recovers them.
package simulation

import (
	"github.com/glottolab/lateral/pkg/engine"
)

// Scenario describes one synthetic dataset and the invariants its analysis
// must satisfy.
type Scenario struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Seed        int64  `json:"seed" yaml:"seed"` // Deterministic seed
	// Taxa is the number of leaves of the generated tree.
	Taxa int `json:"taxa" yaml:"taxa"`
	// Characters is the number of background characters evolved down the
	// tree by vertical inheritance alone.
	Characters int `json:"characters" yaml:"characters"`
	// LossProb is the per-edge probability that a background character is
	// lost below its origin.
	LossProb float64 `json:"loss_prob" yaml:"loss_prob"`
	// Transfers is the number of planted donor/recipient leaf pairs.
	Transfers int `json:"transfers" yaml:"transfers"`
	// TransferCharacters is the number of characters shared by each
	// planted pair (default 1).
	TransferCharacters int `json:"transfer_characters" yaml:"transfer_characters"`

	Engine     *engine.Config `json:"engine,omitempty" yaml:"engine,omitempty"`
	Invariants []Invariant    `json:"invariants,omitempty" yaml:"invariants,omitempty"`
}

// Invariant is one assertion over the metrics of a finished scenario.
type Invariant struct {
	Metric    string  `json:"metric" yaml:"metric"`       // e.g. "recovered_rate", "sampled_rate"
	Condition string  `json:"condition" yaml:"condition"` // ">", "<", ">=", "<=", "=="
	Value     float64 `json:"value" yaml:"value"`
}

// InvariantResult is the evaluated form of one invariant.
type InvariantResult struct {
	Metric   string `json:"metric"`
	Expected string `json:"expected"` // e.g. ">= 0.95"
	Actual   string `json:"actual"`   // e.g. "1.0000"
	Passed   bool   `json:"passed"`
}

// PlantedPair records one injected borrowing and whether the analysis
// proposed a lateral edge between its endpoints.
type PlantedPair struct {
	TaxonA     string   `json:"taxon_a"`
	TaxonB     string   `json:"taxon_b"`
	Characters []string `json:"characters"`
	Recovered  bool     `json:"recovered"`
}

// SimulationResult captures the outcome of one scenario for reporting.
type SimulationResult struct {
	ScenarioName  string            `json:"scenario_name"`
	Seed          int64             `json:"seed"`
	Newick        string            `json:"newick"`
	Planted       []PlantedPair     `json:"planted"`
	RecoveredRate float64           `json:"recovered_rate"`
	SampledRate   float64           `json:"sampled_rate"`
	LateralEdges  int               `json:"lateral_edges"`
	Deterministic bool              `json:"deterministic"`
	Stats         engine.RunStats   `json:"stats"`
	Invariants    []InvariantResult `json:"invariants"`
	Success       bool              `json:"success"`
}
