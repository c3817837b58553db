package engine

import (
	"fmt"
	"math"
)

// InvalidWeightError reports a non-positive or non-finite weight in the run
// configuration. Configuration is validated eagerly, before any traversal.
type InvalidWeightError struct {
	Field string
	Value float64
}

func (e *InvalidWeightError) Error() string {
	return fmt.Sprintf("invalid weight %s=%v", e.Field, e.Value)
}

// Config carries all tunables for one analysis run. It is passed explicitly
// into every invocation; the engine keeps no ambient state, so the same
// tree and matrix can be analyzed concurrently under different configs.
type Config struct {
	// GainWeight is the cost of an innovation event on an edge.
	GainWeight float64 `json:"gain_weight"`
	// LossWeight is the cost of a loss event on an edge. The default keeps
	// gains more expensive than losses: innovation is rarer than retention.
	LossWeight float64 `json:"loss_weight"`
	// TransferCost is the cost attributed to explaining an origin through a
	// lateral edge instead of an independent gain. Support for a candidate
	// borrowing is GainWeight - TransferCost per replaced origin.
	TransferCost float64 `json:"transfer_cost"`

	// OriginThreshold is the maximum number of independent origins that is
	// still considered plausible under vertical inheritance. Characters
	// needing more trigger the borrowing search.
	OriginThreshold int `json:"origin_threshold"`

	// TieCap bounds how many tied optimal scenarios are materialized per
	// character. Beyond the cap a uniform sample is drawn and the result is
	// flagged as sampled.
	TieCap int `json:"tie_cap"`
	// Seed makes tie sampling reproducible.
	Seed int64 `json:"seed"`

	// Workers sizes the reconciliation pool. Zero means GOMAXPROCS.
	Workers int `json:"workers"`

	// PreferPresentRoot flips the root-state tie-break. By default the
	// engine prefers an absent root, biasing against inferring an
	// ancestral innovation without evidence.
	PreferPresentRoot bool `json:"prefer_present_root"`

	// GroupBias multiplies the support of lateral candidates whose
	// endpoints fall into the same taxon group. 1 disables the bias.
	GroupBias float64 `json:"group_bias"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		GainWeight:      2,
		LossWeight:      1,
		TransferCost:    0.5,
		OriginThreshold: 1,
		TieCap:          1000,
		Seed:            1,
		GroupBias:       1,
	}
}

// Validate checks the configuration eagerly. Weight errors are fatal for
// the whole run.
func (c Config) Validate() error {
	if !positiveFinite(c.GainWeight) {
		return &InvalidWeightError{Field: "gain_weight", Value: c.GainWeight}
	}
	if !positiveFinite(c.LossWeight) {
		return &InvalidWeightError{Field: "loss_weight", Value: c.LossWeight}
	}
	if c.TransferCost < 0 || math.IsNaN(c.TransferCost) || math.IsInf(c.TransferCost, 0) {
		return &InvalidWeightError{Field: "transfer_cost", Value: c.TransferCost}
	}
	if !positiveFinite(c.GroupBias) {
		return &InvalidWeightError{Field: "group_bias", Value: c.GroupBias}
	}
	if c.TieCap < 1 {
		return fmt.Errorf("tie_cap must be at least 1, got %d", c.TieCap)
	}
	if c.OriginThreshold < 1 {
		return fmt.Errorf("origin_threshold must be at least 1, got %d", c.OriginThreshold)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	return nil
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
