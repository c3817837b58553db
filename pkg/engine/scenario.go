package engine

import (
	"github.com/glottolab/lateral/pkg/tree"
)

// Event labels one tree edge in a gain-loss scenario. Edges are addressed
// by their child node ID; the root's slot represents the "primordial" edge
// above the root, so a gain there encodes an ancestral innovation.
type Event int8

const (
	EventNone Event = iota
	EventGain
	EventLoss
)

func (e Event) String() string {
	switch e {
	case EventGain:
		return "gain"
	case EventLoss:
		return "loss"
	default:
		return "none"
	}
}

// Scenario is one consistent edge labeling for a single character: an
// assumed root state plus gain/loss events that reproduce the observed
// leaf pattern. Scenarios are immutable once emitted.
type Scenario struct {
	// RootPresent is the ancestral state at the root. When true,
	// Events[root] carries the corresponding gain.
	RootPresent bool
	// Events is indexed by node ID (the edge above that node).
	Events []Event
	Gains  int
	Losses int
}

// Cost returns the weighted event count of the scenario.
func (s Scenario) Cost(cfg Config) float64 {
	return float64(s.Gains)*cfg.GainWeight + float64(s.Losses)*cfg.LossWeight
}

// Origins returns the node IDs whose edges carry a gain, in ascending
// order. The root appears when the scenario assumes an ancestral origin.
func (s Scenario) Origins() []int {
	var out []int
	for id, e := range s.Events {
		if e == EventGain {
			out = append(out, id)
		}
	}
	return out
}

// States propagates the scenario from the root down and returns the
// presence state of every node.
func (s Scenario) States(t *tree.Tree) []bool {
	states := make([]bool, t.Len())
	for _, id := range t.Preorder() {
		state := false
		if p := t.Parent(id); p != tree.NoNode {
			state = states[p]
		}
		switch s.Events[id] {
		case EventGain:
			state = true
		case EventLoss:
			state = false
		}
		states[id] = state
	}
	return states
}

// signature is a compact identity used to deduplicate sampled scenarios.
func (s Scenario) signature() string {
	b := make([]byte, len(s.Events))
	for i, e := range s.Events {
		b[i] = byte('0' + e)
	}
	return string(b)
}

// CharacterResult is the reconciliation outcome for one character: the
// shared minimum cost and the full set of tied optimal scenarios (or a
// uniform sample when the tie set exceeded the cap).
type CharacterResult struct {
	ID      string
	Weight  float64
	MinCost float64
	// MinOrigins is the smallest origin count among the tied scenarios.
	MinOrigins int
	Scenarios  []Scenario
	// TotalOptimal is the size of the full tied set (saturating).
	TotalOptimal int64
	// Sampled is true when Scenarios is a uniform sample rather than the
	// exhaustive tied set; aggregate scores derived from it are then
	// approximate.
	Sampled bool
}
