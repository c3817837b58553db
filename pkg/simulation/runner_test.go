package simulation

import (
	"context"
	"math/rand"
	"testing"

	"github.com/glottolab/lateral/pkg/engine"
	"github.com/glottolab/lateral/pkg/tree"
)

func lossHeavy() *engine.Config {
	return &engine.Config{
		GainWeight:      1,
		LossWeight:      10,
		TransferCost:    0.25,
		OriginThreshold: 1,
		TieCap:          1000,
		Seed:            1,
		GroupBias:       1,
	}
}

func TestRandomNewick(t *testing.T) {
	newick := RandomNewick(rand.New(rand.NewSource(7)), 12)

	tr, err := tree.ParseNewick(newick)
	if err != nil {
		t.Fatalf("ParseNewick(%q): %v", newick, err)
	}
	if got := len(tr.Taxa()); got != 12 {
		t.Errorf("generated tree has %d leaves, want 12", got)
	}

	if again := RandomNewick(rand.New(rand.NewSource(7)), 12); again != newick {
		t.Errorf("same seed produced different topologies:\n%s\n%s", newick, again)
	}
}

func TestRunScenario_RecoversPlantedTransfers(t *testing.T) {
	s := Scenario{
		Name:       "planted",
		Seed:       42,
		Taxa:       8,
		Characters: 10,
		LossProb:   0.2,
		Transfers:  2,
		Engine:     lossHeavy(),
		Invariants: []Invariant{
			{Metric: "recovered_rate", Condition: ">=", Value: 1},
			{Metric: "determinism", Condition: "==", Value: 1},
		},
	}

	res, err := RunScenario(context.Background(), s)
	if err != nil {
		t.Fatalf("RunScenario: %v", err)
	}

	if len(res.Planted) != 2 {
		t.Fatalf("planted %d pairs, want 2", len(res.Planted))
	}
	for _, p := range res.Planted {
		if !p.Recovered {
			t.Errorf("planted pair %s/%s not recovered", p.TaxonA, p.TaxonB)
		}
		if len(p.Characters) != 1 {
			t.Errorf("pair %s/%s carries %d characters, want 1", p.TaxonA, p.TaxonB, len(p.Characters))
		}
	}
	if res.RecoveredRate != 1 {
		t.Errorf("RecoveredRate = %v, want 1", res.RecoveredRate)
	}
	if !res.Deterministic {
		t.Error("repeated analysis diverged")
	}
	if !res.Success {
		t.Errorf("invariants failed: %+v", res.Invariants)
	}
	if res.Stats.Characters != 12 {
		t.Errorf("analyzed %d characters, want 12", res.Stats.Characters)
	}
}

func TestRunScenario_FailedInvariant(t *testing.T) {
	s := Scenario{
		Name:       "impossible",
		Seed:       7,
		Taxa:       6,
		Characters: 4,
		Engine:     lossHeavy(),
		Invariants: []Invariant{
			{Metric: "recovered_rate", Condition: ">", Value: 2},
		},
	}

	res, err := RunScenario(context.Background(), s)
	if err != nil {
		t.Fatalf("RunScenario: %v", err)
	}
	if res.Success {
		t.Error("unsatisfiable invariant reported success")
	}
	if len(res.Invariants) != 1 || res.Invariants[0].Passed {
		t.Errorf("invariants = %+v", res.Invariants)
	}
}

func TestRunScenario_UnknownMetric(t *testing.T) {
	s := Scenario{
		Name:       "unknown-metric",
		Seed:       7,
		Taxa:       6,
		Characters: 4,
		Invariants: []Invariant{
			{Metric: "bogus_metric", Condition: ">", Value: 0},
		},
	}

	res, err := RunScenario(context.Background(), s)
	if err != nil {
		t.Fatalf("RunScenario: %v", err)
	}
	if res.Success {
		t.Error("unknown metric reported success")
	}
	if res.Invariants[0].Actual != "N/A" {
		t.Errorf("Actual = %q, want N/A", res.Invariants[0].Actual)
	}
}

func TestRunScenario_Validation(t *testing.T) {
	if _, err := RunScenario(context.Background(), Scenario{Seed: 1, Taxa: 2, Characters: 1}); err == nil {
		t.Error("tiny tree accepted")
	}
	if _, err := RunScenario(context.Background(), Scenario{Seed: 1, Taxa: 8}); err == nil {
		t.Error("empty dataset accepted")
	}
}

func TestEvaluateInvariants_Conditions(t *testing.T) {
	res := &SimulationResult{RecoveredRate: 0.5, Deterministic: true}

	cases := []struct {
		inv  Invariant
		want bool
	}{
		{Invariant{Metric: "recovered_rate", Condition: ">", Value: 0.4}, true},
		{Invariant{Metric: "recovered_rate", Condition: ">", Value: 0.5}, false},
		{Invariant{Metric: "recovered_rate", Condition: ">=", Value: 0.5}, true},
		{Invariant{Metric: "recovered_rate", Condition: "<", Value: 0.6}, true},
		{Invariant{Metric: "recovered_rate", Condition: "<=", Value: 0.4}, false},
		{Invariant{Metric: "recovered_rate", Condition: "==", Value: 0.5}, true},
		{Invariant{Metric: "determinism", Condition: "==", Value: 1}, true},
	}
	for _, tc := range cases {
		got := evaluateInvariants(res, []Invariant{tc.inv})
		if len(got) != 1 || got[0].Passed != tc.want {
			t.Errorf("%s %s %v: passed = %v, want %v",
				tc.inv.Metric, tc.inv.Condition, tc.inv.Value, got[0].Passed, tc.want)
		}
	}
}
