package engine

import (
	"math"
	"math/rand"

	"github.com/glottolab/lateral/pkg/matrix"
	"github.com/glottolab/lateral/pkg/tree"
)

const (
	stateAbsent  = 0
	statePresent = 1

	// satLimit caps the tie-count arithmetic; beyond it counts saturate.
	satLimit = math.MaxInt64 / 4
)

// Reconcile computes the tied set of minimum-cost gain-loss scenarios for a
// single character. Two passes over the tree: a postorder cost/count table,
// then a preorder enumeration of every optimal state assignment. When the
// tied set exceeds cfg.TieCap, a uniform sample is drawn instead, guided by
// the optimal-completion counts, and the result is flagged Sampled.
//
// The tree and character are never mutated; the result is deterministic for
// a fixed config and rng seed.
func Reconcile(t *tree.Tree, ch matrix.Character, cfg Config, rng *rand.Rand) (CharacterResult, error) {
	res := CharacterResult{ID: ch.ID, Weight: ch.Weight}

	// Re-check the pattern against the tree even though loaders validate
	// at load time: a stale taxon here would silently mislabel edges.
	leafState := make([]int8, t.Len())
	for i := range leafState {
		leafState[i] = -1
	}
	for taxon := range ch.Present {
		id, ok := t.NodeByName(taxon)
		if !ok || !t.IsLeaf(id) {
			return res, &matrix.UnknownTaxonError{CharacterID: ch.ID, Taxon: taxon}
		}
		leafState[id] = statePresent
	}
	for _, id := range t.Leaves() {
		if leafState[id] == -1 {
			leafState[id] = stateAbsent
		}
	}

	// Short-circuits: characters covering all taxa or a single taxon have
	// exactly one minimum-cost explanation.
	if ch.Universal(t.Taxa()) {
		s := singleGain(t, t.Root())
		res.MinCost = cfg.GainWeight
		res.MinOrigins = 1
		res.Scenarios = []Scenario{s}
		res.TotalOptimal = 1
		return res, nil
	}
	if ch.Singleton() {
		for taxon := range ch.Present {
			id, _ := t.NodeByName(taxon)
			s := singleGain(t, id)
			res.MinCost = cfg.GainWeight
			res.MinOrigins = 1
			res.Scenarios = []Scenario{s}
			res.TotalOptimal = 1
		}
		return res, nil
	}

	d := newDP(t, leafState, cfg)

	rootStates, minCost := d.rootChoices()
	res.MinCost = minCost

	var total int64
	for _, s := range rootStates {
		total = satAdd(total, d.cnt[t.Root()][s])
	}
	res.TotalOptimal = total

	if total <= int64(cfg.TieCap) {
		res.Scenarios = d.enumerate(rootStates)
	} else {
		res.Scenarios = d.sample(rootStates, cfg.TieCap, rng)
		res.Sampled = true
	}

	res.MinOrigins = res.Scenarios[0].Gains
	for _, s := range res.Scenarios[1:] {
		if s.Gains < res.MinOrigins {
			res.MinOrigins = s.Gains
		}
	}
	return res, nil
}

// singleGain builds the scenario with exactly one gain on the edge above id.
func singleGain(t *tree.Tree, id int) Scenario {
	events := make([]Event, t.Len())
	events[id] = EventGain
	return Scenario{
		RootPresent: id == t.Root(),
		Events:      events,
		Gains:       1,
	}
}

// dp holds the Sankoff tables for one character.
type dp struct {
	t    *tree.Tree
	cfg  Config
	pre  []int
	cost [][2]float64
	cnt  [][2]int64
}

func newDP(t *tree.Tree, leafState []int8, cfg Config) *dp {
	d := &dp{
		t:    t,
		cfg:  cfg,
		pre:  t.Preorder(),
		cost: make([][2]float64, t.Len()),
		cnt:  make([][2]int64, t.Len()),
	}

	inf := math.Inf(1)
	for _, id := range t.Postorder() {
		if t.IsLeaf(id) {
			obs := leafState[id]
			d.cost[id][obs] = 0
			d.cost[id][1-obs] = inf
			d.cnt[id][obs] = 1
			continue
		}
		for s := 0; s < 2; s++ {
			sum := 0.0
			count := int64(1)
			for _, c := range t.Children(id) {
				c0 := d.cost[c][stateAbsent] + d.trans(s, stateAbsent)
				c1 := d.cost[c][statePresent] + d.trans(s, statePresent)
				best := math.Min(c0, c1)
				sum += best

				var ways int64
				if approxEq(c0, best) {
					ways = satAdd(ways, d.cnt[c][stateAbsent])
				}
				if approxEq(c1, best) {
					ways = satAdd(ways, d.cnt[c][statePresent])
				}
				count = satMul(count, ways)
			}
			d.cost[id][s] = sum
			d.cnt[id][s] = count
		}
	}
	return d
}

// trans is the event cost of a parent->child state change.
func (d *dp) trans(parent, child int) float64 {
	switch {
	case parent == child:
		return 0
	case child == statePresent:
		return d.cfg.GainWeight
	default:
		return d.cfg.LossWeight
	}
}

// rootTotal is the full scenario cost for a given root state; a present
// root carries the cost of the ancestral innovation itself.
func (d *dp) rootTotal(s int) float64 {
	total := d.cost[d.t.Root()][s]
	if s == statePresent {
		total += d.cfg.GainWeight
	}
	return total
}

// rootChoices returns the root states achieving the minimum total cost, in
// tie-break order (absent first unless the config prefers a present root).
func (d *dp) rootChoices() ([]int, float64) {
	order := []int{stateAbsent, statePresent}
	if d.cfg.PreferPresentRoot {
		order = []int{statePresent, stateAbsent}
	}

	min := math.Min(d.rootTotal(stateAbsent), d.rootTotal(statePresent))
	var states []int
	for _, s := range order {
		if approxEq(d.rootTotal(s), min) {
			states = append(states, s)
		}
	}
	return states, min
}

// childChoices returns the child states of c that are optimal under parent
// state s, in deterministic order (absent first).
func (d *dp) childChoices(c, s int) []int {
	c0 := d.cost[c][stateAbsent] + d.trans(s, stateAbsent)
	c1 := d.cost[c][statePresent] + d.trans(s, statePresent)
	best := math.Min(c0, c1)

	var out []int
	if approxEq(c0, best) {
		out = append(out, stateAbsent)
	}
	if approxEq(c1, best) {
		out = append(out, statePresent)
	}
	return out
}

// enumerate materializes every tied optimal scenario by branching over all
// optimal state choices in preorder.
func (d *dp) enumerate(rootStates []int) []Scenario {
	states := make([]int, d.t.Len())
	var out []Scenario

	var rec func(i int)
	rec = func(i int) {
		if i == len(d.pre) {
			out = append(out, d.build(states))
			return
		}
		id := d.pre[i]
		for _, s := range d.childChoices(id, states[d.t.Parent(id)]) {
			states[id] = s
			rec(i + 1)
		}
	}

	for _, rs := range rootStates {
		states[d.t.Root()] = rs
		rec(1)
	}
	return out
}

// sample draws up to cap distinct optimal scenarios uniformly. Each
// top-down choice is weighted by the number of optimal completions below
// it, so every member of the tied set is equally likely per draw.
func (d *dp) sample(rootStates []int, limit int, rng *rand.Rand) []Scenario {
	states := make([]int, d.t.Len())
	seen := make(map[string]bool, limit)
	var out []Scenario

	root := d.t.Root()
	var rootWeights []int64
	for _, s := range rootStates {
		rootWeights = append(rootWeights, d.cnt[root][s])
	}

	maxAttempts := limit * 16
	for attempt := 0; attempt < maxAttempts && len(out) < limit; attempt++ {
		states[root] = rootStates[weightedPick(rootWeights, rng)]
		for _, id := range d.pre[1:] {
			choices := d.childChoices(id, states[d.t.Parent(id)])
			if len(choices) == 1 {
				states[id] = choices[0]
				continue
			}
			var weights []int64
			for _, s := range choices {
				weights = append(weights, d.cnt[id][s])
			}
			states[id] = choices[weightedPick(weights, rng)]
		}

		s := d.build(states)
		sig := s.signature()
		if seen[sig] {
			continue
		}
		seen[sig] = true
		out = append(out, s)
	}
	return out
}

// build converts a full state assignment into a Scenario.
func (d *dp) build(states []int) Scenario {
	events := make([]Event, d.t.Len())
	gains, losses := 0, 0
	for _, id := range d.pre {
		parentState := stateAbsent
		if p := d.t.Parent(id); p != tree.NoNode {
			parentState = states[p]
		}
		switch {
		case parentState == stateAbsent && states[id] == statePresent:
			events[id] = EventGain
			gains++
		case parentState == statePresent && states[id] == stateAbsent:
			events[id] = EventLoss
			losses++
		}
	}
	return Scenario{
		RootPresent: states[d.t.Root()] == statePresent,
		Events:      events,
		Gains:       gains,
		Losses:      losses,
	}
}

func weightedPick(weights []int64, rng *rand.Rand) int {
	var total int64
	for _, w := range weights {
		total = satAdd(total, w)
	}
	if total <= 0 {
		return 0
	}
	x := rng.Int63n(total)
	for i, w := range weights {
		if x < w {
			return i
		}
		x -= w
	}
	return len(weights) - 1
}

func satAdd(a, b int64) int64 {
	if a > satLimit-b {
		return satLimit
	}
	return a + b
}

func satMul(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a > satLimit/b {
		return satLimit
	}
	return a * b
}

// approxEq compares event-cost sums; weights are arbitrary reals, so exact
// float equality would miss ties produced by different summation orders.
func approxEq(a, b float64) bool {
	if math.IsInf(a, 1) || math.IsInf(b, 1) {
		return math.IsInf(a, 1) && math.IsInf(b, 1)
	}
	return math.Abs(a-b) <= 1e-9*(1+math.Abs(a)+math.Abs(b))
}
