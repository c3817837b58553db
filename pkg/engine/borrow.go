package engine

import (
	"sort"

	"github.com/glottolab/lateral/pkg/matrix"
	"github.com/glottolab/lateral/pkg/tree"
)

// LateralEdge is a proposed borrowing connection between two tree nodes
// that are not linked by a tree edge. Support accumulates the cost
// reduction the edge would buy across all characters; candidates never
// remove or alter tree edges.
type LateralEdge struct {
	NodeA      string   `json:"node_a"`
	NodeB      string   `json:"node_b"`
	Support    float64  `json:"support"`
	Distance   int      `json:"distance"`
	Characters []string `json:"characters"`
	SameGroup  bool     `json:"same_group,omitempty"`
	Group      string   `json:"group,omitempty"`
}

// InferBorrowings proposes lateral edges for every character whose optimal
// reconciliation needs more independent origins than cfg.OriginThreshold
// allows. Within each tied scenario the gain origins are connected by a
// minimum spanning tree over tree distance (the shortest plausible
// borrowing paths); each MST link would replace one independent gain with
// a transfer, so it earns GainWeight-TransferCost support, averaged over
// the character's tied scenarios and scaled by its confidence weight.
func InferBorrowings(t *tree.Tree, m *matrix.Matrix, results []CharacterResult, cfg Config) []LateralEdge {
	perGain := cfg.GainWeight - cfg.TransferCost
	if perGain <= 0 {
		// A transfer that costs as much as an innovation never reduces
		// scenario cost, so there is nothing to propose.
		return nil
	}

	type acc struct {
		support  float64
		distance int
		chars    map[string]bool
	}
	merged := make(map[[2]string]*acc)

	for _, res := range results {
		if len(res.Scenarios) == 0 || res.MinOrigins <= cfg.OriginThreshold {
			continue
		}
		share := res.Weight / float64(len(res.Scenarios))

		for _, s := range res.Scenarios {
			origins := s.Origins()
			if len(origins) <= 1 {
				continue
			}
			for _, link := range spanOrigins(t, origins) {
				a, b := t.Name(link.a), t.Name(link.b)
				if b < a {
					a, b = b, a
				}
				key := [2]string{a, b}

				support := perGain * share
				sameGroup, _ := cladeGroups(t, m, link.a, link.b)
				if sameGroup {
					support *= cfg.GroupBias
				}

				entry, ok := merged[key]
				if !ok {
					entry = &acc{distance: link.dist, chars: make(map[string]bool)}
					merged[key] = entry
				}
				entry.support += support
				entry.chars[res.ID] = true
			}
		}
	}

	out := make([]LateralEdge, 0, len(merged))
	for key, entry := range merged {
		edge := LateralEdge{
			NodeA:    key[0],
			NodeB:    key[1],
			Support:  entry.support,
			Distance: entry.distance,
		}
		for id := range entry.chars {
			edge.Characters = append(edge.Characters, id)
		}
		sort.Strings(edge.Characters)

		idA, _ := t.NodeByName(edge.NodeA)
		idB, _ := t.NodeByName(edge.NodeB)
		if same, group := cladeGroups(t, m, idA, idB); same {
			edge.SameGroup = true
			edge.Group = group
		}
		out = append(out, edge)
	}

	// Rank: strongest support first, then the shorter (more plausible)
	// borrowing path, then lexical order for full determinism.
	sort.Slice(out, func(i, j int) bool {
		if out[i].Support != out[j].Support {
			return out[i].Support > out[j].Support
		}
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		if out[i].NodeA != out[j].NodeA {
			return out[i].NodeA < out[j].NodeA
		}
		return out[i].NodeB < out[j].NodeB
	})
	return out
}

type span struct {
	a, b int
	dist int
}

// spanOrigins connects a scenario's gain origins by a minimum spanning
// tree over pairwise tree distance (Prim, deterministic over the sorted
// origin list). Tree-adjacent origins cannot occur: a gain below a gain is
// never optimal, so every link is a genuine lateral candidate.
func spanOrigins(t *tree.Tree, origins []int) []span {
	n := len(origins)
	if n < 2 {
		return nil
	}

	inTree := make([]bool, n)
	bestDist := make([]int, n)
	bestFrom := make([]int, n)
	for i := range bestDist {
		bestDist[i] = int(^uint(0) >> 1)
	}

	inTree[0] = true
	for i := 1; i < n; i++ {
		bestDist[i] = t.Distance(origins[0], origins[i])
		bestFrom[i] = 0
	}

	links := make([]span, 0, n-1)
	for added := 1; added < n; added++ {
		next := -1
		for i := 1; i < n; i++ {
			if inTree[i] {
				continue
			}
			if next == -1 || bestDist[i] < bestDist[next] {
				next = i
			}
		}
		links = append(links, span{
			a:    origins[bestFrom[next]],
			b:    origins[next],
			dist: bestDist[next],
		})
		inTree[next] = true
		for i := 1; i < n; i++ {
			if inTree[i] {
				continue
			}
			if d := t.Distance(origins[next], origins[i]); d < bestDist[i] {
				bestDist[i] = d
				bestFrom[i] = next
			}
		}
	}
	return links
}

// cladeGroups reports whether both nodes' clades fall entirely into the
// same taxon group. Groups only annotate and bias; absence of group data
// disables the check.
func cladeGroups(t *tree.Tree, m *matrix.Matrix, a, b int) (bool, string) {
	ga, okA := cladeGroup(t, m, a)
	gb, okB := cladeGroup(t, m, b)
	if okA && okB && ga == gb {
		return true, ga
	}
	return false, ""
}

func cladeGroup(t *tree.Tree, m *matrix.Matrix, id int) (string, bool) {
	group := ""
	for _, taxon := range t.CladeTaxa(id) {
		g, ok := m.GroupOf(taxon)
		if !ok {
			return "", false
		}
		if group == "" {
			group = g
		} else if group != g {
			return "", false
		}
	}
	return group, group != ""
}
