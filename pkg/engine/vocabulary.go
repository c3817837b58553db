package engine

import (
	"github.com/glottolab/lateral/pkg/matrix"
	"github.com/glottolab/lateral/pkg/tree"
)

// Vocabulary holds the vocabulary size distributions: observed counts for
// the contemporary taxa and expected counts for the reconstructed
// ancestors (averaged over each character's tied scenarios).
type Vocabulary struct {
	Contemporary map[string]int     `json:"contemporary"`
	Ancestral    map[string]float64 `json:"ancestral"`
}

// VocabularySizes derives both distributions from the reconciled results.
// A character contributes to an ancestor in proportion to the fraction of
// its tied scenarios in which that ancestor is reconstructed as present.
func VocabularySizes(t *tree.Tree, m *matrix.Matrix, results []CharacterResult) Vocabulary {
	v := Vocabulary{
		Contemporary: make(map[string]int),
		Ancestral:    make(map[string]float64),
	}

	for _, taxon := range t.Taxa() {
		v.Contemporary[taxon] = 0
	}
	for i := 0; i < m.Len(); i++ {
		for taxon := range m.At(i).Present {
			v.Contemporary[taxon]++
		}
	}

	internal := make([]int, 0, t.Len())
	for _, id := range t.Preorder() {
		if !t.IsLeaf(id) {
			v.Ancestral[t.Name(id)] = 0
			internal = append(internal, id)
		}
	}

	for _, res := range results {
		if len(res.Scenarios) == 0 {
			continue
		}
		share := 1.0 / float64(len(res.Scenarios))
		for _, s := range res.Scenarios {
			states := s.States(t)
			for _, id := range internal {
				if states[id] {
					v.Ancestral[t.Name(id)] += share
				}
			}
		}
	}
	return v
}
