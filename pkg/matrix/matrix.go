// Package matrix holds the character data for an analysis run: for every
// cognate set ("character") the set of taxa exhibiting it, an optional
// per-character confidence weight, and optional taxon group labels.
package matrix

import (
	"fmt"
	"sort"
)

// UnknownTaxonError reports a character pattern referencing a taxon that is
// not a leaf of the reference tree.
type UnknownTaxonError struct {
	CharacterID string
	Taxon       string
}

func (e *UnknownTaxonError) Error() string {
	return fmt.Sprintf("character %s references unknown taxon %q", e.CharacterID, e.Taxon)
}

// Character is one cognate set with its presence pattern.
type Character struct {
	ID      string
	Present map[string]bool
	Weight  float64 // confidence, defaults to 1
}

// Matrix is the read-only character matrix shared by all engine stages.
type Matrix struct {
	chars  []Character
	byID   map[string]int
	groups map[string]string
}

// New builds a matrix from characters. Characters with empty patterns or
// duplicate IDs are rejected; missing weights default to 1.
func New(chars []Character) (*Matrix, error) {
	m := &Matrix{byID: make(map[string]int, len(chars))}
	for _, c := range chars {
		if c.ID == "" {
			return nil, fmt.Errorf("character with empty id")
		}
		if _, dup := m.byID[c.ID]; dup {
			return nil, fmt.Errorf("duplicate character id %s", c.ID)
		}
		if len(c.Present) == 0 {
			return nil, fmt.Errorf("character %s has an empty presence pattern", c.ID)
		}
		if c.Weight == 0 {
			c.Weight = 1
		}
		if c.Weight < 0 {
			return nil, fmt.Errorf("character %s has negative weight %v", c.ID, c.Weight)
		}
		present := make(map[string]bool, len(c.Present))
		for taxon, ok := range c.Present {
			if ok {
				present[taxon] = true
			}
		}
		if len(present) == 0 {
			return nil, fmt.Errorf("character %s has an empty presence pattern", c.ID)
		}
		m.byID[c.ID] = len(m.chars)
		m.chars = append(m.chars, Character{ID: c.ID, Present: present, Weight: c.Weight})
	}
	if len(m.chars) == 0 {
		return nil, fmt.Errorf("matrix has no characters")
	}
	return m, nil
}

// SetGroups attaches taxon -> group labels. Groups only bias and annotate
// borrowing candidates; they are not required for correctness.
func (m *Matrix) SetGroups(groups map[string]string) {
	if len(groups) == 0 {
		m.groups = nil
		return
	}
	m.groups = make(map[string]string, len(groups))
	for taxon, g := range groups {
		m.groups[taxon] = g
	}
}

// GroupOf returns the group label for a taxon, if any.
func (m *Matrix) GroupOf(taxon string) (string, bool) {
	g, ok := m.groups[taxon]
	return g, ok
}

// Characters returns all character IDs in insertion order.
func (m *Matrix) Characters() []string {
	out := make([]string, len(m.chars))
	for i, c := range m.chars {
		out[i] = c.ID
	}
	return out
}

// Len returns the number of characters.
func (m *Matrix) Len() int { return len(m.chars) }

// At returns the i-th character.
func (m *Matrix) At(i int) Character { return m.chars[i] }

// PresentTaxa returns the sorted presence pattern of a character.
func (m *Matrix) PresentTaxa(id string) ([]string, bool) {
	i, ok := m.byID[id]
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(m.chars[i].Present))
	for taxon := range m.chars[i].Present {
		out = append(out, taxon)
	}
	sort.Strings(out)
	return out, true
}

// Weight returns the confidence weight of a character (1 if unknown).
func (m *Matrix) Weight(id string) float64 {
	if i, ok := m.byID[id]; ok {
		return m.chars[i].Weight
	}
	return 1
}

// Singleton reports whether a character is present in exactly one taxon.
func (c Character) Singleton() bool { return len(c.Present) == 1 }

// Universal reports whether a character covers every taxon in the given
// taxon set.
func (c Character) Universal(taxa []string) bool {
	if len(c.Present) < len(taxa) {
		return false
	}
	for _, taxon := range taxa {
		if !c.Present[taxon] {
			return false
		}
	}
	return true
}

// Validate checks every pattern taxon against the tree leaf set. The
// engine calls this again before reconciling: a pattern taxon missing from
// the tree must abort the run, not silently mislabel edges.
func (m *Matrix) Validate(taxa []string) error {
	known := make(map[string]bool, len(taxa))
	for _, taxon := range taxa {
		known[taxon] = true
	}
	for _, c := range m.chars {
		for taxon := range c.Present {
			if !known[taxon] {
				return &UnknownTaxonError{CharacterID: c.ID, Taxon: taxon}
			}
		}
	}
	return nil
}
