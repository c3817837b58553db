// Package dataset loads analysis inputs from disk: a reference tree in
// Newick format, a cognate-coded wordlist in TSV, and an optional taxon
// grouping file.
package dataset

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/glottolab/lateral/pkg/matrix"
	"github.com/glottolab/lateral/pkg/tree"
)

// Dataset bundles the loaded inputs for one analysis.
type Dataset struct {
	Name   string
	Tree   *tree.Tree
	Matrix *matrix.Matrix
}

// LoadTree reads a Newick tree from path.
func LoadTree(path string) (*tree.Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tree file: %w", err)
	}
	t, err := tree.ParseNewick(string(data))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return t, nil
}

// Wordlist column headers, matched case-insensitively. A wordlist row maps
// one word in one taxon to a concept and a cognate set; every distinct
// (concept, cogid) pair becomes one presence/absence character.
var (
	taxonColumns   = []string{"taxon", "doculect", "language"}
	conceptColumns = []string{"concept", "gloss"}
	cogidColumns   = []string{"cogid", "cognateset", "cognate_set"}
)

// LoadWordlist reads a TSV wordlist and derives the character matrix.
// The first non-comment line is the header; lines starting with '#' or '@'
// are skipped. Character IDs are "cogid:concept".
func LoadWordlist(path string) (*matrix.Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening wordlist: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var taxonCol, conceptCol, cogidCol = -1, -1, -1
	present := make(map[string]map[string]bool)
	var order []string

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r\n")
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "@") {
			continue
		}
		fields := strings.Split(line, "\t")

		if taxonCol == -1 {
			for i, h := range fields {
				switch {
				case matchColumn(h, taxonColumns):
					taxonCol = i
				case matchColumn(h, conceptColumns):
					conceptCol = i
				case matchColumn(h, cogidColumns):
					cogidCol = i
				}
			}
			if taxonCol == -1 || conceptCol == -1 || cogidCol == -1 {
				return nil, fmt.Errorf("%s: header must name taxon, concept and cogid columns, got %q", path, line)
			}
			continue
		}

		max := taxonCol
		if conceptCol > max {
			max = conceptCol
		}
		if cogidCol > max {
			max = cogidCol
		}
		if len(fields) <= max {
			return nil, fmt.Errorf("%s:%d: row has %d columns, need at least %d", path, lineNo, len(fields), max+1)
		}

		taxon := strings.TrimSpace(fields[taxonCol])
		concept := strings.TrimSpace(fields[conceptCol])
		cogid := strings.TrimSpace(fields[cogidCol])
		if taxon == "" || concept == "" || cogid == "" {
			continue
		}

		id := cogid + ":" + concept
		if _, ok := present[id]; !ok {
			present[id] = make(map[string]bool)
			order = append(order, id)
		}
		present[id][taxon] = true
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading wordlist: %w", err)
	}
	if taxonCol == -1 {
		return nil, fmt.Errorf("%s: no header line found", path)
	}
	if len(order) == 0 {
		return nil, fmt.Errorf("%s: no data rows", path)
	}

	sort.Strings(order)
	chars := make([]matrix.Character, 0, len(order))
	for _, id := range order {
		chars = append(chars, matrix.Character{ID: id, Present: present[id], Weight: 1})
	}
	m, err := matrix.New(chars)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// LoadGroups reads a taxon-to-group mapping, one "taxon<TAB>group" pair per
// line. Comments and blank lines are skipped.
func LoadGroups(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening groups file: %w", err)
	}
	defer f.Close()

	groups := make(map[string]string)
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 2 {
			return nil, fmt.Errorf("%s:%d: want taxon<TAB>group, got %q", path, lineNo, line)
		}
		taxon := strings.TrimSpace(fields[0])
		group := strings.TrimSpace(fields[1])
		if taxon == "" || group == "" {
			return nil, fmt.Errorf("%s:%d: empty taxon or group", path, lineNo)
		}
		if prev, dup := groups[taxon]; dup && prev != group {
			return nil, fmt.Errorf("%s:%d: taxon %s mapped to both %s and %s", path, lineNo, taxon, prev, group)
		}
		groups[taxon] = group
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading groups file: %w", err)
	}
	return groups, nil
}

// Load reads the tree and wordlist (and groups, when groupsPath is not
// empty), validates the matrix taxa against the tree and returns the
// assembled dataset. name labels the dataset in persistence and reports.
func Load(name, treePath, wordlistPath, groupsPath string) (*Dataset, error) {
	t, err := LoadTree(treePath)
	if err != nil {
		return nil, err
	}
	m, err := LoadWordlist(wordlistPath)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(t.Taxa()); err != nil {
		return nil, fmt.Errorf("wordlist does not match tree: %w", err)
	}
	if groupsPath != "" {
		groups, err := LoadGroups(groupsPath)
		if err != nil {
			return nil, err
		}
		m.SetGroups(groups)
	}
	return &Dataset{Name: name, Tree: t, Matrix: m}, nil
}

func matchColumn(header string, names []string) bool {
	h := strings.ToLower(strings.TrimSpace(header))
	for _, n := range names {
		if h == n {
			return true
		}
	}
	return false
}
