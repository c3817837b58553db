package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

const wordlist = `# demo wordlist
ID	DOCULECT	CONCEPT	COGID
1	A	hand	7
2	B	hand	7
3	C	hand	9
4	A	stone	12
5	C	stone	12
`

func TestLoadWordlist(t *testing.T) {
	m, err := LoadWordlist(writeFile(t, "words.tsv", wordlist))
	if err != nil {
		t.Fatalf("LoadWordlist: %v", err)
	}
	if m.Len() != 3 {
		t.Fatalf("got %d characters, want 3", m.Len())
	}

	cases := []struct {
		id   string
		taxa []string
	}{
		{"12:stone", []string{"A", "C"}},
		{"7:hand", []string{"A", "B"}},
		{"9:hand", []string{"C"}},
	}
	for i, tc := range cases {
		c := m.At(i)
		if c.ID != tc.id {
			t.Errorf("character %d: id %q, want %q", i, c.ID, tc.id)
		}
		got, _ := m.PresentTaxa(c.ID)
		if strings.Join(got, ",") != strings.Join(tc.taxa, ",") {
			t.Errorf("%s: taxa %v, want %v", tc.id, got, tc.taxa)
		}
	}
}

func TestLoadWordlist_HeaderAliases(t *testing.T) {
	alt := "id\tlanguage\tgloss\tcognateset\n1\tA\thand\t7\n2\tB\thand\t7\n"
	m, err := LoadWordlist(writeFile(t, "alt.tsv", alt))
	if err != nil {
		t.Fatalf("LoadWordlist: %v", err)
	}
	if m.Len() != 1 || m.At(0).ID != "7:hand" {
		t.Errorf("got %d characters, first %q", m.Len(), m.At(0).ID)
	}
}

func TestLoadWordlist_Errors(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"missing cogid column", "ID\tDOCULECT\tCONCEPT\n1\tA\thand\n"},
		{"no data rows", "ID\tDOCULECT\tCONCEPT\tCOGID\n"},
		{"short row", "ID\tDOCULECT\tCONCEPT\tCOGID\n1\tA\n"},
		{"empty file", "# only a comment\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadWordlist(writeFile(t, "bad.tsv", tc.content)); err == nil {
				t.Errorf("accepted %q", tc.content)
			}
		})
	}
}

func TestLoadGroups(t *testing.T) {
	groups, err := LoadGroups(writeFile(t, "groups.tsv", "# groups\nA\tnorth\nB\tnorth\nC\tsouth\n"))
	if err != nil {
		t.Fatalf("LoadGroups: %v", err)
	}
	if groups["A"] != "north" || groups["C"] != "south" {
		t.Errorf("groups = %v", groups)
	}

	if _, err := LoadGroups(writeFile(t, "dup.tsv", "A\tnorth\nA\tsouth\n")); err == nil {
		t.Error("conflicting group mapping accepted")
	}
	if _, err := LoadGroups(writeFile(t, "short.tsv", "A north no tabs\n")); err == nil {
		t.Error("untabbed line accepted")
	}
}

func TestLoad(t *testing.T) {
	treePath := writeFile(t, "tree.nwk", "((A,B),C);")
	wordsPath := writeFile(t, "words.tsv", wordlist)
	groupsPath := writeFile(t, "groups.tsv", "A\tnorth\nB\tnorth\nC\tsouth\n")

	ds, err := Load("demo", treePath, wordsPath, groupsPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ds.Name != "demo" || ds.Tree.Len() != 5 || ds.Matrix.Len() != 3 {
		t.Errorf("dataset = %+v", ds)
	}
	if g, ok := ds.Matrix.GroupOf("C"); !ok || g != "south" {
		t.Errorf("GroupOf(C) = %q, %v", g, ok)
	}
}

func TestLoad_TaxonMismatch(t *testing.T) {
	treePath := writeFile(t, "tree.nwk", "(A,B);")
	wordsPath := writeFile(t, "words.tsv", wordlist)
	if _, err := Load("demo", treePath, wordsPath, ""); err == nil {
		t.Error("wordlist taxon missing from tree accepted")
	}
}
