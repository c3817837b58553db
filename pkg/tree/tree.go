package tree

import (
	"fmt"
	"sort"
)

// NoNode is returned by Parent and LCA lookups that have no answer.
const NoNode = -1

// InvalidTreeError reports a malformed tree (bad syntax, duplicate or
// missing labels, too few leaves).
type InvalidTreeError struct {
	Reason string
	Label  string
}

func (e *InvalidTreeError) Error() string {
	if e.Label != "" {
		return fmt.Sprintf("invalid tree: %s (%q)", e.Reason, e.Label)
	}
	return "invalid tree: " + e.Reason
}

type node struct {
	name     string
	taxon    string // empty for internal nodes
	parent   int
	children []int
}

// Tree is an immutable rooted tree over taxa. Leaves carry taxon labels,
// internal nodes carry generated names ("root", "edge.N"). Nodes are
// addressed by dense integer IDs; every non-root node identifies the edge
// to its parent, so edges are addressed by their child node ID.
type Tree struct {
	nodes     []node
	root      int
	depth     []int
	postorder []int
	preorder  []int
	byName    map[string]int
	leafTaxa  []string
}

// Root returns the root node ID.
func (t *Tree) Root() int { return t.root }

// Len returns the number of nodes.
func (t *Tree) Len() int { return len(t.nodes) }

// Parent returns the parent of id, or NoNode for the root.
func (t *Tree) Parent(id int) int { return t.nodes[id].parent }

// Children returns the child IDs of id in input order.
func (t *Tree) Children(id int) []int {
	c := t.nodes[id].children
	out := make([]int, len(c))
	copy(out, c)
	return out
}

// IsLeaf reports whether id is a leaf.
func (t *Tree) IsLeaf(id int) bool { return len(t.nodes[id].children) == 0 }

// TaxonOf returns the taxon label of a leaf.
func (t *Tree) TaxonOf(id int) (string, bool) {
	n := t.nodes[id]
	return n.taxon, n.taxon != ""
}

// Name returns the node name (taxon label for leaves).
func (t *Tree) Name(id int) string { return t.nodes[id].name }

// NodeByName resolves a node name to its ID.
func (t *Tree) NodeByName(name string) (int, bool) {
	id, ok := t.byName[name]
	return id, ok
}

// Taxa returns all taxon labels in left-to-right leaf order.
func (t *Tree) Taxa() []string {
	out := make([]string, len(t.leafTaxa))
	copy(out, t.leafTaxa)
	return out
}

// Leaves returns the IDs of all leaves in left-to-right order.
func (t *Tree) Leaves() []int {
	var out []int
	for _, id := range t.preorder {
		if t.IsLeaf(id) {
			out = append(out, id)
		}
	}
	return out
}

// Postorder returns all node IDs, children before parents. The slice is a
// fresh copy and safe to mutate.
func (t *Tree) Postorder() []int {
	out := make([]int, len(t.postorder))
	copy(out, t.postorder)
	return out
}

// Preorder returns all node IDs, root before descendants.
func (t *Tree) Preorder() []int {
	out := make([]int, len(t.preorder))
	copy(out, t.preorder)
	return out
}

// Depth returns the number of edges between id and the root.
func (t *Tree) Depth(id int) int { return t.depth[id] }

// IsAncestor reports whether a is an ancestor of b (or equal to it).
func (t *Tree) IsAncestor(a, b int) bool {
	for b != NoNode {
		if a == b {
			return true
		}
		b = t.nodes[b].parent
	}
	return false
}

// Adjacent reports whether a and b share a tree edge.
func (t *Tree) Adjacent(a, b int) bool {
	return t.nodes[a].parent == b || t.nodes[b].parent == a
}

// LCA returns the lowest common ancestor of a and b.
func (t *Tree) LCA(a, b int) int {
	for t.depth[a] > t.depth[b] {
		a = t.nodes[a].parent
	}
	for t.depth[b] > t.depth[a] {
		b = t.nodes[b].parent
	}
	for a != b {
		a = t.nodes[a].parent
		b = t.nodes[b].parent
	}
	return a
}

// Path returns the node sequence from a to b through their lowest common
// ancestor, inclusive of both endpoints.
func (t *Tree) Path(a, b int) []int {
	lca := t.LCA(a, b)

	var up []int
	for n := a; n != lca; n = t.nodes[n].parent {
		up = append(up, n)
	}
	up = append(up, lca)

	var down []int
	for n := b; n != lca; n = t.nodes[n].parent {
		down = append(down, n)
	}
	for i := len(down) - 1; i >= 0; i-- {
		up = append(up, down[i])
	}
	return up
}

// Distance returns the number of edges on the path between a and b.
func (t *Tree) Distance(a, b int) int {
	lca := t.LCA(a, b)
	return (t.depth[a] - t.depth[lca]) + (t.depth[b] - t.depth[lca])
}

// Subtree returns the IDs of all nodes under id (inclusive), in preorder.
func (t *Tree) Subtree(id int) []int {
	out := []int{id}
	for i := 0; i < len(out); i++ {
		out = append(out, t.nodes[out[i]].children...)
	}
	return out
}

// CladeTaxa returns the sorted taxon labels of all leaves under id.
func (t *Tree) CladeTaxa(id int) []string {
	var out []string
	for _, n := range t.Subtree(id) {
		if taxon, ok := t.TaxonOf(n); ok {
			out = append(out, taxon)
		}
	}
	sort.Strings(out)
	return out
}

// LCAOf returns the lowest common ancestor of a set of leaves identified by
// taxon label. Unknown taxa produce an InvalidTreeError.
func (t *Tree) LCAOf(taxa []string) (int, error) {
	if len(taxa) == 0 {
		return NoNode, &InvalidTreeError{Reason: "empty taxon set for LCA"}
	}
	lca := NoNode
	for _, taxon := range taxa {
		id, ok := t.byName[taxon]
		if !ok || !t.IsLeaf(id) {
			return NoNode, &InvalidTreeError{Reason: "taxon not in tree", Label: taxon}
		}
		if lca == NoNode {
			lca = id
		} else {
			lca = t.LCA(lca, id)
		}
	}
	return lca, nil
}

// finish computes the cached traversals and lookup tables. Called once by
// the parser after the node table is complete.
func (t *Tree) finish() error {
	n := len(t.nodes)
	t.depth = make([]int, n)
	t.byName = make(map[string]int, n)
	t.postorder = make([]int, 0, n)
	t.preorder = make([]int, 0, n)

	for id, nd := range t.nodes {
		if _, dup := t.byName[nd.name]; dup {
			return &InvalidTreeError{Reason: "duplicate node label", Label: nd.name}
		}
		t.byName[nd.name] = id
	}

	// Iterative preorder; also detects nodes unreachable from the root,
	// which would mean a disconnected input.
	seen := make([]bool, n)
	stack := []int{t.root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			return &InvalidTreeError{Reason: "cycle detected", Label: t.nodes[id].name}
		}
		seen[id] = true
		t.preorder = append(t.preorder, id)
		if p := t.nodes[id].parent; p != NoNode {
			t.depth[id] = t.depth[p] + 1
		}
		kids := t.nodes[id].children
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
	if len(t.preorder) != n {
		return &InvalidTreeError{Reason: "disconnected node set"}
	}

	// Postorder: children before parents. Reverse preorder with children
	// pushed in order gives a valid postorder for our purposes, but we
	// build it explicitly to keep left-to-right child order.
	var walk func(id int)
	walk = func(id int) {
		for _, c := range t.nodes[id].children {
			walk(c)
		}
		t.postorder = append(t.postorder, id)
	}
	walk(t.root)

	for _, id := range t.preorder {
		if taxon, ok := t.TaxonOf(id); ok {
			t.leafTaxa = append(t.leafTaxa, taxon)
		}
	}
	if len(t.leafTaxa) < 2 {
		return &InvalidTreeError{Reason: "tree needs at least two leaves"}
	}
	return nil
}
