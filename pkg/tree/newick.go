package tree

import (
	"fmt"
	"strings"
)

// ParseNewick builds a Tree from a Newick string. Branch lengths are parsed
// and discarded (reconciliation is topology-only), comments in square
// brackets are skipped, quoted labels are supported. Internal nodes without
// a label are named "root" / "edge.N" following the usual GML export
// convention for lexicostatistical trees.
func ParseNewick(s string) (*Tree, error) {
	p := &newickParser{src: s}
	p.skipSpace()
	if p.eof() {
		return nil, &InvalidTreeError{Reason: "empty newick string"}
	}

	t := &Tree{root: 0}
	rootID, err := p.parseNode(t, NoNode)
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.eof() && p.peek() == ';' {
		p.pos++
		p.skipSpace()
	}
	if !p.eof() {
		return nil, &InvalidTreeError{
			Reason: "trailing characters after tree",
			Label:  p.src[p.pos:],
		}
	}
	t.root = rootID

	// Name unlabeled internal nodes deterministically in preorder: the
	// root is "root", everything below is "edge.N".
	edgeSeq := 0
	var name func(id int)
	name = func(id int) {
		nd := &t.nodes[id]
		if nd.name == "" {
			if nd.parent == NoNode {
				nd.name = "root"
			} else {
				edgeSeq++
				nd.name = fmt.Sprintf("edge.%d", edgeSeq)
			}
		}
		for _, c := range nd.children {
			name(c)
		}
	}
	name(rootID)

	if err := t.finish(); err != nil {
		return nil, err
	}
	return t, nil
}

type newickParser struct {
	src string
	pos int
}

func (p *newickParser) eof() bool  { return p.pos >= len(p.src) }
func (p *newickParser) peek() byte { return p.src[p.pos] }

func (p *newickParser) skipSpace() {
	for !p.eof() {
		switch p.peek() {
		case ' ', '\t', '\n', '\r':
			p.pos++
		case '[':
			// Comment; skip to the closing bracket.
			end := strings.IndexByte(p.src[p.pos:], ']')
			if end < 0 {
				p.pos = len(p.src)
				return
			}
			p.pos += end + 1
		default:
			return
		}
	}
}

// parseNode parses one node (leaf or subtree) and appends it to t.
func (p *newickParser) parseNode(t *Tree, parent int) (int, error) {
	p.skipSpace()
	if p.eof() {
		return NoNode, &InvalidTreeError{Reason: "unexpected end of newick string"}
	}

	id := len(t.nodes)
	t.nodes = append(t.nodes, node{parent: parent})

	if p.peek() == '(' {
		p.pos++ // consume '('
		for {
			child, err := p.parseNode(t, id)
			if err != nil {
				return NoNode, err
			}
			t.nodes[id].children = append(t.nodes[id].children, child)
			p.skipSpace()
			if p.eof() {
				return NoNode, &InvalidTreeError{Reason: "unbalanced parenthesis"}
			}
			if p.peek() == ',' {
				p.pos++
				continue
			}
			if p.peek() == ')' {
				p.pos++
				break
			}
			return NoNode, &InvalidTreeError{
				Reason: "unexpected character in node list",
				Label:  string(p.peek()),
			}
		}
		// Optional internal node label.
		label, err := p.parseLabel()
		if err != nil {
			return NoNode, err
		}
		t.nodes[id].name = label
	} else {
		label, err := p.parseLabel()
		if err != nil {
			return NoNode, err
		}
		if label == "" {
			return NoNode, &InvalidTreeError{Reason: "leaf without taxon label"}
		}
		t.nodes[id].name = label
		t.nodes[id].taxon = label
	}

	// Optional branch length, ignored.
	p.skipSpace()
	if !p.eof() && p.peek() == ':' {
		p.pos++
		for !p.eof() && isLengthChar(p.peek()) {
			p.pos++
		}
	}
	return id, nil
}

// parseLabel reads a (possibly quoted, possibly empty) node label.
func (p *newickParser) parseLabel() (string, error) {
	p.skipSpace()
	if p.eof() {
		return "", nil
	}
	if p.peek() == '\'' {
		p.pos++
		end := strings.IndexByte(p.src[p.pos:], '\'')
		if end < 0 {
			return "", &InvalidTreeError{Reason: "unterminated quoted label"}
		}
		label := p.src[p.pos : p.pos+end]
		p.pos += end + 1
		return label, nil
	}
	start := p.pos
	for !p.eof() && !isDelim(p.peek()) {
		p.pos++
	}
	return strings.TrimSpace(p.src[start:p.pos]), nil
}

func isDelim(c byte) bool {
	switch c {
	case '(', ')', ',', ':', ';', '[', ']':
		return true
	}
	return false
}

func isLengthChar(c byte) bool {
	return c >= '0' && c <= '9' || c == '.' || c == '-' || c == '+' || c == 'e' || c == 'E'
}
