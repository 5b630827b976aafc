// Package tree reads phylogenetic trees in Newick format and answers the
// two questions the rate estimation needs: which species are at the
// leaves, and how far apart two of them are.
package tree

import (
	"bytes"
	"fmt"
	"strings"
)

// Tree is one node of a Newick tree.
type Tree struct {
	Children []*Tree
	Label    string
	// Length is the branch length to the parent, nil if absent.
	Length *float64
}

// IsLeaf reports whether the node has no children.
func (t *Tree) IsLeaf() bool {
	return len(t.Children) == 0
}

// Leaves returns leaf labels in left-to-right order.
func (t *Tree) Leaves() []string {
	var out []string
	var walk func(n *Tree)
	walk = func(n *Tree) {
		if n.IsLeaf() {
			out = append(out, n.Label)
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(t)
	return out
}

// Distance returns the sum of branch lengths on the path between two
// leaves. Missing branch lengths count as zero.
func (t *Tree) Distance(a, b string) (float64, error) {
	pa, ok := t.pathTo(a)
	if !ok {
		return 0, fmt.Errorf("leaf %q not in tree", a)
	}
	pb, ok := t.pathTo(b)
	if !ok {
		return 0, fmt.Errorf("leaf %q not in tree", b)
	}

	// Drop the shared prefix: the path from the root to the common ancestor.
	i := 0
	for i < len(pa) && i < len(pb) && pa[i] == pb[i] {
		i++
	}
	d := 0.0
	for _, n := range pa[i:] {
		d += n.length()
	}
	for _, n := range pb[i:] {
		d += n.length()
	}
	return d, nil
}

// pathTo returns the nodes from the root (excluded) down to the leaf.
func (t *Tree) pathTo(label string) ([]*Tree, bool) {
	if t.IsLeaf() {
		return nil, t.Label == label
	}
	for _, c := range t.Children {
		if p, ok := c.pathTo(label); ok {
			return append([]*Tree{c}, p...), true
		}
	}
	return nil, false
}

func (t *Tree) length() float64 {
	if t.Length == nil {
		return 0
	}
	return *t.Length
}

// String renders the tree indented by depth, one node per line.
func (t *Tree) String() string {
	var buf bytes.Buffer
	var out func(n *Tree, depth int)
	out = func(n *Tree, depth int) {
		name := n.Label
		if name == "" {
			name = "N/A"
		}
		length := ""
		if n.Length != nil {
			length = fmt.Sprintf(" (%f)", *n.Length)
		}
		fmt.Fprintf(&buf, "%s%s%s\n", strings.Repeat("  ", depth), name, length)
		for _, c := range n.Children {
			out(c, depth+1)
		}
	}
	out(t, 0)
	return buf.String()
}
