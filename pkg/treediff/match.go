package treediff

import (
	"iter"

	"github.com/Sumatoshi-tech/codediff/pkg/syntax"
)

// Match is a one-to-one correspondence between nodes of an old and a new tree.
// Lookups in both directions are O(1).
type Match struct {
	old, new *syntax.Tree
	forward  []syntax.NodeID
	inverse  []syntax.NodeID
	size     int
}

func newMatch(oldTree, newTree *syntax.Tree) *Match {
	m := &Match{
		old:     oldTree,
		new:     newTree,
		forward: make([]syntax.NodeID, oldTree.Len()),
		inverse: make([]syntax.NodeID, newTree.Len()),
	}

	for i := range m.forward {
		m.forward[i] = syntax.NoNode
	}

	for i := range m.inverse {
		m.inverse[i] = syntax.NoNode
	}

	return m
}

// Old returns the old tree.
func (m *Match) Old() *syntax.Tree {
	return m.old
}

// New returns the new tree.
func (m *Match) New() *syntax.Tree {
	return m.new
}

// MatchOf returns the new node matched to the old node.
func (m *Match) MatchOf(oldNode syntax.NodeID) (syntax.NodeID, bool) {
	if !m.old.Contains(oldNode) {
		return syntax.NoNode, false
	}

	n := m.forward[oldNode]

	return n, n != syntax.NoNode
}

// InverseOf returns the old node matched to the new node.
func (m *Match) InverseOf(newNode syntax.NodeID) (syntax.NodeID, bool) {
	if !m.new.Contains(newNode) {
		return syntax.NoNode, false
	}

	o := m.inverse[newNode]

	return o, o != syntax.NoNode
}

// Len returns the number of matched pairs.
func (m *Match) Len() int {
	return m.size
}

// Pairs iterates over matched pairs in old-tree document order.
func (m *Match) Pairs() iter.Seq2[syntax.NodeID, syntax.NodeID] {
	return func(yield func(syntax.NodeID, syntax.NodeID) bool) {
		for o, n := range m.forward {
			if n == syntax.NoNode {
				continue
			}

			if !yield(syntax.NodeID(o), n) {
				return
			}
		}
	}
}

// IsIdentity reports whether both trees have the same size and every node is
// matched to the node at the same position.
func (m *Match) IsIdentity() bool {
	if len(m.forward) != len(m.inverse) || m.size != len(m.forward) {
		return false
	}

	for o, n := range m.forward {
		if syntax.NodeID(o) != n {
			return false
		}
	}

	return true
}

func (m *Match) add(o, n syntax.NodeID) {
	m.forward[o] = n
	m.inverse[n] = o
	m.size++
}

func (m *Match) hasOld(o syntax.NodeID) bool {
	return m.forward[o] != syntax.NoNode
}

func (m *Match) hasNew(n syntax.NodeID) bool {
	return m.inverse[n] != syntax.NoNode
}
