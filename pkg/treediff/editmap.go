package treediff

import (
	"github.com/Sumatoshi-tech/codediff/pkg/syntax"
)

// Side selects the tree a node belongs to.
type Side uint8

// Tree sides.
const (
	OldSide Side = iota
	NewSide
)

// EditMap indexes the edits that touch each node, for consumers that walk the
// trees and ask what happened to a node.
//
// Deletes and updates are keyed by their old node, inserts and updates by
// their new node. Moves and reorders are not indexed.
type EditMap struct {
	old map[syntax.NodeID]EditKind
	new map[syntax.NodeID]EditKind
}

// NewEditMap builds the EditMap of a script.
func NewEditMap(script *EditScript) *EditMap {
	em := &EditMap{
		old: make(map[syntax.NodeID]EditKind),
		new: make(map[syntax.NodeID]EditKind),
	}

	for _, e := range script.Edits() {
		if e.Kind == Delete || e.Kind == Update {
			em.old[e.OldNode] = e.Kind
		}

		if e.Kind == Insert || e.Kind == Update {
			em.new[e.NewNode] = e.Kind
		}
	}

	return em
}

// Kind returns the indexed edit of node on the given side.
func (em *EditMap) Kind(side Side, node syntax.NodeID) (EditKind, bool) {
	index := em.old
	if side == NewSide {
		index = em.new
	}

	kind, ok := index[node]

	return kind, ok
}

// HasEdit reports whether node on the given side has an edit of kind.
func (em *EditMap) HasEdit(side Side, node syntax.NodeID, kind EditKind) bool {
	got, ok := em.Kind(side, node)

	return ok && got == kind
}

// HasParentEdit reports whether an insert or delete is implied by the same
// edit of its parent, e.g. a token deleted along with its statement. Other
// kinds never have a parent edit.
func (em *EditMap) HasParentEdit(e Edit) bool {
	switch e.Kind {
	case Insert:
		return e.NewParent != syntax.NoNode && em.HasEdit(NewSide, e.NewParent, Insert)
	case Delete:
		return e.OldParent != syntax.NoNode && em.HasEdit(OldSide, e.OldParent, Delete)
	case Update, Move, Reorder:
		return false
	default:
		return false
	}
}
