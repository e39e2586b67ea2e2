package treediff

import (
	"cmp"
	"slices"

	"github.com/Sumatoshi-tech/codediff/pkg/syntax"
)

// keyedEdit carries the document-order sort key of an edit: the old position
// it applies at, then deletes/updates before inserts, then the new position.
type keyedEdit struct {
	edit   Edit
	oldPos syntax.NodeID
	group  int
	newPos syntax.NodeID
}

func compareKeyed(a, b keyedEdit) int {
	return cmp.Or(
		cmp.Compare(a.oldPos, b.oldPos),
		cmp.Compare(a.group, b.group),
		cmp.Compare(a.newPos, b.newPos),
	)
}

// buildEdits derives the ordered edit script from the completed match.
func (r *run[E]) buildEdits() []Edit {
	keyed := make([]keyedEdit, 0)

	for o, n := range r.match.Pairs() {
		kind, ok := r.classify(o, n)
		if !ok {
			continue
		}

		keyed = append(keyed, keyedEdit{
			edit: Edit{
				Kind:      kind,
				OldNode:   o,
				NewNode:   n,
				OldParent: r.old.Parent(o),
				NewParent: r.new.Parent(n),
			},
			oldPos: o,
			newPos: n,
		})
	}

	for o := range r.old.All() {
		if r.match.hasOld(o) {
			continue
		}

		parent := r.old.Parent(o)
		newParent := syntax.NoNode

		if parent != syntax.NoNode {
			newParent = r.match.forward[parent]
		}

		keyed = append(keyed, keyedEdit{
			edit: Edit{
				Kind:      Delete,
				OldNode:   o,
				NewNode:   syntax.NoNode,
				OldParent: parent,
				NewParent: newParent,
			},
			oldPos: o,
			newPos: syntax.NoNode,
		})
	}

	// An insert lands after the old partner of the closest matched node that
	// precedes it in the new document. The new root is always matched.
	anchor := syntax.NoNode

	for n := range r.new.All() {
		if o := r.match.inverse[n]; o != syntax.NoNode {
			anchor = o

			continue
		}

		parent := r.new.Parent(n)
		oldParent := syntax.NoNode

		if parent != syntax.NoNode {
			oldParent = r.match.inverse[parent]
		}

		keyed = append(keyed, keyedEdit{
			edit: Edit{
				Kind:      Insert,
				OldNode:   syntax.NoNode,
				NewNode:   n,
				OldParent: oldParent,
				NewParent: parent,
			},
			oldPos: anchor,
			group:  1,
			newPos: n,
		})
	}

	slices.SortStableFunc(keyed, compareKeyed)

	edits := make([]Edit, len(keyed))
	for i, k := range keyed {
		edits[i] = k.edit
	}

	return edits
}

// classify decides the edit of a matched pair. Moves win over updates, and
// updates over reorders; identical pairs in place produce no edit.
func (r *run[E]) classify(o, n syntax.NodeID) (EditKind, bool) {
	po, pn := r.old.Parent(o), r.new.Parent(n)

	if po != pn && (po == syntax.NoNode || pn == syntax.NoNode) {
		return Move, true
	}

	if po != syntax.NoNode && r.match.forward[po] != pn {
		return Move, true
	}

	if r.ownContentDiffers(o, n) {
		return Update, true
	}

	if r.reordered[o] && r.cfg.reorder == ReorderReport {
		return Reorder, true
	}

	return 0, false
}

// ownContentDiffers reports whether the node itself changed. A leaf changes
// when its text does. A structural node changes when one of its direct token
// children has no counterpart; tokens matched with a different text carry
// their own update, and nodes below child nodes are classified on their own.
func (r *run[E]) ownContentDiffers(o, n syntax.NodeID) bool {
	if r.old.Kind(o) != syntax.Structural {
		return r.old.Text(o) != r.new.Text(n)
	}

	return hasUnmatchedToken(r.old, o, r.match.hasOld) || hasUnmatchedToken(r.new, n, r.match.hasNew)
}

func hasUnmatchedToken(tree *syntax.Tree, id syntax.NodeID, matched func(syntax.NodeID) bool) bool {
	for _, c := range tree.Children(id) {
		if tree.Kind(c) == syntax.Token && !matched(c) {
			return true
		}
	}

	return false
}
