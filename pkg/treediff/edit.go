package treediff

import (
	"github.com/Sumatoshi-tech/codediff/pkg/syntax"
)

// EditKind is the operation of an Edit.
type EditKind uint8

// Edit kinds.
const (
	// Insert adds a new node that has no old counterpart.
	Insert EditKind = iota
	// Delete removes an old node that has no new counterpart.
	Delete
	// Update keeps a node in place but changes its own tokens.
	Update
	// Move relocates a matched node under a parent that does not correspond
	// to its old parent.
	Move
	// Reorder changes a matched node's position among the same parent's
	// children. Only emitted under ReorderReport.
	Reorder
)

// EditKinds lists every kind in declaration order.
//
//nolint:gochecknoglobals // Read-only enumeration.
var EditKinds = []EditKind{Insert, Delete, Update, Move, Reorder}

func (k EditKind) String() string {
	switch k {
	case Insert:
		return "insert"
	case Delete:
		return "delete"
	case Update:
		return "update"
	case Move:
		return "move"
	case Reorder:
		return "reorder"
	default:
		return "unknown"
	}
}

// Edit is one operation of an edit script.
//
// OldNode and OldParent refer to the old tree, NewNode and NewParent to the
// new one. Sides a kind does not touch hold syntax.NoNode: an Insert has no
// OldNode, a Delete no NewNode. OldParent of an Insert is the old counterpart
// of the new parent, when there is one, and symmetrically for Delete.
type Edit struct {
	Kind      EditKind      `json:"kind"`
	OldNode   syntax.NodeID `json:"old_node"`
	NewNode   syntax.NodeID `json:"new_node"`
	OldParent syntax.NodeID `json:"old_parent"`
	NewParent syntax.NodeID `json:"new_parent"`
}
