package syntax

import (
	"iter"
	"strconv"
	"strings"
)

// node is the arena record of one syntax node.
type node struct {
	text        string
	span        Span
	label       Label
	parent      NodeID
	childStart  int32
	childCount  int32
	size        int32 // nodes in the subtree, including the node itself
	weight      int32 // token leaves in the subtree
	fingerprint uint64
	kind        Kind
}

// Tree is an immutable syntax tree. Nodes are addressed by NodeID and stored in pre-order.
//
// A Tree is safe for concurrent readers; nothing mutates it after Build.
type Tree struct {
	grammar Grammar
	nodes   []node
	edges   []NodeID
}

// Grammar returns the grammar the tree was built with.
func (t *Tree) Grammar() Grammar {
	return t.grammar
}

// Root returns the root node. Trees are never empty.
func (t *Tree) Root() NodeID {
	return 0
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Contains reports whether id is a node of this tree.
func (t *Tree) Contains(id NodeID) bool {
	return id >= 0 && int(id) < len(t.nodes)
}

// Kind returns the category of id.
func (t *Tree) Kind(id NodeID) Kind {
	return t.nodes[id].kind
}

// Label returns the label of id.
func (t *Tree) Label(id NodeID) Label {
	return t.nodes[id].label
}

// LabelName returns the grammar name of the label of id.
func (t *Tree) LabelName(id NodeID) string {
	return t.grammar.LabelName(t.nodes[id].label)
}

// Span returns the source range covered by id.
func (t *Tree) Span(id NodeID) Span {
	return t.nodes[id].span
}

// Text returns the text of a token or trivia node. Structural nodes have no text.
func (t *Tree) Text(id NodeID) string {
	return t.nodes[id].text
}

// Parent returns the parent of id, or NoNode for the root.
func (t *Tree) Parent(id NodeID) NodeID {
	return t.nodes[id].parent
}

// Children returns the ordered children of id. The slice must not be modified.
func (t *Tree) Children(id NodeID) []NodeID {
	n := &t.nodes[id]
	end := n.childStart + n.childCount

	return t.edges[n.childStart:end:end]
}

// ChildCount returns the number of children of id.
func (t *Tree) ChildCount(id NodeID) int {
	return int(t.nodes[id].childCount)
}

// SubtreeSize returns the number of nodes in the subtree rooted at id.
func (t *Tree) SubtreeSize(id NodeID) int {
	return int(t.nodes[id].size)
}

// Weight returns the number of tokens (trivia excluded) under id, counting id itself.
func (t *Tree) Weight(id NodeID) int {
	return int(t.nodes[id].weight)
}

// Fingerprint returns a content hash of the subtree rooted at id. Equal subtrees
// (same kinds, labels, texts and shape) have equal fingerprints; spans are ignored.
func (t *Tree) Fingerprint(id NodeID) uint64 {
	return t.nodes[id].fingerprint
}

// IsAncestor reports whether ancestor is a proper ancestor of id.
func (t *Tree) IsAncestor(ancestor, id NodeID) bool {
	return ancestor < id && id < ancestor+NodeID(t.nodes[ancestor].size)
}

// Depth returns the number of edges between id and the root.
func (t *Tree) Depth(id NodeID) int {
	depth := 0

	for p := t.nodes[id].parent; p != NoNode; p = t.nodes[p].parent {
		depth++
	}

	return depth
}

// All iterates over every node in pre-order.
func (t *Tree) All() iter.Seq[NodeID] {
	return t.Subtree(t.Root())
}

// Subtree iterates over id and its descendants in pre-order.
func (t *Tree) Subtree(id NodeID) iter.Seq[NodeID] {
	return func(yield func(NodeID) bool) {
		end := id + NodeID(t.nodes[id].size)

		for cur := id; cur < end; cur++ {
			if !yield(cur) {
				return
			}
		}
	}
}

// Tokens returns the token leaves under id in document order. Trivia is skipped.
func (t *Tree) Tokens(id NodeID) []NodeID {
	tokens := make([]NodeID, 0, t.nodes[id].weight)

	for cur := range t.Subtree(id) {
		if t.nodes[cur].kind == Token {
			tokens = append(tokens, cur)
		}
	}

	return tokens
}

// TokenTexts returns the texts of the token leaves under id in document order.
func (t *Tree) TokenTexts(id NodeID) []string {
	tokens := t.Tokens(id)
	texts := make([]string, len(tokens))

	for i, tok := range tokens {
		texts[i] = t.nodes[tok].text
	}

	return texts
}

// SignificantChildren returns the children of id that are not trivia.
func (t *Tree) SignificantChildren(id NodeID) []NodeID {
	children := t.Children(id)

	out := make([]NodeID, 0, len(children))

	for _, c := range children {
		if t.nodes[c].kind != Trivia {
			out = append(out, c)
		}
	}

	return out
}

// Format renders the subtree rooted at id as an S-expression, e.g.
// (Block "{" (Stmt "a" ";") "}"). Trivia is rendered as #"text".
func (t *Tree) Format(id NodeID) string {
	var sb strings.Builder

	t.format(&sb, id)

	return sb.String()
}

func (t *Tree) format(sb *strings.Builder, id NodeID) {
	n := &t.nodes[id]

	switch n.kind {
	case Token:
		sb.WriteString(strconv.Quote(n.text))
	case Trivia:
		sb.WriteByte('#')
		sb.WriteString(strconv.Quote(n.text))
	case Structural:
		sb.WriteByte('(')
		sb.WriteString(t.grammar.LabelName(n.label))

		for _, c := range t.Children(id) {
			sb.WriteByte(' ')
			t.format(sb, c)
		}

		sb.WriteByte(')')
	}
}

// Equal reports whether the subtree at a in t and the subtree at b in other have
// the same shape, kinds, labels and texts. Spans are ignored.
func (t *Tree) Equal(a NodeID, other *Tree, b NodeID) bool {
	if t.nodes[a].fingerprint != other.nodes[b].fingerprint || t.nodes[a].size != other.nodes[b].size {
		return false
	}

	size := NodeID(t.nodes[a].size)

	for off := range size {
		x := &t.nodes[a+off]
		y := &other.nodes[b+off]

		if x.kind != y.kind || x.label != y.label || x.text != y.text || x.childCount != y.childCount {
			return false
		}
	}

	return true
}
