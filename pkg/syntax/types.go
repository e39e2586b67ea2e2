// Package syntax provides the immutable, arena-backed syntax tree consumed by
// the differencing engine.
//
// A Tree stores its nodes in pre-order, so a NodeID doubles as the node's
// document position and ancestor checks reduce to an index range test. Every
// node is one of three kinds (structural node, token, trivia) and carries a
// dense Label drawn from the tree's Grammar.
package syntax

import (
	"fmt"
	"strconv"
)

// NodeID identifies a node within one Tree. It is the node's pre-order index.
type NodeID int32

// NoNode is the NodeID returned where no node exists (e.g. the root's parent).
const NoNode NodeID = -1

// Valid reports whether id refers to a node.
func (id NodeID) Valid() bool {
	return id >= 0
}

// Kind is the closed set of node categories.
type Kind uint8

// Node kinds.
const (
	// Structural nodes have ordered children and no text of their own.
	Structural Kind = iota
	// Token nodes are leaves carrying source text.
	Token
	// Trivia nodes are leaves carrying non-semantic text (comments, whitespace).
	Trivia
)

func (k Kind) String() string {
	switch k {
	case Structural:
		return "structural"
	case Token:
		return "token"
	case Trivia:
		return "trivia"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// IsLeaf reports whether nodes of this kind carry text instead of children.
func (k Kind) IsLeaf() bool {
	switch k {
	case Token, Trivia:
		return true
	case Structural:
		return false
	default:
		return false
	}
}

// Label is a dense, grammar-specific bucket id derived from a node's syntactic kind.
// Nodes only ever match nodes with the same label.
type Label uint32

// Span is a half-open byte range [Start, Start+Length) in the source text.
type Span struct {
	Start  uint32 `json:"start"`
	Length uint32 `json:"length"`
}

// End returns the exclusive end offset of the span.
func (s Span) End() uint32 {
	return s.Start + s.Length
}

func (s Span) String() string {
	return fmt.Sprintf("[%d..%d)", s.Start, s.End())
}

// Grammar describes the label space of a language.
//
// Labels are dense and contiguous in [0, LabelCount()), so they can index
// per-label tables. Implementations must be immutable; one Grammar value is
// shared by every tree of that language.
type Grammar interface {
	// Name identifies the grammar. Trees from different grammars are never compared.
	Name() string
	// LabelCount returns the number of labels.
	LabelCount() int
	// LabelName returns a human-readable name for label.
	LabelName(label Label) string
}

// LabelTable is a read-only Grammar backed by an ordered list of label names.
type LabelTable struct {
	name   string
	labels []string
	index  map[string]Label
}

// NewLabelTable creates a LabelTable whose labels are numbered in the order given.
// Duplicate names keep their first label.
func NewLabelTable(name string, labels ...string) *LabelTable {
	index := make(map[string]Label, len(labels))

	for i, l := range labels {
		if _, exists := index[l]; !exists {
			index[l] = Label(i)
		}
	}

	return &LabelTable{
		name:   name,
		labels: labels,
		index:  index,
	}
}

// Name returns the grammar name.
func (lt *LabelTable) Name() string {
	return lt.name
}

// LabelCount returns the number of labels.
func (lt *LabelTable) LabelCount() int {
	return len(lt.labels)
}

// LabelName returns the name of label, or a numeric placeholder when out of range.
func (lt *LabelTable) LabelName(label Label) string {
	if int(label) < len(lt.labels) {
		return lt.labels[label]
	}

	return "label(" + strconv.FormatUint(uint64(label), 10) + ")"
}

// Lookup returns the label registered under name.
func (lt *LabelTable) Lookup(name string) (Label, bool) {
	l, ok := lt.index[name]

	return l, ok
}

// MustLookup returns the label registered under name and panics if it is unknown.
// Intended for package-level label variables.
func (lt *LabelTable) MustLookup(name string) Label {
	l, ok := lt.index[name]
	if !ok {
		panic(fmt.Sprintf("syntax: grammar %s has no label %q", lt.name, name))
	}

	return l
}
