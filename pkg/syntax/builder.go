package syntax

import (
	"crypto/sha1" //nolint:gosec // SHA1 used for content fingerprinting, not security.
	"encoding/binary"
	"errors"
	"fmt"
	"hash"

	"github.com/Sumatoshi-tech/codediff/pkg/safeconv"
)

// Sentinel errors for tree construction.
var (
	ErrUnbalanced      = errors.New("syntax: unbalanced Open/Close")
	ErrEmptyTree       = errors.New("syntax: tree has no nodes")
	ErrMultipleRoots   = errors.New("syntax: tree has more than one root")
	ErrLabelOutOfRange = errors.New("syntax: label out of grammar range")
	ErrNilGrammar      = errors.New("syntax: nil grammar")
)

// fingerprintBytes is the number of SHA1 bytes kept as a uint64 fingerprint.
const fingerprintBytes = 8

// Builder assembles a Tree in document order.
//
// Structural nodes are bracketed by Open and Close; leaves are appended with
// Token and Trivia. Spans are derived from a running byte offset: leaves consume
// len(text) bytes, Advance and SetOffset move over gaps such as whitespace.
// The first error is sticky and reported by Build.
type Builder struct {
	grammar Grammar
	nodes   []node
	stack   []NodeID
	err     error
	offset  uint32
}

// NewBuilder creates a Builder for trees of the given grammar.
func NewBuilder(grammar Grammar) *Builder {
	b := &Builder{grammar: grammar}
	if grammar == nil {
		b.err = ErrNilGrammar
	}

	return b
}

// Offset returns the current byte offset.
func (b *Builder) Offset() uint32 {
	return b.offset
}

// Advance moves the offset forward by n bytes without emitting a node.
func (b *Builder) Advance(n uint32) *Builder {
	b.offset += n

	return b
}

// SetOffset moves the offset to off without emitting a node.
func (b *Builder) SetOffset(off uint32) *Builder {
	b.offset = off

	return b
}

// Open starts a structural node with the given label. Subsequent nodes become
// its children until the matching Close.
func (b *Builder) Open(label Label) *Builder {
	id, ok := b.push(Structural, label, "")
	if ok {
		b.stack = append(b.stack, id)
	}

	return b
}

// Close ends the innermost open structural node.
func (b *Builder) Close() *Builder {
	if b.err != nil {
		return b
	}

	if len(b.stack) == 0 {
		b.err = fmt.Errorf("%w: Close without Open", ErrUnbalanced)

		return b
	}

	top := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]

	start := b.nodes[top].span.Start
	if b.offset > start {
		b.nodes[top].span.Length = b.offset - start
	}

	return b
}

// Token appends a token leaf.
func (b *Builder) Token(label Label, text string) *Builder {
	b.push(Token, label, text)

	return b
}

// Trivia appends a trivia leaf.
func (b *Builder) Trivia(label Label, text string) *Builder {
	b.push(Trivia, label, text)

	return b
}

func (b *Builder) push(kind Kind, label Label, text string) (NodeID, bool) {
	if b.err != nil {
		return NoNode, false
	}

	if int(label) >= b.grammar.LabelCount() {
		b.err = fmt.Errorf("%w: %d >= %d in %s", ErrLabelOutOfRange, label, b.grammar.LabelCount(), b.grammar.Name())

		return NoNode, false
	}

	parent := NoNode
	if len(b.stack) > 0 {
		parent = b.stack[len(b.stack)-1]
	} else if len(b.nodes) > 0 {
		b.err = ErrMultipleRoots

		return NoNode, false
	}

	id := NodeID(safeconv.MustIntToInt32(len(b.nodes)))
	length := safeconv.MustIntToUint32(len(text))

	b.nodes = append(b.nodes, node{
		kind:   kind,
		label:  label,
		text:   text,
		parent: parent,
		span:   Span{Start: b.offset, Length: length},
	})

	b.offset += length

	return id, true
}

// Build finalizes the tree. The Builder must not be reused afterwards.
func (b *Builder) Build() (*Tree, error) {
	if b.err != nil {
		return nil, b.err
	}

	if len(b.stack) != 0 {
		return nil, fmt.Errorf("%w: %d node(s) left open", ErrUnbalanced, len(b.stack))
	}

	if len(b.nodes) == 0 {
		return nil, ErrEmptyTree
	}

	tree := &Tree{
		grammar: b.grammar,
		nodes:   b.nodes,
	}

	tree.link()
	tree.summarize()

	b.nodes = nil

	return tree, nil
}

// link lays out the child lists. Nodes are in pre-order, so visiting ids in
// increasing order appends each parent's children in document order.
func (t *Tree) link() {
	for id := 1; id < len(t.nodes); id++ {
		t.nodes[t.nodes[id].parent].childCount++
	}

	var next int32

	for id := range t.nodes {
		t.nodes[id].childStart = next
		next += t.nodes[id].childCount
		t.nodes[id].childCount = 0
	}

	t.edges = make([]NodeID, len(t.nodes)-1)

	for id := 1; id < len(t.nodes); id++ {
		p := &t.nodes[t.nodes[id].parent]
		t.edges[p.childStart+p.childCount] = NodeID(safeconv.MustIntToInt32(id))
		p.childCount++
	}
}

// summarize computes subtree sizes, token weights and fingerprints bottom-up.
// Children always have larger ids than their parent, so a reverse scan sees
// every child before its parent.
func (t *Tree) summarize() {
	hasher := sha1.New() //nolint:gosec // SHA1 used for content fingerprinting, not security.
	buf := make([]byte, fingerprintBytes)

	for id := len(t.nodes) - 1; id >= 0; id-- {
		n := &t.nodes[id]
		n.size = 1

		if n.kind == Token {
			n.weight = 1
		}

		hasher.Reset()
		writeNodeContent(hasher, n, buf)

		end := n.childStart + n.childCount
		for _, c := range t.edges[n.childStart:end] {
			child := &t.nodes[c]
			n.size += child.size
			n.weight += child.weight

			binary.LittleEndian.PutUint64(buf, child.fingerprint)
			hasher.Write(buf)
		}

		n.fingerprint = binary.LittleEndian.Uint64(hasher.Sum(nil)[:fingerprintBytes])
	}
}

// writeNodeContent writes the span-independent content of n to the hash.
func writeNodeContent(hasher hash.Hash, n *node, buf []byte) {
	binary.LittleEndian.PutUint64(buf, uint64(n.kind)<<32|uint64(n.label))
	hasher.Write(buf)

	binary.LittleEndian.PutUint64(buf, uint64(len(n.text)))
	hasher.Write(buf)
	hasher.Write([]byte(n.text))
}
