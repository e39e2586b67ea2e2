// Package distance scores how different two syntax nodes, or two token runs, are.
//
// Scores lie in [0, 1]: 0 for equivalent inputs, 1 for nothing in common.
// Structural nodes are scored by the weighted similarity of their aligned
// children, where a subtree weighs as many tokens as it contains.
package distance

import (
	"github.com/Sumatoshi-tech/codediff/pkg/lcs"
	"github.com/Sumatoshi-tech/codediff/pkg/syntax"
)

// ExactText is the token equivalence of identical text.
type ExactText struct{}

// Equivalent reports a == b.
func (ExactText) Equivalent(a, b string) bool {
	return a == b
}

type nodeMatcher = lcs.Matcher[syntax.NodeID, lcs.EquivalenceFunc[syntax.NodeID]]

// Metric computes node distances between one old and one new tree.
//
// Results are memoized, so a Metric belongs to a single comparison and is not
// safe for concurrent use. Create one per goroutine.
type Metric[E lcs.Equivalence[string]] struct {
	old, new *syntax.Tree
	eq       E
	epsilon  float64
	exact    bool
	memo     map[uint64]float64

	// One pair of matchers per recursion depth, since child alignment recurses
	// through the equivalence.
	forward  []*nodeMatcher
	backward []*nodeMatcher
	depth    int
}

// New creates a Metric for nodes of oldTree and newTree. Children of structural nodes
// align when their distance is at most epsilon; tokens compare with eq.
func New[E lcs.Equivalence[string]](oldTree, newTree *syntax.Tree, eq E, epsilon float64) *Metric[E] {
	_, exact := any(eq).(ExactText)

	return &Metric[E]{
		old:     oldTree,
		new:     newTree,
		eq:      eq,
		epsilon: epsilon,
		exact:   exact,
		memo:    make(map[uint64]float64),
	}
}

// Epsilon returns the child matching tolerance.
func (m *Metric[E]) Epsilon() float64 {
	return m.epsilon
}

// Equivalence returns the token equivalence.
func (m *Metric[E]) Equivalence() E {
	return m.eq
}

// Distance returns the distance between node a of the old tree and node b of the new tree.
func (m *Metric[E]) Distance(a, b syntax.NodeID) float64 {
	if m.old.Label(a) != m.new.Label(b) {
		return 1
	}

	kind := m.old.Kind(a)
	if kind != m.new.Kind(b) {
		return 1
	}

	switch kind {
	case syntax.Token, syntax.Trivia:
		if m.eq.Equivalent(m.old.Text(a), m.new.Text(b)) {
			return 0
		}

		return 1
	case syntax.Structural:
		return m.structural(a, b)
	default:
		return 1
	}
}

// Tokens returns the sequence distance between the token texts under a and b.
func (m *Metric[E]) Tokens(a, b syntax.NodeID) float64 {
	return Sequence(m.old.TokenTexts(a), m.new.TokenTexts(b), m.eq)
}

func (m *Metric[E]) structural(a, b syntax.NodeID) float64 {
	if m.exact && m.old.Fingerprint(a) == m.new.Fingerprint(b) && m.old.Equal(a, m.new, b) {
		return 0
	}

	key := uint64(uint32(a))<<32 | uint64(uint32(b))
	if d, ok := m.memo[key]; ok {
		return d
	}

	d := m.childDistance(a, b)
	m.memo[key] = d

	return d
}

// childDistance aligns the significant children of a and b in both directions
// and scores the heavier alignment. Either direction alone could pick pairs of
// different weight depending on argument order.
func (m *Metric[E]) childDistance(a, b syntax.NodeID) float64 {
	total := float64(m.old.Weight(a) + m.new.Weight(b))
	if total == 0 {
		return 0
	}

	oldChildren := m.old.SignificantChildren(a)
	newChildren := m.new.SignificantChildren(b)

	if len(oldChildren) == 0 || len(newChildren) == 0 {
		return 1
	}

	forward, backward := m.matchers()
	m.depth++

	al := forward.Align(oldChildren, newChildren)
	matched := m.matchedWeight(al.Pairs, oldChildren, newChildren, false)

	if al.Len() < len(oldChildren) || al.Len() < len(newChildren) {
		rev := backward.Align(newChildren, oldChildren)
		matched = max(matched, m.matchedWeight(rev.Pairs, oldChildren, newChildren, true))
	}

	m.depth--

	return clamp(1 - 2*matched/total)
}

func (m *Metric[E]) matchedWeight(pairs []lcs.Pair, oldChildren, newChildren []syntax.NodeID, reversed bool) float64 {
	var sum float64

	for _, pr := range pairs {
		// A reversed alignment indexes the new children first.
		var x, y syntax.NodeID
		if reversed {
			x, y = oldChildren[pr.B], newChildren[pr.A]
		} else {
			x, y = oldChildren[pr.A], newChildren[pr.B]
		}

		w := float64(m.old.Weight(x)+m.new.Weight(y)) / 2
		sum += w * (1 - m.Distance(x, y))
	}

	return sum
}

func (m *Metric[E]) matchers() (*nodeMatcher, *nodeMatcher) {
	if m.depth == len(m.forward) {
		m.forward = append(m.forward, lcs.NewMatcher[syntax.NodeID](lcs.EquivalenceFunc[syntax.NodeID](
			func(x, y syntax.NodeID) bool { return m.Distance(x, y) <= m.epsilon },
		)))
		m.backward = append(m.backward, lcs.NewMatcher[syntax.NodeID](lcs.EquivalenceFunc[syntax.NodeID](
			func(y, x syntax.NodeID) bool { return m.Distance(x, y) <= m.epsilon },
		)))
	}

	return m.forward[m.depth], m.backward[m.depth]
}

// Sequence returns 1 - 2·LCS/(len(a)+len(b)). Two empty sequences have distance 0.
func Sequence[T any, E lcs.Equivalence[T]](a, b []T, eq E) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 0
	}

	common := lcs.Length(a, b, eq)

	return clamp(1 - 2*float64(common)/float64(total))
}

func clamp(d float64) float64 {
	switch {
	case d < 0:
		return 0
	case d > 1:
		return 1
	default:
		return d
	}
}
