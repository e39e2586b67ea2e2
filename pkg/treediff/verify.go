package treediff

import (
	"github.com/Sumatoshi-tech/codediff/pkg/syntax"
)

// verify checks the guarantees every returned script makes and panics with an
// InvariantViolation when one does not hold.
func (r *run[E]) verify(edits []Edit) {
	m := r.match

	if m.forward[r.old.Root()] != r.new.Root() {
		violate("root pairing", "old root matched to %d", m.forward[r.old.Root()])
	}

	moved := make(map[syntax.NodeID]bool)
	deleted := make([]int, r.old.Len())
	inserted := make([]int, r.new.Len())

	for _, e := range edits {
		switch e.Kind {
		case Move:
			moved[e.OldNode] = true
		case Delete:
			deleted[e.OldNode]++
		case Insert:
			inserted[e.NewNode]++
		case Update, Reorder:
		}
	}

	for o, n := range m.Pairs() {
		if m.inverse[n] != o {
			violate("bijection", "old %d -> new %d -> old %d", o, n, m.inverse[n])
		}

		if r.old.Label(o) != r.new.Label(n) {
			violate("label equality", "old %d (%s) matched to new %d (%s)",
				o, r.old.LabelName(o), n, r.new.LabelName(n))
		}

		po, pn := r.old.Parent(o), r.new.Parent(n)
		if !moved[o] && po != syntax.NoNode && m.forward[po] != pn {
			violate("containment", "old %d -> new %d is not a move but its parents do not match", o, n)
		}
	}

	for o, count := range deleted {
		if want := boolToInt(!m.hasOld(syntax.NodeID(o))); count != want {
			violate("completeness", "old node %d deleted %d times, want %d", o, count, want)
		}
	}

	for n, count := range inserted {
		if want := boolToInt(!m.hasNew(syntax.NodeID(n))); count != want {
			violate("completeness", "new node %d inserted %d times, want %d", n, count, want)
		}
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}

	return 0
}
