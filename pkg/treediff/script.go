package treediff

import (
	"sync"

	"github.com/Sumatoshi-tech/codediff/pkg/syntax"
)

// EditScript is the result of a comparison: the ordered edits and the match
// they were derived from.
//
// Edits are ordered by the old-tree position they apply at. Deletes, updates,
// moves and reorders sit at their old node; an insert sits after the old
// partner of the closest matched node preceding it in the new tree.
type EditScript struct {
	match *Match
	edits []Edit

	mu       sync.Mutex
	distance func(oldNode, newNode syntax.NodeID) float64
}

func newEditScript(match *Match, edits []Edit, dist func(oldNode, newNode syntax.NodeID) float64) *EditScript {
	return &EditScript{match: match, edits: edits, distance: dist}
}

// Edits returns the ordered edits. The slice must not be modified.
func (s *EditScript) Edits() []Edit {
	return s.edits
}

// Len returns the number of edits.
func (s *EditScript) Len() int {
	return len(s.edits)
}

// Empty reports whether the trees are equivalent.
func (s *EditScript) Empty() bool {
	return len(s.edits) == 0
}

// Match returns the node correspondence the script was built from.
func (s *EditScript) Match() *Match {
	return s.match
}

// Old returns the old tree.
func (s *EditScript) Old() *syntax.Tree {
	return s.match.old
}

// New returns the new tree.
func (s *EditScript) New() *syntax.Tree {
	return s.match.new
}

// Distance returns the distance between any old node and any new node, scored
// with the comparer's metric. It is safe for concurrent use.
func (s *EditScript) Distance(oldNode, newNode syntax.NodeID) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.distance(oldNode, newNode)
}

// Counts returns the number of edits of each kind. Kinds without edits are absent.
func (s *EditScript) Counts() map[EditKind]int {
	counts := make(map[EditKind]int, len(EditKinds))

	for _, e := range s.edits {
		counts[e.Kind]++
	}

	return counts
}

// Filter returns the edits of the given kind in script order.
func (s *EditScript) Filter(kind EditKind) []Edit {
	var out []Edit

	for _, e := range s.edits {
		if e.Kind == kind {
			out = append(out, e)
		}
	}

	return out
}
