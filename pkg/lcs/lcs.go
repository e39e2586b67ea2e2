// Package lcs computes longest common subsequence alignments of two sequences
// under a caller-supplied equivalence.
//
// The algorithm is the classic O(n·m) suffix table with deterministic
// reconstruction: scanning the old sequence left to right, each element is
// paired with the earliest new element that still admits a longest alignment.
// Sibling lists and token runs are short, so the quadratic table is cheaper
// than it sounds and the tie-break is easy to reason about.
package lcs

// Equivalence decides whether two elements may be aligned.
// Implementations must be pure and should be symmetric.
type Equivalence[T any] interface {
	Equivalent(a, b T) bool
}

// EquivalenceFunc adapts a plain function to Equivalence.
type EquivalenceFunc[T any] func(a, b T) bool

// Equivalent calls f(a, b).
func (f EquivalenceFunc[T]) Equivalent(a, b T) bool {
	return f(a, b)
}

// Comparable is the Equivalence of Go equality.
type Comparable[T comparable] struct{}

// Equivalent reports a == b.
func (Comparable[T]) Equivalent(a, b T) bool {
	return a == b
}

// Pair is one aligned element: A indexes the old sequence, B the new one.
type Pair struct {
	A int `json:"a"`
	B int `json:"b"`
}

// Alignment is the result of Align. Pairs increase strictly in both A and B.
type Alignment struct {
	Pairs        []Pair
	OldUnmatched []int
	NewUnmatched []int
}

// Len returns the number of aligned pairs, i.e. the LCS length.
func (al Alignment) Len() int {
	return len(al.Pairs)
}

// Align computes the LCS alignment of a and b under eq.
// It allocates a fresh Matcher; hot loops should keep one.
func Align[T any, E Equivalence[T]](a, b []T, eq E) Alignment {
	return NewMatcher[T](eq).Align(a, b)
}

// Length returns the LCS length of a and b under eq.
func Length[T any, E Equivalence[T]](a, b []T, eq E) int {
	return NewMatcher[T](eq).Length(a, b)
}

// Matcher computes alignments while reusing its table buffers between calls.
// A Matcher is not safe for concurrent use, and Align must not be re-entered
// from inside eq; nested alignments need their own Matcher.
type Matcher[T any, E Equivalence[T]] struct {
	eq    E
	table []int32
	equal []bool
}

// NewMatcher creates a Matcher for the given equivalence.
func NewMatcher[T any, E Equivalence[T]](eq E) *Matcher[T, E] {
	return &Matcher[T, E]{eq: eq}
}

func (m *Matcher[T, E]) buffers(rows, cols int) ([]int32, []bool) {
	cells := (rows + 1) * (cols + 1)
	if cap(m.table) < cells {
		m.table = make([]int32, cells)
	}

	if cap(m.equal) < rows*cols {
		m.equal = make([]bool, rows*cols)
	}

	return m.table[:cells], m.equal[:rows*cols]
}

// commonPrefix returns the length of the equivalent prefix of a and b.
// Pairing a prefix element with its counterpart is always the earliest
// choice in b, so stripping it does not change the result.
func (m *Matcher[T, E]) commonPrefix(a, b []T) int {
	p := 0
	for p < len(a) && p < len(b) && m.eq.Equivalent(a[p], b[p]) {
		p++
	}

	return p
}

// fill computes the suffix table of a and b: table[i*(cols+1)+j] is the LCS
// length of a[i:] and b[j:]. equal caches eq(a[i], b[j]).
func (m *Matcher[T, E]) fill(a, b []T) ([]int32, []bool) {
	rows, cols := len(a), len(b)
	table, equal := m.buffers(rows, cols)
	stride := cols + 1

	for j := range stride {
		table[rows*stride+j] = 0
	}

	for i := rows - 1; i >= 0; i-- {
		table[i*stride+cols] = 0

		for j := cols - 1; j >= 0; j-- {
			eq := m.eq.Equivalent(a[i], b[j])
			equal[i*cols+j] = eq

			if eq {
				table[i*stride+j] = 1 + table[(i+1)*stride+j+1]
			} else {
				table[i*stride+j] = max(table[(i+1)*stride+j], table[i*stride+j+1])
			}
		}
	}

	return table, equal
}

// Length returns the LCS length of a and b.
func (m *Matcher[T, E]) Length(a, b []T) int {
	p := m.commonPrefix(a, b)
	if p == len(a) || p == len(b) {
		return p
	}

	table, _ := m.fill(a[p:], b[p:])

	return p + int(table[0])
}

// Align computes the LCS alignment of a and b.
func (m *Matcher[T, E]) Align(a, b []T) Alignment {
	p := m.commonPrefix(a, b)

	pairs := make([]Pair, 0, min(len(a), len(b)))
	for k := range p {
		pairs = append(pairs, Pair{A: k, B: k})
	}

	if p < len(a) && p < len(b) {
		pairs = m.reconstruct(a[p:], b[p:], p, pairs)
	}

	return Alignment{
		Pairs:        pairs,
		OldUnmatched: unmatched(len(a), pairs, func(pr Pair) int { return pr.A }),
		NewUnmatched: unmatched(len(b), pairs, func(pr Pair) int { return pr.B }),
	}
}

// reconstruct walks the suffix table. For each element of a, left to right, it
// takes the earliest element of b that keeps the alignment maximal, or skips
// the element when no such partner exists.
func (m *Matcher[T, E]) reconstruct(a, b []T, offset int, pairs []Pair) []Pair {
	table, equal := m.fill(a, b)
	rows, cols := len(a), len(b)
	stride := cols + 1

	i, j := 0, 0
	for i < rows && j < cols && table[i*stride+j] > 0 {
		want := table[i*stride+j]

		for k := j; k < cols; k++ {
			if equal[i*cols+k] && 1+table[(i+1)*stride+k+1] == want {
				pairs = append(pairs, Pair{A: offset + i, B: offset + k})
				j = k + 1

				break
			}
		}

		i++
	}

	return pairs
}

func unmatched(n int, pairs []Pair, side func(Pair) int) []int {
	out := make([]int, 0, n-len(pairs))
	next := 0

	for _, pr := range pairs {
		for ; next < side(pr); next++ {
			out = append(out, next)
		}

		next = side(pr) + 1
	}

	for ; next < n; next++ {
		out = append(out, next)
	}

	return out
}
