package distance_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/codediff/pkg/distance"
	"github.com/Sumatoshi-tech/codediff/pkg/lcs"
	"github.com/Sumatoshi-tech/codediff/pkg/syntax"
	"github.com/Sumatoshi-tech/codediff/pkg/syntax/syntaxtest"
)

const delta = 1e-9

func metric(oldSrc, newSrc string) (*distance.Metric[distance.ExactText], *syntax.Tree, *syntax.Tree) {
	oldTree := syntaxtest.MustParse(oldSrc)
	newTree := syntaxtest.MustParse(newSrc)

	return distance.New(oldTree, newTree, distance.ExactText{}, 0), oldTree, newTree
}

func TestDistanceIdentical(t *testing.T) {
	t.Parallel()

	m, _, _ := metric("{ a; b = c + 1; }", "{a;b=c+1;}")

	assert.InDelta(t, 0, m.Distance(0, 0), delta)
}

func TestDistanceLabelsDiffer(t *testing.T) {
	t.Parallel()

	m, oldTree, newTree := metric("{ a; }", "{ x = 1; }")

	stmt := syntaxtest.Find(oldTree, `(Stmt "a" ";")`)
	assign := syntaxtest.Find(newTree, `(Assign "x" "=" "1" ";")`)

	assert.InDelta(t, 1, m.Distance(stmt, assign), delta)
}

func TestDistanceTokensAreBinary(t *testing.T) {
	t.Parallel()

	m, oldTree, newTree := metric("{ a; b; }", "{ a; bb; }")

	a := syntaxtest.Find(oldTree, `"a"`)
	b := syntaxtest.Find(oldTree, `"b"`)
	newA := syntaxtest.Find(newTree, `"a"`)
	newB := syntaxtest.Find(newTree, `"bb"`)

	assert.InDelta(t, 0, m.Distance(a, newA), delta)
	assert.InDelta(t, 1, m.Distance(b, newB), delta)
}

func TestDistanceWeightedChildren(t *testing.T) {
	t.Parallel()

	// 6 of 8 old tokens and all 6 new tokens align.
	m, _, _ := metric("{ a; b; c; }", "{ a; c; }")
	assert.InDelta(t, 1.0/7, m.Distance(0, 0), delta)
	assert.InDelta(t, 1.0/7, m.Tokens(0, 0), delta)

	expr := distance.New(syntaxtest.MustParseExpr("a + b"), syntaxtest.MustParseExpr("a + c"), distance.ExactText{}, 0)
	assert.InDelta(t, 1.0/3, expr.Distance(0, 0), delta)
}

func TestDistanceEpsilon(t *testing.T) {
	t.Parallel()

	oldTree := syntaxtest.MustParse("{ a + b; }")
	newTree := syntaxtest.MustParse("{ a + c; }")

	strict := distance.New(oldTree, newTree, distance.ExactText{}, 0)
	assert.InDelta(t, 2.0/3, strict.Distance(0, 0), delta)

	loose := distance.New(oldTree, newTree, distance.ExactText{}, 0.5)
	assert.InDelta(t, 1.0/6, loose.Distance(0, 0), delta)
	assert.InDelta(t, 0.5, loose.Epsilon(), delta)
}

func TestDistanceIgnoresTrivia(t *testing.T) {
	t.Parallel()

	m, _, _ := metric("{ // note\n a; }", "{ a; }")

	assert.InDelta(t, 0, m.Distance(0, 0), delta)
}

func TestDistanceEmptyNodes(t *testing.T) {
	t.Parallel()

	g := syntax.NewLabelTable("empty", "List", "Item")

	empty, err := syntax.NewBuilder(g).Open(0).Close().Build()
	require.NoError(t, err)

	full, err := syntax.NewBuilder(g).Open(0).Token(1, "x").Close().Build()
	require.NoError(t, err)

	assert.InDelta(t, 0, distance.New(empty, empty, distance.ExactText{}, 0).Distance(0, 0), delta)
	assert.InDelta(t, 1, distance.New(empty, full, distance.ExactText{}, 0).Distance(0, 0), delta)
}

func TestDistanceCustomEquivalence(t *testing.T) {
	t.Parallel()

	oldTree := syntaxtest.MustParse("{ Foo; }")
	newTree := syntaxtest.MustParse("{ foo; }")

	m := distance.New(oldTree, newTree, lcs.EquivalenceFunc[string](strings.EqualFold), 0)

	assert.InDelta(t, 0, m.Distance(0, 0), delta)
}

func TestDistanceSymmetricUnderReorder(t *testing.T) {
	t.Parallel()

	oldTree := syntaxtest.MustParse("{ x = a + b + c; y; }")
	newTree := syntaxtest.MustParse("{ y; x = a + b + c; }")

	forward := distance.New(oldTree, newTree, distance.ExactText{}, 0)
	backward := distance.New(newTree, oldTree, distance.ExactText{}, 0)

	assert.InDelta(t, 1.0/6, forward.Distance(0, 0), delta)
	assert.InDelta(t, 1.0/6, backward.Distance(0, 0), delta)
}

func TestDistanceBackwardAlignment(t *testing.T) {
	t.Parallel()

	shorter := syntaxtest.MustParse("{ a; c; }")
	longer := syntaxtest.MustParse("{ a; b; c; }")

	grow := distance.New(shorter, longer, distance.ExactText{}, 0)
	shrink := distance.New(longer, shorter, distance.ExactText{}, 0)

	// Six of the fourteen tokens sit in matched children on each side.
	assert.InDelta(t, 1.0/7, grow.Distance(0, 0), delta)
	assert.InDelta(t, 1.0/7, shrink.Distance(0, 0), delta)

	inner := syntaxtest.MustParse("{ { c; } }")
	outer := syntaxtest.MustParse("{ { a; b; c; } }")

	assert.NotPanics(t, func() {
		distance.New(inner, outer, distance.ExactText{}, 0).Distance(0, 0)
		distance.New(outer, inner, distance.ExactText{}, 0).Distance(0, 0)
	})
}

func TestDistanceProperties(t *testing.T) {
	t.Parallel()

	sources := []string{
		"{ a; b; c; }",
		"{ a; c; }",
		"{ b; a; }",
		"{ x = a + 1; if a < b { c; } }",
		"{ x = a + 2; if a < b { c; d; } }",
		"{ { a; } y = (b); }",
		"{ }",
	}

	trees := make([]*syntax.Tree, len(sources))
	for i, src := range sources {
		trees[i] = syntaxtest.MustParse(src)
	}

	for _, t1 := range trees {
		for _, t2 := range trees {
			forward := distance.New(t1, t2, distance.ExactText{}, 0)
			backward := distance.New(t2, t1, distance.ExactText{}, 0)
			self := distance.New(t1, t1, distance.ExactText{}, 0)

			for x := range t1.All() {
				require.InDelta(t, 0, self.Distance(x, x), delta)

				for y := range t2.All() {
					d := forward.Distance(x, y)

					require.GreaterOrEqual(t, d, 0.0)
					require.LessOrEqual(t, d, 1.0)
					require.InDelta(t, d, backward.Distance(y, x), delta, "%s vs %s", t1.Format(x), t2.Format(y))
				}
			}
		}
	}
}

func TestSequence(t *testing.T) {
	t.Parallel()

	eq := lcs.Comparable[string]{}

	assert.InDelta(t, 0, distance.Sequence([]string{}, []string{}, eq), delta)
	assert.InDelta(t, 1, distance.Sequence([]string{"a"}, []string{}, eq), delta)
	assert.InDelta(t, 0.2, distance.Sequence([]string{"a", "b", "c"}, []string{"a", "c"}, eq), delta)
	assert.InDelta(t, 0, distance.Sequence([]string{"a", "b"}, []string{"a", "b"}, distance.ExactText{}), delta)
	assert.InDelta(t, 1, distance.Sequence([]int{1, 2}, []int{3}, lcs.Comparable[int]{}), delta)
}
