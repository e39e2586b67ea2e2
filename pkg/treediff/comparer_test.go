package treediff_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/codediff/pkg/lcs"
	"github.com/Sumatoshi-tech/codediff/pkg/syntax"
	"github.com/Sumatoshi-tech/codediff/pkg/syntax/syntaxtest"
	"github.com/Sumatoshi-tech/codediff/pkg/treediff"
)

func TestCompareIdentity(t *testing.T) {
	t.Parallel()

	src := "{ x = a + 1; if a < b { c; } // done\n }"
	script := compareSources(t, src, src)

	assert.True(t, script.Empty())
	assert.True(t, script.Match().IsIdentity())
	assert.Equal(t, script.Old().Len(), script.Match().Len())
	assert.InDelta(t, 0, script.Distance(0, 0), 1e-9)
}

func TestCompareIgnoresLayout(t *testing.T) {
	t.Parallel()

	script := compareSources(t, "{ x = a + 1; }", "{\n\tx = a+1;\n}")

	assert.True(t, script.Empty())
	assert.True(t, script.Match().IsIdentity())
}

func TestCompareDeleteMiddleStatement(t *testing.T) {
	t.Parallel()

	script := compareSources(t, "{ a; b; c; }", "{ a; c; }")
	oldTree, newTree := script.Old(), script.New()

	want := []string{
		`delete (Stmt "b" ";")`,
		`delete "b"`,
		`delete ";"`,
	}
	if diff := cmp.Diff(want, render(script)); diff != "" {
		t.Errorf("edits mismatch (-want +got):\n%s", diff)
	}

	b := syntaxtest.Find(oldTree, `(Stmt "b" ";")`)
	for _, e := range script.Filter(treediff.Delete) {
		assert.True(t, e.OldNode == b || oldTree.IsAncestor(b, e.OldNode))
	}

	assert.Empty(t, script.Filter(treediff.Insert))

	oldA, newA := syntaxtest.Find(oldTree, `(Stmt "a" ";")`), syntaxtest.Find(newTree, `(Stmt "a" ";")`)
	oldC, newC := syntaxtest.Find(oldTree, `(Stmt "c" ";")`), syntaxtest.Find(newTree, `(Stmt "c" ";")`)

	got, ok := script.Match().MatchOf(oldA)
	require.True(t, ok)
	assert.Equal(t, newA, got)

	got, ok = script.Match().MatchOf(oldC)
	require.True(t, ok)
	assert.Equal(t, newC, got)

	assert.InDelta(t, 0, script.Distance(oldA, newA), 1e-9)
	assert.InDelta(t, 0, script.Distance(oldC, newC), 1e-9)

	_, ok = script.Match().MatchOf(b)
	assert.False(t, ok)
}

func TestCompareSwapIsOmittedByDefault(t *testing.T) {
	t.Parallel()

	script := compareSources(t, "{ a; b; }", "{ b; a; }")
	oldTree, newTree := script.Old(), script.New()

	assert.True(t, script.Empty())

	for _, stmt := range []string{`(Stmt "a" ";")`, `(Stmt "b" ";")`} {
		got, ok := script.Match().MatchOf(syntaxtest.Find(oldTree, stmt))
		require.True(t, ok)
		assert.Equal(t, syntaxtest.Find(newTree, stmt), got)
	}
}

func TestCompareSwapReportedAsReorder(t *testing.T) {
	t.Parallel()

	script := compareSources(t, "{ a; b; }", "{ b; a; }", treediff.WithReorderPolicy(treediff.ReorderReport))

	want := []string{`reorder (Stmt "b" ";") -> (Stmt "b" ";")`}
	if diff := cmp.Diff(want, render(script)); diff != "" {
		t.Errorf("edits mismatch (-want +got):\n%s", diff)
	}

	e := script.Edits()[0]
	assert.Equal(t, syntax.NodeID(0), e.OldParent)
	assert.Equal(t, syntax.NodeID(0), e.NewParent)
}

func TestCompareInsertIntoEmptyBlock(t *testing.T) {
	t.Parallel()

	script := compareSources(t, "{ }", "{ x; }")

	want := []string{
		`insert (Stmt "x" ";")`,
		`insert "x"`,
		`insert ";"`,
	}
	if diff := cmp.Diff(want, render(script)); diff != "" {
		t.Errorf("edits mismatch (-want +got):\n%s", diff)
	}

	first := script.Edits()[0]
	assert.Equal(t, syntax.NoNode, first.OldNode)
	assert.Equal(t, syntax.NodeID(0), first.NewParent)
	assert.Equal(t, syntax.NodeID(0), first.OldParent)
	assert.Equal(t, map[treediff.EditKind]int{treediff.Insert: 3}, script.Counts())
}

func TestCompareInsertIntoNestedBlock(t *testing.T) {
	t.Parallel()

	script := compareSources(t, "{ { a; c; } }", "{ { a; b; c; } }")

	want := []string{
		`insert (Stmt "b" ";")`,
		`insert "b"`,
		`insert ";"`,
	}
	if diff := cmp.Diff(want, render(script)); diff != "" {
		t.Errorf("edits mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, map[treediff.EditKind]int{treediff.Insert: 3}, script.Counts())
}

func TestCompareRemainderPrefersNearestChildPosition(t *testing.T) {
	t.Parallel()

	// The unaligned assignment sits after three comments, so among all
	// children it is next to the trailing candidate rather than the leading one.
	script := compareSources(t,
		"{ // x\n // y\n // z\n p; q; a = 1; r; s; }",
		"{ a = 2; p; q; r; s; a = 3; }",
	)
	oldTree, newTree := script.Old(), script.New()

	got, ok := script.Match().MatchOf(syntaxtest.Find(oldTree, `(Assign "a" "=" "1" ";")`))
	require.True(t, ok)
	assert.Equal(t, syntaxtest.Find(newTree, `(Assign "a" "=" "3" ";")`), got)
}

func TestCompareTokenAlignmentAloneDoesNotMatch(t *testing.T) {
	t.Parallel()

	script := compareSources(t, "{ a; }", "{ x = a + 1; }")

	_, ok := script.Match().MatchOf(syntaxtest.Find(script.Old(), `"a"`))
	assert.False(t, ok)
	assert.Len(t, script.Filter(treediff.Delete), 3)
}

func TestCompareUpdate(t *testing.T) {
	t.Parallel()

	script := compareSources(t, "{ x = y; }", "{ z = y; }")

	want := []string{
		`update (Assign "x" "=" "y" ";") -> (Assign "z" "=" "y" ";")`,
		`insert "z"`,
		`delete "x"`,
	}
	if diff := cmp.Diff(want, render(script)); diff != "" {
		t.Errorf("edits mismatch (-want +got):\n%s", diff)
	}
}

func TestCompareCrossParentMove(t *testing.T) {
	t.Parallel()

	script := compareSources(t, "{ { a = b + c; } d; }", "{ d; { } a = b + c; }")

	want := []string{
		`delete (Block "{" (Assign "a" "=" (Expr "b" "+" "c") ";") "}")`,
		`delete "{"`,
		`move (Assign "a" "=" (Expr "b" "+" "c") ";") -> (Assign "a" "=" (Expr "b" "+" "c") ";")`,
		`delete "}"`,
		`insert (Block "{" "}")`,
		`insert "{"`,
		`insert "}"`,
	}
	if diff := cmp.Diff(want, render(script)); diff != "" {
		t.Errorf("edits mismatch (-want +got):\n%s", diff)
	}

	moves := script.Filter(treediff.Move)
	require.Len(t, moves, 1)
	assert.Equal(t, syntax.NodeID(0), moves[0].NewParent)
	assert.Equal(t, syntaxtest.Find(script.Old(), `(Block "{" (Assign "a" "=" (Expr "b" "+" "c") ";") "}")`), moves[0].OldParent)
}

func TestCompareTrivia(t *testing.T) {
	t.Parallel()

	t.Run("sibling comment replaced", func(t *testing.T) {
		t.Parallel()

		script := compareSources(t, "{ // one\n a; }", "{ // two\n a; }")
		assert.Equal(t, []string{`insert #"// two"`, `delete #"// one"`}, render(script))
	})

	t.Run("comment inside unchanged statement", func(t *testing.T) {
		t.Parallel()

		script := compareSources(t, "{ a + // x\n b; }", "{ a + // y\n b; }")
		assert.Equal(t, []string{`update #"// x" -> #"// y"`}, render(script))
	})
}

func TestCompareCustomEquivalence(t *testing.T) {
	t.Parallel()

	c := treediff.NewWithEquivalence(lcs.EquivalenceFunc[string](strings.EqualFold))

	script, err := c.Compare(context.Background(), syntaxtest.MustParse("{ Foo; }"), syntaxtest.MustParse("{ foo; }"))
	require.NoError(t, err)

	assert.Equal(t, []string{`update "Foo" -> "foo"`}, render(script))
}

func TestCompareKnownMatches(t *testing.T) {
	t.Parallel()

	oldTree := syntaxtest.MustParse("{ a; a; }")
	newTree := syntaxtest.MustParse("{ a; a; }")

	stmts := syntaxtest.FindAll(oldTree, `(Stmt "a" ";")`)
	require.Len(t, stmts, 2)

	seeded, err := treediff.New(treediff.WithKnownMatches(treediff.Pair{Old: stmts[1], New: stmts[0]})).
		Compare(context.Background(), oldTree, newTree)
	require.NoError(t, err)

	got, _ := seeded.Match().MatchOf(stmts[0])
	assert.Equal(t, stmts[1], got)

	got, _ = seeded.Match().MatchOf(stmts[1])
	assert.Equal(t, stmts[0], got)

	assert.True(t, seeded.Empty())
	assert.False(t, seeded.Match().IsIdentity())

	plain, err := treediff.New().Compare(context.Background(), oldTree, newTree)
	require.NoError(t, err)
	assert.True(t, plain.Match().IsIdentity())
}

func TestCompareInvalidKnownMatches(t *testing.T) {
	t.Parallel()

	oldTree := syntaxtest.MustParse("{ a; x = 1; }")
	newTree := syntaxtest.MustParse("{ a; x = 1; }")

	stmt := syntaxtest.Find(oldTree, `(Stmt "a" ";")`)
	assign := syntaxtest.Find(newTree, `(Assign "x" "=" "1" ";")`)

	tests := map[string]treediff.Pair{
		"label mismatch":   {Old: stmt, New: assign},
		"root to non-root": {Old: 0, New: stmt},
		"out of range":     {Old: 99, New: stmt},
	}

	for name, pair := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			script, err := treediff.Compare(context.Background(), oldTree, newTree, treediff.WithKnownMatches(pair))
			require.ErrorIs(t, err, treediff.ErrInput)
			assert.Nil(t, script)
		})
	}

	_, err := treediff.Compare(context.Background(), oldTree, newTree,
		treediff.WithKnownMatches(treediff.Pair{Old: stmt, New: stmt}, treediff.Pair{Old: stmt, New: stmt}))
	require.ErrorIs(t, err, treediff.ErrInput)
}

func TestCompareRootMismatch(t *testing.T) {
	t.Parallel()

	block := syntaxtest.MustParse("{ a; }")
	expr := syntaxtest.MustParseExpr("a + b")

	script, err := treediff.Compare(context.Background(), block, expr)
	require.ErrorIs(t, err, treediff.ErrInput)
	assert.Nil(t, script)

	script, err = treediff.Compare(context.Background(), block, expr,
		treediff.WithRootMismatchPolicy(treediff.RootMismatchReplace))
	require.NoError(t, err)

	assert.Equal(t, []string{
		`delete (Block "{" (Stmt "a" ";") "}")`,
		`insert (Expr "a" "+" "b")`,
	}, render(script))
	assert.Equal(t, 0, script.Match().Len())
}

func TestCompareInputErrors(t *testing.T) {
	t.Parallel()

	tree := syntaxtest.MustParse("{ a; }")

	other := syntax.NewLabelTable("other", "Block", "Punct")
	foreign, err := syntax.NewBuilder(other).Open(0).Token(1, "{").Token(1, "}").Close().Build()
	require.NoError(t, err)

	_, err = treediff.Compare(context.Background(), tree, nil)
	require.ErrorIs(t, err, treediff.ErrInput)

	_, err = treediff.Compare(context.Background(), nil, tree)
	require.ErrorIs(t, err, treediff.ErrInput)

	_, err = treediff.Compare(context.Background(), tree, foreign)
	require.ErrorIs(t, err, treediff.ErrInput)
	assert.Contains(t, err.Error(), `"other"`)
}

func TestCompareCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	script, err := treediff.Compare(ctx, syntaxtest.MustParse("{ a; b; }"), syntaxtest.MustParse("{ b; }"))
	require.ErrorIs(t, err, treediff.ErrCancelled)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, treediff.ErrInput))
	assert.Nil(t, script)
}

var propertySources = []string{
	"{ }",
	"{ a; b; c; }",
	"{ a; c; }",
	"{ b; a; }",
	"{ x = a + 1; if a < b { c; } }",
	"{ if a < b { c; x = a + 1; } d; }",
	"{ { a = b + c; } d; }",
	"{ d; { } a = b + c; }",
	"{ // note\n a; b = (c + d) * e; }",
	"{ b = (c + d) * e; a; a; }",
}

func TestCompareProperties(t *testing.T) {
	t.Parallel()

	for _, oldSrc := range propertySources {
		for _, newSrc := range propertySources {
			script := compareSources(t, oldSrc, newSrc)
			oldTree, newTree, match := script.Old(), script.New(), script.Match()

			moved := make(map[syntax.NodeID]bool)
			deleted := make(map[syntax.NodeID]int)
			inserted := make(map[syntax.NodeID]int)

			for _, e := range script.Edits() {
				switch e.Kind {
				case treediff.Move:
					moved[e.OldNode] = true
				case treediff.Delete:
					deleted[e.OldNode]++
				case treediff.Insert:
					inserted[e.NewNode]++
				case treediff.Update, treediff.Reorder:
				}
			}

			// Completeness: every node is matched or edited away, exactly once.
			for o := range oldTree.All() {
				_, matched := match.MatchOf(o)
				assert.Equal(t, !matched, deleted[o] == 1, "%q -> %q: old %d", oldSrc, newSrc, o)
				assert.LessOrEqual(t, deleted[o], 1)
			}

			for n := range newTree.All() {
				_, matched := match.InverseOf(n)
				assert.Equal(t, !matched, inserted[n] == 1, "%q -> %q: new %d", oldSrc, newSrc, n)
				assert.LessOrEqual(t, inserted[n], 1)
			}

			// Containment: pairs that are not moves keep matching parents.
			for o, n := range match.Pairs() {
				assert.Equal(t, oldTree.Label(o), newTree.Label(n))

				if moved[o] || o == oldTree.Root() {
					continue
				}

				parent, ok := match.MatchOf(oldTree.Parent(o))
				assert.True(t, ok)
				assert.Equal(t, newTree.Parent(n), parent, "%q -> %q: old %d", oldSrc, newSrc, o)
			}

			// Determinism.
			again := compareSources(t, oldSrc, newSrc)
			if diff := cmp.Diff(script.Edits(), again.Edits()); diff != "" {
				t.Errorf("%q -> %q not deterministic (-first +second):\n%s", oldSrc, newSrc, diff)
			}

			if oldSrc == newSrc {
				assert.True(t, script.Empty())
				assert.True(t, match.IsIdentity())
			}
		}
	}
}

func TestComparerIsReusable(t *testing.T) {
	t.Parallel()

	c := treediff.New(treediff.WithThreshold(0.5), treediff.WithEpsilon(0))
	assert.InDelta(t, 0.5, c.Threshold(), 1e-9)

	done := make(chan []string, 4)

	for range 4 {
		go func() {
			script, err := c.Compare(context.Background(), syntaxtest.MustParse("{ a; b; c; }"), syntaxtest.MustParse("{ a; c; }"))
			if err != nil {
				done <- nil

				return
			}

			done <- render(script)
		}()
	}

	first := <-done
	require.NotNil(t, first)

	for range 3 {
		assert.Equal(t, first, <-done)
	}
}

func BenchmarkCompare(b *testing.B) {
	var oldSrc, newSrc strings.Builder

	oldSrc.WriteString("{ ")
	newSrc.WriteString("{ ")

	for i := range 200 {
		stmt := "x = a + b * c; if a < b { y = (c + d) * e; } "
		oldSrc.WriteString(stmt)

		if i%17 != 0 {
			newSrc.WriteString(stmt)
		} else {
			newSrc.WriteString("z = a - b; ")
		}
	}

	oldSrc.WriteString("}")
	newSrc.WriteString("}")

	oldTree := syntaxtest.MustParse(oldSrc.String())
	newTree := syntaxtest.MustParse(newSrc.String())
	c := treediff.New()

	b.ReportAllocs()

	for b.Loop() {
		if _, err := c.Compare(context.Background(), oldTree, newTree); err != nil {
			b.Fatal(err)
		}
	}
}
