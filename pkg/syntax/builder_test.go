package syntax_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/codediff/pkg/syntax"
)

var testGrammar = syntax.NewLabelTable("test", "List", "Item", "Space")

func TestBuilderBuildsLeafRoot(t *testing.T) {
	t.Parallel()

	tree, err := syntax.NewBuilder(testGrammar).Token(1, "x").Build()
	require.NoError(t, err)

	assert.Equal(t, 1, tree.Len())
	assert.Equal(t, syntax.Token, tree.Kind(0))
	assert.Equal(t, 1, tree.Weight(0))
	assert.Empty(t, tree.Children(0))
	assert.Equal(t, syntax.Span{Start: 0, Length: 1}, tree.Span(0))
}

func TestBuilderOffsets(t *testing.T) {
	t.Parallel()

	b := syntax.NewBuilder(testGrammar)
	b.Open(0).Token(1, "ab").Advance(1).Trivia(2, " ").Token(1, "c").Close()

	assert.Equal(t, uint32(5), b.Offset())

	tree, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, syntax.Span{Start: 0, Length: 5}, tree.Span(0))
	assert.Equal(t, syntax.Span{Start: 0, Length: 2}, tree.Span(1))
	assert.Equal(t, syntax.Span{Start: 3, Length: 1}, tree.Span(2))
	assert.Equal(t, syntax.Span{Start: 4, Length: 1}, tree.Span(3))
	assert.Equal(t, 2, tree.Weight(0))
	assert.Equal(t, `(List "ab" #" " "c")`, tree.Format(0))
}

func TestBuilderEmptyStructuralNode(t *testing.T) {
	t.Parallel()

	tree, err := syntax.NewBuilder(testGrammar).SetOffset(7).Open(0).Close().Build()
	require.NoError(t, err)

	assert.Equal(t, syntax.Span{Start: 7, Length: 0}, tree.Span(0))
	assert.Equal(t, 0, tree.Weight(0))
	assert.Equal(t, "(List)", tree.Format(0))
}

func TestBuilderErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		build func() (*syntax.Tree, error)
		want  error
	}{
		{
			name:  "nil grammar",
			build: func() (*syntax.Tree, error) { return syntax.NewBuilder(nil).Token(0, "x").Build() },
			want:  syntax.ErrNilGrammar,
		},
		{
			name:  "empty",
			build: func() (*syntax.Tree, error) { return syntax.NewBuilder(testGrammar).Build() },
			want:  syntax.ErrEmptyTree,
		},
		{
			name:  "close without open",
			build: func() (*syntax.Tree, error) { return syntax.NewBuilder(testGrammar).Close().Build() },
			want:  syntax.ErrUnbalanced,
		},
		{
			name:  "left open",
			build: func() (*syntax.Tree, error) { return syntax.NewBuilder(testGrammar).Open(0).Token(1, "x").Build() },
			want:  syntax.ErrUnbalanced,
		},
		{
			name:  "two roots",
			build: func() (*syntax.Tree, error) { return syntax.NewBuilder(testGrammar).Token(1, "x").Token(1, "y").Build() },
			want:  syntax.ErrMultipleRoots,
		},
		{
			name:  "label out of range",
			build: func() (*syntax.Tree, error) { return syntax.NewBuilder(testGrammar).Open(9).Close().Build() },
			want:  syntax.ErrLabelOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tree, err := tt.build()
			require.ErrorIs(t, err, tt.want)
			assert.Nil(t, tree)
		})
	}
}

func TestLabelTable(t *testing.T) {
	t.Parallel()

	table := syntax.NewLabelTable("dup", "A", "B", "A")

	assert.Equal(t, "dup", table.Name())
	assert.Equal(t, 3, table.LabelCount())
	assert.Equal(t, "B", table.LabelName(1))
	assert.Equal(t, "label(7)", table.LabelName(7))

	l, ok := table.Lookup("A")
	assert.True(t, ok)
	assert.Equal(t, syntax.Label(0), l)

	_, ok = table.Lookup("C")
	assert.False(t, ok)

	assert.Panics(t, func() { table.MustLookup("C") })
}

func TestKindString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "structural", syntax.Structural.String())
	assert.Equal(t, "token", syntax.Token.String())
	assert.Equal(t, "trivia", syntax.Trivia.String())
	assert.True(t, syntax.Trivia.IsLeaf())
	assert.False(t, syntax.Structural.IsLeaf())
}
