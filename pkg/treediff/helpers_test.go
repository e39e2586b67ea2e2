package treediff_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/codediff/pkg/syntax/syntaxtest"
	"github.com/Sumatoshi-tech/codediff/pkg/treediff"
)

func compareSources(t *testing.T, oldSrc, newSrc string, opts ...treediff.Option) *treediff.EditScript {
	t.Helper()

	script, err := treediff.Compare(context.Background(), syntaxtest.MustParse(oldSrc), syntaxtest.MustParse(newSrc), opts...)
	require.NoError(t, err)

	return script
}

// render describes each edit by the S-expressions of the nodes it touches.
func render(script *treediff.EditScript) []string {
	out := make([]string, 0, script.Len())

	for _, e := range script.Edits() {
		switch e.Kind {
		case treediff.Insert:
			out = append(out, "insert "+script.New().Format(e.NewNode))
		case treediff.Delete:
			out = append(out, "delete "+script.Old().Format(e.OldNode))
		case treediff.Update, treediff.Move, treediff.Reorder:
			out = append(out, e.Kind.String()+" "+script.Old().Format(e.OldNode)+" -> "+script.New().Format(e.NewNode))
		}
	}

	return out
}
