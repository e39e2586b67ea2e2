package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/codediff/pkg/syntax"
	"github.com/Sumatoshi-tech/codediff/pkg/syntax/treesitter"
)

func labelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "labels [LANGUAGE]",
		Short: "List supported languages, or the node labels of one grammar",
		Long: `Without arguments, list the languages codediff can parse. With a language,
print its label table: nodes only ever match nodes of the same label.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				writeLanguages(cmd.OutOrStdout())

				return nil
			}

			return writeLabels(cmd.OutOrStdout(), args[0])
		},
	}
}

func newListTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.DrawBorder = false

	return tbl
}

func writeLanguages(w io.Writer) {
	tbl := newListTable()
	tbl.AppendHeader(table.Row{"Language", "Labels"})

	names := treesitter.Languages()
	for _, name := range names {
		grammar, _ := treesitter.Grammar(name)
		tbl.AppendRow(table.Row{name, grammar.LabelCount()})
	}

	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d languages", len(names))})

	fmt.Fprintln(w, tbl.Render())
}

func writeLabels(w io.Writer, language string) error {
	grammar, ok := treesitter.Grammar(strings.ToLower(language))
	if !ok {
		return fmt.Errorf("%w: %s", treesitter.ErrUnsupportedLanguage, language)
	}

	tbl := newListTable()
	tbl.AppendHeader(table.Row{"ID", "Label"})

	for i := range grammar.LabelCount() {
		tbl.AppendRow(table.Row{i, grammar.LabelName(syntax.Label(i))})
	}

	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d labels", grammar.LabelCount())})

	fmt.Fprintln(w, tbl.Render())

	return nil
}
