package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sergi/go-diff/diffmatchpatch"
	"gopkg.in/yaml.v3"
	"znkr.io/diff/textdiff"

	"github.com/Sumatoshi-tech/codediff/pkg/syntax"
	"github.com/Sumatoshi-tech/codediff/pkg/textutil"
	"github.com/Sumatoshi-tech/codediff/pkg/treediff"
)

// Output formats of the diff command.
const (
	formatUnified = "unified"
	formatSummary = "summary"
	formatJSON    = "json"
	formatYAML    = "yaml"
)

const (
	snippetMaxRunes = 60
	yamlIndent      = 2
)

// ErrUnsupportedFormat is returned for an unknown --format value.
var ErrUnsupportedFormat = errors.New("unsupported format")

func parseFormat(name string) (string, error) {
	format := strings.ToLower(name)

	switch format {
	case formatUnified, formatSummary, formatJSON, formatYAML:
		return format, nil
	default:
		return "", fmt.Errorf("%w: %q (want unified, summary, json or yaml)", ErrUnsupportedFormat, name)
	}
}

// report is the format-independent result of one diff run.
type report struct {
	Old       string         `json:"old"                 yaml:"old"`
	New       string         `json:"new"                 yaml:"new"`
	Language  string         `json:"language"            yaml:"language"`
	TextDiff  string         `json:"text_diff,omitempty" yaml:"text_diff,omitempty"`
	Counts    map[string]int `json:"counts"              yaml:"counts"`
	Edits     []editRecord   `json:"edits"               yaml:"edits"`
	OldLines  int            `json:"old_lines"           yaml:"old_lines"`
	NewLines  int            `json:"new_lines"           yaml:"new_lines"`
	OldNodes  int            `json:"old_nodes"           yaml:"old_nodes"`
	NewNodes  int            `json:"new_nodes"           yaml:"new_nodes"`
	Matched   int            `json:"matched"             yaml:"matched"`
	Distance  float64        `json:"distance"            yaml:"distance"`
	Identical bool           `json:"identical"           yaml:"identical"`
}

// editRecord is one edit with both sides resolved to source positions.
type editRecord struct {
	Old   *nodeRecord `json:"old,omitempty" yaml:"old,omitempty"`
	New   *nodeRecord `json:"new,omitempty" yaml:"new,omitempty"`
	Kind  string      `json:"kind"          yaml:"kind"`
	Label string      `json:"label"         yaml:"label"`
	// Implied marks an insert or delete whose parent has the same edit.
	Implied bool `json:"implied,omitempty" yaml:"implied,omitempty"`

	kind treediff.EditKind
}

type nodeRecord struct {
	Text   string        `json:"text"   yaml:"text"`
	ID     syntax.NodeID `json:"id"     yaml:"id"`
	Line   int           `json:"line"   yaml:"line"`
	Column int           `json:"column" yaml:"column"`
	Start  uint32        `json:"start"  yaml:"start"`
	End    uint32        `json:"end"    yaml:"end"`

	tokens string
}

// side resolves nodes of one tree against its source text.
type side struct {
	tree  *syntax.Tree
	src   []byte
	lines lineIndex
}

func newSide(tree *syntax.Tree, src []byte) side {
	return side{tree: tree, src: src, lines: newLineIndex(src)}
}

func (s side) node(id syntax.NodeID) *nodeRecord {
	if !id.Valid() {
		return nil
	}

	span := s.tree.Span(id)
	line, col := s.lines.position(span.Start)

	return &nodeRecord{
		ID:     id,
		Line:   line,
		Column: col,
		Start:  span.Start,
		End:    span.End(),
		Text:   snippet(s.src, span),
		tokens: s.ownTokens(id),
	}
}

// ownTokens joins the text of id itself, for a leaf, or of its direct token
// children. Updates only ever concern these.
func (s side) ownTokens(id syntax.NodeID) string {
	if s.tree.Kind(id).IsLeaf() {
		return s.tree.Text(id)
	}

	var texts []string

	for _, c := range s.tree.Children(id) {
		if s.tree.Kind(c) == syntax.Token {
			texts = append(texts, s.tree.Text(c))
		}
	}

	return strings.Join(texts, " ")
}

func newReport(language string, oldSrc, newSrc source, script *treediff.EditScript, withText bool) *report {
	before := newSide(script.Old(), oldSrc.content)
	after := newSide(script.New(), newSrc.content)
	editMap := treediff.NewEditMap(script)

	rep := &report{
		Old:       oldSrc.name,
		New:       newSrc.name,
		Language:  language,
		Identical: script.Empty(),
		OldLines:  textutil.CountLines(oldSrc.content),
		NewLines:  textutil.CountLines(newSrc.content),
		OldNodes:  script.Old().Len(),
		NewNodes:  script.New().Len(),
		Matched:   script.Match().Len(),
		Distance:  script.Distance(script.Old().Root(), script.New().Root()),
		Counts:    make(map[string]int),
		Edits:     make([]editRecord, 0, script.Len()),
	}

	for kind, n := range script.Counts() {
		rep.Counts[kind.String()] = n
	}

	for _, e := range script.Edits() {
		rec := editRecord{
			kind:    e.Kind,
			Kind:    e.Kind.String(),
			Old:     before.node(e.OldNode),
			New:     after.node(e.NewNode),
			Implied: editMap.HasParentEdit(e),
		}

		if e.OldNode.Valid() {
			rec.Label = script.Old().LabelName(e.OldNode)
		} else {
			rec.Label = script.New().LabelName(e.NewNode)
		}

		rep.Edits = append(rep.Edits, rec)
	}

	if withText {
		rep.TextDiff = lineDiff(oldSrc, newSrc)
	}

	return rep
}

// lineDiff renders a conventional unified diff of the two sources.
func lineDiff(oldSrc, newSrc source) string {
	hunks := textdiff.Unified(string(oldSrc.content), string(newSrc.content), textdiff.IndentHeuristic())
	if hunks == "" {
		return ""
	}

	return "--- " + oldSrc.name + "\n+++ " + newSrc.name + "\n" + hunks
}

func render(w io.Writer, format string, rep *report, colored bool) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		err := enc.Encode(rep)
		if err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}

		return nil
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(yamlIndent)

		err := enc.Encode(rep)
		if err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}

		return enc.Close()
	case formatSummary:
		writeSummary(w, rep)
	default:
		newUnifiedWriter(w, colored).write(rep)
	}

	if rep.TextDiff != "" {
		_, err := fmt.Fprint(w, "\n"+rep.TextDiff)

		return err
	}

	return nil
}

func writeSummary(w io.Writer, rep *report) {
	fmt.Fprintf(w, "%s -> %s (%s): %s -> %s lines, %s -> %s nodes, %s matched, distance %.3f\n",
		rep.Old, rep.New, rep.Language,
		humanize.Comma(int64(rep.OldLines)), humanize.Comma(int64(rep.NewLines)),
		humanize.Comma(int64(rep.OldNodes)), humanize.Comma(int64(rep.NewNodes)),
		humanize.Comma(int64(rep.Matched)), rep.Distance)

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.DrawBorder = false
	tbl.AppendHeader(table.Row{"Edit", "Count"})

	total := 0

	for _, kind := range treediff.EditKinds {
		n := rep.Counts[kind.String()]
		total += n

		tbl.AppendRow(table.Row{kind.String(), humanize.Comma(int64(n))})
	}

	tbl.AppendFooter(table.Row{"Total", humanize.Comma(int64(total))})

	fmt.Fprintln(w, tbl.Render())
}

// unifiedWriter prints one line per edit, diff style. Inserts and deletes
// implied by an inserted or deleted parent are folded into the parent's line.
type unifiedWriter struct {
	w       io.Writer
	colors  map[treediff.EditKind]*color.Color
	colored bool
}

//nolint:gochecknoglobals // Read-only lookup table.
var editMarkers = map[treediff.EditKind]string{
	treediff.Insert:  "+",
	treediff.Delete:  "-",
	treediff.Update:  "~",
	treediff.Move:    ">",
	treediff.Reorder: "^",
}

func newUnifiedWriter(w io.Writer, colored bool) *unifiedWriter {
	return &unifiedWriter{
		w:       w,
		colored: colored,
		colors: map[treediff.EditKind]*color.Color{
			treediff.Insert:  color.New(color.FgGreen),
			treediff.Delete:  color.New(color.FgRed),
			treediff.Update:  color.New(color.FgYellow),
			treediff.Move:    color.New(color.FgCyan),
			treediff.Reorder: color.New(color.FgMagenta),
		},
	}
}

func (u *unifiedWriter) paint(c *color.Color, s string) string {
	if !u.colored || c == nil {
		return s
	}

	return c.Sprint(s)
}

func (u *unifiedWriter) write(rep *report) {
	bold := color.New(color.Bold)

	fmt.Fprintln(u.w, u.paint(bold, "--- "+rep.Old))
	fmt.Fprintln(u.w, u.paint(bold, "+++ "+rep.New))

	if rep.Identical {
		fmt.Fprintln(u.w, u.paint(color.New(color.FgCyan), "@@ no structural changes @@"))

		return
	}

	fmt.Fprintln(u.w, u.paint(color.New(color.FgCyan), "@@ "+countsLine(rep)+" @@"))

	for i := range rep.Edits {
		rec := &rep.Edits[i]
		if rec.Implied {
			continue
		}

		fmt.Fprintln(u.w, u.line(rec))
	}
}

func (u *unifiedWriter) line(rec *editRecord) string {
	c := u.colors[rec.kind]
	head := u.paint(c, editMarkers[rec.kind]+" "+rec.Kind+" "+displayLabel(rec.Label))

	switch rec.kind {
	case treediff.Insert:
		return fmt.Sprintf("%s %s  %s", head, position(rec.New), rec.New.Text)
	case treediff.Delete:
		return fmt.Sprintf("%s %s  %s", head, position(rec.Old), rec.Old.Text)
	case treediff.Update:
		return fmt.Sprintf("%s %s  %s", head, position(rec.Old), u.charDiff(rec.Old.tokens, rec.New.tokens))
	case treediff.Move, treediff.Reorder:
		return fmt.Sprintf("%s %s -> %s  %s", head, position(rec.Old), position(rec.New), rec.Old.Text)
	default:
		return head
	}
}

// charDiff renders the character-level change between two token sequences
// as [-removed-]{+added+}.
func (u *unifiedWriter) charDiff(before, after string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(before, after, false))

	var sb strings.Builder

	for _, d := range diffs {
		text := sanitizeForTerminal(d.Text)

		switch d.Type {
		case diffmatchpatch.DiffDelete:
			sb.WriteString(u.paint(u.colors[treediff.Delete], "[-"+text+"-]"))
		case diffmatchpatch.DiffInsert:
			sb.WriteString(u.paint(u.colors[treediff.Insert], "{+"+text+"+}"))
		case diffmatchpatch.DiffEqual:
			sb.WriteString(text)
		}
	}

	return sb.String()
}

func countsLine(rep *report) string {
	parts := make([]string, 0, len(treediff.EditKinds))
	total := 0

	for _, kind := range treediff.EditKinds {
		n := rep.Counts[kind.String()]
		if n == 0 {
			continue
		}

		total += n

		parts = append(parts, fmt.Sprintf("%d %s", n, kind))
	}

	return fmt.Sprintf("%s: %s", humanize.Plural(total, "edit", "edits"), strings.Join(parts, ", "))
}

// displayLabel quotes labels of anonymous tokens such as "\n" or ":=".
func displayLabel(label string) string {
	for _, r := range label {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '<' && r != '>' {
			return strconv.Quote(label)
		}
	}

	return label
}

func position(n *nodeRecord) string {
	if n == nil {
		return "-"
	}

	return fmt.Sprintf("%d:%d", n.Line, n.Column)
}

// snippet returns the first line of span's text, trimmed and shortened.
func snippet(src []byte, span syntax.Span) string {
	start, end := int(span.Start), int(span.End())
	if start > len(src) {
		return ""
	}

	end = min(end, len(src))
	text := string(src[start:end])

	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = strings.TrimSpace(text[:i]) + " ..."
	}

	text = sanitizeForTerminal(strings.TrimSpace(text))

	if utf8.RuneCountInString(text) > snippetMaxRunes {
		text = string([]rune(text)[:snippetMaxRunes]) + "..."
	}

	return text
}

// lineIndex holds the byte offset of every line start.
type lineIndex []int

func newLineIndex(src []byte) lineIndex {
	starts := lineIndex{0}

	for i, c := range src {
		if c == '\n' {
			starts = append(starts, i+1)
		}
	}

	return starts
}

// position converts a byte offset to a 1-based line and byte column.
func (li lineIndex) position(offset uint32) (line, col int) {
	off := int(offset)

	i, found := slices.BinarySearch(li, off)
	if !found {
		i--
	}

	return i + 1, off - li[i] + 1
}
