// Package syntaxtest provides a tiny block language for building syntax trees in tests.
//
// Grammar:
//
//	block := "{" stmt* "}"
//	stmt  := block | "if" expr block | ident "=" expr ";" | expr ";"
//	expr  := term (op term)*          op := "+" | "-" | "*" | "<" | ">"
//	term  := ident | number | "(" expr ")"
//
// Line comments (// ...) become trivia of the enclosing node.
package syntaxtest

import (
	"errors"
	"fmt"
	"unicode"

	"github.com/Sumatoshi-tech/codediff/pkg/safeconv"
	"github.com/Sumatoshi-tech/codediff/pkg/syntax"
)

// Grammar is the label table of the toy language.
//
//nolint:gochecknoglobals // Immutable grammar shared by all toy trees.
var Grammar = syntax.NewLabelTable("toy",
	"Block", "Stmt", "Assign", "If", "Expr", "Paren", "Ident", "Number", "Punct", "Keyword", "Comment",
)

// Labels of the toy grammar.
//
//nolint:gochecknoglobals // Derived from the immutable Grammar.
var (
	LabelBlock   = Grammar.MustLookup("Block")
	LabelStmt    = Grammar.MustLookup("Stmt")
	LabelAssign  = Grammar.MustLookup("Assign")
	LabelIf      = Grammar.MustLookup("If")
	LabelExpr    = Grammar.MustLookup("Expr")
	LabelParen   = Grammar.MustLookup("Paren")
	LabelIdent   = Grammar.MustLookup("Ident")
	LabelNumber  = Grammar.MustLookup("Number")
	LabelPunct   = Grammar.MustLookup("Punct")
	LabelKeyword = Grammar.MustLookup("Keyword")
	LabelComment = Grammar.MustLookup("Comment")
)

// ErrSyntax is returned for malformed toy sources.
var ErrSyntax = errors.New("syntaxtest: syntax error")

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokNumber
	tokPunct
	tokComment
	tokEOF
)

type lexeme struct {
	text  string
	kind  tokenKind
	start int
}

type parser struct {
	b    *syntax.Builder
	lex  []lexeme
	pos  int
	errs error
}

// Parse parses a block such as "{ a; b = c + 1; }".
func Parse(src string) (*syntax.Tree, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}

	p.block()

	return p.finish()
}

// ParseExpr parses a single expression such as "a + b". The root is an Expr
// node, or a leaf for a single term.
func ParseExpr(src string) (*syntax.Tree, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}

	p.expr()

	return p.finish()
}

// MustParse is Parse that panics on error.
func MustParse(src string) *syntax.Tree {
	tree, err := Parse(src)
	if err != nil {
		panic(err)
	}

	return tree
}

// MustParseExpr is ParseExpr that panics on error.
func MustParseExpr(src string) *syntax.Tree {
	tree, err := ParseExpr(src)
	if err != nil {
		panic(err)
	}

	return tree
}

// Find returns the first node in pre-order whose Format equals want, or NoNode.
func Find(tree *syntax.Tree, want string) syntax.NodeID {
	for id := range tree.All() {
		if tree.Format(id) == want {
			return id
		}
	}

	return syntax.NoNode
}

// FindAll returns every node in pre-order whose Format equals want.
func FindAll(tree *syntax.Tree, want string) []syntax.NodeID {
	var out []syntax.NodeID

	for id := range tree.All() {
		if tree.Format(id) == want {
			out = append(out, id)
		}
	}

	return out
}

func newParser(src string) (*parser, error) {
	lex, err := scan(src)
	if err != nil {
		return nil, err
	}

	p := &parser{b: syntax.NewBuilder(Grammar), lex: lex}
	p.skipComments()

	return p, nil
}

func (p *parser) finish() (*syntax.Tree, error) {
	p.skipComments()

	if p.errs != nil {
		return nil, p.errs
	}

	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("%w: unexpected %q at %d", ErrSyntax, p.peek().text, p.peek().start)
	}

	return p.b.Build()
}

func (p *parser) fail(want string) {
	if p.errs == nil {
		cur := p.peek()
		p.errs = fmt.Errorf("%w: want %s, got %q at %d", ErrSyntax, want, cur.text, cur.start)
	}
}

// peek returns the next non-comment lexeme.
func (p *parser) peek() lexeme {
	for i := p.pos; i < len(p.lex); i++ {
		if p.lex[i].kind != tokComment {
			return p.lex[i]
		}
	}

	return p.lex[len(p.lex)-1]
}

// skipComments drops comments outside the root node.
func (p *parser) skipComments() {
	for p.pos < len(p.lex) && p.lex[p.pos].kind == tokComment {
		p.pos++
	}
}

// comments emits pending comment lexemes as trivia of the current node.
func (p *parser) comments() {
	for p.pos < len(p.lex) && p.lex[p.pos].kind == tokComment {
		lx := p.lex[p.pos]
		p.b.SetOffset(safeconv.MustIntToUint32(lx.start)).Trivia(LabelComment, lx.text)
		p.pos++
	}
}

func (p *parser) emit(label syntax.Label) {
	p.comments()

	lx := p.lex[p.pos]
	p.b.SetOffset(safeconv.MustIntToUint32(lx.start)).Token(label, lx.text)
	p.pos++
}

func (p *parser) open(label syntax.Label) {
	p.comments()
	p.b.SetOffset(safeconv.MustIntToUint32(p.peek().start)).Open(label)
}

func (p *parser) expect(text string) {
	if p.errs != nil {
		return
	}

	if p.peek().text != text {
		p.fail(fmt.Sprintf("%q", text))

		return
	}

	p.emit(LabelPunct)
}

func (p *parser) block() {
	if p.errs != nil {
		return
	}

	if p.peek().text != "{" {
		p.fail(`"{"`)

		return
	}

	p.open(LabelBlock)
	p.expect("{")

	for p.errs == nil && p.peek().text != "}" && p.peek().kind != tokEOF {
		p.stmt()
	}

	p.expect("}")
	p.b.Close()
}

func (p *parser) stmt() {
	next := p.peek()

	switch {
	case next.text == "{":
		p.block()
	case next.text == "if":
		p.open(LabelIf)
		p.emit(LabelKeyword)
		p.expr()
		p.block()
		p.b.Close()
	case next.kind == tokIdent && p.peekAt(1).text == "=":
		p.open(LabelAssign)
		p.emit(LabelIdent)
		p.expect("=")
		p.expr()
		p.expect(";")
		p.b.Close()
	default:
		p.open(LabelStmt)
		p.expr()
		p.expect(";")
		p.b.Close()
	}
}

// peekAt returns the n-th upcoming non-comment lexeme.
func (p *parser) peekAt(n int) lexeme {
	seen := 0

	for i := p.pos; i < len(p.lex); i++ {
		if p.lex[i].kind == tokComment {
			continue
		}

		if seen == n {
			return p.lex[i]
		}

		seen++
	}

	return p.lex[len(p.lex)-1]
}

func isOperator(text string) bool {
	switch text {
	case "+", "-", "*", "<", ">":
		return true
	default:
		return false
	}
}

func (p *parser) expr() {
	if p.errs != nil {
		return
	}

	// Count the terms first so a single term is not wrapped in an Expr node.
	if !p.hasOperatorAhead() {
		p.term()

		return
	}

	p.open(LabelExpr)
	p.term()

	for p.errs == nil && isOperator(p.peek().text) {
		p.emit(LabelPunct)
		p.term()
	}

	p.b.Close()
}

// hasOperatorAhead reports whether the expression starting at the cursor has a
// top-level binary operator.
func (p *parser) hasOperatorAhead() bool {
	depth := 0

	for i := 0; ; i++ {
		lx := p.peekAt(i)

		switch {
		case lx.kind == tokEOF:
			return false
		case lx.text == "(":
			depth++
		case lx.text == ")":
			if depth == 0 {
				return false
			}

			depth--
		case depth == 0 && isOperator(lx.text):
			return true
		case depth == 0 && (lx.text == ";" || lx.text == "{" || lx.text == "}"):
			return false
		}
	}
}

func (p *parser) term() {
	next := p.peek()

	switch {
	case next.kind == tokIdent:
		p.emit(LabelIdent)
	case next.kind == tokNumber:
		p.emit(LabelNumber)
	case next.text == "(":
		p.open(LabelParen)
		p.expect("(")
		p.expr()
		p.expect(")")
		p.b.Close()
	default:
		p.fail("term")
	}
}

func scan(src string) ([]lexeme, error) {
	var out []lexeme

	runes := []rune(src)
	offsets := make([]int, len(runes)+1)

	byteOff := 0
	for i, r := range runes {
		offsets[i] = byteOff
		byteOff += len(string(r))
	}

	offsets[len(runes)] = byteOff

	for i := 0; i < len(runes); {
		r := runes[i]

		switch {
		case unicode.IsSpace(r):
			i++
		case r == '/' && i+1 < len(runes) && runes[i+1] == '/':
			j := i
			for j < len(runes) && runes[j] != '\n' {
				j++
			}

			out = append(out, lexeme{text: string(runes[i:j]), kind: tokComment, start: offsets[i]})
			i = j
		case unicode.IsLetter(r) || r == '_':
			j := i
			for j < len(runes) && (unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j]) || runes[j] == '_') {
				j++
			}

			out = append(out, lexeme{text: string(runes[i:j]), kind: tokIdent, start: offsets[i]})
			i = j
		case unicode.IsDigit(r):
			j := i
			for j < len(runes) && unicode.IsDigit(runes[j]) {
				j++
			}

			out = append(out, lexeme{text: string(runes[i:j]), kind: tokNumber, start: offsets[i]})
			i = j
		case r == '{' || r == '}' || r == '(' || r == ')' || r == ';' || r == '=' || isOperator(string(r)):
			out = append(out, lexeme{text: string(r), kind: tokPunct, start: offsets[i]})
			i++
		default:
			return nil, fmt.Errorf("%w: unexpected %q at %d", ErrSyntax, r, offsets[i])
		}
	}

	out = append(out, lexeme{kind: tokEOF, start: len(src)})

	return out, nil
}
