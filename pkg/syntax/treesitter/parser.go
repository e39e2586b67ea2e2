// Package treesitter builds syntax trees from source code with tree-sitter.
//
// Every tree-sitter node becomes one syntax node labeled by its node type.
// Nodes with children are structural, comments are trivia and all other
// leaves are tokens carrying their source text.
package treesitter

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
	"github.com/src-d/enry/v2"

	"github.com/Sumatoshi-tech/codediff/pkg/safeconv"
	"github.com/Sumatoshi-tech/codediff/pkg/syntax"
)

// Sentinel errors.
var (
	ErrUnsupportedLanguage = errors.New("treesitter: unsupported language")
	ErrNoRootNode          = errors.New("treesitter: parse produced no root node")
	errPoolType            = errors.New("treesitter: unexpected parser pool type")
)

// Parser turns source text of one language into syntax trees. It is safe for
// concurrent use; tree-sitter parsers are pooled internally.
type Parser struct {
	lang *language
	pool sync.Pool
}

//nolint:gochecknoglobals // Parsers are immutable once built and cached per language.
var parserCache sync.Map

// NewParser returns the parser for a language name such as "go" or "json".
func NewParser(name string) (*Parser, error) {
	name = strings.ToLower(name)

	if cached, ok := parserCache.Load(name); ok {
		if p, castOK := cached.(*Parser); castOK {
			return p, nil
		}
	}

	lang, ok := languages[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, name)
	}

	tsLang := sitter.NewLanguage(lang.get())

	p := &Parser{lang: lang}
	p.pool.New = func() any {
		tsParser := sitter.NewParser()
		tsParser.SetLanguage(tsLang)

		return tsParser
	}

	actual, _ := parserCache.LoadOrStore(name, p)

	cachedParser, castOK := actual.(*Parser)
	if !castOK {
		return p, nil
	}

	return cachedParser, nil
}

// Language returns the language name.
func (p *Parser) Language() string {
	return p.lang.name
}

// Grammar returns the label table shared by every tree this parser builds.
func (p *Parser) Grammar() *syntax.LabelTable {
	return p.lang.labels
}

// Parse parses src. Syntax errors do not fail the parse; tree-sitter
// recovers and the erroneous region becomes an ERROR node.
func (p *Parser) Parse(ctx context.Context, src []byte) (*syntax.Tree, error) {
	tsParser, ok := p.pool.Get().(*sitter.Parser)
	if !ok {
		return nil, errPoolType
	}

	defer p.pool.Put(tsParser)

	tsTree, err := tsParser.ParseString(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("treesitter: parse %s: %w", p.lang.name, err)
	}
	defer tsTree.Close()

	root := tsTree.RootNode()
	if root.IsNull() {
		return nil, ErrNoRootNode
	}

	b := syntax.NewBuilder(p.lang.labels)
	p.convert(b, root, src)

	tree, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("treesitter: build %s tree: %w", p.lang.name, err)
	}

	return tree, nil
}

func (p *Parser) convert(b *syntax.Builder, n sitter.Node, src []byte) {
	start := safeconv.MustUintToInt(n.StartByte())
	end := min(safeconv.MustUintToInt(n.EndByte()), len(src))
	start = min(start, end)

	nodeType := n.Type()
	label := p.lang.labelFor(nodeType, n.IsNamed())

	b.SetOffset(safeconv.MustIntToUint32(start))

	if n.ChildCount() == 0 {
		text := string(src[start:end])

		if nodeType == typeComment {
			b.Trivia(label, text)
		} else {
			b.Token(label, text)
		}

		return
	}

	b.Open(label)

	for i := range n.ChildCount() {
		p.convert(b, n.Child(i), src)
	}

	b.SetOffset(safeconv.MustIntToUint32(end)).Close()
}

// Detect picks a supported language for a file from its name and content.
func Detect(filename string, content []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	for _, name := range Languages() {
		for _, e := range languages[name].extensions {
			if e == ext {
				return name, nil
			}
		}
	}

	detected := strings.ToLower(enry.GetLanguage(filepath.Base(filename), content))
	if _, ok := languages[detected]; ok {
		return detected, nil
	}

	return "", fmt.Errorf("%w: cannot detect language of %s", ErrUnsupportedLanguage, filename)
}

// ParseFile detects the language of filename and parses content.
func ParseFile(ctx context.Context, filename string, content []byte) (*syntax.Tree, error) {
	name, err := Detect(filename, content)
	if err != nil {
		return nil, err
	}

	p, err := NewParser(name)
	if err != nil {
		return nil, err
	}

	return p.Parse(ctx, content)
}
