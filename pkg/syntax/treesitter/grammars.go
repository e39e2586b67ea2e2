package treesitter

import (
	"slices"
	"unsafe"

	golang "github.com/alexaandru/go-sitter-forest/go"
	"github.com/alexaandru/go-sitter-forest/json"

	"github.com/Sumatoshi-tech/codediff/pkg/syntax"
)

// Fallback labels for node types missing from a grammar's table, e.g. after
// a grammar upgrade adds new node kinds.
const (
	LabelOtherNamed = "<named>"
	LabelOtherToken = "<token>"
	labelError      = "ERROR"
	typeComment     = "comment"
)

// language binds a tree-sitter grammar to its label table.
type language struct {
	name       string
	extensions []string
	get        func() unsafe.Pointer
	labels     *syntax.LabelTable
}

// goNodeTypes lists the node types of tree-sitter-go: named kinds first,
// then keywords and punctuation.
//
//nolint:gochecknoglobals // Immutable grammar description.
var goNodeTypes = []string{
	"source_file", "package_clause", "package_identifier", "import_declaration", "import_spec",
	"import_spec_list", "dot", "blank_identifier", "const_declaration", "const_spec", "var_declaration",
	"var_spec", "var_spec_list", "function_declaration", "method_declaration", "type_declaration",
	"type_spec", "type_alias", "type_parameter_list", "type_parameter_declaration", "type_constraint",
	"parameter_list", "parameter_declaration", "variadic_parameter_declaration", "field_declaration_list",
	"field_declaration", "method_elem", "method_spec", "method_spec_list", "type_elem", "interface_type",
	"struct_type", "pointer_type", "array_type", "implicit_length_array_type", "slice_type", "map_type",
	"channel_type", "function_type", "generic_type", "qualified_type", "negated_type", "parenthesized_type",
	"type_arguments", "type_identifier", "field_identifier", "identifier", "label_name", "block",
	"statement_list", "expression_statement", "send_statement", "inc_statement", "dec_statement",
	"assignment_statement", "short_var_declaration", "labeled_statement", "empty_statement",
	"fallthrough_statement", "break_statement", "continue_statement", "goto_statement", "return_statement",
	"go_statement", "defer_statement", "if_statement", "for_statement", "for_clause", "range_clause",
	"expression_switch_statement", "type_switch_statement", "expression_case", "type_case", "default_case",
	"select_statement", "communication_case", "receive_statement", "expression_list",
	"parenthesized_expression", "call_expression", "variadic_argument", "argument_list",
	"selector_expression", "index_expression", "slice_expression", "type_assertion_expression",
	"type_conversion_expression", "type_instantiation_expression", "composite_literal", "literal_value",
	"literal_element", "keyed_element", "func_literal", "unary_expression", "binary_expression",
	"interpreted_string_literal", "interpreted_string_literal_content", "raw_string_literal",
	"raw_string_literal_content", "escape_sequence", "int_literal", "float_literal", "imaginary_literal",
	"rune_literal", "nil", "true", "false", "iota", typeComment,

	"package", "import", "const", "var", "func", "type", "struct", "interface", "map", "chan", "go",
	"defer", "return", "if", "else", "for", "range", "switch", "case", "default", "select", "break",
	"continue", "goto", "fallthrough",

	"+", "-", "*", "/", "%", "&", "|", "^", "<<", ">>", "&^", "+=", "-=", "*=", "/=", "%=", "&=", "|=",
	"^=", "<<=", ">>=", "&^=", "&&", "||", "<-", "++", "--", "==", "<", ">", "=", "!", "~", "!=", "<=",
	">=", ":=", "...", "(", ")", "[", "]", "{", "}", ",", ";", ".", ":", "\"", "`", "'", "\n",
}

// jsonNodeTypes lists the node types of tree-sitter-json.
//
//nolint:gochecknoglobals // Immutable grammar description.
var jsonNodeTypes = []string{
	"document", "object", "pair", "array", "string", "string_content", "escape_sequence", "number",
	"true", "false", "null", typeComment,
	"{", "}", "[", "]", ",", ":", "\"",
}

//nolint:gochecknoglobals // Immutable registry of supported grammars.
var languages = map[string]*language{
	"go":   newLanguage("go", []string{".go"}, golang.GetLanguage, goNodeTypes),
	"json": newLanguage("json", []string{".json"}, json.GetLanguage, jsonNodeTypes),
}

func newLanguage(name string, exts []string, get func() unsafe.Pointer, types []string) *language {
	labels := slices.Concat(types, []string{labelError, LabelOtherNamed, LabelOtherToken})

	return &language{
		name:       name,
		extensions: exts,
		get:        get,
		labels:     syntax.NewLabelTable(name, labels...),
	}
}

// Languages returns the names of the supported languages, sorted.
func Languages() []string {
	names := make([]string, 0, len(languages))
	for name := range languages {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// Grammar returns the label table of a supported language.
func Grammar(name string) (*syntax.LabelTable, bool) {
	lang, ok := languages[name]
	if !ok {
		return nil, false
	}

	return lang.labels, true
}

// labelFor maps a tree-sitter node type to its label, falling back to the
// catch-all labels for unknown types.
func (l *language) labelFor(nodeType string, named bool) syntax.Label {
	if label, ok := l.labels.Lookup(nodeType); ok {
		return label
	}

	if named {
		return l.labels.MustLookup(LabelOtherNamed)
	}

	return l.labels.MustLookup(LabelOtherToken)
}
