package query

import (
	"context"
	"errors"
	"testing"

	"github.com/smacker/go-tree-sitter/golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codesift/internal/syntax"
)

func parseGo(t *testing.T, src string) *syntax.Tree {
	t.Helper()
	tree, err := syntax.Parse(context.Background(), golang.GetLanguage(), "main.go", []byte(src))
	require.NoError(t, err)
	return tree
}

func TestCompileErrors(t *testing.T) {
	cases := map[string]string{
		"empty":             "",
		"string literal":    `(call "foo")`,
		"predicate":         `(call (#eq? @a @b))`,
		"bare identifier":   `(call foo)`,
		"star at top level": `(comment)*`,
		"empty alternation": `[]`,
		"unterminated node": `(comment`,
		"unterminated alt":  `[(comment)`,
		"double capture":    `(comment) @a @b`,
		"missing name":      `(comment) @`,
		"lone anchor":       `(call .)`,
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Compile(src)
			require.Error(t, err)
			var ce *CompileError
			assert.True(t, errors.As(err, &ce), "want *CompileError, got %T", err)
		})
	}
}

func TestCompileMultiplePatterns(t *testing.T) {
	pats, err := Compile(`
		; declarations
		(function_declaration) @chunk
		(type_declaration) @chunk
	`)
	require.NoError(t, err)
	assert.Len(t, pats, 2)
	assert.Equal(t, "(function_declaration) @chunk", pats[0].String())
}

func TestMustCompilePanics(t *testing.T) {
	assert.Panics(t, func() { MustCompile("(") })
}

func TestMatchFunctionWithFieldCapture(t *testing.T) {
	tree := parseGo(t, "package main\n\nfunc Add(a, b int) int { return a + b }\n")
	pats := MustCompile(`(function_declaration name: (identifier) @name) @chunk`)

	matches := Run(tree, pats)
	require.Len(t, matches, 1)

	m := matches[0]
	assert.Equal(t, 0, m.Pattern)
	chunk := m.First("chunk")
	require.NotEqual(t, syntax.NoNode, chunk)
	assert.Equal(t, "function_declaration", tree.Type(chunk))
	name := m.First("name")
	require.NotEqual(t, syntax.NoNode, name)
	assert.Equal(t, "Add", tree.Text(name))
	assert.Equal(t, tree.StartByte(chunk), m.Start)
	assert.Equal(t, tree.EndByte(chunk), m.End)
}

func TestMatchFieldMismatch(t *testing.T) {
	tree := parseGo(t, "package main\n\nfunc Add() {}\n")
	pats := MustCompile(`(function_declaration body: (identifier))`)
	assert.Empty(t, Run(tree, pats))
}

func TestQuantifierMergesConsecutiveSiblings(t *testing.T) {
	tree := parseGo(t, "// a\n// b\n// c\npackage main\n")
	pats := MustCompile(`(comment)+ @c`)

	matches := Run(tree, pats)
	require.Len(t, matches, 1, "a run of comments is one match, not one per comment")
	assert.Len(t, matches[0].Nodes("c"), 3)
	assert.Equal(t, uint32(0), matches[0].Start)

	last := matches[0].Nodes("c")[2]
	assert.Equal(t, tree.EndByte(last), matches[0].End)
}

func TestQuantifierRunsSplitByOtherNodes(t *testing.T) {
	tree := parseGo(t, "// a\npackage main\n\n// b\n// c\nfunc F() {}\n")
	pats := MustCompile(`(comment)+ @c`)

	matches := Run(tree, pats)
	require.Len(t, matches, 2)
	assert.Len(t, matches[0].Nodes("c"), 1)
	assert.Len(t, matches[1].Nodes("c"), 2)
}

func TestChildQuantifier(t *testing.T) {
	tree := parseGo(t, "package main\n\nfunc F(a int, b string) {}\n")
	pats := MustCompile(`(function_declaration parameters: (parameter_list (parameter_declaration)+ @p))`)

	matches := Run(tree, pats)
	require.Len(t, matches, 1)
	assert.Len(t, matches[0].Nodes("p"), 2)
}

func TestAnchorFirstChild(t *testing.T) {
	withComment := parseGo(t, "// leading\npackage main\n")
	pats := MustCompile(`(source_file . (comment) @first)`)

	matches := Run(withComment, pats)
	require.Len(t, matches, 1)
	assert.Equal(t, "// leading", withComment.Text(matches[0].First("first")))

	// Comment not in first position: the anchor must reject it even
	// though an unanchored scan would find it.
	trailing := parseGo(t, "package main\n// trailing\n")
	assert.Empty(t, Run(trailing, pats))
	assert.Len(t, Run(trailing, MustCompile(`(source_file (comment) @c)`)), 1)
}

func TestAnchorLastChild(t *testing.T) {
	tree := parseGo(t, "package main\n\nfunc F() {}\n")
	pats := MustCompile(`(source_file (function_declaration) @fn .)`)
	require.Len(t, Run(tree, pats), 1)

	notLast := parseGo(t, "package main\n\nfunc F() {}\n\nvar x = 1\n")
	assert.Empty(t, Run(notLast, pats))
}

func TestAlternationOrderedFirstWins(t *testing.T) {
	tree := parseGo(t, "package main\n\nfunc F() {}\n\ntype T struct{}\n")
	pats := MustCompile(`[(function_declaration) (type_declaration)] @decl`)

	matches := Run(tree, pats)
	require.Len(t, matches, 2)
	assert.Equal(t, "function_declaration", tree.Type(matches[0].First("decl")))
	assert.Equal(t, "type_declaration", tree.Type(matches[1].First("decl")))
}

func TestWildcardChild(t *testing.T) {
	tree := parseGo(t, "package main\n\nfunc F() {}\n")
	pats := MustCompile(`(function_declaration name: (_) @n)`)

	matches := Run(tree, pats)
	require.Len(t, matches, 1)
	assert.Equal(t, "F", tree.Text(matches[0].First("n")))
}

func TestOptionalMatchesCurrentPositionOnly(t *testing.T) {
	tree := parseGo(t, "package main\n\nfunc F() int { return 0 }\n")

	// Unquantified children scan forward over unmatched siblings, so
	// the result type is found even with the parameter list between.
	found := Run(tree, MustCompile(`(function_declaration result: (type_identifier) @ret)`))
	require.Len(t, found, 1)

	// An optional child is tried at the current position only; the
	// parameter list sits there, so @ret stays unbound.
	matches := Run(tree, MustCompile(`(function_declaration name: (identifier) @name result: (type_identifier)? @ret)`))
	require.Len(t, matches, 1)
	assert.Empty(t, matches[0].Nodes("ret"))
	assert.Equal(t, syntax.NoNode, matches[0].First("ret"))
}

func TestFailedAlternativeLeaksNoCaptures(t *testing.T) {
	tree := parseGo(t, "package main\n\ntype T struct{}\n")
	pats := MustCompile(`[(function_declaration name: (identifier) @fn) (type_declaration)] @decl`)

	matches := Run(tree, pats)
	require.Len(t, matches, 1)
	assert.Empty(t, matches[0].Nodes("fn"))
}

func TestNestedTypeCapture(t *testing.T) {
	tree := parseGo(t, "package main\n\ntype Point struct{ X, Y int }\n")
	pats := MustCompile(`(type_declaration (type_spec name: (type_identifier) @name)) @chunk`)

	matches := Run(tree, pats)
	require.Len(t, matches, 1)
	assert.Equal(t, "Point", tree.Text(matches[0].First("name")))
	assert.Equal(t, "type_declaration", tree.Type(matches[0].First("chunk")))
}
