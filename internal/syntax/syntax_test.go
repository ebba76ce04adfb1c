package syntax

import (
	"context"
	"testing"

	"github.com/smacker/go-tree-sitter/golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goSrc = `package main

func Add(a, b int) int { return a + b }
`

func parseGo(t *testing.T, src string) *Tree {
	t.Helper()
	tree, err := Parse(context.Background(), golang.GetLanguage(), "main.go", []byte(src))
	require.NoError(t, err)
	return tree
}

func TestParseBasics(t *testing.T) {
	tree := parseGo(t, goSrc)

	root := tree.Root()
	assert.Equal(t, "source_file", tree.Type(root))
	assert.True(t, tree.IsNamed(root))
	assert.Equal(t, NoNode, tree.Parent(root))
	assert.Equal(t, uint32(0), tree.StartByte(root))
	assert.Equal(t, uint32(len(goSrc)), tree.EndByte(root))

	named := tree.NamedChildren(root)
	require.Len(t, named, 2)
	assert.Equal(t, "package_clause", tree.Type(named[0]))
	assert.Equal(t, "function_declaration", tree.Type(named[1]))
}

func TestFieldsAndText(t *testing.T) {
	tree := parseGo(t, goSrc)

	var name NodeID = NoNode
	for _, id := range tree.Preorder() {
		if tree.Type(id) == "identifier" && tree.Field(id) == "name" {
			name = id
			break
		}
	}
	require.NotEqual(t, NoNode, name)
	assert.Equal(t, "Add", tree.Text(name))
	assert.Equal(t, "function_declaration", tree.Type(tree.Parent(name)))
}

func TestPreorderCoversAllNodes(t *testing.T) {
	tree := parseGo(t, goSrc)

	order := tree.Preorder()
	assert.Len(t, order, tree.Len())
	assert.Equal(t, tree.Root(), order[0])

	seen := make(map[NodeID]bool, len(order))
	for _, id := range order {
		assert.False(t, seen[id], "node %d visited twice", id)
		seen[id] = true
	}
}

func TestChildAccess(t *testing.T) {
	tree := parseGo(t, goSrc)
	root := tree.Root()

	n := tree.ChildCount(root)
	require.Greater(t, n, 0)
	assert.Equal(t, NoNode, tree.Child(root, -1))
	assert.Equal(t, NoNode, tree.Child(root, n))
	for i := 0; i < n; i++ {
		c := tree.Child(root, i)
		require.NotEqual(t, NoNode, c)
		assert.Equal(t, root, tree.Parent(c))
	}
}

func TestParseBrokenSourceStillYieldsTree(t *testing.T) {
	tree := parseGo(t, "package main\n\nfunc {{{\n")
	assert.Greater(t, tree.Len(), 1)
}

func TestLineIndex(t *testing.T) {
	li := NewLineIndex([]byte("ab\ncd\n\nef"))

	assert.Equal(t, 1, li.Line(0))
	assert.Equal(t, 1, li.Line(2)) // the newline itself
	assert.Equal(t, 2, li.Line(3))
	assert.Equal(t, 3, li.Line(6))
	assert.Equal(t, 4, li.Line(7))
	assert.Equal(t, 4, li.Line(8))
}

func TestLineIndexEmpty(t *testing.T) {
	li := NewLineIndex(nil)
	assert.Equal(t, 1, li.Line(0))
}
