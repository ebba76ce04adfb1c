// Package syntax provides concrete syntax trees for source files.
//
// Trees are produced by a tree-sitter parse and immediately copied into
// an immutable arena: nodes are addressed by index, and each node's
// children occupy a contiguous index range. This keeps sibling and
// adjacency checks cheap and avoids holding live references into the
// C-side tree, which is closed as soon as the copy is done.
package syntax

import (
	"context"
	"fmt"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
)

// NodeID identifies a node within its Tree's arena.
type NodeID int32

// NoNode is the null node identifier.
const NoNode NodeID = -1

type node struct {
	typ        string
	start, end uint32
	named      bool
	field      string
	parent     NodeID
	firstChild int32
	childCount int32
}

// Tree is an immutable concrete syntax tree together with the source
// text it was parsed from. It is replaced wholesale on reparse.
type Tree struct {
	Path   string
	Source []byte
	nodes  []node
}

// Parse parses src with the given tree-sitter grammar and returns an
// arena-backed tree. A syntactically broken file still parses (error
// nodes appear in the tree); only parser-level failures return an error.
func Parse(ctx context.Context, lang *sitter.Language, path string, src []byte) (*Tree, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(lang)
	tsTree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	defer tsTree.Close()

	t := &Tree{Path: path, Source: src}
	t.copyFrom(tsTree.RootNode())
	return t, nil
}

// copyFrom walks the tree-sitter tree breadth-first so that every
// node's children land in a contiguous arena range.
func (t *Tree) copyFrom(root *sitter.Node) {
	type pending struct {
		ts *sitter.Node
		id NodeID
	}

	t.nodes = append(t.nodes, node{
		typ:        root.Type(),
		start:      root.StartByte(),
		end:        root.EndByte(),
		named:      root.IsNamed(),
		parent:     NoNode,
		firstChild: -1,
	})

	queue := []pending{{ts: root, id: 0}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		n := int(cur.ts.ChildCount())
		if n == 0 {
			continue
		}
		first := int32(len(t.nodes))
		t.nodes[cur.id].firstChild = first
		t.nodes[cur.id].childCount = int32(n)

		for i := 0; i < n; i++ {
			child := cur.ts.Child(i)
			id := NodeID(len(t.nodes))
			t.nodes = append(t.nodes, node{
				typ:        child.Type(),
				start:      child.StartByte(),
				end:        child.EndByte(),
				named:      child.IsNamed(),
				field:      cur.ts.FieldNameForChild(i),
				parent:     cur.id,
				firstChild: -1,
			})
			queue = append(queue, pending{ts: child, id: id})
		}
	}
}

// Root returns the root node.
func (t *Tree) Root() NodeID { return 0 }

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int { return len(t.nodes) }

// Type returns the node's grammar type tag.
func (t *Tree) Type(id NodeID) string { return t.nodes[id].typ }

// StartByte returns the start of the node's byte range.
func (t *Tree) StartByte(id NodeID) uint32 { return t.nodes[id].start }

// EndByte returns the exclusive end of the node's byte range.
func (t *Tree) EndByte(id NodeID) uint32 { return t.nodes[id].end }

// IsNamed reports whether the node is a named grammar node, as opposed
// to an anonymous token such as punctuation.
func (t *Tree) IsNamed(id NodeID) bool { return t.nodes[id].named }

// Field returns the node's field name under its parent, or "".
func (t *Tree) Field(id NodeID) string { return t.nodes[id].field }

// Parent returns the node's parent, or NoNode for the root.
func (t *Tree) Parent(id NodeID) NodeID { return t.nodes[id].parent }

// ChildCount returns the number of children, anonymous included.
func (t *Tree) ChildCount(id NodeID) int { return int(t.nodes[id].childCount) }

// Child returns the i-th child of the node.
func (t *Tree) Child(id NodeID, i int) NodeID {
	n := t.nodes[id]
	if i < 0 || int32(i) >= n.childCount {
		return NoNode
	}
	return NodeID(n.firstChild + int32(i))
}

// NamedChildren returns the node's named children in order.
func (t *Tree) NamedChildren(id NodeID) []NodeID {
	n := t.nodes[id]
	var out []NodeID
	for i := int32(0); i < n.childCount; i++ {
		c := NodeID(n.firstChild + i)
		if t.nodes[c].named {
			out = append(out, c)
		}
	}
	return out
}

// Text returns the source text covered by the node.
func (t *Tree) Text(id NodeID) string {
	n := t.nodes[id]
	return string(t.Source[n.start:n.end])
}

// Preorder returns all node IDs in depth-first, left-to-right order.
// The arena is laid out breadth-first, so this materializes the DFS
// order by walking child ranges.
func (t *Tree) Preorder() []NodeID {
	out := make([]NodeID, 0, len(t.nodes))
	var walk func(id NodeID)
	walk = func(id NodeID) {
		out = append(out, id)
		n := t.nodes[id]
		for i := int32(0); i < n.childCount; i++ {
			walk(NodeID(n.firstChild + i))
		}
	}
	if len(t.nodes) > 0 {
		walk(0)
	}
	return out
}

// LineIndex maps byte offsets to 1-based line numbers for a source
// buffer. Built once per file, queried per chunk.
type LineIndex struct {
	starts []int
}

// NewLineIndex builds a line index for src.
func NewLineIndex(src []byte) *LineIndex {
	starts := []int{0}
	for i, b := range src {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{starts: starts}
}

// Line returns the 1-based line number containing the byte offset.
func (li *LineIndex) Line(offset int) int {
	i := sort.Search(len(li.starts), func(i int) bool {
		return li.starts[i] > offset
	})
	return i
}
