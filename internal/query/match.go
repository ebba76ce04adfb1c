package query

import (
	"codesift/internal/syntax"
)

// Match is one occurrence of a pattern in a tree: the byte range the
// whole match covers plus every capture's bound nodes. A capture binds
// zero, one or many nodes depending on quantifiers.
type Match struct {
	Pattern  int // index into the compiled pattern list
	Start    uint32
	End      uint32
	Captures map[string][]syntax.NodeID
}

// Nodes returns the nodes bound to a capture name, or nil.
func (m *Match) Nodes(name string) []syntax.NodeID {
	return m.Captures[name]
}

// First returns the first node bound to a capture, or syntax.NoNode.
func (m *Match) First(name string) syntax.NodeID {
	if ns := m.Captures[name]; len(ns) > 0 {
		return ns[0]
	}
	return syntax.NoNode
}

// binding is one capture assignment produced during a match attempt.
// Bindings are collected locally and only committed on success, so a
// failed alternative or scan position never leaks captures.
type binding struct {
	name string
	node syntax.NodeID
}

// Run evaluates every compiled pattern against the tree and returns
// matches ordered by the tree's depth-first, left-to-right node order
// (pattern index breaks ties at the same root). A pattern that matches
// nowhere simply contributes no matches.
func Run(t *syntax.Tree, pats []*Pattern) []Match {
	var out []Match

	// Nodes consumed by a quantified top-level match of a pattern do
	// not re-root another match of that same pattern: a run of three
	// comments against (comment)+ is one match with three nodes.
	consumed := make([]map[syntax.NodeID]bool, len(pats))

	for _, id := range t.Preorder() {
		if !t.IsNamed(id) {
			continue
		}
		for pi, p := range pats {
			if consumed[pi][id] {
				continue
			}
			m, roots := matchRoot(t, id, p)
			if m == nil {
				continue
			}
			m.Pattern = pi
			out = append(out, *m)
			if len(roots) > 1 {
				if consumed[pi] == nil {
					consumed[pi] = make(map[syntax.NodeID]bool)
				}
				for _, r := range roots {
					consumed[pi][r] = true
				}
			}
		}
	}
	return out
}

// matchRoot attempts a pattern at a single root node. For quantified
// top-level patterns it greedily extends over consecutive named
// siblings of the root. Returns the match and the consumed roots.
func matchRoot(t *syntax.Tree, id syntax.NodeID, p *Pattern) (*Match, []syntax.NodeID) {
	ok, binds := matchNode(t, id, p)
	if !ok {
		return nil, nil
	}
	roots := []syntax.NodeID{id}

	if p.Quant == '+' || p.Quant == '*' {
		sibs := namedSiblingsAfter(t, id)
		for _, s := range sibs {
			sok, sbinds := matchNode(t, s, p)
			if !sok {
				break
			}
			roots = append(roots, s)
			binds = append(binds, sbinds...)
		}
	}

	m := &Match{
		Start:    t.StartByte(roots[0]),
		End:      t.EndByte(roots[len(roots)-1]),
		Captures: make(map[string][]syntax.NodeID),
	}
	for _, b := range binds {
		m.Captures[b.name] = append(m.Captures[b.name], b.node)
	}
	return m, roots
}

// namedSiblingsAfter returns the named siblings following id, in order.
func namedSiblingsAfter(t *syntax.Tree, id syntax.NodeID) []syntax.NodeID {
	parent := t.Parent(id)
	if parent == syntax.NoNode {
		return nil
	}
	sibs := t.NamedChildren(parent)
	for i, s := range sibs {
		if s == id {
			return sibs[i+1:]
		}
	}
	return nil
}

// matchNode reports whether pattern p matches the node, with the
// capture bindings it would commit. Alternation is ordered and
// backtracking-free: the first alternative that matches wins.
func matchNode(t *syntax.Tree, id syntax.NodeID, p *Pattern) (bool, []binding) {
	switch p.Op {
	case OpWild:
		return finish(t, id, p, nil)
	case OpAlt:
		for _, alt := range p.Alts {
			if ok, binds := matchNode(t, id, alt); ok {
				return finish(t, id, p, binds)
			}
		}
		return false, nil
	default:
		if p.Type != "_" && t.Type(id) != p.Type {
			return false, nil
		}
		ok, binds := matchChildren(t, id, p.Children)
		if !ok {
			return false, nil
		}
		return finish(t, id, p, binds)
	}
}

func finish(t *syntax.Tree, id syntax.NodeID, p *Pattern, binds []binding) (bool, []binding) {
	if p.Capture != "" {
		binds = append(binds, binding{name: p.Capture, node: id})
	}
	return true, binds
}

// matchChildren matches an ordered child pattern sequence against the
// node's named children. Without anchors, unmatched siblings may sit
// between consecutive pattern matches; anchors pin positions per the
// usual first/last/adjacent semantics. Quantifiers consume consecutive
// siblings greedily.
func matchChildren(t *syntax.Tree, parent syntax.NodeID, pats []*Pattern) (bool, []binding) {
	if len(pats) == 0 {
		return true, nil
	}
	sibs := t.NamedChildren(parent)
	var binds []binding
	pos := 0 // next sibling position available for matching

	tryAt := func(i int, cp *Pattern) (bool, []binding) {
		if i >= len(sibs) {
			return false, nil
		}
		if cp.Field != "" && t.Field(sibs[i]) != cp.Field {
			return false, nil
		}
		return matchNode(t, sibs[i], cp)
	}

	for pi, cp := range pats {
		// Candidate start positions: anchored patterns get exactly
		// one (first named child, or adjacent to the previous match).
		scanFrom, scanTo := pos, len(sibs)-1
		if cp.Anchored {
			if pi == 0 {
				scanFrom, scanTo = 0, 0
			} else {
				scanFrom, scanTo = pos, pos
			}
		}

		switch cp.Quant {
		case '?':
			// At most one, at the current position only.
			if ok, b := tryAt(scanFrom, cp); ok {
				binds = append(binds, b...)
				pos = scanFrom + 1
				if cp.AnchorLast && scanFrom != len(sibs)-1 {
					return false, nil
				}
			}
		case '+', '*':
			start := -1
			var startBinds []binding
			for i := scanFrom; i <= scanTo; i++ {
				if ok, b := tryAt(i, cp); ok {
					start, startBinds = i, b
					break
				}
			}
			if start == -1 {
				if cp.Quant == '+' {
					return false, nil
				}
				continue // zero-or-more: empty match, position unchanged
			}
			binds = append(binds, startBinds...)
			end := start
			for i := start + 1; i < len(sibs); i++ {
				ok, b := tryAt(i, cp)
				if !ok {
					break
				}
				binds = append(binds, b...)
				end = i
			}
			pos = end + 1
			if cp.AnchorLast && end != len(sibs)-1 {
				return false, nil
			}
		default:
			matched := -1
			for i := scanFrom; i <= scanTo; i++ {
				if ok, b := tryAt(i, cp); ok {
					binds = append(binds, b...)
					matched = i
					break
				}
			}
			if matched == -1 {
				return false, nil
			}
			pos = matched + 1
			if cp.AnchorLast && matched != len(sibs)-1 {
				return false, nil
			}
		}
	}
	return true, binds
}
