// Package query compiles and evaluates structural patterns against
// concrete syntax trees.
//
// The pattern language is the S-expression query surface used for
// tree-sitter grammars: node matchers `(type ...)`, wildcards `_`,
// field constraints `field: (type)`, captures `@name`, quantifiers
// `+ * ?`, ordered alternation `[ ... ]`, and sibling anchors `.`.
// Patterns are compiled once at startup; malformed sources fail then
// with a *CompileError, never at match time.
package query

import (
	"fmt"
	"strings"
	"unicode"
)

// Op discriminates pattern node kinds.
type Op int

const (
	// OpNode matches a named syntax node by type tag.
	OpNode Op = iota
	// OpAlt tries an ordered list of alternatives; the first that
	// matches at a position wins.
	OpAlt
	// OpWild matches any named syntax node.
	OpWild
)

// Pattern is one node of a compiled pattern tree. Immutable after
// Compile returns.
type Pattern struct {
	Op      Op
	Type    string // OpNode type tag; "_" behaves as a wildcard
	Field   string // required field name under the parent, or ""
	Capture string // capture name bound to matched node(s), or ""
	Quant   byte   // 0 (exactly one), '+', '*' or '?'

	// Anchored requires adjacency among named siblings: for the first
	// child pattern it means "first named child of the parent", for a
	// later one "immediately after the previous match".
	Anchored bool
	// AnchorLast requires the matched node to be the last named child
	// of its parent.
	AnchorLast bool

	Children []*Pattern // OpNode sub-patterns, matched against named children
	Alts     []*Pattern // OpAlt alternatives
}

// CompileError reports a malformed pattern source. It is fatal at
// configuration load time.
type CompileError struct {
	Offset int
	Msg    string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("pattern: %s (at byte %d)", e.Msg, e.Offset)
}

func errAt(off int, format string, args ...any) error {
	return &CompileError{Offset: off, Msg: fmt.Sprintf(format, args...)}
}

// Compile parses pattern source into one compiled pattern per
// top-level S-expression.
func Compile(src string) ([]*Pattern, error) {
	p := &parser{src: src}
	var pats []*Pattern
	for {
		p.skipSpace()
		if p.eof() {
			break
		}
		pat, err := p.parsePattern(true)
		if err != nil {
			return nil, err
		}
		pats = append(pats, pat)
	}
	if len(pats) == 0 {
		return nil, errAt(0, "empty pattern source")
	}
	return pats, nil
}

// MustCompile is Compile for statically known-good sources, such as
// the built-in language specs.
func MustCompile(src string) []*Pattern {
	pats, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return pats
}

type parser struct {
	src string
	pos int
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte { return p.src[p.pos] }

func (p *parser) skipSpace() {
	for !p.eof() {
		c := p.peek()
		switch {
		case c == ';': // comment to end of line
			for !p.eof() && p.peek() != '\n' {
				p.pos++
			}
		case unicode.IsSpace(rune(c)):
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) ident() string {
	start := p.pos
	for !p.eof() {
		c := p.peek()
		if c == '_' || c == '-' ||
			c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' {
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

// parsePattern parses one term with its optional quantifier and
// captures. topLevel rejects constructs that only make sense inside a
// parent's child list.
func (p *parser) parsePattern(topLevel bool) (*Pattern, error) {
	p.skipSpace()
	if p.eof() {
		return nil, errAt(p.pos, "unexpected end of pattern")
	}

	var pat *Pattern
	var err error
	switch c := p.peek(); {
	case c == '(':
		pat, err = p.parseNode()
	case c == '[':
		pat, err = p.parseAlt()
	case c == '_':
		p.pos++
		pat = &Pattern{Op: OpWild}
	case c == '"':
		return nil, errAt(p.pos, "anonymous node literals are not supported")
	case c == '#':
		return nil, errAt(p.pos, "predicates are not supported")
	default:
		return nil, errAt(p.pos, "unexpected character %q", c)
	}
	if err != nil {
		return nil, err
	}

	// Postfix quantifier, then captures.
	p.skipSpace()
	if !p.eof() {
		switch p.peek() {
		case '+', '*', '?':
			if topLevel && p.peek() == '*' {
				return nil, errAt(p.pos, "zero-or-more has no anchor position at the top level")
			}
			pat.Quant = p.peek()
			p.pos++
		}
	}
	for {
		p.skipSpace()
		if p.eof() || p.peek() != '@' {
			break
		}
		p.pos++
		name := p.ident()
		if name == "" {
			return nil, errAt(p.pos, "capture name missing after @")
		}
		if pat.Capture != "" {
			return nil, errAt(p.pos, "multiple captures on one pattern node")
		}
		pat.Capture = name
	}
	return pat, nil
}

func (p *parser) parseNode() (*Pattern, error) {
	open := p.pos
	p.pos++ // consume '('
	p.skipSpace()
	if p.eof() {
		return nil, errAt(open, "unterminated (")
	}

	pat := &Pattern{Op: OpNode}
	if p.peek() == '_' {
		p.pos++
		pat.Op = OpWild
	} else {
		typ := p.ident()
		if typ == "" {
			return nil, errAt(p.pos, "node type expected after (")
		}
		pat.Type = typ
	}

	anchorNext := false
	for {
		p.skipSpace()
		if p.eof() {
			return nil, errAt(open, "unterminated (")
		}
		if p.peek() == ')' {
			p.pos++
			break
		}
		if p.peek() == '.' {
			p.pos++
			anchorNext = true
			continue
		}

		// Optional field constraint: ident ':' pattern.
		field := ""
		if isIdentStart(p.peek()) {
			save := p.pos
			name := p.ident()
			p.skipSpace()
			if !p.eof() && p.peek() == ':' {
				p.pos++
				field = name
			} else {
				return nil, errAt(save, "bare identifier %q in child list (field name needs a colon)", name)
			}
		}

		child, err := p.parsePattern(false)
		if err != nil {
			return nil, err
		}
		child.Field = field
		if anchorNext {
			child.Anchored = true
			anchorNext = false
		}
		pat.Children = append(pat.Children, child)
	}

	// A trailing '.' anchors the final child to the last named child.
	if anchorNext {
		if len(pat.Children) == 0 {
			return nil, errAt(open, "anchor with no child pattern")
		}
		pat.Children[len(pat.Children)-1].AnchorLast = true
	}
	return pat, nil
}

func (p *parser) parseAlt() (*Pattern, error) {
	open := p.pos
	p.pos++ // consume '['
	pat := &Pattern{Op: OpAlt}
	for {
		p.skipSpace()
		if p.eof() {
			return nil, errAt(open, "unterminated [")
		}
		if p.peek() == ']' {
			p.pos++
			break
		}
		alt, err := p.parsePattern(false)
		if err != nil {
			return nil, err
		}
		pat.Alts = append(pat.Alts, alt)
	}
	if len(pat.Alts) == 0 {
		return nil, errAt(open, "empty alternation")
	}
	return pat, nil
}

func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// String renders the pattern back to source form, mainly for logs and
// test failure messages.
func (p *Pattern) String() string {
	var b strings.Builder
	p.render(&b)
	return b.String()
}

func (p *Pattern) render(b *strings.Builder) {
	if p.Field != "" {
		b.WriteString(p.Field)
		b.WriteString(": ")
	}
	switch p.Op {
	case OpWild:
		b.WriteString("(_)")
	case OpAlt:
		b.WriteByte('[')
		for i, a := range p.Alts {
			if i > 0 {
				b.WriteByte(' ')
			}
			a.render(b)
		}
		b.WriteByte(']')
	default:
		b.WriteByte('(')
		b.WriteString(p.Type)
		for _, c := range p.Children {
			b.WriteByte(' ')
			if c.Anchored {
				b.WriteString(". ")
			}
			c.render(b)
		}
		b.WriteByte(')')
	}
	if p.Quant != 0 {
		b.WriteByte(p.Quant)
	}
	if p.Capture != "" {
		b.WriteString(" @")
		b.WriteString(p.Capture)
	}
}
