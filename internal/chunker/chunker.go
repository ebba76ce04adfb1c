// Package chunker turns pattern matches over syntax trees into
// bounded, overlap-aware text chunks ready for embedding.
package chunker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"codesift/internal/query"
	"codesift/internal/syntax"
)

// Chunk is a contiguous span of one source file. Its ID is derived
// from (path, byte range), so re-indexing unchanged content yields
// identical IDs.
type Chunk struct {
	ID        string
	Path      string
	Language  string
	StartByte int
	EndByte   int
	StartLine int
	EndLine   int
	Symbol    string // enclosing declaration name, best-effort
	Kind      string // node type of the declaration, or "text"
	Seq       int    // zero-based position within the file
	Content   string
}

// Span is a declaration-like byte range selected by a @chunk capture.
type Span struct {
	Start  int
	End    int
	Symbol string
	Kind   string
}

// SpansFromMatches resolves matches into candidate chunk spans. The
// node bound to @chunk supplies the range and kind, @name the symbol.
func SpansFromMatches(t *syntax.Tree, matches []query.Match) []Span {
	var spans []Span
	for _, m := range matches {
		for _, n := range m.Nodes("chunk") {
			sp := Span{
				Start: int(t.StartByte(n)),
				End:   int(t.EndByte(n)),
				Kind:  t.Type(n),
			}
			if name := m.First("name"); name != syntax.NoNode {
				sp.Symbol = t.Text(name)
			}
			spans = append(spans, sp)
		}
	}
	return dedupSpans(spans)
}

// dedupSpans keeps only outermost spans, so nested declarations don't
// produce duplicate chunks. Syntax nodes nest or are disjoint, so
// after dropping contained spans the rest do not overlap.
func dedupSpans(spans []Span) []Span {
	if len(spans) <= 1 {
		return spans
	}
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		return spans[i].End-spans[i].Start > spans[j].End-spans[j].Start
	})
	out := spans[:0]
	lastEnd := -1
	for _, sp := range spans {
		if sp.Start >= lastEnd {
			out = append(out, sp)
			lastEnd = sp.End
		}
	}
	return out
}

// Extractor windows spans into chunks of at most MaxBytes, with
// Overlap bytes shared between consecutive windows of a split span.
type Extractor struct {
	MaxBytes int
	Overlap  int
}

// NewExtractor validates the window configuration: MaxBytes must be
// positive and 0 <= Overlap < MaxBytes.
func NewExtractor(maxBytes, overlap int) (*Extractor, error) {
	if maxBytes <= 0 {
		return nil, fmt.Errorf("chunk max size must be positive, got %d", maxBytes)
	}
	if overlap < 0 || overlap >= maxBytes {
		return nil, fmt.Errorf("chunk overlap must satisfy 0 <= overlap < max size, got overlap=%d max=%d", overlap, maxBytes)
	}
	return &Extractor{MaxBytes: maxBytes, Overlap: overlap}, nil
}

// Extract produces the file's chunks in ascending byte order. Every
// byte of src is covered: ranges between declaration spans fall back
// to plain fixed-window splitting.
func (e *Extractor) Extract(path, lang string, src []byte, spans []Span) []Chunk {
	lines := syntax.NewLineIndex(src)
	var chunks []Chunk

	emit := func(start, end int, symbol, kind string) {
		for _, w := range windows(start, end, e.MaxBytes, e.Overlap) {
			chunks = append(chunks, Chunk{
				ID:        chunkID(path, w[0], w[1]),
				Path:      path,
				Language:  lang,
				StartByte: w[0],
				EndByte:   w[1],
				StartLine: lines.Line(w[0]),
				EndLine:   lines.Line(w[1] - 1),
				Symbol:    symbol,
				Kind:      kind,
				Content:   string(src[w[0]:w[1]]),
			})
		}
	}

	cursor := 0
	for _, sp := range spans {
		if sp.End <= sp.Start || sp.End > len(src) {
			continue
		}
		if sp.Start > cursor {
			emit(cursor, sp.Start, "", "text")
		}
		emit(sp.Start, sp.End, sp.Symbol, sp.Kind)
		if sp.End > cursor {
			cursor = sp.End
		}
	}
	if cursor < len(src) {
		emit(cursor, len(src), "", "text")
	}

	for i := range chunks {
		chunks[i].Seq = i
	}
	return chunks
}

// windows splits [start,end) into ranges of at most max bytes, each
// subsequent window starting max-overlap bytes after the previous
// one. The last window is clipped to end and never extends past it.
func windows(start, end, max, overlap int) [][2]int {
	if end <= start {
		return nil
	}
	stride := max - overlap
	var out [][2]int
	for s := start; ; s += stride {
		if s+max >= end {
			out = append(out, [2]int{s, end})
			return out
		}
		out = append(out, [2]int{s, s + max})
	}
}

func chunkID(path string, start, end int) string {
	h := sha256.Sum256(fmt.Appendf(nil, "%s\x00%d\x00%d", path, start, end))
	return hex.EncodeToString(h[:8])
}

// Chunker ties the parse, match and extract stages together for one
// file. Files with no registered grammar are windowed as plain text.
type Chunker struct {
	registry  *Registry
	extractor *Extractor
}

// New creates a Chunker over the given registry and window settings.
func New(r *Registry, maxBytes, overlap int) (*Chunker, error) {
	ex, err := NewExtractor(maxBytes, overlap)
	if err != nil {
		return nil, err
	}
	return &Chunker{registry: r, extractor: ex}, nil
}

// Registry returns the chunker's language registry.
func (c *Chunker) Registry() *Registry { return c.registry }

// Chunk parses src, runs the language's patterns and extracts chunks.
func (c *Chunker) Chunk(ctx context.Context, path string, src []byte) ([]Chunk, error) {
	spec, lang := c.registry.Lookup(path)
	if spec == nil {
		return c.extractor.Extract(path, "", src, nil), nil
	}

	tree, err := syntax.Parse(ctx, spec.Language, path, src)
	if err != nil {
		return nil, err
	}
	matches := query.Run(tree, spec.patterns)
	spans := SpansFromMatches(tree, matches)
	return c.extractor.Extract(path, lang, src, spans), nil
}
