package chunker

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindows(t *testing.T) {
	assert.Equal(t, [][2]int{{0, 1000}, {800, 1800}, {1600, 2400}},
		windows(0, 2400, 1000, 200))

	// Fits in one window.
	assert.Equal(t, [][2]int{{0, 500}}, windows(0, 500, 1000, 200))
	assert.Equal(t, [][2]int{{0, 1000}}, windows(0, 1000, 1000, 200))

	// Last window clips to the end rather than extending past it.
	ws := windows(0, 1100, 1000, 200)
	require.Equal(t, [][2]int{{0, 1000}, {800, 1100}}, ws)

	// No overlap.
	assert.Equal(t, [][2]int{{0, 10}, {10, 20}, {20, 25}}, windows(0, 25, 10, 0))

	// Empty and inverted ranges produce nothing.
	assert.Nil(t, windows(5, 5, 10, 0))
	assert.Nil(t, windows(9, 5, 10, 0))
}

func TestWindowsCoverEveryByte(t *testing.T) {
	ws := windows(17, 3961, 512, 64)
	require.NotEmpty(t, ws)

	// ceil((L-o)/(max-o)) windows for a span of L bytes.
	l, max, o := 3961-17, 512, 64
	assert.Len(t, ws, (l-o+(max-o)-1)/(max-o))

	assert.Equal(t, 17, ws[0][0])
	assert.Equal(t, 3961, ws[len(ws)-1][1])
	for i, w := range ws {
		assert.LessOrEqual(t, w[1]-w[0], 512)
		if i > 0 {
			assert.LessOrEqual(t, w[0], ws[i-1][1], "gap between windows %d and %d", i-1, i)
		}
	}
}

func TestNewExtractorValidation(t *testing.T) {
	_, err := NewExtractor(0, 0)
	assert.Error(t, err)
	_, err = NewExtractor(100, -1)
	assert.Error(t, err)
	_, err = NewExtractor(100, 100)
	assert.Error(t, err)
	_, err = NewExtractor(100, 150)
	assert.Error(t, err)

	ex, err := NewExtractor(100, 0)
	require.NoError(t, err)
	assert.Equal(t, 100, ex.MaxBytes)
}

func TestExtractCoversGaps(t *testing.T) {
	ex, err := NewExtractor(1000, 0)
	require.NoError(t, err)

	src := []byte(strings.Repeat("x", 100))
	spans := []Span{{Start: 20, End: 60, Symbol: "Foo", Kind: "function_declaration"}}

	chunks := ex.Extract("a.go", "go", src, spans)
	require.Len(t, chunks, 3)

	assert.Equal(t, "text", chunks[0].Kind)
	assert.Equal(t, 0, chunks[0].StartByte)
	assert.Equal(t, 20, chunks[0].EndByte)

	assert.Equal(t, "function_declaration", chunks[1].Kind)
	assert.Equal(t, "Foo", chunks[1].Symbol)
	assert.Equal(t, 20, chunks[1].StartByte)
	assert.Equal(t, 60, chunks[1].EndByte)

	assert.Equal(t, "text", chunks[2].Kind)
	assert.Equal(t, 60, chunks[2].StartByte)
	assert.Equal(t, 100, chunks[2].EndByte)

	for i, ck := range chunks {
		assert.Equal(t, i, ck.Seq)
		assert.Equal(t, "a.go", ck.Path)
		assert.Equal(t, string(src[ck.StartByte:ck.EndByte]), ck.Content)
	}
}

func TestExtractSplitsOversizedSpan(t *testing.T) {
	ex, err := NewExtractor(40, 10)
	require.NoError(t, err)

	src := []byte(strings.Repeat("y", 100))
	spans := []Span{{Start: 0, End: 100, Symbol: "Big", Kind: "function_declaration"}}

	chunks := ex.Extract("b.go", "go", src, spans)
	require.Greater(t, len(chunks), 1)
	for _, ck := range chunks {
		assert.LessOrEqual(t, ck.EndByte-ck.StartByte, 40)
		assert.Equal(t, "Big", ck.Symbol)
	}
	assert.Equal(t, 0, chunks[0].StartByte)
	assert.Equal(t, 100, chunks[len(chunks)-1].EndByte)
}

func TestExtractLineNumbers(t *testing.T) {
	ex, err := NewExtractor(1000, 0)
	require.NoError(t, err)

	src := []byte("one\ntwo\nthree\n")
	chunks := ex.Extract("c.txt", "", src, nil)
	require.Len(t, chunks, 1)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 3, chunks[0].EndLine) // the trailing newline still belongs to line 3
}

func TestChunkIDStable(t *testing.T) {
	ex, err := NewExtractor(1000, 0)
	require.NoError(t, err)
	src := []byte(strings.Repeat("z", 50))

	a := ex.Extract("same.go", "go", src, nil)
	b := ex.Extract("same.go", "go", src, nil)
	require.Len(t, a, 1)
	assert.Equal(t, a[0].ID, b[0].ID)
	assert.Len(t, a[0].ID, 16)

	other := ex.Extract("other.go", "go", src, nil)
	assert.NotEqual(t, a[0].ID, other[0].ID)
}

func TestDedupSpansKeepsOutermost(t *testing.T) {
	spans := []Span{
		{Start: 10, End: 20, Kind: "inner"},
		{Start: 0, End: 50, Kind: "outer"},
		{Start: 60, End: 80, Kind: "disjoint"},
	}
	out := dedupSpans(spans)
	require.Len(t, out, 2)
	assert.Equal(t, "outer", out[0].Kind)
	assert.Equal(t, "disjoint", out[1].Kind)
}

func TestDedupSpansSameStart(t *testing.T) {
	spans := []Span{
		{Start: 0, End: 10, Kind: "short"},
		{Start: 0, End: 30, Kind: "long"},
	}
	out := dedupSpans(spans)
	require.Len(t, out, 1)
	assert.Equal(t, "long", out[0].Kind)
}

func TestChunkerUnknownExtensionFallsBackToText(t *testing.T) {
	r := NewRegistry()
	ch, err := New(r, 2048, 256)
	require.NoError(t, err)

	chunks, err := ch.Chunk(context.Background(), "notes.md", []byte("# hello\n"))
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "text", chunks[0].Kind)
	assert.Empty(t, chunks[0].Language)
}
