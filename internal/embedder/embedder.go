// Package embedder turns chunk text into fixed-dimension vectors.
package embedder

import "context"

// Embedder is the opaque text→vector function. Implementations must
// return one vector per input, each of exactly Dimension() floats, or
// an *Error.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Error wraps any embedding failure: malformed input, upstream
// failure, or a dimension mismatch. The coordinator treats it as a
// per-file failure.
type Error struct {
	err error
}

func (e *Error) Error() string { return "embed: " + e.err.Error() }

func (e *Error) Unwrap() error { return e.err }

// NewError wraps err as an embedding failure.
func NewError(err error) *Error { return &Error{err: err} }
