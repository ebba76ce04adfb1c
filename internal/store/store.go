// Package store persists vector records and file fingerprints and
// serves nearest-neighbor queries. Two backends implement the same
// contract: a SQLite database with the sqlite-vec extension, and a
// flat JSON file with in-process distance scans.
package store

import (
	"fmt"
	"time"
)

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendFlat   = "flat"
)

// Distance metric names accepted by Open.
const (
	MetricCosine    = "cosine"
	MetricEuclidean = "l2"
)

// Fingerprint is the per-file change signature. A fingerprint exists
// iff the store holds records for that file.
type Fingerprint struct {
	Path       string    `json:"path"`
	Hash       string    `json:"hash"`
	Size       int64     `json:"size"`
	ModTime    time.Time `json:"mod_time"`
	ChunkCount int       `json:"chunk_count"`
}

// VectorRecord is the stored unit: one chunk's identifier, embedding
// and metadata.
type VectorRecord struct {
	ChunkID   string    `json:"chunk_id"`
	Path      string    `json:"path"`
	Language  string    `json:"language"`
	StartByte int       `json:"start_byte"`
	EndByte   int       `json:"end_byte"`
	StartLine int       `json:"start_line"`
	EndLine   int       `json:"end_line"`
	Symbol    string    `json:"symbol"`
	Kind      string    `json:"kind"`
	Seq       int       `json:"seq"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding"`
}

// SearchResult is a record with its distance to the query embedding
// (lower is closer, for both metrics).
type SearchResult struct {
	Record   VectorRecord
	Distance float64
}

// Store is the uniform contract over both backends. All operations
// are safe for concurrent use; mutations are file-scoped.
type Store interface {
	// GetFingerprint returns the fingerprint for a path, or nil.
	GetFingerprint(path string) (*Fingerprint, error)
	// ListFingerprints returns every tracked fingerprint.
	ListFingerprints() ([]Fingerprint, error)
	// PutFingerprint inserts or replaces a fingerprint by path.
	PutFingerprint(fp Fingerprint) error
	// DeleteFingerprint removes a path's fingerprint, if present.
	DeleteFingerprint(path string) error

	// Upsert inserts or replaces records by chunk identifier.
	Upsert(path string, records []VectorRecord) error
	// DeleteByFile removes every record belonging to the path.
	DeleteByFile(path string) error
	// Query returns the topK records closest to the embedding under
	// the configured metric; equal distances break by ascending
	// chunk identifier.
	Query(embedding []float32, topK int) ([]SearchResult, error)

	// GetMeta returns a metadata value by key, or "" if unset.
	GetMeta(key string) (string, error)
	// SetMeta sets a metadata key-value pair.
	SetMeta(key, value string) error

	// DeleteAll removes all records, fingerprints and chunks.
	DeleteAll() error
	// Close releases the backing resources.
	Close() error
}

// Config selects and parameterizes a backend.
type Config struct {
	Backend   string
	Path      string
	Dimension int
	Metric    string
}

// Open creates or opens a store for the configured backend.
func Open(cfg Config) (Store, error) {
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("store: vector dimension must be positive, got %d", cfg.Dimension)
	}
	switch cfg.Metric {
	case MetricCosine, MetricEuclidean:
	default:
		return nil, fmt.Errorf("store: unknown distance metric %q", cfg.Metric)
	}
	switch cfg.Backend {
	case BackendSQLite:
		return OpenSQLite(cfg.Path, cfg.Dimension, cfg.Metric)
	case BackendFlat:
		return OpenFlat(cfg.Path, cfg.Dimension, cfg.Metric)
	default:
		return nil, fmt.Errorf("store: unknown backend %q", cfg.Backend)
	}
}
