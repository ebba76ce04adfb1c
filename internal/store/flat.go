package store

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FlatStore implements Store as a single JSON file with in-process
// distance scans. Every mutation rewrites the file through a temp
// file + rename, so the on-disk state is always a complete snapshot.
type FlatStore struct {
	mu        sync.RWMutex
	path      string
	dimension int
	metric    string
	state     flatState
}

type flatState struct {
	Meta         map[string]string        `json:"meta"`
	Fingerprints map[string]Fingerprint   `json:"fingerprints"`
	Records      map[string][]VectorRecord `json:"records"` // keyed by file path
}

// OpenFlat opens or creates the flat store file at path.
func OpenFlat(path string, dimension int, metric string) (*FlatStore, error) {
	s := &FlatStore{
		path:      path,
		dimension: dimension,
		metric:    metric,
		state: flatState{
			Meta:         make(map[string]string),
			Fingerprints: make(map[string]Fingerprint),
			Records:      make(map[string][]VectorRecord),
		},
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open flat store: %w", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &s.state); err != nil {
			return nil, fmt.Errorf("decode flat store %s: %w", path, err)
		}
	}
	return s, nil
}

// save writes the whole state atomically. Caller holds the lock.
func (s *FlatStore) save() error {
	data, err := json.Marshal(&s.state)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".codesift-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

func (s *FlatStore) GetFingerprint(path string) (*Fingerprint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fp, ok := s.state.Fingerprints[path]
	if !ok {
		return nil, nil
	}
	return &fp, nil
}

func (s *FlatStore) ListFingerprints() ([]Fingerprint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fps := make([]Fingerprint, 0, len(s.state.Fingerprints))
	for _, fp := range s.state.Fingerprints {
		fps = append(fps, fp)
	}
	sort.Slice(fps, func(i, j int) bool { return fps[i].Path < fps[j].Path })
	return fps, nil
}

func (s *FlatStore) PutFingerprint(fp Fingerprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Fingerprints[fp.Path] = fp
	return s.save()
}

func (s *FlatStore) DeleteFingerprint(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state.Fingerprints, path)
	return s.save()
}

func (s *FlatStore) Upsert(path string, records []VectorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		if len(r.Embedding) != s.dimension {
			return fmt.Errorf("chunk %s: embedding dimension %d, store expects %d",
				r.ChunkID, len(r.Embedding), s.dimension)
		}
	}
	existing := s.state.Records[path]
	byID := make(map[string]int, len(existing))
	for i, r := range existing {
		byID[r.ChunkID] = i
	}
	for _, r := range records {
		if i, ok := byID[r.ChunkID]; ok {
			existing[i] = r
		} else {
			byID[r.ChunkID] = len(existing)
			existing = append(existing, r)
		}
	}
	s.state.Records[path] = existing
	return s.save()
}

func (s *FlatStore) DeleteByFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state.Records, path)
	return s.save()
}

func (s *FlatStore) Query(embedding []float32, topK int) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK <= 0 {
		return nil, nil
	}

	var results []SearchResult
	for _, recs := range s.state.Records {
		for _, r := range recs {
			d, err := distance(s.metric, embedding, r.Embedding)
			if err != nil {
				return nil, err
			}
			results = append(results, SearchResult{Record: r, Distance: d})
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].Record.ChunkID < results[j].Record.ChunkID
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (s *FlatStore) GetMeta(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Meta[key], nil
}

func (s *FlatStore) SetMeta(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Meta[key] = value
	return s.save()
}

func (s *FlatStore) DeleteAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Fingerprints = make(map[string]Fingerprint)
	s.state.Records = make(map[string][]VectorRecord)
	return s.save()
}

func (s *FlatStore) Close() error { return nil }

// distance computes the configured metric; for both, lower is closer.
// Cosine distance of a zero vector against anything is defined as the
// maximum (2), matching "nothing in common".
func distance(metric string, a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("dimension mismatch: %d vs %d", len(a), len(b))
	}
	switch metric {
	case MetricEuclidean:
		var sum float64
		for i := range a {
			d := float64(a[i]) - float64(b[i])
			sum += d * d
		}
		return math.Sqrt(sum), nil
	case MetricCosine:
		var dot, na, nb float64
		for i := range a {
			dot += float64(a[i]) * float64(b[i])
			na += float64(a[i]) * float64(a[i])
			nb += float64(b[i]) * float64(b[i])
		}
		if na == 0 || nb == 0 {
			return 2, nil
		}
		return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb)), nil
	default:
		return 0, fmt.Errorf("unknown distance metric %q", metric)
	}
}
