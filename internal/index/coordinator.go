// Package index orchestrates the scan → diff → batch → process →
// commit cycle that keeps the vector store consistent with the file
// tree, either as a one-shot pass or a polling watch loop.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"codesift/internal/chunker"
	"codesift/internal/embedder"
	"codesift/internal/store"
	"codesift/internal/tracker"
	"codesift/internal/walker"
)

// embedBatchSize bounds how many chunk texts go to the embedder in
// one request.
const embedBatchSize = 32

// metaEmbedModel is the store meta key recording which embedding
// model produced the stored vectors.
const metaEmbedModel = "embedding_model"

// ProgressFunc receives phase updates during a run.
type ProgressFunc func(phase string, done, total int)

// Config holds the coordinator configuration.
type Config struct {
	Roots        []string
	Exclude      []string
	BatchSize    int
	PollInterval time.Duration
	// Workers bounds parallel per-file processing; zero means NumCPU.
	Workers    int
	EmbedModel string
	OnProgress ProgressFunc
}

// Coordinator drives the indexing pipeline. Files are independent
// units: each appears at most once per tick, so per-file store
// mutations never contend.
type Coordinator struct {
	cfg Config
	st  store.Store
	emb embedder.Embedder
	ch  *chunker.Chunker
	log *slog.Logger
}

// New creates a Coordinator. A nil logger falls back to slog.Default.
func New(cfg Config, st store.Store, emb embedder.Embedder, ch *chunker.Chunker, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{cfg: cfg, st: st, emb: emb, ch: ch, log: log}
}

// Stats reports one run's results.
type Stats struct {
	FilesScanned int
	Added        int
	Modified     int
	Removed      int
	FilesIndexed int
	FilesFailed  int
	Chunks       int
}

// processed is one file's pipeline output, ready to commit.
type processed struct {
	change  tracker.Change
	records []store.VectorRecord
	hash    string
	err     error
	stage   string
}

// Run executes one full pass: Scanning → Diffing → Batching →
// Processing → Committing. Per-file failures are logged and skipped;
// only store-listing or scan failures abort the run. If ctx is
// cancelled mid-run, the in-flight batch still commits before Run
// returns ctx.Err().
func (c *Coordinator) Run(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	if err := c.checkEmbedModel(); err != nil {
		return nil, err
	}

	c.progress("Scanning files...", 0, 0)
	listing, err := c.scan()
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	stats.FilesScanned = len(listing)

	prior, err := c.fingerprints()
	if err != nil {
		return nil, fmt.Errorf("list fingerprints: %w", err)
	}

	changes, diffErrs := tracker.Diff(listing, prior)
	for _, derr := range diffErrs {
		c.log.Warn("file skipped", "stage", "fs", "error", derr)
		stats.FilesFailed++
	}
	stats.Added = len(changes.Added)
	stats.Modified = len(changes.Modified)
	stats.Removed = len(changes.Removed)

	for _, path := range changes.Removed {
		if err := c.st.DeleteByFile(path); err != nil {
			c.log.Warn("delete records failed", "stage", "store", "path", path, "error", err)
			continue
		}
		if err := c.st.DeleteFingerprint(path); err != nil {
			c.log.Warn("delete fingerprint failed", "stage", "store", "path", path, "error", err)
		}
	}

	work := append(changes.Added, changes.Modified...)
	total := len(work)
	for start := 0; start < len(work); start += c.cfg.BatchSize {
		end := min(start+c.cfg.BatchSize, len(work))
		c.processBatch(ctx, work[start:end], stats)
		c.progress("Indexing files...", end, total)
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
	}

	if err := c.st.SetMeta(metaEmbedModel, c.cfg.EmbedModel); err != nil {
		return stats, fmt.Errorf("set meta: %w", err)
	}
	return stats, nil
}

// Watch re-runs the pipeline on every poll tick until ctx is
// cancelled. Cancellation is clean: the in-flight batch finishes
// committing before the loop exits.
func (c *Coordinator) Watch(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		stats, err := c.Run(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if stats.Added+stats.Modified+stats.Removed > 0 {
			c.log.Info("tick complete",
				"added", stats.Added, "modified", stats.Modified,
				"removed", stats.Removed, "failed", stats.FilesFailed,
				"chunks", stats.Chunks)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Registry returns the language registry the coordinator indexes with.
func (c *Coordinator) Registry() *chunker.Registry { return c.ch.Registry() }

// Search embeds the query text and returns the closest records.
func (c *Coordinator) Search(ctx context.Context, query string, k int) ([]store.SearchResult, error) {
	vecs, err := c.emb.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return c.st.Query(vecs[0], k)
}

// checkEmbedModel drops the whole index if the configured embedding
// model differs from the one that produced the stored vectors.
func (c *Coordinator) checkEmbedModel() error {
	last, err := c.st.GetMeta(metaEmbedModel)
	if err != nil {
		return fmt.Errorf("get meta: %w", err)
	}
	if last != "" && last != c.cfg.EmbedModel {
		c.log.Info("embedding model changed, rebuilding index",
			"from", last, "to", c.cfg.EmbedModel)
		if err := c.st.DeleteAll(); err != nil {
			return fmt.Errorf("reset index: %w", err)
		}
	}
	return nil
}

// scan enumerates files under every root in discovery order. Store
// keys are root-relative; with multiple roots the root's base name
// prefixes the key to keep paths unambiguous.
func (c *Coordinator) scan() ([]tracker.FileMeta, error) {
	exts := c.ch.Registry().Extensions()

	var listing []tracker.FileMeta
	seen := make(map[string]bool)
	for _, root := range c.cfg.Roots {
		files, errs := walker.Walk(root, exts, c.cfg.Exclude)
		for fi := range files {
			key := fi.RelPath
			if len(c.cfg.Roots) > 1 {
				key = filepath.ToSlash(filepath.Join(filepath.Base(root), fi.RelPath))
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			listing = append(listing, tracker.FileMeta{
				Path:    key,
				AbsPath: fi.Path,
				Size:    fi.Size,
				ModTime: fi.ModTime,
			})
		}
		if err := <-errs; err != nil {
			return nil, err
		}
	}
	return listing, nil
}

func (c *Coordinator) fingerprints() (map[string]store.Fingerprint, error) {
	fps, err := c.st.ListFingerprints()
	if err != nil {
		return nil, err
	}
	m := make(map[string]store.Fingerprint, len(fps))
	for _, fp := range fps {
		m[fp.Path] = fp
	}
	return m, nil
}

// processBatch runs the per-file pipeline in parallel, then commits
// results sequentially after the join barrier. Even when ctx is
// cancelled, files that finished processing are committed so no
// delete+upsert pair is left straddled.
func (c *Coordinator) processBatch(ctx context.Context, batch []tracker.Change, stats *Stats) {
	results := make([]*processed, len(batch))

	workers := c.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, chg := range batch {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil // deferred to the next tick
			}
			results[i] = c.processFile(gctx, chg)
			return nil
		})
	}
	g.Wait() // join barrier before Committing

	for _, r := range results {
		if r == nil {
			continue // never processed (cancelled mid-batch)
		}
		if r.err != nil {
			c.log.Warn("file skipped", "stage", r.stage, "path", r.change.Meta.Path, "error", r.err)
			stats.FilesFailed++
			continue
		}
		if err := c.commitFile(r); err != nil {
			c.log.Warn("commit failed", "stage", "store", "path", r.change.Meta.Path, "error", err)
			stats.FilesFailed++
			continue
		}
		stats.FilesIndexed++
		stats.Chunks += len(r.records)
	}
}

// processFile runs parse → match → chunk → embed for one file. Any
// failure is recorded on the result, never propagated; the file's
// fingerprint stays untouched so the next scan retries it.
func (c *Coordinator) processFile(ctx context.Context, chg tracker.Change) *processed {
	p := &processed{change: chg}

	src, err := os.ReadFile(chg.Meta.AbsPath)
	if err != nil {
		p.err, p.stage = err, "fs"
		return p
	}
	// Hash what we actually read: if the file changed since the diff,
	// the fingerprint must describe the indexed content.
	p.hash = tracker.HashBytes(src)

	chunks, err := c.ch.Chunk(ctx, chg.Meta.Path, src)
	if err != nil {
		p.err, p.stage = err, "parse"
		return p
	}

	// All-or-nothing per file: one failed embed batch discards the
	// whole file for this tick.
	embeddings := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := min(start+embedBatchSize, len(chunks))
		texts := make([]string, 0, end-start)
		for _, ck := range chunks[start:end] {
			texts = append(texts, ck.Content)
		}
		vecs, err := c.emb.Embed(ctx, texts)
		if err != nil {
			p.err, p.stage = err, "embed"
			return p
		}
		embeddings = append(embeddings, vecs...)
	}

	p.records = make([]store.VectorRecord, len(chunks))
	for i, ck := range chunks {
		p.records[i] = store.VectorRecord{
			ChunkID:   ck.ID,
			Path:      ck.Path,
			Language:  ck.Language,
			StartByte: ck.StartByte,
			EndByte:   ck.EndByte,
			StartLine: ck.StartLine,
			EndLine:   ck.EndLine,
			Symbol:    ck.Symbol,
			Kind:      ck.Kind,
			Seq:       ck.Seq,
			Content:   ck.Content,
			Embedding: embeddings[i],
		}
	}
	return p
}

// commitFile replaces the file's records wholesale, then updates its
// fingerprint. Replace-not-merge: after a successful commit the store
// holds exactly the latest chunk set for the file.
func (c *Coordinator) commitFile(p *processed) error {
	path := p.change.Meta.Path
	if err := c.st.DeleteByFile(path); err != nil {
		return fmt.Errorf("delete old records: %w", err)
	}
	if err := c.st.Upsert(path, p.records); err != nil {
		return fmt.Errorf("upsert records: %w", err)
	}
	fp := store.Fingerprint{
		Path:       path,
		Hash:       p.hash,
		Size:       p.change.Meta.Size,
		ModTime:    p.change.Meta.ModTime,
		ChunkCount: len(p.records),
	}
	if err := c.st.PutFingerprint(fp); err != nil {
		return fmt.Errorf("update fingerprint: %w", err)
	}
	return nil
}

func (c *Coordinator) progress(phase string, done, total int) {
	if c.cfg.OnProgress != nil {
		c.cfg.OnProgress(phase, done, total)
	}
}
