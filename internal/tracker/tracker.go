// Package tracker decides which files need reprocessing by comparing
// the current file listing against stored fingerprints.
package tracker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"codesift/internal/store"
)

// FileMeta describes one file discovered during a scan. Path is the
// store key; AbsPath locates the file on disk.
type FileMeta struct {
	Path    string
	AbsPath string
	Size    int64
	ModTime time.Time
}

// Change is a file that needs indexing. The hash computed during the
// diff is only a detection input; the indexer rehashes the bytes it
// actually reads, so the fingerprint always describes indexed content.
type Change struct {
	Meta FileMeta
}

// Changes partitions a scan against the fingerprint table.
type Changes struct {
	Added    []Change
	Modified []Change
	Removed  []string
}

// Diff classifies the listing against prior fingerprints. Matching
// size and mtime skip hashing as an optimization; whenever a hash is
// computed, it alone decides. Unreadable files are reported in errs
// and skipped for this tick.
func Diff(listing []FileMeta, prior map[string]store.Fingerprint) (Changes, []error) {
	var ch Changes
	var errs []error

	seen := make(map[string]bool, len(listing))
	for _, fm := range listing {
		seen[fm.Path] = true
		fp, tracked := prior[fm.Path]

		if tracked && fp.Size == fm.Size && fp.ModTime.Equal(fm.ModTime) {
			continue
		}

		hash, err := HashFile(fm.AbsPath)
		if err != nil {
			errs = append(errs, fmt.Errorf("hash %s: %w", fm.Path, err))
			continue
		}
		switch {
		case !tracked:
			ch.Added = append(ch.Added, Change{Meta: fm})
		case fp.Hash != hash:
			ch.Modified = append(ch.Modified, Change{Meta: fm})
		}
	}

	for path := range prior {
		if !seen[path] {
			ch.Removed = append(ch.Removed, path)
		}
	}
	return ch, errs
}

// HashFile streams the file through sha256 and returns the hex digest.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashBytes hashes in-memory content the same way as HashFile.
func HashBytes(src []byte) string {
	h := sha256.Sum256(src)
	return hex.EncodeToString(h[:])
}
