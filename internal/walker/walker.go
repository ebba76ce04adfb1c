// Package walker enumerates indexable source files under a root.
package walker

import (
	"io/fs"
	"path/filepath"
	"strings"
	"time"
)

// FileInfo holds metadata about a discovered source file.
type FileInfo struct {
	Path    string // absolute path on disk
	RelPath string // slash-separated path relative to the walk root
	Size    int64
	ModTime time.Time
}

// maxFileSize is the largest file we'll consider (1 MB).
const maxFileSize = 1 << 20

// defaultIgnores are always excluded, in addition to configured globs.
var defaultIgnores = []string{
	".git",
	".svn",
	".hg",
	"node_modules",
	"vendor",
	"__pycache__",
	".idea",
	".vscode",
	".codesift",
	"dist",
	"build",
}

// Walk traverses the tree rooted at root and sends discovered source
// files on the returned channel. It only emits files whose extension
// is in allowedExts, and skips directories and files matching the
// exclusion globs or the default ignore set.
func Walk(root string, allowedExts map[string]bool, excludes []string) (<-chan FileInfo, <-chan error) {
	files := make(chan FileInfo, 64)
	errs := make(chan error, 1)

	go func() {
		defer close(files)
		defer close(errs)

		absRoot, err := filepath.Abs(root)
		if err != nil {
			errs <- err
			return
		}

		err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // skip unreadable entries, keep walking
			}

			if d.IsDir() {
				if path == absRoot {
					return nil
				}
				rel, _ := filepath.Rel(absRoot, path)
				if matchesIgnore(d.Name(), filepath.ToSlash(rel), excludes) {
					return filepath.SkipDir
				}
				return nil
			}

			if d.Type()&fs.ModeSymlink != 0 {
				return nil
			}

			ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
			if !allowedExts[ext] {
				return nil
			}

			rel, _ := filepath.Rel(absRoot, path)
			relSlash := filepath.ToSlash(rel)
			if matchesIgnore(d.Name(), relSlash, excludes) {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				return nil
			}
			if info.Size() > maxFileSize || info.Size() == 0 {
				return nil
			}

			files <- FileInfo{
				Path:    path,
				RelPath: relSlash,
				Size:    info.Size(),
				ModTime: info.ModTime(),
			}
			return nil
		})
		if err != nil {
			errs <- err
		}
	}()

	return files, errs
}

// matchesIgnore checks a name or relative path against the default
// ignore set and the configured exclusion globs.
func matchesIgnore(name, relPath string, excludes []string) bool {
	for _, p := range defaultIgnores {
		if name == p {
			return true
		}
	}
	for _, p := range excludes {
		if name == p {
			return true
		}
		// Directory prefixes only cut on path segment boundaries, so
		// excluding "foo" does not exclude "foobar/x.go".
		if p == relPath || strings.HasPrefix(relPath, p+"/") {
			return true
		}
		if matched, _ := filepath.Match(p, relPath); matched {
			return true
		}
		if matched, _ := filepath.Match(p, name); matched {
			return true
		}
	}
	return false
}
