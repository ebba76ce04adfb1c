package chunker

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"

	"codesift/internal/query"
)

// LanguageSpec defines the grammar and chunk patterns for a language.
type LanguageSpec struct {
	Language *sitter.Language
	// Query is pattern source capturing declaration-level units. It
	// must bind @chunk to the outer node and may bind @name to the
	// declaration's identifier.
	Query      string
	Extensions []string

	patterns []*query.Pattern
}

// Registry maps file extensions to language specs. Registering a
// language again replaces the previous spec and extension bindings.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]*LanguageSpec // extension (without dot) → spec
	langs map[string]*LanguageSpec // language name → spec
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		specs: make(map[string]*LanguageSpec),
		langs: make(map[string]*LanguageSpec),
	}
}

// Register compiles the spec's patterns and adds it under the given
// name. A malformed query fails here, at load time.
func (r *Registry) Register(name string, spec *LanguageSpec) error {
	pats, err := query.Compile(spec.Query)
	if err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}
	spec.patterns = pats

	r.mu.Lock()
	defer r.mu.Unlock()
	r.langs[name] = spec
	for _, ext := range spec.Extensions {
		r.specs[ext] = spec
	}
	return nil
}

// Lookup returns the spec for a file path based on its extension, or
// nil if no language is registered for it.
func (r *Registry) Lookup(path string) (spec *LanguageSpec, lang string) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.specs[ext]
	if !ok {
		return nil, ""
	}
	for name, sp := range r.langs {
		if sp == s {
			return s, name
		}
	}
	return s, ext
}

// LanguageName returns the language name for a file path, or "".
func (r *Registry) LanguageName(path string) string {
	_, lang := r.Lookup(path)
	return lang
}

// Extensions returns the set of all registered extensions (no dot).
func (r *Registry) Extensions() map[string]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make(map[string]bool, len(r.specs))
	for ext := range r.specs {
		exts[ext] = true
	}
	return exts
}
