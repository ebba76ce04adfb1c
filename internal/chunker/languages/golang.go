// Package languages registers the built-in language specs: grammar
// plus the declaration-capture patterns applied to each file.
package languages

import (
	"codesift/internal/chunker"

	"github.com/smacker/go-tree-sitter/golang"
)

// RegisterGo adds the Go grammar and declaration patterns.
func RegisterGo(r *chunker.Registry) error {
	return r.Register("go", &chunker.LanguageSpec{
		Language: golang.GetLanguage(),
		Query: `
			(function_declaration name: (identifier) @name) @chunk
			(method_declaration name: (field_identifier) @name) @chunk
			(type_declaration (type_spec name: (type_identifier) @name)) @chunk
		`,
		Extensions: []string{"go"},
	})
}
