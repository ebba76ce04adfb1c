package languages

import "codesift/internal/chunker"

// RegisterAll registers every built-in language. Registration compiles
// each language's patterns, so a malformed built-in query fails here.
func RegisterAll(r *chunker.Registry) error {
	for _, reg := range []func(*chunker.Registry) error{
		RegisterGo,
		RegisterPython,
		RegisterJavaScript,
		RegisterTypeScript,
	} {
		if err := reg(r); err != nil {
			return err
		}
	}
	return nil
}
