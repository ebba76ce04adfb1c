package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codesift/internal/store"
)

func validConfig() Config {
	c := Default()
	c.Roots = []string{"/tmp/project"}
	c.Store.Path = "/tmp/project/.codesift/index.db"
	return c
}

func TestDefaultValidatesWithRootsAndPath(t *testing.T) {
	c := validConfig()
	require.NoError(t, c.Validate())
	assert.Equal(t, 2048, c.ChunkMaxBytes)
	assert.Equal(t, 256, c.ChunkOverlap)
	assert.Equal(t, 64, c.BatchSize)
	assert.Equal(t, 2*time.Second, time.Duration(c.PollInterval))
	assert.Equal(t, store.BackendSQLite, c.Store.Backend)
	assert.Equal(t, 768, c.Store.Dimension)
	assert.Equal(t, store.MetricCosine, c.Store.Metric)
}

func TestValidateErrors(t *testing.T) {
	cases := map[string]func(*Config){
		"no roots":          func(c *Config) { c.Roots = nil },
		"zero max bytes":    func(c *Config) { c.ChunkMaxBytes = 0 },
		"negative overlap":  func(c *Config) { c.ChunkOverlap = -1 },
		"overlap >= max":    func(c *Config) { c.ChunkOverlap = c.ChunkMaxBytes },
		"zero batch":        func(c *Config) { c.BatchSize = 0 },
		"zero poll":         func(c *Config) { c.PollInterval = 0 },
		"negative workers":  func(c *Config) { c.Workers = -1 },
		"zero dimension":    func(c *Config) { c.Store.Dimension = 0 },
		"bad backend":       func(c *Config) { c.Store.Backend = "redis" },
		"bad metric":        func(c *Config) { c.Store.Metric = "manhattan" },
		"missing store path": func(c *Config) { c.Store.Path = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := validConfig()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codesift.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
roots:
  - /srv/repo
exclude:
  - "*_test.go"
chunk_max_bytes: 4096
poll_interval: 30s
store:
  backend: flat
  path: /srv/repo/.codesift/index.json
  dimension: 384
ollama:
  model: all-minilm
`), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, []string{"/srv/repo"}, c.Roots)
	assert.Equal(t, []string{"*_test.go"}, c.Exclude)
	assert.Equal(t, 4096, c.ChunkMaxBytes)
	assert.Equal(t, 30*time.Second, time.Duration(c.PollInterval))
	assert.Equal(t, store.BackendFlat, c.Store.Backend)
	assert.Equal(t, 384, c.Store.Dimension)
	assert.Equal(t, "all-minilm", c.Ollama.Model)

	// Untouched keys keep their defaults.
	assert.Equal(t, 256, c.ChunkOverlap)
	assert.Equal(t, "http://localhost:11434", c.Ollama.URL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
