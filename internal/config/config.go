// Package config loads and validates the run configuration. All
// values are static for the lifetime of a run; validation failures
// here are fatal at startup.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"codesift/internal/store"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "30s" or "2m", or from plain integer nanoseconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		v, perr := time.ParseDuration(s)
		if perr != nil {
			return fmt.Errorf("parse duration %q: %w", s, perr)
		}
		*d = Duration(v)
		return nil
	}
	var ns int64
	if err := value.Decode(&ns); err != nil {
		return fmt.Errorf("parse duration: %w", err)
	}
	*d = Duration(ns)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) String() string { return time.Duration(d).String() }

// Config is the full run configuration.
type Config struct {
	// Roots are the directories to index.
	Roots []string `yaml:"roots"`
	// Exclude holds extra exclusion globs applied during scanning,
	// on top of the built-in ignore set.
	Exclude []string `yaml:"exclude"`

	// ChunkMaxBytes bounds chunk size; ChunkOverlap is the byte
	// overlap between consecutive windows of a split span.
	ChunkMaxBytes int `yaml:"chunk_max_bytes"`
	ChunkOverlap  int `yaml:"chunk_overlap"`

	// BatchSize bounds how many changed files are processed per
	// commit round.
	BatchSize int `yaml:"batch_size"`
	// PollInterval is the watch-loop tick period.
	PollInterval Duration `yaml:"poll_interval"`
	// Workers bounds parallel per-file processing within a batch.
	// Zero means one worker per CPU.
	Workers int `yaml:"workers"`

	Store struct {
		Backend   string `yaml:"backend"`
		Path      string `yaml:"path"`
		Dimension int    `yaml:"dimension"`
		Metric    string `yaml:"metric"`
	} `yaml:"store"`

	Ollama struct {
		URL   string `yaml:"url"`
		Model string `yaml:"model"`
	} `yaml:"ollama"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	var c Config
	c.ChunkMaxBytes = 2048
	c.ChunkOverlap = 256
	c.BatchSize = 64
	c.PollInterval = Duration(2 * time.Second)
	c.Store.Backend = store.BackendSQLite
	c.Store.Dimension = 768
	c.Store.Metric = store.MetricCosine
	c.Ollama.URL = "http://localhost:11434"
	c.Ollama.Model = "nomic-embed-text"
	return c
}

// Load reads a YAML config file over the defaults.
func Load(path string) (Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parse config %s: %w", path, err)
	}
	return c, nil
}

// Validate checks every load-time invariant. Any error here halts
// startup.
func (c *Config) Validate() error {
	if len(c.Roots) == 0 {
		return fmt.Errorf("config: at least one root directory is required")
	}
	if c.ChunkMaxBytes <= 0 {
		return fmt.Errorf("config: chunk_max_bytes must be positive, got %d", c.ChunkMaxBytes)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkMaxBytes {
		return fmt.Errorf("config: chunk_overlap must satisfy 0 <= overlap < chunk_max_bytes, got %d", c.ChunkOverlap)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("config: batch_size must be positive, got %d", c.BatchSize)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("config: poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.Workers < 0 {
		return fmt.Errorf("config: workers must be non-negative, got %d", c.Workers)
	}
	if c.Store.Dimension <= 0 {
		return fmt.Errorf("config: store.dimension must be positive, got %d", c.Store.Dimension)
	}
	switch c.Store.Backend {
	case store.BackendSQLite, store.BackendFlat:
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}
	switch c.Store.Metric {
	case store.MetricCosine, store.MetricEuclidean:
	default:
		return fmt.Errorf("config: unknown distance metric %q", c.Store.Metric)
	}
	if c.Store.Path == "" {
		return fmt.Errorf("config: store.path is required")
	}
	return nil
}
