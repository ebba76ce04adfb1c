package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"codesift/internal/chunker"
	"codesift/internal/chunker/languages"
	"codesift/internal/config"
	"codesift/internal/embedder"
	"codesift/internal/index"
	"codesift/internal/store"
)

var (
	flagConfig  string
	flagDB      string
	flagBackend string
	flagOllama  string
	flagModel   string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "codesift",
	Short: "Local semantic code search powered by structural chunking",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(args)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file path (YAML)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "index path (default <project>/.codesift/index.db)")
	rootCmd.PersistentFlags().StringVar(&flagBackend, "backend", "", "store backend: sqlite or flat (default sqlite)")
	rootCmd.PersistentFlags().StringVar(&flagOllama, "ollama", "", "ollama base URL (default http://localhost:11434)")
	rootCmd.PersistentFlags().StringVar(&flagModel, "model", "", "embedding model (default nomic-embed-text)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
}

// newLogger builds the process logger. Logs go to stderr so command
// output and MCP stdio stay clean.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadConfig resolves the effective configuration: YAML file if given,
// defaults otherwise, with flags and positional roots layered on top.
func loadConfig(args []string) (config.Config, error) {
	cfg := config.Default()
	if flagConfig != "" {
		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			return cfg, err
		}
	}

	if len(args) > 0 {
		cfg.Roots = nil
		for _, a := range args {
			abs, err := filepath.Abs(a)
			if err != nil {
				return cfg, err
			}
			cfg.Roots = append(cfg.Roots, abs)
		}
	}
	if len(cfg.Roots) == 0 {
		wd, err := os.Getwd()
		if err != nil {
			return cfg, err
		}
		cfg.Roots = []string{wd}
	}

	if flagBackend != "" {
		cfg.Store.Backend = flagBackend
	}
	if flagOllama != "" {
		cfg.Ollama.URL = flagOllama
	}
	if flagModel != "" {
		cfg.Ollama.Model = flagModel
	}
	if flagDB != "" {
		cfg.Store.Path = flagDB
	}
	if cfg.Store.Path == "" {
		name := "index.db"
		if cfg.Store.Backend == store.BackendFlat {
			name = "index.json"
		}
		cfg.Store.Path = filepath.Join(cfg.Roots[0], ".codesift", name)
	}

	return cfg, cfg.Validate()
}

// buildCoordinator opens the store and wires the full pipeline. The
// caller owns the returned store and must Close it.
func buildCoordinator(cfg config.Config, onProgress index.ProgressFunc, log *slog.Logger) (*index.Coordinator, store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create index directory: %w", err)
	}

	st, err := store.Open(store.Config{
		Backend:   cfg.Store.Backend,
		Path:      cfg.Store.Path,
		Dimension: cfg.Store.Dimension,
		Metric:    cfg.Store.Metric,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open index: %w", err)
	}

	registry := chunker.NewRegistry()
	if err := languages.RegisterAll(registry); err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("register languages: %w", err)
	}
	ch, err := chunker.New(registry, cfg.ChunkMaxBytes, cfg.ChunkOverlap)
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	emb := embedder.NewOllama(cfg.Ollama.URL, cfg.Ollama.Model, cfg.Store.Dimension)

	coord := index.New(index.Config{
		Roots:        cfg.Roots,
		Exclude:      cfg.Exclude,
		BatchSize:    cfg.BatchSize,
		PollInterval: time.Duration(cfg.PollInterval),
		Workers:      cfg.Workers,
		EmbedModel:   cfg.Ollama.Model,
		OnProgress:   onProgress,
	}, st, emb, ch, log)

	return coord, st, nil
}
