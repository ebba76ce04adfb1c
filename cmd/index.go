package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index [path...]",
	Short: "Index one or more directories for search",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(args)
		if err != nil {
			return err
		}
		log := newLogger()

		coord, st, err := buildCoordinator(cfg, nil, log)
		if err != nil {
			return err
		}
		defer st.Close()

		fmt.Printf("Indexing %v...\n", cfg.Roots)
		start := time.Now()

		stats, err := coord.Run(cmd.Context())
		elapsed := time.Since(start)

		if stats != nil {
			fmt.Printf("\nDone in %s\n", elapsed.Round(time.Millisecond))
			fmt.Printf("  Files:   %d scanned, %d added, %d modified, %d removed\n",
				stats.FilesScanned, stats.Added, stats.Modified, stats.Removed)
			fmt.Printf("  Indexed: %d files (%d failed)\n", stats.FilesIndexed, stats.FilesFailed)
			fmt.Printf("  Chunks:  %d\n", stats.Chunks)
		}

		return err
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
}
