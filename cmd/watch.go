package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch [path...]",
	Short: "Index and then re-index on changes until interrupted",
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

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Watching %v (poll every %s, ctrl+c to stop)...\n", cfg.Roots, cfg.PollInterval)
		return coord.Watch(ctx)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
