package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"codesift/internal/tui"
)

var (
	flagTopK  int
	flagPlain bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the index from the command line",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(nil)
		if err != nil {
			return err
		}
		log := newLogger()

		coord, st, err := buildCoordinator(cfg, nil, log)
		if err != nil {
			return err
		}
		defer st.Close()

		query := strings.Join(args, " ")
		results, err := coord.Search(cmd.Context(), query, flagTopK)
		if err != nil {
			return err
		}

		md := tui.FormatResults(query, results)
		if flagPlain {
			fmt.Print(md)
			return nil
		}
		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
		if err != nil {
			fmt.Print(md)
			return nil
		}
		out, err := r.Render(md)
		if err != nil {
			fmt.Print(md)
			return nil
		}
		fmt.Print(out)
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVarP(&flagTopK, "top", "k", 10, "maximum number of results")
	searchCmd.Flags().BoolVar(&flagPlain, "plain", false, "print raw markdown without styling")
	rootCmd.AddCommand(searchCmd)
}
