package cmd

import (
	"codesift/internal/index"
	"codesift/internal/store"
	"codesift/internal/tui"
)

func runTUI(args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	log := newLogger()

	var st store.Store
	err = tui.Run(tui.Config{
		Build: func(onProgress index.ProgressFunc) (*index.Coordinator, error) {
			coord, s, err := buildCoordinator(cfg, onProgress, log)
			if err != nil {
				return nil, err
			}
			st = s
			return coord, nil
		},
		TopK: 10,
	})
	if st != nil {
		st.Close()
	}
	return err
}
