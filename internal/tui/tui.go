// Package tui implements the interactive terminal interface: an
// indexing progress view followed by a semantic search prompt.
package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"codesift/internal/index"
)

type viewState int

const (
	viewIndexing viewState = iota
	viewSearch
)

// Config wires the TUI to the rest of the system. Build constructs the
// coordinator with a progress callback so the indexing view can show
// live phase updates.
type Config struct {
	Build func(onProgress index.ProgressFunc) (*index.Coordinator, error)
	TopK  int
}

// programRef lets the coordinator's progress callback reach the tea
// program, which does not exist yet when the coordinator is built.
type programRef struct {
	p *tea.Program
}

// Model is the top-level TUI model.
type Model struct {
	view     viewState
	indexing indexingModel
	search   searchModel
	coord    *index.Coordinator
	topK     int
	width    int
	height   int
}

func newModel(coord *index.Coordinator, topK int) Model {
	return Model{
		view:     viewIndexing,
		indexing: newIndexingModel(),
		search:   newSearchModel(coord, topK),
		coord:    coord,
		topK:     topK,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.indexing.spinner.Tick, runIndex(m.coord))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.view == viewIndexing && m.indexing.done && m.indexing.err == nil {
				m.view = viewSearch
				m.search.initViewport(m.width, m.height)
				return m, nil
			}
		}
		if m.view == viewIndexing && m.indexing.done && m.indexing.err != nil {
			if msg.String() == "q" {
				return m, tea.Quit
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	var cmd tea.Cmd
	switch m.view {
	case viewIndexing:
		m.indexing, cmd = m.indexing.Update(msg)
	case viewSearch:
		m.search, cmd = m.search.Update(msg)
	}
	return m, cmd
}

func (m Model) View() string {
	switch m.view {
	case viewSearch:
		return m.search.View()
	default:
		return m.indexing.View()
	}
}

// Run indexes the configured roots and drops into the search prompt.
// It blocks until the user quits.
func Run(cfg Config) error {
	if cfg.TopK <= 0 {
		cfg.TopK = 10
	}

	ref := &programRef{}
	coord, err := cfg.Build(func(phase string, done, total int) {
		if ref.p != nil {
			ref.p.Send(indexProgressMsg{phase: phase, filesProcessed: done, filesTotal: total})
		}
	})
	if err != nil {
		return fmt.Errorf("build coordinator: %w", err)
	}

	p := tea.NewProgram(newModel(coord, cfg.TopK), tea.WithAltScreen())
	ref.p = p
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
