package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"codesift/internal/index"
)

type indexingModel struct {
	spinner        spinner.Model
	phase          string
	filesProcessed int
	filesTotal     int
	done           bool
	stats          *index.Stats
	err            error
}

func newIndexingModel() indexingModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = selectedStyle
	return indexingModel{
		spinner: sp,
		phase:   "Scanning files...",
	}
}

// indexDoneMsg is sent when the initial index pass completes.
type indexDoneMsg struct {
	stats *index.Stats
	err   error
}

// indexProgressMsg is sent on coordinator phase updates.
type indexProgressMsg struct {
	phase          string
	filesProcessed int
	filesTotal     int
}

// runIndex executes one coordinator pass in the background, feeding
// progress back through the tea program.
func runIndex(coord *index.Coordinator) tea.Cmd {
	return func() tea.Msg {
		stats, err := coord.Run(context.Background())
		return indexDoneMsg{stats: stats, err: err}
	}
}

func (m indexingModel) Update(msg tea.Msg) (indexingModel, tea.Cmd) {
	switch msg := msg.(type) {
	case indexDoneMsg:
		m.done = true
		m.stats = msg.stats
		m.err = msg.err
		return m, nil
	case indexProgressMsg:
		m.phase = msg.phase
		m.filesProcessed = msg.filesProcessed
		m.filesTotal = msg.filesTotal
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m indexingModel) View() string {
	s := "\n"
	s += titleStyle.Render("  Indexing") + "\n\n"

	if m.done {
		if m.err != nil {
			s += errorStyle.Render(fmt.Sprintf("  Error: %v", m.err)) + "\n\n"
			s += dimStyle.Render("  Press q to quit.") + "\n"
			return s
		}
		s += successStyle.Render("  ✓ Indexing complete!") + "\n\n"
		if m.stats != nil {
			s += fmt.Sprintf("  Files: %d scanned, %d indexed, %d failed\n",
				m.stats.FilesScanned, m.stats.FilesIndexed, m.stats.FilesFailed)
			s += fmt.Sprintf("  Chunks: %d\n", m.stats.Chunks)
		}
		s += "\n"
		s += dimStyle.Render("  Press Enter to search") + "\n"
		return s
	}

	s += fmt.Sprintf("  %s %s\n", m.spinner.View(), m.phase)
	if m.filesTotal > 0 {
		s += fmt.Sprintf("  %d / %d files processed\n", m.filesProcessed, m.filesTotal)
	}
	s += "\n"
	s += dimStyle.Render("  This may take a while for large codebases...") + "\n"
	return s
}
