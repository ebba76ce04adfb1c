package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"codesift/internal/index"
	"codesift/internal/store"
)

type searchState int

const (
	searchIdle searchState = iota
	searchRunning
)

type searchModel struct {
	viewport    viewport.Model
	input       textinput.Model
	spinner     spinner.Model
	renderer    *glamour.TermRenderer
	coord       *index.Coordinator
	k           int
	state       searchState
	width       int
	height      int
	initialized bool
}

// resultsMsg is sent when a search completes.
type resultsMsg struct {
	query   string
	results []store.SearchResult
	err     error
}

func newSearchModel(coord *index.Coordinator, k int) searchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = selectedStyle

	ti := textinput.New()
	ti.Placeholder = "Search your codebase..."
	ti.CharLimit = 500
	ti.Focus()

	return searchModel{
		spinner: sp,
		input:   ti,
		coord:   coord,
		k:       k,
		state:   searchIdle,
	}
}

func (m *searchModel) initViewport(width, height int) {
	m.width = width
	m.height = height

	vpHeight := height - 3
	if vpHeight < 5 {
		vpHeight = 5
	}
	m.viewport = viewport.New(width, vpHeight)
	m.viewport.SetContent(dimStyle.Render("Type a query and press Enter."))

	m.input.Width = width - 4

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-2),
	)
	if err == nil {
		m.renderer = r
	}
	m.initialized = true
}

func runSearch(coord *index.Coordinator, query string, k int) tea.Cmd {
	return func() tea.Msg {
		results, err := coord.Search(context.Background(), query, k)
		return resultsMsg{query: query, results: results, err: err}
	}
}

func (m searchModel) Update(msg tea.Msg) (searchModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.initViewport(msg.Width, msg.Height)
		return m, nil

	case resultsMsg:
		m.state = searchIdle
		if msg.err != nil {
			m.viewport.SetContent(errorStyle.Render(fmt.Sprintf("Search failed: %v", msg.err)))
			return m, nil
		}
		md := FormatResults(msg.query, msg.results)
		if m.renderer != nil {
			if out, err := m.renderer.Render(md); err == nil {
				md = out
			}
		}
		m.viewport.SetContent(md)
		m.viewport.GotoTop()
		return m, nil

	case spinner.TickMsg:
		if m.state == searchRunning {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyEnter && m.state == searchIdle {
			query := strings.TrimSpace(m.input.Value())
			if query == "" {
				return m, nil
			}
			m.state = searchRunning
			m.input.SetValue("")
			return m, tea.Batch(m.spinner.Tick, runSearch(m.coord, query, m.k))
		}
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m searchModel) View() string {
	if !m.initialized {
		return "\n  Loading..."
	}
	status := "Enter to search · ctrl+c to quit"
	if m.state == searchRunning {
		status = m.spinner.View() + " searching..."
	}
	return m.viewport.View() + "\n" +
		statusBarStyle.Render(status) + "\n" +
		m.input.View()
}

// FormatResults renders search results as markdown. Shared with the
// MCP and CLI surfaces.
func FormatResults(query string, results []store.SearchResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results found for query: %q", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Search results for %q (%d chunks)\n\n", query, len(results))
	for i, r := range results {
		rec := r.Record
		fmt.Fprintf(&sb, "### Result %d: `%s`\n\n", i+1, rec.Path)
		fmt.Fprintf(&sb, "**Kind:** %s  \n**Symbol:** %s  \n**Lines:** %d–%d  \n**Distance:** %.4f\n\n",
			rec.Kind, rec.Symbol, rec.StartLine, rec.EndLine, r.Distance)
		fmt.Fprintf(&sb, "```%s\n%s\n```\n\n", strings.ToLower(rec.Language), rec.Content)
	}
	return sb.String()
}
