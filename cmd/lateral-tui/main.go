// Command lateral-tui is a terminal dashboard over a running lateral-d: it
// polls recent runs and shows the borrowing candidates of the newest one.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/glottolab/lateral/pkg/client"
)

// Config
const (
	pollRate       = 2 * time.Second
	maxRuns        = 10
	viewportHeight = 20
)

// Styles
var (
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusStyle = lipgloss.NewStyle().Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			Width(100)

	paneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1).
			Width(100)

	runIDStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("99"))
	supportStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	groupStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

type tickMsg time.Time

type dataMsg struct {
	runs    []client.RunInfo
	lateral []client.LateralEdge
	err     error
}

type model struct {
	api      *client.Client
	spinner  spinner.Model
	viewport viewport.Model
	runs     []client.RunInfo
	lateral  []client.LateralEdge
	err      error
	ready    bool
}

func initialModel(api *client.Client) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	vp := viewport.New(100, viewportHeight)
	vp.Style = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		PaddingRight(2)

	return model{
		api:      api,
		spinner:  s,
		viewport: vp,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		fetchData(m.api),
		tick(),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tickMsg:
		cmds = append(cmds, fetchData(m.api), tick())

	case dataMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.runs = msg.runs
			m.lateral = msg.lateral
			m.updateViewportContent()
		}
		m.ready = true

	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = viewportHeight
		m.ready = true
	}

	return m, tea.Batch(cmds...)
}

func (m *model) updateViewportContent() {
	var sb strings.Builder

	if len(m.lateral) == 0 {
		sb.WriteString(subtleStyle.Render("No borrowing candidates in the newest run."))
	}
	for i, e := range m.lateral {
		line := fmt.Sprintf("%2d. %s <-> %s  %s  dist=%d  via %s",
			i+1, e.NodeA, e.NodeB,
			supportStyle.Render(fmt.Sprintf("support=%.3f", e.Support)),
			e.Distance, strings.Join(e.Characters, ","))
		if e.SameGroup {
			line += "  " + groupStyle.Render("group="+e.Group)
		}
		sb.WriteString(line + "\n")
	}

	m.viewport.SetContent(sb.String())
}

func (m model) View() string {
	if !m.ready {
		return fmt.Sprintf("\n%s Initializing...", m.spinner.View())
	}

	// Top Pane: recent runs
	var runList strings.Builder
	runList.WriteString(lipgloss.NewStyle().Bold(true).Underline(true).Render("Recent Runs") + "\n\n")

	if len(m.runs) == 0 {
		runList.WriteString(subtleStyle.Render("No runs yet."))
	} else {
		for _, r := range m.runs {
			line := fmt.Sprintf("• %s %s  cost=%g  origins<=%d  lateral=%d",
				runIDStyle.Render(r.ID), r.Dataset,
				r.Stats.TotalCost, r.Stats.MaxOrigins, r.Stats.LateralHits)
			if r.Stats.Sampled > 0 {
				line += "  " + warnStyle.Render(fmt.Sprintf("sampled=%d", r.Stats.Sampled))
			}
			runList.WriteString(line + "\n")
		}
	}

	topPane := paneStyle.Render(runList.String())

	// Bottom Pane: borrowing candidates of the newest run
	title := "Borrowing Candidates"
	if len(m.runs) > 0 {
		title = fmt.Sprintf("Borrowing Candidates (%s)", m.runs[0].ID)
	}
	header := headerStyle.Render(fmt.Sprintf("%s %s", m.spinner.View(), title))
	bottomPane := m.viewport.View()

	// Status Footer
	var status string
	if m.err != nil {
		status = errorStyle.Render(fmt.Sprintf("Offline: %v", m.err))
	} else {
		status = okStyle.Render(fmt.Sprintf("Online • %d Runs • %d Candidates", len(m.runs), len(m.lateral)))
	}
	footer := subtleStyle.Render(fmt.Sprintf("\n%s\nPress q to quit", statusStyle.Render(status)))

	return lipgloss.JoinVertical(lipgloss.Left, topPane, header, bottomPane, footer)
}

// Commands

func fetchData(api *client.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		runs, err := api.ListRuns(ctx, maxRuns)
		if err != nil {
			return dataMsg{err: err}
		}

		var lateral []client.LateralEdge
		if len(runs) > 0 {
			lateral, err = api.LateralEdges(ctx, runs[0].ID)
			if err != nil {
				return dataMsg{err: err}
			}
		}

		return dataMsg{runs: runs, lateral: lateral}
	}
}

func tick() tea.Cmd {
	return tea.Tick(pollRate, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func main() {
	endpoint := os.Getenv("LATERAL_API")
	if endpoint == "" {
		endpoint = "http://127.0.0.1:8090"
	}

	p := tea.NewProgram(initialModel(client.NewClient(endpoint)), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Alas, there's been an error: %v", err)
		os.Exit(1)
	}
}
