// Package tui is the terminal front end: a bubbletea program drawing the
// session through a Bridge.
package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/brensch/broadside/api"
	"github.com/brensch/broadside/board"
	"github.com/brensch/broadside/session"
	"github.com/brensch/broadside/stats"
)

// Controller is the part of session.Controller the model drives.
type Controller interface {
	SelectMode(ctx context.Context, mode api.GameMode, placement api.Placement) (*api.GameState, error)
	NewGame(ctx context.Context) (*api.GameState, error)
	ReturnToMenu()
	OpenStatistics(ctx context.Context) error
	Refresh(ctx context.Context) error
}

// Exporter writes the last loaded statistics somewhere and reports where.
type Exporter func(ctx context.Context) (string, error)

var modes = []api.GameMode{api.ModeUserVsMCTS, api.ModeMCTSVsMLMCTS, api.ModeStatistics}

type Model struct {
	ctx    context.Context
	ctrl   Controller
	bridge *Bridge
	export Exporter
	server string

	screen    Screen
	modeIdx   int
	placement api.Placement
	side      board.Side
	row, col  int
	status    string
	failed    bool
	busy      bool
	width     int
}

func NewModel(ctx context.Context, ctrl Controller, bridge *Bridge, export Exporter, server string) Model {
	return Model{
		ctx:       ctx,
		ctrl:      ctrl,
		bridge:    bridge,
		export:    export,
		server:    server,
		screen:    bridge.Screen(),
		placement: api.PlacementRandom,
		side:      board.Opponent,
	}
}

type changedMsg struct{}

// actionMsg reports the outcome of a command run off the event loop.
type actionMsg struct {
	what string
	err  error
}

func waitForChange(b *Bridge) tea.Cmd {
	return func() tea.Msg {
		<-b.Changed()
		return changedMsg{}
	}
}

func (m Model) Init() tea.Cmd {
	return waitForChange(m.bridge)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case changedMsg:
		m.screen = m.bridge.Screen()
		m.clampCursor()
		return m, waitForChange(m.bridge)
	case actionMsg:
		m.busy = false
		m.failed = msg.err != nil
		m.status = ""
		if msg.err != nil {
			m.status = fmt.Sprintf("%s failed: %v", msg.what, msg.err)
		}
		return m, nil
	case exportedMsg:
		m.busy = false
		m.failed = false
		m.status = "Exported to " + string(msg)
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.screen.Phase {
		case session.Menu:
			return m.updateMenu(msg)
		case session.StatsView:
			return m.updateStats(msg)
		default:
			return m.updateGame(msg)
		}
	}
	return m, nil
}

func (m Model) run(what string, f func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionMsg{what: what, err: f(ctx)}
	}
}

func (m Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.modeIdx > 0 {
			m.modeIdx--
		}
	case "down", "j":
		if m.modeIdx < len(modes)-1 {
			m.modeIdx++
		}
	case "left", "right", "h", "l", "p":
		if modes[m.modeIdx] == api.ModeUserVsMCTS {
			if m.placement == api.PlacementRandom {
				m.placement = api.PlacementManual
			} else {
				m.placement = api.PlacementRandom
			}
		}
	case "s":
		m.busy = true
		return m, m.run("statistics", m.ctrl.OpenStatistics)
	case "enter", " ":
		if m.busy {
			return m, nil
		}
		m.busy = true
		mode, placement := modes[m.modeIdx], m.placement
		m.side = board.Opponent
		if mode == api.ModeUserVsMCTS && placement == api.PlacementManual {
			m.side = board.Self
		}
		m.row, m.col = 0, 0
		return m, m.run("start", func(ctx context.Context) error {
			_, err := m.ctrl.SelectMode(ctx, mode, placement)
			return err
		})
	}
	return m, nil
}

func (m Model) updateGame(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := m.screen.Own.Size()
	if m.side == board.Opponent {
		n = m.screen.Opp.Size()
	}
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "m", "esc":
		ctrl := m.ctrl
		return m, m.run("menu", func(context.Context) error {
			ctrl.ReturnToMenu()
			return nil
		})
	case "n":
		return m, m.run("new game", func(ctx context.Context) error {
			_, err := m.ctrl.NewGame(ctx)
			return err
		})
	case "r":
		return m, m.run("refresh", m.ctrl.Refresh)
	case "s":
		return m, m.run("statistics", m.ctrl.OpenStatistics)
	case "tab":
		if m.side == board.Self {
			m.side = board.Opponent
		} else {
			m.side = board.Self
		}
		m.clampCursor()
	case "up", "k":
		if m.row > 0 {
			m.row--
		}
	case "down", "j":
		if m.row < n-1 {
			m.row++
		}
	case "left", "h":
		if m.col > 0 {
			m.col--
		}
	case "right", "l":
		if m.col < n-1 {
			m.col++
		}
	case "enter", " ":
		f := m.bridge.Frame(m.side)
		row, col := m.row, m.col
		return m, func() tea.Msg {
			f.Click(row, col)
			return actionMsg{what: "click"}
		}
	}
	return m, nil
}

type exportedMsg string

func (m Model) updateStats(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "m", "esc":
		ctrl := m.ctrl
		return m, m.run("menu", func(context.Context) error {
			ctrl.ReturnToMenu()
			return nil
		})
	case "r":
		return m, m.run("reload", m.ctrl.OpenStatistics)
	case "e":
		if m.export == nil {
			return m, nil
		}
		export, ctx := m.export, m.ctx
		m.busy = true
		return m, func() tea.Msg {
			path, err := export(ctx)
			if err != nil {
				return actionMsg{what: "export", err: err}
			}
			return exportedMsg(path)
		}
	}
	return m, nil
}

func (m *Model) clampCursor() {
	n := m.screen.Own.Size()
	if m.side == board.Opponent {
		n = m.screen.Opp.Size()
	}
	if n == 0 {
		m.row, m.col = 0, 0
		return
	}
	m.row = min(m.row, n-1)
	m.col = min(m.col, n-1)
}

func (m Model) View() string {
	var body string
	switch m.screen.Phase {
	case session.Menu:
		body = m.viewMenu()
	case session.StatsView:
		body = m.viewStats()
	default:
		body = m.viewGame()
	}
	if m.status != "" {
		st := messageStyle
		if m.failed {
			st = errorStyle
		}
		body = lipgloss.JoinVertical(lipgloss.Left, body, "", st.Render(m.status))
	}
	return body
}

func (m Model) viewMenu() string {
	title := titleStyle.Render("⚓ Broadside")
	var items []string
	for i, mode := range modes {
		label := modeLabel(mode)
		if i == m.modeIdx {
			items = append(items, selectedMenuItemStyle.Render("> "+label))
		} else {
			items = append(items, menuItemStyle.Render(label))
		}
	}
	menu := lipgloss.JoinVertical(lipgloss.Left, items...)
	info := ""
	if modes[m.modeIdx] == api.ModeUserVsMCTS {
		info = "\nBoat placement: " + headingStyle.Render(string(m.placement)) + helpStyle.Render("  (←/→ to change)")
	}
	server := helpStyle.Render("Server: " + m.server)
	help := helpStyle.Render("↑/↓: select • enter: start • s: statistics • q: quit")
	return lipgloss.JoinVertical(lipgloss.Left, title, menu, info, "", server, help)
}

func (m Model) viewGame() string {
	s := m.screen
	interactiveSide := m.side
	var ownCur, oppCur *[2]int
	cur := [2]int{m.row, m.col}
	if s.Phase != session.Autoplay {
		if interactiveSide == board.Self {
			ownCur = &cur
		} else {
			oppCur = &cur
		}
	}
	boards := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.JoinVertical(lipgloss.Left,
			renderBoard(s.Headings.OwnBoard, s.Own, ownCur),
			renderStatus(s.Headings.OwnBoats, s.OwnBoats)),
		"   ",
		lipgloss.JoinVertical(lipgloss.Left,
			renderBoard(s.Headings.OpponentBoard, s.Opp, oppCur),
			renderStatus(s.Headings.OpponentBoats, s.OppBoats)),
	)
	parts := []string{titleStyle.Render(fmt.Sprintf("⚓ Broadside · %s", phaseLabel(s.Phase))), boards, "", messageStyle.Render(s.Message)}
	if s.Analysis.Visible {
		analysis := s.Analysis.Explanation
		if tree := renderTree(s.Analysis.Graph, 12); tree != "" {
			analysis += "\n\n" + tree
		}
		parts = append(parts, "", panelStyle.Render(analysis))
	}
	help := "arrows: move • tab: switch board • enter: fire/place • n: new game • r: refresh • s: stats • m: menu • q: quit"
	if s.Phase == session.Autoplay {
		help = "n: new game • s: stats • m: menu • q: quit"
	}
	parts = append(parts, "", helpStyle.Render(help))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) viewStats() string {
	s := m.screen
	var tables, kpis []string
	for _, cat := range stats.Categories {
		tables = append(tables, renderTable(cat.Title, s.Tables[cat.Mode], 10))
	}
	for _, k := range s.KPIs {
		kpis = append(kpis, renderKPIs(k))
	}
	parts := []string{
		titleStyle.Render("⚓ Broadside · Statistics"),
		lipgloss.JoinHorizontal(lipgloss.Top, tables...),
		lipgloss.JoinHorizontal(lipgloss.Top, kpis...),
		renderChart(s.Chart),
		"",
		helpStyle.Render("r: reload • e: export csv • m: menu • q: quit"),
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func phaseLabel(p session.Phase) string {
	switch p {
	case session.ManualPlacement:
		return "Place your ships"
	case session.Autoplay:
		return "Autoplay"
	default:
		return "Your turn to fire"
	}
}
