package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/brensch/broadside/api"
	"github.com/brensch/broadside/board"
	"github.com/brensch/broadside/decision"
	"github.com/brensch/broadside/stats"
)

const barWidth = 30

func cellGlyph(c board.Cell) string {
	switch c.Class {
	case board.ShipSegment:
		return shipStyle.Render(c.Code)
	case board.Hit:
		return hitStyle.Render("X")
	case board.Miss:
		return missStyle.Render("•")
	default:
		return waterStyle.Render("~")
	}
}

// renderBoard draws a frame with its heading. cursor is nil when the board
// is not focused.
func renderBoard(heading string, f board.Frame, cursor *[2]int) string {
	var sb strings.Builder
	for i, row := range f.Rows {
		for j, c := range row {
			g := " " + cellGlyph(c) + " "
			if cursor != nil && cursor[0] == i && cursor[1] == j {
				g = cursorStyle.Render(" " + c.Code + " ")
				if c.Code == "" {
					g = cursorStyle.Render("   ")
				}
			}
			sb.WriteString(g)
		}
		if i < len(f.Rows)-1 {
			sb.WriteByte('\n')
		}
	}
	style := boardStyle
	if cursor != nil && f.Interactive {
		style = activeBoardStyle
	}
	return lipgloss.JoinVertical(lipgloss.Left, headingStyle.Render(heading), style.Render(sb.String()))
}

func renderStatus(heading string, entries []board.StatusEntry) string {
	lines := []string{headingStyle.Render(heading)}
	for _, e := range entries {
		if e.Sunk {
			lines = append(lines, sunkStyle.Render(e.Marker+" "+e.Label))
			continue
		}
		lines = append(lines, "  "+e.Label)
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// renderTree prints the search graph as an indented outline from node 0.
func renderTree(g *decision.Graph, maxLines int) string {
	if g == nil || len(g.Nodes) == 0 {
		return ""
	}
	var lines []string
	var walk func(id, depth int)
	walk = func(id, depth int) {
		if len(lines) >= maxLines {
			return
		}
		lines = append(lines, strings.Repeat("  ", depth)+strings.ReplaceAll(g.Nodes[id].Label, "\n", " "))
		for _, c := range g.Children(id) {
			walk(c, depth+1)
		}
	}
	walk(0, 0)
	if len(lines) >= maxLines && len(g.Nodes) > maxLines {
		lines = append(lines, fmt.Sprintf("… %d more nodes", len(g.Nodes)-maxLines))
	}
	return strings.Join(lines, "\n")
}

func renderTable(title string, rows []stats.Row, maxRows int) string {
	lines := []string{headingStyle.Render(title), fmt.Sprintf("%-12s %10s", "Winner", "Duration")}
	start := 0
	if len(rows) > maxRows {
		start = len(rows) - maxRows
	}
	for _, r := range rows[start:] {
		lines = append(lines, fmt.Sprintf("%-12s %10s", r.Winner, r.Duration))
	}
	if len(rows) == 0 {
		lines = append(lines, helpStyle.Render("no matches"))
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func renderKPIs(k stats.CategoryKPI) string {
	lines := []string{headingStyle.Render(k.Title), "Total: " + k.TotalText()}
	for _, w := range k.Winners {
		lines = append(lines, fmt.Sprintf("%-8s wins %6s  mean %6s", w.Name, w.PctText(), w.MeanText()))
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func renderChart(c *stats.ChartData) string {
	if c == nil {
		return ""
	}
	var lines []string
	for i, label := range c.Labels {
		lines = append(lines, headingStyle.Render(label))
		for _, s := range c.Series {
			v := s.Values[i]
			n := 0
			if c.YMax > 0 {
				n = int(v / c.YMax * barWidth)
			}
			bar := lipgloss.NewStyle().Foreground(lipgloss.Color(s.Color)).Render(strings.Repeat("█", n))
			lines = append(lines, fmt.Sprintf("  %-15s %s %.1f%%", s.Label, bar, v))
		}
	}
	return strings.Join(lines, "\n")
}

func modeLabel(m api.GameMode) string {
	switch m {
	case api.ModeUserVsMCTS:
		return "User vs MCTS"
	case api.ModeMCTSVsMLMCTS:
		return "MCTS vs ML-MCTS"
	case api.ModeStatistics:
		return "Statistics"
	}
	return string(m)
}
