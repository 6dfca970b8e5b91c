package tui

import (
	"context"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/brensch/broadside/api"
	"github.com/brensch/broadside/board"
	"github.com/brensch/broadside/session"
	"github.com/brensch/broadside/stats"
)

type fakeController struct {
	mu       sync.Mutex
	selected []api.Options
	menus    int
	stats    int
}

func (f *fakeController) SelectMode(_ context.Context, mode api.GameMode, p api.Placement) (*api.GameState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selected = append(f.selected, api.Options{GameMode: mode, BoatPlacement: p})
	return &api.GameState{}, nil
}

func (f *fakeController) NewGame(context.Context) (*api.GameState, error) { return &api.GameState{}, nil }

func (f *fakeController) ReturnToMenu() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.menus++
}

func (f *fakeController) OpenStatistics(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stats++
	return nil
}

func (f *fakeController) Refresh(context.Context) error { return nil }

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, keys ...string) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(key(k))
		m = next.(Model)
	}
	return m, cmd
}

func TestMenu_SelectAutoplayMode(t *testing.T) {
	ctrl := &fakeController{}
	m := NewModel(context.Background(), ctrl, NewBridge(), nil, "http://localhost:5000")

	m, cmd := press(t, m, "down", "right", "enter")
	if cmd == nil {
		t.Fatalf("enter returned no command")
	}
	if msg := cmd(); msg.(actionMsg).err != nil {
		t.Fatalf("select failed: %v", msg)
	}
	want := api.Options{GameMode: api.ModeMCTSVsMLMCTS, BoatPlacement: api.PlacementRandom}
	if len(ctrl.selected) != 1 || ctrl.selected[0] != want {
		t.Fatalf("selected=%+v want=%+v", ctrl.selected, want)
	}
	if !strings.Contains(m.View(), "MCTS vs ML-MCTS") {
		t.Fatalf("menu view missing mode label")
	}
}

func TestMenu_ManualPlacementFocusesOwnBoard(t *testing.T) {
	ctrl := &fakeController{}
	m := NewModel(context.Background(), ctrl, NewBridge(), nil, "")

	m, cmd := press(t, m, "right", "enter")
	cmd()
	if ctrl.selected[0].BoatPlacement != api.PlacementManual {
		t.Fatalf("placement=%q", ctrl.selected[0].BoatPlacement)
	}
	if m.side != board.Self {
		t.Fatalf("side=%q want=%q", m.side, board.Self)
	}
}

func TestGame_EnterClicksFocusedCell(t *testing.T) {
	b := NewBridge()
	var clicks []board.Click
	r := board.NewRenderer(func(c board.Click) { clicks = append(clicks, c) })
	r.Render(api.Board{{"?", "?"}, {"?", "?"}}, b.Board(board.Opponent), true, board.Opponent)
	r.Render(api.Board{{"1", "~"}, {"~", "~"}}, b.Board(board.Self), false, board.Self)
	b.ShowPhase(session.ActiveGame)

	m := NewModel(context.Background(), &fakeController{}, b, nil, "")
	next, _ := m.Update(changedMsg{})
	m = next.(Model)

	m, cmd := press(t, m, "down", "right", "enter")
	cmd()
	if len(clicks) != 1 || clicks[0] != (board.Click{Row: 1, Col: 1, Side: board.Opponent}) {
		t.Fatalf("clicks=%+v", clicks)
	}

	// Clamped at the edge.
	m, _ = press(t, m, "down", "right")
	if m.row != 1 || m.col != 1 {
		t.Fatalf("cursor=%d,%d", m.row, m.col)
	}
	if !strings.Contains(m.View(), "PC Board") {
		t.Fatalf("game view missing heading")
	}
}

func TestBridge_ChartLifecycle(t *testing.T) {
	b := NewBridge()
	d := stats.NewDashboard(staticSource{}, b, nil)
	if _, err := d.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	first := b.chart
	if _, err := d.Load(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !first.destroyed || b.chart == first || b.chart == nil {
		t.Fatalf("chart was not recreated")
	}

	b.ShowPhase(session.StatsView)
	m := NewModel(context.Background(), &fakeController{}, b, nil, "")
	out := m.View()
	for _, want := range []string{"User vs MCTS", "66.7%", "ML-MCTS wins %", "Total: –"} {
		if !strings.Contains(out, want) {
			t.Fatalf("stats view missing %q:\n%s", want, out)
		}
	}
}

type staticSource struct{}

func (staticSource) Stats(context.Context) (*api.StatsResponse, error) {
	return &api.StatsResponse{
		UserVsMCTS: []api.MatchRecord{{Winner: "user", Duration: 10}, {Winner: "MCTS", Duration: 20}, {Winner: "user", Duration: 30}},
	}, nil
}

func TestRenderStatus_SunkMarker(t *testing.T) {
	out := renderStatus("Your Boats", board.StatusEntries([]api.BoatStatus{{Ship: "3"}, {Ship: "2", Sunk: true}}))
	if !strings.Contains(out, "Ship 3") || !strings.Contains(out, board.SunkMarker) {
		t.Fatalf("status=%q", out)
	}
}
