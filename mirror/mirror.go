// Package mirror serves a read-only copy of the session over HTTP: an HTML
// page rendered with the board package, a JSON snapshot and a websocket
// that pushes every change.
package mirror

import (
	"html"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/goccy/go-json"

	"github.com/brensch/broadside/board"
	"github.com/brensch/broadside/session"
)

// BoardState is the JSON form of one rendered board.
type BoardState struct {
	Interactive bool       `json:"interactive"`
	Cells       [][]string `json:"cells"`
	Classes     [][]string `json:"classes"`
}

func boardState(f board.Frame) BoardState {
	bs := BoardState{Interactive: f.Interactive, Cells: make([][]string, len(f.Rows)), Classes: make([][]string, len(f.Rows))}
	for i, row := range f.Rows {
		bs.Cells[i] = make([]string, len(row))
		bs.Classes[i] = make([]string, len(row))
		for j, c := range row {
			bs.Cells[i][j] = c.Code
			bs.Classes[i][j] = c.Class.String()
		}
	}
	return bs
}

// State is what /api/state returns and the websocket pushes.
type State struct {
	Version  uint64              `json:"version"`
	Phase    string              `json:"phase"`
	Message  string              `json:"message"`
	Headings session.Headings    `json:"headings"`
	Own      BoardState          `json:"own_board"`
	Opponent BoardState          `json:"opponent_board"`
	OwnBoats []board.StatusEntry `json:"own_boats"`
	OppBoats []board.StatusEntry `json:"opponent_boats"`
	Analysis session.Analysis    `json:"analysis"`
}

// Mirror is a session.View that republishes every change.
type Mirror struct {
	hub    *Hub
	logger *slog.Logger

	mu       sync.Mutex
	version  uint64
	phase    session.Phase
	message  string
	headings session.Headings
	analysis session.Analysis
	own, opp board.Frame
	ownBoats []board.StatusEntry
	oppBoats []board.StatusEntry
}

func New(hub *Hub, logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mirror{hub: hub, logger: logger.With("component", "mirror"), headings: session.HeadingsFor("")}
}

// update applies f under the lock and publishes the new state.
func (m *Mirror) update(f func()) {
	m.mu.Lock()
	f()
	m.version++
	st := m.stateLocked()
	m.mu.Unlock()
	if m.hub != nil {
		m.hub.Publish(mustMarshal(st))
	}
}

func (m *Mirror) ShowPhase(p session.Phase) { m.update(func() { m.phase = p }) }

func (m *Mirror) SetMessage(s string) { m.update(func() { m.message = s }) }

func (m *Mirror) SetHeadings(h session.Headings) { m.update(func() { m.headings = h }) }

func (m *Mirror) ShowAnalysis(a session.Analysis) { m.update(func() { m.analysis = a }) }

func (m *Mirror) Board(side board.Side) board.Surface { return surface{m, side} }

func (m *Mirror) Status(side board.Side) board.StatusSurface { return statusSurface{m, side} }

type surface struct {
	m    *Mirror
	side board.Side
}

func (s surface) Replace(f board.Frame) {
	s.m.update(func() {
		if s.side == board.Self {
			s.m.own = f
		} else {
			s.m.opp = f
		}
	})
}

type statusSurface struct {
	m    *Mirror
	side board.Side
}

func (s statusSurface) ReplaceStatus(e []board.StatusEntry) {
	e = append([]board.StatusEntry(nil), e...)
	s.m.update(func() {
		if s.side == board.Self {
			s.m.ownBoats = e
		} else {
			s.m.oppBoats = e
		}
	})
}

func (m *Mirror) stateLocked() State {
	return State{
		Version:  m.version,
		Phase:    m.phase.String(),
		Message:  m.message,
		Headings: m.headings,
		Own:      boardState(m.own),
		Opponent: boardState(m.opp),
		OwnBoats: m.ownBoats,
		OppBoats: m.oppBoats,
		Analysis: m.analysis,
	}
}

// State returns the current snapshot.
func (m *Mirror) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

// RegisterRoutes mounts the page, the JSON snapshot and the websocket.
func (m *Mirror) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", m.handleIndex)
	mux.HandleFunc("/api/state", m.handleState)
	if m.hub != nil {
		mux.HandleFunc("/ws", m.hub.serveWS)
	}
}

func withCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (m *Mirror) handleState(w http.ResponseWriter, r *http.Request) {
	withCORS(w)
	if r.Method == http.MethodOptions {
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, m.State())
}

const pageScript = `<script>
const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
ws.onmessage = ev => { const m = JSON.parse(ev.data); if (m.type === "state") location.reload(); };
</script>`

func (m *Mirror) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	m.mu.Lock()
	phase, message, headings, analysis := m.phase, m.message, m.headings, m.analysis
	own, opp := m.own, m.opp
	ownBoats, oppBoats := m.ownBoats, m.oppBoats
	m.mu.Unlock()

	var sb strings.Builder
	sb.WriteString(`<!doctype html><html><head><meta charset="utf-8"><title>Broadside</title></head><body>`)
	sb.WriteString(`<p id="phase">` + html.EscapeString(phase.String()) + `</p>`)
	sb.WriteString(`<p id="message">` + html.EscapeString(message) + `</p>`)
	if phase != session.Menu && phase != session.StatsView {
		section := func(id, boardHeading, boatsHeading string, f board.Frame, boats []board.StatusEntry) {
			sb.WriteString(`<section id="` + id + `">`)
			sb.WriteString(`<h2 class="board-heading">` + html.EscapeString(boardHeading) + `</h2>`)
			sb.WriteString(board.HTML(f))
			sb.WriteString(`<h3 class="boats-heading">` + html.EscapeString(boatsHeading) + `</h3>`)
			sb.WriteString(board.StatusHTML(boats))
			sb.WriteString(`</section>`)
		}
		section("own", headings.OwnBoard, headings.OwnBoats, own, ownBoats)
		section("opponent", headings.OpponentBoard, headings.OpponentBoats, opp, oppBoats)
	}
	if analysis.Visible {
		sb.WriteString(`<p id="explanation">` + html.EscapeString(analysis.Explanation) + `</p>`)
		if analysis.Graph != nil {
			var dot strings.Builder
			if err := analysis.Graph.WriteDOT(&dot); err == nil {
				sb.WriteString(`<pre id="tree">` + html.EscapeString(dot.String()) + `</pre>`)
			}
		}
	}
	sb.WriteString(pageScript)
	sb.WriteString(`</body></html>`)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write([]byte(sb.String())); err != nil {
		m.logger.Debug("write page", "error", err)
	}
}
