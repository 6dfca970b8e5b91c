package tui

import (
	"sync"

	"github.com/brensch/broadside/api"
	"github.com/brensch/broadside/board"
	"github.com/brensch/broadside/session"
	"github.com/brensch/broadside/stats"
)

// Bridge is the session and statistics view of the terminal client. The
// controller writes into it under its own lock; the bubbletea model reads
// a copy after every change signal.
type Bridge struct {
	mu       sync.Mutex
	phase    session.Phase
	message  string
	headings session.Headings
	analysis session.Analysis
	own, opp board.Buffer
	ownSt    board.StatusBuffer
	oppSt    board.StatusBuffer

	tables map[api.GameMode][]stats.Row
	kpis   []stats.CategoryKPI
	chart  *barChart

	changed chan struct{}
}

func NewBridge() *Bridge {
	return &Bridge{
		headings: session.HeadingsFor(api.ModeUserVsMCTS),
		tables:   make(map[api.GameMode][]stats.Row),
		changed:  make(chan struct{}, 1),
	}
}

// notify never blocks; pending signals coalesce.
func (b *Bridge) notify() {
	select {
	case b.changed <- struct{}{}:
	default:
	}
}

func (b *Bridge) ShowPhase(p session.Phase) {
	b.mu.Lock()
	b.phase = p
	b.mu.Unlock()
	b.notify()
}

func (b *Bridge) SetMessage(s string) {
	b.mu.Lock()
	b.message = s
	b.mu.Unlock()
	b.notify()
}

func (b *Bridge) SetHeadings(h session.Headings) {
	b.mu.Lock()
	b.headings = h
	b.mu.Unlock()
	b.notify()
}

func (b *Bridge) ShowAnalysis(a session.Analysis) {
	b.mu.Lock()
	b.analysis = a
	b.mu.Unlock()
	b.notify()
}

func (b *Bridge) Board(side board.Side) board.Surface {
	if side == board.Self {
		return notifying{&b.own, b}
	}
	return notifying{&b.opp, b}
}

func (b *Bridge) Status(side board.Side) board.StatusSurface {
	if side == board.Self {
		return notifyingStatus{&b.ownSt, b}
	}
	return notifyingStatus{&b.oppSt, b}
}

type notifying struct {
	buf *board.Buffer
	b   *Bridge
}

func (n notifying) Replace(f board.Frame) {
	n.buf.Replace(f)
	n.b.notify()
}

type notifyingStatus struct {
	buf *board.StatusBuffer
	b   *Bridge
}

func (n notifyingStatus) ReplaceStatus(e []board.StatusEntry) {
	n.buf.ReplaceStatus(e)
	n.b.notify()
}

func (b *Bridge) ReplaceTable(mode api.GameMode, rows []stats.Row) {
	b.mu.Lock()
	b.tables[mode] = append([]stats.Row(nil), rows...)
	b.mu.Unlock()
	b.notify()
}

func (b *Bridge) ShowKPIs(k []stats.CategoryKPI) {
	b.mu.Lock()
	b.kpis = append([]stats.CategoryKPI(nil), k...)
	b.mu.Unlock()
	b.notify()
}

func (b *Bridge) NewChart(data stats.ChartData) stats.Chart {
	c := &barChart{data: data, owner: b}
	b.mu.Lock()
	b.chart = c
	b.mu.Unlock()
	b.notify()
	return c
}

// barChart is the terminal rendition of the win-percentage chart.
type barChart struct {
	data      stats.ChartData
	owner     *Bridge
	destroyed bool
}

func (c *barChart) Destroy() {
	c.owner.mu.Lock()
	defer c.owner.mu.Unlock()
	c.destroyed = true
	if c.owner.chart == c {
		c.owner.chart = nil
	}
}

// Changed is signalled after any update.
func (b *Bridge) Changed() <-chan struct{} { return b.changed }

// Screen is a consistent copy of everything the model draws.
type Screen struct {
	Phase    session.Phase
	Message  string
	Headings session.Headings
	Analysis session.Analysis
	Own, Opp board.Frame
	OwnBoats []board.StatusEntry
	OppBoats []board.StatusEntry
	Tables   map[api.GameMode][]stats.Row
	KPIs     []stats.CategoryKPI
	Chart    *stats.ChartData
}

func (b *Bridge) Screen() Screen {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := Screen{
		Phase:    b.phase,
		Message:  b.message,
		Headings: b.headings,
		Analysis: b.analysis,
		Own:      b.own.Frame(),
		Opp:      b.opp.Frame(),
		OwnBoats: b.ownSt.Entries(),
		OppBoats: b.oppSt.Entries(),
		Tables:   make(map[api.GameMode][]stats.Row, len(b.tables)),
		KPIs:     b.kpis,
	}
	for k, v := range b.tables {
		s.Tables[k] = v
	}
	if b.chart != nil {
		d := b.chart.data
		s.Chart = &d
	}
	return s
}

// Frame returns the current frame of one board, with its click capture.
func (b *Bridge) Frame(side board.Side) board.Frame {
	if side == board.Self {
		return b.own.Frame()
	}
	return b.opp.Frame()
}
