// Package board turns server grids into renderable frames.
//
// A Renderer never holds game logic: it classifies every cell from its code
// and, for interactive frames, forwards clicks to whoever built it.
package board

import (
	"sync"

	"github.com/brensch/broadside/api"
)

// Class is the visual category of a cell.
type Class int

const (
	Water Class = iota
	ShipSegment
	Hit
	Miss
)

// String returns the css-style class name of the category.
func (c Class) String() string {
	switch c {
	case ShipSegment:
		return "ship-cell"
	case Hit:
		return "hit"
	case Miss:
		return "miss"
	default:
		return "empty"
	}
}

// Classify maps a cell code to its class: digits are ship segments, "X" a
// hit, "O" a miss and anything else water.
func Classify(code string) Class {
	switch code {
	case "X":
		return Hit
	case "O":
		return Miss
	}
	if isDigits(code) {
		return ShipSegment
	}
	return Water
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Side tells the two boards of a session apart.
type Side string

const (
	Self     Side = "self"
	Opponent Side = "opponent"
)

// Click is a captured cell click.
type Click struct {
	Row  int
	Col  int
	Side Side
}

// Cell is one rendered grid position.
type Cell struct {
	Row   int
	Col   int
	Code  string
	Class Class
}

// Frame is the full content of a board surface.
type Frame struct {
	Side        Side
	Interactive bool
	Rows        [][]Cell

	capture func(row, col int)
}

// Click forwards a click on (row, col) to the renderer's handler. It reports
// false when the frame is static or the position is outside the grid.
func (f Frame) Click(row, col int) bool {
	if !f.Interactive || f.capture == nil {
		return false
	}
	if row < 0 || row >= len(f.Rows) || col < 0 || col >= len(f.Rows[row]) {
		return false
	}
	f.capture(row, col)
	return true
}

// Size returns the number of rows in the frame.
func (f Frame) Size() int { return len(f.Rows) }

// Surface receives whole frames. Replace must drop the previous content.
type Surface interface {
	Replace(Frame)
}

// Renderer builds frames and wires click capture for interactive ones.
type Renderer struct {
	onClick func(Click)
}

// NewRenderer returns a Renderer that reports clicks to onClick.
func NewRenderer(onClick func(Click)) *Renderer {
	return &Renderer{onClick: onClick}
}

// Render classifies every cell of b and replaces the content of s.
func (r *Renderer) Render(b api.Board, s Surface, interactive bool, side Side) {
	if s == nil {
		return
	}
	f := BuildFrame(b, side)
	if interactive && r != nil && r.onClick != nil {
		f.Interactive = true
		handler := r.onClick
		f.capture = func(row, col int) {
			handler(Click{Row: row, Col: col, Side: side})
		}
	}
	s.Replace(f)
}

// BuildFrame classifies a board without attaching any click capture.
func BuildFrame(b api.Board, side Side) Frame {
	rows := make([][]Cell, len(b))
	for i, row := range b {
		rows[i] = make([]Cell, len(row))
		for j, code := range row {
			rows[i][j] = Cell{Row: i, Col: j, Code: code, Class: Classify(code)}
		}
	}
	return Frame{Side: side, Rows: rows}
}

// Buffer is an in-memory Surface that keeps the last frame.
type Buffer struct {
	mu      sync.Mutex
	frame   Frame
	renders int
}

func (b *Buffer) Replace(f Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frame = f
	b.renders++
}

// Frame returns the most recent frame.
func (b *Buffer) Frame() Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frame
}

// Renders counts Replace calls.
func (b *Buffer) Renders() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.renders
}
