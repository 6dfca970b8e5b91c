package session

import (
	"github.com/brensch/broadside/board"
)

// View is everything the controller draws on. Calls happen while the
// controller holds its lock, so implementations must not call back into it
// synchronously.
type View interface {
	ShowPhase(Phase)
	SetMessage(string)
	SetHeadings(Headings)
	Board(side board.Side) board.Surface
	Status(side board.Side) board.StatusSurface
	ShowAnalysis(Analysis)
}

// MultiView fans every call out to several views.
type MultiView []View

func (m MultiView) ShowPhase(p Phase) {
	for _, v := range m {
		v.ShowPhase(p)
	}
}

func (m MultiView) SetMessage(s string) {
	for _, v := range m {
		v.SetMessage(s)
	}
}

func (m MultiView) SetHeadings(h Headings) {
	for _, v := range m {
		v.SetHeadings(h)
	}
}

func (m MultiView) ShowAnalysis(a Analysis) {
	for _, v := range m {
		v.ShowAnalysis(a)
	}
}

func (m MultiView) Board(side board.Side) board.Surface {
	out := make(multiSurface, 0, len(m))
	for _, v := range m {
		if s := v.Board(side); s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m MultiView) Status(side board.Side) board.StatusSurface {
	out := make(multiStatus, 0, len(m))
	for _, v := range m {
		if s := v.Status(side); s != nil {
			out = append(out, s)
		}
	}
	return out
}

type multiSurface []board.Surface

func (m multiSurface) Replace(f board.Frame) {
	for _, s := range m {
		s.Replace(f)
	}
}

type multiStatus []board.StatusSurface

func (m multiStatus) ReplaceStatus(e []board.StatusEntry) {
	for _, s := range m {
		s.ReplaceStatus(e)
	}
}
