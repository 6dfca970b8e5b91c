package session

import (
	"context"
	"sync"
	"time"

	"github.com/brensch/broadside/api"
	"github.com/brensch/broadside/board"
	"github.com/brensch/broadside/stats"
)

type fakeBackend struct {
	mu sync.Mutex

	options    []api.Options
	optionsRes *api.GameState
	optionsErr error
	// optionsGate, when set, holds SetOptions until closed; optionsCalled
	// is signalled on entry.
	optionsGate   chan struct{}
	optionsCalled chan struct{}

	starts   int
	startRes *api.GameState
	stateRes *api.GameState

	moves   []api.Coord
	moveRes *api.MoveResult
	moveErr error

	places   [][2]api.Coord
	placeRes []*api.PlacementResult
	placeErr error

	autoMoves int
	autoRes   []*api.AutoMoveResult
	autoErr   error
}

func (f *fakeBackend) Start(context.Context) (*api.GameState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	st := *f.startRes
	return &st, nil
}

func (f *fakeBackend) SetOptions(ctx context.Context, o api.Options) (*api.GameState, error) {
	f.mu.Lock()
	f.options = append(f.options, o)
	gate, called := f.optionsGate, f.optionsCalled
	res, err := f.optionsRes, f.optionsErr
	f.mu.Unlock()
	if called != nil {
		called <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	st := *res
	return &st, nil
}

func (f *fakeBackend) State(context.Context) (*api.GameState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := *f.stateRes
	return &st, nil
}

func (f *fakeBackend) UserMove(_ context.Context, at api.Coord) (*api.MoveResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moves = append(f.moves, at)
	if f.moveErr != nil {
		return nil, f.moveErr
	}
	res := *f.moveRes
	return &res, nil
}

func (f *fakeBackend) ManualPlace(_ context.Context, start, end api.Coord) (*api.PlacementResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.places = append(f.places, [2]api.Coord{start, end})
	if f.placeErr != nil {
		return nil, f.placeErr
	}
	res := f.placeRes[0]
	if len(f.placeRes) > 1 {
		f.placeRes = f.placeRes[1:]
	}
	return res, nil
}

func (f *fakeBackend) AutoMove(context.Context) (*api.AutoMoveResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.autoMoves++
	if f.autoErr != nil {
		return nil, f.autoErr
	}
	res := f.autoRes[0]
	if len(f.autoRes) > 1 {
		f.autoRes = f.autoRes[1:]
	}
	return res, nil
}

func (f *fakeBackend) autoMoveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.autoMoves
}

// fakeScheduler is a manual clock. Callbacks run on the goroutine that
// calls Advance.
type fakeScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
	// ignoreStop lets cancelled callbacks fire anyway, like a timer that
	// had already started when Stop was called.
	ignoreStop bool
}

type fakeTimer struct {
	s       *fakeScheduler
	at      time.Duration
	every   time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() {
	t.s.mu.Lock()
	if !t.s.ignoreStop {
		t.stopped = true
	}
	t.s.mu.Unlock()
}

func (s *fakeScheduler) add(d, every time.Duration, f func()) Stopper {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{s: s, at: s.now + d, every: every, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Stopper { return s.add(d, 0, f) }

func (s *fakeScheduler) Every(d time.Duration, f func()) Stopper { return s.add(d, d, f) }

func (s *fakeScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()
	for {
		s.mu.Lock()
		var next *fakeTimer
		for _, t := range s.timers {
			if t.stopped || t.at > target {
				continue
			}
			if next == nil || t.at < next.at {
				next = t
			}
		}
		if next == nil {
			s.now = target
			s.mu.Unlock()
			return
		}
		s.now = next.at
		if next.every > 0 {
			next.at += next.every
		} else {
			next.stopped = true
		}
		f := next.f
		s.mu.Unlock()
		f()
	}
}

// Active counts timers that can still fire.
func (s *fakeScheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

type recordingView struct {
	mu       sync.Mutex
	phases   []Phase
	messages []string
	headings Headings
	analyses []Analysis

	own, opp     board.Buffer
	ownSt, oppSt board.StatusBuffer
}

func (v *recordingView) ShowPhase(p Phase) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.phases = append(v.phases, p)
}

func (v *recordingView) SetMessage(s string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.messages = append(v.messages, s)
}

func (v *recordingView) SetHeadings(h Headings) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.headings = h
}

func (v *recordingView) ShowAnalysis(a Analysis) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.analyses = append(v.analyses, a)
}

func (v *recordingView) Board(side board.Side) board.Surface {
	if side == board.Self {
		return &v.own
	}
	return &v.opp
}

func (v *recordingView) Status(side board.Side) board.StatusSurface {
	if side == board.Self {
		return &v.ownSt
	}
	return &v.oppSt
}

func (v *recordingView) lastMessage() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.messages) == 0 {
		return ""
	}
	return v.messages[len(v.messages)-1]
}

func (v *recordingView) lastPhase() Phase {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.phases) == 0 {
		return Menu
	}
	return v.phases[len(v.phases)-1]
}

func (v *recordingView) lastAnalysis() (Analysis, int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.analyses) == 0 {
		return Analysis{}, 0
	}
	return v.analyses[len(v.analyses)-1], len(v.analyses)
}

type fakeStats struct {
	mu    sync.Mutex
	loads int
}

func (f *fakeStats) Load(context.Context) (*stats.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	return &stats.Report{}, nil
}

func grid(fill string) api.Board {
	b := make(api.Board, 3)
	for i := range b {
		b[i] = []string{fill, fill, fill}
	}
	return b
}

func boats(sunk ...bool) []api.BoatStatus {
	out := make([]api.BoatStatus, len(sunk))
	for i, s := range sunk {
		out[i] = api.BoatStatus{Ship: string(rune('1' + i)), Sunk: s}
	}
	return out
}

func freshState(manual bool) *api.GameState {
	return &api.GameState{
		Message:     "Game started",
		ManualPhase: manual,
		UserTurn:    true,
		UserBoard:   grid("~"),
		PCBoard:     grid("?"),
		UserBoats:   boats(false, false),
		PCBoats:     boats(false, false),
	}
}

func newTestController(be *fakeBackend) (*Controller, *recordingView, *fakeScheduler, *fakeStats) {
	view := &recordingView{}
	sched := &fakeScheduler{}
	st := &fakeStats{}
	c := New(be, view, WithScheduler(sched), WithStats(st))
	return c, view, sched, st
}
