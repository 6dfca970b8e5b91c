// Package session owns the client side of a match: the mode/phase state
// machine, the move orchestrator with its deferred reveal, manual ship
// placement and the autoplay loop.
//
// All state lives in one Controller. Every mode transition bumps a
// generation counter; replies and deferred callbacks stamped with an older
// generation are dropped.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/brensch/broadside/api"
	"github.com/brensch/broadside/board"
	"github.com/brensch/broadside/stats"
)

// Backend is the game server as seen by the controller. *api.Client
// implements it.
type Backend interface {
	Start(ctx context.Context) (*api.GameState, error)
	SetOptions(ctx context.Context, opts api.Options) (*api.GameState, error)
	State(ctx context.Context) (*api.GameState, error)
	UserMove(ctx context.Context, at api.Coord) (*api.MoveResult, error)
	ManualPlace(ctx context.Context, start, end api.Coord) (*api.PlacementResult, error)
	AutoMove(ctx context.Context) (*api.AutoMoveResult, error)
}

// StatsLoader refreshes the statistics dashboard. *stats.Dashboard
// implements it.
type StatsLoader interface {
	Load(ctx context.Context) (*stats.Report, error)
}

// Config holds the two pacing constants.
type Config struct {
	ThinkingDelay    time.Duration
	AutoplayInterval time.Duration
}

func DefaultConfig() Config {
	return Config{ThinkingDelay: 500 * time.Millisecond, AutoplayInterval: time.Second}
}

// Option configures a Controller.
type Option func(*Controller)

func WithScheduler(s Scheduler) Option { return func(c *Controller) { c.sched = s } }

func WithConfig(cfg Config) Option { return func(c *Controller) { c.cfg = cfg } }

func WithStats(l StatsLoader) Option { return func(c *Controller) { c.stats = l } }

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithContext sets the context used for requests started by board clicks
// and autoplay ticks.
func WithContext(ctx context.Context) Option { return func(c *Controller) { c.baseCtx = ctx } }

type Controller struct {
	backend  Backend
	view     View
	stats    StatsLoader
	sched    Scheduler
	cfg      Config
	logger   *slog.Logger
	baseCtx  context.Context
	renderer *board.Renderer

	mu          sync.Mutex
	screen      screen
	mode        api.GameMode
	placement   api.Placement
	manualPhase bool
	gen         uint64
	state       api.GameState
	message     string
	headings    Headings
	analysis    Analysis
	cursor      *api.Coord

	optionsPending bool
	moveInFlight   bool
	placeInFlight  bool
	reveal         Stopper
	autoplay       *autoplayRun
}

func New(backend Backend, view View, opts ...Option) *Controller {
	c := &Controller{
		backend:  backend,
		view:     view,
		sched:    SystemScheduler{},
		cfg:      DefaultConfig(),
		logger:   slog.Default(),
		baseCtx:  context.Background(),
		headings: HeadingsFor(api.ModeUserVsMCTS),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "session")
	c.renderer = board.NewRenderer(func(cl board.Click) {
		if err := c.HandleClick(c.baseCtx, cl); err != nil {
			c.logger.Debug("click dropped", "row", cl.Row, "col", cl.Col, "side", cl.Side, "error", err)
		}
	})
	return c
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phaseLocked()
}

func (c *Controller) phaseLocked() Phase {
	return derivePhase(c.screen, c.mode, c.placement, c.manualPhase)
}

// resetLocked starts a new generation: it cancels autoplay and any pending
// reveal and forgets the placement cursor and per-request flags. The
// options flag belongs to its own request and is left alone.
func (c *Controller) resetLocked() {
	c.gen++
	c.stopAutoplayLocked()
	if c.reveal != nil {
		c.reveal.Stop()
		c.reveal = nil
	}
	c.moveInFlight = false
	c.placeInFlight = false
	c.cursor = nil
}

// SelectMode confirms mode and placement with the server and switches the
// view. Only one confirmation may be outstanding.
func (c *Controller) SelectMode(ctx context.Context, mode api.GameMode, placement api.Placement) (*api.GameState, error) {
	if mode == "" {
		return nil, ErrNoMode
	}
	placement = EffectivePlacement(mode, placement)

	c.mu.Lock()
	if c.optionsPending {
		c.mu.Unlock()
		return nil, ErrOptionsPending
	}
	c.optionsPending = true
	c.resetLocked()
	gen := c.gen
	c.mu.Unlock()

	st, err := c.backend.SetOptions(ctx, api.Options{GameMode: mode, BoatPlacement: placement})

	c.mu.Lock()
	c.optionsPending = false
	if gen != c.gen {
		c.mu.Unlock()
		return nil, ErrStale
	}
	if err != nil {
		c.mu.Unlock()
		c.logger.Error("set options", "mode", mode, "placement", placement, "error", err)
		return nil, fmt.Errorf("set options: %w", err)
	}
	c.mode = mode
	c.placement = placement
	c.logger.Info("mode confirmed", "mode", mode, "placement", placement, "manual_phase", st.ManualPhase)

	if mode == api.ModeStatistics {
		c.screen = screenStats
		c.manualPhase = false
		c.view.ShowPhase(StatsView)
		c.mu.Unlock()
		return st, c.loadStats(ctx)
	}
	c.enterGameLocked(st)
	c.mu.Unlock()
	return st, nil
}

// NewGame restarts the match with the options the server already holds.
func (c *Controller) NewGame(ctx context.Context) (*api.GameState, error) {
	c.mu.Lock()
	if c.mode == "" || c.mode == api.ModeStatistics {
		c.mu.Unlock()
		return nil, ErrNoMode
	}
	if c.optionsPending {
		c.mu.Unlock()
		return nil, ErrOptionsPending
	}
	c.optionsPending = true
	c.resetLocked()
	gen := c.gen
	c.mu.Unlock()

	st, err := c.backend.Start(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.optionsPending = false
	if gen != c.gen {
		return nil, ErrStale
	}
	if err != nil {
		c.logger.Error("start game", "error", err)
		return nil, fmt.Errorf("start game: %w", err)
	}
	c.enterGameLocked(st)
	return st, nil
}

func (c *Controller) enterGameLocked(st *api.GameState) {
	c.screen = screenGame
	c.state = *st
	c.manualPhase = st.ManualPhase
	c.message = st.Message
	c.headings = HeadingsFor(c.mode)
	c.analysis = Analysis{}

	c.view.SetHeadings(c.headings)
	c.view.ShowPhase(c.phaseLocked())
	c.view.SetMessage(c.message)
	c.renderLocked()
	c.view.ShowAnalysis(c.analysis)

	if c.mode == api.ModeMCTSVsMLMCTS && !st.GameOver {
		c.startAutoplayLocked()
	} else {
		c.stopAutoplayLocked()
	}
}

// ReturnToMenu is valid from any phase.
func (c *Controller) ReturnToMenu() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
	c.screen = screenMenu
	c.manualPhase = false
	c.view.ShowPhase(Menu)
}

// OpenStatistics shows the dashboard without an options round-trip.
func (c *Controller) OpenStatistics(ctx context.Context) error {
	c.mu.Lock()
	c.resetLocked()
	c.screen = screenStats
	c.manualPhase = false
	c.view.ShowPhase(StatsView)
	c.mu.Unlock()
	return c.loadStats(ctx)
}

func (c *Controller) loadStats(ctx context.Context) error {
	if c.stats == nil {
		return nil
	}
	if _, err := c.stats.Load(ctx); err != nil {
		return err
	}
	return nil
}

// Refresh re-reads the match from the server and redraws both boards.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.screen != screenGame {
		c.mu.Unlock()
		return ErrWrongPhase
	}
	gen := c.gen
	c.mu.Unlock()

	st, err := c.backend.State(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return ErrStale
	}
	if err != nil {
		c.logger.Error("refresh state", "error", err)
		return fmt.Errorf("refresh state: %w", err)
	}
	if c.moveInFlight || c.placeInFlight {
		return nil
	}
	c.state = *st
	c.manualPhase = st.ManualPhase
	c.message = st.Message
	c.view.ShowPhase(c.phaseLocked())
	c.view.SetMessage(c.message)
	c.renderLocked()
	return nil
}

// HandleClick routes a board click according to the phase. Clicks the
// phase does not expect are ignored.
func (c *Controller) HandleClick(ctx context.Context, cl board.Click) error {
	at := api.Coord{X: cl.Row, Y: cl.Col}
	switch p := c.Phase(); {
	case p == ManualPlacement && cl.Side == board.Self:
		return c.placementClick(ctx, at)
	case p == ActiveGame && cl.Side == board.Opponent:
		return c.SubmitMove(ctx, at.X, at.Y)
	}
	return nil
}

// renderLocked redraws both boards and both fleet lists from the last
// state, with interactivity taken from the phase.
func (c *Controller) renderLocked() {
	p := c.phaseLocked()
	c.renderer.Render(c.state.UserBoard, c.view.Board(board.Self), p == ManualPlacement, board.Self)
	oppInteractive := (p == ActiveGame && !c.state.GameOver) || p == ManualPlacement
	c.renderer.Render(c.state.PCBoard, c.view.Board(board.Opponent), oppInteractive, board.Opponent)
	board.RenderStatus(c.state.UserBoats, c.view.Status(board.Self))
	board.RenderStatus(c.state.PCBoats, c.view.Status(board.Opponent))
}

// Snapshot is a copy of the session state.
type Snapshot struct {
	Phase             Phase         `json:"phase"`
	Mode              api.GameMode  `json:"mode"`
	Placement         api.Placement `json:"placement"`
	Message           string        `json:"message"`
	Headings          Headings      `json:"headings"`
	State             api.GameState `json:"state"`
	Analysis          Analysis      `json:"analysis"`
	Cursor            *api.Coord    `json:"cursor,omitempty"`
	OptionsPending    bool          `json:"options_pending"`
	MoveInFlight      bool          `json:"move_in_flight"`
	PlacementInFlight bool          `json:"placement_in_flight"`
	AutoplayActive    bool          `json:"autoplay_active"`
	Generation        uint64        `json:"generation"`
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		Phase:             c.phaseLocked(),
		Mode:              c.mode,
		Placement:         c.placement,
		Message:           c.message,
		Headings:          c.headings,
		State:             c.state,
		Analysis:          c.analysis,
		OptionsPending:    c.optionsPending,
		MoveInFlight:      c.moveInFlight,
		PlacementInFlight: c.placeInFlight,
		AutoplayActive:    c.autoplay != nil,
		Generation:        c.gen,
	}
	s.State.UserBoard = c.state.UserBoard.Clone()
	s.State.PCBoard = c.state.PCBoard.Clone()
	if c.cursor != nil {
		cur := *c.cursor
		s.Cursor = &cur
	}
	return s
}
