package session

import (
	"context"
	"fmt"

	"github.com/brensch/broadside/api"
	"github.com/brensch/broadside/board"
	"github.com/brensch/broadside/decision"
)

// SubmitMove fires at (x, y) on the opponent board.
//
// When the engine answered with a search summary in the user-versus-engine
// mode, the shot is drawn at once with the opponent board locked, the
// thinking message is shown, and the rest of the reply is revealed after
// the thinking delay. The move counts as in flight until that reveal is
// applied or dropped.
func (c *Controller) SubmitMove(ctx context.Context, x, y int) error {
	c.mu.Lock()
	if c.phaseLocked() != ActiveGame {
		c.mu.Unlock()
		return ErrWrongPhase
	}
	if c.moveInFlight {
		c.mu.Unlock()
		return ErrMoveInFlight
	}
	c.moveInFlight = true
	gen := c.gen
	mode := c.mode
	c.mu.Unlock()

	at := api.Coord{X: x, Y: y}
	res, err := c.backend.UserMove(ctx, at)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return ErrStale
	}
	if err != nil {
		c.moveInFlight = false
		c.logger.Error("user move", "at", at.String(), "error", err)
		return fmt.Errorf("user move: %w", err)
	}

	if mode == api.ModeUserVsMCTS && res.Summary != nil {
		c.state.PCBoard = res.PCBoard
		c.state.UserBoats = res.UserBoats
		c.state.PCBoats = res.PCBoats
		c.renderer.Render(res.PCBoard, c.view.Board(board.Opponent), false, board.Opponent)
		board.RenderStatus(res.UserBoats, c.view.Status(board.Self))
		board.RenderStatus(res.PCBoats, c.view.Status(board.Opponent))
		c.message = ThinkingMessage
		c.view.SetMessage(c.message)
		c.reveal = c.sched.AfterFunc(c.cfg.ThinkingDelay, func() { c.revealMove(gen, res) })
		return nil
	}

	c.applyMoveLocked(res)
	c.moveInFlight = false
	return nil
}

func (c *Controller) revealMove(gen uint64, res *api.MoveResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		c.logger.Debug("deferred reveal dropped", "scheduled_gen", gen, "gen", c.gen)
		return
	}
	c.reveal = nil
	c.applyMoveLocked(res)
	c.analysis = Analysis{Explanation: decision.Describe(res.Summary), Visible: true}
	if res.Tree != nil {
		g := decision.FromTree(res.Tree)
		c.analysis.Graph = &g
	}
	c.view.ShowAnalysis(c.analysis)
	c.moveInFlight = false
}

func (c *Controller) applyMoveLocked(res *api.MoveResult) {
	c.state = res.GameState
	c.message = res.Message
	c.view.SetMessage(c.message)
	c.renderLocked()
}

// SubmitPlacement places the next ship between start and end. The pending
// start cell is cleared when the request completes, whatever the outcome.
// Only the own board and own fleet are redrawn.
func (c *Controller) SubmitPlacement(ctx context.Context, start, end api.Coord) error {
	c.mu.Lock()
	if c.phaseLocked() != ManualPlacement {
		c.mu.Unlock()
		return ErrWrongPhase
	}
	if c.placeInFlight {
		c.mu.Unlock()
		return ErrPlacementInFlight
	}
	c.placeInFlight = true
	gen := c.gen
	c.mu.Unlock()

	res, err := c.backend.ManualPlace(ctx, start, end)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return ErrStale
	}
	c.placeInFlight = false
	c.cursor = nil
	if err != nil {
		c.logger.Error("manual place", "start", start.String(), "end", end.String(), "error", err)
		return fmt.Errorf("manual place: %w", err)
	}

	before := c.phaseLocked()
	c.message = res.Message
	if res.UserBoard != nil {
		c.state.UserBoard = res.UserBoard
	}
	if res.UserBoats != nil {
		c.state.UserBoats = res.UserBoats
	}
	if res.ManualPhase != nil {
		c.manualPhase = *res.ManualPhase
		c.state.ManualPhase = *res.ManualPhase
	}
	after := c.phaseLocked()

	c.view.SetMessage(c.message)
	c.renderer.Render(c.state.UserBoard, c.view.Board(board.Self), after == ManualPlacement, board.Self)
	board.RenderStatus(c.state.UserBoats, c.view.Status(board.Self))
	if before != after {
		c.logger.Info("placement finished")
		c.view.ShowPhase(after)
	}
	return nil
}

// placementClick is the two-click sub-protocol: the first click stores the
// start cell, the second submits.
func (c *Controller) placementClick(ctx context.Context, at api.Coord) error {
	c.mu.Lock()
	if c.phaseLocked() != ManualPlacement {
		c.mu.Unlock()
		return ErrWrongPhase
	}
	if c.placeInFlight {
		c.mu.Unlock()
		return ErrPlacementInFlight
	}
	if c.cursor == nil {
		c.cursor = &at
		c.message = PlacementPrompt(at)
		c.view.SetMessage(c.message)
		c.mu.Unlock()
		return nil
	}
	start := *c.cursor
	c.mu.Unlock()
	return c.SubmitPlacement(ctx, start, at)
}
