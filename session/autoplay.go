package session

import (
	"context"
)

// autoplayRun is one engine-versus-engine polling loop. The controller
// holds at most one; a tick whose run is no longer current does nothing.
type autoplayRun struct {
	gen    uint64
	ticker Stopper
	cancel context.CancelFunc
	busy   bool
	ticks  int
}

func (c *Controller) startAutoplayLocked() {
	c.stopAutoplayLocked()
	ctx, cancel := context.WithCancel(c.baseCtx)
	run := &autoplayRun{gen: c.gen, cancel: cancel}
	run.ticker = c.sched.Every(c.cfg.AutoplayInterval, func() { c.autoplayTick(ctx, run) })
	c.autoplay = run
	c.logger.Info("autoplay started", "interval", c.cfg.AutoplayInterval, "gen", c.gen)
}

func (c *Controller) stopAutoplayLocked() {
	run := c.autoplay
	if run == nil {
		return
	}
	c.autoplay = nil
	run.ticker.Stop()
	run.cancel()
	c.logger.Info("autoplay stopped", "ticks", run.ticks, "gen", run.gen)
}

// autoplayTick issues one /auto_move. Ticks never overlap: a tick that
// finds the previous request still outstanding is skipped.
func (c *Controller) autoplayTick(ctx context.Context, run *autoplayRun) {
	c.mu.Lock()
	if c.autoplay != run || run.busy {
		c.mu.Unlock()
		return
	}
	run.busy = true
	run.ticks++
	c.mu.Unlock()

	res, err := c.backend.AutoMove(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	run.busy = false
	if c.autoplay != run {
		return
	}
	if err != nil {
		c.logger.Error("auto move", "tick", run.ticks, "error", err)
		return
	}
	c.state = res.GameState
	c.message = res.Message
	c.view.SetMessage(c.message)
	c.renderLocked()
	if res.GameOver {
		c.logger.Info("autoplay game over", "message", res.Message)
		c.stopAutoplayLocked()
	}
}

// AutoplayActive reports whether a polling loop is running.
func (c *Controller) AutoplayActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autoplay != nil
}
