package motion

import (
	"errors"
	"time"

	"github.com/allbin/go-mmc/logger"
)

// MoveTo moves axis i to an absolute position in steps. Moves toward lower
// positions with a positive backlash overshoot the target by backlash steps
// and approach it from below; the return leg is skipped when Stop was called
// in between. MoveTo is denied with ErrBusy while any axis owns the wire.
func (c *Controller) MoveTo(position int64, i int, backlash int64) error {
	log := c.opLogger("move_to", i)

	delta, locked, err := c.claimMoveTo(position, i, backlash)
	if err != nil {
		c.denied(log, err)
		return axisError("move_to", i, err)
	}
	log.Info("moving", "target", position, "delta", delta, "backlash", backlash)

	if locked {
		err = c.moveRelative(i, delta-backlash, log)
		if err == nil {
			if c.stopQueued(i) {
				log.Info("stop queued, skipping backlash return")
			} else {
				err = c.moveRelative(i, backlash, log)
			}
		}
	} else {
		err = c.moveRelative(i, delta, log)
	}

	if err != nil {
		return axisError("move_to", i, c.abort(i, log, err))
	}

	c.release(i, nil)
	return nil
}

func (c *Controller) claimMoveTo(position int64, i int, backlash int64) (int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.admitLocked(i, false); err != nil {
		return 0, false, err
	}

	a := &c.axes[i]
	a.stopQueued = false
	delta := position - a.position
	locked := delta < 0 && backlash > 0

	a.state = Moving
	if locked {
		a.state = BacklashLocked
	}
	c.active = i
	return delta, locked, nil
}

// MoveRelative moves axis i by steps and waits until the axis has come to
// rest. It is denied with ErrBusy while another axis owns the wire.
func (c *Controller) MoveRelative(steps int64, i int) (bool, error) {
	log := c.opLogger("move_relative", i)

	owned, err := c.claim(i, Moving, true)
	if err != nil {
		c.denied(log, err)
		return false, axisError("move_relative", i, err)
	}
	log.Info("moving", "steps", steps)

	err = c.moveRelative(i, steps, log)
	if !owned {
		return err == nil, axisError("move_relative", i, err)
	}
	if err != nil {
		return false, axisError("move_relative", i, c.abort(i, log, err))
	}

	c.release(i, nil)
	return true, nil
}

// moveRelative sends one relative move for an axis the caller owns. The
// tracked position is updated as soon as the command is on the wire.
func (c *Controller) moveRelative(i int, steps int64, log logger.Logger) error {
	if frame := c.cfg.Protocol.moveFrame(steps); frame != "" {
		if err := c.send(i, c.cfg.InterStepDelay, frame); err != nil {
			return err
		}
		c.metrics.incMoveCount()

		c.mu.Lock()
		c.axes[i].position += steps
		c.mu.Unlock()
		log.Debug("move sent", "steps", steps)
	}

	return c.waitStopped(i)
}

// waitStopped polls axis i until it reports "not moving" notMovingPolls
// times in a row. Any other reply starts the count over.
func (c *Controller) waitStopped(i int) error {
	quiet, silent := 0, 0
	for quiet < notMovingPolls {
		moving, err := c.pollMoving(i)
		switch {
		case errors.Is(err, ErrProtocolTimeout):
			quiet = 0
			silent++
			if silent > c.cfg.MaxSilentPolls {
				return err
			}
		case err != nil:
			return err
		case moving:
			quiet, silent = 0, 0
		default:
			quiet++
			silent = 0
		}

		if quiet < notMovingPolls {
			time.Sleep(c.cfg.PollDelay)
		}
	}
	return nil
}

// Stop soft stops axis i. The stop frame is sent several times since the
// firmware may ignore a single one. A pending MoveTo skips its backlash
// return leg. Stopping an axis while another one owns the wire is denied.
// Readers of the axis table wait while the stop frames are sent.
func (c *Controller) Stop(i int) error {
	log := c.opLogger("stop", i)

	c.mu.Lock()
	err := c.checkLocked()
	if err == nil {
		err = c.validateLocked(i)
	}
	if err == nil && c.active != noAxis && c.active != i {
		c.metrics.incBusyDenialCount()
		err = ErrBusy
	}
	if err != nil {
		c.mu.Unlock()
		c.denied(log, err)
		return axisError("stop", i, err)
	}
	c.axes[i].stopQueued = true

	// The lock is held until the stop is on the wire so no other axis can
	// claim it in between. An owning operation only takes the lock after its
	// own transaction returns.
	err = c.softStop(i)
	c.mu.Unlock()

	if err != nil {
		log.Warn("stop failed", "error", err)
		return axisError("stop", i, err)
	}
	log.Info("stopped")
	return nil
}

func (c *Controller) stopQueued(i int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.axes[i].stopQueued
}
