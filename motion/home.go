package motion

import (
	"errors"
	"fmt"
	"time"

	"github.com/allbin/go-mmc/logger"
)

// Home drives axis i toward its home switch and zeroes its position once
// the switch is reached. It returns false with ErrBusy, sending nothing,
// while any axis owns the wire, axis i included: an axis that is already
// homing or moving is not homed again. On failure the axis is stopped and
// freed.
func (c *Controller) Home(i int) (bool, error) {
	log := c.opLogger("home", i)

	if _, err := c.claim(i, Homing, false); err != nil {
		c.denied(log, err)
		return false, axisError("home", i, err)
	}

	c.metrics.incHomeCount()
	log.Info("homing", "distance", c.cfg.homeDistance(i))

	if err := c.home(i, log); err != nil {
		c.metrics.incHomeFailCount()
		return false, axisError("home", i, c.abort(i, log, err))
	}

	c.release(i, func(a *axis) {
		a.position = 0
		a.homed = true
	})
	log.Info("homed")
	return true, nil
}

func (c *Controller) home(i int, log logger.Logger) error {
	p := c.cfg.Protocol

	if err := c.send(i, c.cfg.InterStepDelay, p.moveFrame(c.cfg.homeDistance(i))); err != nil {
		return err
	}
	c.metrics.incMoveCount()

	deadline := c.cfg.clock().Add(c.cfg.HomeTimeout)
	silent := 0
	for {
		if c.cfg.clock().After(deadline) {
			return fmt.Errorf("%w after %v", ErrHomeTimeout, c.cfg.HomeTimeout)
		}

		moving, limit, err := c.homeStatus(i)
		if errors.Is(err, ErrProtocolTimeout) {
			silent++
			if silent > c.cfg.MaxSilentPolls {
				return err
			}
			time.Sleep(c.cfg.PollDelay)
			continue
		}
		if err != nil {
			return err
		}
		silent = 0

		if moving {
			continue
		}
		if !p.isHome(limit) {
			return fmt.Errorf("%w: limit status %q", ErrHomeNotFound, limit)
		}
		log.Debug("home switch reached", "limit", string(limit))
		break
	}

	return c.confirmStopped(i, log)
}

// homeStatus polls the moving state, waits one poll delay and polls the
// limit switch status
func (c *Controller) homeStatus(i int) (bool, []byte, error) {
	moving, err := c.pollMoving(i)
	if err != nil {
		return false, nil, err
	}

	time.Sleep(c.cfg.PollDelay)

	limit, err := c.pollLimit(i)
	if err != nil {
		return false, nil, err
	}
	return moving, limit, nil
}

// confirmStopped makes sure axis i came to rest after reaching home. An axis
// still reporting motion is soft stopped; the stop is reissued each time
// motion persists for more than StopRetries polls, at most StopRetries times.
func (c *Controller) confirmStopped(i int, log logger.Logger) error {
	movingPolls, restops, silent := 0, 0, 0
	for {
		moving, err := c.pollMoving(i)
		if errors.Is(err, ErrProtocolTimeout) {
			silent++
			if silent > c.cfg.MaxSilentPolls {
				return err
			}
			time.Sleep(c.cfg.PollDelay)
			continue
		}
		if err != nil {
			return err
		}
		silent = 0

		if !moving {
			return nil
		}
		movingPolls++

		switch {
		case movingPolls == 1:
			log.Warn("axis still moving at home, stopping")
			if err := c.softStop(i); err != nil {
				return err
			}

		case movingPolls > c.cfg.StopRetries:
			if restops == c.cfg.StopRetries {
				return fmt.Errorf("%w after %d stops", ErrStopUnconfirmed, restops+1)
			}
			restops++
			log.Warn("axis ignores stop, reissuing", "attempt", restops)
			if err := c.softStop(i); err != nil {
				return err
			}
			movingPolls = 1
		}

		time.Sleep(c.cfg.StopDelay)
	}
}
