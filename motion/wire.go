package motion

import (
	"bytes"
	"errors"
	"time"

	mmc "github.com/allbin/go-mmc"
)

// stopRepeats is how often the soft stop frame is sent per stop. The
// firmware does not reliably honor a single one.
const stopRepeats = 3

// query selects axis i and sends frame in one transaction, returning the reply
func (c *Controller) query(i int, frame string) ([]byte, error) {
	p := c.cfg.Protocol
	return c.t.Transact([]mmc.Step{
		mmc.NewStep(p.AxisSelect[i], 0),
		mmc.NewStep(frame, p.ReadSize),
	}, c.cfg.InterStepDelay)
}

// send selects axis i and sends frames in one transaction, delay apart
func (c *Controller) send(i int, delay time.Duration, frames ...string) error {
	p := c.cfg.Protocol
	steps := make([]mmc.Step, 0, len(frames)+1)
	steps = append(steps, mmc.NewStep(p.AxisSelect[i], 0))
	for _, f := range frames {
		steps = append(steps, mmc.NewStep(f, p.ReadSize))
	}

	_, err := c.t.Transact(steps, delay)
	return err
}

func (c *Controller) softStop(i int) error {
	c.metrics.incStopCount()

	frames := make([]string, stopRepeats)
	for k := range frames {
		frames[k] = c.cfg.Protocol.SoftStop
	}
	return c.send(i, c.cfg.StopDelay, frames...)
}

// queryMoving asks the device whether axis i moves, without touching the
// axis table
func (c *Controller) queryMoving(i int) (bool, error) {
	c.metrics.incPollCount()

	reply, err := c.query(i, c.cfg.Protocol.MovingQuery)
	if err != nil {
		return false, err
	}

	v, err := parseStatus(reply)
	if err != nil {
		if errors.Is(err, ErrProtocolTimeout) {
			c.metrics.incSilentPollCount()
		}
		return false, err
	}
	return v != 0, nil
}

// pollMoving queries axis i, records the answer and verifies the axis
// table before the answer is used
func (c *Controller) pollMoving(i int) (bool, error) {
	moving, err := c.queryMoving(i)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.observeLocked(i, moving)
	if err := c.checkLocked(); err != nil {
		return false, err
	}
	return moving, nil
}

func (c *Controller) pollLimit(i int) ([]byte, error) {
	c.metrics.incPollCount()

	reply, err := c.query(i, c.cfg.Protocol.LimitQuery)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(reply)) == 0 {
		c.metrics.incSilentPollCount()
		return nil, ErrProtocolTimeout
	}
	return reply, nil
}

func (c *Controller) observeLocked(i int, moving bool) {
	c.axes[i].lastMoving = moving
	c.axes[i].lastStatusAt = c.cfg.clock()
}
