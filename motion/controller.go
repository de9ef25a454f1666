package motion

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	mmc "github.com/allbin/go-mmc"
	"github.com/allbin/go-mmc/logger"
	"github.com/google/uuid"
)

// noAxis marks the active slot as free
const noAxis = -1

// Controller drives the axes of one motion controller over a shared
// Transport. It is safe for concurrent use.
//
// mu guards the axis table and the active slot. It is held for the
// check-then-set of every operation and for status queries of idle axes,
// never across a polling loop. Lock order is mu before the transport lock.
type Controller struct {
	mu     sync.Mutex
	axes   []axis
	active int
	fault  error

	t       *mmc.Transport
	cfg     Config
	logger  logger.Logger
	metrics ControllerMetrics
}

// Open checks that port exists, acquires its transport from reg and
// creates a controller on it. The transport belongs to reg and stays open
// when construction fails; other users of the port may share it.
func Open(reg *mmc.Registry, port string, opts ...Option) (*Controller, error) {
	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}

	ports, err := cfg.PortLister()
	if err != nil {
		return nil, fmt.Errorf("failed to list ports: %w", err)
	}
	if !slices.Contains(ports, port) {
		return nil, fmt.Errorf("%w: %s", mmc.ErrDeviceNotFound, port)
	}

	t, err := reg.Acquire(port, cfg.TransportOptions...)
	if err != nil {
		return nil, err
	}

	return newController(t, cfg)
}

// New creates a controller on an open transport. It checks the controller
// banner, probes every axis and, unless disabled with WithHomeOnStart, homes
// each live axis. Transport failures and consistency violations abort
// construction; other homing failures are logged and leave the axis un-homed.
func New(t *mmc.Transport, opts ...Option) (*Controller, error) {
	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	return newController(t, cfg)
}

func newController(t *mmc.Transport, cfg Config) (*Controller, error) {
	c := &Controller{
		axes:   make([]axis, cfg.Axes),
		active: noAxis,
		t:      t,
		cfg:    cfg,
		logger: cfg.Logger.With("port", t.Path()),
	}

	if err := c.handshake(); err != nil {
		return nil, err
	}

	for _, i := range probeOrder(cfg.Axes) {
		alive, err := c.probe(i)
		if err != nil {
			return nil, err
		}
		if !alive || !cfg.HomeOnStart {
			continue
		}

		if _, err := c.Home(i); err != nil {
			if errors.Is(err, mmc.ErrTransportUnavailable) || errors.Is(err, ErrConsistencyViolation) {
				return nil, err
			}
			c.logger.Warn("initial home failed", "axis", i, "error", err)
		}
	}

	c.logger.Info("controller ready", "axes", cfg.Axes, "alive", c.aliveCount())
	return c, nil
}

func (c *Controller) handshake() error {
	p := c.cfg.Protocol
	reply, err := c.t.Transact([]mmc.Step{mmc.NewStep(p.Wake, p.ReadSize)}, c.cfg.InterStepDelay)
	if err != nil {
		return err
	}

	if !p.matchBanner(reply) {
		c.logger.Error("unexpected banner", "reply", string(reply))
		return fmt.Errorf("%w: banner %q", ErrProtocolMismatch, reply)
	}

	c.logger.Debug("handshake", "banner", strings.TrimSpace(string(reply)))
	return nil
}

// probe queries the limit status of an axis and records whether it is
// populated. Only transport failures are returned.
func (c *Controller) probe(i int) (bool, error) {
	reply, err := c.query(i, c.cfg.Protocol.LimitQuery)
	if err != nil {
		return false, err
	}

	code, err := parseStatus(reply)
	alive := err == nil && code != c.cfg.Protocol.AbsentCode
	if err != nil {
		c.logger.Warn("axis probe unanswered", "axis", i, "error", err)
	}

	c.mu.Lock()
	c.axes[i].alive = alive
	c.mu.Unlock()

	c.logger.Info("axis probed", "axis", i, "alive", alive, "status", code)
	return alive, nil
}

// Axes returns the number of configured axes
func (c *Controller) Axes() int {
	return len(c.axes)
}

// Transport returns the transport the controller drives
func (c *Controller) Transport() *mmc.Transport {
	return c.t
}

// Metrics returns the live controller counters
func (c *Controller) Metrics() *ControllerMetrics {
	return &c.metrics
}

// Close closes the underlying transport
func (c *Controller) Close() error {
	return c.t.Close()
}

// IsAlive reports whether the axis answered the startup probe
func (c *Controller) IsAlive(i int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inRange(i) && c.axes[i].alive
}

// IsHoming reports whether the axis is running a homing sequence
func (c *Controller) IsHoming(i int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inRange(i) && c.axes[i].state == Homing
}

// Position returns the software tracked position of an axis in steps.
// It is zero after a successful Home.
func (c *Controller) Position(i int) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.inRange(i) {
		return 0
	}
	return c.axes[i].position
}

// Active returns the index of the axis owning the wire, or -1
func (c *Controller) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Fault returns the latched consistency violation, if any
func (c *Controller) Fault() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fault
}

// Snapshot returns a copy of every axis record
func (c *Controller) Snapshot() []AxisStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]AxisStatus, len(c.axes))
	for i := range c.axes {
		out[i] = c.axes[i].status(i)
	}
	return out
}

// IsMoving reports whether an axis is in motion. A backlash maneuver counts
// as motion between its two legs. While another axis owns the wire the last
// known state is returned instead of querying the device, together with
// ErrStaleStatus once it is older than the configured maximum age.
func (c *Controller) IsMoving(i int) (bool, error) {
	c.mu.Lock()
	if err := c.checkLocked(); err != nil {
		c.mu.Unlock()
		return false, axisError("status", i, err)
	}
	if err := c.validateLocked(i); err != nil {
		c.mu.Unlock()
		return false, axisError("status", i, err)
	}

	a := &c.axes[i]
	switch {
	case a.state == BacklashLocked:
		c.mu.Unlock()
		return true, nil

	case c.active != noAxis && c.active != i:
		moving, age := a.lastMoving, c.cfg.clock().Sub(a.lastStatusAt)
		c.mu.Unlock()
		if age > c.cfg.StatusMaxAge {
			return moving, axisError("status", i, ErrStaleStatus)
		}
		return moving, nil

	case c.active == i:
		// The owning operation polls this axis too; share the wire with it.
		c.mu.Unlock()
		moving, err := c.pollMoving(i)
		return moving, axisError("status", i, err)
	}

	// Nothing owns the wire. Keep the table locked so no axis is claimed
	// while this one is selected.
	defer c.mu.Unlock()
	moving, err := c.queryMoving(i)
	if err == nil {
		c.observeLocked(i, moving)
		err = c.checkLocked()
	}
	return moving, axisError("status", i, err)
}

func (c *Controller) inRange(i int) bool {
	return i >= 0 && i < len(c.axes)
}

func (c *Controller) validateLocked(i int) error {
	if !c.inRange(i) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidAxis, i, len(c.axes))
	}
	if !c.axes[i].alive {
		return ErrAxisDead
	}
	return nil
}

// checkLocked verifies that at most one axis is busy and that it is the
// active one. A violation is latched and returned from then on.
func (c *Controller) checkLocked() error {
	if c.fault != nil {
		return c.fault
	}

	homing, moving, stray := 0, 0, noAxis
	for i := range c.axes {
		switch c.axes[i].state {
		case Homing:
			homing++
		case Moving, BacklashLocked:
			moving++
		default:
			continue
		}
		if i != c.active {
			stray = i
		}
	}

	if homing <= 1 && moving <= 1 && stray == noAxis {
		return nil
	}

	c.fault = fmt.Errorf("%w: %d homing, %d moving, active axis %d",
		ErrConsistencyViolation, homing, moving, c.active)
	c.logger.Error("consistency violation",
		"homing", homing, "moving", moving, "active", c.active, "stray", stray)
	return c.fault
}

// admitLocked runs the checks shared by all mutating operations. With
// allowSelf an axis that already owns the wire is admitted again.
func (c *Controller) admitLocked(i int, allowSelf bool) error {
	if err := c.checkLocked(); err != nil {
		return err
	}
	if err := c.validateLocked(i); err != nil {
		return err
	}
	if c.active != noAxis && (c.active != i || !allowSelf) {
		c.metrics.incBusyDenialCount()
		return fmt.Errorf("%w: axis %d is %s", ErrBusy, c.active, c.axes[c.active].state)
	}
	return nil
}

// claim admits an operation on axis i and makes it the active axis in
// the given state. owned is false when the axis already owned the wire; the
// caller must then leave the release to the operation that owns it.
func (c *Controller) claim(i int, state AxisState, allowSelf bool) (owned bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.admitLocked(i, allowSelf); err != nil {
		return false, err
	}
	if c.active == i {
		return false, nil
	}

	c.axes[i].state = state
	c.active = i
	return true, nil
}

// release returns axis i to Idle and frees the active slot. fn, if set,
// runs on the axis record under the same lock.
func (c *Controller) release(i int, fn func(a *axis)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	a := &c.axes[i]
	a.state = Idle
	a.stopQueued = false
	if fn != nil {
		fn(a)
	}
	if c.active == i {
		c.active = noAxis
	}
}

// abort applies the failure policy to an operation that owns axis i: stop
// the axis if possible and free it. Consistency violations are returned
// untouched since the axis table can no longer be trusted.
func (c *Controller) abort(i int, log logger.Logger, err error) error {
	if errors.Is(err, ErrConsistencyViolation) {
		return err
	}

	log.Warn("operation failed", "error", err)
	if stopErr := c.softStop(i); stopErr != nil {
		log.Debug("best-effort stop failed", "error", stopErr)
	}
	c.release(i, nil)
	return err
}

func (c *Controller) denied(log logger.Logger, err error) {
	if errors.Is(err, ErrBusy) {
		log.Info("denied", "reason", err)
		return
	}
	log.Warn("rejected", "error", err)
}

func (c *Controller) opLogger(op string, i int) logger.Logger {
	return c.logger.With("op", op, "op_id", uuid.NewString(), "axis", i)
}

func (c *Controller) aliveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for i := range c.axes {
		if c.axes[i].alive {
			n++
		}
	}
	return n
}
