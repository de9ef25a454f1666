package models

import (
	"context"
	"sync"
	"time"

	"github.com/allbin/go-mmc/motion"
	tea "github.com/charmbracelet/bubbletea"
)

// InputMode represents the current input mode (vim-like)
type InputMode int

const (
	InputModeNormal InputMode = iota
	InputModeGoTo
)

func (m InputMode) String() string {
	switch m {
	case InputModeGoTo:
		return "GOTO"
	default:
		return "NORMAL"
	}
}

// ConnectionStatusMsg reports the outcome of opening the controller
type ConnectionStatusMsg struct {
	Connected bool
	Error     error
}

// OpResultMsg reports a finished controller operation
type OpResultMsg struct {
	Op      string
	Axis    int
	Err     error
	Elapsed time.Duration
}

// Operator is the part of a controller the dashboard drives
type Operator interface {
	StatusSource
	Axes() int
	Home(i int) (bool, error)
	MoveTo(position int64, i int, backlash int64) error
	MoveRelative(steps int64, i int) (bool, error)
	Stop(i int) error
}

var _ Operator = (*motion.Controller)(nil)

// ControllerModel holds the connection state shared by the dashboard and
// the goroutines feeding it
type ControllerModel struct {
	controller Operator
	portPath   string

	connected bool
	err       error
	ready     bool
	inputMode InputMode

	snapshot SnapshotMsg

	cancel context.CancelFunc
	ctx    context.Context
	mu     sync.RWMutex
}

func NewControllerModel(portPath string) *ControllerModel {
	ctx, cancel := context.WithCancel(context.Background())

	return &ControllerModel{
		portPath: portPath,
		ctx:      ctx,
		cancel:   cancel,
		snapshot: SnapshotMsg{Active: -1},
	}
}

func (m *ControllerModel) GetController() Operator {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.controller
}

func (m *ControllerModel) SetController(c Operator) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.controller = c
}

func (m *ControllerModel) GetPortPath() string {
	return m.portPath
}

func (m *ControllerModel) IsConnected() bool {
	return m.connected
}

func (m *ControllerModel) SetConnected(connected bool) {
	m.connected = connected
}

func (m *ControllerModel) GetError() error {
	return m.err
}

func (m *ControllerModel) SetError(err error) {
	m.err = err
}

func (m *ControllerModel) IsReady() bool {
	return m.ready
}

func (m *ControllerModel) SetReady(ready bool) {
	m.ready = ready
}

func (m *ControllerModel) Snapshot() SnapshotMsg {
	return m.snapshot
}

func (m *ControllerModel) SetSnapshot(s SnapshotMsg) {
	m.snapshot = s
}

func (m *ControllerModel) GetInputMode() InputMode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.inputMode
}

func (m *ControllerModel) SetInputMode(mode InputMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputMode = mode
}

func (m *ControllerModel) GetContext() context.Context {
	return m.ctx
}

func (m *ControllerModel) Cancel() {
	if m.cancel != nil {
		m.cancel()
	}
}

// Run returns a command running op against the controller and reporting
// an OpResultMsg. Operations block for as long as the axis moves, so they
// never run on the update loop.
func (m *ControllerModel) Run(name string, axis int, op func(c Operator) error) tea.Cmd {
	c := m.GetController()
	if c == nil {
		return nil
	}
	return func() tea.Msg {
		start := time.Now()
		err := op(c)
		return OpResultMsg{Op: name, Axis: axis, Err: err, Elapsed: time.Since(start)}
	}
}

// HomeAll homes every live axis in turn, stopping at the first failure
func HomeAll(c Operator, axes []motion.AxisStatus) error {
	for _, st := range axes {
		if !st.Alive {
			continue
		}
		if _, err := c.Home(st.Index); err != nil {
			return err
		}
	}
	return nil
}

// StopAll soft stops every live axis and returns the first error. While an
// axis owns the wire only that one can be stopped.
func StopAll(c Operator, axes []motion.AxisStatus) error {
	if active := c.Active(); active >= 0 {
		return c.Stop(active)
	}

	var first error
	for _, st := range axes {
		if !st.Alive {
			continue
		}
		if err := c.Stop(st.Index); err != nil && first == nil {
			first = err
		}
	}
	return first
}
