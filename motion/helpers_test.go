package motion

import (
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	mmc "github.com/allbin/go-mmc"
	"github.com/allbin/go-mmc/logger"
	"github.com/stretchr/testify/require"
)

// fakeController emulates the firmware of a multi-axis controller on the
// far end of a serial line. It tracks the selected axis, answers status
// queries and records every frame it receives.
type fakeController struct {
	mu sync.Mutex

	proto  Protocol
	banner string

	absent   map[int]bool // limit query answers the absent code
	noHome   map[int]bool // limit query never reports the home marker
	stubborn map[int]bool // soft stop is ignored

	movePolls int         // polls reporting motion after a move command
	moving    map[int]int // remaining moving polls per axis
	script    []string    // scripted moving replies, consumed first; "" is silence
	stopReply string

	selected int
	frames   []string
	pending  []byte
	closed   bool

	onFrame func(frame string)
}

func newFakeController() *fakeController {
	return &fakeController{
		proto:     DefaultProtocol(),
		banner:    "v2.55\r\n#\r\n",
		absent:    make(map[int]bool),
		noHome:    make(map[int]bool),
		stubborn:  make(map[int]bool),
		moving:    make(map[int]int),
		movePolls: 2,
		selected:  -1,
	}
}

func (f *fakeController) Write(p []byte) (int, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return 0, io.ErrClosedPipe
	}

	var received []string
	for _, frame := range strings.Split(string(p), "\r") {
		if frame == "" {
			continue
		}
		f.frames = append(f.frames, frame)
		f.handle(frame)
		received = append(received, frame)
	}
	hook := f.onFrame
	f.mu.Unlock()

	if hook != nil {
		for _, frame := range received {
			hook(frame)
		}
	}
	return len(p), nil
}

func (f *fakeController) handle(frame string) {
	f.pending = nil

	switch {
	case frame == f.proto.Wake:
		f.pending = []byte(f.banner)

	case frame == f.proto.MovingQuery:
		if len(f.script) > 0 {
			reply := f.script[0]
			f.script = f.script[1:]
			if reply != "" {
				f.pending = []byte(reply + "\r\n")
			}
			return
		}
		if f.moving[f.selected] > 0 {
			f.moving[f.selected]--
			f.pending = []byte("1\r\n")
			return
		}
		f.pending = []byte("0\r\n")

	case frame == f.proto.LimitQuery:
		switch {
		case f.absent[f.selected]:
			f.pending = []byte("34\r\n")
		case f.noHome[f.selected]:
			f.pending = []byte("0\r\n")
		default:
			f.pending = []byte("32\r\n")
		}

	case frame == f.proto.SoftStop:
		if !f.stubborn[f.selected] {
			f.moving[f.selected] = 0
		}
		if f.stopReply != "" {
			f.pending = []byte(f.stopReply)
		}

	case strings.HasPrefix(frame, f.proto.MoveForward), strings.HasPrefix(frame, f.proto.MoveBackward):
		f.moving[f.selected] = f.movePolls

	default:
		for i, sel := range f.proto.AxisSelect {
			if frame == sel {
				f.selected = i
			}
		}
	}
}

func (f *fakeController) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := copy(p, f.pending)
	f.pending = f.pending[n:]
	return n, nil
}

func (f *fakeController) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Frames returns the frames received so far, terminators stripped
func (f *fakeController) Frames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.frames...)
}

// Count returns how often frame was received
func (f *fakeController) Count(frame string) int {
	n := 0
	for _, fr := range f.Frames() {
		if fr == frame {
			n++
		}
	}
	return n
}

// Moves returns the relative move frames received, in order
func (f *fakeController) Moves() []string {
	var moves []string
	for _, fr := range f.Frames() {
		if strings.HasPrefix(fr, f.proto.MoveForward) || strings.HasPrefix(fr, f.proto.MoveBackward) {
			moves = append(moves, fr)
		}
	}
	return moves
}

func (f *fakeController) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = nil
}

func (f *fakeController) Script(replies ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.script = append(f.script, replies...)
}

func (f *fakeController) SetMoving(axis, polls int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moving[axis] = polls
}

func (f *fakeController) OnFrame(hook func(frame string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onFrame = hook
}

// fakeClock advances by step on every reading
type fakeClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func newFakeClock(step time.Duration) *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), step: step}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func withClock(now func() time.Time) Option {
	return func(c *Config) error {
		c.clock = now
		return nil
	}
}

func newTestTransport(line mmc.Line) *mmc.Transport {
	cfg := mmc.DefaultConfig()
	cfg.SettleDelay = 0
	return mmc.NewTransport("COM4", line, cfg, logger.Discard())
}

// testOptions disables every delay so tests run at wire speed
func testOptions(opts ...Option) []Option {
	base := []Option{
		WithLogger(logger.Discard()),
		WithInterStepDelay(0),
		WithPollDelay(0),
		WithStopDelay(0),
	}
	return append(base, opts...)
}

func newTestController(t *testing.T, fake *fakeController, opts ...Option) *Controller {
	t.Helper()

	c, err := New(newTestTransport(fake), testOptions(opts...)...)
	require.NoError(t, err)
	return c
}

// setActive puts axis i into state and hands it the wire, bypassing the
// controller operations
func setActive(c *Controller, i int, state AxisState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.axes[i].state = state
	c.active = i
}

func setPosition(c *Controller, i int, pos int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.axes[i].position = pos
}

func stateOf(c *Controller, i int) AxisState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.axes[i].state
}

// lockHeld reports whether some goroutine holds the controller lock
func lockHeld(c *Controller) bool {
	if c.mu.TryLock() {
		c.mu.Unlock()
		return false
	}
	return true
}
