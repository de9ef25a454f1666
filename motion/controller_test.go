package motion

import (
	"errors"
	"sync"
	"testing"
	"time"

	mmc "github.com/allbin/go-mmc"
	"github.com/allbin/go-mmc/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNew_HandshakeAndProbeOrder(t *testing.T) {
	fake := newFakeController()
	c := newTestController(t, fake, WithHomeOnStart(false))

	assert.Equal(t, []string{" ", "A8", "]", "A40", "]", "A24", "]", "A56", "]"}, fake.Frames())
	assert.Equal(t, 4, c.Axes())
	for i := 0; i < 4; i++ {
		assert.True(t, c.IsAlive(i), "axis %d", i)
	}
	assert.Equal(t, -1, c.Active())
}

func TestNew_Banners(t *testing.T) {
	tests := []struct {
		name    string
		banner  string
		wantErr bool
	}{
		{"primary", "v2.55\r\n#\r\n", false},
		{"alternate", " v2.55\r\n", false},
		{"padded", "v2.55\r\n", false},
		{"unknown firmware", "v3.01\r\n", true},
		{"silent", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeController()
			fake.banner = tt.banner

			c, err := New(newTestTransport(fake), testOptions(WithHomeOnStart(false))...)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrProtocolMismatch)
				assert.Nil(t, c)
				assert.Equal(t, []string{" "}, fake.Frames(), "no axis traffic after a failed handshake")
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, c)
		})
	}
}

func TestNew_HomesLiveAxes(t *testing.T) {
	fake := newFakeController()
	fake.absent[1] = true
	c := newTestController(t, fake)

	assert.False(t, c.IsAlive(1))
	assert.Equal(t, []string{"-10000", "-5000", "-10000"}, fake.Moves(), "homing in probe order, axis 1 skipped")

	for _, st := range c.Snapshot() {
		assert.Equal(t, st.Alive, st.Homed, "axis %d", st.Index)
		assert.Equal(t, Idle, st.State)
		assert.Zero(t, st.Position)
	}
	assert.EqualValues(t, 3, c.Metrics().HomeCount.Load())
}

func TestNew_DeadAxisRejectsOperations(t *testing.T) {
	fake := newFakeController()
	fake.absent[2] = true
	c := newTestController(t, fake, WithHomeOnStart(false))
	fake.Reset()

	ok, err := c.Home(2)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrAxisDead)

	_, err = c.MoveRelative(10, 2)
	assert.ErrorIs(t, err, ErrAxisDead)

	assert.ErrorIs(t, c.MoveTo(10, 2, 0), ErrAxisDead)
	assert.ErrorIs(t, c.Stop(2), ErrAxisDead)
	assert.Empty(t, fake.Frames())
}

func TestNew_HomeFailureLeavesAxisUsable(t *testing.T) {
	fake := newFakeController()
	fake.noHome[0] = true
	c := newTestController(t, fake)

	st := c.Snapshot()[0]
	assert.True(t, st.Alive)
	assert.False(t, st.Homed)
	assert.Equal(t, Idle, st.State)
	assert.Equal(t, -1, c.Active())
	assert.EqualValues(t, 1, c.Metrics().HomeFailCount.Load())

	ok, err := c.MoveRelative(10, 0)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNew_ClosedTransport(t *testing.T) {
	tr := newTestTransport(newFakeController())
	require.NoError(t, tr.Close())

	_, err := New(tr, testOptions()...)
	assert.ErrorIs(t, err, mmc.ErrTransportUnavailable)
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(newTestTransport(newFakeController()), testOptions(WithAxes(5))...)
	assert.ErrorIs(t, err, mmc.ErrInvalidConfig)
}

func newFakeRegistry(fake *fakeController) *mmc.Registry {
	return mmc.NewRegistry(
		mmc.WithOpener(func(string, mmc.Config) (mmc.Line, error) { return fake, nil }),
		mmc.WithRegistryLogger(logger.Discard()),
		mmc.WithSleep(func(time.Duration) {}),
	)
}

func listing(ports ...string) PortLister {
	return func() ([]string, error) { return ports, nil }
}

func TestOpen(t *testing.T) {
	fake := newFakeController()
	reg := newFakeRegistry(fake)

	c, err := Open(reg, "COM4", testOptions(
		WithPortLister(listing("COM3", "COM4")),
		WithTransportOptions(mmc.WithSettleDelay(0)),
		WithHomeOnStart(false),
	)...)
	require.NoError(t, err)

	tr, err := reg.Acquire("COM4")
	require.NoError(t, err)
	assert.Same(t, tr, c.Transport())

	require.NoError(t, c.Close())
	assert.True(t, tr.IsClosed())
}

func TestOpen_UnknownPort(t *testing.T) {
	reg := newFakeRegistry(newFakeController())

	_, err := Open(reg, "COM9", testOptions(WithPortLister(listing("COM4")))...)
	assert.ErrorIs(t, err, mmc.ErrDeviceNotFound)
	assert.Zero(t, reg.Len(), "no port opened for an unknown identifier")
}

func TestOpen_ListerError(t *testing.T) {
	reg := newFakeRegistry(newFakeController())
	listErr := errors.New("no /dev")

	_, err := Open(reg, "COM4", testOptions(WithPortLister(func() ([]string, error) { return nil, listErr }))...)
	assert.ErrorIs(t, err, listErr)
}

func TestOpen_HandshakeFailureKeepsSharedTransport(t *testing.T) {
	fake := newFakeController()
	fake.banner = "garbage"
	reg := newFakeRegistry(fake)

	shared, err := reg.Acquire("COM4", mmc.WithSettleDelay(0))
	require.NoError(t, err)

	_, err = Open(reg, "COM4", testOptions(
		WithPortLister(listing("COM4")),
		WithTransportOptions(mmc.WithSettleDelay(0)),
	)...)
	require.ErrorIs(t, err, ErrProtocolMismatch)

	assert.False(t, shared.IsClosed(), "transport left to the registry")
	assert.False(t, fake.closed)

	again, err := reg.Acquire("COM4")
	require.NoError(t, err)
	assert.Same(t, shared, again)

	require.NoError(t, reg.CloseAll())
	assert.True(t, fake.closed)
}

func TestConsistencyViolation_Latched(t *testing.T) {
	fake := newFakeController()
	c := newTestController(t, fake, WithHomeOnStart(false))

	setActive(c, 0, Moving)
	c.mu.Lock()
	c.axes[1].state = Moving
	c.mu.Unlock()
	fake.Reset()

	_, err := c.IsMoving(0)
	require.ErrorIs(t, err, ErrConsistencyViolation)
	require.ErrorIs(t, c.Fault(), ErrConsistencyViolation)

	ok, err := c.Home(3)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrConsistencyViolation)

	_, err = c.MoveRelative(10, 2)
	assert.ErrorIs(t, err, ErrConsistencyViolation)
	assert.ErrorIs(t, c.MoveTo(10, 2, 0), ErrConsistencyViolation)
	assert.ErrorIs(t, c.Stop(0), ErrConsistencyViolation)

	assert.Empty(t, fake.Frames(), "nothing is sent once the fault is latched")
	assert.Equal(t, Moving, stateOf(c, 1), "no cleanup after a violation")
}

func TestConsistencyViolation_StrayAxis(t *testing.T) {
	tests := []struct {
		name   string
		active int
		states map[int]AxisState
	}{
		{"busy axis without wire", -1, map[int]AxisState{2: Homing}},
		{"two homing", 0, map[int]AxisState{0: Homing, 3: Homing}},
		{"homing and moving", 1, map[int]AxisState{1: Moving, 2: Homing}},
		{"backlash on other axis", 0, map[int]AxisState{0: Moving, 1: BacklashLocked}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestController(t, newFakeController(), WithHomeOnStart(false))
			c.mu.Lock()
			for i, s := range tt.states {
				c.axes[i].state = s
			}
			c.active = tt.active
			c.mu.Unlock()

			err := c.MoveTo(10, 3, 0)
			assert.ErrorIs(t, err, ErrConsistencyViolation)
		})
	}
}

func TestConsistencyViolation_DetectedWhilePolling(t *testing.T) {
	fake := newFakeController()
	c := newTestController(t, fake, WithHomeOnStart(false))

	// Another axis turns up busy while axis 0 is moving
	fake.OnFrame(func(frame string) {
		if frame == "+100" {
			c.mu.Lock()
			c.axes[3].state = Homing
			c.mu.Unlock()
		}
	})

	ok, err := c.MoveRelative(100, 0)
	assert.False(t, ok)
	require.ErrorIs(t, err, ErrConsistencyViolation)

	assert.Zero(t, fake.Count("@"), "no best-effort stop after a violation")
	assert.Equal(t, Moving, stateOf(c, 0))
	assert.Equal(t, 0, c.Active())
}

func TestIsMoving_QueriesIdleAxis(t *testing.T) {
	fake := newFakeController()
	c := newTestController(t, fake, WithHomeOnStart(false))
	fake.Reset()
	fake.SetMoving(1, 1)

	moving, err := c.IsMoving(1)
	require.NoError(t, err)
	assert.True(t, moving)
	assert.Equal(t, []string{"A24", "^"}, fake.Frames())
	assert.True(t, c.Snapshot()[1].LastMoving)

	moving, err = c.IsMoving(1)
	require.NoError(t, err)
	assert.False(t, moving)
}

func TestIsMoving_CachedWhileOtherAxisBusy(t *testing.T) {
	fake := newFakeController()
	clock := newFakeClock(0)
	c := newTestController(t, fake, WithHomeOnStart(false), withClock(clock.Now))

	fake.SetMoving(1, 1)
	moving, err := c.IsMoving(1)
	require.NoError(t, err)
	require.True(t, moving)

	setActive(c, 0, Moving)
	fake.Reset()

	moving, err = c.IsMoving(1)
	require.NoError(t, err)
	assert.True(t, moving, "last known state while axis 0 owns the wire")
	assert.Empty(t, fake.Frames())

	clock.Advance(DefaultStatusMaxAge + time.Second)
	moving, err = c.IsMoving(1)
	assert.ErrorIs(t, err, ErrStaleStatus)
	assert.True(t, moving, "stale value is still reported")
	assert.Empty(t, fake.Frames())
}

func TestIsMoving_NeverPolledIsStale(t *testing.T) {
	c := newTestController(t, newFakeController(), WithHomeOnStart(false))
	setActive(c, 2, Homing)

	_, err := c.IsMoving(1)
	assert.ErrorIs(t, err, ErrStaleStatus)
}

func TestIsMoving_OwnAxisQueriesWire(t *testing.T) {
	fake := newFakeController()
	c := newTestController(t, fake, WithHomeOnStart(false))
	setActive(c, 2, Homing)
	fake.Reset()

	moving, err := c.IsMoving(2)
	require.NoError(t, err)
	assert.False(t, moving)
	assert.Equal(t, []string{"A40", "^"}, fake.Frames())
}

func TestIsMoving_BacklashLocked(t *testing.T) {
	fake := newFakeController()
	c := newTestController(t, fake, WithHomeOnStart(false))
	setActive(c, 0, BacklashLocked)
	fake.Reset()

	moving, err := c.IsMoving(0)
	require.NoError(t, err)
	assert.True(t, moving)
	assert.Empty(t, fake.Frames())
}

func TestIsMoving_Silent(t *testing.T) {
	fake := newFakeController()
	c := newTestController(t, fake, WithHomeOnStart(false))
	fake.Script("")

	_, err := c.IsMoving(0)
	assert.ErrorIs(t, err, ErrProtocolTimeout)
	assert.EqualValues(t, 1, c.Metrics().SilentPollCount.Load())
}

func TestInvalidAxis(t *testing.T) {
	c := newTestController(t, newFakeController(), WithHomeOnStart(false))

	for _, i := range []int{-1, 4} {
		_, err := c.IsMoving(i)
		assert.ErrorIs(t, err, ErrInvalidAxis)

		ok, err := c.Home(i)
		assert.False(t, ok)
		assert.ErrorIs(t, err, ErrInvalidAxis)

		assert.ErrorIs(t, c.Stop(i), ErrInvalidAxis)
		assert.False(t, c.IsHoming(i))
		assert.False(t, c.IsAlive(i))
		assert.Zero(t, c.Position(i))
	}
}

func TestBusyDenialIsLoggedAtInfo(t *testing.T) {
	log := logger.NewMockLogger()
	log.On("With", mock.Anything).Return(nil)
	log.On("Debug", mock.Anything, mock.Anything).Maybe()
	log.On("Info", mock.Anything, mock.Anything).Maybe()

	c := newTestController(t, newFakeController(), WithHomeOnStart(false), WithLogger(log))
	setActive(c, 0, Moving)

	ok, err := c.Home(1)
	assert.False(t, ok)
	require.ErrorIs(t, err, ErrBusy)

	log.AssertCalled(t, "Info", "denied", mock.Anything)
	log.AssertNotCalled(t, "Warn", mock.Anything, mock.Anything)
}

func TestConcurrentMoves(t *testing.T) {
	fake := newFakeController()
	c := newTestController(t, fake, WithHomeOnStart(false))
	fake.Reset()

	const movesPerAxis = 5
	var wg sync.WaitGroup
	for i := 0; i < c.Axes(); i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for done := 0; done < movesPerAxis; {
				ok, err := c.MoveRelative(10, i)
				if errors.Is(err, ErrBusy) {
					time.Sleep(time.Millisecond)
					continue
				}
				assert.NoError(t, err)
				assert.True(t, ok)
				done++
			}
		}(i)
	}

	stop := make(chan struct{})
	var readers sync.WaitGroup
	readers.Add(1)
	go func() {
		defer readers.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			for i := 0; i < c.Axes(); i++ {
				_, err := c.IsMoving(i)
				assert.NotErrorIs(t, err, ErrConsistencyViolation)
			}
		}
	}()

	wg.Wait()
	close(stop)
	readers.Wait()

	require.NoError(t, c.Fault())
	assert.Equal(t, -1, c.Active())
	for i := 0; i < c.Axes(); i++ {
		assert.EqualValues(t, 10*movesPerAxis, c.Position(i))
	}

	// Every move is preceded by the select frame of its own transaction
	frames := fake.Frames()
	for k, fr := range frames {
		if fr == "+10" {
			require.Positive(t, k)
			assert.Contains(t, fake.proto.AxisSelect, frames[k-1])
		}
	}
}
