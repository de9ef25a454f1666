package motion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHome_ResetsPosition(t *testing.T) {
	fake := newFakeController()
	c := newTestController(t, fake, WithHomeOnStart(false))
	setPosition(c, 0, 500)
	fake.Reset()

	ok, err := c.Home(0)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Zero(t, c.Position(0))
	assert.False(t, c.IsHoming(0))
	assert.Equal(t, -1, c.Active())
	assert.True(t, c.Snapshot()[0].Homed)
	assert.Equal(t, []string{"A8", "-10000"}, fake.Frames()[:2])
	assert.Zero(t, fake.Count("@"), "an axis at rest is not stopped")
}

func TestHome_DistancePerAxis(t *testing.T) {
	fake := newFakeController()
	c := newTestController(t, fake, WithHomeOnStart(false), WithHomeDistances(-200, -300))
	fake.Reset()

	for _, i := range []int{1, 3} {
		ok, err := c.Home(i)
		require.NoError(t, err)
		require.True(t, ok)
	}
	assert.Equal(t, []string{"-300", "-10000"}, fake.Moves())
}

func TestHome_IsHomingWhileRunning(t *testing.T) {
	fake := newFakeController()
	c := newTestController(t, fake, WithHomeOnStart(false))

	var seen []bool
	fake.OnFrame(func(frame string) {
		if frame == "]" {
			seen = append(seen, c.IsHoming(1))
		}
	})

	ok, err := c.Home(1)
	require.NoError(t, err)
	require.True(t, ok)

	require.NotEmpty(t, seen)
	for _, homing := range seen {
		assert.True(t, homing)
	}
	assert.False(t, c.IsHoming(1))
}

func TestHome_SwitchNotReached(t *testing.T) {
	fake := newFakeController()
	fake.noHome[2] = true
	c := newTestController(t, fake, WithHomeOnStart(false))
	setPosition(c, 2, 40)
	fake.Reset()

	ok, err := c.Home(2)
	assert.False(t, ok)
	require.ErrorIs(t, err, ErrHomeNotFound)

	var ae *AxisError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "home", ae.Op)
	assert.Equal(t, 2, ae.Axis)

	assert.Equal(t, 3, fake.Count("@"), "failed home is soft stopped")
	assert.EqualValues(t, 40, c.Position(2), "position untouched by a failed home")
	assert.False(t, c.IsHoming(2))
	assert.False(t, c.Snapshot()[2].Homed)
	assert.Equal(t, -1, c.Active())
	assert.EqualValues(t, 1, c.Metrics().HomeFailCount.Load())
}

func TestHome_Timeout(t *testing.T) {
	fake := newFakeController()
	fake.movePolls = 1 << 20
	fake.stubborn[0] = true
	clock := newFakeClock(time.Second)
	c := newTestController(t, fake,
		WithHomeOnStart(false),
		WithHomeTimeout(5*time.Second),
		withClock(clock.Now),
	)
	fake.Reset()

	ok, err := c.Home(0)
	assert.False(t, ok)
	require.ErrorIs(t, err, ErrHomeTimeout)

	assert.Equal(t, 3, fake.Count("@"))
	assert.False(t, c.IsHoming(0))
	assert.Equal(t, -1, c.Active())
}

func TestHome_StopsAxisStillMoving(t *testing.T) {
	fake := newFakeController()
	c := newTestController(t, fake, WithHomeOnStart(false))
	fake.Script("0", "1", "0")
	fake.Reset()

	ok, err := c.Home(0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, fake.Count("@"))
}

func TestHome_StopUnconfirmed(t *testing.T) {
	fake := newFakeController()
	fake.movePolls = 1 << 20
	fake.stubborn[0] = true
	c := newTestController(t, fake, WithHomeOnStart(false))
	fake.Script("0")
	fake.Reset()

	ok, err := c.Home(0)
	assert.False(t, ok)
	require.ErrorIs(t, err, ErrStopUnconfirmed)

	// initial stop, three reissues and the stop of the failure path
	assert.Equal(t, 15, fake.Count("@"))
	assert.False(t, c.IsHoming(0))
}

func TestHome_ToleratesSilentPolls(t *testing.T) {
	fake := newFakeController()
	c := newTestController(t, fake, WithHomeOnStart(false), WithMaxSilentPolls(2))
	fake.Script("", "", "0")

	ok, err := c.Home(0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, 2, c.Metrics().SilentPollCount.Load())
}

func TestHome_TooManySilentPolls(t *testing.T) {
	fake := newFakeController()
	c := newTestController(t, fake, WithHomeOnStart(false), WithMaxSilentPolls(2))
	fake.Script("", "", "")
	fake.Reset()

	ok, err := c.Home(0)
	assert.False(t, ok)
	require.ErrorIs(t, err, ErrProtocolTimeout)
	assert.Equal(t, 3, fake.Count("@"))
	assert.Equal(t, -1, c.Active())
}

func TestHome_DeniedWhileOtherAxisMoving(t *testing.T) {
	fake := newFakeController()
	c := newTestController(t, fake, WithHomeOnStart(false))
	setActive(c, 0, Moving)
	fake.Reset()

	ok, err := c.Home(1)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrBusy)
	assert.Empty(t, fake.Frames(), "a denied operation sends nothing")
	assert.EqualValues(t, 1, c.Metrics().BusyDenialCount.Load())
	assert.Equal(t, Idle, stateOf(c, 1))
}

func TestHome_DeniedWhileSameAxisBusy(t *testing.T) {
	fake := newFakeController()
	c := newTestController(t, fake, WithHomeOnStart(false))
	setActive(c, 0, Moving)
	fake.Reset()

	ok, err := c.Home(0)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrBusy)
	assert.Empty(t, fake.Frames())
	assert.Equal(t, Moving, stateOf(c, 0))
}
