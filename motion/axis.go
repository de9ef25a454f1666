package motion

import "time"

// AxisState is the motion state of one axis
type AxisState int

const (
	Idle AxisState = iota
	Homing
	Moving
	// BacklashLocked spans both legs of a backlash compensated move.
	BacklashLocked
)

func (s AxisState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Homing:
		return "homing"
	case Moving:
		return "moving"
	case BacklashLocked:
		return "backlash"
	default:
		return "unknown"
	}
}

// Busy reports whether an axis in this state owns the wire
func (s AxisState) Busy() bool {
	return s != Idle
}

// axis is the controller's record of one motor channel. Every field is
// guarded by the controller mutex.
type axis struct {
	alive      bool
	homed      bool
	state      AxisState
	stopQueued bool
	position   int64

	lastMoving   bool
	lastStatusAt time.Time
}

// AxisStatus is a point-in-time copy of an axis record
type AxisStatus struct {
	Index      int
	Alive      bool
	Homed      bool
	State      AxisState
	StopQueued bool
	Position   int64

	LastMoving   bool
	LastStatusAt time.Time
}

func (a *axis) status(index int) AxisStatus {
	return AxisStatus{
		Index:        index,
		Alive:        a.alive,
		Homed:        a.homed,
		State:        a.state,
		StopQueued:   a.stopQueued,
		Position:     a.position,
		LastMoving:   a.lastMoving,
		LastStatusAt: a.lastStatusAt,
	}
}

// probeOrder returns the even axis indices followed by the odd ones
func probeOrder(n int) []int {
	order := make([]int, 0, n)
	for i := 0; i < n; i += 2 {
		order = append(order, i)
	}
	for i := 1; i < n; i += 2 {
		order = append(order, i)
	}
	return order
}
