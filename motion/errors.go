package motion

import (
	"errors"
	"fmt"
)

var (
	// ErrProtocolMismatch is returned when the controller greeting or a
	// reply does not match the expected vocabulary.
	ErrProtocolMismatch = errors.New("protocol mismatch")
	// ErrProtocolTimeout is returned when the controller did not answer
	// within the line timeout.
	ErrProtocolTimeout = errors.New("protocol timeout")

	// ErrBusy is returned when another axis is homing or moving. No frames
	// were sent; the call may be retried later.
	ErrBusy = errors.New("another axis is busy")

	// ErrConsistencyViolation means more than one axis was found active.
	// It is latched by the controller and never cleared.
	ErrConsistencyViolation = errors.New("axis consistency violation")

	ErrInvalidAxis     = errors.New("invalid axis")
	ErrAxisDead        = errors.New("axis not present")
	ErrHomeNotFound    = errors.New("home switch not reached")
	ErrHomeTimeout     = errors.New("homing timed out")
	ErrStopUnconfirmed = errors.New("axis did not stop")

	// ErrStaleStatus is returned with a cached moving state that is older
	// than the configured maximum age.
	ErrStaleStatus = errors.New("cached status is stale")
)

// AxisError records a failed controller operation on an axis
type AxisError struct {
	Op   string
	Axis int
	Err  error
}

func (e *AxisError) Error() string {
	return fmt.Sprintf("motion: %s axis %d: %v", e.Op, e.Axis, e.Err)
}

func (e *AxisError) Unwrap() error {
	return e.Err
}

func axisError(op string, axis int, err error) error {
	if err == nil {
		return nil
	}
	var ae *AxisError
	if errors.As(err, &ae) && ae.Op == op && ae.Axis == axis {
		return err
	}
	return &AxisError{Op: op, Axis: axis, Err: err}
}
