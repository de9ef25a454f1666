// Package motion drives a multi-axis stepper controller that shares one
// serial line between all of its axes.
//
// Only one axis may own the wire at a time: every command is preceded by an
// axis-select frame, so selecting a second axis while the first is still
// being driven would desynchronize the controller. The Controller enforces
// this with a single active-axis slot. Operations on other axes are denied
// with ErrBusy and send nothing.
//
//	reg := mmc.NewRegistry()
//	ctrl, err := motion.Open(reg, "/dev/ttyUSB0", motion.WithAxes(4))
//	if err != nil {
//	    return err
//	}
//	defer ctrl.Close()
//
//	if err := ctrl.MoveTo(1200, 0, 50); errors.Is(err, motion.ErrBusy) {
//	    // another axis is homing or moving; try again later
//	}
//
// Positions are tracked in software and reset to zero by a successful
// Home. A ConsistencyViolation means the controller's view of which axis
// owns the wire can no longer be trusted. It is latched, and every later
// call returns it.
package motion
