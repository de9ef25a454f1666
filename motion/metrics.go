package motion

import "sync/atomic"

// ControllerMetrics contains atomic counters for one controller.
type ControllerMetrics struct {
	// HomeCount counts homing runs started; HomeFailCount those that failed.
	HomeCount     atomic.Uint64
	HomeFailCount atomic.Uint64
	// MoveCount counts relative move commands sent to the wire.
	MoveCount atomic.Uint64
	// StopCount counts soft stop sequences, each made of several frames.
	StopCount atomic.Uint64
	// BusyDenialCount counts operations denied because another axis was busy.
	BusyDenialCount atomic.Uint64
	// PollCount counts status polls; SilentPollCount those left unanswered.
	PollCount       atomic.Uint64
	SilentPollCount atomic.Uint64
}

func (m *ControllerMetrics) incHomeCount() {
	m.HomeCount.Add(1)
}

func (m *ControllerMetrics) incHomeFailCount() {
	m.HomeFailCount.Add(1)
}

func (m *ControllerMetrics) incMoveCount() {
	m.MoveCount.Add(1)
}

func (m *ControllerMetrics) incStopCount() {
	m.StopCount.Add(1)
}

func (m *ControllerMetrics) incBusyDenialCount() {
	m.BusyDenialCount.Add(1)
}

func (m *ControllerMetrics) incPollCount() {
	m.PollCount.Add(1)
}

func (m *ControllerMetrics) incSilentPollCount() {
	m.SilentPollCount.Add(1)
}
