package models

import (
	"context"
	"sync/atomic"
	"time"

	mmc "github.com/allbin/go-mmc"
	"github.com/allbin/go-mmc/internal/tui/components"
	"github.com/allbin/go-mmc/motion"
	tea "github.com/charmbracelet/bubbletea"
	"vawter.tech/stopper"
)

// traceBuffer is the number of trace events queued before new ones are dropped
const traceBuffer = 256

// StatusSource is the part of a controller the poller reads
type StatusSource interface {
	Snapshot() []motion.AxisStatus
	Active() int
	Fault() error
}

// Tracer is anything accepting a wire trace hook
type Tracer interface {
	SetTrace(fn func(mmc.TraceEvent))
}

// SnapshotMsg is a periodic copy of the axis table
type SnapshotMsg struct {
	Axes   []motion.AxisStatus
	Active int
	Fault  error
	At     time.Time
}

// Feed runs the background producers of the dashboard. All of them stop
// together when Stop is called or the parent context ends.
type Feed struct {
	sctx    *stopper.Context
	dropped atomic.Uint64
}

func NewFeed(ctx context.Context) *Feed {
	return &Feed{sctx: stopper.WithContext(ctx)}
}

// Poll sends a SnapshotMsg right away and then every interval
func (f *Feed) Poll(src StatusSource, interval time.Duration, send func(tea.Msg)) {
	f.sctx.Go(func(sctx *stopper.Context) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			send(SnapshotMsg{
				Axes:   src.Snapshot(),
				Active: src.Active(),
				Fault:  src.Fault(),
				At:     time.Now(),
			})

			select {
			case <-sctx.Stopping():
				return nil
			case <-sctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	})
}

// Trace installs a hook on t and forwards every event as a
// components.TraceMsg. The hook never blocks the transport; events arriving
// while the queue is full are counted and dropped.
func (f *Feed) Trace(t Tracer, send func(tea.Msg)) {
	ch := make(chan mmc.TraceEvent, traceBuffer)

	t.SetTrace(func(ev mmc.TraceEvent) {
		select {
		case ch <- ev:
		default:
			f.dropped.Add(1)
		}
	})
	f.sctx.Defer(func() { t.SetTrace(nil) })

	f.sctx.Go(func(sctx *stopper.Context) error {
		for {
			select {
			case <-sctx.Stopping():
				return nil
			case <-sctx.Done():
				return nil
			case ev := <-ch:
				send(components.TraceMsg(ev))
			}
		}
	})
}

// Dropped returns the number of trace events lost to a full queue
func (f *Feed) Dropped() uint64 {
	return f.dropped.Load()
}

// Stop stops every producer and waits for them to exit
func (f *Feed) Stop() error {
	f.sctx.Stop(100 * time.Millisecond)
	return f.sctx.Wait()
}
