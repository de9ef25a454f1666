package mmc

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"vawter.tech/stopper"
)

// PortEventKind tells whether a port appeared or disappeared
type PortEventKind int

const (
	PortAdded PortEventKind = iota
	PortRemoved
)

func (k PortEventKind) String() string {
	if k == PortAdded {
		return "added"
	}
	return "removed"
}

// PortEvent reports a serial device hotplug, or a watcher error in Err
type PortEvent struct {
	Kind PortEventKind
	Path string
	Err  error
}

// WatchCleanupFunc stops a watch and waits for its goroutine to exit
type WatchCleanupFunc func() error

// WatchPorts reports serial devices appearing in or disappearing from /dev.
// The channel is closed after the cleanup function is called or ctx ends.
func WatchPorts(ctx context.Context) (<-chan PortEvent, WatchCleanupFunc, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}
	if err := watcher.Add(devDir); err != nil {
		_ = watcher.Close()
		return nil, nil, err
	}

	ch := make(chan PortEvent, 10)
	sctx := stopper.WithContext(ctx)
	sctx.Defer(func() {
		_ = watcher.Close()
		close(ch)
	})

	send := func(ev PortEvent) bool {
		select {
		case ch <- ev:
			return true
		case <-sctx.Stopping():
			return false
		}
	}

	sctx.Go(func(sctx *stopper.Context) error {
		for !sctx.IsStopping() {
			select {
			case <-sctx.Stopping():
				return nil

			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if ev, ok := portEventFrom(event); ok && !send(ev) {
					return nil
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				if err != nil && !send(PortEvent{Err: err}) {
					return nil
				}
			}
		}
		return nil
	})

	cleanup := func() error {
		sctx.Stop(100 * time.Millisecond)
		return sctx.Wait()
	}

	return ch, cleanup, nil
}

// portEventFrom translates a /dev notification into a PortEvent, ignoring
// names that are not serial devices
func portEventFrom(event fsnotify.Event) (PortEvent, bool) {
	if !isSerialName(filepath.Base(event.Name)) {
		return PortEvent{}, false
	}

	switch {
	case event.Has(fsnotify.Create):
		return PortEvent{Kind: PortAdded, Path: event.Name}, true
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return PortEvent{Kind: PortRemoved, Path: event.Name}, true
	default:
		return PortEvent{}, false
	}
}
