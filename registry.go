package mmc

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/allbin/go-mmc/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

// Opener opens the physical line for a port identifier
type Opener func(path string, config Config) (Line, error)

// Registry hands out one Transport per port identifier. Lookups are lock
// free; creating a transport is serialized by the registry's own mutex,
// which is never held together with a transport lock.
type Registry struct {
	mu         sync.Mutex
	transports *xsync.MapOf[string, *Transport]

	opener Opener
	reset  USBReset
	logger logger.Logger
	sleep  func(time.Duration)
}

// RegistryOption configures a Registry
type RegistryOption func(*Registry)

// WithOpener replaces the function used to open lines
func WithOpener(opener Opener) RegistryOption {
	return func(r *Registry) {
		r.opener = opener
	}
}

// WithUSBReset replaces the adapter reset used by Recover
func WithUSBReset(reset USBReset) RegistryOption {
	return func(r *Registry) {
		r.reset = reset
	}
}

// WithRegistryLogger sets the logger handed to new transports
func WithRegistryLogger(l logger.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = l
	}
}

// WithSleep replaces time.Sleep for the open backoff and for the transports
// the registry creates
func WithSleep(sleep func(time.Duration)) RegistryOption {
	return func(r *Registry) {
		r.sleep = sleep
	}
}

// NewRegistry creates an empty registry
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		transports: xsync.NewMapOf[string, *Transport](),
		opener:     openLine,
		reset:      ResetUSBDevice,
		logger:     logger.GetLogger(),
		sleep:      time.Sleep,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func openLine(path string, config Config) (Line, error) {
	return openPort(path, config)
}

// Acquire returns the open transport for path, opening the line when no
// usable transport exists. Opening is attempted config.OpenRetries times;
// the returned error matches ErrTransportUnavailable and wraps the last
// open error. Options only apply when a new transport is created.
func (r *Registry) Acquire(path string, opts ...Option) (*Transport, error) {
	if t, ok := r.transports.Load(path); ok && !t.IsClosed() {
		return t, nil
	}

	config, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.transports.Load(path); ok && !t.IsClosed() {
		return t, nil
	}
	return r.createLocked(path, config)
}

// Recover closes the transport for path, resets the USB adapter behind it
// and opens a fresh transport once the port is back. Controllers built on
// the old transport see it closed and must be recreated.
func (r *Registry) Recover(path string, opts ...Option) (*Transport, error) {
	config, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.transports.LoadAndDelete(path); ok && !t.IsClosed() {
		if err := t.Close(); err != nil {
			r.logger.Warn("close before reset failed", "port", path, "error", err)
		}
	}

	r.logger.Info("resetting adapter", "port", path)
	if err := r.reset(path); err != nil {
		return nil, fmt.Errorf("reset %s: %w", path, err)
	}

	return r.createLocked(path, config)
}

func (r *Registry) createLocked(path string, config Config) (*Transport, error) {
	line, err := r.open(path, config)
	if err != nil {
		return nil, err
	}

	if f, ok := line.(interface{ FlushInput() error }); ok {
		if err := f.FlushInput(); err != nil {
			r.logger.Warn("flush input failed", "port", path, "error", err)
		}
	}

	t := NewTransport(path, line, config, r.logger)
	t.sleep = r.sleep
	r.transports.Store(path, t)

	r.logger.Info("transport opened", "port", path, "baud", config.BaudRate)
	return t, nil
}

func (r *Registry) open(path string, config Config) (Line, error) {
	var lastErr error
	for attempt := 1; attempt <= config.OpenRetries; attempt++ {
		line, err := r.opener(path, config)
		if err == nil {
			return line, nil
		}
		lastErr = err
		r.logger.Debug("open failed", "port", path, "attempt", attempt, "error", err)

		if attempt < config.OpenRetries {
			r.sleep(config.OpenBackoff)
		}
	}

	r.logger.Error("port unavailable", "port", path, "attempts", config.OpenRetries, "error", lastErr)
	return nil, &TransportError{Op: "open", Path: path, Err: lastErr}
}

// Len returns the number of transports held, closed ones included
func (r *Registry) Len() int {
	return r.transports.Size()
}

// CloseAll closes every open transport and empties the registry
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	r.transports.Range(func(path string, t *Transport) bool {
		if !t.IsClosed() {
			if err := t.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		r.transports.Delete(path)
		return true
	})

	return errors.Join(errs...)
}
