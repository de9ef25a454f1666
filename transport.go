package mmc

import (
	"io"
	"sync"
	"time"

	"github.com/allbin/go-mmc/logger"
)

// Line is the physical line a Transport drives. Read returning (0, nil)
// means the line timeout elapsed without data.
type Line interface {
	io.ReadWriteCloser
}

// Step is one write/read pair of a transaction. A zero ReadSize skips the read.
type Step struct {
	Frame    []byte
	ReadSize int
}

// NewStep builds a Step from a command word
func NewStep(frame string, readSize int) Step {
	return Step{Frame: []byte(frame), ReadSize: readSize}
}

// TraceDirection tells whether a traced payload was sent or received
type TraceDirection int

const (
	TraceTX TraceDirection = iota
	TraceRX
)

// TraceEvent is delivered to the trace hook for every frame written and
// every payload read, in wire order
type TraceEvent struct {
	Port      string
	Direction TraceDirection
	Data      []byte
	Timestamp time.Time
}

// Transport serializes all traffic to one serial line. Every exported
// operation holds the transport lock for its whole duration, so a Transact
// is never interleaved with another caller's bytes.
type Transport struct {
	mu     sync.Mutex
	path   string
	line   Line
	config Config
	closed bool
	trace  func(TraceEvent)

	logger  logger.Logger
	metrics TransportMetrics

	sleep func(time.Duration)
}

// NewTransport wraps an already open line. Most callers obtain transports
// from a Registry instead.
func NewTransport(path string, line Line, config Config, log logger.Logger) *Transport {
	if log == nil {
		log = logger.GetLogger()
	}
	if config.ReadSize <= 0 {
		config.ReadSize = DefaultReadSize
	}
	if config.Terminator == "" {
		config.Terminator = DefaultTerminator
	}

	return &Transport{
		path:   path,
		line:   line,
		config: config,
		logger: log.With("port", path),
		sleep:  time.Sleep,
	}
}

// Path returns the port identifier
func (t *Transport) Path() string {
	return t.path
}

// Config returns the transport configuration
func (t *Transport) Config() Config {
	return t.config
}

// Metrics returns the live transport counters
func (t *Transport) Metrics() *TransportMetrics {
	return &t.metrics
}

// SetTrace installs a hook receiving every frame and payload. The hook runs
// with the transport lock held and must not call back into the transport.
func (t *Transport) SetTrace(fn func(TraceEvent)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.trace = fn
}

// IsClosed reports whether Close has been called
func (t *Transport) IsClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Write sends frame followed by the line terminator and returns the number
// of bytes written, terminator included
func (t *Transport) Write(frame []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, &TransportError{Op: "write", Path: t.path}
	}

	return t.writeLocked(frame)
}

// Read waits for the settle delay, then reads up to maxSize bytes. Fewer
// bytes than requested is not an error; maxSize <= 0 uses the configured
// read size.
func (t *Transport) Read(maxSize int) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, &TransportError{Op: "read", Path: t.path}
	}

	t.sleep(t.config.SettleDelay)
	return t.readLocked(maxSize)
}

// Transact runs steps as one indivisible exchange: for each step the frame
// is written, the transport sleeps max(interStepDelay, settle delay), reads
// up to the step's ReadSize and sleeps again. It returns the payload of the
// last read performed.
func (t *Transport) Transact(steps []Step, interStepDelay time.Duration) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, &TransportError{Op: "transact", Path: t.path}
	}

	delay := max(interStepDelay, t.config.SettleDelay)

	t.metrics.incTransactions()

	var last []byte
	for _, step := range steps {
		if _, err := t.writeLocked(step.Frame); err != nil {
			return nil, err
		}
		t.sleep(delay)

		if step.ReadSize > 0 {
			payload, err := t.readLocked(step.ReadSize)
			if err != nil {
				return nil, err
			}
			last = payload
		}
		t.sleep(delay)
	}

	return last, nil
}

// Close closes the underlying line. Any later call, Close included, fails
// with ErrTransportUnavailable.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return &TransportError{Op: "close", Path: t.path}
	}

	t.closed = true
	t.logger.Debug("close")

	if err := t.line.Close(); err != nil {
		return &TransportError{Op: "close", Path: t.path, Err: err}
	}
	return nil
}

func (t *Transport) writeLocked(frame []byte) (int, error) {
	data := make([]byte, 0, len(frame)+len(t.config.Terminator))
	data = append(data, frame...)
	data = append(data, t.config.Terminator...)

	t.logger.Debug("tx", "frame", string(data))
	t.emit(TraceTX, data)

	n, err := t.line.Write(data)
	t.metrics.addWritten(n)
	if err != nil {
		t.logger.Warn("write failed", "frame", string(data), "error", err)
		return n, &TransportError{Op: "write", Path: t.path, Err: err}
	}
	return n, nil
}

// readLocked keeps reading until maxSize bytes arrived or the line reports
// a timeout with an empty read
func (t *Transport) readLocked(maxSize int) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = t.config.ReadSize
	}

	buf := make([]byte, maxSize)
	total := 0
	for total < maxSize {
		n, err := t.line.Read(buf[total:])
		total += n
		if err == io.EOF {
			break
		}
		if err != nil {
			t.logger.Warn("read failed", "error", err)
			return nil, &TransportError{Op: "read", Path: t.path, Err: err}
		}
		if n == 0 {
			break
		}
	}

	payload := buf[:total]
	t.metrics.addRead(total)
	t.logger.Debug("rx", "payload", string(payload), "requested", maxSize)
	t.emit(TraceRX, payload)

	return payload, nil
}

func (t *Transport) emit(dir TraceDirection, data []byte) {
	if t.trace == nil {
		return
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	t.trace(TraceEvent{
		Port:      t.path,
		Direction: dir,
		Data:      cp,
		Timestamp: time.Now(),
	})
}
