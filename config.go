package mmc

import "time"

// WriteMode represents the write synchronization mode
type WriteMode int

const (
	WriteModeBuffered WriteMode = iota // Default: kernel buffers writes
	WriteModeSynced                    // O_SYNC: writes block until hardware transmission
)

// Defaults for the line and transport layer. The delays are dictated by the
// controller firmware, which needs time to answer after each frame.
const (
	DefaultBaudRate    = 9600
	DefaultReadTimeout = 200 * time.Millisecond
	DefaultSettleDelay = 10 * time.Millisecond
	DefaultReadSize    = 64
	DefaultTerminator  = "\r"
	DefaultOpenRetries = 10
	DefaultOpenBackoff = 250 * time.Millisecond

	// MaxReadTimeout is the largest VTIME value termios can express.
	MaxReadTimeout = 25500 * time.Millisecond
)

// Config holds the configuration for a serial port and the transport on top of it
type Config struct {
	BaudRate    int
	DataBits    int
	StopBits    int
	Parity      Parity
	ReadTimeout time.Duration // VTIME, 100ms resolution
	WriteMode   WriteMode

	// Transport settings
	SettleDelay time.Duration // sleep before every read
	ReadSize    int           // default read size
	Terminator  string        // appended to every written frame
	OpenRetries int
	OpenBackoff time.Duration
}

// Option is a functional option for configuring a serial port
type Option func(*Config) error

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		BaudRate:    DefaultBaudRate,
		DataBits:    8,
		StopBits:    1,
		Parity:      ParityNone,
		ReadTimeout: DefaultReadTimeout,
		WriteMode:   WriteModeBuffered,
		SettleDelay: DefaultSettleDelay,
		ReadSize:    DefaultReadSize,
		Terminator:  DefaultTerminator,
		OpenRetries: DefaultOpenRetries,
		OpenBackoff: DefaultOpenBackoff,
	}
}

// NewConfig applies opts on top of DefaultConfig
func NewConfig(opts ...Option) (Config, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return Config{}, err
		}
	}
	return config, nil
}

// readTimeoutTenths converts ReadTimeout to the termios VTIME unit
func (c Config) readTimeoutTenths() uint8 {
	return uint8(c.ReadTimeout / (100 * time.Millisecond))
}

// WithBaudRate sets the baud rate
func WithBaudRate(rate int) Option {
	return func(c *Config) error {
		if _, err := getBaudRate(rate); err != nil {
			return err
		}
		c.BaudRate = rate
		return nil
	}
}

// WithDataBits sets the number of data bits (5, 6, 7, or 8)
func WithDataBits(bits int) Option {
	return func(c *Config) error {
		if bits < 5 || bits > 8 {
			return ErrInvalidConfig
		}
		c.DataBits = bits
		return nil
	}
}

// WithStopBits sets the number of stop bits (1 or 2)
func WithStopBits(bits int) Option {
	return func(c *Config) error {
		if bits != 1 && bits != 2 {
			return ErrInvalidConfig
		}
		c.StopBits = bits
		return nil
	}
}

// WithParity sets the parity mode
func WithParity(parity Parity) Option {
	return func(c *Config) error {
		c.Parity = parity
		return nil
	}
}

// WithReadTimeout sets the per-read line timeout. It must be a multiple of
// 100ms between 0 and 25.5s; 0 makes reads non-blocking.
func WithReadTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		if timeout < 0 || timeout > MaxReadTimeout || timeout%(100*time.Millisecond) != 0 {
			return ErrInvalidConfig
		}
		c.ReadTimeout = timeout
		return nil
	}
}

// WithWriteMode sets the write synchronization mode
func WithWriteMode(mode WriteMode) Option {
	return func(c *Config) error {
		c.WriteMode = mode
		return nil
	}
}

// WithSyncWrite enables synchronous writes (O_SYNC) for guaranteed transmission
func WithSyncWrite() Option {
	return WithWriteMode(WriteModeSynced)
}

// WithSettleDelay sets how long the transport waits before each read
func WithSettleDelay(d time.Duration) Option {
	return func(c *Config) error {
		if d < 0 {
			return ErrInvalidConfig
		}
		c.SettleDelay = d
		return nil
	}
}

// WithReadSize sets the default number of bytes requested per read
func WithReadSize(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return ErrInvalidConfig
		}
		c.ReadSize = n
		return nil
	}
}

// WithTerminator sets the line terminator appended to written frames
func WithTerminator(term string) Option {
	return func(c *Config) error {
		if term == "" {
			return ErrInvalidConfig
		}
		c.Terminator = term
		return nil
	}
}

// WithOpenRetries sets how many times opening a port is attempted and the
// delay between attempts
func WithOpenRetries(attempts int, backoff time.Duration) Option {
	return func(c *Config) error {
		if attempts < 1 || backoff < 0 {
			return ErrInvalidConfig
		}
		c.OpenRetries = attempts
		c.OpenBackoff = backoff
		return nil
	}
}
