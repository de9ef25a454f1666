package motion

import (
	"fmt"
	"time"

	mmc "github.com/allbin/go-mmc"
	"github.com/allbin/go-mmc/logger"
)

// Timing defaults of the reference controller. The firmware needs these
// pauses between frames; shortening them makes replies unreliable.
const (
	DefaultAxes           = 4
	DefaultInterStepDelay = 50 * time.Millisecond
	DefaultPollDelay      = 200 * time.Millisecond
	DefaultStopDelay      = 50 * time.Millisecond
	DefaultHomeTimeout    = 60 * time.Second
	DefaultStatusMaxAge   = 5 * time.Second
	DefaultStopRetries    = 3
	DefaultMaxSilentPolls = 50

	// DefaultHomeDistance is used for axes without a configured distance.
	DefaultHomeDistance int64 = -10000
)

// notMovingPolls is the number of consecutive "not moving" replies a move
// waits for before it is considered finished.
const notMovingPolls = 3

// DefaultHomeDistances returns the per-axis homing travel of the reference
// hardware. Axis 2 has a shorter stage.
func DefaultHomeDistances() []int64 {
	return []int64{-10000, -10000, -5000, -10000}
}

// PortLister returns the identifiers of the ports currently available
type PortLister func() ([]string, error)

// Config holds the controller configuration
type Config struct {
	Axes          int
	HomeDistances []int64

	InterStepDelay time.Duration
	PollDelay      time.Duration
	StopDelay      time.Duration
	HomeTimeout    time.Duration
	StatusMaxAge   time.Duration
	StopRetries    int
	MaxSilentPolls int

	Protocol    Protocol
	HomeOnStart bool

	Logger           logger.Logger
	PortLister       PortLister
	TransportOptions []mmc.Option

	clock func() time.Time
}

// Option is a functional option for configuring a controller
type Option func(*Config) error

// DefaultConfig returns the configuration of the reference controller
func DefaultConfig() Config {
	return Config{
		Axes:           DefaultAxes,
		HomeDistances:  DefaultHomeDistances(),
		InterStepDelay: DefaultInterStepDelay,
		PollDelay:      DefaultPollDelay,
		StopDelay:      DefaultStopDelay,
		HomeTimeout:    DefaultHomeTimeout,
		StatusMaxAge:   DefaultStatusMaxAge,
		StopRetries:    DefaultStopRetries,
		MaxSilentPolls: DefaultMaxSilentPolls,
		Protocol:       DefaultProtocol(),
		HomeOnStart:    true,
		Logger:         logger.GetLogger(),
		PortLister:     mmc.ListPorts,
		clock:          time.Now,
	}
}

// NewConfig applies opts on top of DefaultConfig and validates the result
func NewConfig(opts ...Option) (Config, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.Protocol.validate(cfg.Axes); err != nil {
		return Config{}, fmt.Errorf("%w: %v", mmc.ErrInvalidConfig, err)
	}
	return cfg, nil
}

// homeDistance returns the homing travel for axis
func (c Config) homeDistance(axis int) int64 {
	if axis < len(c.HomeDistances) {
		return c.HomeDistances[axis]
	}
	return DefaultHomeDistance
}

// WithAxes sets the number of axes on the controller
func WithAxes(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return mmc.ErrInvalidConfig
		}
		c.Axes = n
		return nil
	}
}

// WithHomeDistances sets the relative homing travel per axis. Zero
// distances are rejected since homing could never reach the switch.
func WithHomeDistances(distances ...int64) Option {
	return func(c *Config) error {
		for _, d := range distances {
			if d == 0 {
				return mmc.ErrInvalidConfig
			}
		}
		c.HomeDistances = append([]int64(nil), distances...)
		return nil
	}
}

func nonNegative(d time.Duration, set func(time.Duration)) error {
	if d < 0 {
		return mmc.ErrInvalidConfig
	}
	set(d)
	return nil
}

// WithInterStepDelay sets the pause between frames of one transaction
func WithInterStepDelay(d time.Duration) Option {
	return func(c *Config) error {
		return nonNegative(d, func(d time.Duration) { c.InterStepDelay = d })
	}
}

// WithPollDelay sets the pause between status polls
func WithPollDelay(d time.Duration) Option {
	return func(c *Config) error {
		return nonNegative(d, func(d time.Duration) { c.PollDelay = d })
	}
}

// WithStopDelay sets the pause between repeated soft stop frames
func WithStopDelay(d time.Duration) Option {
	return func(c *Config) error {
		return nonNegative(d, func(d time.Duration) { c.StopDelay = d })
	}
}

// WithHomeTimeout bounds the duration of one homing run
func WithHomeTimeout(d time.Duration) Option {
	return func(c *Config) error {
		if d <= 0 {
			return mmc.ErrInvalidConfig
		}
		c.HomeTimeout = d
		return nil
	}
}

// WithStatusMaxAge bounds how long a cached moving state is trusted while
// another axis owns the wire
func WithStatusMaxAge(d time.Duration) Option {
	return func(c *Config) error {
		if d <= 0 {
			return mmc.ErrInvalidConfig
		}
		c.StatusMaxAge = d
		return nil
	}
}

// WithStopRetries sets how often a soft stop is reissued for an axis that
// keeps reporting motion
func WithStopRetries(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return mmc.ErrInvalidConfig
		}
		c.StopRetries = n
		return nil
	}
}

// WithMaxSilentPolls sets how many unanswered polls in a row a polling
// loop tolerates
func WithMaxSilentPolls(n int) Option {
	return func(c *Config) error {
		if n < 0 {
			return mmc.ErrInvalidConfig
		}
		c.MaxSilentPolls = n
		return nil
	}
}

// WithProtocol replaces the wire vocabulary
func WithProtocol(p Protocol) Option {
	return func(c *Config) error {
		c.Protocol = p
		return nil
	}
}

// WithHomeOnStart controls whether live axes are homed during construction
func WithHomeOnStart(home bool) Option {
	return func(c *Config) error {
		c.HomeOnStart = home
		return nil
	}
}

// WithLogger sets the controller logger
func WithLogger(l logger.Logger) Option {
	return func(c *Config) error {
		if l == nil {
			return mmc.ErrInvalidConfig
		}
		c.Logger = l
		return nil
	}
}

// WithPortLister replaces the port enumeration used by Open
func WithPortLister(lister PortLister) Option {
	return func(c *Config) error {
		if lister == nil {
			return mmc.ErrInvalidConfig
		}
		c.PortLister = lister
		return nil
	}
}

// WithTransportOptions sets the line options used when Open creates the transport
func WithTransportOptions(opts ...mmc.Option) Option {
	return func(c *Config) error {
		c.TransportOptions = append(c.TransportOptions, opts...)
		return nil
	}
}
