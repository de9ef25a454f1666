/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"errors"
	"fmt"
	"time"

	mmc "github.com/allbin/go-mmc"
	"github.com/allbin/go-mmc/logger"
	"github.com/allbin/go-mmc/motion"
	"github.com/spf13/viper"
)

// Configuration keys shared by flags, environment and config file
const (
	keyPort           = "port"
	keyBaud           = "baud"
	keyAxes           = "axes"
	keyReadTimeout    = "read_timeout"
	keySettleDelay    = "settle_delay"
	keyInterStepDelay = "inter_step_delay"
	keyPollDelay      = "poll_delay"
	keyStopDelay      = "stop_delay"
	keyHomeTimeout    = "home_timeout"
	keyHomeDistances  = "home_distances"
	keyLogLevel       = "log_level"
)

// settingFlags maps configuration keys to the persistent flag setting them
var settingFlags = map[string]string{
	keyPort:           "port",
	keyBaud:           "baud",
	keyAxes:           "axes",
	keyReadTimeout:    "read-timeout",
	keySettleDelay:    "settle-delay",
	keyInterStepDelay: "inter-step-delay",
	keyPollDelay:      "poll-delay",
	keyStopDelay:      "stop-delay",
	keyHomeTimeout:    "home-timeout",
	keyHomeDistances:  "home-distances",
	keyLogLevel:       "log-level",
}

// settings is the resolved CLI configuration
type settings struct {
	Port           string
	Baud           int
	Axes           int
	ReadTimeout    time.Duration
	SettleDelay    time.Duration
	InterStepDelay time.Duration
	PollDelay      time.Duration
	StopDelay      time.Duration
	HomeTimeout    time.Duration
	HomeDistances  []int64
	LogLevel       string
}

func defaultSettings() settings {
	return settings{
		Baud:           mmc.DefaultBaudRate,
		Axes:           motion.DefaultAxes,
		ReadTimeout:    mmc.DefaultReadTimeout,
		SettleDelay:    mmc.DefaultSettleDelay,
		InterStepDelay: motion.DefaultInterStepDelay,
		PollDelay:      motion.DefaultPollDelay,
		StopDelay:      motion.DefaultStopDelay,
		HomeTimeout:    motion.DefaultHomeTimeout,
		HomeDistances:  motion.DefaultHomeDistances(),
		LogLevel:       logger.InfoLevel.String(),
	}
}

func (s settings) homeDistancesInt() []int {
	out := make([]int, len(s.HomeDistances))
	for i, d := range s.HomeDistances {
		out[i] = int(d)
	}
	return out
}

// loadSettings resolves the settings from viper
func loadSettings() settings {
	s := settings{
		Port:           viper.GetString(keyPort),
		Baud:           viper.GetInt(keyBaud),
		Axes:           viper.GetInt(keyAxes),
		ReadTimeout:    viper.GetDuration(keyReadTimeout),
		SettleDelay:    viper.GetDuration(keySettleDelay),
		InterStepDelay: viper.GetDuration(keyInterStepDelay),
		PollDelay:      viper.GetDuration(keyPollDelay),
		StopDelay:      viper.GetDuration(keyStopDelay),
		HomeTimeout:    viper.GetDuration(keyHomeTimeout),
		LogLevel:       viper.GetString(keyLogLevel),
	}
	for _, d := range viper.GetIntSlice(keyHomeDistances) {
		s.HomeDistances = append(s.HomeDistances, int64(d))
	}
	return s
}

func (s settings) transportOptions() []mmc.Option {
	return []mmc.Option{
		mmc.WithBaudRate(s.Baud),
		mmc.WithReadTimeout(s.ReadTimeout),
		mmc.WithSettleDelay(s.SettleDelay),
	}
}

func (s settings) motionOptions(homeOnStart bool) []motion.Option {
	opts := []motion.Option{
		motion.WithAxes(s.Axes),
		motion.WithInterStepDelay(s.InterStepDelay),
		motion.WithPollDelay(s.PollDelay),
		motion.WithStopDelay(s.StopDelay),
		motion.WithHomeTimeout(s.HomeTimeout),
		motion.WithHomeOnStart(homeOnStart),
		motion.WithLogger(logger.GetLogger()),
		motion.WithTransportOptions(s.transportOptions()...),
	}
	if len(s.HomeDistances) > 0 {
		opts = append(opts, motion.WithHomeDistances(s.HomeDistances...))
	}
	return opts
}

// session is an open controller together with the registry owning its
// transport
type session struct {
	settings   settings
	registry   *mmc.Registry
	controller *motion.Controller
}

// openSession opens the configured port and constructs a controller on it
func openSession(homeOnStart bool) (*session, error) {
	return newSession(homeOnStart, false)
}

// newSession opens the controller. With recoverUSB a controller that does
// not answer gets its USB adapter reset once before the open is retried.
func newSession(homeOnStart, recoverUSB bool) (*session, error) {
	s := loadSettings()
	if s.Port == "" {
		return nil, fmt.Errorf("no port configured (use --port, MMC_PORT or the config file)")
	}

	reg := mmc.NewRegistry(mmc.WithRegistryLogger(logger.GetLogger()))
	c, err := motion.Open(reg, s.Port, s.motionOptions(homeOnStart)...)
	if err != nil && recoverUSB && unresponsive(err) {
		logger.Warn("controller not answering, resetting adapter", "port", s.Port, "error", err)
		if _, rerr := reg.Recover(s.Port, s.transportOptions()...); rerr != nil {
			_ = reg.CloseAll()
			return nil, fmt.Errorf("%w (adapter reset failed: %v)", err, rerr)
		}
		c, err = motion.Open(reg, s.Port, s.motionOptions(homeOnStart)...)
	}
	if err != nil {
		_ = reg.CloseAll()
		return nil, err
	}

	return &session{settings: s, registry: reg, controller: c}, nil
}

// unresponsive reports whether err means the adapter or controller stopped
// answering, as opposed to a wrong port or configuration
func unresponsive(err error) bool {
	return errors.Is(err, motion.ErrProtocolTimeout) || errors.Is(err, mmc.ErrTransportUnavailable)
}

func (s *session) Close() {
	if err := s.registry.CloseAll(); err != nil {
		logger.Debug("close registry", "error", err)
	}
}
