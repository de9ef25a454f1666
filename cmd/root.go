/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/allbin/go-mmc/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mmc",
	Short: "Drive a multi-axis motion controller over a serial line",
	Long: `mmc talks to a serial-attached multi-axis stepper controller.

Every command goes through a single serialized transport per port, so
frames from concurrent operations are never interleaved on the wire.

Settings are read from flags, MMC_* environment variables and a YAML
config file, in that order of precedence. Run 'mmc config init' to write
a config file with the defaults.

Examples:
  mmc ports --table
  mmc status --port /dev/ttyUSB0
  mmc home 2
  mmc move 1 --to 5000
  mmc dashboard`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogger()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.mmc.yaml)")
	flags.StringP("port", "p", "", "Serial port of the controller (e.g. /dev/ttyUSB0)")
	flags.IntP("baud", "b", defaultSettings().Baud, "Baud rate")
	flags.Int("axes", defaultSettings().Axes, "Number of axis channels on the controller")
	flags.Duration("read-timeout", defaultSettings().ReadTimeout, "Line read timeout (100ms resolution)")
	flags.Duration("settle-delay", defaultSettings().SettleDelay, "Delay before every read")
	flags.Duration("inter-step-delay", defaultSettings().InterStepDelay, "Delay between the steps of a transaction")
	flags.Duration("poll-delay", defaultSettings().PollDelay, "Delay between status polls")
	flags.Duration("stop-delay", defaultSettings().StopDelay, "Delay between repeated soft stops")
	flags.Duration("home-timeout", defaultSettings().HomeTimeout, "Upper bound on a single home run")
	flags.IntSlice("home-distances", defaultSettings().homeDistancesInt(), "Per-axis travel used to seek the home switch")
	flags.String("log-level", defaultSettings().LogLevel, "Log level: debug, info, warn, error")
	flags.String("log-format", "auto", "Log format: auto, json, console")

	for key, flag := range settingFlags {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".mmc" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".mmc")
	}

	viper.SetEnvPrefix("mmc")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Error reading config: %v\n", err)
			os.Exit(1)
		}
	}
}

func initLogger() error {
	level, err := logger.ParseLevel(viper.GetString(keyLogLevel))
	if err != nil {
		return err
	}

	format, _ := rootCmd.PersistentFlags().GetString("log-format")
	switch strings.ToLower(format) {
	case "console":
		logger.SetDefault(logger.NewConsole(os.Stderr, level))
	case "json":
		logger.SetDefault(logger.NewSlog(os.Stderr, level, false))
	case "auto", "":
		if isTerminal(os.Stderr) {
			logger.SetDefault(logger.NewConsole(os.Stderr, level))
		} else {
			logger.SetDefault(logger.NewSlog(os.Stderr, level, false))
		}
	default:
		return fmt.Errorf("unknown log format %q (valid: auto, json, console)", format)
	}

	if used := viper.ConfigFileUsed(); used != "" {
		logger.Debug("using config file", "path", used)
	}
	return nil
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
