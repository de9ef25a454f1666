/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// configFile is the on-disk form of settings. Durations are written in
// time.Duration notation, which viper parses back.
type configFile struct {
	Port           string  `yaml:"port"`
	Baud           int     `yaml:"baud"`
	Axes           int     `yaml:"axes"`
	ReadTimeout    string  `yaml:"read_timeout"`
	SettleDelay    string  `yaml:"settle_delay"`
	InterStepDelay string  `yaml:"inter_step_delay"`
	PollDelay      string  `yaml:"poll_delay"`
	StopDelay      string  `yaml:"stop_delay"`
	HomeTimeout    string  `yaml:"home_timeout"`
	HomeDistances  []int64 `yaml:"home_distances,flow"`
	LogLevel       string  `yaml:"log_level"`
}

func newConfigFile(s settings) configFile {
	return configFile{
		Port:           s.Port,
		Baud:           s.Baud,
		Axes:           s.Axes,
		ReadTimeout:    s.ReadTimeout.String(),
		SettleDelay:    s.SettleDelay.String(),
		InterStepDelay: s.InterStepDelay.String(),
		PollDelay:      s.PollDelay.String(),
		StopDelay:      s.StopDelay.String(),
		HomeTimeout:    s.HomeTimeout.String(),
		HomeDistances:  s.HomeDistances,
		LogLevel:       s.LogLevel,
	}
}

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the mmc configuration file",
}

// configInitCmd represents the config init command
var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a configuration file with the current settings",
	Long: `Write a YAML configuration file holding the default settings, overridden
by any flags and MMC_* variables given. The file is replaced atomically.

Examples:
  mmc config init
  mmc config init --port /dev/ttyUSB0 ./mmc.yaml
  mmc config init --force`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		force, _ := cmd.Flags().GetBool("force")

		path := ""
		if len(args) == 1 {
			path = args[0]
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			path = filepath.Join(home, ".mmc.yaml")
		}

		if err := writeConfigFile(path, loadSettings(), force); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s Wrote %s\n", successStyle.Render("✓"), path)
	},
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved settings",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		data, err := yaml.Marshal(newConfigFile(loadSettings()))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(string(data))
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	configInitCmd.Flags().BoolP("force", "f", false, "Overwrite an existing file")
}

// writeConfigFile atomically writes s to path. An existing file is only
// replaced when force is set.
func writeConfigFile(path string, s settings, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	data, err := yaml.Marshal(newConfigFile(s))
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
