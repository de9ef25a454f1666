/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// homeCmd represents the home command
var homeCmd = &cobra.Command{
	Use:   "home [axis...]",
	Short: "Drive axes to their home switch and zero their position",
	Long: `Home one or more axes. Each axis travels its configured home distance
toward the home switch; once the switch is reached the axis is stopped and
its position set to zero.

Axes are homed one after another, the controller only moves one axis at a
time. Without arguments every live axis is homed.

Examples:
  mmc home
  mmc home 2
  mmc home 0 1 --home-distances -12000,-12000,-5000,-10000`,
	Run: func(cmd *cobra.Command, args []string) {
		s, err := openSession(false)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening controller: %v\n", err)
			os.Exit(1)
		}
		defer s.Close()

		c := s.controller
		axes := liveAxes(c)
		if len(args) > 0 {
			axes = axes[:0]
			for _, arg := range args {
				i, err := parseAxis(arg, c.Axes())
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error: %v\n", err)
					os.Exit(1)
				}
				axes = append(axes, i)
			}
		}

		failed := false
		for _, i := range axes {
			fmt.Printf("%s Homing axis %d...\n", infoStyle.Render("⌂"), i)
			start := time.Now()
			if _, err := c.Home(i); err != nil {
				fmt.Fprintf(os.Stderr, "%s axis %d: %v\n", errorStyle.Render("✗"), i, err)
				failed = true
				continue
			}
			fmt.Printf("%s Axis %d homed in %s\n", successStyle.Render("✓"), i, time.Since(start).Round(time.Millisecond))
		}

		if failed {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(homeCmd)
}
