/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// stopCmd represents the stop command
var stopCmd = &cobra.Command{
	Use:   "stop [axis...]",
	Short: "Soft stop axes",
	Long: `Send soft stops to one or more axes. The stop frame is repeated since
the firmware may miss a single one. Without arguments every live axis is
stopped.

This works from a separate shell while another mmc process is moving an
axis, the controller accepts stop frames at any time.

Examples:
  mmc stop
  mmc stop 1 3`,
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
			if err := c.Stop(i); err != nil {
				fmt.Fprintf(os.Stderr, "%s axis %d: %v\n", errorStyle.Render("✗"), i, err)
				failed = true
				continue
			}
			fmt.Printf("%s Axis %d stopped\n", successStyle.Render("■"), i)
		}

		if failed {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(stopCmd)
}
