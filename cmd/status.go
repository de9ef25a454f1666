/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/allbin/go-mmc/motion"
	"github.com/spf13/cobra"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the axis table of a controller",
	Long: `Connect to the controller, probe every axis and print the axis table.

Axes are not homed, so positions are relative to where each axis was when
the command started. With --poll every live axis is asked whether it is
currently moving.

Examples:
  mmc status --port /dev/ttyUSB0
  mmc status --poll`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		poll, _ := cmd.Flags().GetBool("poll")

		s, err := openSession(false)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening controller: %v\n", err)
			os.Exit(1)
		}
		defer s.Close()

		c := s.controller
		moving := make(map[int]string)
		if poll {
			for _, i := range liveAxes(c) {
				m, err := c.IsMoving(i)
				switch {
				case errors.Is(err, motion.ErrStaleStatus):
					moving[i] = fmt.Sprintf("%t?", m)
				case err != nil:
					moving[i] = "error"
					fmt.Fprintf(os.Stderr, "%s axis %d: %v\n", errorStyle.Render("✗"), i, err)
				default:
					moving[i] = fmt.Sprintf("%t", m)
				}
			}
		}

		fmt.Printf("%s %s, %d of %d axes alive\n\n", infoStyle.Render("⚡"), s.settings.Port, len(liveAxes(c)), c.Axes())
		renderAxisTable(c.Snapshot(), moving)

		if fault := c.Fault(); fault != nil {
			fmt.Fprintf(os.Stderr, "\n%s controller fault: %v\n", errorStyle.Render("✗"), fault)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().Bool("poll", false, "Query the moving state of every live axis")
}
