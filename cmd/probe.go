/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	mmc "github.com/allbin/go-mmc"
	"github.com/allbin/go-mmc/motion"
	"github.com/spf13/cobra"
)

// probeCmd represents the probe command
var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check that a controller answers and find its populated axes",
	Long: `Wake the controller, verify its banner and probe every axis channel.

Nothing is moved. Use this to verify wiring and baud rate before homing.
With --home every live axis is homed afterwards, as the controller does
on a normal start. With --reset a controller that does not answer gets its
USB adapter reset once and is probed again (usually needs root).

Examples:
  mmc probe --port /dev/ttyUSB0
  mmc probe --home
  sudo mmc probe --reset`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		home, _ := cmd.Flags().GetBool("home")
		reset, _ := cmd.Flags().GetBool("reset")

		port := loadSettings().Port
		fmt.Printf("%s Probing controller on %s...\n", infoStyle.Render("⚡"), port)

		start := time.Now()
		s, err := newSession(home, reset)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("✗"), err)
			switch {
			case errors.Is(err, motion.ErrProtocolMismatch):
				fmt.Fprintln(os.Stderr, "The device answered with an unexpected banner; check the baud rate")
			case errors.Is(err, mmc.ErrDeviceNotFound):
				fmt.Fprintln(os.Stderr, "Use 'mmc ports' to list the available ports")
			}
			os.Exit(1)
		}
		defer s.Close()

		c := s.controller
		fmt.Printf("%s Controller answered in %s\n\n", successStyle.Render("✓"), time.Since(start).Round(time.Millisecond))
		renderAxisTable(c.Snapshot(), nil)

		m := c.Transport().Metrics()
		fmt.Printf("\n%s %d transactions, %d bytes written, %d bytes read\n",
			mutedStyle.Render("wire:"), m.Transactions.Load(), m.BytesWritten.Load(), m.BytesRead.Load())
	},
}

func init() {
	rootCmd.AddCommand(probeCmd)

	probeCmd.Flags().Bool("home", false, "Home every live axis after probing")
	probeCmd.Flags().Bool("reset", false, "Reset the USB adapter once if the controller does not answer")
}
