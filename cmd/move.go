/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// moveCmd represents the move command
var moveCmd = &cobra.Command{
	Use:   "move <axis>",
	Short: "Move an axis to a position or by a number of steps",
	Long: `Move a single axis and wait until it has come to rest.

--to moves to an absolute position. Since positions only exist relative to
the home switch, the axis is homed first unless --no-home is given, in
which case the position the axis had when the command started is zero.
Moves in the negative direction overshoot by --backlash steps and then
return, so the target is always approached from the same side.

--by moves a number of steps relative to the current position.

Ctrl+C soft stops the axis.

Examples:
  mmc move 1 --to 5000
  mmc move 1 --to 200 --backlash 10
  mmc move 3 --by -250`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		toSet := cmd.Flags().Changed("to")
		bySet := cmd.Flags().Changed("by")
		if toSet == bySet {
			fmt.Fprintln(os.Stderr, "Error: exactly one of --to or --by is required")
			os.Exit(1)
		}

		target, _ := cmd.Flags().GetInt64("to")
		steps, _ := cmd.Flags().GetInt64("by")
		backlash, _ := cmd.Flags().GetInt64("backlash")
		noHome, _ := cmd.Flags().GetBool("no-home")

		if backlash < 0 {
			fmt.Fprintln(os.Stderr, "Error: --backlash must not be negative")
			os.Exit(1)
		}

		s, err := openSession(false)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening controller: %v\n", err)
			os.Exit(1)
		}
		defer s.Close()

		c := s.controller
		i, err := parseAxis(args[0], c.Axes())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if toSet && !noHome {
			fmt.Printf("%s Homing axis %d...\n", infoStyle.Render("⌂"), i)
			if _, err := c.Home(i); err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("✗"), err)
				os.Exit(1)
			}
		}

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		go func() {
			if _, ok := <-sigChan; ok {
				fmt.Println("\nStopping axis...")
				if err := c.Stop(i); err != nil {
					fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("✗"), err)
				}
			}
		}()

		start := time.Now()
		if toSet {
			fmt.Printf("%s Moving axis %d to %d...\n", infoStyle.Render("→"), i, target)
			err = c.MoveTo(target, i, backlash)
		} else {
			fmt.Printf("%s Moving axis %d by %d...\n", infoStyle.Render("→"), i, steps)
			_, err = c.MoveRelative(steps, i)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("✗"), err)
			os.Exit(1)
		}

		elapsed := time.Since(start).Round(time.Millisecond)
		fmt.Printf("%s Axis %d at %d after %s\n", successStyle.Render("✓"), i, c.Position(i), elapsed)
	},
}

func init() {
	rootCmd.AddCommand(moveCmd)

	moveCmd.Flags().Int64("to", 0, "Absolute target position")
	moveCmd.Flags().Int64("by", 0, "Relative number of steps")
	moveCmd.Flags().Int64("backlash", 0, "Overshoot for moves in the negative direction (--to only)")
	moveCmd.Flags().Bool("no-home", false, "Do not home the axis before an absolute move")
}
