/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/allbin/go-mmc/internal/tui/components"
	"github.com/allbin/go-mmc/internal/tui/models"
	"github.com/allbin/go-mmc/motion"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var (
	monitorInterval time.Duration
	monitorTrace    bool
	monitorHome     bool
)

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Print axis state changes as they happen",
	Long: `Open the controller and report every change of the axis table.

With --trace every frame sent and every reply received is printed too.
Press Ctrl+C to stop.

Examples:
  mmc monitor
  mmc monitor --trace --interval 100ms
  mmc monitor --home`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		s, err := openSession(false)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening controller: %v\n", err)
			os.Exit(1)
		}
		defer s.Close()

		msgs := make(chan tea.Msg, 64)
		send := func(msg tea.Msg) {
			select {
			case msgs <- msg:
			case <-ctx.Done():
			}
		}

		feed := models.NewFeed(ctx)
		if monitorTrace {
			feed.Trace(s.controller.Transport(), send)
		}
		feed.Poll(s.controller, monitorInterval, send)
		defer func() { _ = feed.Stop() }()

		if monitorHome {
			go func() {
				start := time.Now()
				err := models.HomeAll(s.controller, s.controller.Snapshot())
				send(models.OpResultMsg{Op: "home all", Axis: -1, Err: err, Elapsed: time.Since(start)})
			}()
		}

		fmt.Printf("Monitoring %s, press Ctrl+C to stop\n", s.settings.Port)

		formatter := components.NewDataFormatter(false, true)
		var last []motion.AxisStatus
		for {
			select {
			case <-ctx.Done():
				fmt.Println("\nStopping monitor...")
				return
			case msg := <-msgs:
				switch msg := msg.(type) {
				case models.SnapshotMsg:
					if last == nil {
						printAxisStates("Initial", msg.Axes)
					} else {
						printAxisChanges(last, msg.Axes)
					}
					last = msg.Axes
					if msg.Fault != nil {
						fmt.Fprintf(os.Stderr, "%s controller fault: %v\n", errorStyle.Render("✗"), msg.Fault)
						os.Exit(1)
					}
				case components.TraceMsg:
					fmt.Println(formatter.FormatMessage(msg))
				case models.OpResultMsg:
					if msg.Err != nil {
						fmt.Fprintf(os.Stderr, "%s %s: %v\n", errorStyle.Render("✗"), msg.Op, msg.Err)
					} else {
						fmt.Printf("%s %s done in %s\n", successStyle.Render("✓"), msg.Op, msg.Elapsed.Round(time.Millisecond))
					}
				}
			}
		}
	},
}

func printAxisStates(prefix string, axes []motion.AxisStatus) {
	timestamp := time.Now().Format("15:04:05")
	fmt.Printf("[%s] %s state:\n", timestamp, prefix)
	for _, st := range axes {
		fmt.Printf("  axis %d: %s\n", st.Index, describeAxis(st))
	}
	fmt.Println()
}

func printAxisChanges(prev, cur []motion.AxisStatus) {
	for i, st := range cur {
		if i < len(prev) && sameAxisState(prev[i], st) {
			continue
		}
		timestamp := time.Now().Format("15:04:05.000")
		fmt.Printf("[%s] axis %d: %s\n", timestamp, st.Index, describeAxis(st))
	}
}

// sameAxisState compares the fields worth reporting; poll timestamps are
// ignored
func sameAxisState(a, b motion.AxisStatus) bool {
	return a.Alive == b.Alive &&
		a.Homed == b.Homed &&
		a.State == b.State &&
		a.StopQueued == b.StopQueued &&
		a.Position == b.Position &&
		a.LastMoving == b.LastMoving
}

func describeAxis(st motion.AxisStatus) string {
	if !st.Alive {
		return mutedStyle.Render("absent")
	}
	desc := fmt.Sprintf("%s position=%d homed=%t moving=%t", st.State, st.Position, st.Homed, st.LastMoving)
	if st.StopQueued {
		desc += " stop-queued"
	}
	return desc
}

func init() {
	rootCmd.AddCommand(monitorCmd)

	monitorCmd.Flags().DurationVarP(&monitorInterval, "interval", "i", 200*time.Millisecond,
		"How often the axis table is sampled")
	monitorCmd.Flags().BoolVarP(&monitorTrace, "trace", "t", false,
		"Print every frame sent and reply received")
	monitorCmd.Flags().BoolVar(&monitorHome, "home", false,
		"Home every live axis while monitoring")
}
