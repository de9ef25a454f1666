/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"strconv"

	"github.com/allbin/go-mmc/motion"
	"github.com/charmbracelet/lipgloss"
)

var (
	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("40")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

// parseAxis parses an axis argument and checks it against the configured
// axis count
func parseAxis(arg string, axes int) (int, error) {
	i, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid axis %q: %w", arg, err)
	}
	if i < 0 || i >= axes {
		return 0, fmt.Errorf("axis %d out of range (0-%d)", i, axes-1)
	}
	return i, nil
}

// liveAxes returns the axes the controller found during probing
func liveAxes(c *motion.Controller) []int {
	var live []int
	for i := range c.Axes() {
		if c.IsAlive(i) {
			live = append(live, i)
		}
	}
	return live
}

// renderAxisTable prints a snapshot of the axis table. moving holds live
// moving states by axis index; axes missing from it show "-".
func renderAxisTable(snapshot []motion.AxisStatus, moving map[int]string) {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99")).
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("240")).
		PaddingBottom(1)

	header := fmt.Sprintf("%-6s %-7s %-16s %-7s %-12s %-8s", "Axis", "Alive", "State", "Homed", "Position", "Moving")
	fmt.Println(headerStyle.Render(header))

	for _, st := range snapshot {
		alive := errorStyle.Render(fmt.Sprintf("%-7s", "no"))
		if st.Alive {
			alive = successStyle.Render(fmt.Sprintf("%-7s", "yes"))
		}

		homed := "no"
		if st.Homed {
			homed = "yes"
		}

		mv, ok := moving[st.Index]
		if !ok {
			mv = "-"
		}

		row := fmt.Sprintf("%-6d %s %-16s %-7s %-12d %-8s", st.Index, alive, st.State, homed, st.Position, mv)
		if !st.Alive {
			row = mutedStyle.Render(row)
		}
		fmt.Println(row)
	}
}
