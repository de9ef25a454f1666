package styles

import (
	"github.com/allbin/go-mmc/internal/tui/colors"
	"github.com/allbin/go-mmc/motion"
	"github.com/charmbracelet/lipgloss"
)

var (
	// Content area styles
	ContentBorderStyle = lipgloss.NewStyle().
				BorderTop(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(colors.Surface1)

	PaneTitleStyle = lipgloss.NewStyle().
			Foreground(colors.Subtext0).
			Bold(true).
			Padding(0, 1)

	InputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colors.Surface2).
			Padding(0, 1)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Red)

	InfoStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Mauve)

	MutedStyle = lipgloss.NewStyle().
			Foreground(colors.Overlay0)
)

// StateStyle returns the style an axis state is rendered with. Dead axes
// are muted regardless of state.
func StateStyle(state motion.AxisState, alive bool) lipgloss.Style {
	if !alive {
		return MutedStyle
	}
	switch state {
	case motion.Homing:
		return lipgloss.NewStyle().Foreground(colors.Peach).Bold(true)
	case motion.Moving:
		return lipgloss.NewStyle().Foreground(colors.Blue).Bold(true)
	case motion.BacklashLocked:
		return lipgloss.NewStyle().Foreground(colors.Yellow).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(colors.Green)
	}
}
