package components

import (
	"fmt"

	"github.com/allbin/go-mmc/internal/tui/colors"
	"github.com/charmbracelet/lipgloss"
)

// ConnectionInfo describes the line the controller is attached to
type ConnectionInfo struct {
	BaudRate int
	Axes     int
	Alive    int
}

type StatusBar struct {
	portPath       string
	status         string
	err            error
	width          int
	connectionInfo *ConnectionInfo
}

func NewStatusBar(portPath string) *StatusBar {
	return &StatusBar{
		portPath: portPath,
		status:   "Initializing...",
	}
}

func (sb *StatusBar) SetWidth(width int) {
	sb.width = width
}

func (sb *StatusBar) SetConnectionInfo(info *ConnectionInfo) {
	sb.connectionInfo = info
}

func (sb *StatusBar) SetConnecting() {
	sb.status = "Connecting..."
	sb.err = nil
}

func (sb *StatusBar) SetConnected() {
	sb.status = "Ready"
	sb.err = nil
}

// SetMessage shows the outcome of the last operation. A non-nil err is
// shown in red.
func (sb *StatusBar) SetMessage(msg string, err error) {
	sb.status = msg
	sb.err = err
}

func (sb *StatusBar) SetDisconnected(err error) {
	if err != nil {
		sb.status = fmt.Sprintf("Connection failed: %v", err)
		sb.err = err
	} else {
		sb.status = "Disconnected"
		sb.err = nil
	}
}

// Status returns the current status text
func (sb *StatusBar) Status() string {
	return sb.status
}

// View renders the status bar. active is the axis owning the wire or -1,
// jog the current jog step.
func (sb *StatusBar) View(inputMode string, connected bool, active int, jog int64, timestamp string) string {
	terminalWidth := sb.width
	if terminalWidth <= 0 {
		terminalWidth = 80
	}

	// Mode indicator (like NORMAL in nvim)
	modeBackground := colors.Blue
	if inputMode != "NORMAL" {
		modeBackground = colors.Green
	}
	mode := lipgloss.NewStyle().
		Foreground(colors.Base).
		Background(modeBackground).
		Bold(true).
		Padding(0, 1).
		Render(inputMode)

	port := lipgloss.NewStyle().
		Foreground(colors.Mauve).
		Bold(true).
		Padding(0, 1).
		Render(sb.portPath)

	var connStyle lipgloss.Style
	connIndicator := "○"
	switch {
	case sb.err != nil && !connected:
		connStyle = lipgloss.NewStyle().Foreground(colors.Red)
		connIndicator = "✗"
	case connected:
		connStyle = lipgloss.NewStyle().Foreground(colors.Green)
		connIndicator = "●"
	case sb.status == "Connecting...":
		connStyle = lipgloss.NewStyle().Foreground(colors.Yellow)
	default:
		connStyle = lipgloss.NewStyle().Foreground(colors.Red)
	}
	connectionIndicator := connStyle.Render(connIndicator)

	statusColor := colors.Subtext1
	if sb.err != nil {
		statusColor = colors.Red
	}
	status := lipgloss.NewStyle().
		Foreground(statusColor).
		Padding(0, 1).
		Render(sb.status)

	activeText := "idle"
	if active >= 0 {
		activeText = fmt.Sprintf("axis %d", active)
	}
	motionInfo := fmt.Sprintf("⚙ %s  jog %d", activeText, jog)
	if sb.connectionInfo != nil {
		motionInfo = fmt.Sprintf("⚡ %d baud  %d/%d axes  %s",
			sb.connectionInfo.BaudRate,
			sb.connectionInfo.Alive,
			sb.connectionInfo.Axes,
			motionInfo)
	}
	details := lipgloss.NewStyle().
		Foreground(colors.Subtext0).
		Padding(0, 1).
		Render(motionInfo)

	clock := lipgloss.NewStyle().
		Foreground(colors.Subtext1).
		Padding(0, 1).
		Render(timestamp)

	divider := lipgloss.NewStyle().
		Foreground(colors.Surface2).
		Padding(0, 1).
		Render("│")

	leftSide := lipgloss.JoinHorizontal(lipgloss.Left, mode, port, connectionIndicator, divider, status)
	rightSide := lipgloss.JoinHorizontal(lipgloss.Left, details, divider, clock)

	spacerWidth := terminalWidth - lipgloss.Width(leftSide) - lipgloss.Width(rightSide)
	if spacerWidth < 1 {
		spacerWidth = 1
	}
	spacer := lipgloss.NewStyle().Width(spacerWidth).Render("")

	statusBarStyle := lipgloss.NewStyle().
		Foreground(colors.Text).
		Background(colors.Surface0).
		Width(terminalWidth)

	return statusBarStyle.Render(lipgloss.JoinHorizontal(lipgloss.Left, leftSide, spacer, rightSide))
}
