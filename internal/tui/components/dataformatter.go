package components

import (
	"fmt"
	"strings"

	mmc "github.com/allbin/go-mmc"
	"github.com/allbin/go-mmc/internal/tui/colors"
	"github.com/charmbracelet/lipgloss"
)

// TraceMsg carries one frame or payload observed on the wire
type TraceMsg mmc.TraceEvent

type DisplayMode struct {
	ShowHex   bool
	ShowASCII bool
}

// DataFormatter renders trace events as single lines
type DataFormatter struct {
	mode DisplayMode
}

func NewDataFormatter(showHex, showASCII bool) *DataFormatter {
	return &DataFormatter{
		mode: DisplayMode{
			ShowHex:   showHex,
			ShowASCII: showASCII,
		},
	}
}

func (df *DataFormatter) GetDisplayMode() DisplayMode {
	return df.mode
}

func (df *DataFormatter) FormatMessage(msg TraceMsg) string {
	timestamp := msg.Timestamp.Format("15:04:05.000")

	var indicator string
	if msg.Direction == mmc.TraceTX {
		indicator = lipgloss.NewStyle().
			Foreground(colors.Peach).
			Bold(true).
			Render("↗ TX")
	} else {
		indicator = lipgloss.NewStyle().
			Foreground(colors.Sky).
			Bold(true).
			Render("↙ RX")
	}

	var parts []string

	// An empty read is a line timeout; show it instead of an empty dump
	if msg.Direction == mmc.TraceRX && len(msg.Data) == 0 {
		parts = append(parts, lipgloss.NewStyle().Foreground(colors.Overlay0).Render("(timeout)"))
	} else {
		if df.mode.ShowASCII {
			parts = append(parts, fmt.Sprintf("ASCII: %s", asciiString(msg.Data)))
		}
		if df.mode.ShowHex {
			parts = append(parts, fmt.Sprintf("HEX: % X", msg.Data))
		}
		if !df.mode.ShowHex && !df.mode.ShowASCII {
			parts = append(parts, fmt.Sprintf("BYTES: %d", len(msg.Data)))
		}
	}

	timestampStyled := lipgloss.NewStyle().
		Foreground(colors.Subtext0).
		Render(fmt.Sprintf("[%s]", timestamp))

	return fmt.Sprintf("%s %s: %s", timestampStyled, indicator, strings.Join(parts, "  "))
}

func (df *DataFormatter) FormatMessages(messages []TraceMsg) []string {
	formatted := make([]string, len(messages))
	for i, msg := range messages {
		formatted[i] = df.FormatMessage(msg)
	}
	return formatted
}

func (df *DataFormatter) ToggleHex() {
	df.mode.ShowHex = !df.mode.ShowHex
}

func (df *DataFormatter) ToggleASCII() {
	df.mode.ShowASCII = !df.mode.ShowASCII
}

// asciiString replaces bytes outside printable ASCII with dots so control
// characters never reach the terminal
func asciiString(data []byte) string {
	var sb strings.Builder
	sb.Grow(len(data))
	for _, b := range data {
		if b >= 32 && b <= 126 {
			sb.WriteByte(b)
		} else {
			sb.WriteByte('.')
		}
	}
	return sb.String()
}
