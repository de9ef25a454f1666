package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// DefaultTraceLimit is the number of trace events a Terminal keeps
const DefaultTraceLimit = 2000

// Terminal is a scrolling pane showing the wire trace
type Terminal struct {
	viewport  viewport.Model
	formatter *DataFormatter
	raw       []TraceMsg
	data      []string
	limit     int
}

func NewTerminal(width, height int) *Terminal {
	return &Terminal{
		viewport:  viewport.New(width, height),
		formatter: NewDataFormatter(true, true),
		limit:     DefaultTraceLimit,
	}
}

func (t *Terminal) SetSize(width, height int) {
	t.viewport.Width = width
	t.viewport.Height = height
}

func (t *Terminal) GetViewport() viewport.Model {
	return t.viewport
}

// Len returns the number of events held
func (t *Terminal) Len() int {
	return len(t.raw)
}

// AddMessage appends an event, dropping the oldest once the limit is hit,
// and scrolls to the bottom
func (t *Terminal) AddMessage(msg TraceMsg) {
	t.raw = append(t.raw, msg)
	t.data = append(t.data, t.formatter.FormatMessage(msg))

	if over := len(t.raw) - t.limit; over > 0 {
		t.raw = t.raw[over:]
		t.data = t.data[over:]
	}

	t.viewport.SetContent(strings.Join(t.data, "\n"))
	t.viewport.GotoBottom()
}

// refresh re-renders every held event with the current display mode
func (t *Terminal) refresh() {
	t.data = t.formatter.FormatMessages(t.raw)
	t.viewport.SetContent(strings.Join(t.data, "\n"))
	t.viewport.GotoBottom()
}

func (t *Terminal) Clear() {
	t.raw = nil
	t.data = nil
	t.viewport.SetContent("")
}

func (t *Terminal) ToggleHex() {
	t.formatter.ToggleHex()
	t.refresh()
}

func (t *Terminal) ToggleASCII() {
	t.formatter.ToggleASCII()
	t.refresh()
}

func (t *Terminal) GetDisplayMode() DisplayMode {
	return t.formatter.GetDisplayMode()
}

func (t *Terminal) Update(msg tea.Msg) (viewport.Model, tea.Cmd) {
	// Only pass certain message types to viewport to prevent it from consuming our key bindings
	switch msg.(type) {
	case tea.WindowSizeMsg, tea.MouseMsg:
		var cmd tea.Cmd
		t.viewport, cmd = t.viewport.Update(msg)
		return t.viewport, cmd
	default:
		return t.viewport, nil
	}
}

func (t *Terminal) View() string {
	return t.viewport.View()
}
