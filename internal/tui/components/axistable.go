package components

import (
	"fmt"
	"time"

	"github.com/allbin/go-mmc/internal/tui/colors"
	"github.com/allbin/go-mmc/internal/tui/styles"
	"github.com/allbin/go-mmc/motion"
	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"
)

const (
	columnKeyAxis     = "axis"
	columnKeyAlive    = "alive"
	columnKeyState    = "state"
	columnKeyHomed    = "homed"
	columnKeyPosition = "position"
	columnKeyMoving   = "moving"
	columnKeyUpdated  = "updated"
)

// AxisTable renders the controller's axis table with one highlighted row,
// the axis key bindings act on
type AxisTable struct {
	table    table.Model
	axes     []motion.AxisStatus
	selected int
	now      func() time.Time
}

func NewAxisTable() *AxisTable {
	columns := []table.Column{
		table.NewColumn(columnKeyAxis, "Axis", 6),
		table.NewColumn(columnKeyAlive, "Alive", 7),
		table.NewColumn(columnKeyState, "State", 16),
		table.NewColumn(columnKeyHomed, "Homed", 7),
		table.NewColumn(columnKeyPosition, "Position", 12),
		table.NewColumn(columnKeyMoving, "Moving", 8),
		table.NewColumn(columnKeyUpdated, "Polled", 10),
	}

	t := table.New(columns).
		BorderRounded().
		Focused(true).
		WithBaseStyle(lipgloss.NewStyle().
			Foreground(colors.Text).
			BorderForeground(colors.Surface2).
			Align(lipgloss.Left)).
		HeaderStyle(lipgloss.NewStyle().
			Foreground(colors.Mauve).
			Bold(true)).
		HighlightStyle(lipgloss.NewStyle().
			Background(colors.Surface1))

	return &AxisTable{table: t, now: time.Now}
}

// SetAxes replaces the displayed axis records
func (at *AxisTable) SetAxes(axes []motion.AxisStatus) {
	at.axes = axes
	if at.selected >= len(axes) {
		at.selected = max(len(axes)-1, 0)
	}
	at.refresh()
}

// Selected returns the index of the highlighted axis
func (at *AxisTable) Selected() int {
	return at.selected
}

// MoveSelection moves the highlight by delta rows, wrapping around
func (at *AxisTable) MoveSelection(delta int) {
	n := len(at.axes)
	if n == 0 {
		return
	}
	at.selected = ((at.selected+delta)%n + n) % n
	at.table = at.table.WithHighlightedRow(at.selected)
}

func (at *AxisTable) refresh() {
	rows := make([]table.Row, 0, len(at.axes))
	for _, st := range at.axes {
		rows = append(rows, table.NewRow(at.rowData(st)))
	}
	at.table = at.table.WithRows(rows).WithHighlightedRow(at.selected)
}

func (at *AxisTable) rowData(st motion.AxisStatus) table.RowData {
	stateStyle := styles.StateStyle(st.State, st.Alive)

	alive := table.NewStyledCell("no", lipgloss.NewStyle().Foreground(colors.Red))
	if st.Alive {
		alive = table.NewStyledCell("yes", lipgloss.NewStyle().Foreground(colors.Green))
	}

	homed := "no"
	if st.Homed {
		homed = "yes"
	}

	moving := "-"
	updated := "-"
	if !st.LastStatusAt.IsZero() {
		moving = fmt.Sprintf("%t", st.LastMoving)
		updated = formatAge(at.now().Sub(st.LastStatusAt))
	}
	if st.StopQueued {
		moving += " ■"
	}

	return table.RowData{
		columnKeyAxis:     st.Index,
		columnKeyAlive:    alive,
		columnKeyState:    table.NewStyledCell(st.State.String(), stateStyle),
		columnKeyHomed:    homed,
		columnKeyPosition: st.Position,
		columnKeyMoving:   moving,
		columnKeyUpdated:  updated,
	}
}

func (at *AxisTable) View() string {
	return at.table.View()
}

// formatAge renders how long ago a status was polled
func formatAge(d time.Duration) string {
	switch {
	case d < time.Second:
		return "now"
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	default:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	}
}
