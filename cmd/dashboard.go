/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"time"

	mmc "github.com/allbin/go-mmc"
	"github.com/allbin/go-mmc/internal/tui/components"
	"github.com/allbin/go-mmc/internal/tui/keys"
	"github.com/allbin/go-mmc/internal/tui/models"
	"github.com/allbin/go-mmc/internal/tui/styles"
	"github.com/allbin/go-mmc/logger"
	"github.com/allbin/go-mmc/motion"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// jogSteps are the jog distances cycled with [ and ]
var jogSteps = []int64{1, 10, 100, 1000, 10000}

// dashboardCmd represents the dashboard command
var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive dashboard for a motion controller",
	Long: `Open the controller and show a live terminal dashboard.

The dashboard shows:
- The axis table with state, position and the last polled moving state
- A live trace of every frame sent and every reply received
- Connection and operation status

Axes can be homed, jogged, moved to a typed position and stopped from the
keyboard. Press ? for the key bindings.

Logs would corrupt the screen, so they are discarded unless --log-file is
given.

Examples:
  mmc dashboard --port /dev/ttyUSB0
  mmc dashboard --home --backlash 10
  mmc dashboard --log-file mmc.log --log-level debug`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		homeOnStart, _ := cmd.Flags().GetBool("home")
		backlash, _ := cmd.Flags().GetInt64("backlash")
		interval, _ := cmd.Flags().GetDuration("refresh")
		logFile, _ := cmd.Flags().GetString("log-file")

		s := loadSettings()
		if s.Port == "" {
			fmt.Fprintln(os.Stderr, "Error: no port configured (use --port, MMC_PORT or the config file)")
			os.Exit(1)
		}

		if err := redirectLogs(logFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if err := runDashboard(s, homeOnStart, backlash, interval); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)

	dashboardCmd.Flags().Bool("home", false, "Home every live axis when connecting")
	dashboardCmd.Flags().Int64("backlash", 0, "Overshoot for negative moves to a typed position")
	dashboardCmd.Flags().Duration("refresh", 250*time.Millisecond, "Axis table refresh interval")
	dashboardCmd.Flags().String("log-file", "", "Write logs to this file instead of discarding them")
}

// redirectLogs sends logs to path, or discards them when path is empty
func redirectLogs(path string) error {
	if path == "" {
		logger.SetDefault(logger.Discard())
		return nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	level, err := logger.ParseLevel(loadSettings().LogLevel)
	if err != nil {
		return err
	}
	logger.SetDefault(logger.NewSlog(f, level, false))
	return nil
}

// dashboardModel represents the Bubble Tea model for the dashboard command
type dashboardModel struct {
	*models.ControllerModel
	table     *components.AxisTable
	terminal  *components.Terminal
	statusBar *components.StatusBar
	input     *components.Input
	help      help.Model
	keys      keys.DashboardKeys
	inputKeys keys.InputKeys

	jogIndex int
	backlash int64
	baud     int
	width    int
	height   int
}

func newDashboardModel(portPath string, backlash int64) *dashboardModel {
	m := &dashboardModel{
		ControllerModel: models.NewControllerModel(portPath),
		table:           components.NewAxisTable(),
		terminal:        components.NewTerminal(0, 0),
		statusBar:       components.NewStatusBar(portPath),
		input:           components.NewInput(),
		help:            help.New(),
		keys:            keys.NewDashboardKeys(),
		inputKeys:       keys.NewInputKeys(),
		jogIndex:        2,
		backlash:        backlash,
	}
	m.statusBar.SetConnecting()
	return m
}

func runDashboard(s settings, homeOnStart bool, backlash int64, interval time.Duration) error {
	m := newDashboardModel(s.Port, backlash)
	m.baud = s.Baud
	m.statusBar.SetConnectionInfo(&components.ConnectionInfo{BaudRate: s.Baud, Axes: s.Axes})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())

	reg := mmc.NewRegistry(mmc.WithRegistryLogger(logger.GetLogger()))
	defer func() { _ = reg.CloseAll() }()

	feed := models.NewFeed(m.GetContext())

	// Connect in background so the handshake shows up in the trace pane
	go func() {
		c, err := connectDashboard(reg, feed, s, homeOnStart, p.Send)
		if err != nil {
			p.Send(models.ConnectionStatusMsg{Connected: false, Error: err})
			return
		}
		m.SetController(c)
		p.Send(models.ConnectionStatusMsg{Connected: true})
		feed.Poll(c, interval, p.Send)
	}()

	_, err := p.Run()

	m.Cancel()
	if stopErr := feed.Stop(); stopErr != nil {
		logger.Debug("dashboard feed stopped", "error", stopErr)
	}
	return err
}

func connectDashboard(reg *mmc.Registry, feed *models.Feed, s settings, homeOnStart bool, send func(tea.Msg)) (*motion.Controller, error) {
	exists, err := mmc.PortExists(s.Port)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", mmc.ErrDeviceNotFound, s.Port)
	}

	t, err := reg.Acquire(s.Port, s.transportOptions()...)
	if err != nil {
		return nil, err
	}
	feed.Trace(t, send)

	return motion.New(t, s.motionOptions(homeOnStart)...)
}

func (m *dashboardModel) Init() tea.Cmd {
	return nil
}

func (m *dashboardModel) jog() int64 {
	return jogSteps[m.jogIndex]
}

// layout sizes the panes to the window. The trace pane gets whatever the
// other panes leave.
func (m *dashboardModel) layout() {
	// Table: rounded border, header and separator take 4 lines
	tableHeight := len(m.Snapshot().Axes) + 4
	inputHeight := 3
	statusBarHeight := 1
	helpHeight := lipgloss.Height(m.help.View(m.keys))
	// Trace pane top border and title
	traceChrome := 2

	traceHeight := m.height - tableHeight - inputHeight - statusBarHeight - helpHeight - traceChrome
	m.terminal.SetSize(m.width, max(traceHeight, 3))
	m.input.SetWidth(m.width)
	m.statusBar.SetWidth(m.width)
	m.help.Width = m.width
}

func (m *dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		m.SetReady(true)

	case models.ConnectionStatusMsg:
		m.SetConnected(msg.Connected)
		if msg.Error != nil {
			m.SetError(msg.Error)
			m.statusBar.SetDisconnected(msg.Error)
		} else {
			m.statusBar.SetConnected()
		}

	case models.SnapshotMsg:
		resize := len(msg.Axes) != len(m.Snapshot().Axes)
		m.SetSnapshot(msg)
		m.table.SetAxes(msg.Axes)
		m.statusBar.SetConnectionInfo(&components.ConnectionInfo{
			BaudRate: m.baud,
			Axes:     len(msg.Axes),
			Alive:    aliveIn(msg.Axes),
		})
		if msg.Fault != nil {
			m.statusBar.SetMessage(fmt.Sprintf("Controller fault: %v", msg.Fault), msg.Fault)
		}
		if resize {
			m.layout()
		}

	case components.TraceMsg:
		if m.IsReady() {
			m.terminal.AddMessage(msg)
		}

	case models.OpResultMsg:
		if msg.Err != nil {
			m.statusBar.SetMessage(fmt.Sprintf("%s failed: %v", msg.Op, msg.Err), msg.Err)
		} else {
			m.statusBar.SetMessage(fmt.Sprintf("%s done in %s", msg.Op, msg.Elapsed.Round(time.Millisecond)), nil)
		}

	case tea.KeyMsg:
		if m.GetInputMode() == models.InputModeGoTo {
			return m, m.updateGoTo(msg)
		}
		if cmd, quit := m.updateNormal(msg); quit {
			return m, tea.Quit
		} else if cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	_, cmd := m.terminal.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *dashboardModel) updateGoTo(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.inputKeys.Escape):
		m.SetInputMode(models.InputModeNormal)
		m.input.Blur()
		return nil

	case key.Matches(msg, m.inputKeys.Enter):
		target, err := components.ParseTarget(m.input.Value())
		if err != nil {
			m.statusBar.SetMessage(fmt.Sprintf("Invalid target: %v", err), err)
			return nil
		}
		m.input.AddToHistory(m.input.Value())
		m.input.SetValue("")
		m.SetInputMode(models.InputModeNormal)
		m.input.Blur()

		axis, backlash := m.table.Selected(), m.backlash
		m.statusBar.SetMessage(fmt.Sprintf("Moving axis %d to %s...", axis, target), nil)
		if target.Relative {
			return m.Run(fmt.Sprintf("move axis %d by %s", axis, target), axis, func(c models.Operator) error {
				_, err := c.MoveRelative(target.Value, axis)
				return err
			})
		}
		return m.Run(fmt.Sprintf("move axis %d to %s", axis, target), axis, func(c models.Operator) error {
			return c.MoveTo(target.Value, axis, backlash)
		})

	case key.Matches(msg, m.inputKeys.Up):
		m.input.NavigateHistoryUp()
		return nil

	case key.Matches(msg, m.inputKeys.Down):
		m.input.NavigateHistoryDown()
		return nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *dashboardModel) updateNormal(msg tea.KeyMsg) (tea.Cmd, bool) {
	axis := m.table.Selected()
	axes := m.Snapshot().Axes

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.Cancel()
		return nil, true

	case key.Matches(msg, m.keys.Up):
		m.table.MoveSelection(-1)

	case key.Matches(msg, m.keys.Down):
		m.table.MoveSelection(1)

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()

	case key.Matches(msg, m.keys.Clear):
		m.terminal.Clear()

	case key.Matches(msg, m.keys.ToggleHex):
		m.terminal.ToggleHex()

	case key.Matches(msg, m.keys.ToggleASCII):
		m.terminal.ToggleASCII()

	case key.Matches(msg, m.keys.StepUp):
		m.jogIndex = min(m.jogIndex+1, len(jogSteps)-1)

	case key.Matches(msg, m.keys.StepDown):
		m.jogIndex = max(m.jogIndex-1, 0)

	case key.Matches(msg, m.keys.GoTo):
		if m.IsConnected() {
			m.SetInputMode(models.InputModeGoTo)
			m.input.Focus()
		}

	case key.Matches(msg, m.keys.Home):
		m.statusBar.SetMessage(fmt.Sprintf("Homing axis %d...", axis), nil)
		return m.Run(fmt.Sprintf("home axis %d", axis), axis, func(c models.Operator) error {
			_, err := c.Home(axis)
			return err
		}), false

	case key.Matches(msg, m.keys.HomeAll):
		m.statusBar.SetMessage("Homing all axes...", nil)
		return m.Run("home all", -1, func(c models.Operator) error {
			return models.HomeAll(c, axes)
		}), false

	case key.Matches(msg, m.keys.Stop):
		return m.Run(fmt.Sprintf("stop axis %d", axis), axis, func(c models.Operator) error {
			return c.Stop(axis)
		}), false

	case key.Matches(msg, m.keys.StopAll):
		return m.Run("stop all", -1, func(c models.Operator) error {
			return models.StopAll(c, axes)
		}), false

	case key.Matches(msg, m.keys.JogPlus), key.Matches(msg, m.keys.JogMinus):
		steps := m.jog()
		if key.Matches(msg, m.keys.JogMinus) {
			steps = -steps
		}
		return m.Run(fmt.Sprintf("jog axis %d by %+d", axis, steps), axis, func(c models.Operator) error {
			_, err := c.MoveRelative(steps, axis)
			return err
		}), false
	}

	return nil, false
}

func (m *dashboardModel) View() string {
	var content string
	if m.IsReady() {
		content = m.terminal.View()
	} else {
		content = "Initializing..."
	}

	var table string
	switch {
	case m.GetError() != nil:
		table = styles.ErrorStyle.Render(fmt.Sprintf("Unable to open controller: %v", m.GetError()))
	case len(m.Snapshot().Axes) == 0:
		table = styles.InfoStyle.Render("Waking controller and probing axes...")
	default:
		table = m.table.View()
	}

	traceTitle := styles.PaneTitleStyle.Render(fmt.Sprintf("Wire trace (%d)", m.terminal.Len()))
	trace := styles.ContentBorderStyle.Render(lipgloss.JoinVertical(lipgloss.Left, traceTitle, content))

	input := m.input.View(m.table.Selected(), m.GetInputMode() == models.InputModeGoTo)

	statusBar := m.statusBar.View(
		m.GetInputMode().String(),
		m.IsConnected(),
		m.Snapshot().Active,
		m.jog(),
		time.Now().Format("15:04:05"),
	)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		table,
		trace,
		input,
		statusBar,
		m.help.View(m.keys),
	)
}

func aliveIn(axes []motion.AxisStatus) int {
	n := 0
	for _, st := range axes {
		if st.Alive {
			n++
		}
	}
	return n
}
