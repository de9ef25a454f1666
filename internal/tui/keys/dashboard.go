// Package keys defines the dashboard key bindings.
package keys

import "github.com/charmbracelet/bubbles/key"

// DashboardKeys are the bindings of the normal (non-insert) mode
type DashboardKeys struct {
	Up   key.Binding
	Down key.Binding

	Home     key.Binding
	HomeAll  key.Binding
	Stop     key.Binding
	StopAll  key.Binding
	JogPlus  key.Binding
	JogMinus key.Binding
	StepUp   key.Binding
	StepDown key.Binding
	GoTo     key.Binding

	Clear       key.Binding
	ToggleHex   key.Binding
	ToggleASCII key.Binding

	Help key.Binding
	Quit key.Binding
}

// InputKeys are the bindings active while a target position is typed
type InputKeys struct {
	Enter  key.Binding
	Escape key.Binding
	Up     key.Binding
	Down   key.Binding
}

func NewDashboardKeys() DashboardKeys {
	return DashboardKeys{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "previous axis"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "next axis"),
		),
		Home: key.NewBinding(
			key.WithKeys("h"),
			key.WithHelp("h", "home axis"),
		),
		HomeAll: key.NewBinding(
			key.WithKeys("H"),
			key.WithHelp("H", "home all"),
		),
		Stop: key.NewBinding(
			key.WithKeys("s", " "),
			key.WithHelp("s/space", "stop axis"),
		),
		StopAll: key.NewBinding(
			key.WithKeys("S", "esc"),
			key.WithHelp("S/esc", "stop all"),
		),
		JogPlus: key.NewBinding(
			key.WithKeys("+", "=", "right", "l"),
			key.WithHelp("+/→", "jog forward"),
		),
		JogMinus: key.NewBinding(
			key.WithKeys("-", "left"),
			key.WithHelp("-/←", "jog backward"),
		),
		StepUp: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "larger jog"),
		),
		StepDown: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "smaller jog"),
		),
		GoTo: key.NewBinding(
			key.WithKeys("g", "i"),
			key.WithHelp("g", "go to position"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear trace"),
		),
		ToggleHex: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "toggle hex"),
		),
		ToggleASCII: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "toggle ascii"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "Q", "ctrl+c"),
			key.WithHelp("q/ctrl+c", "quit"),
		),
	}
}

func NewInputKeys() InputKeys {
	return InputKeys{
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "move"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		Up: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("↑", "history"),
		),
		Down: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("↓", "history"),
		),
	}
}

func (k DashboardKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Home, k.Stop, k.JogPlus, k.JogMinus, k.Quit}
}

func (k DashboardKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.GoTo},
		{k.Home, k.HomeAll, k.Stop, k.StopAll},
		{k.JogPlus, k.JogMinus, k.StepUp, k.StepDown},
		{k.Clear, k.ToggleHex, k.ToggleASCII, k.Help, k.Quit},
	}
}
