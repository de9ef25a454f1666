package components

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/allbin/go-mmc/internal/tui/colors"
	"github.com/allbin/go-mmc/internal/tui/styles"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Target is a parsed position entry. A value with an explicit sign is a
// relative move, a bare number an absolute position.
type Target struct {
	Relative bool
	Value    int64
}

func (t Target) String() string {
	if t.Relative {
		return fmt.Sprintf("%+d", t.Value)
	}
	return strconv.FormatInt(t.Value, 10)
}

// ParseTarget parses "500" as an absolute position and "+25" or "-25" as
// a relative move
func ParseTarget(s string) (Target, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "_", "")
	if s == "" {
		return Target{}, fmt.Errorf("empty input")
	}

	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return Target{}, fmt.Errorf("invalid position %q", s)
	}
	return Target{Relative: s[0] == '+' || s[0] == '-', Value: v}, nil
}

// Input is the position entry line
type Input struct {
	textInput     textinput.Model
	history       []string
	historyIndex  int
	currentInput  string // Store current input when navigating history
	terminalWidth int
}

func NewInput() *Input {
	ti := textinput.New()
	ti.Placeholder = "position (e.g. 5000) or relative steps (e.g. +250, -40)"
	ti.CharLimit = 24
	ti.Prompt = ""
	ti.Validate = func(s string) error {
		for _, r := range s {
			if !strings.ContainsRune("+-_0123456789", r) {
				return fmt.Errorf("invalid character %q", r)
			}
		}
		return nil
	}

	return &Input{
		textInput:    ti,
		historyIndex: -1,
	}
}

func (i *Input) SetWidth(width int) {
	i.terminalWidth = width
	// border(2) + padding(2) + prompt(1) + space(1)
	i.textInput.Width = max(width-6, 20)
}

func (i *Input) Focus() {
	i.textInput.Focus()
}

func (i *Input) Blur() {
	i.textInput.Blur()
}

func (i *Input) Value() string {
	return i.textInput.Value()
}

func (i *Input) SetValue(value string) {
	i.textInput.SetValue(value)
}

func (i *Input) Update(msg tea.Msg) (*Input, tea.Cmd) {
	var cmd tea.Cmd
	i.textInput, cmd = i.textInput.Update(msg)
	return i, cmd
}

// View renders the entry line. axis is the axis a move would target.
func (i *Input) View(axis int, editing bool) string {
	prompt := lipgloss.NewStyle().
		Foreground(colors.Green).
		Bold(true).
		Render(fmt.Sprintf("axis %d →", axis))

	var content string
	if editing {
		content = lipgloss.JoinHorizontal(lipgloss.Left, prompt, " ", i.textInput.View())
	} else {
		instruction := lipgloss.NewStyle().
			Foreground(colors.Overlay0).
			Render("Press 'g' to enter a target position")
		content = lipgloss.JoinHorizontal(lipgloss.Left, prompt, " ", instruction)
	}

	// RoundedBorder and padding take 4 columns
	inputStyle := styles.InputStyle.
		Width(max(i.terminalWidth-4, 10)).
		AlignHorizontal(lipgloss.Left)
	if editing {
		inputStyle = inputStyle.BorderForeground(colors.Green)
	}

	return inputStyle.Render(content)
}

// AddToHistory adds an entry to the history if it's not empty or a duplicate
func (i *Input) AddToHistory(entry string) {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return
	}
	if len(i.history) > 0 && i.history[len(i.history)-1] == entry {
		return
	}

	i.history = append(i.history, entry)
	if len(i.history) > 100 {
		i.history = i.history[1:]
	}

	i.historyIndex = -1
	i.currentInput = ""
}

// NavigateHistoryUp moves up in the entry history
func (i *Input) NavigateHistoryUp() {
	if len(i.history) == 0 {
		return
	}

	if i.historyIndex == -1 {
		i.currentInput = i.textInput.Value()
		i.historyIndex = len(i.history) - 1
	} else if i.historyIndex > 0 {
		i.historyIndex--
	}

	i.textInput.SetValue(i.history[i.historyIndex])
}

// NavigateHistoryDown moves down in the entry history
func (i *Input) NavigateHistoryDown() {
	if len(i.history) == 0 || i.historyIndex == -1 {
		return
	}

	if i.historyIndex < len(i.history)-1 {
		i.historyIndex++
		i.textInput.SetValue(i.history[i.historyIndex])
	} else {
		i.historyIndex = -1
		i.textInput.SetValue(i.currentInput)
		i.currentInput = ""
	}
}
