package ui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vidyasagar/journey/internal/theme"
)

// LocationMode says what a submitted location does.
type LocationMode int

const (
	LocationPush LocationMode = iota // navigate through the reconciler
	LocationEdit                     // change the host location by hand
)

// LocationBar shows the current path and takes a new one.
type LocationBar struct {
	input   textinput.Model
	mode    LocationMode
	active  bool
	width   int
	current string // path shown while not focused
}

// NewLocationBar creates a new location bar.
func NewLocationBar() LocationBar {
	ti := textinput.New()
	ti.Placeholder = "/path or #fragment"
	ti.CharLimit = 512
	ti.Width = 60

	return LocationBar{
		input: ti,
	}
}

// SetWidth updates the bar width.
func (l *LocationBar) SetWidth(w int) {
	l.width = w
	l.input.Width = w - 10 // prompt and padding
}

// SetCurrent sets the path displayed while the bar is not focused.
func (l *LocationBar) SetCurrent(path string) {
	l.current = path
}

// Focus activates the bar for input in the given mode.
func (l *LocationBar) Focus(mode LocationMode) tea.Cmd {
	l.mode = mode
	l.active = true
	l.input.Reset()
	if mode == LocationEdit {
		l.input.SetValue(l.current)
		l.input.CursorEnd()
	}
	return l.input.Focus()
}

// Blur deactivates the bar.
func (l *LocationBar) Blur() {
	l.active = false
	l.input.Blur()
}

// IsActive reports whether the bar is focused.
func (l *LocationBar) IsActive() bool {
	return l.active
}

// Mode returns the mode the bar was focused in.
func (l *LocationBar) Mode() LocationMode {
	return l.mode
}

// Value returns the current input text.
func (l *LocationBar) Value() string {
	return l.input.Value()
}

// Update handles messages for the bar.
func (l *LocationBar) Update(msg tea.Msg) (*LocationBar, tea.Cmd) {
	if !l.active {
		return l, nil
	}
	var cmd tea.Cmd
	l.input, cmd = l.input.Update(msg)
	return l, cmd
}

// View renders the bar.
func (l *LocationBar) View() string {
	t := theme.Current

	barStyle := lipgloss.NewStyle().
		Background(t.Surface).
		BorderStyle(lipgloss.RoundedBorder()).
		Padding(0, 1).
		Width(l.width - 2)

	promptStyle := lipgloss.NewStyle().
		Foreground(t.Primary).
		Bold(true)

	if !l.active {
		barStyle = barStyle.
			Foreground(t.TextDim).
			BorderForeground(t.Border)
		return barStyle.Render(promptStyle.Render("at") + " " + l.current)
	}

	prompt := "push"
	barStyle = barStyle.Foreground(t.Text).BorderForeground(t.BorderFocus)
	if l.mode == LocationEdit {
		prompt = "edit"
		barStyle = barStyle.BorderForeground(t.Warning)
	}
	return barStyle.Render(promptStyle.Render(prompt) + " " + l.input.View())
}
