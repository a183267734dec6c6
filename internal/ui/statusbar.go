package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/vidyasagar/journey/internal/history"
	"github.com/vidyasagar/journey/internal/theme"
)

// StatusBar shows the last chain event and the cursor position at the bottom
// of the screen.
type StatusBar struct {
	mode       string
	title      string
	event      string // last event type, empty before the first one
	orphan     bool   // last event reported a foreign state
	index      int
	length     int
	canBack    bool
	canForward bool
	scrollInfo string
	linkCount  int
	width      int
	message    string // temporary status message
	isError    bool
}

// NewStatusBar creates a new status bar.
func NewStatusBar() StatusBar {
	return StatusBar{
		mode: "NORMAL",
	}
}

// SetWidth sets the status bar width.
func (s *StatusBar) SetWidth(w int) {
	s.width = w
}

// SetMode sets the current mode indicator (NORMAL, PUSH, EDIT, ...).
func (s *StatusBar) SetMode(mode string) {
	s.mode = mode
}

// SetTitle updates the page title.
func (s *StatusBar) SetTitle(title string) {
	s.title = title
}

// SetEvent records the event that produced the current page.
func (s *StatusBar) SetEvent(ev history.Event) {
	s.event = ev.Type.String()
	s.orphan = ev.Orphan
}

// SetPosition sets the chain cursor and length.
func (s *StatusBar) SetPosition(index, length int) {
	s.index = index
	s.length = length
}

// SetNavigation sets whether the host has entries behind and ahead.
func (s *StatusBar) SetNavigation(back, forward bool) {
	s.canBack = back
	s.canForward = forward
}

// SetScrollInfo sets the scroll position string (e.g. "42%", "TOP", "BOT").
func (s *StatusBar) SetScrollInfo(info string) {
	s.scrollInfo = info
}

// SetLinkCount sets the number of followable links.
func (s *StatusBar) SetLinkCount(n int) {
	s.linkCount = n
}

// SetMessage sets a temporary status message.
func (s *StatusBar) SetMessage(msg string) {
	s.message = msg
	s.isError = false
}

// SetError shows err as the status message.
func (s *StatusBar) SetError(err error) {
	s.message = err.Error()
	s.isError = true
}

// View renders the status bar.
func (s *StatusBar) View() string {
	t := theme.Current

	modeStyle := lipgloss.NewStyle().
		Bold(true).
		Padding(0, 1).
		Foreground(t.Background)

	switch s.mode {
	case "NORMAL":
		modeStyle = modeStyle.Background(t.Primary)
	case "PUSH":
		modeStyle = modeStyle.Background(t.Success)
	case "EDIT":
		modeStyle = modeStyle.Background(t.Warning)
	case "TITLE", "COMMAND":
		modeStyle = modeStyle.Background(t.Accent)
	case "FOLLOW":
		modeStyle = modeStyle.Background(t.Link)
	default:
		modeStyle = modeStyle.Background(t.Secondary)
	}
	mode := modeStyle.Render(s.mode)

	barStyle := lipgloss.NewStyle().
		Foreground(t.Text).
		Background(t.Surface)

	// Left side: event badge, then message or title.
	var left string
	if s.event != "" {
		eventStyle := lipgloss.NewStyle().
			Bold(true).
			Foreground(t.Secondary).
			Background(t.Surface).
			Padding(0, 1)
		badge := s.event
		if s.orphan {
			eventStyle = eventStyle.Foreground(t.Orphan)
			badge += " (orphan)"
		}
		left = eventStyle.Render(badge)
	}
	switch {
	case s.message != "":
		msgStyle := lipgloss.NewStyle().
			Foreground(t.Info).
			Background(t.Surface).
			Padding(0, 1)
		if s.isError {
			msgStyle = msgStyle.Foreground(t.Error)
		}
		left += msgStyle.Render(s.message)
	case s.title != "":
		titleStyle := lipgloss.NewStyle().
			Foreground(t.Text).
			Background(t.Surface).
			Padding(0, 1)
		left += titleStyle.Render(s.title)
	}

	// Right side: links, chain position, scroll.
	rightStyle := lipgloss.NewStyle().
		Foreground(t.TextDim).
		Background(t.Surface).
		Padding(0, 1)

	var right string
	if s.linkCount > 0 {
		right += rightStyle.Render(fmt.Sprintf("%d links", s.linkCount))
	}
	if s.length > 0 {
		back, forward := " ", " "
		if s.canBack {
			back = "◂"
		}
		if s.canForward {
			forward = "▸"
		}
		right += rightStyle.Render(fmt.Sprintf("%s %d/%d %s", back, s.index+1, s.length, forward))
	}

	scrollStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(t.Secondary).
		Background(t.Surface).
		Padding(0, 1)
	right += scrollStyle.Render(s.scrollInfo)

	spacerWidth := s.width - lipgloss.Width(mode) - lipgloss.Width(left) - lipgloss.Width(right)
	if spacerWidth < 0 {
		spacerWidth = 0
	}
	spacer := lipgloss.NewStyle().
		Background(t.Surface).
		Render(fmt.Sprintf("%*s", spacerWidth, ""))

	return barStyle.Render(mode + left + spacer + right)
}
