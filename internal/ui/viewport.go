package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vidyasagar/journey/internal/theme"
)

// Scroll is a viewport movement bound to a key.
type Scroll int

const (
	ScrollLineDown Scroll = iota
	ScrollLineUp
	ScrollHalfDown
	ScrollHalfUp
	ScrollTop
	ScrollBottom
)

// PageViewport shows the rendered page for the current chain entry. Until a
// page arrives it shows the key summary.
type PageViewport struct {
	vp    viewport.Model
	shown bool // a page has been set
}

// NewPageViewport creates an empty viewport; SetSize gives it dimensions.
func NewPageViewport() PageViewport {
	vp := viewport.New(0, 0)
	vp.MouseWheelEnabled = true
	vp.MouseWheelDelta = 3
	return PageViewport{vp: vp}
}

// SetSize updates the viewport dimensions.
func (pv *PageViewport) SetSize(width, height int) {
	pv.vp.Width = width
	pv.vp.Height = height
}

// Width returns the width pages should be rendered at.
func (pv *PageViewport) Width() int {
	return pv.vp.Width
}

// SetContent shows a newly rendered page from its top line.
func (pv *PageViewport) SetContent(content string) {
	pv.vp.SetContent(content)
	pv.vp.GotoTop()
	pv.shown = true
}

// Scroll moves the page.
func (pv *PageViewport) Scroll(s Scroll) {
	switch s {
	case ScrollLineDown:
		pv.vp.LineDown(1)
	case ScrollLineUp:
		pv.vp.LineUp(1)
	case ScrollHalfDown:
		pv.vp.HalfViewDown()
	case ScrollHalfUp:
		pv.vp.HalfViewUp()
	case ScrollTop:
		pv.vp.GotoTop()
	case ScrollBottom:
		pv.vp.GotoBottom()
	}
}

// Update forwards mouse and unbound keys to the viewport.
func (pv *PageViewport) Update(msg tea.Msg) (*PageViewport, tea.Cmd) {
	var cmd tea.Cmd
	pv.vp, cmd = pv.vp.Update(msg)
	return pv, cmd
}

// ScrollInfo reports TOP, BOT or the percentage scrolled.
func (pv *PageViewport) ScrollInfo() string {
	switch {
	case pv.vp.AtTop():
		return "TOP"
	case pv.vp.AtBottom():
		return "BOT"
	}
	return fmt.Sprintf("%d%%", int(pv.vp.ScrollPercent()*100))
}

// View renders the page, or the key summary before the first one.
func (pv *PageViewport) View() string {
	if pv.shown {
		return pv.vp.View()
	}
	return keySummary()
}

var summaryKeys = [][2]string{
	{"o", "push a path"},
	{"e", "type a location (orphan)"},
	{"t", "retitle this entry"},
	{"h / l", "back / forward"},
	{"H", "show the chain"},
	{"R", "restart with a new session"},
	{"q", "quit"},
}

func keySummary() string {
	t := theme.Current
	key := lipgloss.NewStyle().Foreground(t.Secondary)
	desc := lipgloss.NewStyle().Foreground(t.Text)

	var sb strings.Builder
	sb.WriteString("\n  " + lipgloss.NewStyle().Bold(true).Foreground(t.Primary).Render("journey"))
	sb.WriteString("\n  " + lipgloss.NewStyle().Foreground(t.TextDim).Render("session history, reconciled") + "\n\n")
	for _, k := range summaryKeys {
		sb.WriteString(key.Render(fmt.Sprintf("  %-8s", k[0])) + desc.Render(k[1]) + "\n")
	}
	return sb.String()
}
