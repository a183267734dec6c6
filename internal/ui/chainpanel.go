package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vidyasagar/journey/internal/history"
	"github.com/vidyasagar/journey/internal/theme"
)

// ChainPanel lists the reconciler's chain, oldest first, with the current
// entry highlighted and foreign entries marked.
type ChainPanel struct {
	entries []history.State
	current int
	session history.Session
	offset  int // scroll offset for visible window
	width   int
	height  int
	visible bool
}

// NewChainPanel creates a new chain panel.
func NewChainPanel() ChainPanel {
	return ChainPanel{}
}

// SetChain updates the entries shown, the current index and the running
// session.
func (cp *ChainPanel) SetChain(entries []history.State, current int, session history.Session) {
	cp.entries = entries
	cp.current = current
	cp.session = session
	cp.ensureVisible()
}

// SetSize updates the panel dimensions.
func (cp *ChainPanel) SetSize(w, h int) {
	cp.width = w
	cp.height = h
	cp.ensureVisible()
}

// Toggle switches visibility.
func (cp *ChainPanel) Toggle() {
	cp.visible = !cp.visible
}

// IsVisible reports whether the panel is shown.
func (cp *ChainPanel) IsVisible() bool {
	return cp.visible
}

// ScrollUp moves the visible window up one entry.
func (cp *ChainPanel) ScrollUp() {
	if cp.offset > 0 {
		cp.offset--
	}
}

// ScrollDown moves the visible window down one entry.
func (cp *ChainPanel) ScrollDown() {
	if cp.offset < len(cp.entries)-cp.visibleCount() {
		cp.offset++
	}
}

// visibleCount returns how many entries fit: two lines each under a two line
// header.
func (cp *ChainPanel) visibleCount() int {
	count := (cp.height - 3) / 2
	if count < 1 {
		return 1
	}
	return count
}

// ensureVisible keeps the current entry inside the visible window.
func (cp *ChainPanel) ensureVisible() {
	visible := cp.visibleCount()
	if cp.current < cp.offset {
		cp.offset = cp.current
	}
	if cp.current >= cp.offset+visible {
		cp.offset = cp.current - visible + 1
	}
	if cp.offset < 0 {
		cp.offset = 0
	}
}

// View renders the panel.
func (cp *ChainPanel) View() string {
	if !cp.visible {
		return ""
	}

	t := theme.Current

	panelStyle := lipgloss.NewStyle().
		Width(cp.width).
		Height(cp.height).
		Background(t.Background)
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(t.Primary).
		Background(t.Surface).
		Width(cp.width).
		Padding(0, 1)
	rowStyle := lipgloss.NewStyle().
		Width(cp.width).
		Padding(0, 1)
	metaStyle := lipgloss.NewStyle().
		Foreground(t.TextDim).
		Width(cp.width).
		Padding(0, 1)

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(fmt.Sprintf("Chain (%d)", len(cp.entries))))
	sb.WriteString("\n")
	sb.WriteString(lipgloss.NewStyle().Foreground(t.Border).Render(strings.Repeat("─", max(cp.width-2, 1))))
	sb.WriteString("\n")

	end := min(cp.offset+cp.visibleCount(), len(cp.entries))
	maxLen := max(cp.width-6, 10)

	for i := cp.offset; i < end; i++ {
		s := cp.entries[i]

		title := s.Title
		if title == "" {
			title = "(untitled)"
		}
		if len(title) > maxLen {
			title = title[:maxLen-3] + "..."
		}

		marker := "  "
		style := rowStyle.Foreground(t.Text)
		if i == cp.current {
			marker = "▸ "
			style = style.Background(t.Cursor).Foreground(t.TextBright).Bold(true)
		}

		tag := "adopted"
		tagColor := t.Adopted
		if s.Orphan(cp.session) {
			tag = "foreign " + shortSession(s.Session)
			tagColor = t.Orphan
		}

		sb.WriteString(style.Render(fmt.Sprintf("%s%d %s", marker, i, title)))
		sb.WriteString("\n")
		sb.WriteString(metaStyle.Render(fmt.Sprintf("    %s  %s",
			time.UnixMilli(s.Time).Format("15:04:05.000"),
			lipgloss.NewStyle().Foreground(tagColor).Render(tag),
		)))
		sb.WriteString("\n")
	}

	return panelStyle.Render(sb.String())
}

func shortSession(s history.Session) string {
	if s == "" {
		return "(unset)"
	}
	if len(s) > 8 {
		return string(s[:8])
	}
	return string(s)
}
