// Package status renders the bottom status bar: backend reachability, the
// session phase, refresh freshness and the live stream state.
package status

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/claim-panel/tui/internal/theme"
)

// Model holds the status bar state.
type Model struct {
	Width int

	Phase         string
	LastRefresh   time.Time
	LastError     error
	LastErrorAt   time.Time
	StreamEnabled bool
	Streaming     bool

	now func() time.Time
}

// New creates a status bar model.
func New() Model {
	return Model{Phase: "idle", now: time.Now}
}

// Reachable reports whether the most recent refresh succeeded.
func (m Model) Reachable() bool {
	if m.LastRefresh.IsZero() {
		return false
	}
	return m.LastError == nil || m.LastRefresh.After(m.LastErrorAt)
}

// View renders the status bar.
func (m Model) View() string {
	width := max(m.Width, 40)
	now := time.Now
	if m.now != nil {
		now = m.now
	}

	var conn string
	switch {
	case m.Reachable():
		conn = lipgloss.NewStyle().Foreground(theme.ColorHealthy).Render("● Backend OK")
	case m.LastRefresh.IsZero() && m.LastError == nil:
		conn = lipgloss.NewStyle().Foreground(theme.ColorWarning).Render("○ Connecting...")
	default:
		conn = lipgloss.NewStyle().Foreground(theme.ColorDanger).Render("○ Backend unreachable")
	}

	sep := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | ")
	content := conn + sep + lipgloss.NewStyle().Foreground(theme.PhaseColor(m.Phase)).Render(m.Phase)

	if !m.LastRefresh.IsZero() {
		content += sep + theme.StyleDimmed.Render("refreshed "+age(now().Sub(m.LastRefresh))+" ago")
	}
	if m.LastError != nil {
		content += sep + theme.StyleError.Render("last error "+age(now().Sub(m.LastErrorAt))+" ago")
	}
	if m.StreamEnabled {
		if m.Streaming {
			content += sep + lipgloss.NewStyle().Foreground(theme.ColorHealthy).Render("stream live")
		} else {
			content += sep + theme.StyleDimmed.Render("stream down")
		}
	}

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}

func age(d time.Duration) string {
	switch {
	case d < time.Second:
		return "<1s"
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
}
