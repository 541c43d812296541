// Package help renders the key reference overlay from Markdown.
package help

import (
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/claim-panel/tui/internal/theme"
)

const content = `# Claim panel

| Key | Action |
|-----|--------|
| s / enter | Start or stop claiming |
| + / - / ↑ / ↓ | Adjust session count by 1 |
| pgup / pgdn | Adjust session count by 100 |
| r | Refresh now |
| j / k | Scroll recent claims |
| d | Toggle event log |
| f | Filter the event log by kind |
| ? | Toggle this help |
| esc | Close overlay |
| q / ctrl+c | Quit |

The session count can only be changed while no session is running.
Wallet stats and claims refresh every poll interval; the tracked
session's status is polled while it is held.
`

// Model caches the rendered help for the last width.
type Model struct {
	style    string
	width    int
	rendered string
}

// New creates a help overlay using the dark glamour style.
func New() Model {
	return NewWithStyle("dark")
}

// NewWithStyle creates a help overlay using a named glamour style.
func NewWithStyle(style string) Model {
	return Model{style: style}
}

// Markdown returns the source text.
func Markdown() string { return content }

// View renders the overlay at width.
func (m *Model) View(width int) string {
	width = max(width-4, 40)
	if m.rendered == "" || m.width != width {
		m.width = width
		m.rendered = render(m.style, width)
	}
	return lipgloss.NewStyle().
		Width(width).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(m.rendered)
}

func render(style string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width-4),
	)
	if err != nil {
		return content
	}
	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return out
}
