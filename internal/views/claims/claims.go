// Package claims renders the recent claim log as a scrollable list.
package claims

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/claim-panel/tui/internal/client"
	"github.com/claim-panel/tui/internal/theme"
)

// Model holds the claim list state.
type Model struct {
	Width  int
	Height int

	entries []client.ClaimLogEntry
	offset  int
}

// New creates an empty claim list.
func New() Model {
	return Model{}
}

// SetEntries replaces the list, keeping the scroll position in range.
func (m *Model) SetEntries(entries []client.ClaimLogEntry) {
	m.entries = entries
	m.offset = min(m.offset, max(len(entries)-1, 0))
}

// Entries returns the entries shown.
func (m Model) Entries() []client.ClaimLogEntry { return m.entries }

// Offset returns the index of the first visible entry.
func (m Model) Offset() int { return m.offset }

// ScrollDown moves towards older claims.
func (m *Model) ScrollDown(n int) {
	m.offset = min(m.offset+n, max(len(m.entries)-1, 0))
}

// ScrollUp moves towards newer claims.
func (m *Model) ScrollUp(n int) {
	m.offset = max(m.offset-n, 0)
}

// View renders the list.
func (m Model) View() string {
	width := max(m.Width, 50)
	visible := max(m.Height-4, 3)
	title := theme.StyleHeader.Render(fmt.Sprintf("RECENT CLAIMS (%d)", len(m.entries)))

	if len(m.entries) == 0 {
		return theme.Panel(width).Render(lipgloss.JoinVertical(lipgloss.Left,
			title, theme.StyleDimmed.Render("No claims yet.")))
	}

	end := min(m.offset+visible, len(m.entries))
	lines := make([]string, 0, end-m.offset+1)
	lines = append(lines, title)
	for _, e := range m.entries[m.offset:end] {
		lines = append(lines, renderEntry(e))
	}
	if end < len(m.entries) {
		lines = append(lines, theme.StyleDimmed.Render(fmt.Sprintf("↓ %d older  j/k:scroll", len(m.entries)-end)))
	}
	return theme.Panel(width).Render(strings.Join(lines, "\n"))
}

func renderEntry(e client.ClaimLogEntry) string {
	kind := string(e.Status.Kind())
	color := lipgloss.NewStyle().Foreground(theme.ClaimColor(kind))

	ts := "--:--:--"
	if !e.Timestamp.IsZero() {
		ts = e.Timestamp.Local().Format("15:04:05")
	}
	name := e.FaucetName
	if len(name) > 16 {
		name = name[:15] + "…"
	}

	line := fmt.Sprintf("%s %s %-16s %-14s %s",
		theme.StyleDimmed.Render(ts),
		color.Render(theme.ClaimGlyph(kind)),
		name,
		color.Render(string(e.Status)),
		theme.FormatBTC(e.Amount))
	if e.Error != "" {
		line += " " + theme.StyleDimmed.Render(e.Error)
	}
	return line
}
