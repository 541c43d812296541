// Package debug provides a scrollable event log overlay.
package debug

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/claim-panel/tui/internal/theme"
)

const maxEntries = 200

// Entry kinds.
const (
	KindPoll   = "poll"
	KindCmd    = "cmd"
	KindStream = "ws"
	KindErr    = "err"
)

// Entry is a single event log line.
type Entry struct {
	Time    time.Time
	Kind    string
	Message string
}

// filterOrder is the sequence CycleFilter steps through. The empty kind
// shows every entry.
var filterOrder = []string{"", KindErr, KindCmd, KindPoll, KindStream}

// Model holds the event log. Offset counts lines from the newest visible
// entry and applies to the filtered view.
type Model struct {
	Entries []Entry
	Offset  int
	Filter  string
}

// New creates an empty event log.
func New() Model {
	return Model{}
}

// Add appends an entry, drops the oldest past maxEntries and jumps back to
// the newest line.
func (m *Model) Add(kind, message string) {
	m.Entries = append(m.Entries, Entry{Time: time.Now(), Kind: kind, Message: message})
	if over := len(m.Entries) - maxEntries; over > 0 {
		m.Entries = m.Entries[over:]
	}
	m.Offset = 0
}

// Addf is Add with formatting.
func (m *Model) Addf(kind, format string, args ...any) {
	m.Add(kind, fmt.Sprintf(format, args...))
}

// CycleFilter moves to the next kind filter and returns it.
func (m *Model) CycleFilter() string {
	next := 0
	for i, k := range filterOrder {
		if k == m.Filter {
			next = (i + 1) % len(filterOrder)
			break
		}
	}
	m.Filter = filterOrder[next]
	m.Offset = 0
	return m.Filter
}

// Visible returns the entries that pass the filter, oldest first.
func (m Model) Visible() []Entry {
	if m.Filter == "" {
		return m.Entries
	}
	var out []Entry
	for _, e := range m.Entries {
		if e.Kind == m.Filter {
			out = append(out, e)
		}
	}
	return out
}

// ScrollUp moves towards older entries.
func (m *Model) ScrollUp(n int) {
	m.Offset = min(m.Offset+n, max(len(m.Visible())-1, 0))
}

// ScrollDown moves towards newer entries.
func (m *Model) ScrollDown(n int) {
	m.Offset = max(m.Offset-n, 0)
}

// View renders the log as a full-screen overlay.
func (m Model) View(width, height int) string {
	innerW := max(width-4, 20)
	rows := max(height-6, 3)
	entries := m.Visible()

	filter := "all"
	if m.Filter != "" {
		filter = m.Filter
	}
	title := theme.StyleHeader.Render(" EVENT LOG ") + theme.StyleDimmed.Render(" ["+filter+"]")
	footer := theme.StyleDimmed.Render(fmt.Sprintf("j/k:scroll  f:filter  esc:close  %d/%d entries", len(entries), len(m.Entries)))

	body := theme.StyleDimmed.Render("  No events recorded yet.")
	if len(entries) > 0 {
		end := max(len(entries)-m.Offset, 0)
		lines := make([]string, 0, rows)
		for _, e := range entries[max(end-rows, 0):end] {
			lines = append(lines, renderEntry(e, innerW-24))
		}
		if m.Offset > 0 {
			lines = append(lines, theme.StyleDimmed.Render(fmt.Sprintf(" ↓ %d newer", m.Offset)))
		}
		body = strings.Join(lines, "\n")
	} else if m.Filter != "" {
		body = theme.StyleDimmed.Render("  No " + m.Filter + " events.")
	}

	return lipgloss.NewStyle().
		Width(innerW).
		Padding(1, 2).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(lipgloss.JoinVertical(lipgloss.Left, title, "", body, "", footer))
}

func renderEntry(e Entry, limit int) string {
	msg := e.Message
	if limit > 3 && len(msg) > limit {
		msg = msg[:limit-3] + "..."
	}
	kind := lipgloss.NewStyle().Foreground(kindColor(e.Kind)).Width(5).Render(e.Kind)
	return theme.StyleDimmed.Render(e.Time.Format("15:04:05.000")) + " " + kind + " " + msg
}

func kindColor(kind string) lipgloss.Color {
	switch kind {
	case KindStream:
		return theme.ColorRunning
	case KindErr:
		return theme.ColorDanger
	case KindCmd:
		return theme.ColorStarting
	case KindPoll:
		return theme.ColorHealthy
	default:
		return theme.ColorDimmed
	}
}
