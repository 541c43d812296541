// Package control renders the session control panel: the count selector,
// the start/stop toggle, the last command notice and the tracked session's
// status.
package control

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/claim-panel/tui/internal/client"
	"github.com/claim-panel/tui/internal/session"
	"github.com/claim-panel/tui/internal/theme"
)

// Model holds the control panel state. The root model copies the
// controller's state in before each render.
type Model struct {
	Width int

	Count     int
	Phase     session.Phase
	SessionID string
	Status    *client.SessionStatus
	Notice    session.Notice

	spinner spinner.Model
}

// New creates a control panel model.
func New() Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(theme.ColorStarting)
	return Model{spinner: s}
}

// Busy reports whether a command is in flight.
func (m Model) Busy() bool {
	return m.Phase == session.Starting || m.Phase == session.Stopping
}

// SpinnerTick starts the spinner.
func (m Model) SpinnerTick() tea.Cmd {
	return m.spinner.Tick
}

// Update advances the spinner while a command is in flight.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if _, ok := msg.(spinner.TickMsg); !ok || !m.Busy() {
		return m, nil
	}
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

// View renders the panel.
func (m Model) View() string {
	width := max(m.Width, 36)
	rows := []string{theme.StyleHeader.Render("SESSION CONTROL"), m.countRow(), m.actionRow()}

	if m.Notice.Text != "" {
		style := theme.StyleOK
		if m.Notice.Error {
			style = theme.StyleError
		}
		rows = append(rows, style.Render(m.Notice.Text))
	}

	if m.SessionID != "" {
		rows = append(rows, "", row("Session", theme.StyleValue.Render(m.SessionID)))
		rows = append(rows, m.statusRows()...)
	}

	return theme.Panel(width).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m Model) countRow() string {
	count := fmt.Sprintf("[ %d ]", m.Count)
	if m.Phase != session.Idle {
		return row("Sessions", theme.StyleDimmed.Render(count+"  locked while running"))
	}
	return row("Sessions", theme.StyleValue.Render(count)+theme.StyleDimmed.Render("  +/- adjust  pgup/pgdn ±100"))
}

func (m Model) actionRow() string {
	switch m.Phase {
	case session.Starting:
		return m.spinner.View() + " Starting sessions..."
	case session.Stopping:
		return m.spinner.View() + " Stopping session..."
	case session.Running:
		return lipgloss.NewStyle().Foreground(theme.ColorDanger).Bold(true).Render("[s] Stop claiming")
	default:
		return lipgloss.NewStyle().Foreground(theme.ColorHealthy).Bold(true).Render("[s] Start claiming")
	}
}

func (m Model) statusRows() []string {
	st := m.Status
	if st == nil {
		return []string{theme.StyleDimmed.Render("Waiting for session status...")}
	}
	rows := []string{
		row("State", lipgloss.NewStyle().Foreground(theme.RunStateColor(string(st.Status))).Render(string(st.Status))),
		row("Claims", fmt.Sprintf("%d (%d ok / %d failed)",
			st.Stats.TotalClaims, st.Stats.SuccessfulClaims, st.Stats.FailedClaims)),
		row("Earned", lipgloss.NewStyle().Foreground(theme.ColorBitcoin).Render(theme.FormatBTC(st.Stats.TotalEarned)+" BTC")),
	}
	if st.StartTime != nil && !st.StartTime.IsZero() {
		rows = append(rows, row("Started", st.StartTime.Local().Format("2006-01-02 15:04:05")))
	}
	if st.Error != "" {
		rows = append(rows, theme.StyleError.Render(st.Error))
	}
	return rows
}

func row(label, value string) string {
	return theme.StyleLabel.Render(label) + value
}
