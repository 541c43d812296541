// Package wallet renders the wallet stats panel and an animated gauge of
// the balance against the auto-withdrawal threshold.
package wallet

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"
	"github.com/claim-panel/tui/internal/client"
	"github.com/claim-panel/tui/internal/theme"
)

const (
	fps        = 60
	settleEps  = 0.001
	gaugeWidth = 30
)

// FrameMsg advances the gauge animation by one frame.
type FrameMsg struct{}

func frame() tea.Cmd {
	return tea.Tick(time.Second/fps, func(time.Time) tea.Msg { return FrameMsg{} })
}

// Model holds the wallet panel state.
type Model struct {
	Width int

	stats          *client.WalletStats
	threshold      float64
	autoWithdrawal bool

	spring    harmonica.Spring
	pos, vel  float64
	target    float64
	animating bool
}

// New creates a wallet panel for the configured withdrawal threshold.
func New(threshold float64, autoWithdrawal bool) Model {
	return Model{
		threshold:      threshold,
		autoWithdrawal: autoWithdrawal,
		spring:         harmonica.NewSpring(harmonica.FPS(fps), 6.0, 0.8),
	}
}

// SetStats replaces the shown stats and starts the gauge moving towards the
// new fill level.
func (m *Model) SetStats(stats *client.WalletStats) tea.Cmd {
	m.stats = stats
	if stats == nil {
		return nil
	}
	m.target = fill(stats.TotalBalance, m.threshold)
	if m.animating || m.settled() {
		return nil
	}
	m.animating = true
	return frame()
}

// Update steps the animation on FrameMsg.
func (m *Model) Update(msg tea.Msg) tea.Cmd {
	if _, ok := msg.(FrameMsg); !ok {
		return nil
	}
	m.pos, m.vel = m.spring.Update(m.pos, m.vel, m.target)
	if m.settled() {
		m.pos, m.vel = m.target, 0
		m.animating = false
		return nil
	}
	return frame()
}

// Fill returns the gauge's current displayed fill in [0, 1].
func (m Model) Fill() float64 { return clamp01(m.pos) }

// Stats returns the stats being shown.
func (m Model) Stats() *client.WalletStats { return m.stats }

func (m Model) settled() bool {
	return math.Abs(m.pos-m.target) < settleEps && math.Abs(m.vel) < settleEps
}

// fill is balance as a fraction of threshold.
func fill(balance, threshold float64) float64 {
	if threshold <= 0 {
		return 0
	}
	return clamp01(balance / threshold)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// View renders the panel.
func (m Model) View() string {
	width := max(m.Width, 36)
	title := theme.StyleHeader.Render("WALLET")

	if m.stats == nil {
		return theme.Panel(width).Render(lipgloss.JoinVertical(lipgloss.Left,
			title, theme.StyleDimmed.Render("Loading wallet stats...")))
	}

	s := m.stats
	btc := lipgloss.NewStyle().Foreground(theme.ColorBitcoin)
	rows := []string{
		title,
		row("Total balance", btc.Render(theme.FormatBTC(s.TotalBalance)+" BTC")),
		row("Claimed today", btc.Render(theme.FormatBTC(s.TotalClaimedToday)+" BTC")),
		row("Successful", lipgloss.NewStyle().Foreground(theme.ColorSuccess).Render(fmt.Sprint(s.SuccessfulClaims))),
		row("Failed", lipgloss.NewStyle().Foreground(theme.ColorFailed).Render(fmt.Sprint(s.FailedClaims))),
		row("Active sessions", theme.StyleValue.Render(fmt.Sprint(s.ActiveSessions))),
		"",
	}

	if m.autoWithdrawal {
		rows = append(rows,
			theme.StyleDimmed.Render("Auto-withdrawal at "+theme.FormatBTC(m.threshold)+" BTC"),
			m.gauge())
	} else {
		rows = append(rows, theme.StyleDimmed.Render("Auto-withdrawal off"))
	}

	return theme.Panel(width).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m Model) gauge() string {
	f := m.Fill()
	filled := int(math.Round(f * gaugeWidth))
	color := theme.ColorGaugeLo
	if f >= 1 {
		color = theme.ColorGaugeHi
	}
	bar := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled)) +
		theme.StyleDimmed.Render(strings.Repeat("░", gaugeWidth-filled))
	return fmt.Sprintf("%s %3.0f%%", bar, f*100)
}

func row(label, value string) string {
	return theme.StyleLabel.Render(label) + value
}
