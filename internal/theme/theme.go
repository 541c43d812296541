// Package theme provides the Lip Gloss color palette and reusable styles
// for the claim panel. It is a leaf package with no internal imports
// to avoid import cycles.
package theme

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Claim outcome colors.
var (
	ColorSuccess       = lipgloss.Color("#16a34a")
	ColorFailed        = lipgloss.Color("#dc2626")
	ColorCaptchaFailed = lipgloss.Color("#d97706")
	ColorOther         = lipgloss.Color("#9ca3af")
)

// Session phase colors.
var (
	ColorIdle     = lipgloss.Color("#4b5563")
	ColorStarting = lipgloss.Color("#7c3aed")
	ColorRunning  = lipgloss.Color("#2563eb")
	ColorStopping = lipgloss.Color("#854d0e")
)

// Wallet colors.
var (
	ColorBitcoin = lipgloss.Color("#f7931a")
	ColorGaugeLo = lipgloss.Color("#3b82f6")
	ColorGaugeHi = lipgloss.Color("#22c55e")
)

// UI chrome colors.
var (
	ColorBorder  = lipgloss.Color("#4b5563")
	ColorDimmed  = lipgloss.Color("#6b7280")
	ColorBright  = lipgloss.Color("#f9fafb")
	ColorBg      = lipgloss.Color("#111827")
	ColorHealthy = lipgloss.Color("#22c55e")
	ColorWarning = lipgloss.Color("#d97706")
	ColorDanger  = lipgloss.Color("#dc2626")
)

// ClaimColor returns the color for a claim status.
func ClaimColor(status string) lipgloss.Color {
	switch status {
	case "success":
		return ColorSuccess
	case "failed":
		return ColorFailed
	case "captcha_failed":
		return ColorCaptchaFailed
	default:
		return ColorOther
	}
}

// ClaimGlyph returns a Unicode glyph for a claim status.
func ClaimGlyph(status string) string {
	switch status {
	case "success":
		return "✓"
	case "failed":
		return "✗"
	case "captcha_failed":
		return "⚠"
	default:
		return "·"
	}
}

// PhaseColor returns the color for a session phase name.
func PhaseColor(phase string) lipgloss.Color {
	switch phase {
	case "idle":
		return ColorIdle
	case "starting":
		return ColorStarting
	case "running":
		return ColorRunning
	case "stopping":
		return ColorStopping
	default:
		return ColorOther
	}
}

// RunStateColor returns the color for a backend session state.
func RunStateColor(state string) lipgloss.Color {
	switch state {
	case "running":
		return ColorRunning
	case "completed":
		return ColorSuccess
	case "failed":
		return ColorFailed
	default:
		return ColorOther
	}
}

// FormatBTC renders an amount with eight decimal places.
func FormatBTC(amount float64) string {
	return fmt.Sprintf("%.8f", amount)
}

// Reusable styles.
var (
	StyleBorder = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder)

	StyleHeader = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorBright)

	StyleDimmed = lipgloss.NewStyle().
		Foreground(ColorDimmed)

	StyleLabel = lipgloss.NewStyle().
		Foreground(ColorDimmed).
		Width(16)

	StyleValue = lipgloss.NewStyle().
		Foreground(ColorBright)

	StyleError = lipgloss.NewStyle().
		Foreground(ColorDanger)

	StyleOK = lipgloss.NewStyle().
		Foreground(ColorHealthy)
)

// Panel returns the bordered box used by every dashboard panel.
func Panel(width int) lipgloss.Style {
	return StyleBorder.Width(width).Padding(0, 1)
}
