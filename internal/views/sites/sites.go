// Package sites renders the faucet catalog.
package sites

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/claim-panel/tui/internal/client"
	"github.com/claim-panel/tui/internal/theme"
)

const cellWidth = 24

// Model holds the catalog panel state.
type Model struct {
	Width int

	sites  []client.FaucetSite
	loaded bool
	err    error
}

// New creates an empty catalog panel.
func New() Model {
	return Model{}
}

// SetSites stores the loaded catalog.
func (m *Model) SetSites(sites []client.FaucetSite) {
	m.sites = sites
	m.loaded = true
	m.err = nil
}

// SetError records a failed catalog fetch. A loaded catalog is kept.
func (m *Model) SetError(err error) {
	m.err = err
}

// View renders the catalog in columns.
func (m Model) View() string {
	width := max(m.Width, cellWidth+4)
	title := theme.StyleHeader.Render(fmt.Sprintf("FAUCET SITES (%d)", len(m.sites)))

	switch {
	case !m.loaded && m.err != nil:
		return theme.Panel(width).Render(lipgloss.JoinVertical(lipgloss.Left,
			title, theme.StyleError.Render("Catalog unavailable: "+m.err.Error())))
	case !m.loaded:
		return theme.Panel(width).Render(lipgloss.JoinVertical(lipgloss.Left,
			title, theme.StyleDimmed.Render("Loading catalog...")))
	case len(m.sites) == 0:
		return theme.Panel(width).Render(lipgloss.JoinVertical(lipgloss.Left,
			title, theme.StyleDimmed.Render("No sites configured.")))
	}

	cols := max((width-4)/cellWidth, 1)
	var lines []string
	for i := 0; i < len(m.sites); i += cols {
		var cells []string
		for _, s := range m.sites[i:min(i+cols, len(m.sites))] {
			cells = append(cells, cell(s))
		}
		lines = append(lines, strings.Join(cells, ""))
	}
	return theme.Panel(width).Render(title + "\n" + strings.Join(lines, "\n"))
}

func cell(s client.FaucetSite) string {
	name := s.Name
	if len(name) > cellWidth-7 {
		name = name[:cellWidth-8] + "…"
	}
	cooldown := theme.StyleDimmed.Render(fmt.Sprintf("%dm", s.Cooldown))
	return lipgloss.NewStyle().Width(cellWidth).Render(name + " " + cooldown)
}
