package app

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keyboard bindings for the TUI.
type KeyMap struct {
	Toggle     key.Binding
	Inc        key.Binding
	Dec        key.Binding
	IncMore    key.Binding
	DecMore    key.Binding
	Refresh    key.Binding
	ScrollDown key.Binding
	ScrollUp   key.Binding
	Debug      key.Binding
	Filter     key.Binding
	Help       key.Binding
	Escape     key.Binding
	Quit       key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Toggle: key.NewBinding(
			key.WithKeys("s", "enter"),
			key.WithHelp("s", "start/stop"),
		),
		Inc: key.NewBinding(
			key.WithKeys("+", "=", "up"),
			key.WithHelp("+/↑", "more sessions"),
		),
		Dec: key.NewBinding(
			key.WithKeys("-", "down"),
			key.WithHelp("-/↓", "fewer sessions"),
		),
		IncMore: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "+100 sessions"),
		),
		DecMore: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "-100 sessions"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		ScrollDown: key.NewBinding(
			key.WithKeys("j"),
			key.WithHelp("j", "older claims"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("k"),
			key.WithHelp("k", "newer claims"),
		),
		Debug: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "event log"),
		),
		Filter: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "filter events"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close overlay"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns the bindings shown in the footer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Inc, k.Dec, k.Refresh, k.ScrollDown, k.Debug, k.Help, k.Quit}
}
