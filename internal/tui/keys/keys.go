// Package keys holds the key bindings shared by the browser's panes.
package keys

import "github.com/charmbracelet/bubbles/key"

// Map lists every binding. It implements help.KeyMap.
type Map struct {
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Open     key.Binding
	Refresh  key.Binding
	Switch   key.Binding
	CopyCell key.Binding
	CopyRow  key.Binding
	CopyCSV  key.Binding
	Export   key.Binding
	Help     key.Binding
	Quit     key.Binding
}

// Default is the binding set used by every component.
var Default = Map{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Left: key.NewBinding(
		key.WithKeys("left", "h"),
		key.WithHelp("←/h", "collapse / column left"),
	),
	Right: key.NewBinding(
		key.WithKeys("right", "l"),
		key.WithHelp("→/l", "expand / column right"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("pgup"),
		key.WithHelp("pgup", "page up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("pgdown"),
		key.WithHelp("pgdn", "page down"),
	),
	Open: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "open"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reload"),
	),
	Switch: key.NewBinding(
		key.WithKeys("tab", "shift+tab"),
		key.WithHelp("tab", "switch pane"),
	),
	CopyCell: key.NewBinding(
		key.WithKeys("y"),
		key.WithHelp("y", "copy cell"),
	),
	CopyRow: key.NewBinding(
		key.WithKeys("Y"),
		key.WithHelp("Y", "copy row as JSON"),
	),
	CopyCSV: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "copy row as CSV"),
	),
	Export: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "export table as CSV"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// ShortHelp is shown in the status bar.
func (k Map) ShortHelp() []key.Binding {
	return []key.Binding{k.Open, k.Switch, k.Help, k.Quit}
}

// FullHelp is shown on the help screen, one column per group.
func (k Map) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right, k.PageUp, k.PageDown},
		{k.Open, k.Refresh, k.Switch},
		{k.CopyCell, k.CopyRow, k.CopyCSV, k.Export},
		{k.Help, k.Quit},
	}
}
