package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap 终端界面的按键绑定
type KeyMap struct {
	Up        key.Binding
	Down      key.Binding
	Start     key.Binding
	Stop      key.Binding
	Toggle    key.Binding
	Reset     key.Binding
	Reprocess key.Binding
	Restart   key.Binding
	Refresh   key.Binding
	Confirm   key.Binding
	Cancel    key.Binding
	Quit      key.Binding
}

var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	Start: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "start"),
	),
	Stop: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "stop"),
	),
	Toggle: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t", "toggle"),
	),
	Reset: key.NewBinding(
		key.WithKeys("z"),
		key.WithHelp("z", "reset processing"),
	),
	Reprocess: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "reprocess files"),
	),
	Restart: key.NewBinding(
		key.WithKeys("R"),
		key.WithHelp("R", "restart pipeline"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	Confirm: key.NewBinding(
		key.WithKeys("y", "enter"),
		key.WithHelp("y", "confirm"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("n", "esc"),
		key.WithHelp("n", "cancel"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// ShortHelp 状态栏下方的按键提示
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Start, k.Stop, k.Toggle, k.Reset, k.Reprocess, k.Restart, k.Refresh, k.Quit}
}
