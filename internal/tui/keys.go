package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Advance key.Binding
	Rewind  key.Binding
	Reset   key.Binding
	Quit    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Advance: key.NewBinding(
			key.WithKeys(" ", "enter", "j"),
			key.WithHelp("space", "count"),
		),
		Rewind: key.NewBinding(
			key.WithKeys("backspace", "k"),
			key.WithHelp("⌫", "undo"),
		),
		Reset: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reset"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c", "esc"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Advance, k.Rewind, k.Reset, k.Quit}
}
