package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Left    key.Binding
	Right   key.Binding
	Select  key.Binding
	Next    key.Binding
	Back    key.Binding
	Ignore  key.Binding
	Edit    key.Binding
	Mark    key.Binding
	Discard key.Binding
	Filter  key.Binding
	Submit  key.Binding
	Confirm key.Binding
	Cancel  key.Binding
	Quit    key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "prev")),
		Right:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next")),
		Select:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		Next:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "continue")),
		Back:    key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "back")),
		Ignore:  key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "ignore column")),
		Edit:    key.NewBinding(key.WithKeys("e", "enter"), key.WithHelp("e", "edit cell")),
		Mark:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "mark row")),
		Discard: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "discard marked")),
		Filter:  key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "errors only")),
		Submit:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "submit")),
		Confirm: key.NewBinding(key.WithKeys("y", "enter"), key.WithHelp("y", "confirm")),
		Cancel:  key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n/esc", "cancel")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}
