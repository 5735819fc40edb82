package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	send     key.Binding
	enter    key.Binding
	back     key.Binding
	yes      key.Binding
	no       key.Binding
	courses  key.Binding
	complete key.Binding
	remove   key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		send:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		yes:      key.NewBinding(key.WithKeys("y", "Y"), key.WithHelp("y", "yes")),
		no:       key.NewBinding(key.WithKeys("n", "N"), key.WithHelp("n", "no")),
		courses:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "courses")),
		complete: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "complete")),
		remove:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		quit:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.send, k.enter, k.back},
		{k.yes, k.no, k.courses},
		{k.complete, k.remove, k.quit},
	}
}
