package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the panel key bindings.
type KeyMap struct {
	Graph key.Binding
	Quit  key.Binding
}

// DefaultKeyMap toggles the graph with g and quits with q or ctrl+c.
var DefaultKeyMap = KeyMap{
	Graph: key.NewBinding(
		key.WithKeys("g"),
		key.WithHelp("g", "toggle graph"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
