package tui

import "charm.land/bubbles/v2/key"

// KeyMap holds the review screen bindings.
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	Coarse   key.Binding
	Commit   key.Binding
	Keep     key.Binding
	Reject   key.Binding
	Skip     key.Binding
	Undo     key.Binding
	NextCode key.Binding
	PrevCode key.Binding
	Anchor   key.Binding
	Help     key.Binding
	Quit     key.Binding
}

// DefaultKeyMap returns the built-in bindings. Digits 1-9 additionally
// select codes by position.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "move up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "move down")),
		Left:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "move left")),
		Right:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "move right")),
		Coarse:   key.NewBinding(key.WithKeys("shift+up", "shift+down", "shift+left", "shift+right", "K", "J", "H", "L"), key.WithHelp("shift", "move faster")),
		Commit:   key.NewBinding(key.WithKeys("enter", "space"), key.WithHelp("enter", "commit")),
		Keep:     key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "keep as is")),
		Reject:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "reject")),
		Skip:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "skip (ambiguous)")),
		Undo:     key.NewBinding(key.WithKeys("u", "ctrl+z"), key.WithHelp("u", "undo")),
		NextCode: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next code")),
		PrevCode: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous code")),
		Anchor:   key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "toggle anchor")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Commit, k.Keep, k.Reject, k.Skip, k.Undo, k.NextCode, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right, k.Coarse},
		{k.Commit, k.Keep, k.Reject, k.Skip, k.Undo},
		{k.NextCode, k.PrevCode, k.Anchor, k.Help, k.Quit},
	}
}
