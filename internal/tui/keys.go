package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap is the browser's bindings. It implements help.KeyMap so the status
// bar can list what applies at the current level.
type keyMap struct {
	Up          key.Binding
	Down        key.Binding
	Open        key.Binding
	Back        key.Binding
	Copy        key.Binding
	NextContext key.Binding
	Scope       key.Binding
	ScrollUp    key.Binding
	ScrollDown  key.Binding
	Quit        key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Up:          key.NewBinding(key.WithKeys("up", "ctrl+k"), key.WithHelp("↑", "prev")),
		Down:        key.NewBinding(key.WithKeys("down", "ctrl+j"), key.WithHelp("↓", "next")),
		Open:        key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "rows")),
		Back:        key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Copy:        key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("C-y", "copy SQL")),
		NextContext: key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("C-t", "next context")),
		Scope:       key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "search values")),
		ScrollUp:    key.NewBinding(key.WithKeys("ctrl+u", "pgup"), key.WithHelp("C-u", "preview up")),
		ScrollDown:  key.NewBinding(key.WithKeys("ctrl+d", "pgdown"), key.WithHelp("C-d", "preview down")),
		Quit:        key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("C-c", "quit")),
	}
}

// forLevel adjusts help text and enablement to what the keys do at lvl.
func (k keyMap) forLevel(lvl level, hasHistory bool) keyMap {
	switch lvl {
	case levelTables:
		k.Open.SetHelp("enter", "rows")
		k.Scope.SetHelp("tab", "search values")
		k.NextContext.SetEnabled(false)
	case levelRows:
		k.Open.SetHelp("enter", "copy SQL")
		k.Scope.SetEnabled(false)
		k.NextContext.SetEnabled(true)
	case levelSearch:
		k.Open.SetHelp("enter", "copy SQL")
		k.Scope.SetHelp("tab", "tables")
		k.NextContext.SetEnabled(true)
	}
	if hasHistory {
		k.Back.SetHelp("esc", "back")
	} else {
		k.Back.SetHelp("esc", "quit")
	}
	return k
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Open, k.Copy, k.NextContext, k.Scope, k.Back}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.ScrollUp, k.ScrollDown},
		{k.Open, k.Copy, k.NextContext, k.Scope},
		{k.Back, k.Quit},
	}
}
