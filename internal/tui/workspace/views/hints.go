package views

import "github.com/charmbracelet/bubbles/key"

// searchHints returns the key hints shown while a list search is being typed.
func searchHints() []key.Binding {
	return []key.Binding{
		key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "search")),
	}
}

type listKeyMap struct {
	Search  key.Binding
	Status  key.Binding
	New     key.Binding
	Open    key.Binding
	Copy    key.Binding
	Refresh key.Binding
}

func defaultListKeyMap() listKeyMap {
	return listKeyMap{
		Search:  key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Status:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "status")),
		New:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new")),
		Open:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "edit")),
		Copy:    key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy id")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	}
}

type formKeyMap struct {
	Next    key.Binding
	Prev    key.Binding
	Save    key.Binding
	Reset   key.Binding
	Discard key.Binding
	Leave   key.Binding
}

func defaultFormKeyMap() formKeyMap {
	return formKeyMap{
		Next:    key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
		Prev:    key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "previous field")),
		Save:    key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		Reset:   key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "reset")),
		Discard: key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "discard")),
		Leave:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back to list")),
	}
}
