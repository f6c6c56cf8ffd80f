package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds every binding the browser and sync views react to.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	enter   key.Binding
	back    key.Binding
	sync    key.Binding
	yes     key.Binding
	no      key.Binding
	restart key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	bind := func(help, desc string, keys ...string) key.Binding {
		return key.NewBinding(key.WithKeys(keys...), key.WithHelp(help, desc))
	}
	return keyMap{
		up:      bind("↑/k", "up", "up", "k"),
		down:    bind("↓/j", "down", "down", "j"),
		enter:   bind("enter", "details", "enter"),
		back:    bind("esc", "back", "esc"),
		sync:    bind("s", "sync", "s"),
		yes:     bind("y", "start sync", "y"),
		no:      bind("n", "cancel", "n"),
		restart: bind("r", "back to collection", "r"),
		quit:    bind("q", "quit", "q", "ctrl+c"),
	}
}

// helpFor lists the bindings shown in the footer of view.
func (k keyMap) helpFor(view ViewState) []key.Binding {
	switch view {
	case DetailView:
		return []key.Binding{k.back, k.quit}
	case ConfirmView:
		return []key.Binding{k.yes, k.no}
	case SyncView:
		return []key.Binding{k.quit}
	case ResultView:
		return []key.Binding{k.restart, k.quit}
	default:
		return []key.Binding{k.sync, k.quit}
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return k.helpFor(ReleaseListView)
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter, k.back},
		{k.sync, k.yes, k.no},
		{k.restart, k.quit},
	}
}
