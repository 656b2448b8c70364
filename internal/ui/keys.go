package ui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/dori/mindmap/internal/focus"
)

// KeyMap defines the keys handled above the outline
type KeyMap struct {
	Quit       key.Binding
	Help       key.Binding
	ThemeCycle key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
}

// DefaultKeyMap returns the default keybindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+q"),
			key.WithHelp("ctrl+q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("f1", "help"),
		),
		ThemeCycle: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("ctrl+t", "theme"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "scroll up"),
		),
		ScrollDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "scroll down"),
		),
	}
}

// helpKeys adapts both key maps to help.KeyMap for the current mode
type helpKeys struct {
	global  KeyMap
	outline focus.KeyMap
	state   focus.State
}

// ShortHelp returns the bindings that matter in the current mode
func (h helpKeys) ShortHelp() []key.Binding {
	o := h.outline
	switch h.state {
	case focus.StateEditing:
		return []key.Binding{o.Commit, o.Cancel, o.NewChild, h.global.Quit}
	case focus.StateConfirmDelete:
		return []key.Binding{o.Confirm, o.Deny}
	case focus.StateSelected:
		return []key.Binding{o.NewSibling, o.NewChild, o.Delete, o.Done, o.Undo, h.global.Help, h.global.Quit}
	default:
		return []key.Binding{o.Down, o.NewGroup, o.Reload, h.global.Help, h.global.Quit}
	}
}

// FullHelp returns every binding
func (h helpKeys) FullHelp() [][]key.Binding {
	rows := h.outline.FullHelp()
	g := h.global
	return append(rows, []key.Binding{g.ScrollUp, g.ScrollDown, g.ThemeCycle, g.Help, g.Quit})
}
