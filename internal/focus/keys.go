package focus

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the outline keybindings
type KeyMap struct {
	// Navigation
	Up    key.Binding
	Down  key.Binding
	Left  key.Binding
	Right key.Binding

	// Structure
	NewSibling key.Binding
	NewChild   key.Binding
	NewGroup   key.Binding
	Delete     key.Binding
	Edit       key.Binding

	// Task actions
	Collapse key.Binding
	Done     key.Binding
	Priority key.Binding
	Bulk     key.Binding
	Yank     key.Binding

	// History
	Undo   key.Binding
	Redo   key.Binding
	Reload key.Binding

	// Editing and confirmation
	Commit  key.Binding
	Cancel  key.Binding
	Confirm key.Binding
	Deny    key.Binding
}

// DefaultKeyMap returns the default keybindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("↑", "previous sibling"),
		),
		Down: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("↓", "next sibling"),
		),
		Left: key.NewBinding(
			key.WithKeys("left"),
			key.WithHelp("←", "parent"),
		),
		Right: key.NewBinding(
			key.WithKeys("right"),
			key.WithHelp("→", "first child"),
		),

		NewSibling: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "new sibling"),
		),
		NewChild: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "new child"),
		),
		NewGroup: key.NewBinding(
			key.WithKeys("ctrl+g"),
			key.WithHelp("ctrl+g", "new group"),
		),
		Delete: key.NewBinding(
			key.WithKeys("delete", "backspace"),
			key.WithHelp("del", "delete"),
		),
		Edit: key.NewBinding(
			key.WithKeys("f2"),
			key.WithHelp("f2", "edit title"),
		),

		Collapse: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("ctrl+o", "collapse"),
		),
		Done: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("ctrl+d", "toggle done"),
		),
		Priority: key.NewBinding(
			key.WithKeys("ctrl+p"),
			key.WithHelp("ctrl+p", "priority"),
		),
		Bulk: key.NewBinding(
			key.WithKeys("ctrl+@"),
			key.WithHelp("ctrl+space", "mark"),
		),
		Yank: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("ctrl+y", "copy subtree"),
		),

		Undo: key.NewBinding(
			key.WithKeys("ctrl+z"),
			key.WithHelp("ctrl+z", "undo"),
		),
		Redo: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "redo"),
		),
		Reload: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("ctrl+l", "reload"),
		),

		Commit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "save"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y", "enter"),
			key.WithHelp("y", "confirm"),
		),
		Deny: key.NewBinding(
			key.WithKeys("n", "esc"),
			key.WithHelp("n", "keep"),
		),
	}
}

// ShortHelp returns keybindings for the short help view
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NewSibling, k.NewChild, k.Delete, k.Collapse, k.Undo}
}

// FullHelp returns keybindings for the full help view
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.NewSibling, k.NewChild, k.NewGroup, k.Delete, k.Edit},
		{k.Collapse, k.Done, k.Priority, k.Bulk, k.Yank},
		{k.Undo, k.Redo, k.Reload},
	}
}
