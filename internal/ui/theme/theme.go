// Package theme holds the color palettes and the lipgloss styles built from them.
package theme

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme is a palette of outline roles
type Theme struct {
	Name string

	Background lipgloss.Color
	Foreground lipgloss.Color
	Subtle     lipgloss.Color // markers, secondary text
	Highlight  lipgloss.Color // selected row
	Border     lipgloss.Color

	Accent lipgloss.Color // project, header, help keys, dragged row
	Group  lipgloss.Color
	Status lipgloss.Color
	Done   lipgloss.Color // done marks, valid drop target
	Mark   lipgloss.Color // bulk marks, prompts
	Error  lipgloss.Color // errors, invalid drop target, unsaved nodes

	// Priorities[0] is priority 1, the most urgent
	Priorities [4]lipgloss.Color
}

// Styles are the lipgloss styles one Theme renders with
type Styles struct {
	Header lipgloss.Style
	Footer lipgloss.Style

	// Outline rows
	Project      lipgloss.Style
	Group        lipgloss.Style
	TaskNormal   lipgloss.Style
	TaskSelected lipgloss.Style
	TaskDone     lipgloss.Style
	Marked       lipgloss.Style
	Marker       lipgloss.Style
	Dragged      lipgloss.Style
	DropTarget   lipgloss.Style
	DropInvalid  lipgloss.Style
	Input        lipgloss.Style

	// bubbles/help
	HelpKey       lipgloss.Style
	HelpDesc      lipgloss.Style
	HelpSeparator lipgloss.Style

	// Status line
	Status lipgloss.Style
	Error  lipgloss.Style
	Prompt lipgloss.Style
}

func fg(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

// chip is a solid block in c, used for drop targets
func chip(t Theme, c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Background).Background(c)
}

// NewStyles derives every style from the theme's roles
func NewStyles(t Theme) Styles {
	return Styles{
		Header: fg(t.Accent).Bold(true).Padding(0, 1),
		Footer: fg(t.Subtle).Padding(0, 1),

		Project:      fg(t.Accent).Bold(true),
		Group:        fg(t.Group).Bold(true),
		TaskNormal:   fg(t.Foreground),
		TaskSelected: fg(t.Foreground).Background(t.Highlight).Bold(true),
		TaskDone:     fg(t.Subtle).Strikethrough(true),
		Marked:       fg(t.Mark),
		Marker:       fg(t.Subtle),
		Dragged:      fg(t.Accent).Italic(true),
		DropTarget:   chip(t, t.Done),
		DropInvalid:  chip(t, t.Error),
		Input:        fg(t.Accent),

		HelpKey:       fg(t.Accent).Bold(true),
		HelpDesc:      fg(t.Subtle),
		HelpSeparator: fg(t.Border),

		Status: fg(t.Status),
		Error:  fg(t.Error),
		Prompt: fg(t.Mark).Bold(true),
	}
}

// PriorityColor maps a priority (1 most urgent) to its color
func (t Theme) PriorityColor(p int) lipgloss.Color {
	if p < 1 || p > len(t.Priorities) {
		return t.Subtle
	}
	return t.Priorities[p-1]
}

// Current is the theme the TUI renders with; SetTheme replaces it
var Current = struct {
	Theme  Theme
	Styles Styles
}{Nord, NewStyles(Nord)}

func SetTheme(t Theme) {
	Current.Theme, Current.Styles = t, NewStyles(t)
}

var themes = []Theme{Nord, Dracula, Gruvbox, Catppuccin}

// Available lists the built-in themes in cycling order
func Available() []Theme {
	return append([]Theme(nil), themes...)
}

// ByName looks a theme up ignoring case
func ByName(name string) (Theme, bool) {
	if i := indexOf(name); i >= 0 {
		return themes[i], true
	}
	return Theme{}, false
}

// Next returns the theme after the named one, wrapping around. An unknown
// name starts the cycle over.
func Next(name string) Theme {
	return themes[(indexOf(name)+1)%len(themes)]
}

func indexOf(name string) int {
	for i, t := range themes {
		if strings.EqualFold(t.Name, name) {
			return i
		}
	}
	return -1
}
