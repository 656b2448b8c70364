package theme

import "github.com/charmbracelet/lipgloss"

// Nord, https://www.nordtheme.com/
var Nord = Theme{
	Name:       "nord",
	Background: "#2E3440",
	Foreground: "#ECEFF4",
	Subtle:     "#4C566A",
	Highlight:  "#3B4252",
	Border:     "#4C566A",
	Accent:     "#88C0D0",
	Group:      "#81A1C1",
	Status:     "#5E81AC",
	Done:       "#A3BE8C",
	Mark:       "#EBCB8B",
	Error:      "#BF616A",
	Priorities: [4]lipgloss.Color{"#BF616A", "#D08770", "#EBCB8B", "#A3BE8C"},
}

// Dracula, https://draculatheme.com/
var Dracula = Theme{
	Name:       "dracula",
	Background: "#282A36",
	Foreground: "#F8F8F2",
	Subtle:     "#6272A4",
	Highlight:  "#44475A",
	Border:     "#6272A4",
	Accent:     "#BD93F9",
	Group:      "#8BE9FD",
	Status:     "#8BE9FD",
	Done:       "#50FA7B",
	Mark:       "#F1FA8C",
	Error:      "#FF5555",
	Priorities: [4]lipgloss.Color{"#FF5555", "#FFB86C", "#F1FA8C", "#50FA7B"},
}

// Gruvbox dark, https://github.com/morhetz/gruvbox
var Gruvbox = Theme{
	Name:       "gruvbox",
	Background: "#282828",
	Foreground: "#EBDBB2",
	Subtle:     "#928374",
	Highlight:  "#3C3836",
	Border:     "#504945",
	Accent:     "#83A598",
	Group:      "#8EC07C",
	Status:     "#83A598",
	Done:       "#B8BB26",
	Mark:       "#FABD2F",
	Error:      "#FB4934",
	Priorities: [4]lipgloss.Color{"#FB4934", "#FE8019", "#FABD2F", "#B8BB26"},
}

// Catppuccin Mocha, https://github.com/catppuccin/catppuccin
var Catppuccin = Theme{
	Name:       "catppuccin",
	Background: "#1E1E2E",
	Foreground: "#CDD6F4",
	Subtle:     "#6C7086",
	Highlight:  "#313244",
	Border:     "#45475A",
	Accent:     "#89B4FA",
	Group:      "#CBA6F7",
	Status:     "#74C7EC",
	Done:       "#A6E3A1",
	Mark:       "#F9E2AF",
	Error:      "#F38BA8",
	Priorities: [4]lipgloss.Color{"#F38BA8", "#FAB387", "#F9E2AF", "#A6E3A1"},
}
