package model

import (
	"strings"
	"time"
)

// DefaultProjectID names the outline opened when no project is configured
const DefaultProjectID = "default"

// UntitledProject stands in for a blank project name
const UntitledProject = "Untitled"

// Project is one outline: a named, ordered list of groups
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProjectName trims name, falling back to UntitledProject when nothing is left
func ProjectName(name string) string {
	if name = strings.TrimSpace(name); name == "" {
		return UntitledProject
	}
	return name
}
