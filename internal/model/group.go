package model

import (
	"time"
)

// Group is an ordered container of tasks within a project
type Group struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"project_id"`
	Title      string    `json:"title"`
	OrderIndex int       `json:"order_index"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// GroupPatch is a field-level update of a group. Nil fields are left alone.
type GroupPatch struct {
	Title      *string `json:"title,omitempty"`
	OrderIndex *int    `json:"order_index,omitempty"`
}

// IsEmpty reports whether the patch changes nothing
func (p GroupPatch) IsEmpty() bool {
	return p.Title == nil && p.OrderIndex == nil
}

// Apply returns g with the patch applied
func (p GroupPatch) Apply(g Group) Group {
	if p.Title != nil {
		g.Title = *p.Title
	}
	if p.OrderIndex != nil {
		g.OrderIndex = *p.OrderIndex
	}
	return g
}

// Inverse returns the patch that restores the fields p touches to their value in old
func (p GroupPatch) Inverse(old Group) GroupPatch {
	var inv GroupPatch
	if p.Title != nil {
		title := old.Title
		inv.Title = &title
	}
	if p.OrderIndex != nil {
		idx := old.OrderIndex
		inv.OrderIndex = &idx
	}
	return inv
}

// LessGroup orders groups by OrderIndex, then creation time, then id
func LessGroup(a, b Group) bool {
	if a.OrderIndex != b.OrderIndex {
		return a.OrderIndex < b.OrderIndex
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
