package model

import (
	"time"
)

// Status represents the current state of a task
type Status string

const (
	StatusTodo Status = "todo"
	StatusDone Status = "done"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	return s == StatusTodo || s == StatusDone
}

// Toggle returns the opposite status
func (s Status) Toggle() Status {
	if s == StatusDone {
		return StatusTodo
	}
	return StatusDone
}

// Priority bounds. Priority is nullable; nil means "no priority".
const (
	PriorityMin = 1
	PriorityMax = 4
)

// NextPriority cycles nil -> 1 -> ... -> PriorityMax -> nil
func NextPriority(p *int) *int {
	if p == nil {
		v := PriorityMin
		return &v
	}
	if *p >= PriorityMax {
		return nil
	}
	v := *p + 1
	return &v
}

// Task is a unit of work. Nested tasks always carry their group's id.
type Task struct {
	ID           string     `json:"id"`
	GroupID      string     `json:"group_id"`
	ParentTaskID *string    `json:"parent_task_id,omitempty"` // nil for root tasks of the group
	Title        string     `json:"title"`
	Status       Status     `json:"status"`
	Priority     *int       `json:"priority,omitempty"`
	OrderIndex   int        `json:"order_index"`
	ScheduledAt  *time.Time `json:"scheduled_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsRoot returns true if the task has no parent task
func (t *Task) IsRoot() bool {
	return t.ParentTaskID == nil
}

// ParentID returns the parent task id or "" for root tasks
func (t *Task) ParentID() string {
	if t.ParentTaskID == nil {
		return ""
	}
	return *t.ParentTaskID
}

// IsDone returns true if the task is completed
func (t *Task) IsDone() bool {
	return t.Status == StatusDone
}

// IsScheduledToday returns true if the task is scheduled for today
func (t *Task) IsScheduledToday() bool {
	if t.ScheduledAt == nil {
		return false
	}
	now := time.Now()
	return t.ScheduledAt.Year() == now.Year() &&
		t.ScheduledAt.YearDay() == now.YearDay()
}

// Clone returns a copy that shares no pointers with t
func (t Task) Clone() Task {
	if t.ParentTaskID != nil {
		p := *t.ParentTaskID
		t.ParentTaskID = &p
	}
	if t.Priority != nil {
		p := *t.Priority
		t.Priority = &p
	}
	if t.ScheduledAt != nil {
		s := *t.ScheduledAt
		t.ScheduledAt = &s
	}
	return t
}

// SameParent reports whether a and b hang under the same parent task (or both are roots)
func SameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// LessTask orders sibling tasks by OrderIndex, then creation time, then id
func LessTask(a, b Task) bool {
	if a.OrderIndex != b.OrderIndex {
		return a.OrderIndex < b.OrderIndex
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// TaskPatch is a field-level update of a task. Nil pointers are left alone;
// the Clear flags set a nullable field back to nil.
type TaskPatch struct {
	Title            *string    `json:"title,omitempty"`
	Status           *Status    `json:"status,omitempty"`
	Priority         *int       `json:"priority,omitempty"`
	ClearPriority    bool       `json:"clear_priority,omitempty"`
	ScheduledAt      *time.Time `json:"scheduled_at,omitempty"`
	ClearScheduledAt bool       `json:"clear_scheduled_at,omitempty"`
	OrderIndex       *int       `json:"order_index,omitempty"`

	// Structural fields. Only the engine's move operation sets these.
	GroupID      *string `json:"group_id,omitempty"`
	ParentTaskID *string `json:"parent_task_id,omitempty"`
	ClearParent  bool    `json:"clear_parent,omitempty"`
}

// IsEmpty reports whether the patch changes nothing
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Status == nil && p.Priority == nil && !p.ClearPriority &&
		p.ScheduledAt == nil && !p.ClearScheduledAt && p.OrderIndex == nil &&
		!p.Structural()
}

// Structural reports whether the patch moves the task
func (p TaskPatch) Structural() bool {
	return p.GroupID != nil || p.ParentTaskID != nil || p.ClearParent
}

// WithoutStructure returns the patch with the structural fields dropped
func (p TaskPatch) WithoutStructure() TaskPatch {
	p.GroupID = nil
	p.ParentTaskID = nil
	p.ClearParent = false
	return p
}

// Apply returns t with the patch applied. t is cloned first.
func (p TaskPatch) Apply(t Task) Task {
	t = t.Clone()
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.ClearPriority {
		t.Priority = nil
	} else if p.Priority != nil {
		v := *p.Priority
		t.Priority = &v
	}
	if p.ClearScheduledAt {
		t.ScheduledAt = nil
	} else if p.ScheduledAt != nil {
		v := *p.ScheduledAt
		t.ScheduledAt = &v
	}
	if p.OrderIndex != nil {
		t.OrderIndex = *p.OrderIndex
	}
	if p.GroupID != nil {
		t.GroupID = *p.GroupID
	}
	if p.ClearParent {
		t.ParentTaskID = nil
	} else if p.ParentTaskID != nil {
		v := *p.ParentTaskID
		t.ParentTaskID = &v
	}
	return t
}

// Inverse returns the patch that puts every field p touches back to its value in old
func (p TaskPatch) Inverse(old Task) TaskPatch {
	old = old.Clone()
	var inv TaskPatch
	if p.Title != nil {
		inv.Title = &old.Title
	}
	if p.Status != nil {
		inv.Status = &old.Status
	}
	if p.Priority != nil || p.ClearPriority {
		if old.Priority == nil {
			inv.ClearPriority = true
		} else {
			inv.Priority = old.Priority
		}
	}
	if p.ScheduledAt != nil || p.ClearScheduledAt {
		if old.ScheduledAt == nil {
			inv.ClearScheduledAt = true
		} else {
			inv.ScheduledAt = old.ScheduledAt
		}
	}
	if p.OrderIndex != nil {
		inv.OrderIndex = &old.OrderIndex
	}
	if p.GroupID != nil {
		inv.GroupID = &old.GroupID
	}
	if p.ParentTaskID != nil || p.ClearParent {
		if old.ParentTaskID == nil {
			inv.ClearParent = true
		} else {
			inv.ParentTaskID = old.ParentTaskID
		}
	}
	return inv
}
