// Package collapse tracks which nodes have their children hidden. The state is
// view-only and never persisted.
package collapse

import (
	"github.com/dori/mindmap/internal/tree"
)

// Set is the set of collapsed node ids. The zero value is not usable; use New.
type Set struct {
	ids map[string]bool
}

// New returns an empty set
func New() *Set {
	return &Set{ids: make(map[string]bool)}
}

// IsCollapsed reports whether id has its children hidden
func (s *Set) IsCollapsed(id string) bool {
	return s.ids[id]
}

// Collapse hides the children of id
func (s *Set) Collapse(id string) {
	s.ids[id] = true
}

// Expand shows the children of id
func (s *Set) Expand(id string) {
	delete(s.ids, id)
}

// Toggle flips id and returns the new collapsed state
func (s *Set) Toggle(id string) bool {
	if s.ids[id] {
		s.Expand(id)
		return false
	}
	s.Collapse(id)
	return true
}

// Reveal expands every collapsed ancestor of ref (its parent tasks and its
// group) so that ref is reachable. ref itself is left alone.
func (s *Set) Reveal(t *tree.Tree, ref tree.NodeRef) {
	if ref.Kind != tree.KindTask {
		return
	}
	task, ok := t.Task(ref.ID)
	if !ok {
		return
	}
	for _, a := range t.Ancestors(ref.ID) {
		s.Expand(a.ID)
	}
	s.Expand(task.GroupID)
}

// Hidden reports whether ref sits below a collapsed node
func (s *Set) Hidden(t *tree.Tree, ref tree.NodeRef) bool {
	if ref.Kind != tree.KindTask {
		return false
	}
	task, ok := t.Task(ref.ID)
	if !ok {
		return false
	}
	if s.ids[task.GroupID] {
		return true
	}
	for _, a := range t.Ancestors(ref.ID) {
		if s.ids[a.ID] {
			return true
		}
	}
	return false
}

// Surface returns the nearest node above ref that is not hidden: ref itself
// when it is visible, else its closest visible ancestor task, else its group.
func (s *Set) Surface(t *tree.Tree, ref tree.NodeRef) tree.NodeRef {
	if !s.Hidden(t, ref) {
		return ref
	}
	task, _ := t.Task(ref.ID)
	for _, a := range t.Ancestors(ref.ID) {
		if up := tree.TaskRef(a.ID); !s.Hidden(t, up) {
			return up
		}
	}
	return tree.GroupRef(task.GroupID)
}

// Prune forgets ids that no longer exist in t
func (s *Set) Prune(t *tree.Tree) {
	for id := range s.ids {
		if _, ok := t.Lookup(id); !ok {
			s.Expand(id)
		}
	}
}
