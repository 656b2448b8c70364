// Package tree is a read-only projection over groups and tasks.
//
// Tasks are stored in an arena keyed by id; parent/child structure is derived
// from ParentTaskID. Every walk carries a visited set so malformed data can
// never loop forever.
package tree

import (
	"fmt"
	"sort"

	"github.com/dori/mindmap/internal/model"
)

// NodeKind identifies what a node id refers to
type NodeKind int

const (
	KindProject NodeKind = iota
	KindGroup
	KindTask
)

func (k NodeKind) String() string {
	switch k {
	case KindProject:
		return "project"
	case KindGroup:
		return "group"
	case KindTask:
		return "task"
	default:
		return "unknown"
	}
}

// NodeRef addresses one node of the map
type NodeRef struct {
	Kind NodeKind
	ID   string
}

// Zero reports whether the ref points nowhere
func (r NodeRef) Zero() bool {
	return r.ID == ""
}

// GroupRef and TaskRef are shorthands for building refs
func GroupRef(id string) NodeRef { return NodeRef{Kind: KindGroup, ID: id} }
func TaskRef(id string) NodeRef  { return NodeRef{Kind: KindTask, ID: id} }

// Problem describes a task that was excluded from the tree
type Problem struct {
	TaskID string
	Reason string
}

func (p Problem) Error() string {
	return fmt.Sprintf("task %s: %s", p.TaskID, p.Reason)
}

// Tree is an immutable index over one project's groups and tasks
type Tree struct {
	groups     map[string]model.Group
	groupOrder []string
	tasks      map[string]model.Task
	children   map[string][]string // parent task id -> ordered child ids
	roots      map[string][]string // group id -> ordered root task ids
	problems   []Problem
}

// New builds a tree. Tasks that reference a missing group or parent, a parent
// in another group, or that sit on a parent cycle are quarantined and
// reported through Problems.
func New(groups []model.Group, tasks []model.Task) *Tree {
	t := &Tree{
		groups:   make(map[string]model.Group, len(groups)),
		tasks:    make(map[string]model.Task, len(tasks)),
		children: make(map[string][]string),
		roots:    make(map[string][]string),
	}
	for _, g := range groups {
		t.groups[g.ID] = g
		t.groupOrder = append(t.groupOrder, g.ID)
	}
	sort.SliceStable(t.groupOrder, func(i, j int) bool {
		return model.LessGroup(t.groups[t.groupOrder[i]], t.groups[t.groupOrder[j]])
	})

	all := make(map[string]model.Task, len(tasks))
	for _, task := range tasks {
		all[task.ID] = task
	}

	// A task is sound when its parent chain ends at a root of the same group.
	sound := make(map[string]bool, len(all))
	var check func(id string, visiting map[string]bool) (bool, string)
	check = func(id string, visiting map[string]bool) (bool, string) {
		if ok, done := sound[id]; done {
			if ok {
				return true, ""
			}
			return false, "ancestor is malformed"
		}
		task := all[id]
		if _, ok := t.groups[task.GroupID]; !ok {
			return false, "group " + task.GroupID + " does not exist"
		}
		if task.ParentTaskID == nil {
			return true, ""
		}
		pid := *task.ParentTaskID
		parent, ok := all[pid]
		if !ok {
			return false, "parent " + pid + " does not exist"
		}
		if parent.GroupID != task.GroupID {
			return false, "parent " + pid + " belongs to another group"
		}
		if visiting[pid] {
			return false, "parent chain contains a cycle"
		}
		visiting[id] = true
		ok, reason := check(pid, visiting)
		if !ok && reason != "parent chain contains a cycle" {
			reason = "ancestor is malformed"
		}
		return ok, reason
	}

	ids := make([]string, 0, len(all))
	for id := range all {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		ok, reason := check(id, map[string]bool{})
		sound[id] = ok
		if !ok {
			t.problems = append(t.problems, Problem{TaskID: id, Reason: reason})
		}
	}

	for _, id := range ids {
		if !sound[id] {
			continue
		}
		task := all[id]
		t.tasks[id] = task
		if task.ParentTaskID == nil {
			t.roots[task.GroupID] = append(t.roots[task.GroupID], id)
		} else {
			t.children[*task.ParentTaskID] = append(t.children[*task.ParentTaskID], id)
		}
	}
	for k := range t.roots {
		t.sortIDs(t.roots[k])
	}
	for k := range t.children {
		t.sortIDs(t.children[k])
	}
	return t
}

func (t *Tree) sortIDs(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		return model.LessTask(t.tasks[ids[i]], t.tasks[ids[j]])
	})
}

func (t *Tree) collect(ids []string) []model.Task {
	out := make([]model.Task, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.tasks[id])
	}
	return out
}

// Problems returns the quarantined tasks
func (t *Tree) Problems() []Problem {
	return t.problems
}

// Task returns the task with the given id
func (t *Tree) Task(id string) (model.Task, bool) {
	task, ok := t.tasks[id]
	return task, ok
}

// Group returns the group with the given id
func (t *Tree) Group(id string) (model.Group, bool) {
	g, ok := t.groups[id]
	return g, ok
}

// Groups returns all groups in order
func (t *Tree) Groups() []model.Group {
	out := make([]model.Group, 0, len(t.groupOrder))
	for _, id := range t.groupOrder {
		out = append(out, t.groups[id])
	}
	return out
}

// TaskCount returns the number of sound tasks
func (t *Tree) TaskCount() int {
	return len(t.tasks)
}

// Lookup resolves an id to a group or task ref
func (t *Tree) Lookup(id string) (NodeRef, bool) {
	if _, ok := t.tasks[id]; ok {
		return TaskRef(id), true
	}
	if _, ok := t.groups[id]; ok {
		return GroupRef(id), true
	}
	return NodeRef{}, false
}

// Contains reports whether ref points at an existing node
func (t *Tree) Contains(ref NodeRef) bool {
	switch ref.Kind {
	case KindTask:
		_, ok := t.tasks[ref.ID]
		return ok
	case KindGroup:
		_, ok := t.groups[ref.ID]
		return ok
	}
	return false
}

// ChildrenOf returns the ordered children of a task
func (t *Tree) ChildrenOf(taskID string) []model.Task {
	return t.collect(t.children[taskID])
}

// RootTasksOf returns the ordered root tasks of a group
func (t *Tree) RootTasksOf(groupID string) []model.Task {
	return t.collect(t.roots[groupID])
}

// SiblingsOf returns the ordered tasks sharing taskID's group and parent,
// including the task itself
func (t *Tree) SiblingsOf(taskID string) []model.Task {
	task, ok := t.tasks[taskID]
	if !ok {
		return nil
	}
	if task.ParentTaskID == nil {
		return t.RootTasksOf(task.GroupID)
	}
	return t.ChildrenOf(*task.ParentTaskID)
}

// ChildrenOfRef returns the ordered child tasks of a group or task
func (t *Tree) ChildrenOfRef(ref NodeRef) []model.Task {
	switch ref.Kind {
	case KindGroup:
		return t.RootTasksOf(ref.ID)
	case KindTask:
		return t.ChildrenOf(ref.ID)
	}
	return nil
}

// HasChildren reports whether a group or task has any child tasks
func (t *Tree) HasChildren(ref NodeRef) bool {
	switch ref.Kind {
	case KindGroup:
		return len(t.roots[ref.ID]) > 0
	case KindTask:
		return len(t.children[ref.ID]) > 0
	}
	return false
}

// Parent returns the parent node of a task: its parent task, or its group for roots
func (t *Tree) Parent(taskID string) (NodeRef, bool) {
	task, ok := t.tasks[taskID]
	if !ok {
		return NodeRef{}, false
	}
	if task.ParentTaskID == nil {
		return GroupRef(task.GroupID), true
	}
	return TaskRef(*task.ParentTaskID), true
}

// IsDescendant reports whether nodeID sits somewhere below ancestorID.
// A node is not its own descendant. The walk stops with false on a repeated id.
func (t *Tree) IsDescendant(ancestorID, nodeID string) bool {
	if ancestorID == "" || nodeID == "" || ancestorID == nodeID {
		return false
	}
	seen := map[string]bool{nodeID: true}
	cur, ok := t.tasks[nodeID]
	for ok && cur.ParentTaskID != nil {
		pid := *cur.ParentTaskID
		if pid == ancestorID {
			return true
		}
		if seen[pid] {
			return false
		}
		seen[pid] = true
		cur, ok = t.tasks[pid]
	}
	return false
}

// Ancestors returns the parent chain of a task, nearest first
func (t *Tree) Ancestors(taskID string) []model.Task {
	var out []model.Task
	seen := map[string]bool{taskID: true}
	cur, ok := t.tasks[taskID]
	for ok && cur.ParentTaskID != nil {
		pid := *cur.ParentTaskID
		if seen[pid] {
			break
		}
		seen[pid] = true
		cur, ok = t.tasks[pid]
		if ok {
			out = append(out, cur)
		}
	}
	return out
}

// Depth returns 0 for root tasks, 1 for their children and so on
func (t *Tree) Depth(taskID string) int {
	return len(t.Ancestors(taskID))
}

// Descendants returns every task below taskID in pre-order
func (t *Tree) Descendants(taskID string) []model.Task {
	var out []model.Task
	seen := map[string]bool{taskID: true}
	var walk func(id string)
	walk = func(id string) {
		for _, cid := range t.children[id] {
			if seen[cid] {
				continue
			}
			seen[cid] = true
			out = append(out, t.tasks[cid])
			walk(cid)
		}
	}
	walk(taskID)
	return out
}

// Subtree returns the task followed by its descendants in pre-order
func (t *Tree) Subtree(taskID string) []model.Task {
	task, ok := t.tasks[taskID]
	if !ok {
		return nil
	}
	return append([]model.Task{task}, t.Descendants(taskID)...)
}

// GroupTasks returns every task of a group in pre-order
func (t *Tree) GroupTasks(groupID string) []model.Task {
	var out []model.Task
	for _, id := range t.roots[groupID] {
		out = append(out, t.Subtree(id)...)
	}
	return out
}
