package engine

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/dori/mindmap/internal/model"
)

// NewTask describes a task to create
type NewTask struct {
	GroupID      string // may be empty when ParentTaskID is set
	ParentTaskID *string
	Title        string
	After        string // sibling to insert after; empty appends
}

// taskChange is one persisted field-level update
type taskChange struct {
	id    string
	patch model.TaskPatch
}

// CreateTask adds a task and returns its id, usable right away, and the
// command that persists it.
func (e *Engine) CreateTask(nt NewTask) (string, tea.Cmd, error) {
	groupID := nt.GroupID
	var parentID *string
	if nt.ParentTaskID != nil {
		parent, ok := e.tasks[*nt.ParentTaskID]
		if !ok {
			return "", nil, fmt.Errorf("parent task %s: %w", *nt.ParentTaskID, ErrNotFound)
		}
		if groupID == "" {
			groupID = parent.GroupID
		}
		if parent.GroupID != groupID {
			return "", nil, fmt.Errorf("parent task %s in group %s: %w", parent.ID, groupID, ErrGroupMismatch)
		}
		pid := parent.ID
		parentID = &pid
	}
	if _, ok := e.groups[groupID]; !ok {
		return "", nil, fmt.Errorf("group %q: %w", groupID, ErrNotFound)
	}

	idx := e.nextTaskIndex(groupID, parentID, "")
	var shiftedOld, shiftedNew map[string]int
	if nt.After != "" {
		anchor, ok := e.tasks[nt.After]
		if !ok {
			return "", nil, fmt.Errorf("task %s: %w", nt.After, ErrNotFound)
		}
		if anchor.GroupID == groupID && model.SameParent(anchor.ParentTaskID, parentID) {
			idx = anchor.OrderIndex + 1
			var following []int
			var ids []string
			seen := false
			for _, s := range e.Tree().SiblingsOf(anchor.ID) {
				if seen {
					following = append(following, s.OrderIndex)
					ids = append(ids, s.ID)
				}
				if s.ID == anchor.ID {
					seen = true
				}
			}
			shiftedOld, shiftedNew = shiftAfter(following, ids, idx)
		}
	}

	now := e.now()
	t := model.Task{
		ID:           e.newID(),
		GroupID:      groupID,
		ParentTaskID: parentID,
		Title:        nt.Title,
		Status:       model.StatusTodo,
		OrderIndex:   idx,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for id, to := range shiftedNew {
		s := e.tasks[id]
		s.OrderIndex = to
		e.tasks[id] = s
	}
	e.putTask(t)
	e.creating[t.ID] = true
	e.history.push(action{kind: actCreate, tasks: []model.Task{t.Clone()}})

	tx := createTx{shiftedOld: shiftedOld, shiftedNew: shiftedNew}
	dep := groupID
	if parentID != nil {
		dep = *parentID
	}
	return t.ID, e.dispatchCreateTask(t.Clone(), tx, dep), nil
}

func (e *Engine) dispatchCreateTask(t model.Task, tx createTx, dep string) tea.Cmd {
	shifted := sortedKeys(tx.shiftedNew)
	tk := e.queue.enqueue(append([]string{t.ID}, shifted...), dep)
	store := e.store
	return func() tea.Msg {
		msg := TaskCreatedMsg{ID: t.ID, sent: t, tx: tx}
		failed := tk.wait()
		if failed[dep] {
			msg.Err = ErrSkipped
			tk.finish(map[string]bool{t.ID: true})
			return msg
		}

		ctx, cancel := e.context()
		defer cancel()
		created, err := store.CreateTask(ctx, t)
		if err != nil {
			msg.Err = err
			tk.finish(map[string]bool{t.ID: true})
			return msg
		}
		msg.Task = created

		for _, id := range shifted {
			if failed[id] {
				continue
			}
			idx := tx.shiftedNew[id]
			if err := store.UpdateTask(ctx, id, model.TaskPatch{OrderIndex: &idx}); err != nil {
				msg.ShiftErr = multierr.Append(msg.ShiftErr, fmt.Errorf("shift task %s: %w", id, err))
			}
		}
		tk.finish(nil)
		return msg
	}
}

// UpdateTask applies a field-level update. Structural fields are ignored; use
// MoveTask to change a task's position. A patch that changes nothing returns a
// nil command.
func (e *Engine) UpdateTask(id string, patch model.TaskPatch) (tea.Cmd, error) {
	old, ok := e.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	patch = patch.WithoutStructure()
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			patch.Title = nil
		} else {
			patch.Title = &title
		}
	}
	if patch.IsEmpty() {
		return nil, nil
	}

	updated := patch.Apply(old)
	if reflect.DeepEqual(old, updated) {
		return nil, nil
	}
	updated.UpdatedAt = e.now()
	e.putTask(updated)
	e.history.push(action{kind: actUpdate, changes: []historyChange{{id: id, patch: patch, inverse: patch.Inverse(old)}}})

	return e.persistTaskChanges(OpUpdateTask, []taskChange{{id: id, patch: patch}}), nil
}

// persistTaskChanges writes updates one after another in a single command
func (e *Engine) persistTaskChanges(op Op, changes []taskChange, deps ...string) tea.Cmd {
	keys := make([]string, 0, len(changes))
	for _, c := range changes {
		keys = append(keys, c.id)
	}
	tk := e.queue.enqueue(keys, deps...)
	store := e.store
	return func() tea.Msg {
		msg := PersistedMsg{Op: op, IDs: keys}
		skip := tk.wait()
		ctx, cancel := e.context()
		defer cancel()
		for _, c := range changes {
			if skip[c.id] {
				msg.skipped = append(msg.skipped, c.id)
				continue
			}
			if err := store.UpdateTask(ctx, c.id, c.patch); err != nil {
				msg.Failed = append(msg.Failed, c.id)
				msg.Err = multierr.Append(msg.Err, fmt.Errorf("update task %s: %w", c.id, err))
			}
		}
		tk.finish(skip)
		return msg
	}
}

// DeleteTask removes a task and all of its descendants
func (e *Engine) DeleteTask(id string) (tea.Cmd, error) {
	if _, ok := e.tasks[id]; !ok {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	removed := e.removeSubtree(id)
	e.history.push(action{kind: actDelete, tasks: removed})
	return e.persistDeletes(OpDeleteTask, []string{id}, removed), nil
}

// DeleteTasks removes several tasks, deepest first. Ids that do not exist are
// ignored. Individual store failures do not stop the batch.
func (e *Engine) DeleteTasks(ids []string) (tea.Cmd, error) {
	t := e.Tree()
	var roots []string
	seen := map[string]bool{}
	for _, id := range ids {
		if _, ok := e.tasks[id]; ok && !seen[id] {
			seen[id] = true
			roots = append(roots, id)
		}
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("delete tasks: %w", ErrNotFound)
	}
	sort.SliceStable(roots, func(i, j int) bool {
		di, dj := t.Depth(roots[i]), t.Depth(roots[j])
		if di != dj {
			return di > dj
		}
		return roots[i] < roots[j]
	})

	var batches [][]model.Task
	var removed []model.Task
	for _, id := range roots {
		sub := e.removeSubtree(id)
		batches = append(batches, sub)
		removed = append(removed, sub...)
	}
	// Restoring must recreate the shallowest subtrees first.
	var restore []model.Task
	for i := len(batches) - 1; i >= 0; i-- {
		restore = append(restore, batches[i]...)
	}
	e.history.push(action{kind: actDelete, tasks: restore})
	return e.persistDeletes(OpDeleteTasks, roots, removed), nil
}

// persistDeletes deletes roots in order. The store cascades to descendants;
// every removed id is still queued so later work on it waits.
func (e *Engine) persistDeletes(op Op, roots []string, removed []model.Task) tea.Cmd {
	keys := make([]string, 0, len(removed))
	for _, t := range removed {
		keys = append(keys, t.ID)
	}
	tk := e.queue.enqueue(keys)
	store := e.store
	return func() tea.Msg {
		msg := PersistedMsg{Op: op, IDs: roots}
		skip := tk.wait()
		ctx, cancel := e.context()
		defer cancel()
		for _, id := range roots {
			if skip[id] {
				msg.skipped = append(msg.skipped, id)
				continue
			}
			if err := store.DeleteTask(ctx, id); err != nil {
				msg.Failed = append(msg.Failed, id)
				msg.Err = multierr.Append(msg.Err, fmt.Errorf("delete task %s: %w", id, err))
			}
		}
		tk.finish(skip)
		return msg
	}
}

// position is where a task hangs in the outline
type position struct {
	groupID    string
	parentID   *string
	orderIndex int
}

// MoveTask reparents a task under parentID, or to the root of groupID when
// parentID is nil. Moves that would create a cycle, break the group/parent
// pairing, target a node that is still being created, or leave the task where
// it is are rejected and report false.
func (e *Engine) MoveTask(id string, parentID *string, groupID string) (bool, tea.Cmd) {
	t, ok := e.tasks[id]
	if !ok {
		return false, nil
	}
	if parentID != nil {
		parent, ok := e.tasks[*parentID]
		if !ok || parent.ID == id || e.creating[parent.ID] {
			return false, nil
		}
		if groupID == "" {
			groupID = parent.GroupID
		}
		if parent.GroupID != groupID || e.Tree().IsDescendant(id, parent.ID) {
			return false, nil
		}
	}
	if _, ok := e.groups[groupID]; !ok || e.creating[groupID] {
		return false, nil
	}
	if t.GroupID == groupID && model.SameParent(t.ParentTaskID, parentID) {
		return false, nil
	}

	to := position{groupID: groupID, parentID: parentID, orderIndex: e.nextTaskIndex(groupID, parentID, id)}
	from := position{groupID: t.GroupID, parentID: t.ParentTaskID, orderIndex: t.OrderIndex}
	changes := e.relocate(id, to)
	e.history.push(action{kind: actMove, id: id, from: from, to: to})

	moved := e.tasks[id]
	e.log.WithFields(logrus.Fields{"id": id, "group": groupID, "parent": moved.ParentID()}).Debug("move task")
	return true, e.persistTaskChanges(OpMoveTask, changes)
}

// relocate applies a move locally and returns the updates to persist. The
// moved task comes first, then descendants whose group changed.
func (e *Engine) relocate(id string, to position) []taskChange {
	t := e.tasks[id]
	groupID := to.groupID
	idx := to.orderIndex
	patch := model.TaskPatch{GroupID: &groupID, OrderIndex: &idx}
	if to.parentID == nil {
		patch.ClearParent = true
	} else {
		pid := *to.parentID
		patch.ParentTaskID = &pid
	}

	var changes []taskChange
	if t.GroupID != groupID {
		for _, d := range e.Tree().Descendants(id) {
			gid := groupID
			dp := model.TaskPatch{GroupID: &gid}
			changes = append(changes, taskChange{id: d.ID, patch: dp})
			moved := dp.Apply(d)
			moved.UpdatedAt = e.now()
			e.tasks[d.ID] = moved
		}
	}
	moved := patch.Apply(t)
	moved.UpdatedAt = e.now()
	e.putTask(moved)
	return append([]taskChange{{id: id, patch: patch}}, changes...)
}

// canRelocate applies the same rules as MoveTask without the no-op check
func (e *Engine) canRelocate(id string, to position) bool {
	if _, ok := e.tasks[id]; !ok {
		return false
	}
	if _, ok := e.groups[to.groupID]; !ok {
		return false
	}
	if to.parentID == nil {
		return true
	}
	parent, ok := e.tasks[*to.parentID]
	return ok && parent.ID != id && parent.GroupID == to.groupID && !e.Tree().IsDescendant(id, parent.ID)
}
