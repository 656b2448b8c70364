package engine

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/multierr"

	"github.com/dori/mindmap/internal/model"
)

// ErrHistoryStale is returned when an undo or redo entry no longer applies to
// the current outline. The entry is dropped.
var ErrHistoryStale = errors.New("history entry no longer applies")

type actionKind int

const (
	actCreate actionKind = iota
	actDelete
	actUpdate
	actMove
	actRename
)

type historyChange struct {
	id      string
	patch   model.TaskPatch
	inverse model.TaskPatch
}

// action is one undoable step. Create and delete are mirror images: undoing
// a create removes its tasks, undoing a delete restores them.
type action struct {
	kind    actionKind
	tasks   []model.Task // create, delete: parents first
	changes []historyChange

	id                 string // move, rename
	from, to           position
	fromTitle, toTitle string
}

func (a action) touchesAny(ids map[string]bool) bool {
	if ids[a.id] {
		return true
	}
	for _, t := range a.tasks {
		if ids[t.ID] {
			return true
		}
	}
	for _, c := range a.changes {
		if ids[c.id] {
			return true
		}
	}
	return false
}

func (a action) inGroup(groupID string) bool {
	if a.kind == actRename {
		return a.id == groupID
	}
	if a.kind == actMove {
		return a.from.groupID == groupID || a.to.groupID == groupID
	}
	for _, t := range a.tasks {
		if t.GroupID == groupID {
			return true
		}
	}
	return false
}

type history struct {
	undo  []action
	redo  []action
	busy  bool // an undo or redo is still persisting
	limit int
}

func newHistory(limit int) *history {
	return &history{limit: limit}
}

func (h *history) push(a action) {
	h.undo = append(h.undo, a)
	if len(h.undo) > h.limit {
		h.undo = h.undo[len(h.undo)-h.limit:]
	}
	h.redo = nil
}

func (h *history) purge(drop func(action) bool) {
	filter := func(in []action) []action {
		out := in[:0]
		for _, a := range in {
			if !drop(a) {
				out = append(out, a)
			}
		}
		return out
	}
	h.undo = filter(h.undo)
	h.redo = filter(h.redo)
}

// Undo reverts the most recent undoable change
func (e *Engine) Undo() (tea.Cmd, error) {
	return e.travel(false)
}

// Redo reapplies the most recently undone change
func (e *Engine) Redo() (tea.Cmd, error) {
	return e.travel(true)
}

func (e *Engine) travel(redo bool) (tea.Cmd, error) {
	h := e.history
	if h.busy {
		return nil, ErrHistoryBusy
	}
	from, to := &h.undo, &h.redo
	if redo {
		from, to = &h.redo, &h.undo
	}
	if len(*from) == 0 {
		if redo {
			return nil, ErrNothingToRedo
		}
		return nil, ErrNothingToUndo
	}
	a := (*from)[len(*from)-1]
	*from = (*from)[:len(*from)-1]

	counter, steps, deps, ok := e.replay(a, redo)
	if !ok {
		return nil, ErrHistoryStale
	}
	*to = append(*to, counter)
	if len(steps) == 0 {
		return nil, nil
	}
	h.busy = true
	return e.runSteps(redo, steps, deps), nil
}

// step is one store call made by an undo or redo
type step struct {
	key    string
	create bool
	run    func(ctx context.Context, s Store) error
}

// replay applies a locally and returns the entry for the opposite stack
func (e *Engine) replay(a action, redo bool) (action, []step, []string, bool) {
	switch a.kind {
	case actCreate, actDelete:
		if (a.kind == actCreate) == redo {
			restored, steps, deps := e.restoreTasks(a.tasks)
			return action{kind: a.kind, tasks: restored}, steps, deps, len(restored) > 0
		}
		removed, steps := e.removeTasks(a.tasks)
		return action{kind: a.kind, tasks: removed}, steps, nil, len(removed) > 0

	case actUpdate:
		var steps []step
		apply := func(c historyChange) {
			old, ok := e.tasks[c.id]
			if !ok {
				return
			}
			p := c.inverse
			if redo {
				p = c.patch
			}
			t := p.Apply(old)
			t.UpdatedAt = e.now()
			e.putTask(t)
			id := c.id
			steps = append(steps, step{key: id, run: func(ctx context.Context, s Store) error {
				return s.UpdateTask(ctx, id, p)
			}})
		}
		if redo {
			for _, c := range a.changes {
				apply(c)
			}
		} else {
			for i := len(a.changes) - 1; i >= 0; i-- {
				apply(a.changes[i])
			}
		}
		return a, steps, nil, len(steps) > 0

	case actMove:
		target := a.from
		if redo {
			target = a.to
		}
		if !e.canRelocate(a.id, target) {
			return a, nil, nil, false
		}
		var steps []step
		for _, c := range e.relocate(a.id, target) {
			c := c
			steps = append(steps, step{key: c.id, run: func(ctx context.Context, s Store) error {
				return s.UpdateTask(ctx, c.id, c.patch)
			}})
		}
		return a, steps, nil, true

	case actRename:
		g, ok := e.groups[a.id]
		if !ok {
			return a, nil, nil, false
		}
		title := a.fromTitle
		if redo {
			title = a.toTitle
		}
		g.Title = title
		g.UpdatedAt = e.now()
		e.groups[a.id] = g
		e.invalidate()
		id := a.id
		return a, []step{{key: id, run: func(ctx context.Context, s Store) error {
			return s.UpdateGroup(ctx, id, model.GroupPatch{Title: &title})
		}}}, nil, true
	}
	return a, nil, nil, false
}

// removeTasks deletes the topmost tasks of the list along with whatever now
// hangs below them
func (e *Engine) removeTasks(tasks []model.Task) ([]model.Task, []step) {
	inList := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		inList[t.ID] = true
	}
	var removed []model.Task
	var steps []step
	for _, t := range tasks {
		if t.ParentTaskID != nil && inList[*t.ParentTaskID] {
			continue
		}
		if _, ok := e.tasks[t.ID]; !ok {
			continue
		}
		removed = append(removed, e.removeSubtree(t.ID)...)
		id := t.ID
		steps = append(steps, step{key: id, run: func(ctx context.Context, s Store) error {
			return s.DeleteTask(ctx, id)
		}})
	}
	// Descendants are deleted by the store's cascade but still queued.
	for _, t := range removed {
		if !inList[t.ID] || (t.ParentTaskID != nil && inList[*t.ParentTaskID]) {
			steps = append(steps, step{key: t.ID})
		}
	}
	return removed, steps
}

// restoreTasks recreates tasks in order, skipping any whose group or parent
// is gone
func (e *Engine) restoreTasks(tasks []model.Task) ([]model.Task, []step, []string) {
	var restored []model.Task
	var steps []step
	var deps []string
	for _, t := range tasks {
		if _, exists := e.tasks[t.ID]; exists {
			continue
		}
		if _, ok := e.groups[t.GroupID]; !ok {
			continue
		}
		if t.ParentTaskID != nil {
			if _, ok := e.tasks[*t.ParentTaskID]; !ok {
				continue
			}
			deps = append(deps, *t.ParentTaskID)
		} else {
			deps = append(deps, t.GroupID)
		}
		t = t.Clone()
		t.UpdatedAt = e.now()
		e.putTask(t)
		restored = append(restored, t)
		sent := t.Clone()
		steps = append(steps, step{key: t.ID, create: true, run: func(ctx context.Context, s Store) error {
			_, err := s.CreateTask(ctx, sent)
			return err
		}})
	}
	return restored, steps, deps
}

func (e *Engine) runSteps(redo bool, steps []step, deps []string) tea.Cmd {
	keys := make([]string, 0, len(steps))
	for _, s := range steps {
		keys = append(keys, s.key)
	}
	tk := e.queue.enqueue(keys, deps...)
	store := e.store
	return func() tea.Msg {
		msg := HistoryMsg{Redo: redo}
		skip := tk.wait()
		failed := map[string]bool{}
		ctx, cancel := e.context()
		defer cancel()
		for _, s := range steps {
			if s.run == nil {
				continue
			}
			var err error
			if skip[s.key] {
				err = ErrSkipped
			} else {
				err = s.run(ctx, store)
			}
			if err == nil {
				continue
			}
			msg.Failed = append(msg.Failed, s.key)
			msg.Err = multierr.Append(msg.Err, fmt.Errorf("%s: %w", s.key, err))
			if s.create {
				msg.uncreated = append(msg.uncreated, s.key)
				failed[s.key] = true
			}
		}
		for k := range skip {
			failed[k] = true
		}
		tk.finish(failed)
		return msg
	}
}
