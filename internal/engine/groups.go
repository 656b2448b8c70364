package engine

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/multierr"

	"github.com/dori/mindmap/internal/model"
)

// CreateGroup adds a group after the given one, or at the end when after is
// empty or unknown. The id is usable right away.
func (e *Engine) CreateGroup(title, after string) (string, tea.Cmd) {
	idx := 0
	for _, g := range e.groups {
		if g.OrderIndex >= idx {
			idx = g.OrderIndex + 1
		}
	}

	var shiftedOld, shiftedNew map[string]int
	if anchor, ok := e.groups[after]; ok {
		idx = anchor.OrderIndex + 1
		var following []int
		var ids []string
		seen := false
		for _, g := range e.Tree().Groups() {
			if seen {
				following = append(following, g.OrderIndex)
				ids = append(ids, g.ID)
			}
			if g.ID == anchor.ID {
				seen = true
			}
		}
		shiftedOld, shiftedNew = shiftAfter(following, ids, idx)
	}

	now := e.now()
	g := model.Group{
		ID:         e.newID(),
		ProjectID:  e.projectID,
		Title:      title,
		OrderIndex: idx,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for id, to := range shiftedNew {
		s := e.groups[id]
		s.OrderIndex = to
		e.groups[id] = s
	}
	e.groups[g.ID] = g
	e.creating[g.ID] = true
	e.invalidate()

	tx := createTx{shiftedOld: shiftedOld, shiftedNew: shiftedNew}
	shifted := sortedKeys(shiftedNew)
	tk := e.queue.enqueue(append([]string{g.ID}, shifted...))
	store := e.store
	return g.ID, func() tea.Msg {
		msg := GroupCreatedMsg{ID: g.ID, sent: g, tx: tx}
		failed := tk.wait()
		ctx, cancel := e.context()
		defer cancel()
		created, err := store.CreateGroup(ctx, g)
		if err != nil {
			msg.Err = err
			tk.finish(map[string]bool{g.ID: true})
			return msg
		}
		msg.Group = created
		for _, id := range shifted {
			if failed[id] {
				continue
			}
			idx := tx.shiftedNew[id]
			if err := store.UpdateGroup(ctx, id, model.GroupPatch{OrderIndex: &idx}); err != nil {
				msg.ShiftErr = multierr.Append(msg.ShiftErr, fmt.Errorf("shift group %s: %w", id, err))
			}
		}
		tk.finish(nil)
		return msg
	}
}

// UpdateGroupTitle renames a group. Blank or unchanged titles return a nil command.
func (e *Engine) UpdateGroupTitle(id, title string) (tea.Cmd, error) {
	g, ok := e.groups[id]
	if !ok {
		return nil, fmt.Errorf("group %s: %w", id, ErrNotFound)
	}
	title = strings.TrimSpace(title)
	if title == "" || title == g.Title {
		return nil, nil
	}
	e.history.push(action{kind: actRename, id: id, fromTitle: g.Title, toTitle: title})
	return e.renameGroup(id, title), nil
}

func (e *Engine) renameGroup(id, title string) tea.Cmd {
	g := e.groups[id]
	g.Title = title
	g.UpdatedAt = e.now()
	e.groups[id] = g
	e.invalidate()

	tk := e.queue.enqueue([]string{id})
	store := e.store
	return func() tea.Msg {
		msg := PersistedMsg{Op: OpUpdateGroup, IDs: []string{id}}
		skip := tk.wait()
		if skip[id] {
			msg.skipped = []string{id}
			tk.finish(skip)
			return msg
		}
		ctx, cancel := e.context()
		defer cancel()
		if err := store.UpdateGroup(ctx, id, model.GroupPatch{Title: &title}); err != nil {
			msg.Failed = []string{id}
			msg.Err = fmt.Errorf("update group %s: %w", id, err)
		}
		tk.finish(nil)
		return msg
	}
}

// DeleteGroup removes a group and every task in it. Group deletion is not
// undoable; history entries touching the group's tasks are dropped.
func (e *Engine) DeleteGroup(id string) (tea.Cmd, error) {
	if _, ok := e.groups[id]; !ok {
		return nil, fmt.Errorf("group %s: %w", id, ErrNotFound)
	}
	keys := []string{id}
	gone := map[string]bool{id: true}
	for _, t := range e.Tree().GroupTasks(id) {
		keys = append(keys, t.ID)
		gone[t.ID] = true
		delete(e.tasks, t.ID)
		delete(e.diverged, t.ID)
	}
	delete(e.groups, id)
	delete(e.diverged, id)
	e.invalidate()
	e.history.purge(func(a action) bool { return a.touchesAny(gone) || a.inGroup(id) })

	tk := e.queue.enqueue(keys)
	store := e.store
	return func() tea.Msg {
		msg := PersistedMsg{Op: OpDeleteGroup, IDs: []string{id}}
		skip := tk.wait()
		if skip[id] {
			msg.skipped = []string{id}
			tk.finish(skip)
			return msg
		}
		ctx, cancel := e.context()
		defer cancel()
		if err := store.DeleteGroup(ctx, id); err != nil {
			msg.Failed = []string{id}
			msg.Err = fmt.Errorf("delete group %s: %w", id, err)
		}
		tk.finish(nil)
		return msg
	}, nil
}
