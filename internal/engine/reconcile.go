package engine

import (
	"errors"
	"reflect"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/dori/mindmap/internal/model"
	"github.com/dori/mindmap/internal/tree"
)

// Reconcile folds the result of a background command into local state. It
// reports false for messages the engine does not own.
func (e *Engine) Reconcile(msg tea.Msg) (Outcome, bool) {
	switch msg := msg.(type) {
	case LoadedMsg:
		return e.reconcileLoad(msg), true
	case TaskCreatedMsg:
		return e.reconcileTaskCreated(msg), true
	case GroupCreatedMsg:
		return e.reconcileGroupCreated(msg), true
	case PersistedMsg:
		return e.reconcilePersisted(msg), true
	case HistoryMsg:
		return e.reconcileHistory(msg), true
	}
	return Outcome{}, false
}

func (e *Engine) reconcileLoad(msg LoadedMsg) Outcome {
	out := Outcome{Op: OpLoad, ID: msg.ProjectID}
	if msg.Err != nil {
		e.log.WithError(msg.Err).Error("load project")
		out.Err = msg.Err
		return out
	}

	t := tree.New(msg.Groups, msg.Tasks)
	groups := make(map[string]model.Group, len(msg.Groups))
	for _, g := range t.Groups() {
		groups[g.ID] = g
	}
	tasks := make(map[string]model.Task, t.TaskCount())
	for _, g := range t.Groups() {
		for _, task := range t.GroupTasks(g.ID) {
			tasks[task.ID] = task
		}
	}

	// Local creations the store has not confirmed yet survive a reload.
	for id := range e.creating {
		if g, ok := e.groups[id]; ok {
			if _, loaded := groups[id]; !loaded {
				groups[id] = g
			}
		}
	}
	for _, task := range e.Tasks() {
		if !e.creating[task.ID] {
			continue
		}
		if _, loaded := tasks[task.ID]; loaded {
			continue
		}
		if _, ok := groups[task.GroupID]; !ok {
			continue
		}
		if task.ParentTaskID != nil {
			if _, ok := tasks[*task.ParentTaskID]; !ok {
				continue
			}
		}
		tasks[task.ID] = task
	}

	e.groups = groups
	e.tasks = tasks
	e.diverged = make(map[string]error)
	e.invalidate()

	for _, p := range t.Problems() {
		e.log.WithFields(logrus.Fields{"task": p.TaskID, "reason": p.Reason}).Warn("quarantined malformed task")
		out.Err = multierr.Append(out.Err, p)
	}
	e.log.WithFields(logrus.Fields{"groups": len(groups), "tasks": len(tasks)}).Debug("project loaded")
	return out
}

func (e *Engine) reconcileTaskCreated(msg TaskCreatedMsg) Outcome {
	delete(e.creating, msg.ID)
	out := Outcome{Op: OpCreateTask, ID: msg.ID, Err: msg.Err}
	log := opLogger(e.log, OpCreateTask, msg.ID)

	if msg.Err != nil {
		if errors.Is(msg.Err, ErrSkipped) {
			log.Debug("creation skipped, parent was rolled back")
		} else {
			log.WithError(msg.Err).Error("create failed, rolling back")
		}
		removed := e.removeSubtree(msg.ID)
		for id, was := range msg.tx.shiftedOld {
			if s, ok := e.tasks[id]; ok && s.OrderIndex == msg.tx.shiftedNew[id] {
				s.OrderIndex = was
				e.tasks[id] = s
			}
		}
		e.invalidate()
		e.forgetAll(msg.ID, removed)
		out.RolledBack = true
		return out
	}

	if local, ok := e.tasks[msg.ID]; ok {
		e.putTask(mergeTask(local, msg.sent, msg.Task))
	}
	if msg.ShiftErr != nil {
		log.WithError(msg.ShiftErr).Warn("reordering siblings failed")
		for id := range msg.tx.shiftedNew {
			if _, ok := e.tasks[id]; ok {
				e.diverged[id] = msg.ShiftErr
			}
		}
	}
	return out
}

// mergeTask takes the server's value for every field the local side has not
// changed since the creation was sent
func mergeTask(local, sent, server model.Task) model.Task {
	merged := local.Clone()
	if local.Title == sent.Title {
		merged.Title = server.Title
	}
	if local.Status == sent.Status && server.Status.Valid() {
		merged.Status = server.Status
	}
	if reflect.DeepEqual(local.Priority, sent.Priority) {
		merged.Priority = server.Clone().Priority
	}
	if reflect.DeepEqual(local.ScheduledAt, sent.ScheduledAt) {
		merged.ScheduledAt = server.Clone().ScheduledAt
	}
	if !server.CreatedAt.IsZero() {
		merged.CreatedAt = server.CreatedAt
	}
	if !server.UpdatedAt.IsZero() && server.UpdatedAt.After(merged.UpdatedAt) {
		merged.UpdatedAt = server.UpdatedAt
	}
	return merged
}

func (e *Engine) reconcileGroupCreated(msg GroupCreatedMsg) Outcome {
	delete(e.creating, msg.ID)
	out := Outcome{Op: OpCreateGroup, ID: msg.ID, Err: msg.Err}
	log := opLogger(e.log, OpCreateGroup, msg.ID)

	if msg.Err != nil {
		log.WithError(msg.Err).Error("create failed, rolling back")
		removed := e.Tree().GroupTasks(msg.ID)
		for _, t := range removed {
			delete(e.tasks, t.ID)
			delete(e.creating, t.ID)
		}
		delete(e.groups, msg.ID)
		for id, was := range msg.tx.shiftedOld {
			if g, ok := e.groups[id]; ok && g.OrderIndex == msg.tx.shiftedNew[id] {
				g.OrderIndex = was
				e.groups[id] = g
			}
		}
		e.invalidate()
		e.forgetAll(msg.ID, removed)
		out.RolledBack = true
		return out
	}

	if local, ok := e.groups[msg.ID]; ok {
		if local.Title == msg.sent.Title {
			local.Title = msg.Group.Title
		}
		if !msg.Group.CreatedAt.IsZero() {
			local.CreatedAt = msg.Group.CreatedAt
		}
		e.groups[msg.ID] = local
		e.invalidate()
	}
	if msg.ShiftErr != nil {
		log.WithError(msg.ShiftErr).Warn("reordering groups failed")
		for id := range msg.tx.shiftedNew {
			if _, ok := e.groups[id]; ok {
				e.diverged[id] = msg.ShiftErr
			}
		}
	}
	return out
}

// forgetAll drops every trace of a rolled back creation: history entries and
// failed serializer tails
func (e *Engine) forgetAll(id string, removed []model.Task) {
	gone := map[string]bool{id: true}
	for _, t := range removed {
		gone[t.ID] = true
	}
	e.history.purge(func(a action) bool { return a.touchesAny(gone) || a.inGroup(id) })
	for k := range gone {
		e.queue.forget(k)
	}
}

func (e *Engine) reconcilePersisted(msg PersistedMsg) Outcome {
	out := Outcome{Op: msg.Op, Err: msg.Err}
	if len(msg.IDs) > 0 {
		out.ID = msg.IDs[0]
	}
	for _, id := range msg.skipped {
		e.queue.forget(id)
	}
	if msg.Err == nil {
		return out
	}

	errs := multierr.Errors(msg.Err)
	for i, id := range msg.Failed {
		err := msg.Err
		if len(errs) == len(msg.Failed) {
			err = errs[i]
		}
		opLogger(e.log, msg.Op, id).WithError(err).Warn("persist failed, keeping local value")
		if e.exists(id) {
			e.diverged[id] = err
		}
	}
	return out
}

func (e *Engine) reconcileHistory(msg HistoryMsg) Outcome {
	e.history.busy = false
	op := OpUndo
	if msg.Redo {
		op = OpRedo
	}
	out := Outcome{Op: op, Err: msg.Err}
	if msg.Err == nil {
		return out
	}

	e.log.WithField("op", op.String()).WithError(msg.Err).Warn("history step failed")
	gone := map[string]bool{}
	for _, id := range msg.uncreated {
		gone[id] = true
		for _, t := range e.removeSubtree(id) {
			gone[t.ID] = true
		}
	}
	if len(gone) > 0 {
		out.RolledBack = true
		e.history.purge(func(a action) bool { return a.touchesAny(gone) })
		for k := range gone {
			e.queue.forget(k)
		}
	}
	for _, id := range msg.Failed {
		if !gone[id] && e.exists(id) {
			e.diverged[id] = msg.Err
		}
	}
	return out
}

func (e *Engine) exists(id string) bool {
	if _, ok := e.tasks[id]; ok {
		return true
	}
	_, ok := e.groups[id]
	return ok
}
