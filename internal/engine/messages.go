package engine

import (
	"github.com/dori/mindmap/internal/model"
)

// Op names an engine operation
type Op int

const (
	OpLoad Op = iota
	OpCreateGroup
	OpUpdateGroup
	OpDeleteGroup
	OpCreateTask
	OpUpdateTask
	OpDeleteTask
	OpDeleteTasks
	OpMoveTask
	OpUndo
	OpRedo
)

// String returns a human readable name for the operation
func (o Op) String() string {
	switch o {
	case OpLoad:
		return "load"
	case OpCreateGroup:
		return "create group"
	case OpUpdateGroup:
		return "update group"
	case OpDeleteGroup:
		return "delete group"
	case OpCreateTask:
		return "create task"
	case OpUpdateTask:
		return "update task"
	case OpDeleteTask:
		return "delete task"
	case OpDeleteTasks:
		return "delete tasks"
	case OpMoveTask:
		return "move task"
	case OpUndo:
		return "undo"
	case OpRedo:
		return "redo"
	default:
		return "unknown"
	}
}

// Outcome is what Reconcile reports back to the caller for one background result
type Outcome struct {
	Op         Op
	ID         string
	Err        error
	RolledBack bool // an optimistic creation was reverted
}

// Messages produced by the engine's background commands. Feed them back
// through Engine.Reconcile on the event loop.

// LoadedMsg carries a project's persisted state
type LoadedMsg struct {
	ProjectID string
	Groups    []model.Group
	Tasks     []model.Task
	Err       error
}

// GroupCreatedMsg reports the result of a group creation
type GroupCreatedMsg struct {
	ID       string
	Group    model.Group // server copy, valid when Err is nil
	Err      error
	ShiftErr error

	sent model.Group
	tx   createTx
}

// TaskCreatedMsg reports the result of a task creation
type TaskCreatedMsg struct {
	ID       string
	Task     model.Task // server copy, valid when Err is nil
	Err      error
	ShiftErr error // the task exists but reordering its siblings failed

	sent model.Task
	tx   createTx
}

// PersistedMsg reports the result of fire-and-forget updates and deletes
type PersistedMsg struct {
	Op     Op
	IDs    []string
	Err    error    // aggregated, see multierr.Errors
	Failed []string // ids whose store call failed

	skipped []string // ids dropped because their creation failed
}

// HistoryMsg reports that an undo or redo finished persisting
type HistoryMsg struct {
	Redo   bool
	Err    error
	Failed []string

	uncreated []string // tasks the store refused to recreate
}

// createTx is the snapshot a failed creation rolls back to
type createTx struct {
	shiftedOld map[string]int // sibling id -> order index before the insert
	shiftedNew map[string]int // sibling id -> order index after the insert
}
