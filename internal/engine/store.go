package engine

import (
	"context"
	"errors"

	"github.com/dori/mindmap/internal/model"
)

// Store is the persistence service behind the engine. Every call may fail;
// the engine only distinguishes success from failure.
type Store interface {
	LoadProject(ctx context.Context, projectID string) ([]model.Group, []model.Task, error)

	CreateGroup(ctx context.Context, g model.Group) (model.Group, error)
	UpdateGroup(ctx context.Context, id string, patch model.GroupPatch) error
	// DeleteGroup removes the group and all of its tasks
	DeleteGroup(ctx context.Context, id string) error

	// CreateTask persists t under the id the engine already assigned
	CreateTask(ctx context.Context, t model.Task) (model.Task, error)
	UpdateTask(ctx context.Context, id string, patch model.TaskPatch) error
	// DeleteTask removes the task and all of its descendants
	DeleteTask(ctx context.Context, id string) error
}

var (
	// ErrNotFound is returned when an operation names a node that does not exist
	ErrNotFound = errors.New("node not found")
	// ErrGroupMismatch is returned when a parent task belongs to another group
	ErrGroupMismatch = errors.New("parent task belongs to another group")
	// ErrSkipped marks background work dropped because the entity's creation failed
	ErrSkipped = errors.New("skipped: entity creation failed")
	// ErrHistoryBusy is returned while a previous undo/redo is still persisting
	ErrHistoryBusy = errors.New("previous undo is still in progress")
	// ErrNothingToUndo is returned when the requested history stack is empty
	ErrNothingToUndo = errors.New("nothing to undo")
	// ErrNothingToRedo is returned when the redo stack is empty
	ErrNothingToRedo = errors.New("nothing to redo")
)
