// Package engine owns the in-memory outline and keeps it in sync with a Store.
//
// Every mutation is applied to local state immediately and returns a tea.Cmd
// that persists it in the background. The message the command produces must be
// handed back to Reconcile on the event loop. Only creations are rolled back
// when the store refuses them; failed updates and deletes are logged and the
// affected ids are reported by Diverged until the next Load.
//
// An Engine is not safe for concurrent use. Call it from the event loop only.
package engine

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dori/mindmap/internal/model"
	"github.com/dori/mindmap/internal/tree"
)

const (
	defaultCallTimeout = 10 * time.Second
	historyLimit       = 50
)

// Config holds the engine's collaborators
type Config struct {
	Store       Store
	ProjectID   string
	Logger      *logrus.Entry
	CallTimeout time.Duration    // per background store call
	Now         func() time.Time // defaults to time.Now
	NewID       func() string    // defaults to uuid.NewString
}

// Engine is the authoritative in-memory copy of one project
type Engine struct {
	store     Store
	log       *logrus.Entry
	projectID string
	timeout   time.Duration
	now       func() time.Time
	newID     func() string

	groups map[string]model.Group
	tasks  map[string]model.Task
	cached *tree.Tree // nil when stale

	queue    *serializer
	creating map[string]bool  // ids whose creation has not been confirmed
	diverged map[string]error // ids whose last update or delete failed
	history  *history
}

// New returns an empty engine. Call Load to fill it.
func New(cfg Config) *Engine {
	log := cfg.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = logrus.NewEntry(l)
	}
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	newID := cfg.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	projectID := cfg.ProjectID
	if projectID == "" {
		projectID = model.DefaultProjectID
	}

	return &Engine{
		store:     cfg.Store,
		log:       log.WithField("component", "engine"),
		projectID: projectID,
		timeout:   timeout,
		now:       now,
		newID:     newID,
		groups:    make(map[string]model.Group),
		tasks:     make(map[string]model.Task),
		queue:     newSerializer(),
		creating:  make(map[string]bool),
		diverged:  make(map[string]error),
		history:   newHistory(historyLimit),
	}
}

// ProjectID returns the project this engine edits
func (e *Engine) ProjectID() string {
	return e.projectID
}

// Tree returns a read-only projection of the current state
func (e *Engine) Tree() *tree.Tree {
	if e.cached == nil {
		groups := make([]model.Group, 0, len(e.groups))
		for _, g := range e.groups {
			groups = append(groups, g)
		}
		tasks := make([]model.Task, 0, len(e.tasks))
		for _, t := range e.tasks {
			tasks = append(tasks, t)
		}
		e.cached = tree.New(groups, tasks)
	}
	return e.cached
}

// Groups returns the current groups in order
func (e *Engine) Groups() []model.Group {
	return e.Tree().Groups()
}

// Tasks returns every task, group by group in pre-order
func (e *Engine) Tasks() []model.Task {
	t := e.Tree()
	var out []model.Task
	for _, g := range t.Groups() {
		out = append(out, t.GroupTasks(g.ID)...)
	}
	return out
}

// Task returns a copy of one task
func (e *Engine) Task(id string) (model.Task, bool) {
	t, ok := e.tasks[id]
	return t.Clone(), ok
}

// Group returns one group
func (e *Engine) Group(id string) (model.Group, bool) {
	g, ok := e.groups[id]
	return g, ok
}

// IsCreating reports whether id was created locally and not yet confirmed
func (e *Engine) IsCreating(id string) bool {
	return e.creating[id]
}

// Pending returns how many entities still have background work queued
func (e *Engine) Pending() int {
	return e.queue.pending()
}

// Drain blocks until the background work already issued has reached the
// store, or ctx ends. Commands that were never run cannot finish, so callers
// bound ctx.
func (e *Engine) Drain(ctx context.Context) error {
	if err := e.queue.drain(ctx); err != nil {
		return fmt.Errorf("%d unsaved: %w", e.Pending(), err)
	}
	return nil
}

// Diverged returns the ids whose last update or delete failed to persist
func (e *Engine) Diverged() []string {
	out := make([]string, 0, len(e.diverged))
	for id := range e.diverged {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// CanUndo reports whether Undo would do anything
func (e *Engine) CanUndo() bool {
	return len(e.history.undo) > 0 && !e.history.busy
}

// CanRedo reports whether Redo would do anything
func (e *Engine) CanRedo() bool {
	return len(e.history.redo) > 0 && !e.history.busy
}

// Load reads the project from the store. The result replaces local state
// when reconciled; creations still in flight are kept.
func (e *Engine) Load() tea.Cmd {
	store, projectID := e.store, e.projectID
	return func() tea.Msg {
		ctx, cancel := e.context()
		defer cancel()
		groups, tasks, err := store.LoadProject(ctx, projectID)
		return LoadedMsg{ProjectID: projectID, Groups: groups, Tasks: tasks, Err: err}
	}
}

// Flush runs cmd to completion on the calling goroutine and reconciles every
// message it produces. It is meant for non-interactive callers.
func (e *Engine) Flush(cmd tea.Cmd) []Outcome {
	var out []Outcome
	var run func(tea.Cmd)
	run = func(c tea.Cmd) {
		if c == nil {
			return
		}
		switch msg := c().(type) {
		case tea.BatchMsg:
			for _, sub := range msg {
				run(sub)
			}
		case tea.Msg:
			if o, ok := e.Reconcile(msg); ok {
				out = append(out, o)
			}
		}
	}
	run(cmd)
	return out
}

// context bounds a single background store call. Only immutable fields are
// read, so it is safe to use from commands.
func (e *Engine) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), e.timeout)
}

func (e *Engine) invalidate() {
	e.cached = nil
}

func (e *Engine) putTask(t model.Task) {
	e.tasks[t.ID] = t
	e.invalidate()
}

// removeSubtree drops a task and everything below it and returns the removed
// tasks parents first
func (e *Engine) removeSubtree(id string) []model.Task {
	removed := e.Tree().Subtree(id)
	for _, t := range removed {
		delete(e.tasks, t.ID)
		delete(e.diverged, t.ID)
	}
	if len(removed) > 0 {
		e.invalidate()
	}
	return removed
}

// nextTaskIndex returns an order index after every child of the given parent
func (e *Engine) nextTaskIndex(groupID string, parentID *string, exclude string) int {
	next := 0
	for _, t := range e.tasks {
		if t.ID == exclude || t.GroupID != groupID || !model.SameParent(t.ParentTaskID, parentID) {
			continue
		}
		if t.OrderIndex >= next {
			next = t.OrderIndex + 1
		}
	}
	return next
}

// shiftAfter computes the order indexes that siblings following an insert at
// idx need so that the inserted node sorts directly after its anchor. The
// returned maps hold old and new indexes of the siblings that move.
func shiftAfter(following []int, ids []string, idx int) (map[string]int, map[string]int) {
	oldIdx := map[string]int{}
	newIdx := map[string]int{}
	floor := idx + 1
	for i, cur := range following {
		if cur >= floor {
			break
		}
		oldIdx[ids[i]] = cur
		newIdx[ids[i]] = floor
		floor++
	}
	return oldIdx, newIdx
}

func sortedKeys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func opLogger(log *logrus.Entry, op Op, id string) *logrus.Entry {
	return log.WithFields(logrus.Fields{"op": op.String(), "id": id})
}
