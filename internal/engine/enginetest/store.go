// Package enginetest provides an in-memory store for exercising the engine
package enginetest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dori/mindmap/internal/model"
)

// ErrInjected is returned by calls configured to fail
var ErrInjected = errors.New("injected failure")

// MemStore is an in-memory engine store. Calls fail when FailOn was given
// "Method" or "Method:id".
type MemStore struct {
	mu     sync.Mutex
	groups map[string]model.Group
	tasks  map[string]model.Task
	calls  []string
	fail   map[string]error
}

// NewMemStore returns an empty store
func NewMemStore() *MemStore {
	return &MemStore{
		groups: make(map[string]model.Group),
		tasks:  make(map[string]model.Task),
		fail:   make(map[string]error),
	}
}

// FailOn makes every matching call return ErrInjected
func (s *MemStore) FailOn(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[call] = ErrInjected
}

// Heal clears all configured failures
func (s *MemStore) Heal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = make(map[string]error)
}

// PutGroup stores g directly
func (s *MemStore) PutGroup(g model.Group) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[g.ID] = g
}

// PutTask stores t directly, without any validation
func (s *MemStore) PutTask(t model.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = t.Clone()
}

// RemoveTasks drops tasks directly, without cascading
func (s *MemStore) RemoveTasks(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.tasks, id)
	}
}

// Group returns a stored group
func (s *MemStore) Group(id string) (model.Group, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[id]
	return g, ok
}

func (s *MemStore) record(method, id string) error {
	s.calls = append(s.calls, method+":"+id)
	if err := s.fail[method+":"+id]; err != nil {
		return err
	}
	return s.fail[method]
}

// Calls returns every call made so far as "Method:id"
func (s *MemStore) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Task returns a stored task
func (s *MemStore) Task(id string) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	return t.Clone(), ok
}

func (s *MemStore) LoadProject(ctx context.Context, projectID string) ([]model.Group, []model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("LoadProject", projectID); err != nil {
		return nil, nil, err
	}
	var groups []model.Group
	for _, g := range s.groups {
		groups = append(groups, g)
	}
	var tasks []model.Task
	for _, t := range s.tasks {
		tasks = append(tasks, t.Clone())
	}
	return groups, tasks, nil
}

func (s *MemStore) CreateGroup(ctx context.Context, g model.Group) (model.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("CreateGroup", g.ID); err != nil {
		return model.Group{}, err
	}
	s.groups[g.ID] = g
	return g, nil
}

func (s *MemStore) UpdateGroup(ctx context.Context, id string, patch model.GroupPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("UpdateGroup", id); err != nil {
		return err
	}
	g, ok := s.groups[id]
	if !ok {
		return fmt.Errorf("group %s missing", id)
	}
	s.groups[id] = patch.Apply(g)
	return nil
}

func (s *MemStore) DeleteGroup(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("DeleteGroup", id); err != nil {
		return err
	}
	delete(s.groups, id)
	for tid, t := range s.tasks {
		if t.GroupID == id {
			delete(s.tasks, tid)
		}
	}
	return nil
}

func (s *MemStore) CreateTask(ctx context.Context, t model.Task) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("CreateTask", t.ID); err != nil {
		return model.Task{}, err
	}
	if _, ok := s.groups[t.GroupID]; !ok {
		return model.Task{}, fmt.Errorf("group %s missing", t.GroupID)
	}
	if t.ParentTaskID != nil {
		if _, ok := s.tasks[*t.ParentTaskID]; !ok {
			return model.Task{}, fmt.Errorf("parent %s missing", *t.ParentTaskID)
		}
	}
	t = t.Clone()
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		t.Title = "Untitled"
	}
	s.tasks[t.ID] = t
	return t.Clone(), nil
}

func (s *MemStore) UpdateTask(ctx context.Context, id string, patch model.TaskPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("UpdateTask", id); err != nil {
		return err
	}
	t, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("task %s missing", id)
	}
	s.tasks[id] = patch.Apply(t)
	return nil
}

func (s *MemStore) DeleteTask(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("DeleteTask", id); err != nil {
		return err
	}
	if _, ok := s.tasks[id]; !ok {
		return fmt.Errorf("task %s missing", id)
	}
	var drop func(string)
	drop = func(pid string) {
		delete(s.tasks, pid)
		for cid, c := range s.tasks {
			if c.ParentTaskID != nil && *c.ParentTaskID == pid {
				drop(cid)
			}
		}
	}
	drop(id)
	return nil
}
