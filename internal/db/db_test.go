package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dori/mindmap/internal/engine"
	"github.com/dori/mindmap/internal/model"
)

func openTest(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := db.EnsureProject(context.Background(), "p", "Test"); err != nil {
		t.Fatalf("Failed to create project: %v", err)
	}
	return db
}

func mustGroup(t *testing.T, db *DB, id string, order int) {
	t.Helper()
	_, err := db.CreateGroup(context.Background(), model.Group{ID: id, ProjectID: "p", Title: id, OrderIndex: order})
	if err != nil {
		t.Fatalf("Failed to create group %s: %v", id, err)
	}
}

func mustTask(t *testing.T, db *DB, id, group, parent string, order int) {
	t.Helper()
	task := model.Task{ID: id, GroupID: group, Title: id, Status: model.StatusTodo, OrderIndex: order}
	if parent != "" {
		task.ParentTaskID = &parent
	}
	if _, err := db.CreateTask(context.Background(), task); err != nil {
		t.Fatalf("Failed to create task %s: %v", id, err)
	}
}

// getTask reads one row back, nil when it does not exist
func (db *DB) getTask(ctx context.Context, id string) (*model.Task, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks t WHERE t.id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks, err := scanTasks(rows)
	if err != nil || len(tasks) == 0 {
		return nil, err
	}
	return &tasks[0], nil
}

func taskIDs(tasks []model.Task) map[string]model.Task {
	out := make(map[string]model.Task, len(tasks))
	for _, t := range tasks {
		out[t.ID] = t
	}
	return out
}

func TestEnsureProjectKeepsExistingName(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	p, err := db.EnsureProject(ctx, "p", "Other")
	if err != nil {
		t.Fatalf("EnsureProject failed: %v", err)
	}
	if p.Name != "Test" {
		t.Errorf("Expected name Test, got %q", p.Name)
	}

	created, err := db.CreateProject(ctx, "  ")
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	if created.Name != "Untitled" {
		t.Errorf("Expected blank name to become Untitled, got %q", created.Name)
	}

	projects, err := db.GetProjects(ctx)
	if err != nil {
		t.Fatalf("GetProjects failed: %v", err)
	}
	if len(projects) != 2 {
		t.Errorf("Expected 2 projects, got %d", len(projects))
	}
}

func TestLoadProjectRoundTrip(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	mustGroup(t, db, "G", 0)
	mustGroup(t, db, "H", 1)
	mustTask(t, db, "T1", "G", "", 0)
	mustTask(t, db, "T4", "G", "T1", 0)

	when := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	prio := 3
	_, err := db.CreateTask(ctx, model.Task{
		ID: "T2", GroupID: "H", Title: "  padded  ", Priority: &prio, ScheduledAt: &when,
	})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	groups, tasks, err := db.LoadProject(ctx, "p")
	if err != nil {
		t.Fatalf("LoadProject failed: %v", err)
	}
	if len(groups) != 2 || groups[0].ID != "G" || groups[1].ID != "H" {
		t.Fatalf("Unexpected groups: %+v", groups)
	}

	byID := taskIDs(tasks)
	if len(byID) != 3 {
		t.Fatalf("Expected 3 tasks, got %d", len(byID))
	}
	t4 := byID["T4"]
	if t4.ParentID() != "T1" {
		t.Errorf("Expected T4 under T1, got %q", t4.ParentID())
	}
	t2 := byID["T2"]
	if t2.Title != "padded" {
		t.Errorf("Expected trimmed title, got %q", t2.Title)
	}
	if t2.Status != model.StatusTodo {
		t.Errorf("Expected default status todo, got %q", t2.Status)
	}
	if t2.Priority == nil || *t2.Priority != 3 {
		t.Errorf("Expected priority 3, got %v", t2.Priority)
	}
	if t2.ScheduledAt == nil || !t2.ScheduledAt.Equal(when) {
		t.Errorf("Expected scheduled %v, got %v", when, t2.ScheduledAt)
	}
	if byID["T1"].Priority != nil || byID["T1"].ScheduledAt != nil {
		t.Errorf("Expected nullable fields to stay nil")
	}
}

func TestUpdateTaskPatch(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	mustGroup(t, db, "G", 0)
	mustGroup(t, db, "H", 1)
	mustTask(t, db, "T1", "G", "", 0)
	mustTask(t, db, "T2", "G", "", 1)

	title := "renamed"
	done := model.StatusDone
	prio := 2
	parent := "T1"
	err := db.UpdateTask(ctx, "T2", model.TaskPatch{
		Title: &title, Status: &done, Priority: &prio, ParentTaskID: &parent,
	})
	if err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}

	got, err := db.getTask(ctx, "T2")
	if err != nil || got == nil {
		t.Fatalf("getTask failed: %v", err)
	}
	if got.Title != "renamed" || got.Status != model.StatusDone || got.ParentID() != "T1" {
		t.Errorf("Patch not applied: %+v", got)
	}
	if got.Priority == nil || *got.Priority != 2 {
		t.Errorf("Expected priority 2, got %v", got.Priority)
	}

	if err := db.UpdateTask(ctx, "T2", model.TaskPatch{ClearPriority: true, ClearParent: true}); err != nil {
		t.Fatalf("UpdateTask clear failed: %v", err)
	}
	got, _ = db.getTask(ctx, "T2")
	if got.Priority != nil || got.ParentTaskID != nil {
		t.Errorf("Expected cleared fields, got %+v", got)
	}

	if err := db.UpdateTask(ctx, "T2", model.TaskPatch{}); err != nil {
		t.Errorf("Empty patch should be a no-op, got %v", err)
	}
}

func TestMissingRowsAreNotFound(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	title := "x"
	if err := db.UpdateTask(ctx, "nope", model.TaskPatch{Title: &title}); !errors.Is(err, engine.ErrNotFound) {
		t.Errorf("UpdateTask: expected ErrNotFound, got %v", err)
	}
	if err := db.DeleteTask(ctx, "nope"); !errors.Is(err, engine.ErrNotFound) {
		t.Errorf("DeleteTask: expected ErrNotFound, got %v", err)
	}
	if err := db.UpdateGroup(ctx, "nope", model.GroupPatch{Title: &title}); !errors.Is(err, engine.ErrNotFound) {
		t.Errorf("UpdateGroup: expected ErrNotFound, got %v", err)
	}
	if err := db.DeleteGroup(ctx, "nope"); !errors.Is(err, engine.ErrNotFound) {
		t.Errorf("DeleteGroup: expected ErrNotFound, got %v", err)
	}
	if got, err := db.GetProject(ctx, "nope"); err != nil || got != nil {
		t.Errorf("GetProject: expected nil, nil; got %v, %v", got, err)
	}
	if err := db.RenameProject(ctx, "nope", "x"); !errors.Is(err, engine.ErrNotFound) {
		t.Errorf("RenameProject: expected ErrNotFound, got %v", err)
	}
}

func TestRenameProjectTrimsName(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	if err := db.RenameProject(ctx, "p", "  Home  "); err != nil {
		t.Fatalf("RenameProject failed: %v", err)
	}
	if p, _ := db.GetProject(ctx, "p"); p == nil || p.Name != "Home" {
		t.Errorf("Expected name Home, got %+v", p)
	}
	if err := db.RenameProject(ctx, "p", " "); err != nil {
		t.Fatalf("RenameProject failed: %v", err)
	}
	if p, _ := db.GetProject(ctx, "p"); p == nil || p.Name != model.UntitledProject {
		t.Errorf("Expected blank name to become %s, got %+v", model.UntitledProject, p)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "map.db")
	first, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if first.Path() != path {
		t.Errorf("Expected path %s, got %s", path, first.Path())
	}
	if _, err := first.EnsureProject(context.Background(), "p", "Kept"); err != nil {
		t.Fatalf("EnsureProject failed: %v", err)
	}
	first.Close()

	// migrations already applied must not run again
	second, err := Open(path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer second.Close()
	if p, _ := second.GetProject(context.Background(), "p"); p == nil || p.Name != "Kept" {
		t.Errorf("Expected project to survive reopen, got %+v", p)
	}
}

func TestDeletesCascade(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	mustGroup(t, db, "G", 0)
	mustGroup(t, db, "H", 1)
	mustTask(t, db, "T1", "G", "", 0)
	mustTask(t, db, "T4", "G", "T1", 0)
	mustTask(t, db, "T5", "G", "T4", 0)
	mustTask(t, db, "T2", "G", "", 1)
	mustTask(t, db, "T6", "H", "", 0)

	if err := db.DeleteTask(ctx, "T1"); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	_, tasks, _ := db.LoadProject(ctx, "p")
	byID := taskIDs(tasks)
	for _, id := range []string{"T1", "T4", "T5"} {
		if _, ok := byID[id]; ok {
			t.Errorf("Expected %s to be deleted", id)
		}
	}
	if len(byID) != 2 {
		t.Errorf("Expected T2 and T6 to remain, got %d tasks", len(byID))
	}

	if err := db.DeleteGroup(ctx, "H"); err != nil {
		t.Fatalf("DeleteGroup failed: %v", err)
	}
	groups, tasks, _ := db.LoadProject(ctx, "p")
	if len(groups) != 1 || len(tasks) != 1 || tasks[0].ID != "T2" {
		t.Errorf("Expected only G/T2 to remain, got %d groups %d tasks", len(groups), len(tasks))
	}
}

func TestParentMustShareGroup(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	mustGroup(t, db, "G", 0)
	mustGroup(t, db, "H", 1)
	mustTask(t, db, "T1", "G", "", 0)
	mustTask(t, db, "T6", "H", "", 0)

	parent := "T1"
	_, err := db.CreateTask(ctx, model.Task{ID: "bad", GroupID: "H", ParentTaskID: &parent, Title: "x"})
	if err == nil {
		t.Error("Expected insert under a parent of another group to fail")
	}

	if err := db.UpdateTask(ctx, "T6", model.TaskPatch{ParentTaskID: &parent}); err == nil {
		t.Error("Expected reparent across groups without a group change to fail")
	}

	group := "G"
	if err := db.UpdateTask(ctx, "T6", model.TaskPatch{ParentTaskID: &parent, GroupID: &group}); err != nil {
		t.Errorf("Expected a move with the group to succeed, got %v", err)
	}
}

// The engine drives the store from background commands; a full round trip
// through a fresh engine must see what the first one wrote.
func TestEngineRoundTrip(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	mustGroup(t, db, "G", 0)

	done := make(chan bool, 1)
	go func() {
		e := engine.New(engine.Config{Store: db, ProjectID: "p"})
		e.Flush(e.Load())

		root, create, err := e.CreateTask(engine.NewTask{GroupID: "G", Title: "root"})
		if err != nil {
			t.Errorf("CreateTask failed: %v", err)
			done <- false
			return
		}
		child, createChild, err := e.CreateTask(engine.NewTask{GroupID: "G", ParentTaskID: &root, Title: "child"})
		if err != nil {
			t.Errorf("CreateTask child failed: %v", err)
			done <- false
			return
		}
		for _, out := range append(e.Flush(create), e.Flush(createChild)...) {
			if out.Err != nil {
				t.Errorf("Outcome %s failed: %v", out.Op, out.Err)
			}
		}

		fresh := engine.New(engine.Config{Store: db, ProjectID: "p"})
		fresh.Flush(fresh.Load())
		got, ok := fresh.Task(child)
		if !ok || got.ParentID() != root {
			t.Errorf("Expected child under root after reload, got %+v", got)
		}
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Test timed out - possible deadlock detected")
	}

	if got, _ := db.getTask(ctx, "missing"); got != nil {
		t.Errorf("Expected nil for a missing task")
	}
}
