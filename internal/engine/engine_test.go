package engine

import (
	"fmt"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dori/mindmap/internal/engine/enginetest"
	"github.com/dori/mindmap/internal/model"
)

var t0 = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func seedTask(id, group, parent string, order int) model.Task {
	t := model.Task{ID: id, GroupID: group, Title: id, Status: model.StatusTodo, OrderIndex: order, CreatedAt: t0, UpdatedAt: t0}
	if parent != "" {
		t.ParentTaskID = strPtr(parent)
	}
	return t
}

// G: T1 (T4 (T5)), T2.  H: T6.
func seedStore() *enginetest.MemStore {
	s := enginetest.NewMemStore()
	s.PutGroup(model.Group{ID: "G", ProjectID: "p", Title: "G", OrderIndex: 0, CreatedAt: t0})
	s.PutGroup(model.Group{ID: "H", ProjectID: "p", Title: "H", OrderIndex: 1, CreatedAt: t0})
	for _, t := range []model.Task{
		seedTask("T1", "G", "", 0),
		seedTask("T2", "G", "", 1),
		seedTask("T4", "G", "T1", 0),
		seedTask("T5", "G", "T4", 0),
		seedTask("T6", "H", "", 0),
	} {
		s.PutTask(t)
	}
	return s
}

func setup(t *testing.T) (*Engine, *enginetest.MemStore) {
	t.Helper()
	store := seedStore()
	n := 0
	clock := t0
	e := New(Config{
		Store:     store,
		ProjectID: "p",
		NewID:     func() string { n++; return fmt.Sprintf("new%d", n) },
		Now:       func() time.Time { clock = clock.Add(time.Second); return clock },
	})
	outs := e.Flush(e.Load())
	require.Len(t, outs, 1)
	require.NoError(t, outs[0].Err)
	return e, store
}

func storeCalls(s *enginetest.MemStore) []string {
	return s.Calls()[1:] // drop the initial load
}

func rootIDs(e *Engine, groupID string) []string {
	var out []string
	for _, t := range e.Tree().RootTasksOf(groupID) {
		out = append(out, t.ID)
	}
	return out
}

func single(t *testing.T, outs []Outcome) Outcome {
	t.Helper()
	require.Len(t, outs, 1)
	return outs[0]
}

func TestCreatedIDIsUsableBeforePersistence(t *testing.T) {
	e, store := setup(t)

	id, create, err := e.CreateTask(NewTask{GroupID: "G", Title: "new"})
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.True(t, e.IsCreating(id))

	update, err := e.UpdateTask(id, model.TaskPatch{Title: strPtr("renamed")})
	require.NoError(t, err)
	require.NotNil(t, update)

	got, ok := e.Task(id)
	require.True(t, ok)
	assert.Equal(t, "renamed", got.Title)
	assert.Equal(t, 2, got.OrderIndex)

	// The update is started first but must reach the store after the create.
	updated := make(chan tea.Msg, 1)
	go func() { updated <- update() }()
	created := create()
	updateMsg := <-updated

	out, ok := e.Reconcile(created)
	require.True(t, ok)
	assert.NoError(t, out.Err)
	out, _ = e.Reconcile(updateMsg)
	assert.NoError(t, out.Err)

	assert.Equal(t, []string{"CreateTask:" + id, "UpdateTask:" + id}, storeCalls(store))
	persisted, ok := store.Task(id)
	require.True(t, ok)
	assert.Equal(t, "renamed", persisted.Title)
	assert.False(t, e.IsCreating(id))
	assert.Zero(t, e.Pending())
}

func TestCreateAfterSiblingShiftsFollowers(t *testing.T) {
	e, store := setup(t)

	id, cmd, err := e.CreateTask(NewTask{GroupID: "G", Title: "  T3 ", After: "T1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"T1", id, "T2"}, rootIDs(e, "G"))

	out := single(t, e.Flush(cmd))
	require.NoError(t, out.Err)

	got, _ := e.Task(id)
	assert.Equal(t, "T3", got.Title, "server normalisation is merged")
	assert.Nil(t, got.ParentTaskID)
	assert.Equal(t, "G", got.GroupID)

	t2, _ := store.Task("T2")
	assert.Equal(t, 2, t2.OrderIndex)
	assert.Equal(t, []string{"T1", id, "T2"}, rootIDs(e, "G"))
}

func TestMergeKeepsFieldsEditedWhileCreating(t *testing.T) {
	sent := model.Task{ID: "x", Title: " a ", Status: model.StatusTodo}
	local := sent
	local.Title = "edited"
	server := sent
	server.Title = "a"
	server.CreatedAt = t0

	merged := mergeTask(local, sent, server)
	assert.Equal(t, "edited", merged.Title)
	assert.Equal(t, t0, merged.CreatedAt)
}

func TestFailedCreateRevertsToSnapshot(t *testing.T) {
	e, store := setup(t)
	store.FailOn("CreateTask")
	before := e.Tasks()

	id, cmd, err := e.CreateTask(NewTask{GroupID: "G", Title: "T3", After: "T1"})
	require.NoError(t, err)
	shifted, _ := e.Task("T2")
	assert.Equal(t, 2, shifted.OrderIndex)

	out := single(t, e.Flush(cmd))
	assert.ErrorIs(t, out.Err, enginetest.ErrInjected)
	assert.True(t, out.RolledBack)
	assert.Equal(t, OpCreateTask, out.Op)

	_, ok := e.Task(id)
	assert.False(t, ok)
	assert.Equal(t, before, e.Tasks())
	assert.Equal(t, []string{"CreateTask:" + id}, storeCalls(store), "siblings are only shifted after a successful create")
	assert.False(t, e.CanUndo())
}

func TestFailedCreateSkipsDependentWork(t *testing.T) {
	e, store := setup(t)
	store.FailOn("CreateTask:new1")

	pid, createParent, err := e.CreateTask(NewTask{GroupID: "G", Title: "P"})
	require.NoError(t, err)
	cid, createChild, err := e.CreateTask(NewTask{ParentTaskID: &pid, Title: "C"})
	require.NoError(t, err)
	done := model.StatusDone
	update, err := e.UpdateTask(pid, model.TaskPatch{Status: &done})
	require.NoError(t, err)

	out := single(t, e.Flush(createParent))
	assert.True(t, out.RolledBack)
	_, ok := e.Task(cid)
	assert.False(t, ok, "optimistic children go with their parent")

	out = single(t, e.Flush(createChild))
	assert.ErrorIs(t, out.Err, ErrSkipped)
	assert.True(t, out.RolledBack)

	out = single(t, e.Flush(update))
	assert.NoError(t, out.Err)

	assert.Equal(t, []string{"CreateTask:" + pid}, storeCalls(store))
	assert.Zero(t, e.Pending())
	assert.Empty(t, e.Diverged())
}

func TestCreateTaskValidatesPlacement(t *testing.T) {
	e, _ := setup(t)

	_, _, err := e.CreateTask(NewTask{GroupID: "nope", Title: "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = e.CreateTask(NewTask{GroupID: "H", ParentTaskID: strPtr("T1"), Title: "x"})
	assert.ErrorIs(t, err, ErrGroupMismatch)

	id, _, err := e.CreateTask(NewTask{ParentTaskID: strPtr("T4"), Title: "x"})
	require.NoError(t, err)
	got, _ := e.Task(id)
	assert.Equal(t, "G", got.GroupID)
	assert.Equal(t, 1, got.OrderIndex)
}

func TestDeleteTaskCascades(t *testing.T) {
	e, store := setup(t)

	cmd, err := e.DeleteTask("T1")
	require.NoError(t, err)
	for _, id := range []string{"T1", "T4", "T5"} {
		_, ok := e.Task(id)
		assert.False(t, ok, id)
	}
	for _, task := range e.Tasks() {
		if task.ParentTaskID != nil {
			_, ok := e.Task(*task.ParentTaskID)
			assert.True(t, ok, "orphan %s", task.ID)
		}
	}
	assert.Empty(t, e.Tree().Problems())

	out := single(t, e.Flush(cmd))
	require.NoError(t, out.Err)
	assert.Equal(t, []string{"DeleteTask:T1"}, storeCalls(store))
	_, ok := store.Task("T5")
	assert.False(t, ok)
}

func TestDeleteTasksRunsDeepestFirstAndToleratesFailures(t *testing.T) {
	e, store := setup(t)
	store.FailOn("DeleteTask:T5")

	cmd, err := e.DeleteTasks([]string{"T1", "T6", "T5", "missing"})
	require.NoError(t, err)
	assert.Equal(t, []string{"T2"}, rootIDs(e, "G"))
	assert.Empty(t, rootIDs(e, "H"))

	out := single(t, e.Flush(cmd))
	assert.Equal(t, OpDeleteTasks, out.Op)
	assert.ErrorIs(t, out.Err, enginetest.ErrInjected)
	assert.Equal(t, []string{"DeleteTask:T5", "DeleteTask:T1", "DeleteTask:T6"}, storeCalls(store))
	assert.Empty(t, e.Diverged(), "failed deletes of gone tasks do not diverge")

	_, err = e.DeleteTasks([]string{"missing"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMoveRejectsInvalidTargets(t *testing.T) {
	e, store := setup(t)
	before := e.Tasks()

	cases := []struct {
		name   string
		id     string
		parent *string
		group  string
	}{
		{"under own descendant", "T1", strPtr("T5"), ""},
		{"under itself", "T1", strPtr("T1"), ""},
		{"unchanged parent", "T4", strPtr("T1"), ""},
		{"unchanged group root", "T2", nil, "G"},
		{"parent in other group", "T4", strPtr("T6"), "G"},
		{"missing group", "T2", nil, "nope"},
		{"missing task", "nope", nil, "G"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, cmd := e.MoveTask(tc.id, tc.parent, tc.group)
			assert.False(t, ok)
			assert.Nil(t, cmd)
		})
	}
	assert.Equal(t, before, e.Tasks())
	assert.Empty(t, storeCalls(store))
}

func TestMoveUnderSiblingAppends(t *testing.T) {
	e, store := setup(t)

	ok, cmd := e.MoveTask("T2", strPtr("T1"), "")
	require.True(t, ok)
	got, _ := e.Task("T2")
	assert.Equal(t, "T1", got.ParentID())
	assert.Equal(t, "G", got.GroupID)
	assert.Equal(t, 1, got.OrderIndex)

	out := single(t, e.Flush(cmd))
	require.NoError(t, out.Err)
	persisted, _ := store.Task("T2")
	assert.Equal(t, "T1", persisted.ParentID())

	ok, _ = e.MoveTask("T2", strPtr("T1"), "G")
	assert.False(t, ok, "already there")
}

func TestMoveAcrossGroupsCarriesDescendants(t *testing.T) {
	e, store := setup(t)

	ok, cmd := e.MoveTask("T1", nil, "H")
	require.True(t, ok)
	assert.Equal(t, []string{"T6", "T1"}, rootIDs(e, "H"))
	for _, id := range []string{"T4", "T5"} {
		got, _ := e.Task(id)
		assert.Equal(t, "H", got.GroupID, id)
	}

	single(t, e.Flush(cmd))
	assert.Equal(t, []string{"UpdateTask:T1", "UpdateTask:T4", "UpdateTask:T5"}, storeCalls(store))
	persisted, _ := store.Task("T5")
	assert.Equal(t, "H", persisted.GroupID)
}

func TestMoveOntoNodeBeingCreatedIsRejected(t *testing.T) {
	e, _ := setup(t)

	id, _, err := e.CreateTask(NewTask{GroupID: "G", Title: "fresh"})
	require.NoError(t, err)
	ok, _ := e.MoveTask("T2", &id, "")
	assert.False(t, ok)

	gid, _ := e.CreateGroup("fresh", "")
	ok, _ = e.MoveTask("T2", nil, gid)
	assert.False(t, ok)
}

func TestFailedUpdateKeepsLocalValueUntilReload(t *testing.T) {
	e, store := setup(t)
	store.FailOn("UpdateTask:T2")

	cmd, err := e.UpdateTask("T2", model.TaskPatch{Title: strPtr("local")})
	require.NoError(t, err)
	out := single(t, e.Flush(cmd))
	assert.ErrorIs(t, out.Err, enginetest.ErrInjected)
	assert.False(t, out.RolledBack)

	got, _ := e.Task("T2")
	assert.Equal(t, "local", got.Title)
	assert.Equal(t, []string{"T2"}, e.Diverged())

	single(t, e.Flush(e.Load()))
	got, _ = e.Task("T2")
	assert.Equal(t, "T2", got.Title)
	assert.Empty(t, e.Diverged())
}

func TestUpdateIgnoresNoopsAndStructure(t *testing.T) {
	e, _ := setup(t)

	cmd, err := e.UpdateTask("T2", model.TaskPatch{Title: strPtr("T2")})
	require.NoError(t, err)
	assert.Nil(t, cmd)

	cmd, err = e.UpdateTask("T2", model.TaskPatch{Title: strPtr("   ")})
	require.NoError(t, err)
	assert.Nil(t, cmd)

	cmd, err = e.UpdateTask("T2", model.TaskPatch{ParentTaskID: strPtr("T1")})
	require.NoError(t, err)
	assert.Nil(t, cmd)
	got, _ := e.Task("T2")
	assert.Nil(t, got.ParentTaskID)

	_, err = e.UpdateTask("nope", model.TaskPatch{Title: strPtr("x")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateGroupAfterAndRollback(t *testing.T) {
	e, store := setup(t)
	store.FailOn("CreateGroup")

	gid, cmd := e.CreateGroup("New", "G")
	h, _ := e.Group("H")
	assert.Equal(t, 2, h.OrderIndex)
	tid, createTask, err := e.CreateTask(NewTask{GroupID: gid, Title: "inside"})
	require.NoError(t, err)

	out := single(t, e.Flush(cmd))
	assert.True(t, out.RolledBack)
	assert.Equal(t, OpCreateGroup, out.Op)
	_, ok := e.Group(gid)
	assert.False(t, ok)
	_, ok = e.Task(tid)
	assert.False(t, ok)
	h, _ = e.Group("H")
	assert.Equal(t, 1, h.OrderIndex)

	out = single(t, e.Flush(createTask))
	assert.ErrorIs(t, out.Err, ErrSkipped)
	assert.Equal(t, []string{"CreateGroup:" + gid}, storeCalls(store))
}

func TestDeleteGroupRemovesItsTasks(t *testing.T) {
	e, store := setup(t)

	cmd, err := e.DeleteGroup("G")
	require.NoError(t, err)
	for _, task := range e.Tasks() {
		assert.NotEqual(t, "G", task.GroupID)
	}
	single(t, e.Flush(cmd))
	assert.Equal(t, []string{"DeleteGroup:G"}, storeCalls(store))
	_, ok := store.Task("T4")
	assert.False(t, ok)

	_, err = e.DeleteGroup("G")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadQuarantinesMalformedTasks(t *testing.T) {
	e, store := setup(t)
	store.PutTask(seedTask("bad", "G", "ghost", 0))

	out := single(t, e.Flush(e.Load()))
	assert.Error(t, out.Err)
	_, ok := e.Task("bad")
	assert.False(t, ok)
	_, ok = e.Task("T1")
	assert.True(t, ok, "the rest of the outline stays usable")
}

func TestLoadKeepsPendingCreations(t *testing.T) {
	e, _ := setup(t)

	id, _, err := e.CreateTask(NewTask{GroupID: "G", Title: "pending"})
	require.NoError(t, err)
	single(t, e.Flush(e.Load()))

	_, ok := e.Task(id)
	assert.True(t, ok)
}
