package drag

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dori/mindmap/internal/engine"
	"github.com/dori/mindmap/internal/engine/enginetest"
	"github.com/dori/mindmap/internal/layout"
	"github.com/dori/mindmap/internal/model"
	"github.com/dori/mindmap/internal/tree"
)

var t0 = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

// G: T1 (T4), T2.  H: T6.
func setup(t *testing.T) (*Controller, *engine.Engine) {
	t.Helper()
	store := enginetest.NewMemStore()
	store.PutGroup(model.Group{ID: "G", Title: "G", OrderIndex: 0, CreatedAt: t0})
	store.PutGroup(model.Group{ID: "H", Title: "H", OrderIndex: 1, CreatedAt: t0})
	p := "T1"
	store.PutTask(model.Task{ID: "T1", GroupID: "G", Title: "T1", OrderIndex: 0, CreatedAt: t0})
	store.PutTask(model.Task{ID: "T2", GroupID: "G", Title: "T2", OrderIndex: 1, CreatedAt: t0})
	store.PutTask(model.Task{ID: "T4", GroupID: "G", ParentTaskID: &p, Title: "T4", CreatedAt: t0})
	store.PutTask(model.Task{ID: "T6", GroupID: "H", Title: "T6", CreatedAt: t0})

	eng := engine.New(engine.Config{Store: store, ProjectID: "p"})
	outs := eng.Flush(eng.Load())
	require.Len(t, outs, 1)
	require.NoError(t, outs[0].Err)
	return New(eng, nil), eng
}

var boxes = map[string]layout.Rect{
	"G":  {X: 0, Y: 0, W: 20, H: 1},
	"T1": {X: 2, Y: 1, W: 10, H: 1},
	"T4": {X: 4, Y: 2, W: 10, H: 1},
	"T2": {X: 2, Y: 3, W: 10, H: 1},
	"H":  {X: 0, Y: 4, W: 20, H: 1},
	"T6": {X: 2, Y: 5, W: 10, H: 1},
}

// dragTo starts dragging id by its first cell and moves it so that its box
// lands at (x, y)
func dragTo(c *Controller, id string, x, y int) tree.NodeRef {
	r := boxes[id]
	c.Begin(tree.TaskRef(id), r, layout.Point{X: r.X, Y: r.Y})
	return c.Move(layout.Point{X: x, Y: y}, boxes)
}

func TestOnlyTasksAreDraggable(t *testing.T) {
	c, _ := setup(t)
	assert.False(t, c.Begin(tree.GroupRef("G"), boxes["G"], layout.Point{}))
	assert.False(t, c.Begin(tree.TaskRef("nope"), layout.Rect{}, layout.Point{}))
	assert.False(t, c.Active())
	ok, cmd := c.Drop()
	assert.False(t, ok)
	assert.Nil(t, cmd)
}

func TestDropOntoTaskReparents(t *testing.T) {
	c, eng := setup(t)

	target := dragTo(c, "T2", 2, 1)
	assert.Equal(t, tree.TaskRef("T1"), target)
	assert.True(t, c.IsDropTarget("T1"))
	assert.True(t, c.TargetValid())

	id, rect, ok := c.Override()
	require.True(t, ok)
	assert.Equal(t, "T2", id)
	assert.Equal(t, layout.Rect{X: 2, Y: 1, W: 10, H: 1}, rect)

	moved, cmd := c.Drop()
	require.True(t, moved)
	require.NotNil(t, cmd)
	eng.Flush(cmd)
	task, _ := eng.Task("T2")
	assert.Equal(t, "T1", task.ParentID())
	assert.Equal(t, "G", task.GroupID)
	assert.False(t, c.Active())

	// Dropping onto the current parent does nothing.
	dragTo(c, "T2", 2, 1)
	assert.False(t, c.TargetValid())
	moved, _ = c.Drop()
	assert.False(t, moved)
}

func TestDropOntoDescendantIsRejected(t *testing.T) {
	c, eng := setup(t)
	before := eng.Tasks()

	target := dragTo(c, "T1", 4, 2)
	assert.Equal(t, tree.TaskRef("T4"), target)
	assert.False(t, c.TargetValid())

	moved, cmd := c.Drop()
	assert.False(t, moved)
	assert.Nil(t, cmd)
	assert.Equal(t, before, eng.Tasks())
}

func TestDropOntoGroupMovesToRoot(t *testing.T) {
	c, eng := setup(t)

	target := dragTo(c, "T4", 0, 4)
	assert.Equal(t, tree.GroupRef("H"), target)
	moved, cmd := c.Drop()
	require.True(t, moved)
	eng.Flush(cmd)

	task, _ := eng.Task("T4")
	assert.Nil(t, task.ParentTaskID)
	assert.Equal(t, "H", task.GroupID)
}

func TestDropOnEmptySpaceIsNoop(t *testing.T) {
	c, _ := setup(t)
	target := dragTo(c, "T2", 40, 40)
	assert.True(t, target.Zero())
	moved, cmd := c.Drop()
	assert.False(t, moved)
	assert.Nil(t, cmd)
	_, _, ok := c.Override()
	assert.False(t, ok)
}

func TestNearestCenterWinsRegardlessOfOrder(t *testing.T) {
	c, _ := setup(t)
	overlap := map[string]layout.Rect{
		"G":  {X: 0, Y: 0, W: 30, H: 3},
		"T1": {X: 4, Y: 0, W: 6, H: 3},
		"T6": {X: 4, Y: 0, W: 6, H: 3}, // same center as T1
	}
	require.True(t, c.Begin(tree.TaskRef("T2"), layout.Rect{X: 20, Y: 10, W: 4, H: 1}, layout.Point{X: 20, Y: 10}))

	// Dragged center lands on (7, 1): T1 and T6 are equally close, G is farther.
	target := c.Move(layout.Point{X: 5, Y: 1}, overlap)
	assert.Equal(t, tree.TaskRef("T1"), target)

	c.Cancel()
	assert.False(t, c.Active())
	assert.True(t, c.Target().Zero())
}
