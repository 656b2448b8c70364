package layout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dori/mindmap/internal/collapse"
	"github.com/dori/mindmap/internal/model"
	"github.com/dori/mindmap/internal/tree"
)

func sampleTree() *tree.Tree {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p := "T1"
	return tree.New(
		[]model.Group{{ID: "G", Title: "Inbox", CreatedAt: t0}},
		[]model.Task{
			{ID: "T1", GroupID: "G", Title: "one", OrderIndex: 0, CreatedAt: t0},
			{ID: "T2", GroupID: "G", Title: "two", OrderIndex: 1, CreatedAt: t0},
			{ID: "T4", GroupID: "G", ParentTaskID: &p, Title: "four", CreatedAt: t0},
		},
	)
}

func TestGraphSkipsCollapsedSubtrees(t *testing.T) {
	tr := sampleTree()
	nodes, edges := Graph(tr, collapse.New(), "p", "Project")
	assert.Len(t, nodes, 5)
	assert.Contains(t, edges, Edge{Source: "T1", Target: "T4"})
	assert.Equal(t, 3+4, nodes[2].Width)

	set := collapse.New()
	set.Collapse("T1")
	nodes, _ = Graph(tr, set, "p", "Project")
	assert.Len(t, nodes, 4)
}

func TestOutlineIsDeterministicPreOrder(t *testing.T) {
	nodes, edges := Graph(sampleTree(), nil, "p", "Project")
	pos := Outline{Indent: 2}.Layout(nodes, edges)

	assert.Equal(t, Position{X: 0, Y: 0}, pos["p"])
	assert.Equal(t, Position{X: 2, Y: 1}, pos["G"])
	assert.Equal(t, Position{X: 4, Y: 2}, pos["T1"])
	assert.Equal(t, Position{X: 6, Y: 3}, pos["T4"])
	assert.Equal(t, Position{X: 4, Y: 4}, pos["T2"])
	assert.Equal(t, pos, Outline{Indent: 2}.Layout(nodes, edges))
}

func TestOutlineTerminatesOnCycles(t *testing.T) {
	nodes := []Node{{ID: "a", Height: 1}, {ID: "b", Height: 1}}
	edges := []Edge{{Source: "a", Target: "b"}, {Source: "b", Target: "a"}}
	pos := Outline{}.Layout(nodes, edges)
	require.Len(t, pos, 2)
	assert.NotEqual(t, pos["a"].Y, pos["b"].Y)
}

func TestHitPrefersSmallestBox(t *testing.T) {
	boxes := map[string]Rect{
		"big":   {X: 0, Y: 0, W: 10, H: 3},
		"small": {X: 2, Y: 1, W: 3, H: 1},
	}
	id, ok := Hit(boxes, Point{X: 3, Y: 1})
	require.True(t, ok)
	assert.Equal(t, "small", id)

	_, ok = Hit(boxes, Point{X: 20, Y: 20})
	assert.False(t, ok)
	assert.True(t, Rect{X: 1, Y: 1, W: 2, H: 2}.Contains(Point{X: 2, Y: 2}))
	assert.False(t, Rect{X: 1, Y: 1, W: 2, H: 2}.Contains(Point{X: 3, Y: 1}))
}
