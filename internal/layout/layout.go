// Package layout turns the visible outline into positioned boxes.
//
// Engine is the pluggable positioning step. Outline is the built-in
// implementation: an indented list, one node per row.
package layout

import (
	"sort"

	"github.com/charmbracelet/x/ansi"

	"github.com/dori/mindmap/internal/collapse"
	"github.com/dori/mindmap/internal/tree"
)

// Node is one box to position
type Node struct {
	ID     string
	Kind   tree.NodeKind
	Width  int
	Height int
}

// Edge connects a parent to a child
type Edge struct {
	Source string
	Target string
}

// Position is the top-left corner of a node
type Position struct {
	X, Y int
}

// Point is a cell on screen
type Point struct {
	X, Y int
}

// Rect is an on-screen bounding box
type Rect struct {
	X, Y, W, H int
}

// Center returns the middle cell of r
func (r Rect) Center() Point {
	return Point{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// Contains reports whether p lies inside r
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.W && p.Y >= r.Y && p.Y < r.Y+r.H
}

// Offset returns r moved by dx, dy
func (r Rect) Offset(dx, dy int) Rect {
	r.X += dx
	r.Y += dy
	return r
}

// Engine positions nodes. Implementations must return the same positions
// for the same input.
type Engine interface {
	Layout(nodes []Node, edges []Edge) map[string]Position
}

// Graph builds the node and edge lists for what is currently visible: the
// project, its groups, and every task not hidden by a collapsed ancestor.
// Titles are measured in terminal cells.
func Graph(t *tree.Tree, c *collapse.Set, projectID, projectTitle string) ([]Node, []Edge) {
	var nodes []Node
	var edges []Edge
	nodes = append(nodes, Node{ID: projectID, Kind: tree.KindProject, Width: boxWidth(projectTitle), Height: 1})

	var walk func(parent string, ref tree.NodeRef)
	walk = func(parent string, ref tree.NodeRef) {
		if c != nil && c.IsCollapsed(ref.ID) {
			return
		}
		for _, task := range t.ChildrenOfRef(ref) {
			nodes = append(nodes, Node{ID: task.ID, Kind: tree.KindTask, Width: boxWidth(task.Title), Height: 1})
			edges = append(edges, Edge{Source: parent, Target: task.ID})
			walk(task.ID, tree.TaskRef(task.ID))
		}
	}
	for _, g := range t.Groups() {
		nodes = append(nodes, Node{ID: g.ID, Kind: tree.KindGroup, Width: boxWidth(g.Title), Height: 1})
		edges = append(edges, Edge{Source: projectID, Target: g.ID})
		walk(g.ID, tree.GroupRef(g.ID))
	}
	return nodes, edges
}

// boxWidth leaves room for a marker column on each side of the title
func boxWidth(title string) int {
	return ansi.StringWidth(title) + 4
}

// Outline lays nodes out as an indented list in pre-order. Children follow
// edge order; roots follow node order.
type Outline struct {
	Indent int
	Gap    int // blank rows between nodes
}

// Layout implements Engine
func (o Outline) Layout(nodes []Node, edges []Edge) map[string]Position {
	indent := o.Indent
	if indent <= 0 {
		indent = 2
	}
	byID := make(map[string]Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	children := make(map[string][]string)
	hasParent := make(map[string]bool)
	for _, e := range edges {
		if _, ok := byID[e.Target]; !ok {
			continue
		}
		children[e.Source] = append(children[e.Source], e.Target)
		hasParent[e.Target] = true
	}

	pos := make(map[string]Position, len(nodes))
	y := 0
	var place func(id string, depth int)
	place = func(id string, depth int) {
		if _, done := pos[id]; done {
			return
		}
		pos[id] = Position{X: depth * indent, Y: y}
		h := byID[id].Height
		if h <= 0 {
			h = 1
		}
		y += h + o.Gap
		for _, cid := range children[id] {
			place(cid, depth+1)
		}
	}
	for _, n := range nodes {
		if !hasParent[n.ID] {
			place(n.ID, 0)
		}
	}
	// Anything left sits on a cycle; stack it at the bottom.
	for _, n := range nodes {
		place(n.ID, 0)
	}
	return pos
}

// Boxes combines node sizes with positions
func Boxes(nodes []Node, pos map[string]Position) map[string]Rect {
	out := make(map[string]Rect, len(nodes))
	for _, n := range nodes {
		p, ok := pos[n.ID]
		if !ok {
			continue
		}
		out[n.ID] = Rect{X: p.X, Y: p.Y, W: n.Width, H: n.Height}
	}
	return out
}

// Hit returns the node under p. When boxes overlap the smallest wins, then
// the lowest id.
func Hit(boxes map[string]Rect, p Point) (string, bool) {
	var ids []string
	for id, r := range boxes {
		if r.Contains(p) {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return "", false
	}
	sort.Slice(ids, func(i, j int) bool {
		ai, aj := boxes[ids[i]].W*boxes[ids[i]].H, boxes[ids[j]].W*boxes[ids[j]].H
		if ai != aj {
			return ai < aj
		}
		return ids[i] < ids[j]
	})
	return ids[0], true
}
