// Package drag reparents tasks by dragging them onto another node
package drag

import (
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/dori/mindmap/internal/engine"
	"github.com/dori/mindmap/internal/layout"
	"github.com/dori/mindmap/internal/tree"
)

// Controller follows one drag gesture at a time
type Controller struct {
	engine *engine.Engine
	log    *logrus.Entry

	active  bool
	dragged string
	grab    layout.Point // pointer offset inside the dragged box
	rect    layout.Rect  // live box, follows the pointer
	target  tree.NodeRef
}

// New returns an idle controller
func New(eng *engine.Engine, log *logrus.Entry) *Controller {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = logrus.NewEntry(l)
	}
	return &Controller{engine: eng, log: log.WithField("component", "drag")}
}

// Begin starts dragging ref from its current box. Only tasks can be dragged.
func (c *Controller) Begin(ref tree.NodeRef, rect layout.Rect, pointer layout.Point) bool {
	if ref.Kind != tree.KindTask {
		return false
	}
	if _, ok := c.engine.Task(ref.ID); !ok {
		return false
	}
	c.active = true
	c.dragged = ref.ID
	c.grab = layout.Point{X: pointer.X - rect.X, Y: pointer.Y - rect.Y}
	c.rect = rect
	c.target = tree.NodeRef{}
	return true
}

// Active reports whether a drag is in progress
func (c *Controller) Active() bool { return c.active }

// Dragged returns the id of the task being dragged
func (c *Controller) Dragged() string { return c.dragged }

// Move follows the pointer and picks the drop target among boxes: of all
// other tasks and groups whose box contains the dragged box's center, the
// one whose own center is closest wins. Equal distances go to the lower id.
func (c *Controller) Move(pointer layout.Point, boxes map[string]layout.Rect) tree.NodeRef {
	if !c.active {
		return tree.NodeRef{}
	}
	c.rect.X = pointer.X - c.grab.X
	c.rect.Y = pointer.Y - c.grab.Y
	center := c.rect.Center()

	t := c.engine.Tree()
	best := tree.NodeRef{}
	bestDist := -1
	for id, box := range boxes {
		if id == c.dragged || !box.Contains(center) {
			continue
		}
		ref, ok := t.Lookup(id)
		if !ok {
			continue
		}
		bc := box.Center()
		dx, dy := bc.X-center.X, bc.Y-center.Y
		d := dx*dx + dy*dy
		if bestDist < 0 || d < bestDist || (d == bestDist && id < best.ID) {
			best, bestDist = ref, d
		}
	}
	c.target = best
	return best
}

// Target returns the current drop target, zero when there is none
func (c *Controller) Target() tree.NodeRef { return c.target }

// IsDropTarget reports whether id is the highlighted drop target
func (c *Controller) IsDropTarget(id string) bool {
	return c.active && c.target.ID == id
}

// TargetValid reports whether dropping now would move the task
func (c *Controller) TargetValid() bool {
	if !c.active || c.target.Zero() {
		return false
	}
	parent, group, ok := c.destination()
	if !ok {
		return false
	}
	task, _ := c.engine.Task(c.dragged)
	if parent == nil {
		return task.ParentTaskID != nil || task.GroupID != group
	}
	return task.ParentID() != *parent
}

// destination resolves the target into a new parent and group. It refuses
// the dragged task itself and its descendants.
func (c *Controller) destination() (*string, string, bool) {
	t := c.engine.Tree()
	switch c.target.Kind {
	case tree.KindGroup:
		if _, ok := t.Group(c.target.ID); !ok {
			return nil, "", false
		}
		return nil, c.target.ID, true
	case tree.KindTask:
		target, ok := t.Task(c.target.ID)
		if !ok || target.ID == c.dragged || t.IsDescendant(c.dragged, target.ID) {
			return nil, "", false
		}
		id := target.ID
		return &id, target.GroupID, true
	}
	return nil, "", false
}

// Override returns the live box of the dragged task. Renderers draw it there
// instead of at its laid out position.
func (c *Controller) Override() (string, layout.Rect, bool) {
	if !c.active {
		return "", layout.Rect{}, false
	}
	return c.dragged, c.rect, true
}

// Drop ends the gesture and requests the move when the target allows it
func (c *Controller) Drop() (bool, tea.Cmd) {
	if !c.active {
		return false, nil
	}
	defer c.Cancel()
	if c.target.Zero() {
		return false, nil
	}
	parent, group, ok := c.destination()
	if !ok {
		c.log.WithFields(logrus.Fields{"task": c.dragged, "target": c.target.ID}).Debug("drop refused")
		return false, nil
	}
	return c.engine.MoveTask(c.dragged, parent, group)
}

// Cancel abandons the gesture; the task snaps back to its laid out position
func (c *Controller) Cancel() {
	c.active = false
	c.dragged = ""
	c.target = tree.NodeRef{}
	c.rect = layout.Rect{}
	c.grab = layout.Point{}
}
