package ui

import (
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dori/mindmap/internal/engine"
	"github.com/dori/mindmap/internal/engine/enginetest"
	"github.com/dori/mindmap/internal/focus"
	"github.com/dori/mindmap/internal/layout"
	"github.com/dori/mindmap/internal/model"
	"github.com/dori/mindmap/internal/notify"
	"github.com/dori/mindmap/internal/tree"
	"github.com/dori/mindmap/internal/ui/theme"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

type driver struct {
	t     *testing.T
	m     RootModel
	store *enginetest.MemStore
	eng   *engine.Engine
	clock time.Time
	quit  bool
	notes [][]string
	saved []string
}

// G has T1 (with T4) and T2; H is empty.
func newDriver(t *testing.T) *driver {
	t.Helper()
	theme.SetTheme(theme.Nord)
	t.Cleanup(func() { theme.SetTheme(theme.Nord) })

	store := enginetest.NewMemStore()
	store.PutGroup(model.Group{ID: "G", ProjectID: "p", Title: "Errands", OrderIndex: 0, CreatedAt: t0})
	store.PutGroup(model.Group{ID: "H", ProjectID: "p", Title: "Work", OrderIndex: 1, CreatedAt: t0})
	parent := "T1"
	for _, task := range []model.Task{
		{ID: "T1", GroupID: "G", Title: "Groceries", Status: model.StatusTodo, OrderIndex: 0, CreatedAt: t0},
		{ID: "T2", GroupID: "G", Title: "Pharmacy", Status: model.StatusTodo, OrderIndex: 1, CreatedAt: t0},
		{ID: "T4", GroupID: "G", ParentTaskID: &parent, Title: "Milk", Status: model.StatusTodo, CreatedAt: t0},
	} {
		store.PutTask(task)
	}

	n := 0
	eng := engine.New(engine.Config{
		Store:     store,
		ProjectID: "p",
		NewID:     func() string { n++; return fmt.Sprintf("N%d", n) },
	})

	d := &driver{t: t, store: store, eng: eng, clock: t0}
	notifier := notify.New().WithRunner(func(args ...string) error {
		d.notes = append(d.notes, args)
		return nil
	})
	d.m = NewRootModel(Deps{
		Engine:       eng,
		Focus:        focus.Options{FocusDelay: time.Millisecond, FocusAttempts: 2, Clipboard: func(string) error { return nil }},
		Notifier:     notifier,
		ProjectTitle: "Home",
		Theme:        "nord",
		SaveTheme: func(name string) error {
			d.saved = append(d.saved, name)
			return nil
		},
		Now: func() time.Time { return d.clock },
	})
	d.run(d.m.Init())
	d.send(tea.WindowSizeMsg{Width: 80, Height: 20})
	return d
}

func (d *driver) send(msg tea.Msg) {
	next, cmd := d.m.Update(msg)
	d.m = next.(RootModel)
	d.run(cmd)
}

// run executes cmd the way the program loop would
func (d *driver) run(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, sub := range msg {
			d.run(sub)
		}
	case tea.QuitMsg:
		d.quit = true
	case nil:
	default:
		d.send(msg)
	}
}

func (d *driver) box(id string) layout.Rect {
	d.t.Helper()
	b, ok := d.m.screenBoxes()[id]
	require.True(d.t, ok, "no box for %s", id)
	return b
}

func (d *driver) mouse(action tea.MouseAction, p layout.Point) {
	d.send(tea.MouseMsg{X: p.X, Y: p.Y, Action: action, Button: tea.MouseButtonLeft})
}

func (d *driver) click(id string) {
	c := d.box(id).Center()
	d.mouse(tea.MouseActionPress, c)
	d.mouse(tea.MouseActionRelease, c)
}

func (d *driver) key(msg tea.KeyMsg) { d.send(msg) }

func (d *driver) typeText(s string) {
	for _, r := range s {
		d.key(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func TestViewRendersOutline(t *testing.T) {
	d := newDriver(t)
	out := d.m.View()

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 20)
	assert.Contains(t, lines[0], "mindmap")
	assert.Contains(t, lines[0], "2 groups · 3 tasks")
	assert.Contains(t, lines[1], "Home")
	assert.Contains(t, lines[2], "Errands")
	assert.Contains(t, lines[3], "Groceries")
	assert.Contains(t, lines[4], "Milk")
	assert.Contains(t, lines[5], "Pharmacy")
	assert.Contains(t, lines[6], "Work")

	// indentation follows depth
	assert.Equal(t, 4, d.box("T1").X)
	assert.Equal(t, 6, d.box("T4").X)
}

func TestClickSelectsAndDoubleClickEdits(t *testing.T) {
	d := newDriver(t)

	d.click("T2")
	assert.Equal(t, tree.TaskRef("T2"), d.m.focus.Selected())
	assert.Equal(t, focus.StateSelected, d.m.focus.State())

	d.clock = d.clock.Add(100 * time.Millisecond)
	d.click("T2")
	assert.True(t, d.m.focus.IsEditing("T2"))
	assert.Equal(t, "Pharmacy", d.m.focus.Input().Value())
}

func TestSlowSecondClickDoesNotEdit(t *testing.T) {
	d := newDriver(t)

	d.click("T2")
	d.clock = d.clock.Add(time.Second)
	d.click("T2")
	assert.Equal(t, focus.StateSelected, d.m.focus.State())
}

func TestClickOnEmptySpaceClearsSelection(t *testing.T) {
	d := newDriver(t)
	d.click("T1")

	p := layout.Point{X: 70, Y: 15}
	d.mouse(tea.MouseActionPress, p)
	d.mouse(tea.MouseActionRelease, p)
	assert.Equal(t, focus.StateIdle, d.m.focus.State())
}

func TestMarkerClickTogglesCollapse(t *testing.T) {
	d := newDriver(t)
	d.click("T4")
	b := d.box("T1")
	at := layout.Point{X: b.X, Y: b.Y}

	d.mouse(tea.MouseActionPress, at)
	d.mouse(tea.MouseActionRelease, at)

	_, visible := d.m.screenBoxes()["T4"]
	assert.False(t, visible)
	assert.Contains(t, d.m.View(), "▸")
	assert.Equal(t, tree.TaskRef("T1"), d.m.focus.Selected(), "selection follows the fold")
}

func TestDragOntoTaskReparents(t *testing.T) {
	d := newDriver(t)
	from := d.box("T2").Center()
	to := d.box("T1").Center()

	d.mouse(tea.MouseActionPress, from)
	d.mouse(tea.MouseActionMotion, to)
	assert.Equal(t, tree.TaskRef("T1"), d.m.drag.Target())
	assert.True(t, d.m.drag.TargetValid())

	d.mouse(tea.MouseActionRelease, to)

	moved, ok := d.eng.Task("T2")
	require.True(t, ok)
	assert.Equal(t, "T1", moved.ParentID())
	persisted, _ := d.store.Task("T2")
	assert.Equal(t, "T1", persisted.ParentID())
	assert.False(t, d.m.drag.Active())
}

func TestDragOntoOwnDescendantIsRefused(t *testing.T) {
	d := newDriver(t)
	from := d.box("T1").Center()
	to := d.box("T4").Center()

	d.mouse(tea.MouseActionPress, from)
	d.mouse(tea.MouseActionMotion, to)
	assert.False(t, d.m.drag.TargetValid())
	d.mouse(tea.MouseActionRelease, to)

	task, _ := d.eng.Task("T1")
	assert.Nil(t, task.ParentTaskID)
	assert.Equal(t, "cannot move there", d.m.statusMsg)
}

func TestEscapeCancelsDrag(t *testing.T) {
	d := newDriver(t)
	d.mouse(tea.MouseActionPress, d.box("T2").Center())
	d.mouse(tea.MouseActionMotion, d.box("T1").Center())
	require.True(t, d.m.drag.Active())

	d.key(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, d.m.drag.Active())
	task, _ := d.eng.Task("T2")
	assert.Nil(t, task.ParentTaskID)
}

func TestRolledBackCreationIsReported(t *testing.T) {
	d := newDriver(t)
	d.store.FailOn("CreateTask")

	d.click("T4")
	d.key(tea.KeyMsg{Type: tea.KeyEnter})

	_, exists := d.eng.Task("N1")
	assert.False(t, exists)
	assert.Equal(t, tree.TaskRef("T1"), d.m.focus.Selected())
	assert.Contains(t, d.m.errorMsg, "reverted")
	require.Len(t, d.notes, 1)
	assert.Contains(t, d.notes[0], "Change reverted")
}

func TestQuitCommitsEditInProgress(t *testing.T) {
	d := newDriver(t)
	d.click("T2")
	d.typeText("Post office")
	require.True(t, d.m.focus.IsEditing("T2"))

	d.key(tea.KeyMsg{Type: tea.KeyCtrlQ})

	assert.True(t, d.quit)
	persisted, _ := d.store.Task("T2")
	assert.Equal(t, "Post office", persisted.Title)
}

// runAside executes cmd off the test goroutine, dropping its messages, the
// way the program runs commands it dispatched just before quitting
func runAside(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	if batch, ok := cmd().(tea.BatchMsg); ok {
		for _, sub := range batch {
			runAside(sub)
		}
	}
}

func TestQuitWaitsForSavesInFlight(t *testing.T) {
	d := newDriver(t)
	d.click("T2")
	d.typeText("Post office")

	next, save := d.m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	d.m = next.(RootModel)
	require.Equal(t, 1, d.eng.Pending())

	go func() {
		time.Sleep(20 * time.Millisecond)
		runAside(save)
	}()
	d.key(tea.KeyMsg{Type: tea.KeyCtrlQ})

	assert.True(t, d.quit)
	assert.Equal(t, 0, d.eng.Pending())
	persisted, _ := d.store.Task("T2")
	assert.Equal(t, "Post office", persisted.Title)
}

func TestTerminalBlurCommitsEdit(t *testing.T) {
	d := newDriver(t)
	d.click("T2")
	d.typeText("Post office")

	d.send(tea.BlurMsg{})

	assert.False(t, d.m.focus.IsEditing("T2"))
	persisted, _ := d.store.Task("T2")
	assert.Equal(t, "Post office", persisted.Title)
}

func TestThemeCycleAndHelp(t *testing.T) {
	d := newDriver(t)

	d.key(tea.KeyMsg{Type: tea.KeyCtrlT})
	assert.Equal(t, "dracula", theme.Current.Theme.Name)
	assert.Equal(t, "Theme: dracula", d.m.statusMsg)
	assert.Equal(t, []string{"dracula"}, d.saved)

	d.key(tea.KeyMsg{Type: tea.KeyF1})
	assert.True(t, d.m.helpVisible)
	assert.Contains(t, d.m.View(), "new group")

	d.key(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, d.m.helpVisible)
}

func TestDeleteConfirmationPrompt(t *testing.T) {
	d := newDriver(t)
	d.click("T1")
	d.key(tea.KeyMsg{Type: tea.KeyDelete})

	require.Equal(t, focus.StateConfirmDelete, d.m.focus.State())
	assert.Contains(t, d.m.View(), "Delete 1 item(s)")

	d.key(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})
	_, ok := d.eng.Task("T4")
	assert.False(t, ok)
	assert.Equal(t, tree.TaskRef("T2"), d.m.focus.Selected())
}
