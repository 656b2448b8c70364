// Package focus is the selection and editing state machine of the outline.
//
// The controller turns keys and pointer gestures into engine mutations. Its
// text input stays focused from the moment a node is selected, so the first
// printable key that switches to editing is delivered to the input as is.
package focus

import (
	"errors"
	"io"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/dori/mindmap/internal/collapse"
	"github.com/dori/mindmap/internal/engine"
	"github.com/dori/mindmap/internal/model"
	"github.com/dori/mindmap/internal/tree"
)

// State is the controller mode
type State int

const (
	StateIdle State = iota
	StateSelected
	StateEditing
	StateConfirmDelete
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSelected:
		return "selected"
	case StateEditing:
		return "editing"
	case StateConfirmDelete:
		return "confirm delete"
	default:
		return "unknown"
	}
}

// FocusAttemptMsg is one try at moving the view focus onto a node. Attempts
// from an older generation are ignored.
type FocusAttemptMsg struct {
	Generation uint64
	ID         string
	Attempt    int
}

// Options configures a Controller
type Options struct {
	TaskPlaceholder  string
	GroupPlaceholder string
	FocusDelay       time.Duration
	FocusAttempts    int
	Keys             KeyMap
	Logger           *logrus.Entry
	Clipboard        func(string) error // defaults to the system clipboard
}

// Controller tracks what is selected and whether its title is being edited
type Controller struct {
	engine   *engine.Engine
	collapse *collapse.Set
	keys     KeyMap
	opts     Options
	log      *logrus.Entry
	input    textinput.Model

	state      State
	selected   tree.NodeRef
	fallback   []tree.NodeRef // where to go if the selection disappears
	bulk       map[string]bool
	composing  bool
	original   string
	doomed     []tree.NodeRef // awaiting delete confirmation
	generation uint64
	focused    string
	rendered   func(id string) bool
	notice     string
}

// New returns an idle controller
func New(eng *engine.Engine, set *collapse.Set, opts Options) *Controller {
	if opts.TaskPlaceholder == "" {
		opts.TaskPlaceholder = "New task"
	}
	if opts.GroupPlaceholder == "" {
		opts.GroupPlaceholder = "New group"
	}
	if opts.FocusDelay <= 0 {
		opts.FocusDelay = 30 * time.Millisecond
	}
	if opts.FocusAttempts <= 0 {
		opts.FocusAttempts = 10
	}
	if opts.Keys.Up.Keys() == nil {
		opts.Keys = DefaultKeyMap()
	}
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = logrus.NewEntry(l)
	}

	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 500
	ti.Cursor.SetMode(cursor.CursorStatic)

	return &Controller{
		engine:   eng,
		collapse: set,
		keys:     opts.Keys,
		opts:     opts,
		log:      log.WithField("component", "focus"),
		input:    ti,
		bulk:     make(map[string]bool),
	}
}

// State returns the current mode
func (c *Controller) State() State { return c.state }

// Selected returns the selected node, zero when idle
func (c *Controller) Selected() tree.NodeRef { return c.selected }

// IsSelected reports whether id is the selected node
func (c *Controller) IsSelected(id string) bool {
	return c.state != StateIdle && c.selected.ID == id
}

// IsEditing reports whether id's title is being edited
func (c *Controller) IsEditing(id string) bool {
	return c.state == StateEditing && c.selected.ID == id
}

// InBulk reports whether id is marked for a bulk operation
func (c *Controller) InBulk(id string) bool { return c.bulk[id] }

// Bulk returns the marked task ids
func (c *Controller) Bulk() []string {
	out := make([]string, 0, len(c.bulk))
	for id := range c.bulk {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Generation increases every time the selection changes
func (c *Controller) Generation() uint64 { return c.generation }

// FocusedID returns the node that has acquired view focus, if any
func (c *Controller) FocusedID() string { return c.focused }

// Input returns the text input used while editing
func (c *Controller) Input() textinput.Model { return c.input }

// Keys returns the controller's key map
func (c *Controller) Keys() KeyMap { return c.keys }

// PendingDelete returns the nodes awaiting delete confirmation
func (c *Controller) PendingDelete() []tree.NodeRef { return c.doomed }

// Notice returns and clears the last user-facing message
func (c *Controller) Notice() string {
	n := c.notice
	c.notice = ""
	return n
}

// SetRendered installs the check used to decide whether a node is on screen
// and can take focus
func (c *Controller) SetRendered(fn func(id string) bool) { c.rendered = fn }

// SetComposing marks an input method composition in progress. Enter does not
// commit while composing.
func (c *Controller) SetComposing(v bool) { c.composing = v }

// Update handles keys and focus attempts
func (c *Controller) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case FocusAttemptMsg:
		return c.attempt(msg)
	case tea.KeyMsg:
		switch c.state {
		case StateEditing:
			return c.handleEditing(msg)
		case StateConfirmDelete:
			return c.handleConfirm(msg)
		case StateSelected:
			return c.handleSelected(msg)
		default:
			return c.handleIdle(msg)
		}
	}
	return nil
}

func (c *Controller) handleIdle(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, c.keys.Up, c.keys.Down, c.keys.Right):
		groups := c.engine.Groups()
		if len(groups) == 0 {
			return nil
		}
		return c.selectRef(tree.GroupRef(groups[0].ID))
	case key.Matches(msg, c.keys.NewGroup):
		return c.createGroup()
	case key.Matches(msg, c.keys.Undo):
		return c.undo(false)
	case key.Matches(msg, c.keys.Redo):
		return c.undo(true)
	case key.Matches(msg, c.keys.Reload):
		return c.engine.Load()
	}
	return nil
}

func (c *Controller) handleSelected(msg tea.KeyMsg) tea.Cmd {
	if printable(msg) {
		c.beginEditing("")
		return c.forward(msg)
	}

	switch {
	case key.Matches(msg, c.keys.NewSibling):
		return c.createSibling()
	case key.Matches(msg, c.keys.NewChild):
		return c.createChild()
	case key.Matches(msg, c.keys.NewGroup):
		return c.createGroup()
	case key.Matches(msg, c.keys.Delete):
		return c.requestDelete()
	case key.Matches(msg, c.keys.Edit):
		c.beginEditing(c.title(c.selected))
		return nil
	case key.Matches(msg, c.keys.Up):
		return c.moveSibling(-1)
	case key.Matches(msg, c.keys.Down):
		return c.moveSibling(1)
	case key.Matches(msg, c.keys.Left):
		return c.moveParent()
	case key.Matches(msg, c.keys.Right):
		return c.moveChild()
	case key.Matches(msg, c.keys.Collapse):
		return c.ToggleCollapse(c.selected.ID)
	case key.Matches(msg, c.keys.Done):
		return c.toggleDone()
	case key.Matches(msg, c.keys.Priority):
		return c.cyclePriority()
	case key.Matches(msg, c.keys.Bulk):
		if c.selected.Kind == tree.KindTask {
			c.ToggleBulk(c.selected.ID)
		}
		return nil
	case key.Matches(msg, c.keys.Yank):
		c.yank()
		return nil
	case key.Matches(msg, c.keys.Undo):
		return c.undo(false)
	case key.Matches(msg, c.keys.Redo):
		return c.undo(true)
	case key.Matches(msg, c.keys.Reload):
		return c.engine.Load()
	case key.Matches(msg, c.keys.Cancel):
		if len(c.bulk) > 0 {
			c.bulk = make(map[string]bool)
			return nil
		}
		return c.ClickEmpty()
	}
	return nil
}

func (c *Controller) handleEditing(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, c.keys.Commit):
		if c.composing {
			return c.forward(msg)
		}
		return c.commit()
	case key.Matches(msg, c.keys.NewChild):
		return tea.Batch(c.commit(), c.createChild())
	case key.Matches(msg, c.keys.Cancel):
		c.discard()
		return nil
	}
	return c.forward(msg)
}

func (c *Controller) handleConfirm(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, c.keys.Confirm):
		doomed := c.doomed
		c.doomed = nil
		c.state = StateSelected
		return c.performDelete(doomed)
	case key.Matches(msg, c.keys.Deny):
		c.doomed = nil
		c.state = StateSelected
	}
	return nil
}

// printable reports whether msg types text: an unmodified rune, space or paste
func printable(msg tea.KeyMsg) bool {
	if msg.Alt {
		return false
	}
	switch msg.Type {
	case tea.KeySpace:
		return true
	case tea.KeyRunes:
		return len(msg.Runes) > 0 && unicode.IsPrint(msg.Runes[0])
	}
	return false
}

func (c *Controller) forward(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	c.input, cmd = c.input.Update(msg)
	return cmd
}

// Gestures

// Select makes ref the selected node, or its nearest visible ancestor when
// ref is folded away. An edit in progress on another node is committed first.
func (c *Controller) Select(ref tree.NodeRef) tea.Cmd {
	t := c.engine.Tree()
	if !t.Contains(ref) {
		return nil
	}
	ref = c.collapse.Surface(t, ref)
	if c.state != StateIdle && c.selected == ref {
		return nil
	}
	var commit tea.Cmd
	if c.state == StateEditing {
		commit = c.commit()
	}
	return tea.Batch(commit, c.selectRef(ref))
}

// DoubleClick selects ref and starts editing its current title
func (c *Controller) DoubleClick(ref tree.NodeRef) tea.Cmd {
	cmd := c.Select(ref)
	if c.selected != ref {
		return cmd
	}
	if c.state != StateEditing {
		c.beginEditing(c.title(ref))
	}
	return cmd
}

// ClickEmpty clears the selection
func (c *Controller) ClickEmpty() tea.Cmd {
	var commit tea.Cmd
	if c.state == StateEditing {
		commit = c.commit()
	}
	c.state = StateIdle
	c.selected = tree.NodeRef{}
	c.fallback = nil
	c.doomed = nil
	c.bulk = make(map[string]bool)
	c.input.Blur()
	c.generation++
	c.focused = ""
	return commit
}

// Blur commits an edit in progress when the input loses focus
func (c *Controller) Blur() tea.Cmd {
	if c.state != StateEditing {
		return nil
	}
	return c.commit()
}

// ToggleBulk marks or unmarks a task for bulk operations
func (c *Controller) ToggleBulk(id string) {
	if _, ok := c.engine.Task(id); !ok {
		return
	}
	if c.bulk[id] {
		delete(c.bulk, id)
		return
	}
	c.bulk[id] = true
}

// ToggleCollapse folds or unfolds id. A selection that ends up inside a
// folded subtree moves up to the nearest node still on screen.
func (c *Controller) ToggleCollapse(id string) tea.Cmd {
	c.collapse.Toggle(id)
	return c.surface()
}

// surface moves a hidden selection to its nearest visible ancestor,
// committing an edit in progress first
func (c *Controller) surface() tea.Cmd {
	if c.state == StateIdle || c.selected.Zero() {
		return nil
	}
	up := c.collapse.Surface(c.engine.Tree(), c.selected)
	if up == c.selected {
		return nil
	}
	var commit tea.Cmd
	if c.state == StateEditing {
		commit = c.commit()
	}
	c.doomed = nil
	return tea.Batch(commit, c.selectRef(up))
}

// Sync repairs the controller after the engine's state changed underneath
// it: a selection that vanished falls back to its parent, then its group,
// then idle. A selection hidden by a collapsed ancestor surfaces.
func (c *Controller) Sync() tea.Cmd {
	t := c.engine.Tree()
	c.collapse.Prune(t)
	for id := range c.bulk {
		if !t.Contains(tree.TaskRef(id)) {
			delete(c.bulk, id)
		}
	}
	if c.selected.Zero() {
		return nil
	}
	if t.Contains(c.selected) {
		return c.surface()
	}
	c.log.WithField("id", c.selected.ID).Debug("selection vanished")
	c.input.SetValue("")
	c.doomed = nil
	for _, ref := range c.fallback {
		if t.Contains(ref) {
			return c.selectRef(c.collapse.Surface(t, ref))
		}
	}
	c.state = StateIdle
	c.selected = tree.NodeRef{}
	c.fallback = nil
	c.generation++
	c.focused = ""
	return nil
}

// selection and focus

func (c *Controller) selectRef(ref tree.NodeRef) tea.Cmd {
	c.state = StateSelected
	c.selected = ref
	c.fallback = c.fallbackFor(ref)
	c.input.SetValue("")
	return tea.Batch(c.input.Focus(), c.acquireFocus())
}

func (c *Controller) fallbackFor(ref tree.NodeRef) []tree.NodeRef {
	t := c.engine.Tree()
	task, ok := t.Task(ref.ID)
	if ref.Kind != tree.KindTask || !ok {
		return nil
	}
	var out []tree.NodeRef
	for _, a := range t.Ancestors(ref.ID) {
		out = append(out, tree.TaskRef(a.ID))
	}
	return append(out, tree.GroupRef(task.GroupID))
}

// acquireFocus starts a new generation and schedules the first attempt
func (c *Controller) acquireFocus() tea.Cmd {
	c.generation++
	c.focused = ""
	return c.schedule(c.generation, c.selected.ID, 1)
}

func (c *Controller) schedule(gen uint64, id string, attempt int) tea.Cmd {
	return tea.Tick(c.opts.FocusDelay, func(time.Time) tea.Msg {
		return FocusAttemptMsg{Generation: gen, ID: id, Attempt: attempt}
	})
}

func (c *Controller) attempt(msg FocusAttemptMsg) tea.Cmd {
	if msg.Generation != c.generation || msg.ID != c.selected.ID {
		return nil
	}
	if c.rendered == nil || c.rendered(msg.ID) {
		c.focused = msg.ID
		return nil
	}
	if msg.Attempt >= c.opts.FocusAttempts {
		c.log.WithFields(logrus.Fields{"id": msg.ID, "attempts": msg.Attempt}).Debug("gave up acquiring focus")
		return nil
	}
	return c.schedule(msg.Generation, msg.ID, msg.Attempt+1)
}

// editing

func (c *Controller) beginEditing(value string) {
	c.state = StateEditing
	c.original = c.title(c.selected)
	c.input.SetValue(value)
	c.input.CursorEnd()
	c.input.Focus()
}

func (c *Controller) title(ref tree.NodeRef) string {
	switch ref.Kind {
	case tree.KindTask:
		t, _ := c.engine.Task(ref.ID)
		return t.Title
	case tree.KindGroup:
		g, _ := c.engine.Group(ref.ID)
		return g.Title
	}
	return ""
}

// commit saves the edited title unless it is blank or unchanged
func (c *Controller) commit() tea.Cmd {
	title := strings.TrimSpace(c.input.Value())
	ref := c.selected
	c.state = StateSelected
	c.composing = false
	c.input.SetValue("")
	if title == "" || title == c.original {
		return nil
	}

	var cmd tea.Cmd
	var err error
	switch ref.Kind {
	case tree.KindTask:
		cmd, err = c.engine.UpdateTask(ref.ID, model.TaskPatch{Title: &title})
	case tree.KindGroup:
		cmd, err = c.engine.UpdateGroupTitle(ref.ID, title)
	}
	if err != nil {
		c.log.WithError(err).WithField("id", ref.ID).Warn("commit title")
	}
	return cmd
}

func (c *Controller) discard() {
	c.state = StateSelected
	c.composing = false
	c.input.SetValue("")
}

// creation

func (c *Controller) createSibling() tea.Cmd {
	switch c.selected.Kind {
	case tree.KindGroup:
		id, cmd := c.engine.CreateGroup(c.opts.GroupPlaceholder, c.selected.ID)
		return tea.Batch(cmd, c.editNew(tree.GroupRef(id)))
	case tree.KindTask:
		t, ok := c.engine.Task(c.selected.ID)
		if !ok {
			return nil
		}
		return c.createTask(engine.NewTask{
			GroupID:      t.GroupID,
			ParentTaskID: t.ParentTaskID,
			Title:        c.opts.TaskPlaceholder,
			After:        t.ID,
		})
	}
	return nil
}

// createGroup adds a group after the selection's group, or last when idle
func (c *Controller) createGroup() tea.Cmd {
	after := ""
	switch c.selected.Kind {
	case tree.KindGroup:
		after = c.selected.ID
	case tree.KindTask:
		if t, ok := c.engine.Task(c.selected.ID); ok {
			after = t.GroupID
		}
	}
	if after == "" || c.state == StateIdle {
		if groups := c.engine.Groups(); len(groups) > 0 {
			after = groups[len(groups)-1].ID
		}
	}
	id, cmd := c.engine.CreateGroup(c.opts.GroupPlaceholder, after)
	return tea.Batch(cmd, c.editNew(tree.GroupRef(id)))
}

func (c *Controller) createChild() tea.Cmd {
	nt := engine.NewTask{Title: c.opts.TaskPlaceholder}
	switch c.selected.Kind {
	case tree.KindGroup:
		nt.GroupID = c.selected.ID
	case tree.KindTask:
		id := c.selected.ID
		nt.ParentTaskID = &id
	default:
		return nil
	}
	return c.createTask(nt)
}

func (c *Controller) createTask(nt engine.NewTask) tea.Cmd {
	id, cmd, err := c.engine.CreateTask(nt)
	if err != nil {
		c.log.WithError(err).Warn("create task")
		c.notice = err.Error()
		return nil
	}
	c.collapse.Reveal(c.engine.Tree(), tree.TaskRef(id))
	return tea.Batch(cmd, c.editNew(tree.TaskRef(id)))
}

// editNew selects a freshly created node and puts it in edit mode with an
// empty input; committing nothing keeps the placeholder title
func (c *Controller) editNew(ref tree.NodeRef) tea.Cmd {
	cmd := c.selectRef(ref)
	c.beginEditing("")
	return cmd
}

// deletion

func (c *Controller) requestDelete() tea.Cmd {
	var targets []tree.NodeRef
	if len(c.bulk) > 0 {
		for _, id := range c.Bulk() {
			targets = append(targets, tree.TaskRef(id))
		}
	} else {
		targets = []tree.NodeRef{c.selected}
	}

	t := c.engine.Tree()
	for _, ref := range targets {
		if t.HasChildren(ref) {
			c.doomed = targets
			c.state = StateConfirmDelete
			return nil
		}
	}
	return c.performDelete(targets)
}

func (c *Controller) performDelete(targets []tree.NodeRef) tea.Cmd {
	if len(targets) == 0 {
		return nil
	}
	doomed := map[string]bool{}
	for _, ref := range targets {
		doomed[ref.ID] = true
	}
	next := c.nextFocus(c.selected, doomed)

	var cmd tea.Cmd
	var err error
	switch {
	case len(targets) > 1:
		ids := make([]string, 0, len(targets))
		for _, ref := range targets {
			ids = append(ids, ref.ID)
		}
		cmd, err = c.engine.DeleteTasks(ids)
	case targets[0].Kind == tree.KindGroup:
		cmd, err = c.engine.DeleteGroup(targets[0].ID)
	default:
		cmd, err = c.engine.DeleteTask(targets[0].ID)
	}
	if err != nil {
		c.log.WithError(err).Warn("delete")
		return nil
	}
	c.bulk = make(map[string]bool)

	if next.Zero() {
		return tea.Batch(cmd, c.ClickEmpty())
	}
	return tea.Batch(cmd, c.selectRef(next))
}

// nextFocus picks where the selection goes when ref is deleted: the previous
// sibling, else the next sibling, else the parent, else the group. ref is kept
// when it survives. Nodes inside a collapsed subtree are never picked.
func (c *Controller) nextFocus(ref tree.NodeRef, doomed map[string]bool) tree.NodeRef {
	t := c.engine.Tree()
	gone := func(id string) bool {
		if doomed[id] {
			return true
		}
		for _, a := range t.Ancestors(id) {
			if doomed[a.ID] {
				return true
			}
		}
		return false
	}
	usable := func(id string) bool {
		return !gone(id) && !c.collapse.Hidden(t, tree.TaskRef(id))
	}
	if !doomed[ref.ID] && (ref.Kind == tree.KindGroup || !gone(ref.ID)) {
		return c.collapse.Surface(t, ref)
	}

	if ref.Kind == tree.KindGroup {
		groups := t.Groups()
		idx := -1
		for i, g := range groups {
			if g.ID == ref.ID {
				idx = i
			}
		}
		if idx > 0 {
			return tree.GroupRef(groups[idx-1].ID)
		}
		if idx >= 0 && idx+1 < len(groups) {
			return tree.GroupRef(groups[idx+1].ID)
		}
		return tree.NodeRef{}
	}

	task, ok := t.Task(ref.ID)
	if !ok {
		return tree.NodeRef{}
	}
	siblings := t.SiblingsOf(ref.ID)
	idx := 0
	for i, s := range siblings {
		if s.ID == ref.ID {
			idx = i
		}
	}
	for i := idx - 1; i >= 0; i-- {
		if usable(siblings[i].ID) {
			return tree.TaskRef(siblings[i].ID)
		}
	}
	for i := idx + 1; i < len(siblings); i++ {
		if usable(siblings[i].ID) {
			return tree.TaskRef(siblings[i].ID)
		}
	}
	for _, a := range t.Ancestors(ref.ID) {
		if usable(a.ID) {
			return tree.TaskRef(a.ID)
		}
	}
	return tree.GroupRef(task.GroupID)
}

// navigation, always in tree order and never into a collapsed subtree

func (c *Controller) moveSibling(delta int) tea.Cmd {
	t := c.engine.Tree()
	var ids []string
	if c.selected.Kind == tree.KindGroup {
		for _, g := range t.Groups() {
			ids = append(ids, g.ID)
		}
	} else {
		for _, s := range t.SiblingsOf(c.selected.ID) {
			ids = append(ids, s.ID)
		}
	}
	for i, id := range ids {
		if id != c.selected.ID {
			continue
		}
		for j := i + delta; j >= 0 && j < len(ids); j += delta {
			next := tree.NodeRef{Kind: c.selected.Kind, ID: ids[j]}
			if !c.collapse.Hidden(t, next) {
				return c.selectRef(next)
			}
		}
		return nil
	}
	return nil
}

func (c *Controller) moveParent() tea.Cmd {
	if c.selected.Kind != tree.KindTask {
		return nil
	}
	parent, ok := c.engine.Tree().Parent(c.selected.ID)
	if !ok {
		return nil
	}
	return c.selectRef(parent)
}

func (c *Controller) moveChild() tea.Cmd {
	if c.collapse.IsCollapsed(c.selected.ID) {
		return nil
	}
	children := c.engine.Tree().ChildrenOfRef(c.selected)
	if len(children) == 0 {
		return nil
	}
	return c.selectRef(tree.TaskRef(children[0].ID))
}

// task actions

func (c *Controller) targets() []string {
	if len(c.bulk) > 0 {
		return c.Bulk()
	}
	if c.selected.Kind == tree.KindTask {
		return []string{c.selected.ID}
	}
	return nil
}

func (c *Controller) toggleDone() tea.Cmd {
	var cmds []tea.Cmd
	for _, id := range c.targets() {
		t, ok := c.engine.Task(id)
		if !ok {
			continue
		}
		status := t.Status.Toggle()
		cmd, err := c.engine.UpdateTask(id, model.TaskPatch{Status: &status})
		if err != nil {
			c.log.WithError(err).WithField("id", id).Warn("toggle done")
			continue
		}
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

func (c *Controller) cyclePriority() tea.Cmd {
	if c.selected.Kind != tree.KindTask {
		return nil
	}
	t, ok := c.engine.Task(c.selected.ID)
	if !ok {
		return nil
	}
	var patch model.TaskPatch
	if next := model.NextPriority(t.Priority); next == nil {
		patch.ClearPriority = true
	} else {
		patch.Priority = next
	}
	cmd, err := c.engine.UpdateTask(t.ID, patch)
	if err != nil {
		c.log.WithError(err).Warn("cycle priority")
	}
	return cmd
}

func (c *Controller) undo(redo bool) tea.Cmd {
	var cmd tea.Cmd
	var err error
	if redo {
		cmd, err = c.engine.Redo()
	} else {
		cmd, err = c.engine.Undo()
	}
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrNothingToUndo), errors.Is(err, engine.ErrNothingToRedo):
		default:
			c.log.WithError(err).Debug("history")
		}
		c.notice = err.Error()
		return nil
	}
	return tea.Batch(cmd, c.Sync())
}

// yank copies the selected subtree to the clipboard as an indented outline
func (c *Controller) yank() {
	text := Outline(c.engine.Tree(), c.selected)
	if text == "" {
		return
	}
	if err := c.opts.Clipboard(text); err != nil {
		c.log.WithError(err).Warn("copy to clipboard")
		c.notice = "clipboard unavailable"
		return
	}
	c.notice = "copied"
}

// Outline renders ref and everything below it as "- title" lines indented
// two spaces per level. Done tasks are marked with [x].
func Outline(t *tree.Tree, ref tree.NodeRef) string {
	var b strings.Builder
	line := func(depth int, task model.Task) {
		b.WriteString(strings.Repeat("  ", depth))
		b.WriteString("- ")
		if task.IsDone() {
			b.WriteString("[x] ")
		}
		b.WriteString(task.Title)
		b.WriteString("\n")
	}
	switch ref.Kind {
	case tree.KindGroup:
		g, ok := t.Group(ref.ID)
		if !ok {
			return ""
		}
		b.WriteString(g.Title + "\n")
		for _, task := range t.GroupTasks(ref.ID) {
			line(t.Depth(task.ID)+1, task)
		}
	case tree.KindTask:
		base := t.Depth(ref.ID)
		for _, task := range t.Subtree(ref.ID) {
			line(t.Depth(task.ID)-base, task)
		}
	}
	return b.String()
}
