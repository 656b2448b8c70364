package ui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/sirupsen/logrus"

	"github.com/dori/mindmap/internal/app"
	"github.com/dori/mindmap/internal/collapse"
	"github.com/dori/mindmap/internal/config"
	"github.com/dori/mindmap/internal/drag"
	"github.com/dori/mindmap/internal/engine"
	"github.com/dori/mindmap/internal/focus"
	"github.com/dori/mindmap/internal/layout"
	"github.com/dori/mindmap/internal/notify"
	"github.com/dori/mindmap/internal/tree"
	"github.com/dori/mindmap/internal/ui/theme"
)

const (
	headerHeight      = 1
	footerHeight      = 2
	doubleClickWindow = 400 * time.Millisecond
)

// Deps are the collaborators of a RootModel
type Deps struct {
	Engine       *engine.Engine
	Focus        focus.Options
	Notifier     *notify.Notifier
	Logger       *logrus.Entry
	ProjectTitle string
	Theme        string
	SaveTheme    func(name string) error // remembers the theme cycled to; optional
	Now          func() time.Time        // for double clicks, defaults to time.Now
	// QuitTimeout bounds the wait for saves still running at quit; 10s if zero
	QuitTimeout time.Duration
}

// RootModel is the main application model: one outline of one project
type RootModel struct {
	engine   *engine.Engine
	focus    *focus.Controller
	drag     *drag.Controller
	collapse *collapse.Set
	layout   layout.Engine
	notifier *notify.Notifier
	log      *logrus.Entry
	keys     KeyMap
	help     help.Model
	now      func() time.Time
	save     func(string) error
	quitWait time.Duration

	projectTitle string

	width       int
	height      int
	scroll      int
	helpVisible bool
	diverged    int

	// Status message
	statusMsg string
	errorMsg  string

	scene *scene
	mouse *pointer
}

// scene is the last computed layout, in content coordinates
type scene struct {
	nodes []layout.Node
	boxes map[string]layout.Rect
	rows  int
}

// pointer tracks the left button between press and release
type pointer struct {
	pressed   string
	at        layout.Point
	moved     bool
	lastClick string
	lastAt    time.Time
}

// New builds the root model from a running application
func New(a *app.App) RootModel {
	return NewRootModel(Deps{
		Engine:       a.Engine,
		Focus:        a.FocusOptions(),
		Notifier:     a.Notifier,
		Logger:       a.Logger("ui"),
		ProjectTitle: a.Project.Name,
		Theme:        a.Config.GetString(config.KeyTheme),
		SaveTheme: func(name string) error {
			return a.Config.Save(config.KeyTheme, name)
		},
		QuitTimeout: a.Config.GetDuration(config.KeyStoreTimeout),
	})
}

// NewRootModel creates a new root model
func NewRootModel(d Deps) RootModel {
	log := d.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = logrus.NewEntry(l)
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}
	quitWait := d.QuitTimeout
	if quitWait <= 0 {
		quitWait = 10 * time.Second
	}
	if t, ok := theme.ByName(d.Theme); ok {
		theme.SetTheme(t)
	}

	set := collapse.New()
	h := help.New()
	h.ShowAll = false

	m := RootModel{
		engine:       d.Engine,
		focus:        focus.New(d.Engine, set, d.Focus),
		drag:         drag.New(d.Engine, d.Logger),
		collapse:     set,
		layout:       layout.Outline{Indent: 2},
		notifier:     d.Notifier,
		log:          log,
		keys:         DefaultKeyMap(),
		help:         h,
		now:          now,
		save:         d.SaveTheme,
		quitWait:     quitWait,
		projectTitle: d.ProjectTitle,
		scene:        &scene{},
		mouse:        &pointer{},
	}
	sc := m.scene
	m.focus.SetRendered(func(id string) bool {
		_, ok := sc.boxes[id]
		return ok
	})
	return m
}

// Init loads the project
func (m RootModel) Init() tea.Cmd {
	return m.engine.Load()
}

// Update handles messages
func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.after()
		return m, nil

	case tea.KeyMsg:
		m.statusMsg = ""
		m.errorMsg = ""
		return m.handleKey(msg)

	case tea.MouseMsg:
		cmd := m.handleMouse(msg)
		m.after()
		return m, cmd

	case focus.FocusAttemptMsg:
		return m, m.focus.Update(msg)

	case tea.BlurMsg:
		// the terminal lost focus
		cmd := m.focus.Blur()
		m.after()
		return m, cmd

	case themeSavedMsg:
		if msg.err != nil {
			m.errorMsg = fmt.Sprintf("save theme %s: %v", msg.name, msg.err)
		} else {
			m.statusMsg = "Theme: " + msg.name
		}
		return m, nil
	}

	if out, ok := m.engine.Reconcile(msg); ok {
		cmd := m.outcome(out)
		sync := m.focus.Sync()
		m.after()
		return m, tea.Batch(cmd, sync)
	}
	return m, nil
}

// themeSavedMsg reports the config write that follows a theme switch
type themeSavedMsg struct {
	name string
	err  error
}

// drainThenQuit waits for background saves, bounded by quitWait, and quits
func (m RootModel) drainThenQuit() tea.Cmd {
	eng, log, wait := m.engine, m.log, m.quitWait
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), wait)
		defer cancel()
		if err := eng.Drain(ctx); err != nil {
			log.WithError(err).Warn("quit before every save finished")
		}
		return tea.Quit()
	}
}

func (m RootModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		// an edit in progress is saved before the program exits
		m.engine.Flush(m.focus.Blur())
		m.statusMsg = "Saving…"
		return m, m.drainThenQuit()

	case key.Matches(msg, m.keys.Help):
		m.helpVisible = !m.helpVisible
		return m, nil

	case key.Matches(msg, m.keys.ThemeCycle):
		next := theme.Next(theme.Current.Theme.Name)
		theme.SetTheme(next)
		save := m.save
		return m, func() tea.Msg {
			msg := themeSavedMsg{name: next.Name}
			if save != nil {
				msg.err = save(next.Name)
			}
			return msg
		}

	case key.Matches(msg, m.keys.ScrollUp):
		m.scrollBy(-m.contentHeight())
		return m, nil

	case key.Matches(msg, m.keys.ScrollDown):
		m.scrollBy(m.contentHeight())
		return m, nil
	}

	if msg.Type == tea.KeyEsc {
		if m.drag.Active() {
			m.drag.Cancel()
			return m, nil
		}
		if m.helpVisible {
			m.helpVisible = false
			return m, nil
		}
	}

	cmd := m.focus.Update(msg)
	m.after()
	return m, cmd
}

// outcome reports one reconciled background result to the user
func (m *RootModel) outcome(out engine.Outcome) tea.Cmd {
	log := m.log.WithFields(logrus.Fields{"op": out.Op.String(), "id": out.ID})
	var cmds []tea.Cmd

	switch {
	case out.RolledBack:
		log.WithError(out.Err).Warn("creation reverted")
		m.errorMsg = fmt.Sprintf("%s failed and was reverted: %v", out.Op, out.Err)
		cmds = append(cmds, m.notify(func(n *notify.Notifier) error {
			return n.Reverted(strings.ToUpper(out.Op.String()[:1])+out.Op.String()[1:], out.Err)
		}))
	case out.Err != nil:
		log.WithError(out.Err).Warn("background call failed")
		m.errorMsg = fmt.Sprintf("%s: %v", out.Op, out.Err)
	}

	d := len(m.engine.Diverged())
	if d > m.diverged {
		cmds = append(cmds, m.notify(func(n *notify.Notifier) error {
			return n.Diverged(d)
		}))
	}
	m.diverged = d
	return tea.Batch(cmds...)
}

// notify runs a desktop notification off the event loop
func (m *RootModel) notify(send func(*notify.Notifier) error) tea.Cmd {
	n, log := m.notifier, m.log
	if n == nil || !n.Enabled() {
		return nil
	}
	return func() tea.Msg {
		if err := send(n); err != nil {
			log.WithError(err).Debug("notification failed")
		}
		return nil
	}
}

// after refreshes the layout and keeps the selection on screen
func (m *RootModel) after() {
	m.relayout()
	if sel := m.focus.Selected(); !sel.Zero() {
		m.ensureVisible(sel.ID)
	}
	if n := m.focus.Notice(); n != "" {
		m.statusMsg = n
	}
}

func (m *RootModel) relayout() {
	nodes, edges := layout.Graph(m.engine.Tree(), m.collapse, m.engine.ProjectID(), m.projectTitle)
	pos := m.layout.Layout(nodes, edges)
	m.scene.nodes = nodes
	m.scene.boxes = layout.Boxes(nodes, pos)
	m.scene.rows = 0
	for _, b := range m.scene.boxes {
		if b.Y+b.H > m.scene.rows {
			m.scene.rows = b.Y + b.H
		}
	}
	m.scrollBy(0)
}

func (m RootModel) contentHeight() int {
	h := m.height - headerHeight - footerHeight
	if h < 1 {
		return 1
	}
	return h
}

func (m *RootModel) scrollBy(delta int) {
	m.scroll += delta
	if limit := m.scene.rows - m.contentHeight(); m.scroll > limit {
		m.scroll = limit
	}
	if m.scroll < 0 {
		m.scroll = 0
	}
}

func (m *RootModel) ensureVisible(id string) {
	b, ok := m.scene.boxes[id]
	if !ok {
		return
	}
	if b.Y < m.scroll {
		m.scroll = b.Y
	}
	if h := m.contentHeight(); b.Y >= m.scroll+h {
		m.scroll = b.Y - h + 1
	}
}

// screenBoxes returns the laid out boxes in terminal coordinates
func (m RootModel) screenBoxes() map[string]layout.Rect {
	out := make(map[string]layout.Rect, len(m.scene.boxes))
	for id, b := range m.scene.boxes {
		out[id] = b.Offset(0, headerHeight-m.scroll)
	}
	return out
}

// Mouse gestures: a press on a task starts a potential drag, motion moves it,
// and a release either drops it or counts as a click.
func (m *RootModel) handleMouse(msg tea.MouseMsg) tea.Cmd {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.scrollBy(-3)
		return nil
	case tea.MouseButtonWheelDown:
		m.scrollBy(3)
		return nil
	}

	p := layout.Point{X: msg.X, Y: msg.Y}
	boxes := m.screenBoxes()

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return nil
		}
		id, _ := layout.Hit(boxes, p)
		*m.mouse = pointer{pressed: id, at: p, lastClick: m.mouse.lastClick, lastAt: m.mouse.lastAt}
		if ref, ok := m.engine.Tree().Lookup(id); ok && ref.Kind == tree.KindTask && !m.focus.IsEditing(id) {
			m.drag.Begin(ref, boxes[id], p)
		}
		return nil

	case tea.MouseActionMotion:
		if m.drag.Active() {
			m.mouse.moved = true
			m.drag.Move(p, boxes)
		}
		return nil

	case tea.MouseActionRelease:
		if m.drag.Active() && m.mouse.moved {
			ok, cmd := m.drag.Drop()
			if !ok {
				m.statusMsg = "cannot move there"
			}
			return cmd
		}
		m.drag.Cancel()
		return m.click(m.mouse.pressed, boxes)
	}
	return nil
}

func (m *RootModel) click(id string, boxes map[string]layout.Rect) tea.Cmd {
	t := m.engine.Tree()
	ref, ok := t.Lookup(id)
	if !ok {
		m.mouse.lastClick = ""
		return m.focus.ClickEmpty()
	}

	// the marker column toggles collapse
	if m.mouse.at.X == boxes[id].X && t.HasChildren(ref) {
		return m.focus.ToggleCollapse(id)
	}

	now := m.now()
	if m.mouse.lastClick == id && now.Sub(m.mouse.lastAt) <= doubleClickWindow {
		m.mouse.lastClick = ""
		return m.focus.DoubleClick(ref)
	}
	m.mouse.lastClick = id
	m.mouse.lastAt = now
	if m.focus.IsEditing(id) {
		return nil
	}
	return m.focus.Select(ref)
}

// View renders the UI
func (m RootModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	height := m.contentHeight()
	var content string
	if m.helpVisible {
		h := m.themedHelp()
		h.ShowAll = true
		content = h.View(m.helpKeys())
	} else {
		content = m.renderOutline(height)
	}

	contentLines := strings.Count(content, "\n") + 1
	if contentLines < height {
		content += strings.Repeat("\n", height-contentLines)
	}

	return strings.Join([]string{m.renderHeader(), content, m.renderFooter()}, "\n")
}

// themedHelp returns the help model styled with the current theme
func (m RootModel) themedHelp() help.Model {
	styles := theme.Current.Styles
	h := m.help
	h.Styles.ShortKey = styles.HelpKey
	h.Styles.ShortDesc = styles.HelpDesc
	h.Styles.ShortSeparator = styles.HelpSeparator
	h.Styles.FullKey = styles.HelpKey
	h.Styles.FullDesc = styles.HelpDesc
	h.Styles.FullSeparator = styles.HelpSeparator
	h.Styles.Ellipsis = styles.HelpSeparator
	return h
}

func (m RootModel) helpKeys() helpKeys {
	return helpKeys{global: m.keys, outline: m.focus.Keys(), state: m.focus.State()}
}

// renderHeader renders the header bar
func (m RootModel) renderHeader() string {
	styles := theme.Current.Styles
	t := theme.Current.Theme

	title := styles.Header.Render("mindmap")
	tr := m.engine.Tree()
	info := lipgloss.NewStyle().Foreground(t.Subtle).Padding(0, 1).
		Render(fmt.Sprintf("%d groups · %d tasks", len(tr.Groups()), tr.TaskCount()))
	themeIndicator := lipgloss.NewStyle().Foreground(t.Subtle).Padding(0, 1).
		Render(fmt.Sprintf("theme: %s", t.Name))

	leftSide := lipgloss.JoinHorizontal(lipgloss.Center, title, info)
	gap := m.width - lipgloss.Width(leftSide) - lipgloss.Width(themeIndicator)
	if gap < 0 {
		gap = 0
	}
	return ansi.Truncate(leftSide+strings.Repeat(" ", gap)+themeIndicator, m.width, "")
}

// renderFooter renders the status line and key hints
func (m RootModel) renderFooter() string {
	styles := theme.Current.Styles

	var status string
	switch {
	case m.focus.State() == focus.StateConfirmDelete:
		status = styles.Prompt.Render(fmt.Sprintf(
			"Delete %d item(s) and everything below them? (y/n)", len(m.focus.PendingDelete())))
	case m.errorMsg != "":
		status = styles.Error.Render(m.errorMsg)
	case m.statusMsg != "":
		status = styles.Status.Render(m.statusMsg)
	case m.diverged > 0:
		status = styles.Error.Render(fmt.Sprintf("%d unsaved change(s), ctrl+l reloads", m.diverged))
	}

	hints := styles.Footer.Render(m.themedHelp().View(m.helpKeys()))
	return ansi.Truncate(status, m.width, "…") + "\n" + ansi.Truncate(hints, m.width, "…")
}

// renderOutline draws one row per laid out node, then the dragged task on top
func (m RootModel) renderOutline(height int) string {
	lines := make([]string, height)
	t := m.engine.Tree()
	diverged := make(map[string]bool)
	for _, id := range m.engine.Diverged() {
		diverged[id] = true
	}

	for _, n := range m.scene.nodes {
		b, ok := m.scene.boxes[n.ID]
		if !ok {
			continue
		}
		y := b.Y - m.scroll
		if y < 0 || y >= height {
			continue
		}
		lines[y] = strings.Repeat(" ", b.X) + m.renderNode(t, n, diverged[n.ID])
	}

	if id, r, ok := m.drag.Override(); ok {
		if task, found := t.Task(id); found {
			y := r.Y - headerHeight
			if y >= 0 && y < height {
				lines[y] = overlay(lines[y], r.X, theme.Current.Styles.Dragged.Render("• "+task.Title))
			}
		}
	}

	for i := range lines {
		lines[i] = ansi.Truncate(lines[i], m.width, "…")
	}
	return strings.Join(lines, "\n")
}

// overlay draws s over line starting at cell x
func overlay(line string, x int, s string) string {
	left := ansi.Truncate(line, x, "")
	if w := ansi.StringWidth(left); w < x {
		left += strings.Repeat(" ", x-w)
	}
	return left + s
}

func (m RootModel) renderNode(t *tree.Tree, n layout.Node, diverged bool) string {
	styles := theme.Current.Styles
	th := theme.Current.Theme

	var ref tree.NodeRef
	var body string
	switch n.Kind {
	case tree.KindProject:
		return styles.Project.Render(m.projectTitle)
	case tree.KindGroup:
		g, _ := t.Group(n.ID)
		ref = tree.GroupRef(n.ID)
		body = styles.Group.Render(g.Title)
	case tree.KindTask:
		task, _ := t.Task(n.ID)
		ref = tree.TaskRef(n.ID)
		if task.IsDone() {
			body = styles.TaskDone.Render("✓ " + task.Title)
		} else {
			body = styles.TaskNormal.Render(task.Title)
		}
		if task.Priority != nil {
			body += " " + lipgloss.NewStyle().Foreground(th.PriorityColor(*task.Priority)).
				Render(fmt.Sprintf("!%d", *task.Priority))
		}
		if task.ScheduledAt != nil {
			body += " " + styles.Marker.Render(task.ScheduledAt.Format("Jan 2"))
		}
	}

	id := n.ID
	switch {
	case m.focus.IsEditing(id):
		input := m.focus.Input()
		body = styles.Input.Render(input.View())
	case m.drag.Active() && m.drag.Dragged() == id:
		body = styles.Marker.Render(ansi.Strip(body))
	case m.drag.IsDropTarget(id):
		if m.drag.TargetValid() {
			body = styles.DropTarget.Render(ansi.Strip(body))
		} else {
			body = styles.DropInvalid.Render(ansi.Strip(body))
		}
	case m.focus.IsSelected(id):
		body = styles.TaskSelected.Render(ansi.Strip(body))
	}

	marker := "•"
	if n.Kind == tree.KindGroup {
		marker = "·"
	}
	if t.HasChildren(ref) {
		marker = "▾"
		if m.collapse.IsCollapsed(id) {
			marker = "▸"
		}
	}
	row := styles.Marker.Render(marker) + " "
	if m.focus.InBulk(id) {
		row = styles.Marked.Render("●") + " "
	}
	row += body
	if m.engine.IsCreating(id) {
		row += styles.Marker.Render(" …")
	}
	if diverged {
		row += styles.Error.Render(" !")
	}
	return row
}
