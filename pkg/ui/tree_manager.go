// tree_manager.go - accordion view of classes with lazily loaded sections
package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/classdesk/pkg/model"
)

// TreeState is the class-list load state of a view.
type TreeState int

const (
	TreeLoading TreeState = iota // class list request in flight
	TreeReady                    // classes loaded
	TreeFailed                   // load failed; children blocked until R
)

func (s TreeState) String() string {
	switch s {
	case TreeReady:
		return "ready"
	case TreeFailed:
		return "failed"
	default:
		return "loading"
	}
}

// TreeManager loads the class list and renders one ClassNode per class.
// It owns class-level fields only and never reads section data.
type TreeManager struct {
	token Token
	cmds  ResourceCmds
	theme Theme

	state   TreeState
	loadErr string
	classes []model.Class
	nodes   map[int64]*ClassNode // keyed by class_id
	byToken map[Token]*ClassNode

	visible []*ClassNode // filtered, in class order
	cursor  int          // index into visible

	filterInput textinput.Model
	filtering   bool

	expandOnStart bool
	width         int
	height        int
	offset        int // first rendered line
}

// NewTreeManager creates an empty tree. Call Init to load the classes.
func NewTreeManager(cmds ResourceCmds, theme Theme) *TreeManager {
	ti := textinput.New()
	ti.Placeholder = "filter by name or code"
	ti.CharLimit = 50
	ti.Width = 30

	return &TreeManager{
		token:       newToken(),
		cmds:        cmds,
		theme:       theme,
		nodes:       make(map[int64]*ClassNode),
		byToken:     make(map[Token]*ClassNode),
		filterInput: ti,
	}
}

// SetExpandOnStart makes the first successful load expand every class.
func (t *TreeManager) SetExpandOnStart(v bool) {
	t.expandOnStart = v
}

// SetSize updates the available dimensions.
func (t *TreeManager) SetSize(width, height int) {
	t.width = width
	t.height = height
}

// Init issues the class list load.
func (t *TreeManager) Init() tea.Cmd {
	return t.load()
}

func (t *TreeManager) load() tea.Cmd {
	t.state = TreeLoading
	t.loadErr = ""
	return t.cmds.ListClasses(t.token)
}

// Reload re-lists the classes. It is refused while any node has a request
// in flight.
func (t *TreeManager) Reload() tea.Cmd {
	for _, n := range t.nodes {
		if n.Busy() {
			if cur := t.current(); cur != nil {
				cur.notice = "wait for the pending request to finish"
			}
			return nil
		}
	}
	return t.load()
}

// State returns the class list load state.
func (t *TreeManager) State() TreeState { return t.state }

// LoadErr returns the class list failure message.
func (t *TreeManager) LoadErr() string { return t.loadErr }

// Classes returns the loaded classes in display order.
func (t *TreeManager) Classes() []model.Class {
	return append([]model.Class(nil), t.classes...)
}

// Node returns the node for classID, or nil.
func (t *TreeManager) Node(classID int64) *ClassNode {
	return t.nodes[classID]
}

// VisibleClasses returns the classes passing the filter.
func (t *TreeManager) VisibleClasses() []model.Class {
	out := make([]model.Class, len(t.visible))
	for i, n := range t.visible {
		out[i] = n.Class()
	}
	return out
}

// Filter returns the current filter text.
func (t *TreeManager) Filter() string {
	return t.filterInput.Value()
}

// SetFilter applies a filter without going through the input.
func (t *TreeManager) SetFilter(q string) {
	t.filterInput.SetValue(q)
	t.applyFilter()
}

// Owns reports whether the result addressed to token belongs to this view.
func (t *TreeManager) Owns(token Token) bool {
	if token == t.token {
		return true
	}
	_, ok := t.byToken[token]
	return ok
}

// Capturing reports whether the filter or a node input has the keyboard.
func (t *TreeManager) Capturing() bool {
	if t.filtering {
		return true
	}
	if n := t.current(); n != nil {
		return n.Capturing()
	}
	return false
}

// Update handles results and keys for the tree.
func (t *TreeManager) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case ResourceResultMsg:
		return t.handleResult(msg)
	case tea.KeyMsg:
		return t.handleKey(msg)
	}
	return nil
}

func (t *TreeManager) handleResult(msg ResourceResultMsg) tea.Cmd {
	if msg.Owner == t.token {
		if msg.Operation == OpListClasses {
			return t.applyClasses(msg)
		}
		return nil
	}
	node, ok := t.byToken[msg.Owner]
	if !ok {
		return nil
	}
	cmd, ev := node.HandleResult(msg)
	switch ev.Kind {
	case ClassRenamed:
		for i := range t.classes {
			if t.classes[i].ID == ev.Class.ID {
				t.classes[i].Name = ev.Class.Name
			}
		}
		t.applyFilter()
	case ClassDeleted:
		t.removeClass(ev.Class.ID)
	}
	return cmd
}

// applyClasses installs a loaded class list. Nodes of classes that survive a
// reload are kept; the rest are dropped along with their caches.
func (t *TreeManager) applyClasses(msg ResourceResultMsg) tea.Cmd {
	if msg.Err != nil {
		t.state = TreeFailed
		t.loadErr = inlineError(msg.Err)
		return nil
	}
	first := t.classes == nil
	t.state = TreeReady
	t.classes = msg.Classes
	if t.classes == nil {
		t.classes = []model.Class{}
	}

	nodes := make(map[int64]*ClassNode, len(t.classes))
	byToken := make(map[Token]*ClassNode, len(t.classes))
	for _, cls := range t.classes {
		n, ok := t.nodes[cls.ID]
		if !ok {
			n = NewClassNode(cls, t.cmds)
		}
		n.class = cls
		nodes[cls.ID] = n
		byToken[n.Token()] = n
	}
	t.nodes = nodes
	t.byToken = byToken
	t.applyFilter()

	if first && t.expandOnStart {
		return t.ExpandAll()
	}
	return nil
}

// removeClass drops a deleted class and keeps the cursor on the row that
// took its place.
func (t *TreeManager) removeClass(classID int64) {
	row := -1
	if n := t.current(); n != nil && n.Class().ID == classID {
		row = t.cursor
	}
	for i, cls := range t.classes {
		if cls.ID == classID {
			t.classes = append(t.classes[:i], t.classes[i+1:]...)
			break
		}
	}
	if n, ok := t.nodes[classID]; ok {
		delete(t.byToken, n.Token())
		delete(t.nodes, classID)
	}
	t.applyFilter()
	if row < 0 {
		return
	}
	if row >= len(t.visible) {
		row = len(t.visible) - 1
	}
	if row > 0 {
		t.cursor = row
	}
}

// applyFilter rebuilds the visible node list, keeping the selected class
// selected when it still passes.
func (t *TreeManager) applyFilter() {
	var selected int64
	if n := t.current(); n != nil {
		selected = n.Class().ID
	}
	q := t.filterInput.Value()
	t.visible = t.visible[:0]
	for _, cls := range t.classes {
		if cls.Matches(q) {
			t.visible = append(t.visible, t.nodes[cls.ID])
		}
	}
	t.cursor = 0
	for i, n := range t.visible {
		if n.Class().ID == selected {
			t.cursor = i
			break
		}
	}
}

func (t *TreeManager) current() *ClassNode {
	if t.cursor >= 0 && t.cursor < len(t.visible) {
		return t.visible[t.cursor]
	}
	return nil
}

// Focused returns the node under the cursor, or nil.
func (t *TreeManager) Focused() *ClassNode {
	return t.current()
}

func (t *TreeManager) handleKey(msg tea.KeyMsg) tea.Cmd {
	if t.filtering {
		return t.updateFiltering(msg)
	}
	if t.state != TreeReady {
		if msg.String() == "R" && t.state == TreeFailed {
			return t.load()
		}
		return nil
	}

	node := t.current()
	if node != nil && node.Capturing() {
		cmd, _ := node.HandleKey(msg)
		return cmd
	}

	switch msg.String() {
	case "/":
		t.filtering = true
		return t.filterInput.Focus()
	case "R":
		return t.Reload()
	case "j", "down":
		t.MoveDown()
		return nil
	case "k", "up":
		t.MoveUp()
		return nil
	case "g", "home":
		t.JumpToTop()
		return nil
	case "G", "end":
		t.JumpToBottom()
		return nil
	case "E":
		return t.ExpandAll()
	case "C":
		t.CollapseAll()
		return nil
	}
	if node != nil {
		cmd, _ := node.HandleKey(msg)
		return cmd
	}
	return nil
}

func (t *TreeManager) updateFiltering(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		t.filtering = false
		t.filterInput.SetValue("")
		t.filterInput.Blur()
		t.applyFilter()
		return nil
	case "enter":
		t.filtering = false
		t.filterInput.Blur()
		return nil
	}
	var cmd tea.Cmd
	t.filterInput, cmd = t.filterInput.Update(msg)
	t.applyFilter()
	return cmd
}

// MoveDown moves to the next row, crossing into the next class at the end of
// the focused one.
func (t *TreeManager) MoveDown() {
	n := t.current()
	if n == nil {
		return
	}
	if n.MoveDown() {
		return
	}
	if t.cursor < len(t.visible)-1 {
		t.cursor++
		t.visible[t.cursor].CursorToTop()
	}
}

// MoveUp moves to the previous row, landing on the last row of the previous
// class when leaving a class row.
func (t *TreeManager) MoveUp() {
	n := t.current()
	if n == nil {
		return
	}
	if n.MoveUp() {
		return
	}
	if t.cursor > 0 {
		t.cursor--
		t.visible[t.cursor].CursorToBottom()
	}
}

// JumpToTop selects the first class row.
func (t *TreeManager) JumpToTop() {
	t.cursor = 0
	if n := t.current(); n != nil {
		n.CursorToTop()
	}
}

// JumpToBottom selects the last row of the last class.
func (t *TreeManager) JumpToBottom() {
	if len(t.visible) == 0 {
		return
	}
	t.cursor = len(t.visible) - 1
	t.visible[t.cursor].CursorToBottom()
}

// SelectClass moves the cursor to the class row of classID.
func (t *TreeManager) SelectClass(classID int64) bool {
	for i, n := range t.visible {
		if n.Class().ID == classID {
			t.cursor = i
			n.CursorToTop()
			return true
		}
	}
	return false
}

// ExpandAll expands every visible collapsed class. Each node fetches its own
// sections.
func (t *TreeManager) ExpandAll() tea.Cmd {
	var cmds []tea.Cmd
	for _, n := range t.visible {
		if cmd := n.Expand(); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return tea.Batch(cmds...)
}

// CollapseAll collapses every visible class that is not mid-write.
func (t *TreeManager) CollapseAll() {
	for _, n := range t.visible {
		n.Collapse()
	}
}

// Selection describes the id under the cursor, for copying.
type Selection struct {
	Field string // "class_id" or "section_id"
	ID    int64
	Label string
}

// Selected returns the row under the cursor.
func (t *TreeManager) Selected() (Selection, bool) {
	n := t.current()
	if n == nil {
		return Selection{}, false
	}
	return nodeSelection(n), true
}

func nodeSelection(n *ClassNode) Selection {
	if s := n.SelectedSection(); s != nil {
		return Selection{Field: "section_id", ID: s.Section.ID, Label: s.Section.Name}
	}
	return Selection{Field: "class_id", ID: n.Class().ID, Label: n.Class().Name}
}

// View renders the tree. spin is the current spinner frame.
func (t *TreeManager) View(spin string) string {
	switch t.state {
	case TreeLoading:
		return t.theme.HintStyle().Render(spin + " loading classes…")
	case TreeFailed:
		return t.renderFailed()
	}

	var header []string
	if t.filtering || t.filterInput.Value() != "" {
		r := t.theme.Renderer
		label := r.NewStyle().Foreground(t.theme.Primary).Bold(true).Render("/")
		header = append(header, label+" "+t.filterInput.View())
	}

	if len(t.classes) == 0 {
		return strings.Join(append(header, t.renderEmptyState()), "\n")
	}
	if len(t.visible) == 0 {
		return strings.Join(append(header, t.theme.HintStyle().Render("No classes match the filter. Esc clears it.")), "\n")
	}

	var lines []string
	selected := 0
	for i, n := range t.visible {
		rc := rowContext{theme: t.theme, width: t.width, spin: spin}
		nodeLines, sel := n.Lines(rc, i == t.cursor)
		if sel >= 0 {
			selected = len(lines) + sel
		}
		lines = append(lines, nodeLines...)
	}

	height := t.height - len(header)
	if height <= 0 {
		height = len(lines)
	}
	start, end := t.visibleRange(len(lines), selected, height)
	return strings.Join(append(header, lines[start:end]...), "\n")
}

// visibleRange keeps the selected line inside a window of height lines.
func (t *TreeManager) visibleRange(total, selected, height int) (start, end int) {
	if selected < t.offset {
		t.offset = selected
	}
	if selected >= t.offset+height {
		t.offset = selected - height + 1
	}
	if t.offset > total-height {
		t.offset = total - height
	}
	if t.offset < 0 {
		t.offset = 0
	}
	end = t.offset + height
	if end > total {
		end = total
	}
	return t.offset, end
}

func (t *TreeManager) renderFailed() string {
	r := t.theme.Renderer
	var sb strings.Builder
	sb.WriteString(r.NewStyle().Foreground(t.theme.Primary).Bold(true).Render("Classes"))
	sb.WriteString("\n\n")
	sb.WriteString(t.theme.ErrorStyle().Render("Couldn't load classes: " + t.loadErr))
	sb.WriteString("\n\n")
	sb.WriteString(t.theme.HintStyle().Render("Press R to retry."))
	return sb.String()
}

func (t *TreeManager) renderEmptyState() string {
	r := t.theme.Renderer
	var sb strings.Builder
	sb.WriteString(r.NewStyle().Foreground(t.theme.Primary).Bold(true).Render("Classes"))
	sb.WriteString("\n\n")
	sb.WriteString(r.NewStyle().Foreground(t.theme.Muted).Render("No classes on the server yet."))
	sb.WriteString("\n\n")
	sb.WriteString(r.NewStyle().Foreground(t.theme.Muted).Render("Press R to reload."))
	return sb.String()
}
