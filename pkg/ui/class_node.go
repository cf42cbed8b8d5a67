package ui

import (
	"fmt"
	"log"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/classdesk/pkg/model"
)

// ExpansionState tracks whether a class shows its sections.
type ExpansionState int

const (
	Collapsed ExpansionState = iota // no cache held
	Expanding                       // section fetch in flight
	Expanded                        // cache holds the last fetch
)

func (s ExpansionState) String() string {
	switch s {
	case Expanding:
		return "expanding"
	case Expanded:
		return "expanded"
	default:
		return "collapsed"
	}
}

// ClassMode is the rename/delete lifecycle of the class itself.
type ClassMode int

const (
	ClassViewing          ClassMode = iota
	ClassRenaming                   // inline name input open
	ClassSavingName                 // rename request in flight
	ClassConfirmingDelete           // waiting for y/n
	ClassDeleting                   // delete request in flight
)

func (m ClassMode) String() string {
	switch m {
	case ClassRenaming:
		return "renaming"
	case ClassSavingName:
		return "saving-name"
	case ClassConfirmingDelete:
		return "confirming-delete"
	case ClassDeleting:
		return "deleting"
	default:
		return "viewing"
	}
}

// AddState is the add-section sub-state of a class.
type AddState int

const (
	AddIdle     AddState = iota
	AddDrafting          // draft row open
	AddSaving            // create request in flight
)

// ClassEventKind names a class-level outcome reported to the parent view.
type ClassEventKind int

const (
	ClassNoEvent ClassEventKind = iota
	ClassRenamed
	ClassDeleted
)

// ClassEvent is the only thing a ClassNode reports upward. It never carries
// section data.
type ClassEvent struct {
	Kind  ClassEventKind
	Class model.Class
}

// rowContext carries what every row renderer needs.
type rowContext struct {
	theme    Theme
	width    int
	spin     string // current spinner frame
	selected bool
}

// ClassNode owns one class row and the section cache under it. Nothing else
// reads or writes the cache; results reach it only when they carry its token
// and, for fetches, its current epoch.
type ClassNode struct {
	class        model.Class
	token        Token
	cmds         ResourceCmds
	sectionsOnly bool // class rename and delete disabled

	expansion ExpansionState
	epoch     uint64
	sections  []*SectionNode
	carry     map[int64]*SectionNode // open drafts kept across a re-fetch
	loadErr   string

	mode      ClassMode
	nameInput textinput.Model
	classErr  string

	add      AddState
	addDraft sectionDraft
	addErr   string

	notice string // refused action, cleared on the next key

	cursor int // 0 = class row, 1..n = sections, n+1 = add row
	focus  struct {
		id   int64
		name string
	}
}

// NewClassNode creates a collapsed node for cls.
func NewClassNode(cls model.Class, cmds ResourceCmds) *ClassNode {
	return &ClassNode{class: cls, token: newToken(), cmds: cmds}
}

// newSectionsOnlyNode creates a node whose class-level actions are disabled,
// used by the flat section list.
func newSectionsOnlyNode(cls model.Class, cmds ResourceCmds) *ClassNode {
	n := NewClassNode(cls, cmds)
	n.sectionsOnly = true
	return n
}

// Token returns the owner token stamped on this node's requests.
func (n *ClassNode) Token() Token { return n.token }

// Class returns the class as last confirmed by the server.
func (n *ClassNode) Class() model.Class { return n.class }

// Expansion returns the expansion state.
func (n *ClassNode) Expansion() ExpansionState { return n.expansion }

// Mode returns the class rename/delete state.
func (n *ClassNode) Mode() ClassMode { return n.mode }

// AddState returns the add-section sub-state.
func (n *ClassNode) AddState() AddState { return n.add }

// ClassErr returns the inline error at the rename or delete control.
func (n *ClassNode) ClassErr() string { return n.classErr }

// AddErr returns the inline error of the add-section draft.
func (n *ClassNode) AddErr() string { return n.addErr }

// LoadErr returns the section load failure, if the last fetch failed.
func (n *ClassNode) LoadErr() string { return n.loadErr }

// Notice returns the message of the last refused action.
func (n *ClassNode) Notice() string { return n.notice }

// Sections returns a copy of the cached sections, nil when nothing is cached.
func (n *ClassNode) Sections() []model.Section {
	if n.sections == nil {
		return nil
	}
	out := make([]model.Section, len(n.sections))
	for i, s := range n.sections {
		out[i] = s.Section
	}
	return out
}

// SectionNode returns the cached node for sectionID, or nil.
func (n *ClassNode) SectionNode(sectionID int64) *SectionNode {
	for _, s := range n.sections {
		if s.Section.ID == sectionID {
			return s
		}
	}
	return nil
}

// Totals summarises the cache. ok is false while nothing is cached.
func (n *ClassNode) Totals() (model.Totals, bool) {
	if n.expansion != Expanded || n.loadErr != "" {
		return model.Totals{}, false
	}
	return model.Summarize(n.Sections()), true
}

// Busy reports whether a request for this node or one of its sections is in
// flight.
func (n *ClassNode) Busy() bool {
	if n.expansion == Expanding || n.mode == ClassSavingName || n.mode == ClassDeleting || n.add == AddSaving {
		return true
	}
	for _, s := range n.sections {
		if s.Busy() {
			return true
		}
	}
	return false
}

// Capturing reports whether keystrokes belong to an input of this node.
func (n *ClassNode) Capturing() bool {
	if n.mode == ClassRenaming || n.mode == ClassConfirmingDelete {
		return true
	}
	if n.add == AddDrafting && n.onAddRow() {
		return true
	}
	if s := n.SelectedSection(); s != nil {
		return s.Capturing() || s.State() == SectionConfirmingDelete
	}
	return false
}

// Expand starts a section fetch. Every expansion fetches.
func (n *ClassNode) Expand() tea.Cmd {
	if n.expansion != Collapsed {
		return nil
	}
	return n.fetch()
}

// Collapse drops the cache and any open drafts. A fetch in flight is
// superseded; a mutation in flight blocks the collapse.
func (n *ClassNode) Collapse() {
	if n.expansion == Collapsed || n.sectionsOnly {
		return
	}
	if n.mutating() {
		n.notice = "wait for the pending request to finish"
		return
	}
	n.epoch++
	n.expansion = Collapsed
	n.sections = nil
	n.carry = nil
	n.loadErr = ""
	n.add = AddIdle
	n.addErr = ""
	n.cursor = 0
}

// Toggle collapses an expanded node and expands a collapsed one.
func (n *ClassNode) Toggle() tea.Cmd {
	if n.expansion == Collapsed {
		return n.Expand()
	}
	n.Collapse()
	return nil
}

// Retry re-fetches after a failed load.
func (n *ClassNode) Retry() tea.Cmd {
	if n.expansion != Expanded || n.loadErr == "" {
		return nil
	}
	return n.fetch()
}

// mutating reports whether a write for this node is in flight.
func (n *ClassNode) mutating() bool {
	return n.expansion != Expanding && n.Busy()
}

// fetch replaces the cache with a new request. Sections with open drafts are
// held aside so the draft survives if the section does.
func (n *ClassNode) fetch() tea.Cmd {
	if sel := n.SelectedSection(); sel != nil {
		n.focus.id = sel.Section.ID
	}
	n.carry = nil
	for _, s := range n.sections {
		if s.State() == SectionEditing {
			if n.carry == nil {
				n.carry = make(map[int64]*SectionNode)
			}
			n.carry[s.Section.ID] = s
		}
	}
	n.epoch++
	n.expansion = Expanding
	n.sections = nil
	n.loadErr = ""
	n.cursor = 0
	return n.cmds.ListSections(n.token, n.epoch, n.class.ID)
}

// HandleResult applies a result addressed to this node. The returned event is
// ClassNoEvent unless the class itself was renamed or deleted.
func (n *ClassNode) HandleResult(msg ResourceResultMsg) (tea.Cmd, ClassEvent) {
	if msg.Owner != n.token {
		return nil, ClassEvent{}
	}
	switch msg.Operation {
	case OpListSections:
		n.applySections(msg)
	case OpCreateSection:
		if n.add != AddSaving {
			return nil, ClassEvent{}
		}
		if msg.Err != nil {
			n.add = AddDrafting
			n.addErr = inlineError(msg.Err)
			return nil, ClassEvent{}
		}
		n.add = AddIdle
		n.addErr = ""
		return n.refetchAfterWrite(), ClassEvent{}
	case OpRenameSection, OpDeleteSection:
		s := n.SectionNode(msg.SectionID)
		if s == nil {
			log.Printf("warning: discarding %s result for section %d not cached by class %d", msg.Operation, msg.SectionID, n.class.ID)
			return nil, ClassEvent{}
		}
		if s.Settle(msg) {
			return n.refetchAfterWrite(), ClassEvent{}
		}
	case OpRenameClass:
		if n.mode != ClassSavingName {
			return nil, ClassEvent{}
		}
		if msg.Err != nil {
			n.mode = ClassRenaming
			n.classErr = inlineError(msg.Err)
			n.nameInput.Focus()
			return nil, ClassEvent{}
		}
		renamed := msg.Class
		if renamed.Name == "" {
			renamed.Name = strings.TrimSpace(n.nameInput.Value())
		}
		n.class.Name = renamed.Name
		n.mode = ClassViewing
		n.classErr = ""
		return nil, ClassEvent{Kind: ClassRenamed, Class: n.class}
	case OpDeleteClass:
		if n.mode != ClassDeleting {
			return nil, ClassEvent{}
		}
		if msg.Err != nil {
			n.mode = ClassViewing
			n.classErr = inlineError(msg.Err)
			return nil, ClassEvent{}
		}
		n.mode = ClassViewing
		return nil, ClassEvent{Kind: ClassDeleted, Class: n.class}
	}
	return nil, ClassEvent{}
}

// refetchAfterWrite issues the single re-fetch that follows a successful
// write. A collapsed node has no cache to refresh.
func (n *ClassNode) refetchAfterWrite() tea.Cmd {
	if n.expansion == Collapsed {
		return nil
	}
	return n.fetch()
}

func (n *ClassNode) applySections(msg ResourceResultMsg) {
	if msg.Epoch != n.epoch || n.expansion != Expanding {
		log.Printf("warning: discarding superseded section fetch for class %d (epoch %d, current %d)", n.class.ID, msg.Epoch, n.epoch)
		return
	}
	carry := n.carry
	n.carry = nil
	n.expansion = Expanded
	if msg.Err != nil {
		n.sections = nil
		n.loadErr = inlineError(msg.Err)
		return
	}

	nodes := make([]*SectionNode, 0, len(msg.Sections))
	seen := make(map[int64]bool, len(msg.Sections))
	for _, s := range msg.Sections {
		if seen[s.ID] {
			log.Printf("warning: class %d: dropping repeated section_id %d", n.class.ID, s.ID)
			continue
		}
		seen[s.ID] = true
		if kept, ok := carry[s.ID]; ok {
			kept.Section = s
			nodes = append(nodes, kept)
			continue
		}
		nodes = append(nodes, NewSectionNode(s))
	}
	n.sections = nodes
	n.restoreFocus()
}

// restoreFocus puts the cursor back on the section selected before the
// re-fetch, or on the section just created.
func (n *ClassNode) restoreFocus() {
	defer func() { n.focus.id, n.focus.name = 0, "" }()
	for i, s := range n.sections {
		if (n.focus.id != 0 && s.Section.ID == n.focus.id) ||
			(n.focus.name != "" && strings.EqualFold(s.Section.Name, n.focus.name)) {
			n.cursor = i + 1
			return
		}
	}
}

// BeginRename opens the class name input.
func (n *ClassNode) BeginRename() tea.Cmd {
	if !n.allowClassAction() || n.mode != ClassViewing {
		return nil
	}
	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 64
	ti.Width = 24
	ti.SetValue(n.class.Name)
	n.nameInput = ti
	n.mode = ClassRenaming
	n.classErr = ""
	return n.nameInput.Focus()
}

// SetNameDraft replaces the rename input value.
func (n *ClassNode) SetNameDraft(name string) {
	n.nameInput.SetValue(name)
}

// SaveRename validates the name draft and issues the rename.
func (n *ClassNode) SaveRename() tea.Cmd {
	if n.mode != ClassRenaming {
		return nil
	}
	name, err := model.ValidateClassName(n.nameInput.Value())
	if err != nil {
		n.classErr = inlineError(err)
		return nil
	}
	n.classErr = ""
	n.mode = ClassSavingName
	n.nameInput.Blur()
	return n.cmds.RenameClass(n.token, n.class.ID, name)
}

// BeginDelete asks for confirmation to delete the class.
func (n *ClassNode) BeginDelete() {
	if !n.allowClassAction() || n.mode != ClassViewing {
		return
	}
	n.classErr = ""
	n.mode = ClassConfirmingDelete
}

// ConfirmDelete issues the class delete. The backend decides whether the
// class may go; there is no local pre-check.
func (n *ClassNode) ConfirmDelete() tea.Cmd {
	if n.mode != ClassConfirmingDelete {
		return nil
	}
	n.mode = ClassDeleting
	return n.cmds.DeleteClass(n.token, n.class.ID)
}

func (n *ClassNode) allowClassAction() bool {
	if n.sectionsOnly {
		n.notice = "class actions are not available in this view"
		return false
	}
	if n.Busy() {
		n.notice = "wait for the pending request to finish"
		return false
	}
	return true
}

// BeginAdd opens the add-section draft row. The class must be expanded.
func (n *ClassNode) BeginAdd() tea.Cmd {
	if n.add != AddIdle {
		return nil
	}
	if n.expansion != Expanded || n.loadErr != "" {
		n.notice = "expand the class to add a section"
		return nil
	}
	if n.Busy() {
		n.notice = "wait for the pending request to finish"
		return nil
	}
	n.add = AddDrafting
	n.addErr = ""
	n.addDraft = newSectionDraft("", "")
	n.cursor = len(n.sections) + 1
	return nil
}

// SetAddDraft replaces the add-section draft values.
func (n *ClassNode) SetAddDraft(name, capacity string) {
	n.addDraft.name.SetValue(name)
	n.addDraft.capacity.SetValue(capacity)
}

// SaveAdd validates the draft and issues the create.
func (n *ClassNode) SaveAdd() tea.Cmd {
	if n.add != AddDrafting {
		return nil
	}
	name, capacity, err := n.addDraft.validate()
	if err != nil {
		n.addErr = inlineError(err)
		return nil
	}
	n.addErr = ""
	n.add = AddSaving
	n.focus.name = name
	return n.cmds.CreateSection(n.token, n.class.ID, name, capacity)
}

// CancelAdd closes the draft row.
func (n *ClassNode) CancelAdd() {
	if n.add != AddDrafting {
		return
	}
	n.add = AddIdle
	n.addErr = ""
	n.clampCursor()
}

// EditSection opens the draft of the selected section.
func (n *ClassNode) EditSection() {
	s := n.SelectedSection()
	if s == nil {
		return
	}
	if n.Busy() {
		n.notice = "wait for the pending request to finish"
		return
	}
	s.BeginEdit()
}

// DeleteSection asks to delete the selected section.
func (n *ClassNode) DeleteSection() {
	s := n.SelectedSection()
	if s == nil {
		return
	}
	if n.Busy() {
		n.notice = "wait for the pending request to finish"
		return
	}
	s.BeginDelete()
}

// HandleKey applies a key to this node. The bool reports whether it was
// consumed; unconsumed keys are navigation for the parent view.
func (n *ClassNode) HandleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	n.notice = ""
	key := msg.String()

	switch n.mode {
	case ClassRenaming:
		switch key {
		case "esc":
			n.mode = ClassViewing
			n.classErr = ""
			return nil, true
		case "enter":
			return n.SaveRename(), true
		}
		var cmd tea.Cmd
		n.nameInput, cmd = n.nameInput.Update(msg)
		return cmd, true
	case ClassConfirmingDelete:
		switch key {
		case "y", "Y", "enter":
			return n.ConfirmDelete(), true
		case "n", "N", "esc":
			n.mode = ClassViewing
		}
		return nil, true
	}

	if n.add == AddDrafting && n.onAddRow() {
		switch key {
		case "esc":
			n.CancelAdd()
		case "enter":
			return n.SaveAdd(), true
		case "tab", "shift+tab":
			n.addDraft.toggleFocus()
		default:
			return n.addDraft.update(msg), true
		}
		return nil, true
	}

	if s := n.SelectedSection(); s != nil {
		if cmd, ok := s.HandleKey(msg, n.cmds, n.token); ok {
			return cmd, true
		}
	}

	onHeader := n.cursor == 0
	switch key {
	case "enter", " ":
		if onHeader {
			return n.Toggle(), true
		}
	case "l", "right":
		if onHeader && n.expansion == Collapsed {
			return n.Expand(), true
		}
	case "h", "left":
		if !onHeader {
			n.cursor = 0
			return nil, true
		}
		if n.expansion != Collapsed && !n.sectionsOnly {
			n.Collapse()
			return nil, true
		}
	case "e":
		if onHeader {
			return n.BeginRename(), true
		}
		n.EditSection()
		return nil, true
	case "d":
		if onHeader {
			n.BeginDelete()
			return nil, true
		}
		n.DeleteSection()
		return nil, true
	case "a":
		return n.BeginAdd(), true
	case "r":
		if n.loadErr != "" {
			return n.Retry(), true
		}
	}
	return nil, false
}

// SelectedSection returns the section under the cursor, or nil.
func (n *ClassNode) SelectedSection() *SectionNode {
	if n.cursor >= 1 && n.cursor <= len(n.sections) {
		return n.sections[n.cursor-1]
	}
	return nil
}

// Cursor returns the row index within the node (0 is the class row).
func (n *ClassNode) Cursor() int { return n.cursor }

func (n *ClassNode) onAddRow() bool {
	return n.add != AddIdle && n.cursor == len(n.sections)+1
}

func (n *ClassNode) lastRow() int {
	if n.expansion != Expanded {
		return 0
	}
	last := len(n.sections)
	if n.add != AddIdle {
		last++
	}
	return last
}

func (n *ClassNode) clampCursor() {
	if n.cursor > n.lastRow() {
		n.cursor = n.lastRow()
	}
	if n.cursor < 0 {
		n.cursor = 0
	}
}

// MoveDown moves within the node. It returns false at the last row so the
// parent can move to the next class.
func (n *ClassNode) MoveDown() bool {
	if n.cursor >= n.lastRow() {
		return false
	}
	n.cursor++
	return true
}

// MoveUp moves within the node. It returns false at the class row.
func (n *ClassNode) MoveUp() bool {
	if n.cursor <= 0 {
		return false
	}
	n.cursor--
	return true
}

// CursorToTop selects the class row.
func (n *ClassNode) CursorToTop() { n.cursor = 0 }

// CursorToBottom selects the last visible row.
func (n *ClassNode) CursorToBottom() { n.cursor = n.lastRow() }

// Lines renders the node. selectedLine is the index of the cursor row when
// focused, or -1.
func (n *ClassNode) Lines(r rowContext, focused bool) (lines []string, selectedLine int) {
	selectedLine = -1
	t := r.theme

	header := r
	header.selected = focused && n.cursor == 0
	lines = append(lines, n.headerLine(header))
	if header.selected {
		selectedLine = 0
	}
	if n.notice != "" && focused {
		lines = append(lines, "    "+t.HintStyle().Render(n.notice))
	}

	if n.expansion == Collapsed {
		return lines, selectedLine
	}

	branch := t.Renderer.NewStyle().Foreground(t.Muted)
	hasAdd := n.add != AddIdle
	switch {
	case n.expansion == Expanding:
		lines = append(lines, branch.Render("  └── ")+t.HintStyle().Render(r.spin+" loading sections…"))
		return lines, selectedLine
	case n.loadErr != "":
		lines = append(lines, branch.Render("  └── ")+
			t.ErrorStyle().Render("couldn't load sections: "+n.loadErr)+"  "+t.HintStyle().Render("r retry"))
		return lines, selectedLine
	case len(n.sections) == 0 && !hasAdd:
		lines = append(lines, branch.Render("  └── ")+t.HintStyle().Render("no sections · a add"))
		return lines, selectedLine
	}

	for i, s := range n.sections {
		prefix := "  ├── "
		if i == len(n.sections)-1 && !hasAdd {
			prefix = "  └── "
		}
		row := r
		row.selected = focused && n.cursor == i+1
		if row.selected {
			selectedLine = len(lines)
		}
		lines = append(lines, s.View(row, branch.Render(prefix)))
	}

	if hasAdd {
		row := r
		row.selected = focused && n.onAddRow()
		if row.selected {
			selectedLine = len(lines)
		}
		lines = append(lines, n.addLine(row, branch.Render("  └── ")))
	}
	return lines, selectedLine
}

func (n *ClassNode) headerLine(r rowContext) string {
	t := r.theme
	var sb strings.Builder

	indicator := "▸"
	switch n.expansion {
	case Expanding:
		indicator = r.spin
	case Expanded:
		indicator = "▾"
	}
	sb.WriteString(t.Renderer.NewStyle().Foreground(t.Secondary).Render(indicator))
	sb.WriteString(" ")

	switch n.mode {
	case ClassRenaming, ClassSavingName:
		sb.WriteString(n.nameInput.View())
		if n.mode == ClassSavingName {
			sb.WriteString(" " + t.HintStyle().Render(r.spin+" saving"))
		} else {
			sb.WriteString("  " + t.HintStyle().Render("enter save · esc cancel"))
		}
	default:
		width := r.width - 40
		if width < 16 {
			width = 16
		}
		label := runewidth.Truncate(n.class.Label(), width, "…")
		sb.WriteString(t.Renderer.NewStyle().Foreground(t.Primary).Bold(true).Render(label))
		if totals, ok := n.Totals(); ok {
			sb.WriteString("  ")
			sb.WriteString(t.Renderer.NewStyle().Foreground(t.Subtext).Render(formatTotals(totals)))
		}
		switch n.mode {
		case ClassConfirmingDelete:
			sb.WriteString("  " + t.ErrorStyle().Render("delete class "+n.class.Name+"? y/n"))
		case ClassDeleting:
			sb.WriteString("  " + t.HintStyle().Render(r.spin+" deleting"))
		}
	}
	if n.classErr != "" {
		sb.WriteString("  " + t.ErrorStyle().Render(n.classErr))
	}

	line := sb.String()
	if r.selected {
		line = t.Selected.Render(line)
	}
	return line
}

func (n *ClassNode) addLine(r rowContext, prefix string) string {
	t := r.theme
	line := prefix + t.Renderer.NewStyle().Foreground(t.Secondary).Render("+ ") + n.addDraft.view()
	if n.add == AddSaving {
		line += " " + t.HintStyle().Render(r.spin+" adding")
	} else {
		line += "  " + t.HintStyle().Render("enter add · tab field · esc cancel")
	}
	if n.addErr != "" {
		line += "  " + t.ErrorStyle().Render(n.addErr)
	}
	if r.selected {
		line = t.Selected.Render(line)
	}
	return line
}

func formatTotals(t model.Totals) string {
	noun := "sections"
	if t.Sections == 1 {
		noun = "section"
	}
	s := fmt.Sprintf("%d %s · %d/%d seats", t.Sections, noun, t.Students, t.Capacity)
	if t.Full > 0 {
		s += fmt.Sprintf(" · %d full", t.Full)
	}
	return s
}
