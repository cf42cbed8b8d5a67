package ui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/classdesk/pkg/client"
	"github.com/vanderheijden86/classdesk/pkg/model"
)

// SectionState is the edit/delete lifecycle of one section row.
type SectionState int

const (
	SectionViewing          SectionState = iota // read-only row
	SectionEditing                              // inline draft open
	SectionSaving                               // rename request in flight
	SectionConfirmingDelete                     // waiting for y/n
	SectionDeleting                             // delete request in flight
)

func (s SectionState) String() string {
	switch s {
	case SectionEditing:
		return "editing"
	case SectionSaving:
		return "saving"
	case SectionConfirmingDelete:
		return "confirming-delete"
	case SectionDeleting:
		return "deleting"
	default:
		return "viewing"
	}
}

// draftField selects which input of a two-field draft has focus.
type draftField int

const (
	fieldName draftField = iota
	fieldCapacity
)

// sectionDraft is the name/capacity input pair shared by the edit row and
// the add row.
type sectionDraft struct {
	name     textinput.Model
	capacity textinput.Model
	focus    draftField
}

func newSectionDraft(name, capacity string) sectionDraft {
	n := textinput.New()
	n.Placeholder = "section name"
	n.CharLimit = 32
	n.Width = 16
	n.Prompt = ""
	n.SetValue(name)

	c := textinput.New()
	c.Placeholder = "capacity"
	c.CharLimit = 6
	c.Width = 8
	c.Prompt = ""
	c.SetValue(capacity)

	d := sectionDraft{name: n, capacity: c}
	d.name.Focus()
	return d
}

// toggleFocus moves focus between the name and capacity inputs.
func (d *sectionDraft) toggleFocus() {
	if d.focus == fieldName {
		d.focus = fieldCapacity
		d.name.Blur()
		d.capacity.Focus()
		return
	}
	d.focus = fieldName
	d.capacity.Blur()
	d.name.Focus()
}

func (d *sectionDraft) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	if d.focus == fieldName {
		d.name, cmd = d.name.Update(msg)
	} else {
		d.capacity, cmd = d.capacity.Update(msg)
	}
	return cmd
}

func (d sectionDraft) validate() (string, int, error) {
	return model.ValidateSectionDraft(d.name.Value(), d.capacity.Value())
}

func (d sectionDraft) view() string {
	return d.name.View() + "  cap " + d.capacity.View()
}

// SectionNode renders one section and runs its edit and delete lifecycle.
// It never issues a re-fetch itself; its ClassNode does that.
type SectionNode struct {
	Section model.Section

	state SectionState
	draft sectionDraft
	err   string // inline error at the draft or delete control
}

// NewSectionNode wraps a section fetched from the server.
func NewSectionNode(s model.Section) *SectionNode {
	return &SectionNode{Section: s}
}

// State returns the current lifecycle state.
func (n *SectionNode) State() SectionState {
	return n.state
}

// Err returns the inline error, if any.
func (n *SectionNode) Err() string {
	return n.err
}

// Busy reports whether a request for this section is in flight.
func (n *SectionNode) Busy() bool {
	return n.state == SectionSaving || n.state == SectionDeleting
}

// Capturing reports whether keystrokes belong to the draft inputs.
func (n *SectionNode) Capturing() bool {
	return n.state == SectionEditing
}

// DraftValues returns the raw draft inputs.
func (n *SectionNode) DraftValues() (name, capacity string) {
	return n.draft.name.Value(), n.draft.capacity.Value()
}

// SetDraft replaces the draft inputs. Only meaningful while editing.
func (n *SectionNode) SetDraft(name, capacity string) {
	n.draft.name.SetValue(name)
	n.draft.capacity.SetValue(capacity)
}

// BeginEdit opens a draft seeded from the last known section.
func (n *SectionNode) BeginEdit() {
	if n.state != SectionViewing {
		return
	}
	n.state = SectionEditing
	n.err = ""
	n.draft = newSectionDraft(n.Section.Name, strconv.Itoa(n.Section.Capacity))
}

// CancelEdit discards the draft.
func (n *SectionNode) CancelEdit() {
	if n.state != SectionEditing {
		return
	}
	n.state = SectionViewing
	n.err = ""
}

// Save validates the draft and, if it passes, moves to SectionSaving and
// returns the rename command. An invalid draft stays open with an inline
// error and no command.
func (n *SectionNode) Save(cmds ResourceCmds, owner Token) tea.Cmd {
	if n.state != SectionEditing {
		return nil
	}
	name, capacity, err := n.draft.validate()
	if err != nil {
		n.err = inlineError(err)
		return nil
	}
	n.err = ""
	n.state = SectionSaving
	updated := n.Section
	updated.Name = name
	updated.Capacity = capacity
	return cmds.RenameSection(owner, updated)
}

// BeginDelete asks for confirmation.
func (n *SectionNode) BeginDelete() {
	if n.state != SectionViewing {
		return
	}
	n.err = ""
	n.state = SectionConfirmingDelete
}

// CancelDelete returns to viewing.
func (n *SectionNode) CancelDelete() {
	if n.state == SectionConfirmingDelete {
		n.state = SectionViewing
	}
}

// ConfirmDelete moves to SectionDeleting and returns the delete command.
func (n *SectionNode) ConfirmDelete(cmds ResourceCmds, owner Token) tea.Cmd {
	if n.state != SectionConfirmingDelete {
		return nil
	}
	n.state = SectionDeleting
	return cmds.DeleteSection(owner, n.Section.ClassID, n.Section.ID)
}

// Settle applies the result of this section's own rename or delete.
// It reports whether the owning node must re-fetch.
func (n *SectionNode) Settle(msg ResourceResultMsg) bool {
	switch {
	case msg.Operation == OpRenameSection && n.state == SectionSaving:
		if msg.Err != nil {
			n.state = SectionEditing
			n.err = inlineError(msg.Err)
			return false
		}
		n.state = SectionViewing
		n.err = ""
		return true
	case msg.Operation == OpDeleteSection && n.state == SectionDeleting:
		if msg.Err != nil {
			n.state = SectionViewing
			n.err = inlineError(msg.Err)
			return false
		}
		return true
	}
	return false
}

// HandleKey routes a key to the draft or confirmation prompt. The returned
// bool reports whether the key was consumed.
func (n *SectionNode) HandleKey(msg tea.KeyMsg, cmds ResourceCmds, owner Token) (tea.Cmd, bool) {
	switch n.state {
	case SectionEditing:
		switch msg.String() {
		case "esc":
			n.CancelEdit()
		case "enter":
			return n.Save(cmds, owner), true
		case "tab", "shift+tab":
			n.draft.toggleFocus()
		default:
			return n.draft.update(msg), true
		}
		return nil, true
	case SectionConfirmingDelete:
		switch msg.String() {
		case "y", "Y", "enter":
			return n.ConfirmDelete(cmds, owner), true
		case "n", "N", "esc":
			n.CancelDelete()
		}
		return nil, true
	case SectionSaving, SectionDeleting:
		// Keys other than navigation are ignored until the request settles.
		switch msg.String() {
		case "e", "d", "enter":
			return nil, true
		}
	}
	return nil, false
}

// fillBarWidth is the number of cells in a section's fill bar.
const fillBarWidth = 10

// View renders the row. prefix is the tree branch drawn before the name.
func (n *SectionNode) View(r rowContext, prefix string) string {
	t := r.theme
	var sb strings.Builder
	sb.WriteString(prefix)

	switch n.state {
	case SectionEditing, SectionSaving:
		sb.WriteString(n.draft.view())
		if n.state == SectionSaving {
			sb.WriteString(" " + t.HintStyle().Render(r.spin+" saving"))
		} else {
			sb.WriteString("  " + t.HintStyle().Render("enter save · tab field · esc cancel"))
		}
	default:
		sb.WriteString(n.summary(r))
		switch n.state {
		case SectionConfirmingDelete:
			sb.WriteString("  " + t.ErrorStyle().Render("delete section "+n.Section.Name+"? y/n"))
		case SectionDeleting:
			sb.WriteString("  " + t.HintStyle().Render(r.spin+" deleting"))
		}
	}

	if n.err != "" {
		sb.WriteString("  " + t.ErrorStyle().Render(n.err))
	}
	line := sb.String()
	if r.selected {
		line = t.Selected.Render(line)
	}
	return line
}

// summary renders name, occupancy and the fill bar.
func (n *SectionNode) summary(r rowContext) string {
	t := r.theme
	s := n.Section
	name := runewidth.FillRight(runewidth.Truncate(s.Name, 14, "…"), 14)

	var sb strings.Builder
	sb.WriteString(t.Base.Render(name))
	sb.WriteString(" ")
	sb.WriteString(t.Renderer.NewStyle().Foreground(t.Subtext).Render(fmt.Sprintf("%3d/%-3d", s.CurrentStudents, s.Capacity)))
	sb.WriteString(" ")
	sb.WriteString(renderFillBar(t, s))
	if s.Full {
		sb.WriteString(" " + t.Renderer.NewStyle().Foreground(t.Critical).Bold(true).Render("FULL"))
	}
	return sb.String()
}

// renderFillBar draws a bar coloured by fill tier, omitted when capacity is
// not positive.
func renderFillBar(t Theme, s model.Section) string {
	pct, ok := s.FillPercent()
	if !ok {
		return t.HintStyle().Render(strings.Repeat("·", fillBarWidth) + "   -")
	}
	filled := pct * fillBarWidth / 100
	style := t.Renderer.NewStyle().Foreground(t.FillColor(model.FillTierFor(pct)))
	bar := style.Render(strings.Repeat("█", filled)) +
		t.Renderer.NewStyle().Foreground(t.Border).Render(strings.Repeat("░", fillBarWidth-filled))
	return bar + style.Render(fmt.Sprintf(" %3d%%", pct))
}

// inlineError returns the text shown next to a control for err.
func inlineError(err error) string {
	var fe *model.FieldError
	if errors.As(err, &fe) {
		return fe.Message
	}
	return client.Message(err)
}
