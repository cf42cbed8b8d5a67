package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/classdesk/pkg/model"
)

// SectionListView is the flat sections screen. It keeps its own class list
// and its own ClassNode, so it shares no cache with the tree.
type SectionListView struct {
	token Token
	cmds  ResourceCmds
	theme Theme

	requested bool
	state     TreeState
	loadErr   string
	classes   []model.Class

	picker     ClassPickerModel
	showPicker bool
	node       *ClassNode

	width  int
	height int
}

// NewSectionListView creates the view. Nothing is fetched until Activate.
func NewSectionListView(cmds ResourceCmds, theme Theme) *SectionListView {
	return &SectionListView{token: newToken(), cmds: cmds, theme: theme}
}

// SetSize updates the available dimensions.
func (v *SectionListView) SetSize(width, height int) {
	v.width = width
	v.height = height
	v.picker.SetSize(width, height)
}

// Activate loads the class list the first time the view is shown.
func (v *SectionListView) Activate() tea.Cmd {
	if v.requested {
		return nil
	}
	v.requested = true
	return v.load()
}

func (v *SectionListView) load() tea.Cmd {
	v.state = TreeLoading
	v.loadErr = ""
	return v.cmds.ListClasses(v.token)
}

// State returns the class list load state.
func (v *SectionListView) State() TreeState { return v.state }

// Node returns the node of the chosen class, or nil.
func (v *SectionListView) Node() *ClassNode { return v.node }

// PickerOpen reports whether the class picker is shown.
func (v *SectionListView) PickerOpen() bool { return v.showPicker }

// Owns reports whether the result addressed to token belongs to this view.
func (v *SectionListView) Owns(token Token) bool {
	return token == v.token || (v.node != nil && v.node.Token() == token)
}

// Capturing reports whether a draft has the keyboard. The picker only binds
// navigation keys, so global keys stay live while it is open.
func (v *SectionListView) Capturing() bool {
	return !v.showPicker && v.node != nil && v.node.Capturing()
}

// Update handles results and keys for the view.
func (v *SectionListView) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case ResourceResultMsg:
		if msg.Owner == v.token && msg.Operation == OpListClasses {
			v.applyClasses(msg)
			return nil
		}
		if v.node != nil && msg.Owner == v.node.Token() {
			cmd, _ := v.node.HandleResult(msg)
			return cmd
		}
	case tea.KeyMsg:
		return v.handleKey(msg)
	}
	return nil
}

func (v *SectionListView) applyClasses(msg ResourceResultMsg) {
	if msg.Err != nil {
		v.state = TreeFailed
		v.loadErr = inlineError(msg.Err)
		return
	}
	v.state = TreeReady
	v.classes = msg.Classes
	if v.node != nil {
		// The chosen class may have been renamed or removed elsewhere.
		for _, cls := range v.classes {
			if cls.ID == v.node.Class().ID {
				v.node.class.Name = cls.Name
				return
			}
		}
		v.node = nil
	}
	v.openPicker()
}

func (v *SectionListView) openPicker() {
	var current int64
	if v.node != nil {
		current = v.node.Class().ID
	}
	v.picker = NewClassPickerModel(v.classes, current, v.theme)
	v.picker.SetSize(v.width, v.height)
	v.showPicker = true
}

// Choose discards the current node and opens classID with a fresh node.
func (v *SectionListView) Choose(cls model.Class) tea.Cmd {
	v.showPicker = false
	if v.node != nil && v.node.Class().ID == cls.ID {
		return nil
	}
	v.node = newSectionsOnlyNode(cls, v.cmds)
	return v.node.Expand()
}

func (v *SectionListView) handleKey(msg tea.KeyMsg) tea.Cmd {
	if v.showPicker {
		switch msg.String() {
		case "j", "down":
			v.picker.MoveDown()
		case "k", "up":
			v.picker.MoveUp()
		case "enter":
			if cls, ok := v.picker.Selected(); ok {
				return v.Choose(cls)
			}
		case "esc":
			v.showPicker = false
		case "R":
			return v.load()
		}
		return nil
	}

	if v.state != TreeReady {
		if msg.String() == "R" && v.state == TreeFailed {
			return v.load()
		}
		return nil
	}
	if v.node != nil && v.node.Capturing() {
		cmd, _ := v.node.HandleKey(msg)
		return cmd
	}

	switch msg.String() {
	case "p":
		v.openPicker()
		return nil
	case "R":
		return v.load()
	}
	if v.node == nil {
		return nil
	}
	switch msg.String() {
	case "j", "down":
		v.node.MoveDown()
		return nil
	case "k", "up":
		v.node.MoveUp()
		return nil
	case "g", "home":
		v.node.CursorToTop()
		return nil
	case "G", "end":
		v.node.CursorToBottom()
		return nil
	}
	cmd, _ := v.node.HandleKey(msg)
	return cmd
}

// Selected returns the row under the cursor.
func (v *SectionListView) Selected() (Selection, bool) {
	if v.node == nil || v.showPicker {
		return Selection{}, false
	}
	return nodeSelection(v.node), true
}

// View renders the flat list or the picker.
func (v *SectionListView) View(spin string) string {
	switch v.state {
	case TreeLoading:
		return v.theme.HintStyle().Render(spin + " loading classes…")
	case TreeFailed:
		return v.theme.ErrorStyle().Render("Couldn't load classes: "+v.loadErr) + "\n\n" +
			v.theme.HintStyle().Render("Press R to retry.")
	}
	if v.showPicker {
		return v.picker.View()
	}
	if v.node == nil {
		return v.theme.HintStyle().Render("Press p to choose a class.")
	}

	lines, _ := v.node.Lines(rowContext{theme: v.theme, width: v.width, spin: spin}, true)
	var sb strings.Builder
	sb.WriteString(strings.Join(lines, "\n"))
	sb.WriteString("\n\n")
	sb.WriteString(v.theme.HintStyle().Render("p: choose class · a: add · e: edit · d: delete"))
	return sb.String()
}
