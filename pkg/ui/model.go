package ui

import (
	"fmt"
	"log"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/classdesk/pkg/client"
)

// ViewKind selects the active screen.
type ViewKind int

const (
	ViewTree ViewKind = iota // accordion of classes
	ViewList                 // flat sections of one class
)

// ParseViewKind maps a config value to a ViewKind.
func ParseViewKind(s string) (ViewKind, error) {
	switch s {
	case "", "tree":
		return ViewTree, nil
	case "list":
		return ViewList, nil
	}
	return ViewTree, fmt.Errorf("unknown view %q (want tree or list)", s)
}

// statusDuration is how long a transient status line stays visible.
const statusDuration = 4 * time.Second

type statusClearMsg struct {
	seq int
}

// Options configures the application model.
type Options struct {
	View          ViewKind
	ExpandOnStart bool
	ServerLabel   string // shown in the footer
}

// Model is the top-level bubbletea model.
type Model struct {
	theme Theme
	tree  *TreeManager
	list  *SectionListView
	view  ViewKind

	spinner  spinner.Model
	showHelp bool

	status      string
	statusIsErr bool
	statusSeq   int

	serverLabel string
	copy        func(string) error

	width  int
	height int
	ready  bool
}

// NewModel builds the application over res.
func NewModel(res client.Resources, opts Options) Model {
	theme := DefaultTheme(lipgloss.DefaultRenderer())
	cmds := NewResourceCmds(res)

	tree := NewTreeManager(cmds, theme)
	tree.SetExpandOnStart(opts.ExpandOnStart)

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = theme.Renderer.NewStyle().Foreground(theme.Secondary)

	return Model{
		theme:       theme,
		tree:        tree,
		list:        NewSectionListView(cmds, theme),
		view:        opts.View,
		spinner:     sp,
		serverLabel: opts.ServerLabel,
		copy:        clipboard.WriteAll,
	}
}

// SetClipboard replaces the clipboard writer.
func (m *Model) SetClipboard(fn func(string) error) {
	m.copy = fn
}

// Tree returns the class tree view.
func (m Model) Tree() *TreeManager { return m.tree }

// List returns the flat section list view.
func (m Model) List() *SectionListView { return m.list }

// ActiveView returns the screen shown.
func (m Model) ActiveView() ViewKind { return m.view }

// FocusState names the active screen ("tree", "list" or "help").
func (m Model) FocusState() string {
	if m.showHelp {
		return "help"
	}
	if m.view == ViewList {
		return "list"
	}
	return "tree"
}

// Status returns the transient status line.
func (m Model) Status() string { return m.status }

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.tree.Init(), m.spinner.Tick}
	if m.view == ViewList {
		cmds = append(cmds, m.list.Activate())
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		body := msg.Height - 2
		m.tree.SetSize(msg.Width, body)
		m.list.SetSize(msg.Width, body)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case statusClearMsg:
		if msg.seq == m.statusSeq {
			m.status = ""
			m.statusIsErr = false
		}
		return m, nil

	case ResourceResultMsg:
		return m.handleResult(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleResult(msg ResourceResultMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch {
	case m.tree.Owns(msg.Owner):
		cmd = m.tree.Update(msg)
	case m.list.Owns(msg.Owner):
		cmd = m.list.Update(msg)
	default:
		log.Printf("warning: discarding %s result for unmounted owner %d", msg.Operation, msg.Owner)
		return m, nil
	}

	var status tea.Cmd
	switch {
	case msg.Err != nil && !client.IsKind(msg.Err, client.KindValidation):
		status = m.setStatus(msg.Err.Error(), true)
	case msg.Err == nil && msg.Operation != OpListClasses && msg.Operation != OpListSections:
		status = m.setStatus(completedText(msg.Operation), false)
	}
	return m, tea.Batch(cmd, status)
}

func completedText(op ResourceOp) string {
	switch op {
	case OpRenameClass:
		return "class renamed"
	case OpDeleteClass:
		return "class deleted"
	case OpCreateSection:
		return "section added"
	case OpRenameSection:
		return "section updated"
	case OpDeleteSection:
		return "section deleted"
	}
	return op.String()
}

// setStatus shows a transient status line and schedules its removal.
func (m *Model) setStatus(text string, isErr bool) tea.Cmd {
	m.statusSeq++
	m.status = text
	m.statusIsErr = isErr
	seq := m.statusSeq
	return tea.Tick(statusDuration, func(time.Time) tea.Msg {
		return statusClearMsg{seq: seq}
	})
}

func (m Model) capturing() bool {
	if m.view == ViewList {
		return m.list.Capturing()
	}
	return m.tree.Capturing()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.showHelp {
		switch msg.String() {
		case "?", "esc", "q":
			m.showHelp = false
		}
		return m, nil
	}
	if !m.capturing() {
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "?":
			m.showHelp = true
			return m, nil
		case "v":
			return m.switchView()
		case "c":
			return m.copySelection()
		}
	}

	if m.view == ViewList {
		return m, m.list.Update(msg)
	}
	return m, m.tree.Update(msg)
}

func (m Model) switchView() (tea.Model, tea.Cmd) {
	if m.view == ViewTree {
		m.view = ViewList
		return m, m.list.Activate()
	}
	m.view = ViewTree
	return m, nil
}

func (m Model) copySelection() (tea.Model, tea.Cmd) {
	var sel Selection
	var ok bool
	if m.view == ViewList {
		sel, ok = m.list.Selected()
	} else {
		sel, ok = m.tree.Selected()
	}
	if !ok {
		return m, nil
	}
	text := fmt.Sprintf("%d", sel.ID)
	if err := m.copy(text); err != nil {
		return m, m.setStatus("clipboard: "+err.Error(), true)
	}
	return m, m.setStatus(fmt.Sprintf("copied %s %s (%s)", sel.Field, text, sel.Label), false)
}

func (m Model) helpContext() Context {
	if m.view == ViewList {
		if m.list.PickerOpen() {
			return ContextPicker
		}
		return ContextList
	}
	if m.tree.filtering {
		return ContextFilter
	}
	return ContextTree
}

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.showHelp {
		return RenderContextHelp(m.helpContext(), m.theme, m.width, m.height)
	}

	spin := m.spinner.View()
	var body string
	if m.view == ViewList {
		body = m.list.View(spin)
	} else {
		body = m.tree.View(spin)
	}
	body = lipgloss.NewStyle().Height(m.height - 2).MaxHeight(m.height - 2).Render(body)
	return lipgloss.JoinVertical(lipgloss.Left, body, m.renderFooter())
}

func (m Model) renderFooter() string {
	r := m.theme.Renderer
	viewStyle := r.NewStyle().Foreground(m.theme.Primary).Bold(true).Padding(0, 1)
	helpStyle := r.NewStyle().Foreground(m.theme.Subtext)

	name := " TREE "
	if m.view == ViewList {
		name = " LIST "
	}
	left := viewStyle.Render(name)
	if m.serverLabel != "" {
		left += r.NewStyle().Foreground(m.theme.Muted).Render(m.serverLabel) + " "
	}

	var right string
	switch {
	case m.status != "" && m.statusIsErr:
		right = m.theme.ErrorStyle().Render(m.status)
	case m.status != "":
		right = r.NewStyle().Foreground(m.theme.Secondary).Render(m.status)
	default:
		right = helpStyle.Render("v: switch view • c: copy id • ?: help • q: quit")
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}
