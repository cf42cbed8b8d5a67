package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/classdesk/pkg/model"
)

// ClassPickerModel is the modal used by the section list to choose a class.
type ClassPickerModel struct {
	classes       []model.Class
	currentID     int64 // class shown behind the picker, 0 if none
	selectedIndex int
	width         int
	height        int
	theme         Theme
}

// NewClassPickerModel creates a picker with the current class highlighted.
func NewClassPickerModel(classes []model.Class, currentID int64, theme Theme) ClassPickerModel {
	selectedIdx := 0
	for i, c := range classes {
		if c.ID == currentID {
			selectedIdx = i
			break
		}
	}
	return ClassPickerModel{
		classes:       classes,
		currentID:     currentID,
		selectedIndex: selectedIdx,
		theme:         theme,
	}
}

// SetSize updates the picker dimensions
func (m *ClassPickerModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// MoveUp moves selection up
func (m *ClassPickerModel) MoveUp() {
	if m.selectedIndex > 0 {
		m.selectedIndex--
	}
}

// MoveDown moves selection down
func (m *ClassPickerModel) MoveDown() {
	if m.selectedIndex < len(m.classes)-1 {
		m.selectedIndex++
	}
}

// Selected returns the highlighted class.
func (m *ClassPickerModel) Selected() (model.Class, bool) {
	if m.selectedIndex >= 0 && m.selectedIndex < len(m.classes) {
		return m.classes[m.selectedIndex], true
	}
	return model.Class{}, false
}

// View renders the picker overlay
func (m *ClassPickerModel) View() string {
	if m.width == 0 {
		m.width = 60
	}
	if m.height == 0 {
		m.height = 20
	}

	t := m.theme

	boxWidth := 40
	if m.width < 50 {
		boxWidth = m.width - 10
	}
	if boxWidth < 25 {
		boxWidth = 25
	}

	var lines []string
	titleStyle := t.Renderer.NewStyle().
		Foreground(t.Primary).
		Bold(true).
		MarginBottom(1)
	lines = append(lines, titleStyle.Render("Choose Class"))
	lines = append(lines, "")

	if len(m.classes) == 0 {
		lines = append(lines, t.HintStyle().Render("no classes"))
	}

	// Keep the highlighted class visible in short terminals
	maxRows := m.height - 10
	if maxRows < 3 {
		maxRows = 3
	}
	start := 0
	if m.selectedIndex >= maxRows {
		start = m.selectedIndex - maxRows + 1
	}
	end := start + maxRows
	if end > len(m.classes) {
		end = len(m.classes)
	}

	for i := start; i < end; i++ {
		cls := m.classes[i]
		isSelected := i == m.selectedIndex

		itemStyle := t.Renderer.NewStyle()
		if isSelected {
			itemStyle = itemStyle.Foreground(t.Primary).Bold(true)
		} else {
			itemStyle = itemStyle.Foreground(t.Base.GetForeground())
		}

		prefix := "  "
		if isSelected {
			prefix = "> "
		}

		suffix := ""
		if cls.ID == m.currentID {
			checkStyle := t.Renderer.NewStyle().Foreground(t.Secondary)
			suffix = " " + checkStyle.Render("✓")
		}

		label := runewidth.Truncate(cls.Label(), boxWidth-8, "…")
		lines = append(lines, itemStyle.Render(prefix+label)+suffix)
	}

	lines = append(lines, "")
	footerStyle := t.Renderer.NewStyle().
		Foreground(t.Secondary).
		Italic(true)
	lines = append(lines, footerStyle.Render("j/k: navigate | enter: open | R: reload | esc: close"))

	content := strings.Join(lines, "\n")

	boxStyle := t.Renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary).
		Padding(1, 2).
		Width(boxWidth)

	box := boxStyle.Render(content)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		box,
	)
}
