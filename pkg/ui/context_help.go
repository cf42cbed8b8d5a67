package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// Context names the screen a help overlay is opened from.
type Context int

const (
	ContextTree   Context = iota // class tree
	ContextList                  // flat section list
	ContextPicker                // class picker modal
	ContextFilter                // tree filter input
)

// ContextHelpContent contains compact help content for each context.
// Content should fit on one screen without scrolling.
var ContextHelpContent = map[Context]string{
	ContextTree:   contextHelpTree,
	ContextList:   contextHelpList,
	ContextPicker: contextHelpPicker,
	ContextFilter: contextHelpFilter,
}

// GetContextHelp returns the help content for a given context.
// Falls back to generic help if the context has no specific content.
func GetContextHelp(ctx Context) string {
	if content, ok := ContextHelpContent[ctx]; ok {
		return content
	}
	return contextHelpGeneric
}

// renderMarkdown renders help markdown with glamour, returning the source
// unchanged if the renderer cannot be built.
func renderMarkdown(content string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}
	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}

// RenderContextHelp renders the context-specific help modal.
func RenderContextHelp(ctx Context, theme Theme, width, height int) string {
	r := theme.Renderer

	modalWidth := 64
	if modalWidth > width-4 {
		modalWidth = width - 4
	}
	if modalWidth < 30 {
		modalWidth = 30
	}

	titleStyle := r.NewStyle().
		Bold(true).
		Foreground(theme.Primary)

	footerStyle := r.NewStyle().
		Foreground(theme.Muted).
		Italic(true)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Quick Reference"))
	b.WriteString("\n")
	b.WriteString(r.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", modalWidth-4)))
	b.WriteString("\n")
	b.WriteString(renderMarkdown(GetContextHelp(ctx), modalWidth-6))
	b.WriteString("\n\n")
	b.WriteString(footerStyle.Render("? or Esc to close"))

	modalStyle := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Secondary).
		Padding(1, 2).
		Width(modalWidth)

	box := modalStyle.Render(b.String())
	if width <= 0 || height <= 0 {
		return box
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}

const contextHelpTree = `## Class Tree

**Navigation**
- j/k: move up/down
- enter or l: expand class
- h: collapse class or back to class row
- g/G: jump to top/bottom
- E/C: expand/collapse all

**Classes**
- e: rename class
- d: delete class (the server refuses while it has sections)
- /: filter by name or code
- R: reload class list

**Sections**
- a: add section
- e: edit name and capacity
- d: delete section
- r: retry a failed section load

**Global**
- v: switch to section list
- c: copy selected id
- q: quit`

const contextHelpList = `## Section List

**Navigation**
- p: choose class
- j/k: move up/down

**Sections**
- a: add section
- e: edit name and capacity
- d: delete section
- r: retry a failed load

**Global**
- v: switch to class tree
- c: copy selected id
- q: quit`

const contextHelpPicker = `## Choose Class

- j/k: move selection
- enter: open the class
- R: reload the class list
- esc: close the picker
- v/q: switch view or quit`

const contextHelpFilter = `## Filter

Type to filter classes by name or code. Matching ignores case.

- enter: keep the filter
- esc: clear the filter`

const contextHelpGeneric = `## Quick Reference

- ?: help overlay
- esc: close or cancel
- q: quit`
