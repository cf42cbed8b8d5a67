package export

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// GenerateMarkdown creates a markdown report of every class and section
func GenerateMarkdown(snap *Snapshot, title string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s\n\n", title))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", snap.GeneratedAt.Format(time.RFC1123)))

	sb.WriteString("## Summary\n\n")
	sb.WriteString(fmt.Sprintf("- **Classes**: %d\n", len(snap.Classes)))
	sb.WriteString(fmt.Sprintf("- **Sections**: %d\n", snap.Totals.Sections))
	sb.WriteString(fmt.Sprintf("- **Seats**: %d/%d\n", snap.Totals.Students, snap.Totals.Capacity))
	sb.WriteString(fmt.Sprintf("- **Full sections**: %d\n\n", snap.Totals.Full))

	if len(snap.Classes) == 0 {
		sb.WriteString("_No classes on the server._\n")
		return sb.String()
	}

	sb.WriteString("## Table of Contents\n\n")
	for _, c := range snap.Classes {
		sb.WriteString(fmt.Sprintf("- [%s](#%s) (%d sections)\n", c.Class.Label(), anchor(c.Class.Label()), c.Totals.Sections))
	}
	sb.WriteString("\n---\n\n")

	for _, c := range snap.Classes {
		sb.WriteString(fmt.Sprintf("## %s\n\n", c.Class.Label()))
		if len(c.Sections) == 0 {
			sb.WriteString("No sections.\n\n---\n\n")
			continue
		}

		sb.WriteString("| Section | Students | Capacity | Fill | Status |\n")
		sb.WriteString("|---|---|---|---|---|\n")
		for _, s := range c.Sections {
			fill := "–"
			if s.FillPercent != nil {
				fill = fmt.Sprintf("%d%% (%s)", *s.FillPercent, s.FillTier)
			}
			status := "open"
			if s.Full {
				status = "**full**"
			}
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %s | %s |\n",
				escapeCell(s.Name), s.CurrentStudents, s.Capacity, fill, status))
		}
		sb.WriteString(fmt.Sprintf("\n%d/%d seats taken, %d full.\n\n---\n\n",
			c.Totals.Students, c.Totals.Capacity, c.Totals.Full))
	}
	return sb.String()
}

// SaveMarkdownToFile writes the generated markdown to a file
func SaveMarkdownToFile(snap *Snapshot, filename string) error {
	content := GenerateMarkdown(snap, "Class Sections Report")
	return os.WriteFile(filename, []byte(content), 0o644)
}

// anchor approximates the heading anchor most markdown renderers generate.
func anchor(heading string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(heading) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('-')
		}
	}
	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
