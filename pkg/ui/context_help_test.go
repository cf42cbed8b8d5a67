package ui

import (
	"strings"
	"testing"
)

func TestGetContextHelpFallsBack(t *testing.T) {
	if GetContextHelp(ContextTree) != contextHelpTree {
		t.Error("tree context should have its own help")
	}
	if GetContextHelp(Context(99)) != contextHelpGeneric {
		t.Error("unknown contexts fall back to the generic help")
	}
}

func TestRenderMarkdown(t *testing.T) {
	out := renderMarkdown("## Filter\n\n- esc: clear the filter", 60)
	if out == "" {
		t.Fatal("expected rendered output")
	}
	if !strings.Contains(out, "Filter") || !strings.Contains(out, "esc") {
		t.Errorf("rendered help lost its text: %q", out)
	}
}

func TestRenderContextHelp(t *testing.T) {
	theme := testTheme()
	for _, ctx := range []Context{ContextTree, ContextList, ContextPicker, ContextFilter} {
		out := RenderContextHelp(ctx, theme, 100, 40)
		if !strings.Contains(out, "Quick Reference") {
			t.Errorf("context %d: missing title", ctx)
		}
		if !strings.Contains(out, "Esc to close") {
			t.Errorf("context %d: missing close hint", ctx)
		}
	}
	// Narrow terminals still get a usable box.
	if out := RenderContextHelp(ContextTree, theme, 20, 10); !strings.Contains(out, "Quick Reference") {
		t.Error("narrow render lost the title")
	}
}
