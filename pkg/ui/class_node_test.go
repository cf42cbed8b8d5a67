package ui

import (
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"pgregory.net/rapid"

	"github.com/vanderheijden86/classdesk/pkg/client"
	"github.com/vanderheijden86/classdesk/pkg/model"
)

// nodeDriver feeds results back into a single ClassNode and records events.
type nodeDriver struct {
	node   *ClassNode
	events []ClassEvent
}

func (d *nodeDriver) update(msg tea.Msg) tea.Cmd {
	r, ok := msg.(ResourceResultMsg)
	if !ok {
		return nil
	}
	cmd, ev := d.node.HandleResult(r)
	if ev.Kind != ClassNoEvent {
		d.events = append(d.events, ev)
	}
	return cmd
}

func (d *nodeDriver) run(cmd tea.Cmd) {
	Pump(d.update, cmd)
}

func newDrivenNode(fake *FakeResources, cls model.Class) *nodeDriver {
	return &nodeDriver{node: NewClassNode(cls, NewResourceCmds(fake))}
}

var errUnavailable = &client.Error{Kind: client.KindNetwork, Op: "list sections", Message: "server unavailable"}

func TestClassNodeExpandFetchesEveryTime(t *testing.T) {
	fake := NewFakeResources()
	cls := fake.AddClass("Grade 5", "G5")
	fake.AddSection(cls.ID, "A", 40, 12)
	d := newDrivenNode(fake, cls)

	if d.node.Expansion() != Collapsed || d.node.Sections() != nil {
		t.Fatal("a new node starts collapsed with no cache")
	}
	cmd := d.node.Expand()
	if d.node.Expansion() != Expanding {
		t.Fatalf("expected expanding, got %v", d.node.Expansion())
	}
	d.run(cmd)
	if d.node.Expansion() != Expanded || len(d.node.Sections()) != 1 {
		t.Fatalf("expected one cached section, got %v %v", d.node.Expansion(), d.node.Sections())
	}

	d.node.Collapse()
	if d.node.Sections() != nil {
		t.Error("collapse must drop the cache")
	}
	d.run(d.node.Expand())
	if got := fake.Calls("list sections"); got != 2 {
		t.Errorf("re-expanding must re-fetch: %d fetches", got)
	}
}

func TestClassNodeDiscardsSupersededFetch(t *testing.T) {
	fake := NewFakeResources()
	cls := fake.AddClass("Grade 5", "G5")
	fake.AddSection(cls.ID, "A", 40, 0)
	d := newDrivenNode(fake, cls)

	stale := ResultMsgs(d.node.Expand())
	d.node.Collapse()
	d.update(stale[0])
	if d.node.Expansion() != Collapsed || d.node.Sections() != nil {
		t.Fatal("a fetch issued before collapse must be discarded")
	}

	fresh := ResultMsgs(d.node.Expand())
	d.update(stale[0])
	if d.node.Expansion() != Expanding {
		t.Fatalf("an old epoch must not complete the new fetch, got %v", d.node.Expansion())
	}
	d.update(fresh[0])
	if d.node.Expansion() != Expanded {
		t.Errorf("expected expanded, got %v", d.node.Expansion())
	}
}

func TestClassNodeIgnoresOtherOwners(t *testing.T) {
	fake := NewFakeResources()
	cls := fake.AddClass("Grade 5", "G5")
	fake.AddSection(cls.ID, "A", 40, 0)
	a := newDrivenNode(fake, cls)
	b := newDrivenNode(fake, cls)

	a.node.Expand()
	results := ResultMsgs(b.node.Expand())
	a.update(results[0])
	if a.node.Expansion() != Expanding {
		t.Error("a node must not accept results addressed to another node")
	}
	b.update(results[0])
	if b.node.Expansion() != Expanded {
		t.Error("the issuing node should accept its own result")
	}
	if a.node.Token() == b.node.Token() {
		t.Error("two nodes over the same class must have distinct tokens")
	}
}

func TestClassNodeScenarioA(t *testing.T) {
	fake := NewFakeResources()
	cls := fake.AddClass("Grade 5", "G5")
	d := newDrivenNode(fake, cls)
	d.run(d.node.Expand())
	if len(d.node.Sections()) != 0 {
		t.Fatalf("expected an empty class, got %v", d.node.Sections())
	}

	d.node.BeginAdd()
	if d.node.AddState() != AddDrafting {
		t.Fatalf("expected drafting, got %v", d.node.AddState())
	}
	d.node.SetAddDraft(" A ", "40")
	cmd := d.node.SaveAdd()
	if d.node.AddState() != AddSaving || !d.node.Busy() {
		t.Fatalf("expected saving, got %v", d.node.AddState())
	}
	d.run(cmd)

	got := d.node.Sections()
	if len(got) != 1 {
		t.Fatalf("expected 1 section, got %v", got)
	}
	s := got[0]
	if s.Name != "A" || s.Capacity != 40 || s.CurrentStudents != 0 || s.Full {
		t.Errorf("unexpected section %+v", s)
	}
	if d.node.AddState() != AddIdle {
		t.Errorf("draft must be discarded after success, got %v", d.node.AddState())
	}
	if fake.Calls("create section") != 1 || fake.Calls("list sections") != 2 {
		t.Errorf("expected one create followed by exactly one re-fetch, got create=%d list=%d",
			fake.Calls("create section"), fake.Calls("list sections"))
	}
	if sel := d.node.SelectedSection(); sel == nil || sel.Section.Name != "A" {
		t.Error("the cursor should land on the new section")
	}
}

func TestClassNodeScenarioC(t *testing.T) {
	fake := NewFakeResources()
	cls := fake.AddClass("Grade 5", "G5")
	d := newDrivenNode(fake, cls)
	d.run(d.node.Expand())

	d.node.BeginAdd()
	d.node.SetAddDraft("A1", "40")
	if cmd := d.node.SaveAdd(); cmd != nil {
		t.Fatal("an invalid draft must not produce a command")
	}
	if d.node.AddState() != AddDrafting || d.node.AddErr() == "" {
		t.Errorf("expected drafting with an inline error, got %v %q", d.node.AddState(), d.node.AddErr())
	}
	if fake.Calls("create section") != 0 {
		t.Error("no request may be made for an invalid name")
	}
}

func TestClassNodeCreateConflictKeepsDraft(t *testing.T) {
	fake := NewFakeResources()
	cls := fake.AddClass("Grade 5", "G5")
	fake.AddSection(cls.ID, "A", 40, 0)
	d := newDrivenNode(fake, cls)
	d.run(d.node.Expand())

	d.node.BeginAdd()
	d.node.SetAddDraft("a", "10")
	d.run(d.node.SaveAdd())

	if d.node.AddState() != AddDrafting {
		t.Fatalf("expected the draft to stay open, got %v", d.node.AddState())
	}
	if !strings.Contains(d.node.AddErr(), "already exists") {
		t.Errorf("AddErr() = %q", d.node.AddErr())
	}
	if fake.Calls("list sections") != 1 {
		t.Error("a failed create must not re-fetch")
	}
}

func TestClassNodeScenarioD(t *testing.T) {
	fake := NewFakeResources()
	cls := fake.AddClass("Grade 5", "G5")
	fake.AddSection(cls.ID, "A", 40, 0)
	fake.AddSection(cls.ID, "B", 30, 0)
	d := newDrivenNode(fake, cls)

	d.node.BeginDelete()
	if d.node.Mode() != ClassConfirmingDelete {
		t.Fatalf("expected confirming, got %v", d.node.Mode())
	}
	cmd := d.node.ConfirmDelete()
	if d.node.Mode() != ClassDeleting {
		t.Fatalf("expected deleting, got %v", d.node.Mode())
	}
	d.run(cmd)

	if d.node.Mode() != ClassViewing {
		t.Errorf("expected viewing after refusal, got %v", d.node.Mode())
	}
	if d.node.ClassErr() != "class has sections" {
		t.Errorf("ClassErr() = %q", d.node.ClassErr())
	}
	if len(d.events) != 0 {
		t.Errorf("a refused delete must not report to the parent: %v", d.events)
	}
}

func TestClassNodeDeleteEmptyClass(t *testing.T) {
	fake := NewFakeResources()
	cls := fake.AddClass("Grade 7", "G7")
	d := newDrivenNode(fake, cls)
	d.node.BeginDelete()
	d.run(d.node.ConfirmDelete())

	if len(d.events) != 1 || d.events[0].Kind != ClassDeleted || d.events[0].Class.ID != cls.ID {
		t.Errorf("expected a ClassDeleted event, got %v", d.events)
	}
}

func TestClassNodeRename(t *testing.T) {
	fake := NewFakeResources()
	cls := fake.AddClass("Grade 5", "G5")
	d := newDrivenNode(fake, cls)

	d.node.BeginRename()
	d.node.SetNameDraft("   ")
	if cmd := d.node.SaveRename(); cmd != nil {
		t.Fatal("a blank name must not produce a command")
	}
	if d.node.Mode() != ClassRenaming || d.node.ClassErr() == "" {
		t.Errorf("expected renaming with an inline error, got %v %q", d.node.Mode(), d.node.ClassErr())
	}

	d.node.SetNameDraft("  Year 5 ")
	cmd := d.node.SaveRename()
	if d.node.Mode() != ClassSavingName {
		t.Fatalf("expected saving, got %v", d.node.Mode())
	}
	d.run(cmd)

	if d.node.Mode() != ClassViewing || d.node.Class().Name != "Year 5" {
		t.Errorf("expected renamed class, got %v %+v", d.node.Mode(), d.node.Class())
	}
	if len(d.events) != 1 || d.events[0].Kind != ClassRenamed || d.events[0].Class.Name != "Year 5" {
		t.Errorf("expected ClassRenamed, got %v", d.events)
	}
	if fake.Calls("list sections") != 0 {
		t.Error("renaming a class must not touch its sections")
	}
}

func TestClassNodeRenameFailureReopensInput(t *testing.T) {
	fake := NewFakeResources()
	cls := fake.AddClass("Grade 5", "G5")
	fake.Fail("rename class", &client.Error{Kind: client.KindNotFound, Op: "rename class", Message: "class not found"})
	d := newDrivenNode(fake, cls)

	d.node.BeginRename()
	d.node.SetNameDraft("Year 5")
	d.run(d.node.SaveRename())

	if d.node.Mode() != ClassRenaming || d.node.ClassErr() != "class not found" {
		t.Errorf("expected renaming with error, got %v %q", d.node.Mode(), d.node.ClassErr())
	}
	if d.node.Class().Name != "Grade 5" {
		t.Errorf("name must stay until the server confirms, got %q", d.node.Class().Name)
	}
}

// Scenario E: a write under one class never alters another class's cache.
func TestClassNodesAreIsolated(t *testing.T) {
	fake := NewFakeResources()
	g5 := fake.AddClass("Grade 5", "G5")
	g6 := fake.AddClass("Grade 6", "G6")
	fake.AddSection(g6.ID, "A", 35, 28)
	a := newDrivenNode(fake, g5)
	b := newDrivenNode(fake, g6)
	a.run(a.node.Expand())
	b.run(b.node.Expand())
	before := b.node.Sections()

	a.node.BeginAdd()
	a.node.SetAddDraft("A", "40")
	cmd := a.node.SaveAdd()
	for _, msg := range ResultMsgs(cmd) {
		b.update(msg)
		a.run(a.update(msg))
	}

	after := b.node.Sections()
	if len(after) != len(before) || after[0] != before[0] {
		t.Errorf("Grade 6 cache changed: %v -> %v", before, after)
	}
	if totals, _ := b.node.Totals(); totals.Sections != 1 {
		t.Errorf("Grade 6 count changed to %d", totals.Sections)
	}
	if len(a.node.Sections()) != 1 {
		t.Errorf("Grade 5 should show its new section, got %v", a.node.Sections())
	}
}

func TestClassNodeRefetchFailureDropsCache(t *testing.T) {
	fake := NewFakeResources()
	cls := fake.AddClass("Grade 5", "G5")
	fake.AddSection(cls.ID, "A", 40, 0)
	fake.AddSection(cls.ID, "B", 30, 0)
	d := newDrivenNode(fake, cls)
	d.run(d.node.Expand())

	fake.Fail("list sections", errUnavailable)
	d.node.MoveDown()
	d.node.DeleteSection()
	sec := d.node.SelectedSection()
	d.run(sec.ConfirmDelete(d.node.cmds, d.node.Token()))

	if d.node.Sections() != nil {
		t.Errorf("a failed re-fetch must drop the stale cache, got %v", d.node.Sections())
	}
	if d.node.LoadErr() != "server unavailable" {
		t.Errorf("LoadErr() = %q", d.node.LoadErr())
	}
	if _, ok := d.node.Totals(); ok {
		t.Error("counts must be hidden without a cache")
	}
	lines, _ := d.node.Lines(rowContext{theme: testTheme(), width: 80}, true)
	if !strings.Contains(strings.Join(lines, "\n"), "r retry") {
		t.Error("expected a retry hint")
	}

	fake.Fail("list sections", nil)
	d.run(d.node.Retry())
	if len(d.node.Sections()) != 1 || d.node.LoadErr() != "" {
		t.Errorf("retry should reload the cache, got %v %q", d.node.Sections(), d.node.LoadErr())
	}
}

func TestClassNodeSerialisesRequests(t *testing.T) {
	fake := NewFakeResources()
	cls := fake.AddClass("Grade 5", "G5")
	fake.AddSection(cls.ID, "A", 40, 0)
	d := newDrivenNode(fake, cls)
	d.run(d.node.Expand())

	d.node.BeginAdd()
	d.node.SetAddDraft("B", "30")
	pending := d.node.SaveAdd()

	if cmd := d.node.BeginRename(); cmd != nil || d.node.Mode() != ClassViewing {
		t.Error("rename must be refused while a create is in flight")
	}
	if d.node.Notice() == "" {
		t.Error("a refused action should leave a notice")
	}
	d.node.BeginDelete()
	if d.node.Mode() != ClassViewing {
		t.Error("delete must be refused while a create is in flight")
	}
	d.node.Collapse()
	if d.node.Expansion() != Expanded {
		t.Error("collapse must be refused while a write is in flight")
	}
	d.node.CursorToTop()
	d.node.MoveDown()
	d.node.EditSection()
	if sel := d.node.SelectedSection(); sel == nil || sel.State() != SectionViewing {
		t.Error("section edit must be refused while a create is in flight")
	}

	d.run(pending)
	if d.node.Busy() {
		t.Error("node should be idle once the create and re-fetch settle")
	}
}

func TestClassNodeKeepsEditDraftAcrossRefetch(t *testing.T) {
	fake := NewFakeResources()
	cls := fake.AddClass("Grade 5", "G5")
	a := fake.AddSection(cls.ID, "A", 40, 0)
	b := fake.AddSection(cls.ID, "B", 30, 0)
	d := newDrivenNode(fake, cls)
	d.run(d.node.Expand())

	d.node.MoveDown()
	d.node.EditSection()
	d.node.SelectedSection().SetDraft("Alpha", "41")

	d.run(d.node.fetch())
	kept := d.node.SectionNode(a.ID)
	if kept == nil || kept.State() != SectionEditing {
		t.Fatalf("draft for a surviving section must survive the re-fetch")
	}
	if name, capacity := kept.DraftValues(); name != "Alpha" || capacity != "41" {
		t.Errorf("draft = (%q, %q)", name, capacity)
	}
	if d.node.SelectedSection() != kept {
		t.Error("cursor should stay on the edited section")
	}

	fake.RemoveSection(a.ID)
	d.run(d.node.fetch())
	if d.node.SectionNode(a.ID) != nil {
		t.Error("a section removed on the server must not reappear")
	}
	if s := d.node.SectionNode(b.ID); s == nil || s.State() != SectionViewing {
		t.Error("untouched sections come back in viewing state")
	}
}

func TestClassNodeEditSectionRefetches(t *testing.T) {
	fake := NewFakeResources()
	cls := fake.AddClass("Grade 5", "G5")
	sec := fake.AddSection(cls.ID, "A", 40, 10)
	d := newDrivenNode(fake, cls)
	d.run(d.node.Expand())

	d.node.MoveDown()
	d.node.EditSection()
	d.node.SelectedSection().SetDraft("Lily", "45")
	cmd, ok := d.node.HandleKey(tea.KeyMsg{Type: tea.KeyEnter})
	if !ok || cmd == nil {
		t.Fatal("enter in a valid draft should save")
	}
	d.run(cmd)

	got := d.node.SectionNode(sec.ID)
	if got == nil || got.Section.Name != "Lily" || got.Section.Capacity != 45 || got.Section.CurrentStudents != 10 {
		t.Errorf("expected the server's view after re-fetch, got %+v", got)
	}
	if fake.Calls("list sections") != 2 {
		t.Errorf("expected exactly one re-fetch, got %d list calls", fake.Calls("list sections"))
	}
}

func TestSectionsOnlyNodeDisablesClassActions(t *testing.T) {
	fake := NewFakeResources()
	cls := fake.AddClass("Grade 5", "G5")
	n := newSectionsOnlyNode(cls, NewResourceCmds(fake))
	d := &nodeDriver{node: n}
	d.run(n.Expand())

	if cmd := n.BeginRename(); cmd != nil || n.Mode() != ClassViewing {
		t.Error("rename must be disabled")
	}
	n.BeginDelete()
	if n.Mode() != ClassViewing {
		t.Error("delete must be disabled")
	}
	n.Collapse()
	if n.Expansion() != Expanded {
		t.Error("a sections-only node stays expanded")
	}
	n.BeginAdd()
	if n.AddState() != AddDrafting {
		t.Error("adding sections stays available")
	}
}

func TestClassNodeHeaderCounts(t *testing.T) {
	fake := NewFakeResources()
	cls := fake.AddClass("Grade 5", "G5")
	fake.AddSection(cls.ID, "A", 40, 12)
	fake.AddSection(cls.ID, "B", 30, 30)
	d := newDrivenNode(fake, cls)

	lines, _ := d.node.Lines(rowContext{theme: testTheme(), width: 100}, true)
	if strings.Contains(lines[0], "seats") {
		t.Error("a collapsed class has no counts to show")
	}

	d.run(d.node.Expand())
	lines, sel := d.node.Lines(rowContext{theme: testTheme(), width: 100}, true)
	if sel != 0 {
		t.Errorf("selected line = %d, want 0", sel)
	}
	if !strings.Contains(lines[0], "2 sections · 42/70 seats · 1 full") {
		t.Errorf("header = %q", lines[0])
	}
	if len(lines) != 3 {
		t.Errorf("expected header plus two sections, got %d lines", len(lines))
	}
}

// After a create and its mandatory re-fetch every section_id renders once.
func TestClassNodeNoDuplicationProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		fake := NewFakeResources()
		cls := fake.AddClass("Grade 5", "G5")
		existing := rapid.IntRange(0, 6).Draw(rt, "existing")
		for i := 0; i < existing; i++ {
			fake.AddSection(cls.ID, fmt.Sprintf("S%c", 'a'+i), 10+i, i)
		}
		d := newDrivenNode(fake, cls)
		d.run(d.node.Expand())

		name := rapid.StringMatching(`[A-Za-z]{1,6}`).Draw(rt, "name")
		capacity := rapid.IntRange(1, 60).Draw(rt, "capacity")
		d.node.BeginAdd()
		d.node.SetAddDraft(name, fmt.Sprint(capacity))
		d.run(d.node.SaveAdd())

		want := existing
		if d.node.AddErr() == "" {
			want++
		}
		seen := make(map[int64]bool)
		for _, s := range d.node.Sections() {
			if seen[s.ID] {
				rt.Fatalf("section_id %d rendered twice", s.ID)
			}
			seen[s.ID] = true
		}
		if len(seen) != want {
			rt.Fatalf("expected %d sections, got %d", want, len(seen))
		}
	})
}
