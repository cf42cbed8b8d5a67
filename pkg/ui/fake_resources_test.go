package ui

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/classdesk/pkg/client"
	"github.com/vanderheijden86/classdesk/pkg/model"
)

// FakeResources is an in-memory backend with per-operation call counters.
// Operation names match ResourceOp.String().
type FakeResources struct {
	mu       sync.Mutex
	classes  []model.Class
	sections []model.Section
	students map[int64]int
	nextID   int64
	calls    map[string]int
	failures map[string]error
}

var _ client.Resources = (*FakeResources)(nil)

// NewFakeResources creates an empty backend.
func NewFakeResources() *FakeResources {
	return &FakeResources{
		students: make(map[int64]int),
		calls:    make(map[string]int),
		failures: make(map[string]error),
	}
}

// AddClass stores a class and returns it.
func (f *FakeResources) AddClass(name, code string) model.Class {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c := model.Class{ID: f.nextID, Name: name, Code: code}
	f.classes = append(f.classes, c)
	return c
}

// AddSection stores a section with the given occupancy.
func (f *FakeResources) AddSection(classID int64, name string, capacity, students int) model.Section {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	s := model.Section{ID: f.nextID, ClassID: classID, Name: name, Capacity: capacity}
	f.sections = append(f.sections, s)
	f.students[s.ID] = students
	return f.withOccupancy(s)
}

// RemoveSection deletes a section behind the UI's back.
func (f *FakeResources) RemoveSection(sectionID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, s := range f.sections {
		if s.ID == sectionID {
			f.sections = append(f.sections[:i], f.sections[i+1:]...)
			return
		}
	}
}

// Fail makes every call of op return err until cleared with a nil err.
func (f *FakeResources) Fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failures, op)
		return
	}
	f.failures[op] = err
}

// Calls returns how many times op was invoked.
func (f *FakeResources) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *FakeResources) begin(op string) error {
	f.calls[op]++
	return f.failures[op]
}

func (f *FakeResources) withOccupancy(s model.Section) model.Section {
	s.CurrentStudents = f.students[s.ID]
	s.Full = s.CurrentStudents >= s.Capacity
	return s
}

func conflict(op, msg string) error {
	return &client.Error{Kind: client.KindConflict, Op: op, Message: msg, Status: 409}
}

func notFound(op string) error {
	return &client.Error{Kind: client.KindNotFound, Op: op, Message: "not found", Status: 404}
}

func (f *FakeResources) ListClasses(ctx context.Context) ([]model.Class, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("list classes"); err != nil {
		return nil, err
	}
	return append([]model.Class(nil), f.classes...), nil
}

func (f *FakeResources) RenameClass(ctx context.Context, classID int64, newName string) (model.Class, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	const op = "rename class"
	if err := f.begin(op); err != nil {
		return model.Class{}, err
	}
	name := strings.TrimSpace(newName)
	for i := range f.classes {
		if f.classes[i].ID == classID {
			f.classes[i].Name = name
			return f.classes[i], nil
		}
	}
	return model.Class{}, notFound(op)
}

func (f *FakeResources) DeleteClass(ctx context.Context, classID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	const op = "delete class"
	if err := f.begin(op); err != nil {
		return err
	}
	for _, s := range f.sections {
		if s.ClassID == classID {
			return conflict(op, "class has sections")
		}
	}
	for i, c := range f.classes {
		if c.ID == classID {
			f.classes = append(f.classes[:i], f.classes[i+1:]...)
			return nil
		}
	}
	return notFound(op)
}

func (f *FakeResources) ListSections(ctx context.Context, classID int64) ([]model.Section, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("list sections"); err != nil {
		return nil, err
	}
	out := []model.Section{}
	for _, s := range f.sections {
		if s.ClassID == classID {
			out = append(out, f.withOccupancy(s))
		}
	}
	return out, nil
}

func (f *FakeResources) CreateSection(ctx context.Context, classID int64, name string, capacity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	const op = "create section"
	if err := f.begin(op); err != nil {
		return err
	}
	for _, s := range f.sections {
		if s.ClassID == classID && strings.EqualFold(s.Name, name) {
			return conflict(op, "section name already exists in this class")
		}
	}
	f.nextID++
	f.sections = append(f.sections, model.Section{ID: f.nextID, ClassID: classID, Name: name, Capacity: capacity})
	return nil
}

func (f *FakeResources) RenameSection(ctx context.Context, section model.Section) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	const op = "rename section"
	if err := f.begin(op); err != nil {
		return err
	}
	for i := range f.sections {
		if f.sections[i].ID == section.ID {
			f.sections[i].Name = section.Name
			f.sections[i].Capacity = section.Capacity
			return nil
		}
	}
	return notFound(op)
}

func (f *FakeResources) DeleteSection(ctx context.Context, sectionID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	const op = "delete section"
	if err := f.begin(op); err != nil {
		return err
	}
	if f.students[sectionID] > 0 {
		return conflict(op, "section has students assigned")
	}
	for i, s := range f.sections {
		if s.ID == sectionID {
			f.sections = append(f.sections[:i], f.sections[i+1:]...)
			return nil
		}
	}
	return notFound(op)
}

// ExecCmd runs cmd and returns the messages it produced, expanding batches.
// Commands that do not finish promptly (cursor blinks, status timers) are
// dropped.
func ExecCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	select {
	case msg := <-ch:
		if batch, ok := msg.(tea.BatchMsg); ok {
			var out []tea.Msg
			for _, c := range batch {
				out = append(out, ExecCmd(c)...)
			}
			return out
		}
		if msg == nil {
			return nil
		}
		return []tea.Msg{msg}
	case <-time.After(50 * time.Millisecond):
		return nil
	}
}

// Pump runs cmd and feeds its messages to update, then runs whatever update
// returns, until no work is left.
func Pump(update func(tea.Msg) tea.Cmd, cmd tea.Cmd) {
	queue := []tea.Cmd{cmd}
	for i := 0; len(queue) > 0 && i < 200; i++ {
		next := queue[0]
		queue = queue[1:]
		for _, msg := range ExecCmd(next) {
			switch msg.(type) {
			case spinner.TickMsg, statusClearMsg:
				continue
			}
			if c := update(msg); c != nil {
				queue = append(queue, c)
			}
		}
	}
}

// ResultMsgs runs cmd and returns only the backend results.
func ResultMsgs(cmd tea.Cmd) []ResourceResultMsg {
	var out []ResourceResultMsg
	for _, msg := range ExecCmd(cmd) {
		if r, ok := msg.(ResourceResultMsg); ok {
			out = append(out, r)
		}
	}
	return out
}
