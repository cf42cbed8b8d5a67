package ui

import (
	"context"
	"errors"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/classdesk/pkg/client"
	"github.com/vanderheijden86/classdesk/pkg/model"
)

// ResourceOp identifies the backend operation behind a ResourceResultMsg.
type ResourceOp int

const (
	OpListClasses ResourceOp = iota
	OpRenameClass
	OpDeleteClass
	OpListSections
	OpCreateSection
	OpRenameSection
	OpDeleteSection
)

func (op ResourceOp) String() string {
	switch op {
	case OpListClasses:
		return "list classes"
	case OpRenameClass:
		return "rename class"
	case OpDeleteClass:
		return "delete class"
	case OpListSections:
		return "list sections"
	case OpCreateSection:
		return "create section"
	case OpRenameSection:
		return "rename section"
	case OpDeleteSection:
		return "delete section"
	default:
		return "unknown"
	}
}

// Token identifies the view or node instance that issued a request.
// Results are delivered only to the instance holding the same token.
type Token uint64

var lastToken atomic.Uint64

func newToken() Token {
	return Token(lastToken.Add(1))
}

// ResourceResultMsg is returned after a backend call completes.
type ResourceResultMsg struct {
	Operation ResourceOp
	Owner     Token
	Epoch     uint64 // fetch generation, OpListSections only
	ClassID   int64
	SectionID int64
	Classes   []model.Class
	Sections  []model.Section
	Class     model.Class // authoritative class after OpRenameClass
	Err       error
}

// Success reports whether the call succeeded.
func (m ResourceResultMsg) Success() bool {
	return m.Err == nil
}

// ResourceCmds wraps a Resources implementation in tea.Cmd constructors.
// Every command runs one call and reports it as a ResourceResultMsg.
type ResourceCmds struct {
	res client.Resources
}

// NewResourceCmds creates the command layer over res. A nil res yields
// commands that fail immediately.
func NewResourceCmds(res client.Resources) ResourceCmds {
	return ResourceCmds{res: res}
}

// IsAvailable reports whether a backend is configured.
func (c ResourceCmds) IsAvailable() bool {
	return c.res != nil
}

// ListClasses fetches the class list for the view identified by owner.
func (c ResourceCmds) ListClasses(owner Token) tea.Cmd {
	msg := ResourceResultMsg{Operation: OpListClasses, Owner: owner}
	return c.run(msg, func(ctx context.Context, res client.Resources, msg *ResourceResultMsg) error {
		classes, err := res.ListClasses(ctx)
		msg.Classes = classes
		return err
	})
}

// ListSections fetches the sections of classID for the node owner at epoch.
func (c ResourceCmds) ListSections(owner Token, epoch uint64, classID int64) tea.Cmd {
	msg := ResourceResultMsg{Operation: OpListSections, Owner: owner, Epoch: epoch, ClassID: classID}
	return c.run(msg, func(ctx context.Context, res client.Resources, msg *ResourceResultMsg) error {
		sections, err := res.ListSections(ctx, classID)
		msg.Sections = sections
		return err
	})
}

// RenameClass renames classID.
func (c ResourceCmds) RenameClass(owner Token, classID int64, name string) tea.Cmd {
	msg := ResourceResultMsg{Operation: OpRenameClass, Owner: owner, ClassID: classID}
	return c.run(msg, func(ctx context.Context, res client.Resources, msg *ResourceResultMsg) error {
		cls, err := res.RenameClass(ctx, classID, name)
		msg.Class = cls
		return err
	})
}

// DeleteClass deletes classID.
func (c ResourceCmds) DeleteClass(owner Token, classID int64) tea.Cmd {
	msg := ResourceResultMsg{Operation: OpDeleteClass, Owner: owner, ClassID: classID}
	return c.run(msg, func(ctx context.Context, res client.Resources, _ *ResourceResultMsg) error {
		return res.DeleteClass(ctx, classID)
	})
}

// CreateSection adds a section to classID.
func (c ResourceCmds) CreateSection(owner Token, classID int64, name string, capacity int) tea.Cmd {
	msg := ResourceResultMsg{Operation: OpCreateSection, Owner: owner, ClassID: classID}
	return c.run(msg, func(ctx context.Context, res client.Resources, _ *ResourceResultMsg) error {
		return res.CreateSection(ctx, classID, name, capacity)
	})
}

// RenameSection updates a section's name and capacity.
func (c ResourceCmds) RenameSection(owner Token, section model.Section) tea.Cmd {
	msg := ResourceResultMsg{Operation: OpRenameSection, Owner: owner, ClassID: section.ClassID, SectionID: section.ID}
	return c.run(msg, func(ctx context.Context, res client.Resources, _ *ResourceResultMsg) error {
		return res.RenameSection(ctx, section)
	})
}

// DeleteSection deletes a section of classID.
func (c ResourceCmds) DeleteSection(owner Token, classID, sectionID int64) tea.Cmd {
	msg := ResourceResultMsg{Operation: OpDeleteSection, Owner: owner, ClassID: classID, SectionID: sectionID}
	return c.run(msg, func(ctx context.Context, res client.Resources, _ *ResourceResultMsg) error {
		return res.DeleteSection(ctx, sectionID)
	})
}

// run executes call asynchronously and returns the completed message.
func (c ResourceCmds) run(msg ResourceResultMsg, call func(context.Context, client.Resources, *ResourceResultMsg) error) tea.Cmd {
	if c.res == nil {
		return unavailableCmd(msg)
	}
	res := c.res
	return func() tea.Msg {
		out := msg
		out.Err = call(context.Background(), res, &out)
		return out
	}
}

var errNoBackend = &client.Error{
	Kind:    client.KindNetwork,
	Op:      "connect",
	Message: "no backend configured; set server.url or pass --server",
	Cause:   errors.New("no backend"),
}

// unavailableCmd returns a command that immediately reports no backend.
func unavailableCmd(msg ResourceResultMsg) tea.Cmd {
	return func() tea.Msg {
		msg.Err = errNoBackend
		return msg
	}
}
