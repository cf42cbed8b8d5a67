// Package export builds read-only snapshots of every class and its sections
// for robot mode and markdown reports.
package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/classdesk/pkg/client"
	"github.com/vanderheijden86/classdesk/pkg/model"
)

// Snapshot is the full class tree at one point in time.
type Snapshot struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Classes     []ClassSummary `json:"classes"`
	Totals      model.Totals   `json:"totals"`
}

// ClassSummary is one class with its sections.
type ClassSummary struct {
	Class    model.Class     `json:"class"`
	Sections []SectionReport `json:"sections"`
	Totals   model.Totals    `json:"totals"`
}

// SectionReport is a section plus its derived fill figures.
type SectionReport struct {
	model.Section
	FillPercent *int   `json:"fill_percent,omitempty"` // nil when capacity is not positive
	FillTier    string `json:"fill_tier,omitempty"`
}

func newSectionReport(s model.Section) SectionReport {
	r := SectionReport{Section: s}
	if pct, ok := s.FillPercent(); ok {
		r.FillPercent = &pct
		r.FillTier = model.FillTierFor(pct).String()
	}
	return r
}

// Collect lists every class, then lists the sections of each class with at
// most concurrency requests in flight. The first failure cancels the rest.
func Collect(ctx context.Context, res client.Resources, concurrency int) (*Snapshot, error) {
	classes, err := res.ListClasses(ctx)
	if err != nil {
		return nil, fmt.Errorf("collecting classes: %w", err)
	}
	if concurrency < 1 {
		concurrency = 1
	}

	summaries := make([]ClassSummary, len(classes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, cls := range classes {
		g.Go(func() error {
			sections, err := res.ListSections(gctx, cls.ID)
			if err != nil {
				return fmt.Errorf("collecting sections of %s: %w", cls.Label(), err)
			}
			reports := make([]SectionReport, 0, len(sections))
			for _, s := range sections {
				reports = append(reports, newSectionReport(s))
			}
			summaries[i] = ClassSummary{
				Class:    cls,
				Sections: reports,
				Totals:   model.Summarize(sections),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap := &Snapshot{GeneratedAt: time.Now().UTC(), Classes: summaries}
	for _, c := range summaries {
		snap.Totals.Sections += c.Totals.Sections
		snap.Totals.Capacity += c.Totals.Capacity
		snap.Totals.Students += c.Totals.Students
		snap.Totals.Full += c.Totals.Full
	}
	return snap, nil
}

// WriteJSON writes the snapshot as indented JSON.
func WriteJSON(w io.Writer, snap *Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return nil
}
