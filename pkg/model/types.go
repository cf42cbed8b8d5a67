package model

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Class is a grouping/grade-level resource that owns zero or more sections.
type Class struct {
	ID   int64  `json:"class_id" yaml:"class_id"`
	Name string `json:"class_name" yaml:"class_name"`
	Code string `json:"class_code,omitempty" yaml:"class_code,omitempty"`
}

// Label returns the display label for the class ("Grade 5 (G5)").
func (c Class) Label() string {
	if c.Code == "" {
		return c.Name
	}
	return fmt.Sprintf("%s (%s)", c.Name, c.Code)
}

// Matches reports whether query is a case-insensitive substring of the
// class name or code. An empty query matches everything.
func (c Class) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.Name), q) ||
		strings.Contains(strings.ToLower(c.Code), q)
}

// Section is a subdivision of a class with a capacity and a server-computed
// occupancy. CurrentStudents and Full are never derived by the client.
type Section struct {
	ID              int64  `json:"section_id" yaml:"section_id"`
	ClassID         int64  `json:"class_id" yaml:"class_id"`
	Name            string `json:"section_name" yaml:"section_name"`
	Capacity        int    `json:"capacity" yaml:"capacity"`
	CurrentStudents int    `json:"current_students" yaml:"current_students"`
	Full            bool   `json:"full" yaml:"full"`
}

// FillPercent returns the display-only fill percentage of the section.
func (s Section) FillPercent() (int, bool) {
	return FillPercent(s.CurrentStudents, s.Capacity)
}

// FillTier groups fill percentages into colour tiers for the fill bar.
type FillTier int

const (
	FillNormal   FillTier = iota // below 70%
	FillWarning                  // 70% up to 90%
	FillCritical                 // 90% and above
)

func (t FillTier) String() string {
	switch t {
	case FillWarning:
		return "warning"
	case FillCritical:
		return "critical"
	default:
		return "normal"
	}
}

// FillPercent computes min(100, round(current/capacity*100)).
// The second return value is false when capacity is not positive, in which
// case the percentage must not be displayed.
func FillPercent(current, capacity int) (int, bool) {
	if capacity <= 0 {
		return 0, false
	}
	pct := int(math.Round(float64(current) / float64(capacity) * 100))
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}
	return pct, true
}

// FillTierFor maps a fill percentage to its colour tier.
func FillTierFor(pct int) FillTier {
	switch {
	case pct >= 90:
		return FillCritical
	case pct >= 70:
		return FillWarning
	default:
		return FillNormal
	}
}

// Totals summarises a set of sections for display next to their class.
type Totals struct {
	Sections int `json:"sections"`
	Capacity int `json:"capacity"`
	Students int `json:"students"`
	Full     int `json:"full"`
}

// Summarize adds up capacity and occupancy over sections.
func Summarize(sections []Section) Totals {
	t := Totals{Sections: len(sections)}
	for _, s := range sections {
		t.Capacity += s.Capacity
		t.Students += s.CurrentStudents
		if s.Full {
			t.Full++
		}
	}
	return t
}

var sectionNamePattern = regexp.MustCompile(`^[A-Za-z]+$`)

// FieldError describes a draft value rejected before any request is made.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateClassName trims name and rejects it when empty.
func ValidateClassName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", &FieldError{Field: "class_name", Message: "class name is required"}
	}
	return trimmed, nil
}

// ValidateSectionName trims name and requires letters only.
func ValidateSectionName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", &FieldError{Field: "section_name", Message: "section name is required"}
	}
	if !sectionNamePattern.MatchString(trimmed) {
		return "", &FieldError{Field: "section_name", Message: "section name must contain letters only"}
	}
	return trimmed, nil
}

// ValidateCapacity requires a positive capacity.
func ValidateCapacity(capacity int) error {
	if capacity <= 0 {
		return &FieldError{Field: "capacity", Message: "capacity must be a positive whole number"}
	}
	return nil
}

// ValidateSectionDraft validates raw operator input for a section and returns
// the normalised name and capacity.
func ValidateSectionDraft(name, capacity string) (string, int, error) {
	trimmed, err := ValidateSectionName(name)
	if err != nil {
		return "", 0, err
	}
	raw := strings.TrimSpace(capacity)
	if raw == "" {
		return "", 0, &FieldError{Field: "capacity", Message: "capacity is required"}
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return "", 0, &FieldError{Field: "capacity", Message: "capacity must be a positive whole number"}
	}
	if err := ValidateCapacity(n); err != nil {
		return "", 0, err
	}
	return trimmed, n, nil
}
