package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/classdesk/pkg/model"
)

// Theme holds the colours and base styles shared by every view.
type Theme struct {
	Renderer *lipgloss.Renderer

	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor

	// Fill bar tiers
	Normal   lipgloss.AdaptiveColor
	Warning  lipgloss.AdaptiveColor
	Critical lipgloss.AdaptiveColor

	Base     lipgloss.Style
	Selected lipgloss.Style
}

// DefaultTheme builds the standard palette on the given renderer.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary:   lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7D79F6"},
		Secondary: lipgloss.AdaptiveColor{Light: "#1E7F5C", Dark: "#50FA7B"},
		Muted:     lipgloss.AdaptiveColor{Light: "#8A8A8A", Dark: "#6C6C6C"},
		Highlight: lipgloss.AdaptiveColor{Light: "#B8860B", Dark: "#F1FA8C"},
		Subtext:   lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BFBFBF"},
		Border:    lipgloss.AdaptiveColor{Light: "#D0D0D0", Dark: "#44475A"},

		Normal:   lipgloss.AdaptiveColor{Light: "#1E7F5C", Dark: "#50FA7B"},
		Warning:  lipgloss.AdaptiveColor{Light: "#C77C02", Dark: "#FFB86C"},
		Critical: lipgloss.AdaptiveColor{Light: "#C62828", Dark: "#FF5555"},
	}
	t.Base = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F8F8F2"})
	t.Selected = r.NewStyle().
		Background(lipgloss.AdaptiveColor{Light: "#E4E4F7", Dark: "#343746"}).
		Bold(true)
	return t
}

// FillColor returns the colour for a fill bar tier.
func (t Theme) FillColor(tier model.FillTier) lipgloss.AdaptiveColor {
	switch tier {
	case model.FillCritical:
		return t.Critical
	case model.FillWarning:
		return t.Warning
	default:
		return t.Normal
	}
}

// ErrorStyle renders inline errors and failure notices.
func (t Theme) ErrorStyle() lipgloss.Style {
	return t.Renderer.NewStyle().Foreground(t.Critical)
}

// HintStyle renders key hints and placeholders.
func (t Theme) HintStyle() lipgloss.Style {
	return t.Renderer.NewStyle().Foreground(t.Muted).Italic(true)
}
