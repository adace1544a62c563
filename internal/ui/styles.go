// Package ui holds the terminal presentation layer: shared lipgloss
// styles and the interactive browse session.
package ui

import "github.com/charmbracelet/lipgloss"

// Styles collects every lipgloss style used by the terminal surfaces so
// color handling lives in one place.
type Styles struct {
	Title    lipgloss.Style
	Subtle   lipgloss.Style
	DocID    lipgloss.Style
	Score    lipgloss.Style
	Preview  lipgloss.Style
	Error    lipgloss.Style
	Warning  lipgloss.Style
	Success  lipgloss.Style
	Selected lipgloss.Style
	Prompt   lipgloss.Style
	Help     lipgloss.Style
}

// DefaultStyles returns the colored style set.
func DefaultStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Subtle:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		DocID:    lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
		Score:    lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		Preview:  lipgloss.NewStyle(),
		Error:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		Warning:  lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		Success:  lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Selected: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("57")),
		Prompt:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13")),
		Help:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

// NoColorStyles returns a style set with no colors or emphasis, for
// pipes and NO_COLOR environments.
func NoColorStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Title:    plain,
		Subtle:   plain,
		DocID:    plain,
		Score:    plain,
		Preview:  plain,
		Error:    plain,
		Warning:  plain,
		Success:  plain,
		Selected: plain,
		Prompt:   plain,
		Help:     plain,
	}
}
