package render

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title  lipgloss.Style
	header lipgloss.Style
	row    lipgloss.Style
	empty  lipgloss.Style
	rule   lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:  lipgloss.NewStyle().Bold(true),
		header: lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		row:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		empty:  lipgloss.NewStyle().Faint(true),
		rule:   lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
	}
}
