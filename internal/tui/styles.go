package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent  = lipgloss.Color("39")  // blue
	colorContext = lipgloss.Color("78")  // green
	colorMuted   = lipgloss.Color("244") // gray
	colorHit     = lipgloss.Color("214") // orange
	colorFrame   = lipgloss.Color("237")

	styleCrumb       = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	styleCrumbSep    = lipgloss.NewStyle().Foreground(colorMuted)
	styleTag         = lipgloss.NewStyle().Foreground(lipgloss.Color("232")).Background(colorContext).Padding(0, 1)
	stylePrompt      = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	styleInputText   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	styleTableName   = lipgloss.NewStyle().Foreground(colorAccent)
	styleRowID       = lipgloss.NewStyle().Foreground(colorMuted)
	styleContextName = lipgloss.NewStyle().Foreground(colorContext)
	styleMuted       = lipgloss.NewStyle().Foreground(colorMuted)
	styleHit         = lipgloss.NewStyle().Foreground(colorHit).Bold(true)
	styleCursor      = lipgloss.NewStyle().Foreground(colorHit).Bold(true)
	styleListFrame   = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(colorFrame)
	stylePreview     = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(colorAccent)
	styleStatus      = lipgloss.NewStyle().Foreground(colorMuted).Padding(0, 1)
)
