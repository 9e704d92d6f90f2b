package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorMuted  = lipgloss.Color("#6C7086")
	colorAccent = lipgloss.Color("#89B4FA")
	colorDanger = lipgloss.Color("#F38BA8")

	styleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)

	styleSelected = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorAccent).
			Padding(0, 1)

	styleChart = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1)

	styleLabel  = lipgloss.NewStyle().Foreground(colorMuted)
	stylePaused = lipgloss.NewStyle().Bold(true).Foreground(colorDanger)
	styleFooter = lipgloss.NewStyle().Foreground(colorMuted).Padding(0, 1)
)
