package main

import "github.com/charmbracelet/lipgloss"

// planNERD brand palette, shared by the command output and the live view.
var (
	colorPrimary = lipgloss.Color("#8BC34A") // Lime Green
	colorInfo    = lipgloss.Color("#2196F3") // Blue
	colorWarning = lipgloss.Color("#FFC107") // Yellow
	colorError   = lipgloss.Color("#e53935") // Red
	colorMuted   = lipgloss.Color("#808080")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	infoStyle    = lipgloss.NewStyle().Foreground(colorInfo)
	warnStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorWarning)
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorError)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)

	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorPrimary).
			Padding(0, 1)
)
