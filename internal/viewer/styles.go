package viewer

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent  = lipgloss.Color("#7D56F4")
	colorSuccess = lipgloss.Color("#04B575")
	colorWarning = lipgloss.Color("#FFB347")
	colorError   = lipgloss.Color("#FF5F87")
	colorMuted   = lipgloss.Color("#626262")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Width(6)

	valueStyle = lipgloss.NewStyle().
			Bold(true)

	connectedStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	waitingStyle   = lipgloss.NewStyle().Foreground(colorWarning)
	errorStyle     = lipgloss.NewStyle().Foreground(colorError)
	helpStyle      = lipgloss.NewStyle().Foreground(colorMuted)
)
