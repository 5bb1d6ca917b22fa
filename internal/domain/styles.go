package domain

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func init() {
	lipgloss.SetColorProfile(termenv.ANSI256)
}

var (
	RedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#cc0000"))
	OrangeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff7c28"))
	YellowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#cc9500"))
	GreenStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#06cc00"))
	LightBlueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3cc5ff"))
	LightPurpleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#d864ff"))
	GrayStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#adadad"))
)

// StatusStyle returns the style used to render a session status in log output.
func StatusStyle(status SessionStatus) lipgloss.Style {
	switch status {
	case SessionRunning:
		return GreenStyle
	case SessionStopped:
		return GrayStyle
	default:
		return RedStyle
	}
}

// OutcomeStyle returns the style used to render the outcome of a command in log output.
func OutcomeStyle(succeeded bool) lipgloss.Style {
	if succeeded {
		return GreenStyle
	}

	return OrangeStyle
}
