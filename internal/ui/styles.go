package ui

import "github.com/charmbracelet/lipgloss"

var (
	accent    = lipgloss.AdaptiveColor{Light: "#5A3FC0", Dark: "#A48CFF"}
	muted     = lipgloss.AdaptiveColor{Light: "#8A8A8A", Dark: "#6C6C6C"}
	danger    = lipgloss.AdaptiveColor{Light: "#C0392B", Dark: "#FF6B6B"}
	userBg    = lipgloss.AdaptiveColor{Light: "#E8E2FF", Dark: "#3B2F6B"}
	paleWhite = lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F2F2F2"}

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)

	statusStyle = lipgloss.NewStyle().Foreground(muted)

	errorStyle = lipgloss.NewStyle().Foreground(danger).Bold(true)

	sentStyle = lipgloss.NewStyle().
			Background(userBg).
			Foreground(paleWhite).
			Padding(0, 1)

	pendingStyle = lipgloss.NewStyle().Foreground(muted).Italic(true)

	receivedLabelStyle = lipgloss.NewStyle().Foreground(accent).Bold(true)

	buttonStyle = lipgloss.NewStyle().
			Padding(0, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(muted)

	buttonFocusedStyle = buttonStyle.
				BorderForeground(accent).
				Foreground(accent).
				Bold(true)

	buttonDisabledStyle = buttonStyle.Foreground(muted).Faint(true)

	promptBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(1, 2)

	codeStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
)
