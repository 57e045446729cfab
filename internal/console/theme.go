package console

import "github.com/charmbracelet/lipgloss"

// Adaptive colors (light/dark terminal detection).
var (
	ColorUser      = lipgloss.AdaptiveColor{Light: "#0070F3", Dark: "#79C0FF"}
	ColorAssistant = lipgloss.AdaptiveColor{Light: "#6B21A8", Dark: "#D8A6FF"}
	ColorSuccess   = lipgloss.AdaptiveColor{Light: "#065F46", Dark: "#7EE2B8"}
	ColorError     = lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#FF6B6B"}
	ColorMuted     = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
)

// Line styles.
var (
	UserStyle = lipgloss.NewStyle().
			Foreground(ColorUser).
			Bold(true)

	AssistantStyle = lipgloss.NewStyle().
			Foreground(ColorAssistant).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)
)
