package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent  = lipgloss.Color("#35AEE2")
	colorWhite   = lipgloss.Color("#FFFFFF")
	colorDim     = lipgloss.Color("#6B7280")
	colorSuccess = lipgloss.Color("#10B981")
	colorWarning = lipgloss.Color("#F59E0B")
	colorError   = lipgloss.Color("#EF4444")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	ItemStyle = lipgloss.NewStyle().
			Foreground(colorWhite)

	DimmedStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(colorSuccess)

	WarningStyle = lipgloss.NewStyle().
			Foreground(colorWarning)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 1)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(colorAccent)

	KeyStyle = lipgloss.NewStyle().
			Foreground(colorWhite).
			Bold(true)
)

// RenderKeyBinding formats a key binding with highlighted key
func RenderKeyBinding(key, description string) string {
	return KeyStyle.Render(key) + " " + DimmedStyle.Render(description)
}
