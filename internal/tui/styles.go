package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF8C42"))
	wordStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F0F0F0"))
	pinyinStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	promptStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8CC8FF"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	currentStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFD166"))
	doneStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	pendingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#D0D0D0"))
	goodStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	starStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FADB14"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF8C42"))
	cardStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#FF8C42")).
			Padding(1, 4).
			Align(lipgloss.Center)
	lockStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("#FF4D4F")).
			Padding(1, 4).
			Align(lipgloss.Center)
)
