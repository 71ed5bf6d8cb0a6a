package tui

import (
	"imc-manager/internal/view"

	"github.com/charmbracelet/lipgloss"
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))

	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("75"))

	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	SelectedStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("237")).
			Bold(true)

	MutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	RunningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	StoppedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	WarningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	StatusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)
)

// StyleForTone 视图模型中的颜色名映射到终端样式
func StyleForTone(tone string) lipgloss.Style {
	switch tone {
	case view.ToneRunning:
		return RunningStyle
	case view.ToneStopped:
		return StoppedStyle
	case view.ToneWarning:
		return WarningStyle
	case view.ToneError:
		return ErrorStyle
	default:
		return MutedStyle
	}
}
