package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/JonMunkholm/sheetimport/internal/core"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	stepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	currentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))

	selectedStyle   = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("205"))
	unselectedStyle = lipgloss.NewStyle().PaddingLeft(4)
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	cellErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	cellWarningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	cellInfoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	cellCursorStyle  = lipgloss.NewStyle().Reverse(true)

	dialogStyle = lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63"))

	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

func notificationStyle(s core.NotificationStatus) lipgloss.Style {
	switch s {
	case core.StatusError:
		return errorStyle
	case core.StatusWarning:
		return cellWarningStyle.Bold(true)
	case core.StatusSuccess:
		return doneStyle.Bold(true)
	default:
		return cellInfoStyle
	}
}

func levelStyle(l core.Level) lipgloss.Style {
	switch l {
	case core.LevelError:
		return cellErrorStyle
	case core.LevelWarning:
		return cellWarningStyle
	default:
		return cellInfoStyle
	}
}
