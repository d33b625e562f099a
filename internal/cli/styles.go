package cli

import "github.com/charmbracelet/lipgloss"

var (
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	warnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	faintStyle     = lipgloss.NewStyle().Faint(true)
)
