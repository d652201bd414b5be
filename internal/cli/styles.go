package cli

import "github.com/charmbracelet/lipgloss"

// Shared terminal styles for command output. Colors use the basic
// ANSI palette so they track the user's terminal theme. lipgloss
// degrades to plain text automatically when stdout is not a TTY.
var (
	boldStyle   = lipgloss.NewStyle().Bold(true)
	cyanStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	greenStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	yellowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	redStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	dimStyle    = lipgloss.NewStyle().Faint(true)

	// urlStyle renders pull request links blue and underlined so they
	// stand out as clickable in most terminals.
	urlStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Underline(true)
)
