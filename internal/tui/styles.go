package tui

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used by the inbox browser.
type Styles struct {
	Title    lipgloss.Style
	Header   lipgloss.Style
	Row      lipgloss.Style
	Selected lipgloss.Style
	Unread   lipgloss.Style
	Pinned   lipgloss.Style
	Muted    lipgloss.Style
	Error    lipgloss.Style
	Detail   lipgloss.Style
}

// DefaultStyles returns the default theme.
func DefaultStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69")),
		Header:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		Row:      lipgloss.NewStyle(),
		Selected: lipgloss.NewStyle().Background(lipgloss.Color("237")).Bold(true),
		Unread:   lipgloss.NewStyle().Foreground(lipgloss.Color("75")).Bold(true),
		Pinned:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Detail: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("69")).
			Padding(0, 1),
	}
}
