package tui

import "github.com/charmbracelet/lipgloss"

// StyleConfig holds the colors of the deployment view.
type StyleConfig struct {
	PrimaryBlue   lipgloss.Color
	TextPrimary   lipgloss.Color
	TextSecondary lipgloss.Color
	Success       lipgloss.Color
	Failure       lipgloss.Color
	Spinner       lipgloss.Color
}

// DefaultStyles returns the default color palette
func DefaultStyles() *StyleConfig {
	return &StyleConfig{
		PrimaryBlue:   lipgloss.Color("#8AB4F8"),
		TextPrimary:   lipgloss.Color("#E8EAED"),
		TextSecondary: lipgloss.Color("#9AA0A6"),
		Success:       lipgloss.Color("#34A853"),
		Failure:       lipgloss.Color("#EA4335"),
		Spinner:       lipgloss.Color("#FFD700"), // Gold
	}
}

// TitleStyle returns a title lipgloss style using this config
func (s *StyleConfig) TitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.PrimaryBlue).
		Bold(true)
}

// HelpStyle returns a help text lipgloss style using this config
func (s *StyleConfig) HelpStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.TextSecondary).
		Italic(true)
}

func (s *StyleConfig) statusStyle(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}
