package progressui

import "github.com/charmbracelet/lipgloss"

// theme is a trimmed version of the sort of full-application Theme a
// browsing TUI would carry — this package only ever renders one screen,
// so it keeps just the colors and styles that screen needs.
type theme struct {
	Primary       lipgloss.Color
	TextSecondary lipgloss.Color
	TextMuted     lipgloss.Color
	Error         lipgloss.Color

	GradientStart lipgloss.Color
	GradientEnd   lipgloss.Color

	Title    lipgloss.Style
	Stat     lipgloss.Style
	ErrStyle lipgloss.Style
	Muted    lipgloss.Style
	Modal    lipgloss.Style
}

func defaultTheme() theme {
	t := theme{
		Primary:       lipgloss.Color("#7B2FBE"),
		TextSecondary: lipgloss.Color("#BAC2DE"),
		TextMuted:     lipgloss.Color("#6C7086"),
		Error:         lipgloss.Color("#E06C75"),
		GradientStart: lipgloss.Color("#7B2FBE"),
		GradientEnd:   lipgloss.Color("#00D4AA"),
	}
	t.Title = lipgloss.NewStyle().Bold(true).Foreground(t.Primary)
	t.Stat = lipgloss.NewStyle().Foreground(t.TextSecondary)
	t.ErrStyle = lipgloss.NewStyle().Foreground(t.Error)
	t.Muted = lipgloss.NewStyle().Foreground(t.TextMuted)
	t.Modal = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary).
		Padding(1, 2)
	return t
}
