package theme

import (
	"charm.land/lipgloss/v2"
)

// Color palette
var (
	Primary   = lipgloss.Color("#6366F1") // Indigo
	Secondary = lipgloss.Color("#0EA5E9") // Sky
	Accent    = lipgloss.Color("#F59E0B") // Amber
	Success   = lipgloss.Color("#10B981") // Emerald
	Error     = lipgloss.Color("#EF4444") // Red
	Warning   = lipgloss.Color("#EAB308") // Yellow
	Text      = lipgloss.Color("#F1F5F9")
	TextDim   = lipgloss.Color("#94A3B8")
	BgCard    = lipgloss.Color("#1E293B")
	Border    = lipgloss.Color("#334155")
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		Align(lipgloss.Center)

	Subtitle = lipgloss.NewStyle().
			Foreground(TextDim).
			Align(lipgloss.Center)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)

	Label = lipgloss.NewStyle().
		Foreground(Secondary).
		Bold(true)
)

// Layout
var (
	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(1, 2)

	Divider = lipgloss.NewStyle().
		Foreground(Border)
)

// Outcome styles
var (
	Mastered = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)

	Gap = lipgloss.NewStyle().
		Foreground(Error).
		Bold(true)

	Uncertain = lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true)

	ErrorText = lipgloss.NewStyle().
			Foreground(Error)
)

// Outcome returns the style for a classification outcome name.
func Outcome(name string) lipgloss.Style {
	switch name {
	case "mastered":
		return Mastered
	case "gap":
		return Gap
	case "uncertain":
		return Uncertain
	default:
		return Body
	}
}

// Selection
var (
	Selected = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	Unselected = lipgloss.NewStyle().
			Foreground(Text)
)

// Meter
var (
	MeterFilled = lipgloss.NewStyle().
			Background(Secondary)

	MeterEmpty = lipgloss.NewStyle().
			Background(Border)
)
