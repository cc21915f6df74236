package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/rootcause/internal/ui/theme"
)

// Meter is a horizontal bar for a fraction in [0, 1].
type Meter struct {
	Label       string
	Value       float64
	ShowPercent bool
	Width       int
}

// NewMeter creates a meter.
func NewMeter(label string, value float64, showPercent bool, width int) Meter {
	return Meter{Label: label, Value: value, ShowPercent: showPercent, Width: width}
}

func (m Meter) View() string {
	var out string
	if m.Label != "" {
		out = theme.Body.Render(m.Label) + "  "
	}

	percentWidth := 0
	if m.ShowPercent {
		percentWidth = 6
	}
	barWidth := max(m.Width-lipgloss.Width(out)-percentWidth, 4)

	v := min(max(m.Value, 0), 1)
	filled := int(float64(barWidth) * v)

	out += theme.MeterFilled.Render(strings.Repeat(" ", filled)) +
		theme.MeterEmpty.Render(strings.Repeat(" ", barWidth-filled))

	if m.ShowPercent {
		out += theme.Hint.Render(fmt.Sprintf("  %d%%", int(v*100)))
	}
	return out
}
