package probe

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/rootcause/internal/skillgraph"
	"github.com/abhisek/rootcause/internal/ui/components"
	"github.com/abhisek/rootcause/internal/ui/layout"
	"github.com/abhisek/rootcause/internal/ui/theme"
)

func (s *ProbeScreen) View(width, height int) string {
	if s.phase == phaseConfirmQuit {
		return renderQuitConfirm(width, height)
	}
	if s.probe == nil {
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
			theme.Hint.Render("Loading probe..."))
	}

	var b strings.Builder
	b.WriteString(s.renderInfoLine(width))
	b.WriteString("\n")
	b.WriteString(layout.Rule(width - 4))
	b.WriteString("\n\n")

	prompt := s.probe.Prompt
	if prompt == "" {
		prompt = s.probe.NodeName
	}
	b.WriteString(lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.Text).
		Bold(true).
		Render(prompt))
	b.WriteString("\n\n")

	switch s.phase {
	case phaseFeedback:
		b.WriteString(s.renderFeedback(width))
	case phaseSubmitting:
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, theme.Hint.Render("Classifying...")))
	default:
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, s.input.View()))
	}

	if s.errMsg != "" {
		b.WriteString("\n\n")
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, theme.ErrorText.Render(s.errMsg)))
	}
	return b.String()
}

func (s *ProbeScreen) renderInfoLine(width int) string {
	p := s.probe
	left := theme.Label.Render(fmt.Sprintf("  %s  %s", p.NodeCode, p.NodeName))

	right := fmt.Sprintf("grade %d · %s", p.Grade, skillgraph.StrandDisplayName(p.Strand))
	if p.Attempt > 1 {
		right += fmt.Sprintf(" · attempt %d", p.Attempt)
	}
	right = theme.Hint.Render(right)

	pad := width - lipgloss.Width(left) - lipgloss.Width(right) - 4
	if pad < 1 {
		return left
	}
	return left + strings.Repeat(" ", pad) + right
}

func (s *ProbeScreen) renderFeedback(width int) string {
	c := s.last.Classification

	var b strings.Builder
	verdict := theme.Outcome(string(c.Outcome)).Render(strings.ToUpper(string(c.Outcome)))
	if c.Failed {
		verdict += theme.Hint.Render("  (classifier unavailable)")
	}
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, verdict))
	b.WriteString("\n\n")

	meter := components.NewMeter("Confidence", c.Confidence, true, min(width-8, 48))
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, meter.View()))
	b.WriteString("\n")

	if c.MisconceptionID != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
			theme.Body.Render("Misconception: "+c.MisconceptionID)))
		b.WriteString("\n")
	}
	if c.Reasoning != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().
			Width(min(width-8, 72)).
			Foreground(theme.TextDim).
			Render(c.Reasoning))
		b.WriteString("\n")
	}

	next := "Press any key for the next probe."
	if s.last.Profile != nil {
		next = "Session concluded. Press any key for the gap profile."
	} else if s.last.Next == nil {
		next = fmt.Sprintf("Session %s. Press any key to return.", s.last.Status)
	}
	b.WriteString("\n")
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, theme.Hint.Render(next)))
	return b.String()
}

func renderQuitConfirm(width, height int) string {
	content := theme.Body.Bold(true).Render("Abandon this session?") + "\n\n" +
		theme.Hint.Render("No profile is produced for an abandoned session.") + "\n\n" +
		theme.Label.Render("[Y]") + theme.Body.Render(" abandon   ") +
		theme.Label.Render("[N]") + theme.Body.Render(" keep going")
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, theme.Card.Render(content))
}
