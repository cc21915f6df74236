// Package report shows a concluded session's gap profile.
package report

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/rootcause/internal/profile"
	"github.com/abhisek/rootcause/internal/router"
	"github.com/abhisek/rootcause/internal/screen"
	"github.com/abhisek/rootcause/internal/ui/components"
	"github.com/abhisek/rootcause/internal/ui/layout"
	"github.com/abhisek/rootcause/internal/ui/theme"
)

// ReportScreen renders a GapProfile.
type ReportScreen struct {
	profile *profile.GapProfile
}

var _ screen.Screen = (*ReportScreen)(nil)
var _ screen.KeyHintProvider = (*ReportScreen)(nil)
var _ screen.StatusProvider = (*ReportScreen)(nil)

// New creates a ReportScreen.
func New(p *profile.GapProfile) *ReportScreen {
	return &ReportScreen{profile: p}
}

func (s *ReportScreen) Init() tea.Cmd {
	return nil
}

func (s *ReportScreen) Title() string {
	return "Gap profile"
}

func (s *ReportScreen) Status() layout.Status {
	return layout.Status{Phase: s.profile.Reason, Probes: s.profile.ProbeCount}
}

func (s *ReportScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "New diagnostic"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

func (s *ReportScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyPressMsg); ok {
		switch kmsg.String() {
		case "enter", "esc":
			return s, func() tea.Msg { return router.PopToRootMsg{} }
		}
	}
	return s, nil
}

func (s *ReportScreen) View(width, height int) string {
	p := s.profile
	if p == nil {
		return ""
	}
	inner := min(width-8, 76)

	var b strings.Builder
	field := func(label, value string) {
		b.WriteString(theme.Label.Render(fmt.Sprintf("%-16s", label)))
		b.WriteString(theme.Body.Render(value))
		b.WriteString("\n")
	}

	if p.PrimaryGapNode == "" {
		b.WriteString(theme.Mastered.Render("No gap found: performing at the expected level."))
		b.WriteString("\n\n")
	} else {
		field("Root gap", p.PrimaryGapNode)
		field("Start with", p.RecommendedFocusNode)
		field("Trace", strings.Join(p.TracePath, " → "))
		if p.MatchedCascade != nil {
			field("Cascade", fmt.Sprintf("%s (%d nodes)", p.MatchedCascade.Name, p.MatchedCascade.Overlap))
		}
		if p.EstimatedGradeLevel != nil {
			field("Working at", fmt.Sprintf("grade %d", *p.EstimatedGradeLevel))
		}
		b.WriteString("\n")
	}

	b.WriteString(components.NewMeter("Confidence", p.OverallConfidence, true, inner).View())
	b.WriteString("\n")
	if p.LowConfidence {
		b.WriteString(theme.Uncertain.Render("Low confidence: confirm before acting on this profile."))
		b.WriteString("\n")
	}
	if p.NeedsHumanReview {
		b.WriteString(theme.Gap.Render("Flagged for human review."))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(layout.Rule(inner))
	b.WriteString("\n")

	list := func(label string, style lipgloss.Style, codes []string) {
		if len(codes) == 0 {
			return
		}
		b.WriteString(style.Render(fmt.Sprintf("%-16s", label)))
		b.WriteString(lipgloss.NewStyle().Width(inner - 16).Foreground(theme.Text).Render(strings.Join(codes, ", ")))
		b.WriteString("\n")
	}
	list("Mastered", theme.Mastered, p.MasteredNodes)
	list("Gaps", theme.Gap, p.GapNodes)
	list("Uncertain", theme.Uncertain, p.UncertainNodes)
	list("Also weak", theme.Label, p.SecondaryGaps)
	list("Blocks", theme.Hint, p.ForwardImpact)

	list("Misconceptions", theme.Label, p.Misconceptions)

	b.WriteString("\n")
	b.WriteString(theme.Hint.Render(fmt.Sprintf("%s · %d probes · %s", p.Reason, p.ProbeCount, p.SessionID)))

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, theme.Card.Render(b.String()))
}
