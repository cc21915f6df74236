package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/abhisek/rootcause/internal/profile"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printProfile writes a human-readable gap profile.
func printProfile(w io.Writer, p *profile.GapProfile) {
	row := func(label, value string) {
		if value != "" {
			fmt.Fprintf(w, "%-18s %s\n", label+":", value)
		}
	}

	row("Profile", p.ID)
	row("Session", p.SessionID)
	row("Learner", p.SubjectID)
	row("Domain", string(p.Domain))
	row("Concluded", fmt.Sprintf("%s (%d probes)", p.Reason, p.ProbeCount))
	fmt.Fprintln(w)

	if p.PrimaryGapNode == "" {
		fmt.Fprintln(w, "No gap found.")
	} else {
		row("Root gap", p.PrimaryGapNode)
		row("Start with", p.RecommendedFocusNode)
		row("Trace", strings.Join(p.TracePath, " → "))
		if p.MatchedCascade != nil {
			row("Cascade", fmt.Sprintf("%s (%s, overlap %d)", p.MatchedCascade.Name, p.MatchedCascade.ID, p.MatchedCascade.Overlap))
		}
		row("Also weak", strings.Join(p.SecondaryGaps, ", "))
		row("Blocks", strings.Join(p.ForwardImpact, ", "))
		row("Misconceptions", strings.Join(p.Misconceptions, ", "))
	}
	if p.EstimatedGradeLevel != nil {
		row("Working at", fmt.Sprintf("grade %d", *p.EstimatedGradeLevel))
	}

	conf := fmt.Sprintf("%.0f%%", p.OverallConfidence*100)
	if p.FallbackSteps > 0 {
		conf += fmt.Sprintf(" (%d fallback step(s))", p.FallbackSteps)
	}
	if p.LowConfidence {
		conf += "  LOW"
	}
	row("Confidence", conf)
	if p.NeedsHumanReview {
		row("Review", "needs human review")
	}
	fmt.Fprintln(w)

	row("Mastered", strings.Join(p.MasteredNodes, ", "))
	row("Gaps", strings.Join(p.GapNodes, ", "))
	row("Uncertain", strings.Join(p.UncertainNodes, ", "))
}
