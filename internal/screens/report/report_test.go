package report

import (
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/rootcause/internal/profile"
	"github.com/abhisek/rootcause/internal/router"
)

func gradePtr(g int) *int { return &g }

func TestViewShowsRootAndTrace(t *testing.T) {
	s := New(&profile.GapProfile{
		SessionID:            "s1",
		Reason:               profile.ReasonRootConfirmed,
		PrimaryGapNode:       "1.NBT.tens",
		TracePath:            []string{"2.NBT.add-regroup", "1.NBT.tens"},
		RecommendedFocusNode: "2.NBT.add-regroup",
		GapNodes:             []string{"1.NBT.tens", "2.NBT.add-regroup"},
		MasteredNodes:        []string{"K.CC.count"},
		MatchedCascade:       &profile.CascadeRef{ID: "c1", Name: "place-value-to-regrouping", Overlap: 2},
		OverallConfidence:    0.45,
		EstimatedGradeLevel:  gradePtr(0),
		LowConfidence:        true,
		ProbeCount:           5,
	})

	view := s.View(100, 40)
	for _, want := range []string{
		"1.NBT.tens",
		"2.NBT.add-regroup → 1.NBT.tens",
		"place-value-to-regrouping",
		"Low confidence",
		"45%",
		"K.CC.count",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if strings.Contains(view, "human review") {
		t.Error("review flag shown for an unflagged profile")
	}
}

func TestViewNoGap(t *testing.T) {
	s := New(&profile.GapProfile{Reason: profile.ReasonExpectedLevel, OverallConfidence: 0.9})
	if view := s.View(100, 40); !strings.Contains(view, "No gap found") {
		t.Errorf("view:\n%s", view)
	}
}

func TestEnterReturnsToIntake(t *testing.T) {
	s := New(&profile.GapProfile{})
	for _, code := range []rune{tea.KeyEnter, tea.KeyEscape} {
		_, cmd := s.Update(tea.KeyPressMsg{Code: code})
		if cmd == nil {
			t.Fatal("expected a command")
		}
		if _, ok := cmd().(router.PopToRootMsg); !ok {
			t.Error("expected PopToRootMsg")
		}
	}
}
