package skillgraph

import (
	"testing"
)

func set(codes ...string) map[string]bool {
	m := make(map[string]bool, len(codes))
	for _, c := range codes {
		m[c] = true
	}
	return m
}

func TestFindCascadePath_LargestOverlap(t *testing.T) {
	g := seedGraph(t)
	m, ok := g.FindCascadePath(set("3.OA.mult-facts", "3.NF.equivalent"))
	if !ok {
		t.Fatal("expected a match")
	}
	if m.ID != "multiplication-to-fractions" || m.Overlap != 2 {
		t.Errorf("got %s (overlap %d), want multiplication-to-fractions (2)", m.ID, m.Overlap)
	}
}

func TestFindCascadePath_NoOverlap(t *testing.T) {
	g := seedGraph(t)
	if _, ok := g.FindCascadePath(set("3.NBT.round")); ok {
		t.Error("expected no match")
	}
	if _, ok := g.FindCascadePath(nil); ok {
		t.Error("expected no match for empty gaps")
	}
}

func tieData() Data {
	return Data{
		Nodes: []Node{node("a", 3), node("b", 1), node("x", 4)},
		Cascades: []Cascade{
			{ID: "alpha", Nodes: []string{"a", "x"}},
			{ID: "beta", Nodes: []string{"b", "x"}},
		},
	}
}

func TestFindCascadePath_TieBreak(t *testing.T) {
	tests := []struct {
		tb   CascadeTieBreak
		want string
	}{
		{TieBreakEntryGrade, "beta"},
		{TieBreakID, "alpha"},
	}
	for _, tt := range tests {
		t.Run(tt.tb.String(), func(t *testing.T) {
			g, err := Load(tieData(), WithCascadeTieBreak(tt.tb))
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			m, ok := g.FindCascadePath(set("x"))
			if !ok || m.ID != tt.want {
				t.Errorf("got %q, want %q", m.ID, tt.want)
			}
		})
	}
}

func TestFindCascadePath_Deterministic(t *testing.T) {
	g := seedGraph(t)
	gaps := set("1.NBT.tens", "2.NBT.add-regroup", "1.OA.facts-10", "3.OA.mult-facts", "3.NF.unit")
	first, _ := g.FindCascadePath(gaps)
	for i := 0; i < 50; i++ {
		m, _ := g.FindCascadePath(gaps)
		if m.ID != first.ID {
			t.Fatalf("run %d: got %s, first run gave %s", i, m.ID, first.ID)
		}
	}
}

func TestFindCascadePath_CountsDistinctNodes(t *testing.T) {
	g, err := Load(Data{
		Nodes: []Node{node("a", 1), node("b", 1)},
		Cascades: []Cascade{
			{ID: "repeats", Nodes: []string{"a", "a", "a"}},
			{ID: "pair", Nodes: []string{"a", "b"}},
		},
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	m, _ := g.FindCascadePath(set("a", "b"))
	if m.ID != "pair" || m.Overlap != 2 {
		t.Errorf("got %s (overlap %d), want pair (2)", m.ID, m.Overlap)
	}
}

func TestParseCascadeTieBreak(t *testing.T) {
	for _, tb := range []CascadeTieBreak{TieBreakEntryGrade, TieBreakID} {
		got, err := ParseCascadeTieBreak(tb.String())
		if err != nil || got != tb {
			t.Errorf("ParseCascadeTieBreak(%q) = %v, %v", tb.String(), got, err)
		}
	}
	if _, err := ParseCascadeTieBreak("random"); err == nil {
		t.Error("expected error for unknown policy")
	}
}
