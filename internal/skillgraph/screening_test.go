package skillgraph

import (
	"slices"
	"testing"
)

func TestPriorityScreeningOrder(t *testing.T) {
	g := seedGraph(t)
	got := g.PriorityScreeningOrder(3, StrandFractions)
	want := []string{
		"K.CC.count", "1.NBT.tens", "1.OA.facts-10", "3.OA.mult-facts",
		"3.NF.unit", "3.NF.equivalent",
	}
	if !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestPriorityScreeningOrder_NoDuplicates(t *testing.T) {
	g := seedGraph(t)
	got := g.PriorityScreeningOrder(1, StrandNumberPlace)
	seen := make(map[string]bool)
	for _, c := range got {
		if seen[c] {
			t.Errorf("%s listed twice in %v", c, got)
		}
		seen[c] = true
	}
	want := []string{"K.CC.count", "1.NBT.tens", "1.OA.facts-10", "3.OA.mult-facts"}
	if !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestPriorityScreeningOrder_UnknownDomain(t *testing.T) {
	g := seedGraph(t)
	got := g.PriorityScreeningOrder(2, Strand("geometry"))
	if len(got) != 4 {
		t.Errorf("got %v, want only the 4 priority nodes", got)
	}
}
