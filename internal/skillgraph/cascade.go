package skillgraph

import (
	"cmp"
	"fmt"
	"slices"
)

// CascadeTieBreak decides between cascades with equal overlap.
type CascadeTieBreak int

const (
	// TieBreakEntryGrade prefers the cascade whose entry node has the lowest
	// grade, then the lowest cascade ID.
	TieBreakEntryGrade CascadeTieBreak = iota

	// TieBreakID prefers the lowest cascade ID.
	TieBreakID
)

func (tb CascadeTieBreak) String() string {
	switch tb {
	case TieBreakEntryGrade:
		return "entry-grade"
	case TieBreakID:
		return "id"
	default:
		return fmt.Sprintf("CascadeTieBreak(%d)", int(tb))
	}
}

// ParseCascadeTieBreak parses the String form of a tie-break policy.
func ParseCascadeTieBreak(s string) (CascadeTieBreak, error) {
	switch s {
	case "", "entry-grade":
		return TieBreakEntryGrade, nil
	case "id":
		return TieBreakID, nil
	default:
		return 0, fmt.Errorf("unknown cascade tie-break %q (want entry-grade or id)", s)
	}
}

// CascadeMatch is a cascade together with how many gap nodes it covers.
type CascadeMatch struct {
	Cascade
	Overlap int
}

// FindCascadePath returns the cascade with the largest overlap (by distinct
// node count) with gaps. Ties are resolved by the graph's tie-break policy.
// Returns false when no cascade shares a node with gaps. The result depends
// only on gaps and the loaded data.
func (g *Graph) FindCascadePath(gaps map[string]bool) (CascadeMatch, bool) {
	var (
		best  CascadeMatch
		found bool
	)
	for _, c := range g.cascades {
		overlap := 0
		seen := make(map[string]bool, len(c.Nodes))
		for _, code := range c.Nodes {
			if seen[code] {
				continue
			}
			seen[code] = true
			if gaps[code] {
				overlap++
			}
		}
		if overlap == 0 {
			continue
		}
		cand := CascadeMatch{Cascade: c, Overlap: overlap}
		if !found || g.cascadeLess(cand, best) {
			best = cand
			found = true
		}
	}
	if !found {
		return CascadeMatch{}, false
	}
	best.Nodes = slices.Clone(best.Nodes)
	return best, true
}

// cascadeLess reports whether a ranks strictly before b.
func (g *Graph) cascadeLess(a, b CascadeMatch) bool {
	if a.Overlap != b.Overlap {
		return a.Overlap > b.Overlap
	}
	if g.tieBreak == TieBreakEntryGrade {
		if c := cmp.Compare(g.gradeOf(a.EntryNode), g.gradeOf(b.EntryNode)); c != 0 {
			return c < 0
		}
	}
	return a.ID < b.ID
}

func (g *Graph) gradeOf(code string) int {
	if i, ok := g.index[code]; ok {
		return g.nodes[i].GradeLevel
	}
	return 0
}
