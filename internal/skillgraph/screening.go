package skillgraph

// PriorityScreeningOrder returns the probe order for the screening phase:
// every priority node (any grade, any strand) in curriculum order, followed
// by the domain's nodes at the given grade in curriculum order. No code
// appears twice.
func (g *Graph) PriorityScreeningOrder(grade int, domain Strand) []string {
	seen := make(map[string]bool)
	var out []string

	for _, n := range g.nodes {
		if n.Priority {
			seen[n.Code] = true
			out = append(out, n.Code)
		}
	}
	for _, n := range g.nodes {
		if n.Strand != domain || n.GradeLevel != grade || seen[n.Code] {
			continue
		}
		seen[n.Code] = true
		out = append(out, n.Code)
	}
	return out
}
