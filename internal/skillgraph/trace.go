package skillgraph

// DefaultTraceDepth bounds BackwardTrace when callers have no better limit.
const DefaultTraceDepth = 4

// BackwardTrace walks prerequisite edges from code toward more foundational
// skills and returns the reached node codes nearest-first. The start node is
// not included, no node appears twice and no node is deeper than maxDepth.
func (g *Graph) BackwardTrace(code string, maxDepth int) []string {
	steps := g.TraceDepths(code, maxDepth)
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.Code
	}
	return out
}

// TraceDepths is BackwardTrace with the depth and discovering dependent of
// each reached node.
//
// The walk is iterative, one level per pass over an explicit frontier, so
// deep chains cannot exhaust the goroutine stack.
func (g *Graph) TraceDepths(code string, maxDepth int) []TraceStep {
	if _, ok := g.index[code]; !ok || maxDepth <= 0 {
		return nil
	}

	visited := map[string]bool{code: true}
	frontier := []string{code}
	var out []TraceStep

	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, from := range frontier {
			for _, e := range g.prereqs[from] {
				if visited[e.Target] {
					continue
				}
				visited[e.Target] = true
				out = append(out, TraceStep{Code: e.Target, Depth: depth, Via: from})
				next = append(next, e.Target)
			}
		}
		frontier = next
	}
	return out
}

// ForwardImpact returns every node that depends, directly or transitively,
// on code, nearest-first.
func (g *Graph) ForwardImpact(code string) []string {
	if _, ok := g.index[code]; !ok {
		return nil
	}

	visited := map[string]bool{code: true}
	frontier := []string{code}
	var out []string

	for len(frontier) > 0 {
		var next []string
		for _, from := range frontier {
			for _, e := range g.dependents[from] {
				if visited[e.Source] {
					continue
				}
				visited[e.Source] = true
				out = append(out, e.Source)
				next = append(next, e.Source)
			}
		}
		frontier = next
	}
	return out
}
