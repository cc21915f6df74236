package skillgraph

import (
	"cmp"
	"fmt"
	"slices"
	"sort"
)

// Graph is an immutable, validated curriculum DAG with precomputed indices.
// It is built once by Load and is safe for unlimited concurrent readers.
type Graph struct {
	version        string
	nodes          []Node // curriculum order: grade ascending, then topological
	index          map[string]int
	prereqs        map[string][]Edge // keyed by source, sorted
	dependents     map[string][]Edge // keyed by target, sorted
	misconceptions map[string][]Misconception
	cascades       []Cascade
	topoOrder      []string
	topoIndex      map[string]int
	tieBreak       CascadeTieBreak
}

// Option configures Load.
type Option func(*Graph)

// WithCascadeTieBreak sets the policy FindCascadePath uses when two cascades
// overlap the gap set equally.
func WithCascadeTieBreak(tb CascadeTieBreak) Option {
	return func(g *Graph) { g.tieBreak = tb }
}

// Load validates the curriculum data and builds the graph. Any dangling
// reference, cycle or invalid field fails the load with a
// *GraphValidationError naming the offending entries.
func Load(d Data, opts ...Option) (*Graph, error) {
	d = normalize(d)
	if err := validate(d); err != nil {
		return nil, err
	}

	g := &Graph{
		version:        d.Version,
		index:          make(map[string]int, len(d.Nodes)),
		prereqs:        make(map[string][]Edge),
		dependents:     make(map[string][]Edge),
		misconceptions: make(map[string][]Misconception),
		cascades:       d.Cascades,
		topoIndex:      make(map[string]int, len(d.Nodes)),
	}
	for _, opt := range opts {
		opt(g)
	}

	for _, e := range d.Edges {
		g.prereqs[e.Source] = append(g.prereqs[e.Source], e)
		g.dependents[e.Target] = append(g.dependents[e.Target], e)
	}
	for code := range g.prereqs {
		sortEdges(g.prereqs[code], func(e Edge) string { return e.Target })
	}
	for code := range g.dependents {
		sortEdges(g.dependents[code], func(e Edge) string { return e.Source })
	}

	for _, m := range d.Misconceptions {
		g.misconceptions[m.NodeCode] = append(g.misconceptions[m.NodeCode], m)
	}
	for code := range g.misconceptions {
		slices.SortFunc(g.misconceptions[code], func(a, b Misconception) int {
			return cmp.Compare(a.ID, b.ID)
		})
	}

	g.buildTopoOrder(d.Nodes)

	nodes := slices.Clone(d.Nodes)
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].GradeLevel != nodes[j].GradeLevel {
			return nodes[i].GradeLevel < nodes[j].GradeLevel
		}
		return g.topoIndex[nodes[i].Code] < g.topoIndex[nodes[j].Code]
	})
	g.nodes = nodes
	for i, n := range g.nodes {
		g.index[n.Code] = i
	}

	return g, nil
}

// normalize applies field defaults without mutating the caller's slices.
func normalize(d Data) Data {
	out := Data{
		Version:        d.Version,
		Nodes:          slices.Clone(d.Nodes),
		Edges:          slices.Clone(d.Edges),
		Misconceptions: slices.Clone(d.Misconceptions),
		Cascades:       make([]Cascade, len(d.Cascades)),
	}
	for i := range out.Nodes {
		n := &out.Nodes[i]
		if n.Severity == 0 {
			n.Severity = DefaultSeverity
		}
		if n.QuestionsRequired == 0 {
			n.QuestionsRequired = DefaultQuestionsRequired
		}
		if n.ConfidenceThreshold == 0 {
			n.ConfidenceThreshold = DefaultConfidenceThreshold
		}
	}
	for i := range out.Edges {
		e := &out.Edges[i]
		if e.Relationship == "" {
			e.Relationship = RelRequires
		}
		if e.Weight == 0 {
			e.Weight = DefaultEdgeWeight
		}
	}
	for i, c := range d.Cascades {
		c.Nodes = slices.Clone(c.Nodes)
		if c.EntryNode == "" && len(c.Nodes) > 0 {
			c.EntryNode = c.Nodes[0]
		}
		out.Cascades[i] = c
	}
	return out
}

// sortEdges orders edges by relationship strength, weight descending, then
// the given endpoint code.
func sortEdges(edges []Edge, endpoint func(Edge) string) {
	slices.SortFunc(edges, func(a, b Edge) int {
		if c := cmp.Compare(a.Relationship.rank(), b.Relationship.rank()); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Weight, a.Weight); c != 0 {
			return c
		}
		return cmp.Compare(endpoint(a), endpoint(b))
	})
}

// buildTopoOrder computes a deterministic topological order (Kahn's
// algorithm) with prerequisites before dependents.
func (g *Graph) buildTopoOrder(nodes []Node) {
	inDegree := make(map[string]int, len(nodes))
	for _, n := range nodes {
		inDegree[n.Code] = len(g.prereqs[n.Code])
	}

	var queue []string
	for code, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, code)
		}
	}
	// Sort initial queue for deterministic ordering
	sort.Strings(queue)

	for len(queue) > 0 {
		code := queue[0]
		queue = queue[1:]
		g.topoOrder = append(g.topoOrder, code)

		deps := make([]string, 0, len(g.dependents[code]))
		for _, e := range g.dependents[code] {
			deps = append(deps, e.Source)
		}
		sort.Strings(deps)
		for _, dep := range deps {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	for i, code := range g.topoOrder {
		g.topoIndex[code] = i
	}
}

// Version returns the curriculum version string, empty if unversioned.
func (g *Graph) Version() string {
	return g.version
}

// Node returns a node by code, or error if not found.
func (g *Graph) Node(code string) (Node, error) {
	i, ok := g.index[code]
	if !ok {
		return Node{}, fmt.Errorf("curriculum node not found: %q", code)
	}
	return g.nodes[i], nil
}

// Has reports whether the code names a loaded node.
func (g *Graph) Has(code string) bool {
	_, ok := g.index[code]
	return ok
}

// Nodes returns all nodes in curriculum order.
func (g *Graph) Nodes() []Node {
	return slices.Clone(g.nodes)
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Severity returns the node's severity.
func (g *Graph) Severity(code string) (int, bool) {
	i, ok := g.index[code]
	if !ok {
		return 0, false
	}
	return g.nodes[i].Severity, true
}

// Domain returns the node's strand.
func (g *Graph) Domain(code string) (Strand, bool) {
	i, ok := g.index[code]
	if !ok {
		return "", false
	}
	return g.nodes[i].Strand, true
}

// Strands returns every strand present in the curriculum, in first-seen
// curriculum order.
func (g *Graph) Strands() []Strand {
	var out []Strand
	for _, n := range g.nodes {
		if !slices.Contains(out, n.Strand) {
			out = append(out, n.Strand)
		}
	}
	return out
}

// Prerequisites returns the direct prerequisite edges of a node, strongest first.
func (g *Graph) Prerequisites(code string) []Edge {
	return slices.Clone(g.prereqs[code])
}

// Dependents returns the edges of nodes that directly depend on code.
func (g *Graph) Dependents(code string) []Edge {
	return slices.Clone(g.dependents[code])
}

// IsRoot reports whether the node has no prerequisites.
func (g *Graph) IsRoot(code string) bool {
	return len(g.prereqs[code]) == 0
}

// Misconceptions returns the misconceptions attached to a node.
func (g *Graph) Misconceptions(code string) []Misconception {
	return slices.Clone(g.misconceptions[code])
}

// Cascades returns all cascade patterns.
func (g *Graph) Cascades() []Cascade {
	out := make([]Cascade, len(g.cascades))
	for i, c := range g.cascades {
		c.Nodes = slices.Clone(c.Nodes)
		out[i] = c
	}
	return out
}

// TopologicalOrder returns node codes with every prerequisite before its dependents.
func (g *Graph) TopologicalOrder() []string {
	return slices.Clone(g.topoOrder)
}

// ByStrand returns the nodes of a strand in curriculum order.
func (g *Graph) ByStrand(strand Strand) []Node {
	var out []Node
	for _, n := range g.nodes {
		if n.Strand == strand {
			out = append(out, n)
		}
	}
	return out
}

// ByGrade returns the nodes at a grade level in curriculum order.
func (g *Graph) ByGrade(grade int) []Node {
	var out []Node
	for _, n := range g.nodes {
		if n.GradeLevel == grade {
			out = append(out, n)
		}
	}
	return out
}
