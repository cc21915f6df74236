package skillgraph

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/mod/semver"
)

// ProblemKind classifies a single validation failure.
type ProblemKind string

const (
	ProblemDuplicate     ProblemKind = "duplicate"
	ProblemInvalidField  ProblemKind = "invalid-field"
	ProblemDanglingRef   ProblemKind = "dangling-reference"
	ProblemSelfLoop      ProblemKind = "self-loop"
	ProblemCycle         ProblemKind = "cycle"
	ProblemInvalidFormat ProblemKind = "invalid-format"
)

// Problem names one offending node, edge, misconception or cascade.
type Problem struct {
	Kind    ProblemKind
	Subject string // node code, "source -> target", misconception or cascade ID
	Detail  string
}

func (p Problem) String() string {
	return fmt.Sprintf("%s: %s: %s", p.Kind, p.Subject, p.Detail)
}

// GraphValidationError is returned by Load when the curriculum data is
// malformed. It lists every problem found; nothing is silently dropped.
type GraphValidationError struct {
	Problems []Problem
}

func (e *GraphValidationError) Error() string {
	lines := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		lines[i] = p.String()
	}
	return fmt.Sprintf("curriculum graph validation failed:\n  %s", strings.Join(lines, "\n  "))
}

// Has reports whether any problem of the given kind was found.
func (e *GraphValidationError) Has(kind ProblemKind) bool {
	for _, p := range e.Problems {
		if p.Kind == kind {
			return true
		}
	}
	return false
}

type problems []Problem

func (ps *problems) add(kind ProblemKind, subject, format string, args ...any) {
	*ps = append(*ps, Problem{Kind: kind, Subject: subject, Detail: fmt.Sprintf(format, args...)})
}

func edgeLabel(e Edge) string {
	return e.Source + " -> " + e.Target
}

// validate performs all structural checks on normalized data.
func validate(d Data) error {
	var errs problems

	if d.Version != "" && !semver.IsValid(d.Version) {
		errs.add(ProblemInvalidFormat, "version", "%q is not a semantic version (want e.g. v1.2.0)", d.Version)
	}

	idSet := make(map[string]bool, len(d.Nodes))
	for _, n := range d.Nodes {
		if n.Code == "" {
			errs.add(ProblemInvalidField, "(empty)", "node code must not be empty")
			continue
		}
		if idSet[n.Code] {
			errs.add(ProblemDuplicate, n.Code, "duplicate node code")
		}
		idSet[n.Code] = true

		if n.Strand == "" {
			errs.add(ProblemInvalidField, n.Code, "strand must not be empty")
		}
		if n.GradeLevel < 0 {
			errs.add(ProblemInvalidField, n.Code, "grade level must be >= 0, got %d", n.GradeLevel)
		}
		if n.Severity < 1 || n.Severity > 5 {
			errs.add(ProblemInvalidField, n.Code, "severity must be in [1, 5], got %d", n.Severity)
		}
		if n.QuestionsRequired < 1 {
			errs.add(ProblemInvalidField, n.Code, "questions_required must be >= 1, got %d", n.QuestionsRequired)
		}
		if n.ConfidenceThreshold <= 0 || n.ConfidenceThreshold > 1.0 {
			errs.add(ProblemInvalidField, n.Code, "confidence_threshold must be in (0, 1.0], got %f", n.ConfidenceThreshold)
		}
	}

	seenEdge := make(map[[2]string]bool, len(d.Edges))
	for _, e := range d.Edges {
		label := edgeLabel(e)
		if e.Source == e.Target {
			errs.add(ProblemSelfLoop, label, "node cannot be its own prerequisite")
			continue
		}
		if !idSet[e.Source] {
			errs.add(ProblemDanglingRef, label, "source %q does not exist", e.Source)
		}
		if !idSet[e.Target] {
			errs.add(ProblemDanglingRef, label, "target %q does not exist", e.Target)
		}
		if !e.Relationship.valid() {
			errs.add(ProblemInvalidField, label, "unknown relationship %q", e.Relationship)
		}
		if e.Weight < 0 {
			errs.add(ProblemInvalidField, label, "weight must be >= 0, got %f", e.Weight)
		}
		key := [2]string{e.Source, e.Target}
		if seenEdge[key] {
			errs.add(ProblemDuplicate, label, "duplicate edge")
		}
		seenEdge[key] = true
	}

	mcSet := make(map[string]bool, len(d.Misconceptions))
	for _, m := range d.Misconceptions {
		if m.ID == "" {
			errs.add(ProblemInvalidField, "(empty)", "misconception ID must not be empty")
			continue
		}
		if mcSet[m.ID] {
			errs.add(ProblemDuplicate, m.ID, "duplicate misconception ID")
		}
		mcSet[m.ID] = true
		if !idSet[m.NodeCode] {
			errs.add(ProblemDanglingRef, m.ID, "misconception references nonexistent node %q", m.NodeCode)
		}
	}

	cascadeSet := make(map[string]bool, len(d.Cascades))
	for _, c := range d.Cascades {
		if c.ID == "" {
			errs.add(ProblemInvalidField, "(empty)", "cascade ID must not be empty")
			continue
		}
		if cascadeSet[c.ID] {
			errs.add(ProblemDuplicate, c.ID, "duplicate cascade ID")
		}
		cascadeSet[c.ID] = true
		if len(c.Nodes) == 0 {
			errs.add(ProblemInvalidField, c.ID, "cascade has no nodes")
		}
		for _, code := range c.Nodes {
			if !idSet[code] {
				errs.add(ProblemDanglingRef, c.ID, "cascade references nonexistent node %q", code)
			}
		}
		if !slices.Contains(c.Nodes, c.EntryNode) {
			errs.add(ProblemInvalidField, c.ID, "entry node %q is not part of the cascade sequence", c.EntryNode)
		}
	}

	if cyc := cycleNodes(d.Nodes, d.Edges, idSet); len(cyc) > 0 {
		errs.add(ProblemCycle, strings.Join(cyc, ", "), "prerequisite cycle detected involving these nodes")
	}

	if len(errs) > 0 {
		return &GraphValidationError{Problems: errs}
	}
	return nil
}

// cycleNodes runs Kahn's algorithm over well-formed edges and returns the
// codes left with unresolved prerequisites, i.e. nodes on or behind a cycle.
func cycleNodes(nodes []Node, edges []Edge, idSet map[string]bool) []string {
	inDegree := make(map[string]int, len(nodes))
	adjList := make(map[string][]string)
	for _, n := range nodes {
		if _, ok := inDegree[n.Code]; !ok {
			inDegree[n.Code] = 0
		}
	}
	for _, e := range edges {
		if e.Source == e.Target || !idSet[e.Source] || !idSet[e.Target] {
			continue
		}
		inDegree[e.Source]++
		adjList[e.Target] = append(adjList[e.Target], e.Source)
	}

	var queue []string
	for code, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, code)
		}
	}

	visited := 0
	for len(queue) > 0 {
		code := queue[0]
		queue = queue[1:]
		visited++
		for _, dep := range adjList[code] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if visited == len(inDegree) {
		return nil
	}
	var stuck []string
	for code, deg := range inDegree {
		if deg > 0 {
			stuck = append(stuck, code)
		}
	}
	slices.Sort(stuck)
	return stuck
}
