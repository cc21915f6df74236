package profile

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/rootcause/internal/analyzer"
	"github.com/abhisek/rootcause/internal/skillgraph"
)

// Profiler builds gap profiles against one curriculum graph.
type Profiler struct {
	graph *skillgraph.Graph
	cfg   Config
	now   func() time.Time
	newID func() string
}

// Option configures a Profiler.
type Option func(*Profiler)

// WithClock overrides the profile timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Profiler) { p.now = now }
}

// WithIDGenerator overrides profile ID generation.
func WithIDGenerator(fn func() string) Option {
	return func(p *Profiler) { p.newID = fn }
}

// NewProfiler creates a Profiler.
func NewProfiler(g *skillgraph.Graph, cfg Config, opts ...Option) *Profiler {
	p := &Profiler{
		graph: g,
		cfg:   cfg,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Build aggregates a concluded session into a GapProfile.
func (p *Profiler) Build(in Input) (*GapProfile, error) {
	steps := make(map[string]Step, len(in.Steps))
	for _, s := range in.Steps {
		if !p.graph.Has(s.Code) {
			return nil, fmt.Errorf("profile session %s: unknown node %q", in.SessionID, s.Code)
		}
		if _, dup := steps[s.Code]; dup {
			return nil, fmt.Errorf("profile session %s: node %q recorded twice", in.SessionID, s.Code)
		}
		steps[s.Code] = s
	}
	if in.Origin != "" {
		if s, ok := steps[in.Origin]; !ok || s.Outcome != analyzer.Gap {
			return nil, fmt.Errorf("profile session %s: origin %q is not a recorded gap", in.SessionID, in.Origin)
		}
	}

	gp := &GapProfile{
		ID:                p.newID(),
		SessionID:         in.SessionID,
		SubjectID:         in.SubjectID,
		Domain:            in.Domain,
		CurriculumVersion: p.graph.Version(),
		Reason:            in.Reason,
		MasteredNodes:     []string{},
		GapNodes:          []string{},
		UncertainNodes:    []string{},
		SecondaryGaps:     []string{},
		ProbeCount:        in.ProbeCount,
		NeedsHumanReview:  in.NeedsHumanReview,
		CreatedAt:         p.now().UTC(),
	}

	gaps := make(map[string]bool)
	for _, s := range in.Steps {
		switch s.Outcome {
		case analyzer.Mastered:
			gp.MasteredNodes = append(gp.MasteredNodes, s.Code)
		case analyzer.Gap:
			gp.GapNodes = append(gp.GapNodes, s.Code)
			gaps[s.Code] = true
		default:
			gp.UncertainNodes = append(gp.UncertainNodes, s.Code)
		}
		if s.MisconceptionID != "" && !slices.Contains(gp.Misconceptions, s.MisconceptionID) {
			gp.Misconceptions = append(gp.Misconceptions, s.MisconceptionID)
		}
	}
	slices.Sort(gp.MasteredNodes)
	slices.Sort(gp.GapNodes)
	slices.Sort(gp.UncertainNodes)
	slices.Sort(gp.Misconceptions)

	gp.EstimatedGradeLevel = p.estimateGrade(gp.MasteredNodes)

	if m, ok := p.graph.FindCascadePath(gaps); ok {
		gp.MatchedCascade = &CascadeRef{ID: m.ID, Name: m.Name, Overlap: m.Overlap}
	}

	primary, met := p.primaryGap(in, steps)
	if primary == "" {
		gp.SecondaryGaps = p.bySeverity(gp.GapNodes)
		gp.OverallConfidence = p.meanConfidence(in.Steps)
		gp.LowConfidence = in.Reason != ReasonExpectedLevel
		return gp, nil
	}

	gp.PrimaryGapNode = primary
	gp.TracePath = tracePath(primary, steps)
	if len(gp.TracePath) > 1 {
		gp.RecommendedFocusNode = gp.TracePath[len(gp.TracePath)-2]
	} else {
		gp.RecommendedFocusNode = primary
	}

	var secondary []string
	for _, code := range gp.GapNodes {
		if !slices.Contains(gp.TracePath, code) {
			secondary = append(secondary, code)
		}
	}
	gp.SecondaryGaps = p.bySeverity(secondary)

	var sum float64
	for _, code := range gp.TracePath {
		s := steps[code]
		if s.Fallback {
			gp.FallbackSteps++
			sum += p.cfg.FallbackStepConfidence
			continue
		}
		sum += s.Confidence
	}
	mean := sum / float64(len(gp.TracePath))
	gp.OverallConfidence = mean * max(0, 1-p.cfg.FallbackPenalty*float64(gp.FallbackSteps))

	gp.ForwardImpact = p.graph.ForwardImpact(primary)
	gp.LowConfidence = !met || in.Reason == ReasonBudgetExhausted || in.NeedsHumanReview
	return gp, nil
}

// primaryGap picks the deepest traced gap whose step confidence met its
// node's threshold, falling back to the deepest traced gap. Equal depths
// resolve to the earlier probe. met is false on fallback.
func (p *Profiler) primaryGap(in Input, steps map[string]Step) (code string, met bool) {
	if in.Origin == "" {
		return "", false
	}

	var deepest, deepestMet string
	for _, s := range in.Steps {
		if s.Outcome != analyzer.Gap || !onTrace(s.Code, in.Origin, steps) {
			continue
		}
		if deepest == "" || s.Depth > steps[deepest].Depth {
			deepest = s.Code
		}
		if p.meetsThreshold(s) && (deepestMet == "" || s.Depth > steps[deepestMet].Depth) {
			deepestMet = s.Code
		}
	}
	if deepestMet != "" {
		return deepestMet, true
	}
	return deepest, false
}

func (p *Profiler) meetsThreshold(s Step) bool {
	n, err := p.graph.Node(s.Code)
	if err != nil {
		return false
	}
	conf := s.Confidence
	if s.Fallback {
		conf = p.cfg.FallbackStepConfidence
	}
	return conf >= n.ConfidenceThreshold
}

// onTrace reports whether code links back to origin through gap parents.
func onTrace(code, origin string, steps map[string]Step) bool {
	for hops := 0; hops <= len(steps); hops++ {
		if code == origin {
			return true
		}
		s, ok := steps[code]
		if !ok || s.Parent == "" {
			return false
		}
		code = s.Parent
	}
	return false
}

// tracePath returns origin → primary by following parents.
func tracePath(primary string, steps map[string]Step) []string {
	path := []string{primary}
	for code := steps[primary].Parent; code != "" && len(path) <= len(steps); code = steps[code].Parent {
		path = append(path, code)
	}
	slices.Reverse(path)
	return path
}

func (p *Profiler) bySeverity(codes []string) []string {
	out := slices.Clone(codes)
	if out == nil {
		return []string{}
	}
	slices.SortFunc(out, func(a, b string) int {
		sa, _ := p.graph.Severity(a)
		sb, _ := p.graph.Severity(b)
		if c := cmp.Compare(sb, sa); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return out
}

func (p *Profiler) estimateGrade(mastered []string) *int {
	best := -1
	for _, code := range mastered {
		n, err := p.graph.Node(code)
		if err == nil && n.GradeLevel > best {
			best = n.GradeLevel
		}
	}
	if best < 0 {
		return nil
	}
	return &best
}

// meanConfidence averages the settled steps of a session with no primary
// gap. Uncertain steps do not count.
func (p *Profiler) meanConfidence(steps []Step) float64 {
	var (
		sum float64
		n   int
	)
	for _, s := range steps {
		switch {
		case s.Fallback:
			sum += p.cfg.FallbackStepConfidence
		case s.Outcome == analyzer.Uncertain:
			continue
		default:
			sum += s.Confidence
		}
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Config returns the profiler's confidence policy.
func (p *Profiler) Config() Config {
	return p.cfg
}
