package session

import (
	"fmt"

	"github.com/abhisek/rootcause/internal/analyzer"
	"github.com/abhisek/rootcause/internal/profile"
)

type stepKey struct {
	status  Status
	outcome analyzer.Outcome
}

// stepFunc advances a session after the node's result was recorded.
type stepFunc func(o *Orchestrator, s *Session, code string) error

// stepTable dispatches on (status, outcome). A missing entry means the
// session cannot accept an answer in that status.
var stepTable map[stepKey]stepFunc

func init() {
	stepTable = map[stepKey]stepFunc{
		{StatusScreening, analyzer.Mastered}:  advanceScreening,
		{StatusScreening, analyzer.Gap}:       beginTrace,
		{StatusScreening, analyzer.Uncertain}: reprobe,
		{StatusTracing, analyzer.Mastered}:    traceFromAncestors,
		{StatusTracing, analyzer.Gap}:         traceFromGap,
		{StatusTracing, analyzer.Uncertain}:   reprobe,
	}
}

func dispatch(o *Orchestrator, s *Session, code string, outcome analyzer.Outcome) error {
	step, ok := stepTable[stepKey{s.Status, outcome}]
	if !ok {
		return fmt.Errorf("session %s: no step for %s in %s: %w", s.ID, outcome, s.Status, ErrInvalidState)
	}
	return step(o, s, code)
}

// apply records one classification against the pending node and advances
// the session. It does no I/O.
func (o *Orchestrator) apply(s *Session, code string, c analyzer.Classification) error {
	r := s.result(code)
	if r.Attempts == 0 {
		r.Depth = s.PendingDepth
		r.Parent = s.PendingParent
	}
	r.Attempts++
	s.ProbeCount++

	if c.Failed {
		r.Failures++
	} else {
		r.Failures = 0
	}

	r.Outcome = c.Outcome
	r.Confidence = c.Confidence
	r.Misconception = ""
	if c.Outcome == analyzer.Gap {
		r.Misconception = c.MisconceptionID
	}
	if c.Outcome == analyzer.Uncertain {
		r.Uncertains++
	}

	if r.Failures >= o.cfg.MaxConsecutiveFailures {
		s.NeedsHumanReview = true
		analyzerEscalations.Inc()
		if err := o.conclude(s, profile.ReasonNeedsReview); err != nil {
			return err
		}
		o.updateRunningConfidence(s)
		return nil
	}

	settled, err := o.settled(code, r, c)
	if err != nil {
		return err
	}
	if settled {
		if err := dispatch(o, s, code, c.Outcome); err != nil {
			return err
		}
	}
	o.updateRunningConfidence(s)

	if !s.Status.Terminal() && s.ProbeCount >= o.cfg.ProbeBudget {
		return o.conclude(s, profile.ReasonBudgetExhausted)
	}
	return nil
}

// settled reports whether a decided outcome may advance the session. One
// below the node's confidence threshold keeps the node pending until it
// was asked QuestionsRequired times; the last answer then stands.
func (o *Orchestrator) settled(code string, r *NodeResult, c analyzer.Classification) (bool, error) {
	if c.Outcome == analyzer.Uncertain {
		return true, nil
	}
	n, err := o.graph.Node(code)
	if err != nil {
		return false, err
	}
	if c.Confidence >= n.ConfidenceThreshold || r.Attempts >= n.QuestionsRequired {
		return true, nil
	}
	lowConfidenceRepeats.Inc()
	return false, nil
}

func advanceScreening(o *Orchestrator, s *Session, _ string) error {
	if len(s.Queue) == 0 {
		// Screening stops at the first gap, so an exhausted queue means
		// every probe was mastered.
		return o.conclude(s, profile.ReasonExpectedLevel)
	}
	s.setPending(s.Queue[0], 0, "")
	s.Queue = s.Queue[1:]
	return nil
}

func beginTrace(o *Orchestrator, s *Session, code string) error {
	t, err := s.transition(StatusTracing, "gap")
	if err != nil {
		return err
	}
	o.logTransition(t)
	s.Origin = code
	s.Results[code].Depth = 0
	s.Results[code].Parent = ""
	return traceFromGap(o, s, code)
}

// traceFromGap moves below a gap to its nearest untested prerequisite. A
// gap with none left is where the trace ends.
func traceFromGap(o *Orchestrator, s *Session, code string) error {
	if next, ok := o.traceCandidate(s, code); ok {
		s.setPending(next.code, next.depth, next.parent)
		return nil
	}
	return o.conclude(s, o.gapConclusion(s, code))
}

// traceFromAncestors follows a mastered node back up its chain of gaps and
// resumes at the first ancestor that still has an untested prerequisite.
func traceFromAncestors(o *Orchestrator, s *Session, code string) error {
	at := s.Results[code].Parent
	for range len(s.Tested) {
		if at == "" {
			break
		}
		if next, ok := o.traceCandidate(s, at); ok {
			s.setPending(next.code, next.depth, next.parent)
			return nil
		}
		at = s.Results[at].Parent
	}
	return o.conclude(s, o.traceConclusion(s))
}

// reprobe keeps the node pending until it collected QuestionsRequired
// uncertain answers, then settles it as a fallback gap.
func reprobe(o *Orchestrator, s *Session, code string) error {
	r := s.Results[code]
	n, err := o.graph.Node(code)
	if err != nil {
		return err
	}
	if r.Uncertains < n.QuestionsRequired {
		return nil
	}
	r.Outcome = analyzer.Gap
	r.Confidence = 0
	r.Fallback = true
	fallbackGaps.Inc()
	return dispatch(o, s, code, analyzer.Gap)
}

type traceCandidate struct {
	code   string
	depth  int
	parent string
}

// traceCandidate returns the nearest untested prerequisite below the gap
// at from. The walk only passes through gaps: a mastered prerequisite
// clears what lies beneath it.
func (o *Orchestrator) traceCandidate(s *Session, from string) (traceCandidate, bool) {
	fr := s.Results[from]
	for _, st := range o.graph.TraceDepths(from, o.cfg.MaxDepth-fr.Depth) {
		if s.tested(st.Code) {
			continue
		}
		via, ok := s.Results[st.Via]
		if !ok || via.Outcome != analyzer.Gap {
			continue
		}
		if via.Depth+1 > o.cfg.MaxDepth {
			continue
		}
		return traceCandidate{code: st.Code, depth: via.Depth + 1, parent: st.Via}, true
	}
	return traceCandidate{}, false
}

// gapConclusion names why the trace ended at the gap code.
func (o *Orchestrator) gapConclusion(s *Session, code string) string {
	switch {
	case o.graph.IsRoot(code):
		return profile.ReasonBottomedOut
	case s.Results[code].Depth >= o.cfg.MaxDepth:
		return profile.ReasonDepthExhausted
	default:
		return profile.ReasonRootConfirmed
	}
}

// traceConclusion names why tracing ran out of probes, judged at the
// deepest gap.
func (o *Orchestrator) traceConclusion(s *Session) string {
	deepest := s.Origin
	for _, code := range s.Tested {
		r := s.Results[code]
		if r.Outcome == analyzer.Gap && r.Depth > s.Results[deepest].Depth {
			deepest = code
		}
	}
	return o.gapConclusion(s, deepest)
}

func (o *Orchestrator) conclude(s *Session, reason string) error {
	t, err := s.transition(StatusConcluded, "concluded:"+reason)
	if err != nil {
		return err
	}
	s.Reason = reason
	s.setPending("", 0, "")
	s.Queue = nil
	o.logTransition(t)
	sessionsConcluded.WithLabelValues(reason).Inc()
	return nil
}

// updateRunningConfidence averages settled results, crediting fallback
// gaps with the profiler's fallback step confidence.
func (o *Orchestrator) updateRunningConfidence(s *Session) {
	var (
		sum float64
		n   int
	)
	for _, code := range s.Tested {
		r := s.Results[code]
		switch {
		case r.Fallback:
			sum += o.profiler.Config().FallbackStepConfidence
		case r.Outcome == analyzer.Uncertain:
			continue
		default:
			sum += r.Confidence
		}
		n++
	}
	if n > 0 {
		s.RunningConfidence = sum / float64(n)
	}
}
