// Package session drives one adaptive diagnostic session: screening probes
// until a gap appears, then backward tracing through prerequisites until
// the root gap is found or a stop condition fires.
package session

import (
	"encoding/json"
	"time"

	"github.com/abhisek/rootcause/internal/analyzer"
	"github.com/abhisek/rootcause/internal/profile"
	"github.com/abhisek/rootcause/internal/skillgraph"
)

// NodeResult is the standing result for one tested node. Outcome places
// the node in exactly one of the mastered/gap/uncertain sets.
type NodeResult struct {
	Outcome    analyzer.Outcome `json:"outcome"`
	Confidence float64          `json:"confidence"`

	// Attempts counts probes of the node; Uncertains counts the ones
	// classified uncertain.
	Attempts   int `json:"attempts"`
	Uncertains int `json:"uncertains"`

	// Failures counts consecutive analyzer failures.
	Failures int `json:"failures"`

	// Fallback is set when the node became a gap after repeated
	// uncertain answers.
	Fallback bool `json:"fallback,omitempty"`

	Depth         int    `json:"depth"`
	Parent        string `json:"parent,omitempty"`
	Misconception string `json:"misconception,omitempty"`
}

// ProbeRecord is the audit entry for one answered probe.
type ProbeRecord struct {
	// Seq is assigned by the repository when the record is persisted.
	Seq            int64                   `json:"seq"`
	NodeCode       string                  `json:"node_code"`
	IdempotencyKey string                  `json:"idempotency_key"`
	Raw            string                  `json:"raw"`
	Classification analyzer.Classification `json:"classification"`
	AnsweredAt     time.Time               `json:"answered_at"`

	// Result is the encoded Result returned for this submission; repeats
	// of the key get these bytes back.
	Result json.RawMessage `json:"result"`
}

// Session is the persisted state of one diagnostic session.
type Session struct {
	ID         string            `json:"id"`
	SubjectID  string            `json:"subject_id"`
	Domain     skillgraph.Strand `json:"domain"`
	EntryGrade int               `json:"entry_grade"`
	Status     Status            `json:"status"`

	Results map[string]*NodeResult `json:"results"`

	// Tested holds node codes in first-probed order.
	Tested []string `json:"tested"`

	// Pending is the node awaiting an answer; empty once terminal.
	Pending string `json:"pending,omitempty"`

	// PendingDepth and PendingParent place Pending on the trace.
	PendingDepth  int    `json:"pending_depth,omitempty"`
	PendingParent string `json:"pending_parent,omitempty"`

	// Queue is the remaining screening order after Pending.
	Queue []string `json:"queue,omitempty"`

	// Origin is the screening node whose gap started tracing.
	Origin string `json:"origin,omitempty"`

	// RootGap is the primary gap of the concluded profile.
	RootGap string `json:"root_gap,omitempty"`

	ProbeCount        int     `json:"probe_count"`
	RunningConfidence float64 `json:"running_confidence"`
	NeedsHumanReview  bool    `json:"needs_human_review"`
	Reason            string  `json:"reason,omitempty"`
	ProfileID         string  `json:"profile_id,omitempty"`

	Probes []ProbeRecord `json:"probes"`

	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`

	// Version increases on every mutation.
	Version int `json:"version"`
}

// Probe is a question the caller should put to the learner.
type Probe struct {
	SessionID string            `json:"session_id"`
	NodeCode  string            `json:"node_code"`
	NodeName  string            `json:"node_name"`
	Prompt    string            `json:"prompt,omitempty"`
	Grade     int               `json:"grade"`
	Strand    skillgraph.Strand `json:"strand"`
	Phase     Status            `json:"phase"`

	// Attempt is 1 for the first probe of a node.
	Attempt int `json:"attempt"`
}

// Result is the outcome of one submission: the next probe while the session
// is open, the gap profile once it concluded.
type Result struct {
	SessionID      string                  `json:"session_id"`
	Status         Status                  `json:"status"`
	Classification analyzer.Classification `json:"classification"`
	Next           *Probe                  `json:"next,omitempty"`
	Profile        *profile.GapProfile     `json:"profile,omitempty"`
	ProbeCount     int                     `json:"probe_count"`
}

func (s *Session) result(code string) *NodeResult {
	r, ok := s.Results[code]
	if !ok {
		r = &NodeResult{}
		s.Results[code] = r
		s.Tested = append(s.Tested, code)
	}
	return r
}

func (s *Session) tested(code string) bool {
	_, ok := s.Results[code]
	return ok
}

func (s *Session) setPending(code string, depth int, parent string) {
	s.Pending = code
	s.PendingDepth = depth
	s.PendingParent = parent
}

// Gaps returns the gap set.
func (s *Session) Gaps() map[string]bool {
	out := make(map[string]bool)
	for code, r := range s.Results {
		if r.Outcome == analyzer.Gap {
			out[code] = true
		}
	}
	return out
}

func (s *Session) probeByKey(key string) (ProbeRecord, bool) {
	for _, p := range s.Probes {
		if p.IdempotencyKey == key {
			return p, true
		}
	}
	return ProbeRecord{}, false
}

// profileInput converts a concluded session for the profiler.
func (s *Session) profileInput() profile.Input {
	steps := make([]profile.Step, 0, len(s.Tested))
	for _, code := range s.Tested {
		r := s.Results[code]
		steps = append(steps, profile.Step{
			Code:            code,
			Outcome:         r.Outcome,
			Confidence:      r.Confidence,
			Fallback:        r.Fallback,
			Depth:           r.Depth,
			Parent:          r.Parent,
			MisconceptionID: r.Misconception,
		})
	}
	return profile.Input{
		SessionID:        s.ID,
		SubjectID:        s.SubjectID,
		Domain:           s.Domain,
		EntryGrade:       s.EntryGrade,
		Reason:           s.Reason,
		Origin:           s.Origin,
		Steps:            steps,
		ProbeCount:       s.ProbeCount,
		NeedsHumanReview: s.NeedsHumanReview,
	}
}
