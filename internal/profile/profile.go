// Package profile turns a concluded diagnostic session into a gap profile:
// the primary (root) gap, the path that led to it, secondary gaps, the
// matched cascade and an overall confidence score.
package profile

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/abhisek/rootcause/internal/analyzer"
	"github.com/abhisek/rootcause/internal/skillgraph"
)

// ErrNotFound is returned by stores when no profile matches.
var ErrNotFound = errors.New("gap profile not found")

// Conclusion reasons.
const (
	ReasonExpectedLevel   = "expected-level"
	ReasonRootConfirmed   = "root-confirmed"
	ReasonBottomedOut     = "bottomed-out"
	ReasonDepthExhausted  = "depth-exhausted"
	ReasonBudgetExhausted = "budget-exhausted"
	ReasonNeedsReview     = "needs-review"
)

// Step is the final result of one tested node, as the profiler sees it.
type Step struct {
	Code       string
	Outcome    analyzer.Outcome
	Confidence float64

	// Fallback marks a gap concluded after repeated uncertain answers.
	Fallback bool

	// Depth is the distance from the trace origin along gap parents; zero
	// for the origin and for screening nodes.
	Depth int

	// Parent is the gap node this node was probed for. Empty for screening
	// nodes and the origin.
	Parent string

	MisconceptionID string
}

// Input is a concluded session.
type Input struct {
	SessionID  string
	SubjectID  string
	Domain     skillgraph.Strand
	EntryGrade int
	Reason     string

	// Origin is the screening node whose gap started tracing, if any.
	Origin string

	// Steps holds one entry per tested node in first-probed order.
	Steps []Step

	ProbeCount       int
	NeedsHumanReview bool
}

// CascadeRef names the cascade matched against a profile's gaps.
type CascadeRef struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Overlap int    `json:"overlap"`
}

// GapProfile is the immutable outcome of a diagnostic session.
type GapProfile struct {
	ID                string            `json:"id"`
	SessionID         string            `json:"session_id"`
	SubjectID         string            `json:"subject_id"`
	Domain            skillgraph.Strand `json:"domain"`
	CurriculumVersion string            `json:"curriculum_version,omitempty"`
	Reason            string            `json:"reason"`

	MasteredNodes  []string `json:"mastered_nodes"`
	GapNodes       []string `json:"gap_nodes"`
	UncertainNodes []string `json:"uncertain_nodes"`

	// PrimaryGapNode is empty when no gap was found.
	PrimaryGapNode       string   `json:"primary_gap_node,omitempty"`
	TracePath            []string `json:"trace_path,omitempty"`
	RecommendedFocusNode string   `json:"recommended_focus_node,omitempty"`
	SecondaryGaps        []string `json:"secondary_gaps"`

	MatchedCascade *CascadeRef `json:"matched_cascade,omitempty"`

	OverallConfidence   float64 `json:"overall_confidence"`
	EstimatedGradeLevel *int    `json:"estimated_grade_level,omitempty"`

	// ForwardImpact lists the skills that depend on the primary gap.
	ForwardImpact  []string `json:"forward_impact,omitempty"`
	Misconceptions []string `json:"misconceptions,omitempty"`

	FallbackSteps    int  `json:"fallback_steps"`
	ProbeCount       int  `json:"probe_count"`
	LowConfidence    bool `json:"low_confidence"`
	NeedsHumanReview bool `json:"needs_human_review"`

	CreatedAt time.Time `json:"created_at"`
}

// Clone returns a deep copy of p.
func (p *GapProfile) Clone() *GapProfile {
	cp := *p
	cp.MasteredNodes = slices.Clone(p.MasteredNodes)
	cp.GapNodes = slices.Clone(p.GapNodes)
	cp.UncertainNodes = slices.Clone(p.UncertainNodes)
	cp.TracePath = slices.Clone(p.TracePath)
	cp.SecondaryGaps = slices.Clone(p.SecondaryGaps)
	cp.ForwardImpact = slices.Clone(p.ForwardImpact)
	cp.Misconceptions = slices.Clone(p.Misconceptions)
	if p.MatchedCascade != nil {
		ref := *p.MatchedCascade
		cp.MatchedCascade = &ref
	}
	if p.EstimatedGradeLevel != nil {
		grade := *p.EstimatedGradeLevel
		cp.EstimatedGradeLevel = &grade
	}
	return &cp
}

// Config holds the confidence policy for fallback steps.
type Config struct {
	// FallbackStepConfidence is the confidence credited to a step that
	// became a gap after repeated uncertain answers.
	FallbackStepConfidence float64 `env:"FALLBACK_STEP_CONFIDENCE"`

	// FallbackPenalty is subtracted from the overall multiplier once per
	// fallback step on the trace path: mean * max(0, 1 - penalty*steps).
	FallbackPenalty float64 `env:"FALLBACK_PENALTY"`
}

// DefaultConfig returns the default confidence policy.
func DefaultConfig() Config {
	return Config{
		FallbackStepConfidence: 0.5,
		FallbackPenalty:        0.15,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.FallbackStepConfidence < 0 || c.FallbackStepConfidence > 1 {
		return fmt.Errorf("fallback step confidence must be in [0, 1], got %f", c.FallbackStepConfidence)
	}
	if c.FallbackPenalty < 0 || c.FallbackPenalty > 1 {
		return fmt.Errorf("fallback penalty must be in [0, 1], got %f", c.FallbackPenalty)
	}
	return nil
}
