// Package analyzer turns a learner's raw probe response into a
// classification the session orchestrator can act on. It owns the timeout
// and fallback policy around the external classification capability.
package analyzer

import (
	"context"

	"github.com/abhisek/rootcause/internal/skillgraph"
)

// Outcome is the verdict on one probe.
type Outcome string

const (
	Mastered  Outcome = "mastered"
	Gap       Outcome = "gap"
	Uncertain Outcome = "uncertain"
)

// Valid reports whether o is one of the three known outcomes.
func (o Outcome) Valid() bool {
	switch o {
	case Mastered, Gap, Uncertain:
		return true
	}
	return false
}

// Classification sources.
const (
	SourceRuleDontKnow = "rule:dont-know"
	SourceRuleExpected = "rule:expected-answer"
	SourceFallback     = "fallback"
)

// ProbeContext is everything a classifier may look at besides the raw text.
type ProbeContext struct {
	SessionID      string
	NodeCode       string
	NodeName       string
	Description    string
	Prompt         string
	ExpectedAnswer string
	Grade          int
	Strand         skillgraph.Strand

	// Attempt counts probes of this node so far, starting at 1.
	Attempt int

	// Misconceptions are the candidates attached to the node. A returned
	// misconception ID outside this list is dropped.
	Misconceptions []skillgraph.Misconception
}

// Classification is the analyzer's verdict on one response.
type Classification struct {
	Outcome         Outcome `json:"outcome"`
	MisconceptionID string  `json:"misconception_id,omitempty"`
	Confidence      float64 `json:"confidence"`
	Source          string  `json:"source"`
	Reasoning       string  `json:"reasoning,omitempty"`

	// Failed marks a verdict produced because the capability errored,
	// timed out or answered out of contract.
	Failed bool `json:"failed,omitempty"`
}

// Classifier is the external classification capability.
type Classifier interface {
	Classify(ctx context.Context, pc ProbeContext, raw string) (Classification, error)
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(ctx context.Context, pc ProbeContext, raw string) (Classification, error)

func (f ClassifierFunc) Classify(ctx context.Context, pc ProbeContext, raw string) (Classification, error) {
	return f(ctx, pc, raw)
}
