package analyzer

import (
	"context"
	"fmt"
	"sync"
)

// ScriptedClassifier answers from a fixed node-to-outcome table. It drives
// simulations and tests; nodes missing from the table are an error.
type ScriptedClassifier struct {
	mu       sync.Mutex
	outcomes map[string]Outcome
	conf     float64
	calls    map[string]int
}

// NewScriptedClassifier creates a classifier that reports every scripted
// outcome with the given confidence.
func NewScriptedClassifier(outcomes map[string]Outcome, confidence float64) *ScriptedClassifier {
	cp := make(map[string]Outcome, len(outcomes))
	for k, v := range outcomes {
		cp[k] = v
	}
	return &ScriptedClassifier{outcomes: cp, conf: confidence, calls: make(map[string]int)}
}

func (s *ScriptedClassifier) Classify(_ context.Context, pc ProbeContext, _ string) (Classification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls[pc.NodeCode]++
	out, ok := s.outcomes[pc.NodeCode]
	if !ok {
		return Classification{}, fmt.Errorf("no scripted outcome for node %q", pc.NodeCode)
	}
	return Classification{Outcome: out, Confidence: s.conf, Source: "scripted"}, nil
}

// Calls returns how many times the node was classified.
func (s *ScriptedClassifier) Calls(code string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[code]
}
