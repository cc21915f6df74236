package session

import (
	"errors"
	"testing"

	"github.com/abhisek/rootcause/internal/analyzer"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusCreated, StatusScreening, true},
		{StatusScreening, StatusTracing, true},
		{StatusScreening, StatusConcluded, true},
		{StatusTracing, StatusConcluded, true},
		{StatusTracing, StatusScreening, false},
		{StatusCreated, StatusConcluded, false},
		{StatusScreening, StatusAbandoned, true},
		{StatusTracing, StatusTimedOut, true},
		{StatusConcluded, StatusTracing, false},
		{StatusAbandoned, StatusScreening, false},
		{StatusTimedOut, StatusAbandoned, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	for _, s := range []Status{StatusConcluded, StatusAbandoned, StatusTimedOut} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []Status{StatusCreated, StatusScreening, StatusTracing} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
	if Status("paused").Valid() {
		t.Error("unknown status reported valid")
	}
}

func TestSessionTransition_RejectsInvalid(t *testing.T) {
	s := &Session{ID: "s", Status: StatusConcluded}
	_, err := s.transition(StatusTracing, "gap")
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if s.Status != StatusConcluded {
		t.Errorf("status changed to %s", s.Status)
	}
}

func TestStepTable_CoversOpenStatuses(t *testing.T) {
	for _, st := range []Status{StatusScreening, StatusTracing} {
		for _, o := range []analyzer.Outcome{analyzer.Mastered, analyzer.Gap, analyzer.Uncertain} {
			if _, ok := stepTable[stepKey{st, o}]; !ok {
				t.Errorf("no step for (%s, %s)", st, o)
			}
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	for _, budget := range []int{11, 19} {
		cfg := DefaultConfig()
		cfg.ProbeBudget = budget
		if err := cfg.Validate(); err == nil {
			t.Errorf("budget %d should be rejected", budget)
		}
	}
	cfg := DefaultConfig()
	cfg.MaxDepth = 0
	if err := cfg.Validate(); err == nil {
		t.Error("max depth 0 should be rejected")
	}
}
