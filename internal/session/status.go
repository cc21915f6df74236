package session

import "fmt"

// Status is a session's position in the diagnostic lifecycle.
type Status string

const (
	StatusCreated   Status = "created"
	StatusScreening Status = "screening"
	StatusTracing   Status = "tracing"
	StatusConcluded Status = "concluded"
	StatusAbandoned Status = "abandoned"
	StatusTimedOut  Status = "timed_out"
)

// statusTransitions lists the statuses each status may move to. Terminal
// statuses have no entry.
var statusTransitions = map[Status][]Status{
	StatusCreated:   {StatusScreening, StatusAbandoned, StatusTimedOut},
	StatusScreening: {StatusTracing, StatusConcluded, StatusAbandoned, StatusTimedOut},
	StatusTracing:   {StatusConcluded, StatusAbandoned, StatusTimedOut},
}

// Terminal reports whether the status accepts no further mutation.
func (s Status) Terminal() bool {
	_, ok := statusTransitions[s]
	return !ok
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusCreated, StatusScreening, StatusTracing, StatusConcluded, StatusAbandoned, StatusTimedOut:
		return true
	}
	return false
}

// CanTransition reports whether from → to is allowed.
func CanTransition(from, to Status) bool {
	for _, s := range statusTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// StatusTransition records a status change for logging.
type StatusTransition struct {
	SessionID string
	From      Status
	To        Status
	Trigger   string // "created", "gap", "concluded:<reason>", "abandoned", "idle"
}

func (s *Session) transition(to Status, trigger string) (StatusTransition, error) {
	if !CanTransition(s.Status, to) {
		return StatusTransition{}, fmt.Errorf("session %s: %s -> %s: %w", s.ID, s.Status, to, ErrInvalidState)
	}
	t := StatusTransition{SessionID: s.ID, From: s.Status, To: to, Trigger: trigger}
	s.Status = to
	return t, nil
}
