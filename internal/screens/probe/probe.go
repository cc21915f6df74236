// Package probe runs an open diagnostic session: it shows the pending
// probe, submits answers and shows each classification until the session
// concludes.
package probe

import (
	"context"
	"errors"

	tea "charm.land/bubbletea/v2"
	"github.com/google/uuid"

	"github.com/abhisek/rootcause/internal/router"
	"github.com/abhisek/rootcause/internal/screen"
	"github.com/abhisek/rootcause/internal/screens/report"
	sess "github.com/abhisek/rootcause/internal/session"
	"github.com/abhisek/rootcause/internal/ui/components"
	"github.com/abhisek/rootcause/internal/ui/layout"
)

type phase int

const (
	phaseAnswering phase = iota
	phaseSubmitting
	phaseFeedback
	phaseConfirmQuit
)

// ProbeScreen implements screen.Screen for an open session.
type ProbeScreen struct {
	engine    screen.Engine
	sessionID string
	probe     *sess.Probe
	budget    int
	probes    int

	input components.TextInput
	phase phase
	last  *sess.Result

	// key is reused when a submission fails in transit so the retry is
	// deduplicated by the orchestrator.
	key    string
	errMsg string
}

var _ screen.Screen = (*ProbeScreen)(nil)
var _ screen.KeyHintProvider = (*ProbeScreen)(nil)
var _ screen.StatusProvider = (*ProbeScreen)(nil)

// New creates a ProbeScreen for the session positioned at first.
func New(engine screen.Engine, sessionID string, first *sess.Probe, budget int) *ProbeScreen {
	return &ProbeScreen{
		engine:    engine,
		sessionID: sessionID,
		probe:     first,
		budget:    budget,
		input:     components.NewTextInput("Type the learner's answer...", false, 200),
	}
}

func (s *ProbeScreen) Init() tea.Cmd {
	return s.input.Init()
}

func (s *ProbeScreen) Title() string {
	return "Diagnostic"
}

func (s *ProbeScreen) Status() layout.Status {
	st := layout.Status{Probes: s.probes, Budget: s.budget}
	switch {
	case s.last != nil && s.last.Status.Terminal():
		st.Phase = string(s.last.Status)
	case s.probe != nil:
		st.Phase = string(s.probe.Phase)
	}
	return st
}

func (s *ProbeScreen) KeyHints() []layout.KeyHint {
	switch s.phase {
	case phaseConfirmQuit:
		return []layout.KeyHint{
			{Key: "Y", Description: "Abandon session"},
			{Key: "N", Description: "Keep going"},
		}
	case phaseFeedback:
		return []layout.KeyHint{{Key: "any key", Description: "Continue"}}
	case phaseSubmitting:
		return nil
	}
	return []layout.KeyHint{
		{Key: "Enter", Description: "Submit"},
		{Key: "Esc", Description: "Abandon"},
	}
}

func (s *ProbeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case submittedMsg:
		return s.handleSubmitted(msg)

	case refreshedMsg:
		s.phase = phaseAnswering
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
			return s, nil
		}
		s.probe = msg.Probe
		s.input.Reset()
		return s, nil

	case abandonedMsg:
		if msg.Err != nil {
			s.phase = phaseAnswering
			s.errMsg = msg.Err.Error()
			return s, nil
		}
		return s, func() tea.Msg { return router.PopScreenMsg{} }

	case tea.KeyPressMsg:
		return s.handleKey(msg)
	}

	if s.phase == phaseAnswering {
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		return s, cmd
	}
	return s, nil
}

func (s *ProbeScreen) handleKey(msg tea.KeyPressMsg) (screen.Screen, tea.Cmd) {
	switch s.phase {
	case phaseSubmitting:
		return s, nil

	case phaseConfirmQuit:
		switch msg.String() {
		case "y", "Y":
			s.phase = phaseSubmitting
			return s, s.abandon()
		case "n", "N", "esc":
			s.phase = phaseAnswering
		}
		return s, nil

	case phaseFeedback:
		return s.advance()
	}

	switch msg.String() {
	case "enter":
		raw := s.input.Value()
		if raw == "" || s.probe == nil {
			return s, nil
		}
		if s.key == "" {
			s.key = uuid.NewString()
		}
		s.errMsg = ""
		s.phase = phaseSubmitting
		return s, s.submit(s.probe.NodeCode, raw, s.key)
	case "esc":
		s.phase = phaseConfirmQuit
		return s, nil
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *ProbeScreen) handleSubmitted(msg submittedMsg) (screen.Screen, tea.Cmd) {
	if msg.Err != nil {
		// The session moved on without us; drop the key and re-read the
		// pending probe.
		if errors.Is(msg.Err, sess.ErrStaleSubmission) || errors.Is(msg.Err, sess.ErrUnexpectedNode) {
			s.key = ""
			return s, s.refresh()
		}
		s.phase = phaseAnswering
		s.errMsg = msg.Err.Error()
		return s, nil
	}

	s.key = ""
	s.last = msg.Result
	s.probes = msg.Result.ProbeCount
	s.phase = phaseFeedback
	return s, nil
}

// advance leaves the feedback view: on to the next probe, or to the report
// once the session concluded.
func (s *ProbeScreen) advance() (screen.Screen, tea.Cmd) {
	res := s.last
	switch {
	case res.Profile != nil:
		next := report.New(res.Profile)
		return s, func() tea.Msg { return router.ReplaceScreenMsg{Screen: next} }
	case res.Next != nil:
		s.probe = res.Next
		s.phase = phaseAnswering
		s.input.Reset()
		return s, nil
	default:
		return s, func() tea.Msg { return router.PopScreenMsg{} }
	}
}

func (s *ProbeScreen) submit(node, raw, key string) tea.Cmd {
	return func() tea.Msg {
		res, err := s.engine.SubmitResponse(context.Background(), s.sessionID, node, raw, key)
		return submittedMsg{Result: res, Err: err}
	}
}

func (s *ProbeScreen) refresh() tea.Cmd {
	return func() tea.Msg {
		p, err := s.engine.CurrentProbe(context.Background(), s.sessionID)
		return refreshedMsg{Probe: p, Err: err}
	}
}

func (s *ProbeScreen) abandon() tea.Cmd {
	return func() tea.Msg {
		return abandonedMsg{Err: s.engine.Abandon(context.Background(), s.sessionID)}
	}
}
