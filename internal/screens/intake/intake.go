// Package intake collects who is being diagnosed and where to start, then
// opens a diagnostic session.
package intake

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/rootcause/internal/router"
	"github.com/abhisek/rootcause/internal/screen"
	"github.com/abhisek/rootcause/internal/screens/probe"
	"github.com/abhisek/rootcause/internal/session"
	"github.com/abhisek/rootcause/internal/skillgraph"
	"github.com/abhisek/rootcause/internal/ui/components"
	"github.com/abhisek/rootcause/internal/ui/layout"
	"github.com/abhisek/rootcause/internal/ui/theme"
)

type step int

const (
	stepSubject step = iota
	stepGrade
	stepDomain
)

const maxGrade = 12

// sessionCreatedMsg carries the opened session and its first probe.
type sessionCreatedMsg struct {
	ID    string
	Probe *session.Probe
	Err   error
}

// Defaults prefill the form.
type Defaults struct {
	SubjectID string
	Grade     int
	Domain    skillgraph.Strand
}

// IntakeScreen is a three-step form: subject, entry grade, domain.
type IntakeScreen struct {
	engine   screen.Engine
	strands  []skillgraph.Strand
	budget   int
	defaults Defaults

	step    step
	subject components.TextInput
	grade   components.TextInput
	domain  components.Menu
	busy    bool
	errMsg  string
}

var _ screen.Screen = (*IntakeScreen)(nil)
var _ screen.KeyHintProvider = (*IntakeScreen)(nil)

// New creates an intake form over the given strands. budget is shown in
// the probe screen's header.
func New(engine screen.Engine, strands []skillgraph.Strand, budget int, d Defaults) *IntakeScreen {
	s := &IntakeScreen{engine: engine, strands: strands, budget: budget, defaults: d}
	s.reset()
	return s
}

func (s *IntakeScreen) reset() {
	s.step = stepSubject
	s.busy = false
	s.errMsg = ""

	s.subject = components.NewTextInput("learner id", false, 64)
	s.subject.Model.SetValue(s.defaults.SubjectID)

	s.grade = components.NewTextInput("0-12", true, 2)
	if s.defaults.Grade > 0 {
		s.grade.Model.SetValue(fmt.Sprint(s.defaults.Grade))
	}

	items := make([]components.MenuItem, len(s.strands))
	for i, st := range s.strands {
		items[i] = components.MenuItem{Label: skillgraph.StrandDisplayName(st), Value: string(st)}
	}
	s.domain = components.NewMenu(items)
	for i, st := range s.strands {
		if st == s.defaults.Domain {
			s.domain.Selected = i
		}
	}
}

// Init resets the form so a finished session starts a fresh intake.
func (s *IntakeScreen) Init() tea.Cmd {
	s.reset()
	return s.subject.Init()
}

func (s *IntakeScreen) Title() string {
	return "New diagnostic"
}

func (s *IntakeScreen) KeyHints() []layout.KeyHint {
	hints := []layout.KeyHint{{Key: "Enter", Description: "Next"}}
	if s.step == stepDomain {
		hints = []layout.KeyHint{{Key: "↑↓", Description: "Choose"}, {Key: "Enter", Description: "Start"}}
	}
	if s.step > stepSubject {
		hints = append(hints, layout.KeyHint{Key: "Esc", Description: "Back"})
	}
	return append(hints, layout.KeyHint{Key: "Ctrl+C", Description: "Quit"})
}

func (s *IntakeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case sessionCreatedMsg:
		s.busy = false
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
			return s, nil
		}
		next := probe.New(s.engine, msg.ID, msg.Probe, s.budget)
		return s, func() tea.Msg { return router.PushScreenMsg{Screen: next} }

	case tea.KeyPressMsg:
		if s.busy {
			return s, nil
		}
		switch msg.String() {
		case "enter":
			return s.advance()
		case "esc":
			if s.step > stepSubject {
				s.step--
				s.errMsg = ""
			}
			return s, nil
		}
	}

	var cmd tea.Cmd
	switch s.step {
	case stepSubject:
		s.subject, cmd = s.subject.Update(msg)
	case stepGrade:
		s.grade, cmd = s.grade.Update(msg)
	case stepDomain:
		s.domain, cmd = s.domain.Update(msg)
	}
	return s, cmd
}

func (s *IntakeScreen) advance() (screen.Screen, tea.Cmd) {
	s.errMsg = ""
	switch s.step {
	case stepSubject:
		if s.subject.Value() == "" {
			s.errMsg = "Enter a learner id."
			return s, nil
		}
		s.step = stepGrade
	case stepGrade:
		g, err := s.grade.NumericValue()
		if err != nil || g < 0 || g > maxGrade {
			s.errMsg = fmt.Sprintf("Grade must be a number from 0 to %d.", maxGrade)
			return s, nil
		}
		s.step = stepDomain
	case stepDomain:
		item, ok := s.domain.Current()
		if !ok {
			s.errMsg = "Choose a domain."
			return s, nil
		}
		s.busy = true
		grade, _ := s.grade.NumericValue()
		return s, s.create(s.subject.Value(), grade, skillgraph.Strand(item.Value))
	}
	return s, nil
}

func (s *IntakeScreen) create(subject string, grade int, domain skillgraph.Strand) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		id, err := s.engine.CreateSession(ctx, subject, grade, domain)
		if err != nil {
			return sessionCreatedMsg{Err: err}
		}
		p, err := s.engine.CurrentProbe(ctx, id)
		return sessionCreatedMsg{ID: id, Probe: p, Err: err}
	}
}

func (s *IntakeScreen) View(width, height int) string {
	var b strings.Builder

	b.WriteString(theme.Title.Render("Find the root of a learning gap"))
	b.WriteString("\n\n")

	row := func(st step, label, value string) {
		style := theme.Hint
		if st == s.step {
			style = theme.Label
		}
		b.WriteString(style.Render(fmt.Sprintf("  %-8s", label)))
		b.WriteString(" ")
		b.WriteString(value)
		b.WriteString("\n")
	}

	subject := theme.Body.Render(s.subject.Value())
	if s.step == stepSubject {
		subject = s.subject.View()
	}
	row(stepSubject, "Learner", subject)

	if s.step >= stepGrade {
		grade := theme.Body.Render(s.grade.Value())
		if s.step == stepGrade {
			grade = s.grade.View()
		}
		row(stepGrade, "Grade", grade)
	}

	if s.step == stepDomain {
		row(stepDomain, "Domain", "")
		b.WriteString("\n")
		b.WriteString(s.domain.View())
	}

	if s.busy {
		b.WriteString("\n")
		b.WriteString(theme.Hint.Render("  Opening session..."))
	}
	if s.errMsg != "" {
		b.WriteString("\n")
		b.WriteString(theme.ErrorText.Render("  " + s.errMsg))
	}

	card := theme.Card.Width(min(width-4, 72)).Render(b.String())
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, card)
}
