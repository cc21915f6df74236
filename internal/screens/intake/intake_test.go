package intake

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/rootcause/internal/router"
	"github.com/abhisek/rootcause/internal/screens/probe"
	sess "github.com/abhisek/rootcause/internal/session"
	"github.com/abhisek/rootcause/internal/skillgraph"
)

type createCall struct {
	subject string
	grade   int
	domain  skillgraph.Strand
}

type fakeEngine struct {
	calls     []createCall
	createErr error
}

func (f *fakeEngine) CreateSession(_ context.Context, subject string, grade int, domain skillgraph.Strand) (string, error) {
	f.calls = append(f.calls, createCall{subject, grade, domain})
	if f.createErr != nil {
		return "", f.createErr
	}
	return "s1", nil
}

func (f *fakeEngine) CurrentProbe(context.Context, string) (*sess.Probe, error) {
	return &sess.Probe{SessionID: "s1", NodeCode: "K.CC.count", Attempt: 1}, nil
}

func (f *fakeEngine) SubmitResponse(context.Context, string, string, string, string) (*sess.Result, error) {
	return nil, errors.New("not used")
}

func (f *fakeEngine) Abandon(context.Context, string) error { return nil }

var strands = []skillgraph.Strand{skillgraph.StrandAddSub, skillgraph.StrandFractions}

func enter() tea.KeyPressMsg { return tea.KeyPressMsg{Code: tea.KeyEnter} }

func typeText(s *IntakeScreen, text string) {
	for _, r := range text {
		s.Update(tea.KeyPressMsg{Code: r, Text: string(r)})
	}
}

func TestFullFlowOpensSession(t *testing.T) {
	eng := &fakeEngine{}
	s := New(eng, strands, 15, Defaults{})
	s.Init()

	typeText(s, "learner-7")
	s.Update(enter())
	if s.step != stepGrade {
		t.Fatalf("step = %d, want grade", s.step)
	}

	typeText(s, "3")
	s.Update(enter())
	if s.step != stepDomain {
		t.Fatalf("step = %d, want domain", s.step)
	}

	s.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	_, cmd := s.Update(enter())
	if !s.busy || cmd == nil {
		t.Fatal("expected a create command")
	}

	msg := cmd()
	if len(eng.calls) != 1 {
		t.Fatalf("create calls = %d", len(eng.calls))
	}
	want := createCall{"learner-7", 3, skillgraph.StrandFractions}
	if eng.calls[0] != want {
		t.Errorf("create = %+v, want %+v", eng.calls[0], want)
	}

	_, cmd = s.Update(msg)
	push, ok := cmd().(router.PushScreenMsg)
	if !ok {
		t.Fatal("expected PushScreenMsg")
	}
	if _, ok := push.Screen.(*probe.ProbeScreen); !ok {
		t.Errorf("pushed %T, want *probe.ProbeScreen", push.Screen)
	}
}

func TestValidation(t *testing.T) {
	s := New(&fakeEngine{}, strands, 15, Defaults{})

	s.Update(enter())
	if s.step != stepSubject || s.errMsg == "" {
		t.Fatalf("empty learner accepted: step %d err %q", s.step, s.errMsg)
	}

	typeText(s, "x")
	s.Update(enter())
	typeText(s, "13")
	s.Update(enter())
	if s.step != stepGrade || !strings.Contains(s.errMsg, "0 to 12") {
		t.Errorf("grade 13 accepted: step %d err %q", s.step, s.errMsg)
	}
}

func TestGradeRejectsLetters(t *testing.T) {
	s := New(&fakeEngine{}, strands, 15, Defaults{SubjectID: "x"})
	s.Update(enter())
	typeText(s, "a4")
	if s.grade.Value() != "4" {
		t.Errorf("grade input = %q, want 4", s.grade.Value())
	}
}

func TestEscGoesBack(t *testing.T) {
	s := New(&fakeEngine{}, strands, 15, Defaults{SubjectID: "x", Grade: 2})
	s.Update(enter())
	s.Update(enter())
	if s.step != stepDomain {
		t.Fatalf("step = %d, want domain", s.step)
	}

	s.Update(tea.KeyPressMsg{Code: tea.KeyEscape})
	if s.step != stepGrade {
		t.Errorf("step = %d, want grade", s.step)
	}
	s.Update(tea.KeyPressMsg{Code: tea.KeyEscape})
	s.Update(tea.KeyPressMsg{Code: tea.KeyEscape})
	if s.step != stepSubject {
		t.Errorf("step = %d, want subject", s.step)
	}
}

func TestDefaultsPrefill(t *testing.T) {
	s := New(&fakeEngine{}, strands, 15, Defaults{SubjectID: "kid", Grade: 4, Domain: skillgraph.StrandFractions})
	if s.subject.Value() != "kid" || s.grade.Value() != "4" {
		t.Errorf("prefill = %q / %q", s.subject.Value(), s.grade.Value())
	}
	if item, _ := s.domain.Current(); item.Value != string(skillgraph.StrandFractions) {
		t.Errorf("domain = %q", item.Value)
	}
}

func TestCreateErrorShown(t *testing.T) {
	eng := &fakeEngine{createErr: errors.New("no screening probes")}
	s := New(eng, strands, 15, Defaults{SubjectID: "x", Grade: 2})
	s.Update(enter())
	s.Update(enter())
	_, cmd := s.Update(enter())

	s.Update(cmd())
	if s.busy {
		t.Error("still busy after error")
	}
	if !strings.Contains(s.View(80, 24), "no screening probes") {
		t.Error("error not rendered")
	}
}
