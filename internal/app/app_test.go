package app

import (
	"context"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/rootcause/internal/screens/intake"
	sess "github.com/abhisek/rootcause/internal/session"
	"github.com/abhisek/rootcause/internal/skillgraph"
)

type nopEngine struct{}

func (nopEngine) CreateSession(context.Context, string, int, skillgraph.Strand) (string, error) {
	return "s1", nil
}
func (nopEngine) CurrentProbe(context.Context, string) (*sess.Probe, error) { return nil, nil }
func (nopEngine) SubmitResponse(context.Context, string, string, string, string) (*sess.Result, error) {
	return nil, nil
}
func (nopEngine) Abandon(context.Context, string) error { return nil }

func testModel() AppModel {
	return newAppModel(Options{
		Engine:   nopEngine{},
		Strands:  []skillgraph.Strand{skillgraph.StrandAddSub},
		Budget:   15,
		Defaults: intake.Defaults{SubjectID: "kid"},
	})
}

func TestCtrlCQuits(t *testing.T) {
	m := testModel()
	_, cmd := m.Update(tea.KeyPressMsg{Code: 'c', Mod: tea.ModCtrl})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestViewTooSmall(t *testing.T) {
	updated, _ := testModel().Update(tea.WindowSizeMsg{Width: 40, Height: 10})
	if f := updated.(AppModel).frame(); !strings.Contains(f, "Terminal too small") {
		t.Errorf("frame:\n%s", f)
	}
}

func TestViewRendersIntake(t *testing.T) {
	updated, _ := testModel().Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	f := updated.(AppModel).frame()
	for _, want := range []string{"rootcause", "New diagnostic", "Learner", "Enter"} {
		if !strings.Contains(f, want) {
			t.Errorf("view missing %q", want)
		}
	}
}
