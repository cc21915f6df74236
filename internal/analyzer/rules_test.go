package analyzer

import "testing"

func TestNormalizeAnswer(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"85", " 85 ", true},
		{"007", "7", true},
		{"3.50", "3.5", true},
		{".5", "0.5", true},
		{"2/4", "1/2", true},
		{"6/12", "1/2", true},
		{"1/-2", "-1/2", true},
		{"9 r 2", "9R2", true},
		{"9 r 2", "9", false},
		{"4,052", "4052", true},
		{"Yes", "yes.", true},
		{"2/3", "3/5", false},
		{"715", "85", false},
		{"0.45", "0.5", false},
	}
	for _, tt := range tests {
		got := normalizeAnswer(tt.a) == normalizeAnswer(tt.b)
		if got != tt.want {
			t.Errorf("normalize(%q) == normalize(%q): got %v, want %v (%q vs %q)",
				tt.a, tt.b, got, tt.want, normalizeAnswer(tt.a), normalizeAnswer(tt.b))
		}
	}
}

func TestDontKnowRule(t *testing.T) {
	r := &DontKnowRule{}
	for _, raw := range []string{"idk", "I don't know.", "  No idea ", "?"} {
		if out, conf := r.Classify(ProbeContext{}, raw); out != Gap || conf != 0.9 {
			t.Errorf("Classify(%q) = %q, %f; want gap, 0.9", raw, out, conf)
		}
	}
	if out, _ := r.Classify(ProbeContext{}, "I know it's 56"); out != "" {
		t.Errorf("rule should not apply, got %q", out)
	}
}

func TestExpectedAnswerRule(t *testing.T) {
	r := &ExpectedAnswerRule{}
	pc := ProbeContext{ExpectedAnswer: "5/6"}

	if out, conf := r.Classify(pc, "10/12"); out != Mastered || conf != 0.95 {
		t.Errorf("equivalent answer: got %q, %f", out, conf)
	}
	if out, conf := r.Classify(pc, "2/5"); out != Gap || conf != 0.85 {
		t.Errorf("wrong answer: got %q, %f", out, conf)
	}
	if out, _ := r.Classify(pc, "   "); out != "" {
		t.Errorf("blank answer should not apply, got %q", out)
	}
	if out, _ := r.Classify(ProbeContext{}, "42"); out != "" {
		t.Errorf("no expected answer should not apply, got %q", out)
	}
}

func TestRunRules_FirstMatchWins(t *testing.T) {
	pc := ProbeContext{ExpectedAnswer: "idk"}
	out, _, name := runRules(DefaultRules(), pc, "idk")
	if out != Gap || name != SourceRuleDontKnow {
		t.Errorf("got %q from %q, want gap from %q", out, name, SourceRuleDontKnow)
	}
}
