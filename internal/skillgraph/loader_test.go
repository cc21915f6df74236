package skillgraph

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const smallCurriculum = `
version: v0.1.0
nodes:
  - {code: a, name: Alpha, strand: fractions, grade: 1}
  - {code: b, name: Beta, strand: fractions, grade: 2, severity: 5}
edges:
  - {source: b, target: a}
cascades:
  - {id: c1, nodes: [a, b]}
`

func TestParse_Small(t *testing.T) {
	g, err := Parse([]byte(smallCurriculum))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Len() != 2 {
		t.Errorf("got %d nodes, want 2", g.Len())
	}
	if sev, _ := g.Severity("b"); sev != 5 {
		t.Errorf("severity = %d, want 5", sev)
	}
	if got := g.BackwardTrace("b", 1); len(got) != 1 || got[0] != "a" {
		t.Errorf("trace = %v, want [a]", got)
	}
}

func TestParse_MalformedDocument(t *testing.T) {
	_, err := Parse([]byte("nodes: [unterminated"))
	var gve *GraphValidationError
	if !errors.As(err, &gve) || !gve.Has(ProblemInvalidFormat) {
		t.Fatalf("expected invalid-format problem, got %v", err)
	}
}

func TestParse_FieldConstraints(t *testing.T) {
	doc := `
version: v1.0.0
nodes:
  - {code: a, strand: fractions, grade: 20}
`
	_, err := Parse([]byte(doc))
	var gve *GraphValidationError
	if !errors.As(err, &gve) || !gve.Has(ProblemInvalidField) {
		t.Fatalf("expected invalid-field problem, got %v", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "nodes[0].name") || !strings.Contains(msg, "nodes[0].grade") {
		t.Errorf("error should name both fields, got: %v", msg)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curriculum.yaml")
	if err := os.WriteFile(path, []byte(smallCurriculum), 0o644); err != nil {
		t.Fatal(err)
	}
	g, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Version() != "v0.1.0" {
		t.Errorf("version = %q", g.Version())
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
