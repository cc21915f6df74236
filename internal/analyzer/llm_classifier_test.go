package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/abhisek/rootcause/internal/llm"
)

func TestLLMClassifier_Request(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Content: json.RawMessage(`{"outcome":"mastered","misconception_id":null,"confidence":0.88,"reasoning":"Correct sum"}`),
	})
	c := NewLLMClassifier(mock, DefaultLLMClassifierConfig())

	pc := probe("2.NBT.add-regroup")
	pc.ExpectedAnswer = "85"
	got, err := c.Classify(context.Background(), pc, "85")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if got.Outcome != Mastered || got.MisconceptionID != "" || got.Confidence != 0.88 {
		t.Errorf("got %+v", got)
	}

	if mock.CallCount() != 1 {
		t.Fatalf("expected 1 call, got %d", mock.CallCount())
	}
	req := mock.Calls[0]
	if req.Schema != ClassificationSchema {
		t.Error("request should carry the classification schema")
	}
	msg := req.Messages[0].Content
	for _, want := range []string{"What is 47 + 38?", "Expected answer: 85", "Learner's answer: 85", "add-no-carry"} {
		if !strings.Contains(msg, want) {
			t.Errorf("prompt missing %q:\n%s", want, msg)
		}
	}
}

func TestLLMClassifier_NoCandidates(t *testing.T) {
	msg, err := buildClassificationMessage(ProbeContext{NodeCode: "K.CC.count", NodeName: "Counting"}, "50")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(msg, "return null for misconception_id") {
		t.Errorf("prompt should say no candidates:\n%s", msg)
	}
}

func TestLLMClassifier_ProviderError(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrProviderUnavailable{}})
	_, err := NewLLMClassifier(mock, DefaultLLMClassifierConfig()).Classify(context.Background(), probe("n"), "x")
	var unavail *llm.ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestLLMClassifier_SchemaViolation(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`{"outcome":"perhaps","misconception_id":null,"confidence":0.5,"reasoning":"?"}`)})
	_, err := NewLLMClassifier(mock, DefaultLLMClassifierConfig()).Classify(context.Background(), probe("n"), "x")
	var inv *llm.ErrInvalidResponse
	if !errors.As(err, &inv) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
}

func TestScriptedClassifier(t *testing.T) {
	s := NewScriptedClassifier(map[string]Outcome{"a": Gap}, 0.9)
	got, err := s.Classify(context.Background(), ProbeContext{NodeCode: "a"}, "")
	if err != nil || got.Outcome != Gap || got.Confidence != 0.9 {
		t.Fatalf("got %+v, %v", got, err)
	}
	if _, err := s.Classify(context.Background(), ProbeContext{NodeCode: "b"}, ""); err == nil {
		t.Fatal("expected error for unscripted node")
	}
	if s.Calls("a") != 1 || s.Calls("b") != 1 {
		t.Errorf("calls = %d/%d", s.Calls("a"), s.Calls("b"))
	}
}
