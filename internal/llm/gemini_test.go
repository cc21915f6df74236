package llm

import (
	"testing"

	"google.golang.org/genai"
)

func TestGeminiModelMapping(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"gemini-flash", "gemini-2.0-flash"},
		{"gemini-pro", "gemini-2.0-pro"},
		{"gemini-2.0-flash", "gemini-2.0-flash"},
	}
	for _, tt := range tests {
		if got := resolveModel(tt.input, geminiModels); got != tt.expected {
			t.Errorf("resolveModel(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestGeminiSchema(t *testing.T) {
	schema := geminiSchema(verdictSchema().Definition)

	if schema.Type != genai.TypeObject {
		t.Fatalf("expected OBJECT type, got %s", schema.Type)
	}
	if len(schema.Properties) != 3 {
		t.Fatalf("expected 3 properties, got %d", len(schema.Properties))
	}
	if got := schema.Properties["outcome"]; got.Type != genai.TypeString || len(got.Enum) != 3 {
		t.Fatalf("outcome = %+v, want STRING enum of 3", got)
	}
	if got := schema.Properties["confidence"].Type; got != genai.TypeNumber {
		t.Fatalf("expected NUMBER for confidence, got %s", got)
	}
	tag := schema.Properties["tag"]
	if tag.Type != genai.TypeString || tag.Nullable == nil || !*tag.Nullable {
		t.Fatalf("tag = %+v, want nullable STRING", tag)
	}
	if len(schema.Required) != 2 {
		t.Fatalf("expected 2 required fields, got %d", len(schema.Required))
	}
}

func TestGeminiSchema_Arrays(t *testing.T) {
	schema := geminiSchema(map[string]any{
		"type":  "array",
		"items": map[string]any{"type": "integer"},
	})
	if schema.Type != genai.TypeArray || schema.Items.Type != genai.TypeInteger {
		t.Fatalf("got %+v", schema)
	}
}
