package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// Provider is a structured-output language model backend.
type Provider interface {
	// Generate sends a prompt and returns the model output. When the
	// request carries a Schema, Content is JSON validated against it.
	Generate(ctx context.Context, req Request) (*Response, error)

	// Name returns the provider family, e.g. "anthropic" or "mock".
	Name() string

	// ModelID returns the model identifier requests are sent to.
	ModelID() string
}

// Request describes one generation call.
type Request struct {
	System   string
	Messages []Message

	// Schema, when set, switches the provider to its native structured
	// output mode. When nil, Content is raw text.
	Schema *Schema

	MaxTokens int

	// Temperature in [0, 1]. Zero leaves the provider default.
	Temperature float64
}

// Message is a single conversation turn.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema is a named JSON Schema the response must conform to.
type Schema struct {
	// Name is kebab-case, e.g. "response-classification". It doubles as
	// the schema cache key and the OpenAI schema name.
	Name        string
	Description string
	Definition  map[string]any
}

// Response holds the model output.
type Response struct {
	Content json.RawMessage
	Usage   Usage
	Model   string

	// StopReason is normalized to "end", "max_tokens" or "error".
	StopReason string
}

// Decode unmarshals Content into v. A decode failure is reported as
// *ErrInvalidResponse.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Content, v); err != nil {
		return &ErrInvalidResponse{Content: r.Content, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// finish validates content against the request schema and builds the
// response every adapter returns.
func finish(req Request, content json.RawMessage, usage Usage, model, stop string) (*Response, error) {
	if stop == "max_tokens" {
		return nil, &ErrMaxTokensExceeded{Content: content}
	}
	if err := validateResponse(req.Schema, content); err != nil {
		return nil, err
	}
	return &Response{
		Content:    content,
		Usage:      usage,
		Model:      model,
		StopReason: stop,
	}, nil
}

// resolveModel maps a friendly model name to a provider model ID. Unknown
// names pass through unchanged.
func resolveModel(name string, models map[string]string) string {
	if id, ok := models[name]; ok {
		return id
	}
	return name
}
