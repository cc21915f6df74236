package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func retryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: 1 * time.Millisecond,
		MaxWait:     10 * time.Millisecond,
		Multiplier:  2.0,
	}
}

var errDown = &ErrProviderUnavailable{Err: errors.New("down")}

func TestRetry(t *testing.T) {
	ok := MockResponse{Content: json.RawMessage(`{"ok":true}`)}
	invalid := MockResponse{Err: &ErrInvalidResponse{Content: json.RawMessage(`bad`), Err: errors.New("bad")}}

	tests := []struct {
		name      string
		responses []MockResponse
		wantErr   bool
		wantCalls int
	}{
		{"first attempt", []MockResponse{ok}, false, 1},
		{"transient then success", []MockResponse{{Err: errDown}, ok}, false, 2},
		{"all attempts fail", []MockResponse{{Err: errDown}, {Err: errDown}, {Err: errDown}}, true, 3},
		{"max tokens not retried", []MockResponse{{Err: &ErrMaxTokensExceeded{}}, ok}, true, 1},
		{"invalid response retried once", []MockResponse{invalid, invalid, ok}, true, 2},
		{"rate limit honours retry-after", []MockResponse{{Err: &ErrRateLimit{RetryAfter: time.Millisecond}}, ok}, false, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockProvider(tt.responses...)
			p := WithRetry(mock, retryConfig(), nil)

			resp, err := p.Generate(context.Background(), Request{})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Generate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && string(resp.Content) != `{"ok":true}` {
				t.Fatalf("unexpected content: %s", resp.Content)
			}
			if mock.CallCount() != tt.wantCalls {
				t.Fatalf("expected %d calls, got %d", tt.wantCalls, mock.CallCount())
			}
		})
	}
}

func TestRetry_ContextCancellation(t *testing.T) {
	mock := NewMockProvider(MockResponse{Err: errDown}, MockResponse{Err: errDown})
	p := WithRetry(mock, RetryConfig{MaxAttempts: 2, InitialWait: time.Hour, MaxWait: time.Hour, Multiplier: 1}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := p.Generate(ctx, Request{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if mock.CallCount() != 1 {
		t.Fatalf("expected 1 call, got %d", mock.CallCount())
	}
}

func TestRetry_Delegates(t *testing.T) {
	p := WithRetry(NewMockProvider(), retryConfig(), nil)
	if p.ModelID() != "mock" || p.Name() != "mock" {
		t.Fatalf("got %q/%q, want mock/mock", p.Name(), p.ModelID())
	}
}
