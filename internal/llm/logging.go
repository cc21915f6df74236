package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// RequestEvent is the audit record of one provider call.
type RequestEvent struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// EventLog persists request events. Implemented by the store.
type EventLog interface {
	AppendLLMRequest(ctx context.Context, ev RequestEvent) error
}

// LoggingProvider is a decorator that records every request in an EventLog.
type LoggingProvider struct {
	inner  Provider
	events EventLog
	logger *slog.Logger
}

// WithLogging wraps a Provider with event logging.
func WithLogging(p Provider, events EventLog, logger *slog.Logger) Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingProvider{inner: p, events: events, logger: logger}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)

	ev := RequestEvent{
		Provider:    l.inner.Name(),
		Model:       l.inner.ModelID(),
		Purpose:     PurposeFrom(ctx),
		LatencyMs:   time.Since(start).Milliseconds(),
		Success:     err == nil,
		RequestBody: serializeRequest(req),
	}
	if resp != nil {
		ev.InputTokens = resp.Usage.InputTokens
		ev.OutputTokens = resp.Usage.OutputTokens
		ev.Model = resp.Model
		ev.ResponseBody = string(resp.Content)
	}
	if err != nil {
		ev.ErrorMessage = err.Error()
	}

	// The caller's context may already be done (timeout); the audit write
	// must still land.
	if logErr := l.events.AppendLLMRequest(context.WithoutCancel(ctx), ev); logErr != nil {
		l.logger.Warn("failed to log LLM request event", "provider", ev.Provider, "err", logErr)
	}
	return resp, err
}

func (l *LoggingProvider) Name() string { return l.inner.Name() }

func (l *LoggingProvider) ModelID() string { return l.inner.ModelID() }

// serializeRequest builds a readable transcript of the request.
func serializeRequest(req Request) string {
	var b strings.Builder
	if req.System != "" {
		fmt.Fprintf(&b, "[system]\n%s\n\n", req.System)
	}
	for _, m := range req.Messages {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", m.Role, m.Content)
	}
	if req.Schema != nil {
		if def, err := json.Marshal(req.Schema.Definition); err == nil {
			fmt.Fprintf(&b, "[schema: %s]\n%s\n", req.Schema.Name, def)
		}
	}
	return b.String()
}
