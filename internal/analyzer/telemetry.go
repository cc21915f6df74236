package analyzer

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/abhisek/rootcause/internal/analyzer"

// WithTracerProvider sets the provider spans are created from. The global
// provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(a *Analyzer) { a.tracer = tp.Tracer(instrumentationName) }
}

func defaultTracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

func (a *Analyzer) startSpan(ctx context.Context, pc ProbeContext) (context.Context, trace.Span) {
	return a.tracer.Start(ctx, "Analyzer.Analyze",
		trace.WithAttributes(
			attribute.String("session.id", pc.SessionID),
			attribute.String("node.code", pc.NodeCode),
			attribute.Int("probe.attempt", pc.Attempt),
		),
	)
}

func endAnalyzeSpan(span trace.Span, c Classification) {
	span.SetAttributes(
		attribute.String("classification.outcome", string(c.Outcome)),
		attribute.String("classification.source", c.Source),
		attribute.Float64("classification.confidence", c.Confidence),
	)
	if c.Failed {
		span.SetStatus(codes.Error, c.Reasoning)
		return
	}
	span.SetStatus(codes.Ok, "")
}
