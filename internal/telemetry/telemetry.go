// Package telemetry configures OpenTelemetry tracing for the process.
// Finished spans are exported as JSON, one object per span.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const serviceName = "rootcause"

// NewTracerProvider returns a provider that batches finished spans to w.
func NewTracerProvider(w io.Writer, version string) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("create span exporter: %w", err)
	}
	res := resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("service.version", version),
	)
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	), nil
}

// Start appends spans to the file at path and installs the provider as
// the global one. The returned shutdown flushes pending spans and closes
// the file.
func Start(path, version string) (*sdktrace.TracerProvider, func(context.Context) error, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open trace file: %w", err)
	}
	tp, err := NewTracerProvider(f, version)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	otel.SetTracerProvider(tp)

	shutdown := func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), f.Close())
	}
	return tp, shutdown, nil
}
