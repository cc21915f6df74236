package telemetry

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestNewTracerProvider_ExportsOnShutdown(t *testing.T) {
	var buf bytes.Buffer
	tp, err := NewTracerProvider(&buf, "v0.0.1")
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "Orchestrator.SubmitResponse")
	span.End()

	require.NoError(t, tp.Shutdown(context.Background()))
	assert.Contains(t, buf.String(), "Orchestrator.SubmitResponse")
	assert.Contains(t, buf.String(), "rootcause")
	assert.Contains(t, buf.String(), "v0.0.1")
}

func TestStart_WritesTraceFile(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	path := filepath.Join(t.TempDir(), "trace.jsonl")
	tp, shutdown, err := Start(path, "dev")
	require.NoError(t, err)
	assert.Same(t, tp, otel.GetTracerProvider())

	_, span := otel.Tracer("test").Start(context.Background(), "Analyzer.Analyze")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Analyzer.Analyze")
}

func TestStart_BadPath(t *testing.T) {
	_, _, err := Start(filepath.Join(t.TempDir(), "missing", "trace.jsonl"), "dev")
	assert.Error(t, err)
}
