package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/abhisek/rootcause/internal/analyzer"
)

func spanAttr(s sdktrace.ReadOnlySpan, key attribute.Key) string {
	for _, kv := range s.Attributes() {
		if kv.Key == key {
			return kv.Value.Emit()
		}
	}
	return ""
}

func TestSession_RecordsSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { tp.Shutdown(context.Background()) })

	h := newHarness(t, chainGraph(t), script(map[string]analyzer.Outcome{"P2": analyzer.Mastered}),
		DefaultConfig(), WithTracerProvider(tp))
	id := h.create(t, 2)
	h.answer(t, id)

	_, err := h.SubmitResponse(context.Background(), id, "P2", "again", "other-key")
	require.ErrorIs(t, err, ErrUnexpectedNode)

	spans := rec.Ended()
	require.Len(t, spans, 3)
	assert.Equal(t, "Orchestrator.CreateSession", spans[0].Name())
	assert.Equal(t, "2", spanAttr(spans[0], "entry.grade"))
	assert.Equal(t, "Orchestrator.SubmitResponse", spans[1].Name())
	assert.Equal(t, codes.Unset, spans[1].Status().Code)
	assert.Equal(t, "P2", spanAttr(spans[1], "node.code"))
	assert.Equal(t, codes.Error, spans[2].Status().Code)
	for _, s := range spans {
		assert.Equal(t, id, spanAttr(s, "session.id"))
	}
}
