package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap/zaptest"
)

func resetTracing(t *testing.T) {
	t.Cleanup(func() {
		tracer = nil
		otel.SetTracerProvider(noop.NewTracerProvider())
	})
}

func TestInstallTagsSpansWithBridgeIdentity(t *testing.T) {
	resetTracing(t)
	exp := tracetest.NewInMemoryExporter()

	tp, err := install(Config{ServiceName: "imbridge", ServiceVersion: "test"}, sdktrace.WithSyncer(exp),
		attribute.String("imbridge.self_uin", "10000"),
		attribute.String("imbridge.dedup_backend", "memory"),
	)
	require.NoError(t, err)
	defer tp.Shutdown(context.Background())

	_, span := StartSpan(context.Background(), "engine.batch")
	span.End()

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "engine.batch", spans[0].Name)

	attrs := spans[0].Resource.Set()
	uin, ok := attrs.Value("imbridge.self_uin")
	require.True(t, ok)
	assert.Equal(t, "10000", uin.AsString())
	backend, ok := attrs.Value("imbridge.dedup_backend")
	require.True(t, ok)
	assert.Equal(t, "memory", backend.AsString())
	name, ok := attrs.Value("service.name")
	require.True(t, ok)
	assert.Equal(t, "imbridge", name.AsString())
}

func TestNewSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), newSampler(0).Description())
	assert.Equal(t, sdktrace.AlwaysSample().Description(), newSampler(1).Description())
	assert.Contains(t, newSampler(0.25).Description(), "TraceIDRatioBased")
}

func TestInitDisabledKeepsNoopTracer(t *testing.T) {
	resetTracing(t)
	tracer = nil

	cleanup, err := Init(Config{Enabled: false}, zaptest.NewLogger(t))
	require.NoError(t, err)
	cleanup()

	_, span := StartSpan(context.Background(), "engine.item")
	defer span.End()
	assert.False(t, span.SpanContext().IsValid())
}
