package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestTracingProviderNoopLifecycle(t *testing.T) {
	provider, err := NewTracingProvider(TracingConfig{
		ServiceName:  "test-service",
		ExporterType: ExporterTypeNoop,
	})
	require.NoError(t, err)

	ctx, span := provider.StartSpan(context.Background(), "mcp.request",
		attribute.String("rpc.method", "tools/list"))
	require.NotNil(t, ctx)
	EndSpan(span, nil)

	ctx2, span2 := provider.StartSpan(ctx, "mcp.request")
	require.NotNil(t, ctx2)
	EndSpan(span2, assert.AnError)

	require.NoError(t, provider.Shutdown(context.Background()))
}

func TestTracingProviderUnknownExporter(t *testing.T) {
	_, err := NewTracingProvider(TracingConfig{
		ServiceName:  "test-service",
		ExporterType: "carrier-pigeon",
	})
	assert.Error(t, err)
}

func TestTracingProviderDefaults(t *testing.T) {
	provider, err := NewTracingProvider(TracingConfig{
		ExporterType: ExporterTypeNoop,
		SampleRate:   2.5,
	})
	require.NoError(t, err)
	require.NoError(t, provider.Shutdown(context.Background()))
}
