package observability

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcplabs/foundations/pkg/transport"
)

func TestTracingMiddlewareDelegates(t *testing.T) {
	provider, err := NewTracingProvider(TracingConfig{
		ServiceName:  "test-service",
		ExporterType: ExporterTypeNoop,
	})
	require.NoError(t, err)
	defer func() { _ = provider.Shutdown(context.Background()) }()

	clientSide, serverSide := transport.NewInprocPair(nil)
	serverSide.RegisterRequestHandler("ping", func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		return map[string]bool{"ok": true}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = clientSide.Start(ctx) }()
	go func() { _ = serverSide.Start(ctx) }()
	defer func() {
		_ = clientSide.Stop(context.Background())
		_ = serverSide.Stop(context.Background())
	}()

	traced := NewTracingMiddleware(provider).Wrap(clientSide)

	resp, err := traced.SendRequest(ctx, "ping", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Result))

	require.NoError(t, traced.SendNotification(ctx, "notifications/initialized", nil))
}
