package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/mcplabs/foundations/pkg/protocol"
	"github.com/mcplabs/foundations/pkg/transport"
)

// TracingMiddleware wraps a transport so every outgoing request and
// notification runs inside an OpenTelemetry span.
type TracingMiddleware struct {
	provider *TracingProvider
}

// NewTracingMiddleware creates tracing middleware backed by a provider.
func NewTracingMiddleware(provider *TracingProvider) transport.Middleware {
	return &TracingMiddleware{provider: provider}
}

// Wrap implements transport.Middleware.
func (tm *TracingMiddleware) Wrap(t transport.Transport) transport.Transport {
	return &tracingTransport{next: t, provider: tm.provider}
}

type tracingTransport struct {
	next     transport.Transport
	provider *TracingProvider
}

func (t *tracingTransport) Initialize(ctx context.Context) error {
	return t.next.Initialize(ctx)
}

func (t *tracingTransport) SendRequest(ctx context.Context, method string, params interface{}) (*protocol.Response, error) {
	ctx, span := t.provider.StartSpan(ctx, "mcp.request",
		attribute.String("rpc.system", "jsonrpc"),
		attribute.String("rpc.method", method),
	)
	resp, err := t.next.SendRequest(ctx, method, params)
	if err == nil && resp != nil {
		span.SetAttributes(attribute.Bool("rpc.jsonrpc.success", resp.Error == nil))
	}
	EndSpan(span, err)
	return resp, err
}

func (t *tracingTransport) SendNotification(ctx context.Context, method string, params interface{}) error {
	ctx, span := t.provider.StartSpan(ctx, "mcp.notification",
		attribute.String("rpc.system", "jsonrpc"),
		attribute.String("rpc.method", method),
		attribute.Bool("rpc.jsonrpc.notification", true),
	)
	err := t.next.SendNotification(ctx, method, params)
	EndSpan(span, err)
	return err
}

func (t *tracingTransport) RegisterRequestHandler(method string, handler transport.RequestHandler) {
	t.next.RegisterRequestHandler(method, handler)
}

func (t *tracingTransport) RegisterNotificationHandler(method string, handler transport.NotificationHandler) {
	t.next.RegisterNotificationHandler(method, handler)
}

func (t *tracingTransport) Start(ctx context.Context) error {
	return t.next.Start(ctx)
}

func (t *tracingTransport) Stop(ctx context.Context) error {
	return t.next.Stop(ctx)
}

func (t *tracingTransport) GenerateID() string {
	return t.next.GenerateID()
}

func (t *tracingTransport) Cleanup() {
	t.next.Cleanup()
}
