package transport

import (
	"context"

	"github.com/mcplabs/foundations/pkg/protocol"
)

// Middleware wraps a transport to add functionality such as reliability or
// observability.
type Middleware interface {
	// Wrap wraps the given transport.
	Wrap(transport Transport) Transport
}

// MiddlewareFunc adapts a function to the Middleware interface.
type MiddlewareFunc func(Transport) Transport

// Wrap implements Middleware.
func (f MiddlewareFunc) Wrap(t Transport) Transport {
	return f(t)
}

// ChainMiddleware composes middleware so the first listed is outermost.
func ChainMiddleware(middleware ...Middleware) Middleware {
	return MiddlewareFunc(func(transport Transport) Transport {
		for i := len(middleware) - 1; i >= 0; i-- {
			transport = middleware[i].Wrap(transport)
		}
		return transport
	})
}

// middlewareTransport delegates every Transport method to the wrapped
// transport. Middleware embed it and override what they need.
type middlewareTransport struct {
	next Transport
}

func (m *middlewareTransport) Initialize(ctx context.Context) error {
	return m.next.Initialize(ctx)
}

func (m *middlewareTransport) SendRequest(ctx context.Context, method string, params interface{}) (*protocol.Response, error) {
	return m.next.SendRequest(ctx, method, params)
}

func (m *middlewareTransport) SendNotification(ctx context.Context, method string, params interface{}) error {
	return m.next.SendNotification(ctx, method, params)
}

func (m *middlewareTransport) RegisterRequestHandler(method string, handler RequestHandler) {
	m.next.RegisterRequestHandler(method, handler)
}

func (m *middlewareTransport) RegisterNotificationHandler(method string, handler NotificationHandler) {
	m.next.RegisterNotificationHandler(method, handler)
}

func (m *middlewareTransport) Start(ctx context.Context) error {
	return m.next.Start(ctx)
}

func (m *middlewareTransport) Stop(ctx context.Context) error {
	return m.next.Stop(ctx)
}

func (m *middlewareTransport) GenerateID() string {
	return m.next.GenerateID()
}

func (m *middlewareTransport) Cleanup() {
	m.next.Cleanup()
}

// MiddlewareBuilder builds a middleware chain from configuration.
type MiddlewareBuilder struct {
	config TransportConfig
}

// NewMiddlewareBuilder creates a middleware builder.
func NewMiddlewareBuilder(config TransportConfig) *MiddlewareBuilder {
	return &MiddlewareBuilder{config: config}
}

// Build constructs the middleware chain. Innermost middleware come first.
func (mb *MiddlewareBuilder) Build() []Middleware {
	var middleware []Middleware

	if mb.config.Features.EnableReliability {
		middleware = append(middleware, NewReliabilityMiddleware(mb.config.Reliability, mb.config.Logger))
	}
	if mb.config.Features.EnableObservability {
		middleware = append(middleware, NewObservabilityMiddleware(mb.config.Observability, mb.config.Logger))
	}

	return middleware
}
