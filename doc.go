// Package foundations is the root of an MCP (Model Context Protocol) SDK
// with a set of tutorial demo domains built on top of it.
//
// The SDK lives under pkg/:
//
//   - pkg/protocol: JSON-RPC 2.0 envelope and the MCP message types
//   - pkg/transport: stdio and in-process transports with middleware
//   - pkg/server: provider-based server with resource subscriptions
//   - pkg/client: client with typed helpers for every operation
//   - pkg/errors: structured domain errors mapped to wire codes
//   - pkg/logging: structured logging used across the SDK
//   - pkg/pagination: cursor helpers for paginated listings
//   - pkg/observability: Prometheus metrics and OpenTelemetry tracing
//
// The demo domains show the SDK in use:
//
//   - pkg/hello: greeting tools and informational resources
//   - pkg/tasks: a task manager with analytics, reports and live updates
//   - pkg/smarthome: a multi-agent home simulation on a message bus
//
// Runnable programs for each demo are under examples/.
//
// A minimal server:
//
//	t := transport.NewStdioTransport(os.Stdin, os.Stdout, logger)
//	s := server.New(t,
//	    server.WithName("hello-server"),
//	    server.WithToolsProvider(hello.NewToolsProvider()),
//	)
//	if err := s.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// And a client for it:
//
//	c := client.New(transport.NewStdioTransport(r, w, logger))
//	if err := c.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	result, err := c.CallTool(ctx, "greet", map[string]string{"name": "Alice"})
package foundations
