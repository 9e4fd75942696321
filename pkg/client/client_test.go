package client

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcplabs/foundations/pkg/logging"
	"github.com/mcplabs/foundations/pkg/protocol"
	"github.com/mcplabs/foundations/pkg/server"
	"github.com/mcplabs/foundations/pkg/transport"
)

// newConnectedClient wires a client to a real server over an in-process
// transport pair and completes the handshake.
func newConnectedClient(t *testing.T, serverOptions ...server.ServerOption) *Client {
	t.Helper()

	clientSide, serverSide := transport.NewInprocPair(logging.NewNop())
	srv := server.New(serverSide, serverOptions...)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = srv.Start(ctx) }()

	c := New(clientSide, WithName("test-client"), WithVersion("0.1.0"), WithLogger(logging.NewNop()))

	require.NoError(t, c.Connect(ctx))

	t.Cleanup(func() {
		cancel()
		_ = c.Close()
		_ = srv.Stop()
	})
	return c
}

func echoTools() *server.BaseToolsProvider {
	tools := server.NewBaseToolsProvider()
	tools.RegisterTool(protocol.Tool{Name: "echo", Categories: []string{"util"}},
		func(ctx context.Context, args json.RawMessage) (*protocol.CallToolResult, error) {
			var in struct {
				Text string `json:"text"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, err
			}
			return protocol.NewToolResult(map[string]string{"echo": in.Text})
		})
	return tools
}

func TestConnectNegotiatesCapabilities(t *testing.T) {
	c := newConnectedClient(t,
		server.WithName("echo-server"),
		server.WithVersion("2.0.0"),
		server.WithInstructions("use echo"),
		server.WithToolsProvider(echoTools()),
	)

	info := c.ServerInfo()
	require.NotNil(t, info)
	assert.Equal(t, "echo-server", info.Name)
	assert.Equal(t, "2.0.0", info.Version)
	assert.Equal(t, "use echo", c.Instructions())

	assert.True(t, c.HasServerCapability(protocol.CapabilityTools))
	assert.False(t, c.HasServerCapability(protocol.CapabilityPrompts))
}

func TestInitializeIsIdempotent(t *testing.T) {
	c := newConnectedClient(t)
	require.NoError(t, c.Initialize(context.Background()))
}

func TestCallToolRoundTrip(t *testing.T) {
	c := newConnectedClient(t, server.WithToolsProvider(echoTools()))

	result, err := c.CallTool(context.Background(), "echo", map[string]string{"text": "ping"})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	require.Len(t, result.Content, 1)
	assert.Contains(t, result.Content[0].Text, "ping")
}

func TestCallToolUnknownToolIsInBandError(t *testing.T) {
	c := newConnectedClient(t, server.WithToolsProvider(echoTools()))

	result, err := c.CallTool(context.Background(), "missing", nil)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestCapabilityGateWithoutServerSupport(t *testing.T) {
	c := newConnectedClient(t)

	_, err := c.CallTool(context.Background(), "echo", nil)
	require.Error(t, err)

	_, err = c.ReadResource(context.Background(), "x://y")
	require.Error(t, err)

	_, err = c.GetPrompt(context.Background(), "p", nil)
	require.Error(t, err)
}

func TestListAllToolsPaginates(t *testing.T) {
	tools := server.NewBaseToolsProvider()
	for i := 0; i < 120; i++ {
		tools.RegisterTool(protocol.Tool{Name: fmt.Sprintf("tool-%03d", i)},
			func(ctx context.Context, args json.RawMessage) (*protocol.CallToolResult, error) {
				return protocol.NewToolResult("ok")
			})
	}

	c := newConnectedClient(t, server.WithToolsProvider(tools))

	all, err := c.ListAllTools(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, all, 120)
	assert.Equal(t, "tool-000", all[0].Name)
	assert.Equal(t, "tool-119", all[119].Name)
}

func TestReadResource(t *testing.T) {
	resources := server.NewBaseResourcesProvider()
	resources.RegisterStaticResource(protocol.Resource{
		URI:      "info://about",
		MimeType: "application/json",
	}, `{"name":"demo"}`)

	c := newConnectedClient(t, server.WithResourcesProvider(resources))

	list, _, err := c.ListResources(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, list, 1)

	contents, err := c.ReadResource(context.Background(), "info://about")
	require.NoError(t, err)
	require.Len(t, contents, 1)
	assert.JSONEq(t, `{"name":"demo"}`, contents[0].Text)
}

func TestSubscriptionCallback(t *testing.T) {
	resources := server.NewBaseResourcesProvider()
	resources.RegisterStaticResource(protocol.Resource{URI: "data://live"}, "v1")

	clientSide, serverSide := transport.NewInprocPair(logging.NewNop())
	srv := server.New(serverSide,
		server.WithResourcesProvider(resources),
		server.WithResourceSubscriptions(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = srv.Start(ctx) }()

	c := New(clientSide, WithLogger(logging.NewNop()))
	updated := make(chan string, 1)
	c.SetResourceUpdatedHandler(func(uri string) { updated <- uri })

	require.NoError(t, c.Connect(ctx))
	t.Cleanup(func() {
		_ = c.Close()
		_ = srv.Stop()
	})

	require.NoError(t, c.SubscribeResource(ctx, "data://live"))
	srv.ResourceChanged("data://live")

	select {
	case uri := <-updated:
		assert.Equal(t, "data://live", uri)
	case <-time.After(2 * time.Second):
		t.Fatal("resource update never arrived")
	}

	require.NoError(t, c.UnsubscribeResource(ctx, "data://live"))
}

func TestGetPrompt(t *testing.T) {
	prompts := server.NewBasePromptsProvider()
	prompts.RegisterPrompt(protocol.Prompt{Name: "welcome"},
		func(ctx context.Context, args map[string]string) (*protocol.GetPromptResult, error) {
			return &protocol.GetPromptResult{
				Messages: []protocol.PromptMessage{
					protocol.NewTextPromptMessage("user", "Say hello"),
				},
			}, nil
		})

	c := newConnectedClient(t, server.WithPromptsProvider(prompts))

	result, err := c.GetPrompt(context.Background(), "welcome", nil)
	require.NoError(t, err)
	require.Len(t, result.Messages, 1)
	assert.Equal(t, "user", result.Messages[0].Role)
}

func TestPing(t *testing.T) {
	c := newConnectedClient(t)

	result, err := c.Ping(context.Background())
	require.NoError(t, err)
	assert.NotZero(t, result.Timestamp)
}

func TestLogMessageForwarding(t *testing.T) {
	clientSide, serverSide := transport.NewInprocPair(logging.NewNop())
	srv := server.New(serverSide, server.WithLogForwarding())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = srv.Start(ctx) }()

	c := New(clientSide, WithLogger(logging.NewNop()))
	messages := make(chan protocol.LogMessageParams, 1)
	c.SetLogMessageHandler(func(params protocol.LogMessageParams) { messages <- params })

	require.NoError(t, c.Connect(ctx))
	t.Cleanup(func() {
		_ = c.Close()
		_ = srv.Stop()
	})

	require.NoError(t, c.SetLogLevel(ctx, protocol.LogLevelWarning))
	require.NoError(t, srv.SendLogMessage(protocol.LogLevelError, "core", "disk full"))

	select {
	case msg := <-messages:
		assert.Equal(t, protocol.LogLevelError, msg.Level)
		assert.Equal(t, "core", msg.Logger)
		assert.Equal(t, "disk full", msg.Data)
	case <-time.After(2 * time.Second):
		t.Fatal("log message never arrived")
	}
}
