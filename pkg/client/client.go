// Package client implements the client side of the protocol: the initialize
// handshake, typed wrappers for every server feature, and notification
// callbacks for resource updates and forwarded log messages.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"sync"

	mcperrors "github.com/mcplabs/foundations/pkg/errors"
	"github.com/mcplabs/foundations/pkg/logging"
	"github.com/mcplabs/foundations/pkg/protocol"
	"github.com/mcplabs/foundations/pkg/transport"
)

// ResourceUpdatedHandler receives notifications/resources/updated.
type ResourceUpdatedHandler func(uri string)

// LogMessageHandler receives notifications/message forwarded by the server.
type LogMessageHandler func(params protocol.LogMessageParams)

// ListChangedHandler receives list-changed notifications for tools or
// resources.
type ListChangedHandler func()

// Client talks to a single server over a transport.
type Client struct {
	transport transport.Transport
	name      string
	version   string

	initialized     bool
	initializedLock sync.RWMutex

	serverInfo         *protocol.ServerInfo
	serverCapabilities map[string]bool
	instructions       string

	callbackLock      sync.RWMutex
	onResourceUpdated ResourceUpdatedHandler
	onLogMessage      LogMessageHandler
	onToolsChanged    ListChangedHandler
	onResourcesChange ListChangedHandler

	logger logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithName sets the client name sent during initialization.
func WithName(name string) Option {
	return func(c *Client) { c.name = name }
}

// WithVersion sets the client version sent during initialization.
func WithVersion(version string) Option {
	return func(c *Client) { c.version = version }
}

// WithLogger sets the structured logger.
func WithLogger(logger logging.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a client bound to a transport and registers its notification
// handlers.
func New(t transport.Transport, options ...Option) *Client {
	c := &Client{
		transport:          t,
		name:               "mcp-client",
		version:            "1.0.0",
		serverCapabilities: make(map[string]bool),
		logger:             logging.New(nil, nil).WithFields(logging.String("component", "client")),
	}

	for _, option := range options {
		option(c)
	}

	t.RegisterNotificationHandler(protocol.MethodResourceUpdated, c.handleResourceUpdated)
	t.RegisterNotificationHandler(protocol.MethodResourcesListChanged, c.handleResourcesListChanged)
	t.RegisterNotificationHandler(protocol.MethodToolsListChanged, c.handleToolsListChanged)
	t.RegisterNotificationHandler(protocol.MethodLogMessage, c.handleLogMessage)
	t.RegisterRequestHandler(protocol.MethodPing, c.handlePing)

	return c
}

// NewStdio creates a client over the process's stdin/stdout, the usual
// arrangement when the server spawned this process or vice versa.
func NewStdio(options ...Option) *Client {
	return New(transport.NewStdioTransport(nil, nil, nil), options...)
}

// Start runs the transport receive loop on a background goroutine. It must
// be called before Initialize so responses can be delivered.
func (c *Client) Start(ctx context.Context) error {
	if err := c.transport.Initialize(ctx); err != nil {
		return mcperrors.TransportError("client", "initialize", err)
	}
	go func() {
		if err := c.transport.Start(ctx); err != nil && ctx.Err() == nil {
			c.logger.Warn("transport stopped", logging.ErrorField(err))
		}
	}()
	return nil
}

// Initialize performs the initialize handshake and sends the initialized
// notification. Calling it twice is a no-op.
func (c *Client) Initialize(ctx context.Context) error {
	c.initializedLock.RLock()
	initialized := c.initialized
	c.initializedLock.RUnlock()
	if initialized {
		return nil
	}

	params := &protocol.InitializeParams{
		ProtocolVersion: protocol.ProtocolRevision,
		Capabilities:    map[string]bool{},
		ClientInfo: &protocol.ClientInfo{
			Name:     c.name,
			Version:  c.version,
			Platform: runtime.GOOS,
		},
	}

	resp, err := c.transport.SendRequest(ctx, protocol.MethodInitialize, params)
	if err != nil {
		return fmt.Errorf("initialize request failed: %w", err)
	}

	var result protocol.InitializeResult
	if err := parseResult(resp, &result); err != nil {
		return err
	}

	if result.ProtocolVersion != protocol.ProtocolRevision {
		c.logger.Warn("server speaks a different protocol revision",
			logging.String("server", result.ProtocolVersion),
			logging.String("supported", protocol.ProtocolRevision))
	}

	c.initializedLock.Lock()
	c.serverInfo = result.ServerInfo
	c.serverCapabilities = result.Capabilities
	c.instructions = result.Instructions
	c.initialized = true
	c.initializedLock.Unlock()

	if err := c.transport.SendNotification(ctx, protocol.MethodInitialized, nil); err != nil {
		return fmt.Errorf("failed to send initialized notification: %w", err)
	}

	if result.ServerInfo != nil {
		c.logger.Info("connected",
			logging.String("server", result.ServerInfo.Name),
			logging.String("server_version", result.ServerInfo.Version))
	}
	return nil
}

// Connect starts the transport and performs the handshake in one call.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.Start(ctx); err != nil {
		return err
	}
	return c.Initialize(ctx)
}

// Close shuts down the client's transport.
func (c *Client) Close() error {
	return c.transport.Stop(context.Background())
}

// ServerInfo returns the connected server's info, nil before Initialize.
func (c *Client) ServerInfo() *protocol.ServerInfo {
	c.initializedLock.RLock()
	defer c.initializedLock.RUnlock()
	return c.serverInfo
}

// Instructions returns the usage instructions the server sent, if any.
func (c *Client) Instructions() string {
	c.initializedLock.RLock()
	defer c.initializedLock.RUnlock()
	return c.instructions
}

// HasServerCapability reports whether the server announced a capability.
func (c *Client) HasServerCapability(capability protocol.CapabilityType) bool {
	c.initializedLock.RLock()
	defer c.initializedLock.RUnlock()
	return c.serverCapabilities[string(capability)]
}

// ServerCapabilities returns a copy of the server's announced capabilities.
func (c *Client) ServerCapabilities() map[string]bool {
	c.initializedLock.RLock()
	defer c.initializedLock.RUnlock()
	caps := make(map[string]bool, len(c.serverCapabilities))
	for k, v := range c.serverCapabilities {
		caps[k] = v
	}
	return caps
}

func (c *Client) requireCapability(capability protocol.CapabilityType) error {
	if !c.HasServerCapability(capability) {
		return mcperrors.CapabilityRequired(string(capability))
	}
	return nil
}

// ListTools lists the server's tools, optionally filtered by category.
func (c *Client) ListTools(ctx context.Context, category string, page *protocol.PaginationParams) ([]protocol.Tool, *protocol.PaginationResult, error) {
	if err := c.requireCapability(protocol.CapabilityTools); err != nil {
		return nil, nil, err
	}

	params := &protocol.ListToolsParams{Category: category}
	if page != nil {
		params.PaginationParams = *page
	}

	resp, err := c.transport.SendRequest(ctx, protocol.MethodListTools, params)
	if err != nil {
		return nil, nil, fmt.Errorf("tools/list failed: %w", err)
	}

	var result protocol.ListToolsResult
	if err := parseResult(resp, &result); err != nil {
		return nil, nil, err
	}
	return result.Tools, &result.PaginationResult, nil
}

// CallTool invokes a tool. Args is marshalled as the tool's arguments
// object; nil means no arguments.
func (c *Client) CallTool(ctx context.Context, name string, args interface{}) (*protocol.CallToolResult, error) {
	if err := c.requireCapability(protocol.CapabilityTools); err != nil {
		return nil, err
	}

	params := &protocol.CallToolParams{Name: name}
	if args != nil {
		argsJSON, err := json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal tool arguments: %w", err)
		}
		params.Arguments = argsJSON
	}

	resp, err := c.transport.SendRequest(ctx, protocol.MethodCallTool, params)
	if err != nil {
		return nil, fmt.Errorf("tools/call failed: %w", err)
	}

	var result protocol.CallToolResult
	if err := parseResult(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListResources lists the server's resources.
func (c *Client) ListResources(ctx context.Context, page *protocol.PaginationParams) ([]protocol.Resource, *protocol.PaginationResult, error) {
	if err := c.requireCapability(protocol.CapabilityResources); err != nil {
		return nil, nil, err
	}

	params := &protocol.ListResourcesParams{}
	if page != nil {
		params.PaginationParams = *page
	}

	resp, err := c.transport.SendRequest(ctx, protocol.MethodListResources, params)
	if err != nil {
		return nil, nil, fmt.Errorf("resources/list failed: %w", err)
	}

	var result protocol.ListResourcesResult
	if err := parseResult(resp, &result); err != nil {
		return nil, nil, err
	}
	return result.Resources, &result.PaginationResult, nil
}

// ReadResource reads a resource by URI.
func (c *Client) ReadResource(ctx context.Context, uri string) ([]protocol.ResourceContents, error) {
	if err := c.requireCapability(protocol.CapabilityResources); err != nil {
		return nil, err
	}

	resp, err := c.transport.SendRequest(ctx, protocol.MethodReadResource,
		&protocol.ReadResourceParams{URI: uri})
	if err != nil {
		return nil, fmt.Errorf("resources/read failed: %w", err)
	}

	var result protocol.ReadResourceResult
	if err := parseResult(resp, &result); err != nil {
		return nil, err
	}
	return result.Contents, nil
}

// SubscribeResource subscribes to updates for a resource URI. Updates
// arrive via the ResourceUpdatedHandler.
func (c *Client) SubscribeResource(ctx context.Context, uri string) error {
	if err := c.requireCapability(protocol.CapabilityResourceSubscriptions); err != nil {
		return err
	}

	_, err := c.transport.SendRequest(ctx, protocol.MethodSubscribeResource,
		&protocol.SubscribeResourceParams{URI: uri})
	if err != nil {
		return fmt.Errorf("resources/subscribe failed: %w", err)
	}
	return nil
}

// UnsubscribeResource removes a subscription for a resource URI.
func (c *Client) UnsubscribeResource(ctx context.Context, uri string) error {
	if err := c.requireCapability(protocol.CapabilityResourceSubscriptions); err != nil {
		return err
	}

	_, err := c.transport.SendRequest(ctx, protocol.MethodUnsubscribeResource,
		&protocol.UnsubscribeResourceParams{URI: uri})
	if err != nil {
		return fmt.Errorf("resources/unsubscribe failed: %w", err)
	}
	return nil
}

// ListPrompts lists the server's prompts, optionally filtered by tag.
func (c *Client) ListPrompts(ctx context.Context, tag string, page *protocol.PaginationParams) ([]protocol.Prompt, *protocol.PaginationResult, error) {
	if err := c.requireCapability(protocol.CapabilityPrompts); err != nil {
		return nil, nil, err
	}

	params := &protocol.ListPromptsParams{Tag: tag}
	if page != nil {
		params.PaginationParams = *page
	}

	resp, err := c.transport.SendRequest(ctx, protocol.MethodListPrompts, params)
	if err != nil {
		return nil, nil, fmt.Errorf("prompts/list failed: %w", err)
	}

	var result protocol.ListPromptsResult
	if err := parseResult(resp, &result); err != nil {
		return nil, nil, err
	}
	return result.Prompts, &result.PaginationResult, nil
}

// GetPrompt renders a prompt with the given arguments.
func (c *Client) GetPrompt(ctx context.Context, name string, args map[string]string) (*protocol.GetPromptResult, error) {
	if err := c.requireCapability(protocol.CapabilityPrompts); err != nil {
		return nil, err
	}

	resp, err := c.transport.SendRequest(ctx, protocol.MethodGetPrompt,
		&protocol.GetPromptParams{Name: name, Arguments: args})
	if err != nil {
		return nil, fmt.Errorf("prompts/get failed: %w", err)
	}

	var result protocol.GetPromptResult
	if err := parseResult(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Ping checks that the server is responsive.
func (c *Client) Ping(ctx context.Context) (*protocol.PingResult, error) {
	resp, err := c.transport.SendRequest(ctx, protocol.MethodPing, nil)
	if err != nil {
		return nil, fmt.Errorf("ping failed: %w", err)
	}

	var result protocol.PingResult
	if err := parseResult(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SetLogLevel asks the server to forward log messages at or above level.
func (c *Client) SetLogLevel(ctx context.Context, level protocol.LogLevel) error {
	if err := c.requireCapability(protocol.CapabilityLogging); err != nil {
		return err
	}

	_, err := c.transport.SendRequest(ctx, protocol.MethodSetLogLevel,
		&protocol.SetLogLevelParams{Level: level})
	if err != nil {
		return fmt.Errorf("logging/setLevel failed: %w", err)
	}
	return nil
}

// Cancel asks the server to abort an in-flight request. Cancellation is
// best effort; the request may already have completed.
func (c *Client) Cancel(ctx context.Context, requestID interface{}, reason string) error {
	return c.transport.SendNotification(ctx, protocol.MethodCancel,
		&protocol.CancelParams{RequestID: requestID, Reason: reason})
}

// SetResourceUpdatedHandler sets the callback for resource update
// notifications.
func (c *Client) SetResourceUpdatedHandler(handler ResourceUpdatedHandler) {
	c.callbackLock.Lock()
	defer c.callbackLock.Unlock()
	c.onResourceUpdated = handler
}

// SetLogMessageHandler sets the callback for forwarded server log messages.
func (c *Client) SetLogMessageHandler(handler LogMessageHandler) {
	c.callbackLock.Lock()
	defer c.callbackLock.Unlock()
	c.onLogMessage = handler
}

// SetToolsListChangedHandler sets the callback for tool list changes.
func (c *Client) SetToolsListChangedHandler(handler ListChangedHandler) {
	c.callbackLock.Lock()
	defer c.callbackLock.Unlock()
	c.onToolsChanged = handler
}

// SetResourcesListChangedHandler sets the callback for resource list changes.
func (c *Client) SetResourcesListChangedHandler(handler ListChangedHandler) {
	c.callbackLock.Lock()
	defer c.callbackLock.Unlock()
	c.onResourcesChange = handler
}

func (c *Client) handleResourceUpdated(ctx context.Context, params json.RawMessage) error {
	var updated protocol.ResourceUpdatedParams
	if err := json.Unmarshal(params, &updated); err != nil {
		return fmt.Errorf("malformed resource update: %w", err)
	}

	c.callbackLock.RLock()
	handler := c.onResourceUpdated
	c.callbackLock.RUnlock()

	if handler != nil {
		handler(updated.URI)
	}
	return nil
}

func (c *Client) handleResourcesListChanged(ctx context.Context, params json.RawMessage) error {
	c.callbackLock.RLock()
	handler := c.onResourcesChange
	c.callbackLock.RUnlock()

	if handler != nil {
		handler()
	}
	return nil
}

func (c *Client) handleToolsListChanged(ctx context.Context, params json.RawMessage) error {
	c.callbackLock.RLock()
	handler := c.onToolsChanged
	c.callbackLock.RUnlock()

	if handler != nil {
		handler()
	}
	return nil
}

func (c *Client) handleLogMessage(ctx context.Context, params json.RawMessage) error {
	var msg protocol.LogMessageParams
	if err := json.Unmarshal(params, &msg); err != nil {
		return fmt.Errorf("malformed log message: %w", err)
	}

	c.callbackLock.RLock()
	handler := c.onLogMessage
	c.callbackLock.RUnlock()

	if handler != nil {
		handler(msg)
	}
	return nil
}

// Servers may ping clients too.
func (c *Client) handlePing(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var pingParams protocol.PingParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &pingParams); err != nil {
			return nil, mcperrors.ParseError(err)
		}
	}
	return &protocol.PingResult{Timestamp: pingParams.Timestamp}, nil
}

func parseResult(resp *protocol.Response, target interface{}) error {
	if resp == nil || len(resp.Result) == 0 {
		return mcperrors.InternalError(fmt.Errorf("empty response result"))
	}
	if err := json.Unmarshal(resp.Result, target); err != nil {
		return fmt.Errorf("failed to parse result: %w", err)
	}
	return nil
}
