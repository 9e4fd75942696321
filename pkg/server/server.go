// Package server implements the server side of the protocol: capability
// negotiation, feature providers, resource subscriptions, and log
// forwarding over any transport.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mcperrors "github.com/mcplabs/foundations/pkg/errors"
	"github.com/mcplabs/foundations/pkg/logging"
	"github.com/mcplabs/foundations/pkg/protocol"
	"github.com/mcplabs/foundations/pkg/transport"
)

// Server exposes tools, resources, and prompts to a connected client.
type Server struct {
	transport    transport.Transport
	name         string
	version      string
	description  string
	instructions string
	capabilities map[string]bool

	toolsProvider     ToolsProvider
	resourcesProvider ResourcesProvider
	promptsProvider   PromptsProvider

	subscriptions *SubscriptionManager

	initialized     bool
	initializedLock sync.RWMutex
	clientInfo      *protocol.ClientInfo

	// Minimum level for log messages forwarded to the client.
	wireLogLevel     protocol.LogLevel
	wireLogLevelLock sync.RWMutex

	// Active request cancellation, keyed by JSON-RPC request ID.
	activeRequests     map[string]context.CancelFunc
	activeRequestsLock sync.Mutex

	logger logging.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithName sets the server name.
func WithName(name string) ServerOption {
	return func(s *Server) { s.name = name }
}

// WithVersion sets the server version.
func WithVersion(version string) ServerOption {
	return func(s *Server) { s.version = version }
}

// WithDescription sets the server description.
func WithDescription(description string) ServerOption {
	return func(s *Server) { s.description = description }
}

// WithInstructions sets usage instructions returned during initialization.
func WithInstructions(instructions string) ServerOption {
	return func(s *Server) { s.instructions = instructions }
}

// WithCapability explicitly enables or disables a capability.
func WithCapability(capability protocol.CapabilityType, enabled bool) ServerOption {
	return func(s *Server) { s.capabilities[string(capability)] = enabled }
}

// WithToolsProvider sets the tools provider and enables the tools capability.
func WithToolsProvider(provider ToolsProvider) ServerOption {
	return func(s *Server) {
		s.toolsProvider = provider
		s.capabilities[string(protocol.CapabilityTools)] = true
	}
}

// WithResourcesProvider sets the resources provider and enables the
// resources capability.
func WithResourcesProvider(provider ResourcesProvider) ServerOption {
	return func(s *Server) {
		s.resourcesProvider = provider
		s.capabilities[string(protocol.CapabilityResources)] = true
	}
}

// WithResourceSubscriptions enables resource subscriptions. Requires a
// resources provider.
func WithResourceSubscriptions() ServerOption {
	return func(s *Server) {
		s.capabilities[string(protocol.CapabilityResourceSubscriptions)] = true
	}
}

// WithPromptsProvider sets the prompts provider and enables the prompts
// capability.
func WithPromptsProvider(provider PromptsProvider) ServerOption {
	return func(s *Server) {
		s.promptsProvider = provider
		s.capabilities[string(protocol.CapabilityPrompts)] = true
	}
}

// WithLogForwarding enables the logging capability so clients can receive
// notifications/message and adjust the level via logging/setLevel.
func WithLogForwarding() ServerOption {
	return func(s *Server) {
		s.capabilities[string(protocol.CapabilityLogging)] = true
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger logging.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

// New creates a server bound to a transport and registers its handlers.
func New(t transport.Transport, options ...ServerOption) *Server {
	s := &Server{
		transport:      t,
		name:           "mcp-server",
		version:        "1.0.0",
		capabilities:   make(map[string]bool),
		wireLogLevel:   protocol.LogLevelInfo,
		activeRequests: make(map[string]context.CancelFunc),
		logger:         logging.New(nil, nil).WithFields(logging.String("component", "server")),
	}

	for _, option := range options {
		option(s)
	}

	if s.capabilities[string(protocol.CapabilityResourceSubscriptions)] {
		s.subscriptions = NewSubscriptionManager(s, s.logger)
	}

	t.RegisterRequestHandler(protocol.MethodInitialize, s.handleInitialize)
	t.RegisterNotificationHandler(protocol.MethodInitialized, s.handleInitialized)
	t.RegisterNotificationHandler(protocol.MethodCancel, s.handleCancel)
	t.RegisterRequestHandler(protocol.MethodPing, s.handlePing)
	t.RegisterRequestHandler(protocol.MethodSetLogLevel, s.handleSetLogLevel)

	if s.capabilities[string(protocol.CapabilityTools)] {
		t.RegisterRequestHandler(protocol.MethodListTools, s.requireInit(s.handleListTools))
		t.RegisterRequestHandler(protocol.MethodCallTool, s.requireInit(s.handleCallTool))
	}
	if s.capabilities[string(protocol.CapabilityResources)] {
		t.RegisterRequestHandler(protocol.MethodListResources, s.requireInit(s.handleListResources))
		t.RegisterRequestHandler(protocol.MethodReadResource, s.requireInit(s.handleReadResource))

		if s.capabilities[string(protocol.CapabilityResourceSubscriptions)] {
			t.RegisterRequestHandler(protocol.MethodSubscribeResource, s.requireInit(s.handleSubscribeResource))
			t.RegisterRequestHandler(protocol.MethodUnsubscribeResource, s.requireInit(s.handleUnsubscribeResource))
		}
	}
	if s.capabilities[string(protocol.CapabilityPrompts)] {
		t.RegisterRequestHandler(protocol.MethodListPrompts, s.requireInit(s.handleListPrompts))
		t.RegisterRequestHandler(protocol.MethodGetPrompt, s.requireInit(s.handleGetPrompt))
	}

	return s
}

// Name returns the server name.
func (s *Server) Name() string { return s.name }

// Capabilities returns a copy of the announced capabilities.
func (s *Server) Capabilities() map[string]bool {
	caps := make(map[string]bool, len(s.capabilities))
	for k, v := range s.capabilities {
		caps[k] = v
	}
	return caps
}

// Start initializes the transport and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	if err := s.transport.Initialize(ctx); err != nil {
		return mcperrors.TransportError("server", "initialize", err)
	}

	if s.subscriptions != nil {
		s.subscriptions.Start(ctx)
	}

	s.logger.Info("server starting",
		logging.String("name", s.name),
		logging.String("version", s.version),
		logging.Any("capabilities", s.capabilities))

	return s.transport.Start(ctx)
}

// Stop shuts the server down, cancelling any in-flight requests.
func (s *Server) Stop() error {
	s.activeRequestsLock.Lock()
	for _, cancel := range s.activeRequests {
		cancel()
	}
	s.activeRequests = make(map[string]context.CancelFunc)
	s.activeRequestsLock.Unlock()

	if s.subscriptions != nil {
		s.subscriptions.Stop()
	}

	return s.transport.Stop(context.Background())
}

// NotifyResourceUpdated tells subscribed clients that a resource changed.
// Implements ResourceNotifier for the subscription manager.
func (s *Server) NotifyResourceUpdated(uri string) error {
	return s.transport.SendNotification(context.Background(),
		protocol.MethodResourceUpdated, &protocol.ResourceUpdatedParams{URI: uri})
}

// NotifyResourcesListChanged tells clients that the resource list changed.
func (s *Server) NotifyResourcesListChanged(added []protocol.Resource, removed []string) error {
	return s.transport.SendNotification(context.Background(),
		protocol.MethodResourcesListChanged,
		&protocol.ResourcesListChangedParams{Added: added, Removed: removed})
}

// NotifyToolsListChanged tells clients that the tool list changed.
func (s *Server) NotifyToolsListChanged(added []protocol.Tool, removed []string) error {
	return s.transport.SendNotification(context.Background(),
		protocol.MethodToolsListChanged,
		&protocol.ToolsListChangedParams{Added: added, Removed: removed})
}

// ResourceChanged queues a resource-updated notification for subscribed
// clients. A no-op when subscriptions are not enabled.
func (s *Server) ResourceChanged(uri string) {
	if s.subscriptions != nil {
		s.subscriptions.NotifyChange(uri)
	}
}

// SendLogMessage forwards a log message to the client via
// notifications/message, honoring the level set by logging/setLevel.
func (s *Server) SendLogMessage(level protocol.LogLevel, loggerName string, data interface{}) error {
	if !s.capabilities[string(protocol.CapabilityLogging)] {
		return mcperrors.CapabilityRequired(string(protocol.CapabilityLogging))
	}
	if !s.shouldForward(level) {
		return nil
	}

	params := &protocol.LogMessageParams{
		Level:  level,
		Logger: loggerName,
		Time:   time.Now(),
		Data:   data,
	}
	return s.transport.SendNotification(context.Background(), protocol.MethodLogMessage, params)
}

var logLevelRank = map[protocol.LogLevel]int{
	protocol.LogLevelDebug:   0,
	protocol.LogLevelInfo:    1,
	protocol.LogLevelWarning: 2,
	protocol.LogLevelError:   3,
}

func (s *Server) shouldForward(level protocol.LogLevel) bool {
	s.wireLogLevelLock.RLock()
	defer s.wireLogLevelLock.RUnlock()
	return logLevelRank[level] >= logLevelRank[s.wireLogLevel]
}

func (s *Server) isInitialized() bool {
	s.initializedLock.RLock()
	defer s.initializedLock.RUnlock()
	return s.initialized
}

// ClientInfo returns the connected client's info, nil before initialize.
func (s *Server) ClientInfo() *protocol.ClientInfo {
	s.initializedLock.RLock()
	defer s.initializedLock.RUnlock()
	return s.clientInfo
}

// requireInit rejects feature requests that arrive before the initialize
// handshake completed.
func (s *Server) requireInit(handler transport.RequestHandler) transport.RequestHandler {
	return func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		if !s.isInitialized() {
			return nil, mcperrors.ServerNotInitialized("request").
				WithDetail("send initialize before other requests")
		}
		return handler(ctx, params)
	}
}

func (s *Server) unmarshalParams(params json.RawMessage, target interface{}, method string) error {
	if len(params) == 0 {
		// Most list operations accept empty params.
		return nil
	}
	if err := json.Unmarshal(params, target); err != nil {
		return mcperrors.InvalidParameter("params", string(params), fmt.Sprintf("%T", target)).
			WithDetail(err.Error()).
			WithContext(&mcperrors.Context{Method: method, Component: "server", Timestamp: time.Now()})
	}
	return nil
}

// trackRequest registers a cancel function under the JSON-RPC request ID
// taken from ctx, returning a completion func.
func (s *Server) trackRequest(ctx context.Context, cancel context.CancelFunc) func() {
	requestID := logging.RequestIDFromContext(ctx)
	if requestID == "" {
		return func() {}
	}

	s.activeRequestsLock.Lock()
	s.activeRequests[requestID] = cancel
	s.activeRequestsLock.Unlock()

	return func() {
		s.activeRequestsLock.Lock()
		delete(s.activeRequests, requestID)
		s.activeRequestsLock.Unlock()
	}
}

func (s *Server) cancelRequest(requestID string) bool {
	s.activeRequestsLock.Lock()
	defer s.activeRequestsLock.Unlock()
	if cancel, ok := s.activeRequests[requestID]; ok {
		cancel()
		delete(s.activeRequests, requestID)
		return true
	}
	return false
}

// Request handlers

func (s *Server) handleInitialize(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var initParams protocol.InitializeParams
	if err := s.unmarshalParams(params, &initParams, protocol.MethodInitialize); err != nil {
		return nil, err
	}

	if initParams.ProtocolVersion != "" && initParams.ProtocolVersion != protocol.ProtocolRevision {
		s.logger.Warn("client requested a different protocol revision",
			logging.String("requested", initParams.ProtocolVersion),
			logging.String("supported", protocol.ProtocolRevision))
	}

	s.initializedLock.Lock()
	s.clientInfo = initParams.ClientInfo
	s.initialized = true
	s.initializedLock.Unlock()

	if initParams.ClientInfo != nil {
		s.logger.Info("client connected",
			logging.String("client", initParams.ClientInfo.Name),
			logging.String("client_version", initParams.ClientInfo.Version))
	}

	return &protocol.InitializeResult{
		ProtocolVersion: protocol.ProtocolRevision,
		Capabilities:    s.capabilities,
		ServerInfo: &protocol.ServerInfo{
			Name:        s.name,
			Version:     s.version,
			Description: s.description,
		},
		Instructions: s.instructions,
	}, nil
}

func (s *Server) handleInitialized(ctx context.Context, params json.RawMessage) error {
	s.logger.Debug("client reported ready")
	return nil
}

func (s *Server) handleCancel(ctx context.Context, params json.RawMessage) error {
	var cancelParams protocol.CancelParams
	if err := s.unmarshalParams(params, &cancelParams, protocol.MethodCancel); err != nil {
		return err
	}

	requestID := fmt.Sprintf("%v", cancelParams.RequestID)
	if s.cancelRequest(requestID) {
		s.logger.Info("cancelled request",
			logging.String("request_id", requestID),
			logging.String("reason", cancelParams.Reason))
	} else {
		s.logger.Debug("cancellation for unknown request",
			logging.String("request_id", requestID))
	}
	return nil
}

func (s *Server) handlePing(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var pingParams protocol.PingParams
	if err := s.unmarshalParams(params, &pingParams, protocol.MethodPing); err != nil {
		return nil, err
	}

	timestamp := pingParams.Timestamp
	if timestamp == 0 {
		timestamp = time.Now().UnixMilli()
	}
	return &protocol.PingResult{Timestamp: timestamp}, nil
}

func (s *Server) handleSetLogLevel(ctx context.Context, params json.RawMessage) (interface{}, error) {
	if !s.capabilities[string(protocol.CapabilityLogging)] {
		return nil, mcperrors.CapabilityRequired(string(protocol.CapabilityLogging))
	}

	var logParams protocol.SetLogLevelParams
	if err := s.unmarshalParams(params, &logParams, protocol.MethodSetLogLevel); err != nil {
		return nil, err
	}
	if _, ok := logLevelRank[logParams.Level]; !ok {
		return nil, mcperrors.InvalidParameter("level", logParams.Level, "debug, info, warning, or error")
	}

	s.wireLogLevelLock.Lock()
	s.wireLogLevel = logParams.Level
	s.wireLogLevelLock.Unlock()

	s.logger.Info("client set log level", logging.String("level", string(logParams.Level)))
	return &protocol.SetLogLevelResult{}, nil
}

func (s *Server) handleListTools(ctx context.Context, params json.RawMessage) (interface{}, error) {
	if s.toolsProvider == nil {
		return nil, mcperrors.ProviderNotConfigured("tools")
	}

	var listParams protocol.ListToolsParams
	if err := s.unmarshalParams(params, &listParams, protocol.MethodListTools); err != nil {
		return nil, err
	}

	tools, page, err := s.toolsProvider.ListTools(ctx, listParams.Category, &listParams.PaginationParams)
	if err != nil {
		return nil, providerErr("tools", "ListTools", err)
	}
	if tools == nil {
		tools = []protocol.Tool{}
	}

	result := &protocol.ListToolsResult{Tools: tools}
	if page != nil {
		result.PaginationResult = *page
	}
	return result, nil
}

func (s *Server) handleCallTool(ctx context.Context, params json.RawMessage) (interface{}, error) {
	if s.toolsProvider == nil {
		return nil, mcperrors.ProviderNotConfigured("tools")
	}

	var callParams protocol.CallToolParams
	if err := s.unmarshalParams(params, &callParams, protocol.MethodCallTool); err != nil {
		return nil, err
	}
	if callParams.Name == "" {
		return nil, mcperrors.MissingParameter("name")
	}

	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := s.trackRequest(ctx, cancel)
	defer done()

	result, err := s.toolsProvider.CallTool(callCtx, callParams.Name, callParams.Arguments)
	if err != nil {
		if callCtx.Err() == context.Canceled {
			return protocol.NewToolError("tool call was cancelled"), nil
		}
		// Tool failures are reported in-band so the JSON-RPC exchange
		// itself still succeeds.
		return protocol.NewToolError(err.Error()), nil
	}
	return result, nil
}

func (s *Server) handleListResources(ctx context.Context, params json.RawMessage) (interface{}, error) {
	if s.resourcesProvider == nil {
		return nil, mcperrors.ProviderNotConfigured("resources")
	}

	var listParams protocol.ListResourcesParams
	if err := s.unmarshalParams(params, &listParams, protocol.MethodListResources); err != nil {
		return nil, err
	}

	resources, page, err := s.resourcesProvider.ListResources(ctx, &listParams.PaginationParams)
	if err != nil {
		return nil, providerErr("resources", "ListResources", err)
	}
	if resources == nil {
		resources = []protocol.Resource{}
	}

	result := &protocol.ListResourcesResult{Resources: resources}
	if page != nil {
		result.PaginationResult = *page
	}
	return result, nil
}

func (s *Server) handleReadResource(ctx context.Context, params json.RawMessage) (interface{}, error) {
	if s.resourcesProvider == nil {
		return nil, mcperrors.ProviderNotConfigured("resources")
	}

	var readParams protocol.ReadResourceParams
	if err := s.unmarshalParams(params, &readParams, protocol.MethodReadResource); err != nil {
		return nil, err
	}
	if readParams.URI == "" {
		return nil, mcperrors.MissingParameter("uri")
	}

	contents, err := s.resourcesProvider.ReadResource(ctx, readParams.URI)
	if err != nil {
		return nil, providerErr("resources", "ReadResource", err)
	}
	return &protocol.ReadResourceResult{Contents: contents}, nil
}

func (s *Server) handleSubscribeResource(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var subParams protocol.SubscribeResourceParams
	if err := s.unmarshalParams(params, &subParams, protocol.MethodSubscribeResource); err != nil {
		return nil, err
	}
	if subParams.URI == "" {
		return nil, mcperrors.MissingParameter("uri")
	}

	// Subscribing to an unknown resource is an error the client can act on.
	if _, err := s.resourcesProvider.ReadResource(ctx, subParams.URI); err != nil {
		return nil, providerErr("resources", "SubscribeResource", err)
	}

	s.subscriptions.Subscribe(subParams.URI)
	return &protocol.SubscribeResourceResult{}, nil
}

func (s *Server) handleUnsubscribeResource(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var unsubParams protocol.UnsubscribeResourceParams
	if err := s.unmarshalParams(params, &unsubParams, protocol.MethodUnsubscribeResource); err != nil {
		return nil, err
	}

	if err := s.subscriptions.Unsubscribe(unsubParams.URI); err != nil {
		return nil, err
	}
	return &protocol.SubscribeResourceResult{}, nil
}

func (s *Server) handleListPrompts(ctx context.Context, params json.RawMessage) (interface{}, error) {
	if s.promptsProvider == nil {
		return nil, mcperrors.ProviderNotConfigured("prompts")
	}

	var listParams protocol.ListPromptsParams
	if err := s.unmarshalParams(params, &listParams, protocol.MethodListPrompts); err != nil {
		return nil, err
	}

	prompts, page, err := s.promptsProvider.ListPrompts(ctx, listParams.Tag, &listParams.PaginationParams)
	if err != nil {
		return nil, providerErr("prompts", "ListPrompts", err)
	}
	if prompts == nil {
		prompts = []protocol.Prompt{}
	}

	result := &protocol.ListPromptsResult{Prompts: prompts}
	if page != nil {
		result.PaginationResult = *page
	}
	return result, nil
}

func (s *Server) handleGetPrompt(ctx context.Context, params json.RawMessage) (interface{}, error) {
	if s.promptsProvider == nil {
		return nil, mcperrors.ProviderNotConfigured("prompts")
	}

	var getParams protocol.GetPromptParams
	if err := s.unmarshalParams(params, &getParams, protocol.MethodGetPrompt); err != nil {
		return nil, err
	}
	if getParams.Name == "" {
		return nil, mcperrors.MissingParameter("name")
	}

	result, err := s.promptsProvider.GetPrompt(ctx, getParams.Name, getParams.Arguments)
	if err != nil {
		return nil, providerErr("prompts", "GetPrompt", err)
	}
	return result, nil
}

// providerErr preserves MCP error codes from providers and wraps anything
// else as a provider failure.
func providerErr(providerType, operation string, err error) error {
	if mcperrors.IsMCPError(err) {
		return err
	}
	return mcperrors.ProviderError(providerType, operation, err)
}
