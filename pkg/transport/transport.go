// Package transport provides config-driven transports for protocol
// communication. Transports carry newline-delimited JSON-RPC messages and
// are composed with middleware for reliability and observability.
//
// Usage:
//
//	config := transport.DefaultTransportConfig(transport.TransportTypeStdio)
//	t, err := transport.New(config)
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	mcperrors "github.com/mcplabs/foundations/pkg/errors"
	"github.com/mcplabs/foundations/pkg/logging"
	"github.com/mcplabs/foundations/pkg/protocol"
)

// Transport is the core interface all transport mechanisms implement.
type Transport interface {
	// Initialize prepares the transport for use.
	Initialize(ctx context.Context) error

	// SendRequest sends a request and waits for the matching response.
	// A JSON-RPC error in the response is returned as *protocol.Error.
	SendRequest(ctx context.Context, method string, params interface{}) (*protocol.Response, error)

	// SendNotification sends a one-way notification.
	SendNotification(ctx context.Context, method string, params interface{}) error

	// RegisterRequestHandler registers a handler for incoming requests.
	RegisterRequestHandler(method string, handler RequestHandler)

	// RegisterNotificationHandler registers a handler for incoming notifications.
	RegisterNotificationHandler(method string, handler NotificationHandler)

	// Start begins reading messages. It blocks until the context is
	// cancelled, the transport is stopped, or a fatal error occurs.
	Start(ctx context.Context) error

	// Stop halts the transport and releases its resources.
	Stop(ctx context.Context) error

	// GenerateID returns a unique request ID.
	GenerateID() string

	// Cleanup releases pending request state.
	Cleanup()
}

// RequestHandler handles an incoming request. Returning an MCPError maps
// its code onto the wire; any other error becomes an internal error.
type RequestHandler func(ctx context.Context, params json.RawMessage) (interface{}, error)

// NotificationHandler handles an incoming notification.
type NotificationHandler func(ctx context.Context, params json.RawMessage) error

// ErrorHandler receives low-level transport errors.
type ErrorHandler func(err error)

// TransportType identifies the base transport implementation.
type TransportType string

const (
	TransportTypeStdio  TransportType = "stdio"
	TransportTypeInproc TransportType = "inproc"
)

// TransportConfig is the unified configuration for all transports.
type TransportConfig struct {
	// Type of transport to create.
	Type TransportType `json:"type"`

	// StdioReader and StdioWriter override os.Stdin/os.Stdout, mainly
	// for tests and in-process wiring.
	StdioReader io.Reader `json:"-"`
	StdioWriter io.Writer `json:"-"`

	// Logger receives transport-level log output. Nil disables logging.
	Logger logging.Logger `json:"-"`

	// Features controls which middleware are applied.
	Features FeatureConfig `json:"features"`

	Reliability   ReliabilityConfig   `json:"reliability"`
	Observability ObservabilityConfig `json:"observability"`
	Performance   PerformanceConfig   `json:"performance"`
}

// FeatureConfig controls which middleware are enabled.
type FeatureConfig struct {
	EnableReliability   bool `json:"enable_reliability"`
	EnableObservability bool `json:"enable_observability"`
}

// ReliabilityConfig configures retries and circuit breaking.
type ReliabilityConfig struct {
	MaxRetries         int                  `json:"max_retries"`
	InitialRetryDelay  time.Duration        `json:"initial_retry_delay"`
	MaxRetryDelay      time.Duration        `json:"max_retry_delay"`
	RetryBackoffFactor float64              `json:"retry_backoff_factor"`
	CircuitBreaker     CircuitBreakerConfig `json:"circuit_breaker"`
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	Enabled          bool          `json:"enabled"`
	FailureThreshold int           `json:"failure_threshold"`
	SuccessThreshold int           `json:"success_threshold"`
	Timeout          time.Duration `json:"timeout"`
}

// ObservabilityConfig configures metrics and logging middleware.
type ObservabilityConfig struct {
	EnableMetrics bool   `json:"enable_metrics"`
	EnableLogging bool   `json:"enable_logging"`
	LogLevel      string `json:"log_level"`
}

// PerformanceConfig tunes buffering and timeouts.
type PerformanceConfig struct {
	BufferSize     int           `json:"buffer_size"`
	RequestTimeout time.Duration `json:"request_timeout"`
}

// ErrUnsupportedTransportType is returned for unknown transport types.
var ErrUnsupportedTransportType = errors.New("unsupported transport type")

// New creates a transport from config with middleware applied.
func New(config TransportConfig) (Transport, error) {
	var base Transport
	switch config.Type {
	case TransportTypeStdio:
		base = newStdioTransport(config)
	case TransportTypeInproc:
		return nil, errors.New("inproc transports are created in pairs, use NewInprocPair")
	default:
		return nil, ErrUnsupportedTransportType
	}

	middleware := NewMiddlewareBuilder(config).Build()
	return ChainMiddleware(middleware...).Wrap(base), nil
}

// DefaultTransportConfig returns a configuration with sensible defaults.
func DefaultTransportConfig(transportType TransportType) TransportConfig {
	return TransportConfig{
		Type: transportType,
		Features: FeatureConfig{
			EnableReliability:   true,
			EnableObservability: true,
		},
		Reliability: ReliabilityConfig{
			MaxRetries:         3,
			InitialRetryDelay:  time.Second,
			MaxRetryDelay:      30 * time.Second,
			RetryBackoffFactor: 2.0,
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:          true,
				FailureThreshold: 5,
				SuccessThreshold: 2,
				Timeout:          60 * time.Second,
			},
		},
		Observability: ObservabilityConfig{
			EnableMetrics: true,
			EnableLogging: true,
			LogLevel:      "info",
		},
		Performance: PerformanceConfig{
			BufferSize:     8192,
			RequestTimeout: 30 * time.Second,
		},
	}
}

// BaseTransport provides request correlation, handler registration, and ID
// generation shared by all transport implementations.
type BaseTransport struct {
	sync.RWMutex
	requestHandlers      map[string]RequestHandler
	notificationHandlers map[string]NotificationHandler
	nextID               int64
	pendingRequests      map[string]chan *protocol.Response
	logger               logging.Logger
}

// NewBaseTransport creates a BaseTransport. A nil logger disables logging.
func NewBaseTransport(logger logging.Logger) *BaseTransport {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &BaseTransport{
		requestHandlers:      make(map[string]RequestHandler),
		notificationHandlers: make(map[string]NotificationHandler),
		nextID:               1,
		pendingRequests:      make(map[string]chan *protocol.Response),
		logger:               logger,
	}
}

// Logger returns the transport's logger.
func (t *BaseTransport) Logger() logging.Logger {
	return t.logger
}

// RegisterRequestHandler registers a handler for incoming requests.
func (t *BaseTransport) RegisterRequestHandler(method string, handler RequestHandler) {
	t.Lock()
	defer t.Unlock()
	t.requestHandlers[method] = handler
}

// RegisterNotificationHandler registers a handler for incoming notifications.
func (t *BaseTransport) RegisterNotificationHandler(method string, handler NotificationHandler) {
	t.Lock()
	defer t.Unlock()
	t.notificationHandlers[method] = handler
}

// GenerateID returns a unique request ID of the form "req_N".
func (t *BaseTransport) GenerateID() string {
	t.Lock()
	defer t.Unlock()
	id := t.nextID
	t.nextID++
	return fmt.Sprintf("req_%d", id)
}

// HandleRequest dispatches an incoming request to its registered handler.
// Panics in handlers are converted into internal error responses.
func (t *BaseTransport) HandleRequest(ctx context.Context, request *protocol.Request) (resp *protocol.Response) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("panic in request handler",
				logging.String("method", request.Method),
				logging.Any("panic", r))
			resp, _ = protocol.NewErrorResponse(request.ID, protocol.InternalError,
				fmt.Sprintf("internal error processing %s", request.Method), nil)
		}
	}()

	t.RLock()
	handler, ok := t.requestHandlers[request.Method]
	t.RUnlock()

	if !ok {
		mcpErr := mcperrors.MethodNotFound(request.Method)
		resp, _ := protocol.NewErrorResponse(request.ID, protocol.ErrorCode(mcpErr.Code()), mcpErr.Message(), nil)
		return resp
	}

	// Expose the request ID so handlers can correlate logs and track
	// cancellable work.
	ctx = logging.ContextWithRequestID(ctx, fmt.Sprintf("%v", request.ID))

	result, err := handler(ctx, request.Params)
	if err != nil {
		return errorResponse(request.ID, err)
	}

	resultBytes, err := json.Marshal(result)
	if err != nil {
		errResp, _ := protocol.NewErrorResponse(request.ID, protocol.InternalError,
			fmt.Sprintf("failed to marshal result: %v", err), nil)
		return errResp
	}
	okResp, _ := protocol.NewResponse(request.ID, json.RawMessage(resultBytes))
	return okResp
}

// errorResponse maps a handler error onto a JSON-RPC error response. MCP
// errors keep their code and structured data; everything else is internal.
func errorResponse(id interface{}, err error) *protocol.Response {
	if mcpErr, ok := mcperrors.AsMCPError(err); ok {
		var data json.RawMessage
		if mcpErr.Data() != nil {
			if raw, marshalErr := json.Marshal(mcpErr.Data()); marshalErr == nil {
				data = raw
			}
		}
		resp, _ := protocol.NewErrorResponse(id, protocol.ErrorCode(mcpErr.Code()), mcpErr.Message(), data)
		return resp
	}
	resp, _ := protocol.NewErrorResponse(id, protocol.InternalError, err.Error(), nil)
	return resp
}

// HandleNotification dispatches an incoming notification. Notifications
// with no registered handler are dropped.
func (t *BaseTransport) HandleNotification(ctx context.Context, notification *protocol.Notification) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic processing notification %s: %v", notification.Method, r)
		}
	}()

	t.RLock()
	handler, ok := t.notificationHandlers[notification.Method]
	t.RUnlock()

	if !ok {
		t.logger.Debug("dropping notification with no handler",
			logging.String("method", notification.Method))
		return nil
	}
	return handler(ctx, notification.Params)
}

// HandleResponse delivers an incoming response to the goroutine waiting on
// its request ID.
func (t *BaseTransport) HandleResponse(response *protocol.Response) {
	key := fmt.Sprintf("%v", response.ID)
	t.Lock()
	ch, ok := t.pendingRequests[key]
	if ok {
		delete(t.pendingRequests, key)
	}
	t.Unlock()

	if ok {
		ch <- response
	} else {
		t.logger.Debug("dropping response with no pending request",
			logging.String("id", key))
	}
}

// WaitForResponse blocks until a response with the given ID arrives or the
// context is done.
func (t *BaseTransport) WaitForResponse(ctx context.Context, id string) (*protocol.Response, error) {
	ch := make(chan *protocol.Response, 1)
	t.Lock()
	t.pendingRequests[id] = ch
	t.Unlock()

	select {
	case response := <-ch:
		return response, nil
	case <-ctx.Done():
		t.Lock()
		delete(t.pendingRequests, id)
		t.Unlock()
		return nil, ctx.Err()
	}
}

// DispatchMessage classifies a raw message and routes it to the matching
// handler. Responses to outgoing requests are delivered via send.
func (t *BaseTransport) DispatchMessage(ctx context.Context, data []byte, send func([]byte) error) error {
	var probe struct {
		Method string          `json:"method"`
		ID     interface{}     `json:"id"`
		Result json.RawMessage `json:"result"`
		Error  json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return mcperrors.ParseError(err)
	}

	switch {
	case probe.ID != nil && probe.Method == "":
		// Response to one of our requests.
		var resp protocol.Response
		if err := json.Unmarshal(data, &resp); err != nil {
			return mcperrors.ParseError(err)
		}
		t.HandleResponse(&resp)
		return nil

	case probe.ID != nil:
		var req protocol.Request
		if err := json.Unmarshal(data, &req); err != nil {
			return mcperrors.ParseError(err)
		}
		// Requests run on their own goroutine so a slow handler does not
		// block the read loop. Cancellation notifications for in-flight
		// requests depend on this.
		go func() {
			resp := t.HandleRequest(ctx, &req)
			if resp == nil {
				return
			}
			respData, err := json.Marshal(resp)
			if err != nil {
				t.logger.Error("failed to marshal response",
					logging.String("method", req.Method),
					logging.ErrorField(err))
				return
			}
			if err := send(respData); err != nil {
				t.logger.Error("failed to send response",
					logging.String("method", req.Method),
					logging.ErrorField(err))
			}
		}()
		return nil

	case probe.Method != "":
		var notif protocol.Notification
		if err := json.Unmarshal(data, &notif); err != nil {
			return mcperrors.ParseError(err)
		}
		return t.HandleNotification(ctx, &notif)

	default:
		return mcperrors.NewErrorf(mcperrors.CodeInvalidRequest,
			mcperrors.CategoryProtocol, mcperrors.SeverityError,
			"message is neither request, response, nor notification: %s", string(data))
	}
}

// Cleanup closes all pending request channels.
func (t *BaseTransport) Cleanup() {
	t.Lock()
	defer t.Unlock()
	for _, ch := range t.pendingRequests {
		close(ch)
	}
	t.pendingRequests = make(map[string]chan *protocol.Response)
}
