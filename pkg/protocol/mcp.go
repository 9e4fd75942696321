package protocol

import "time"

const (
	// ProtocolRevision is the MCP protocol revision this implementation speaks
	ProtocolRevision = "2024-11-05"

	// Methods for lifecycle management
	MethodInitialize  = "initialize"
	MethodInitialized = "notifications/initialized"

	// Methods for server features
	MethodListTools            = "tools/list"
	MethodCallTool             = "tools/call"
	MethodToolsListChanged     = "notifications/tools/list_changed"
	MethodListResources        = "resources/list"
	MethodReadResource         = "resources/read"
	MethodSubscribeResource    = "resources/subscribe"
	MethodUnsubscribeResource  = "resources/unsubscribe"
	MethodResourceUpdated      = "notifications/resources/updated"
	MethodResourcesListChanged = "notifications/resources/list_changed"
	MethodListPrompts          = "prompts/list"
	MethodGetPrompt            = "prompts/get"
	MethodPromptsListChanged   = "notifications/prompts/list_changed"

	// Methods for utilities
	MethodPing        = "ping"
	MethodCancel      = "notifications/cancelled"
	MethodLogMessage  = "notifications/message"
	MethodSetLogLevel = "logging/setLevel"
)

// CapabilityType identifies an MCP capability announced during initialization
type CapabilityType string

const (
	// CapabilityTools indicates the server supports tools
	CapabilityTools CapabilityType = "tools"

	// CapabilityResources indicates the server supports resources
	CapabilityResources CapabilityType = "resources"

	// CapabilityResourceSubscriptions indicates the server supports resource subscriptions
	CapabilityResourceSubscriptions CapabilityType = "resourceSubscriptions"

	// CapabilityPrompts indicates the server supports prompts
	CapabilityPrompts CapabilityType = "prompts"

	// CapabilityLogging indicates the server forwards log messages to the client
	CapabilityLogging CapabilityType = "logging"
)

// InitializeParams defines the parameters for the initialize request
type InitializeParams struct {
	ProtocolVersion string          `json:"protocolVersion"`
	Capabilities    map[string]bool `json:"capabilities"`
	ClientInfo      *ClientInfo     `json:"clientInfo,omitempty"`
}

// ClientInfo identifies the connecting client
type ClientInfo struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	Platform string `json:"platform,omitempty"`
}

// InitializeResult defines the response for the initialize request
type InitializeResult struct {
	ProtocolVersion string          `json:"protocolVersion"`
	Capabilities    map[string]bool `json:"capabilities"`
	ServerInfo      *ServerInfo     `json:"serverInfo,omitempty"`
	Instructions    string          `json:"instructions,omitempty"`
}

// ServerInfo identifies the server a client has connected to
type ServerInfo struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
}

// InitializedParams is sent as a notification once the client is ready
type InitializedParams struct {
	// Intentionally empty as per specification
}

// PingParams defines parameters for the ping request
type PingParams struct {
	// Optional timestamp from sender, echoed back in the result
	Timestamp int64 `json:"timestamp,omitempty"`
}

// PingResult is the response for ping
type PingResult struct {
	Timestamp int64 `json:"timestamp"`
}

// CancelParams defines parameters for the cancelled notification
type CancelParams struct {
	RequestID interface{} `json:"requestId"`
	Reason    string      `json:"reason,omitempty"`
}

// LogLevel specifies the severity of log messages forwarded to the client
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// SetLogLevelParams defines parameters for the logging/setLevel request
type SetLogLevelParams struct {
	Level LogLevel `json:"level"`
}

// SetLogLevelResult is the response for logging/setLevel
type SetLogLevelResult struct{}

// LogMessageParams defines parameters for the notifications/message notification
type LogMessageParams struct {
	Level  LogLevel    `json:"level"`
	Logger string      `json:"logger,omitempty"`
	Time   time.Time   `json:"time,omitempty"`
	Data   interface{} `json:"data,omitempty"`
}

// PaginationParams for requests that support cursor pagination
type PaginationParams struct {
	Limit  int    `json:"limit,omitempty"`
	Cursor string `json:"cursor,omitempty"`
}

// PaginationResult for responses that support cursor pagination
type PaginationResult struct {
	TotalCount int    `json:"totalCount,omitempty"`
	NextCursor string `json:"nextCursor,omitempty"`
	HasMore    bool   `json:"hasMore,omitempty"`
}
