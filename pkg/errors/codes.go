package errors

// JSON-RPC 2.0 standard error codes.
const (
	// CodeParseError indicates invalid JSON was received.
	CodeParseError int = -32700

	// CodeInvalidRequest indicates the payload is not a valid Request object.
	CodeInvalidRequest int = -32600

	// CodeMethodNotFound indicates the method does not exist.
	CodeMethodNotFound int = -32601

	// CodeInvalidParams indicates invalid method parameters.
	CodeInvalidParams int = -32602

	// CodeInternalError indicates an internal JSON-RPC error.
	CodeInternalError int = -32603
)

// Protocol-level error codes carried on the wire.
const (
	// CodeResourceNotFound indicates a requested resource URI is unknown.
	CodeResourceNotFound int = -32001

	// CodeServerNotInitialized indicates a request arrived before initialize.
	CodeServerNotInitialized int = -32002

	// CodeRequestCancelled indicates the request was cancelled before completion.
	CodeRequestCancelled int = -32800
)

// SDK-internal error codes. These occupy the implementation-defined server
// error space and never collide with the wire codes above.
const (
	// Transport errors (-32500 to -32599)
	CodeTransportError    int = -32500
	CodeConnectionLost    int = -32502
	CodeConnectionTimeout int = -32503

	// Provider errors (-32650 to -32699)
	CodeProviderNotConfigured int = -32650
	CodeProviderUnavailable   int = -32651
	CodeProviderError         int = -32652

	// Capability errors (-32400 to -32499)
	CodeCapabilityRequired int = -32401

	// Pagination errors (-32680 to -32689)
	CodeInvalidCursor int = -32681
	CodeInvalidLimit  int = -32682
)

// ErrorCodeInfo provides human-readable information about an error code.
type ErrorCodeInfo struct {
	Code        int
	Name        string
	Description string
	Category    Category
	Severity    Severity
}

var errorCodeRegistry = map[int]ErrorCodeInfo{
	CodeParseError:           {CodeParseError, "ParseError", "Invalid JSON was received", CategoryProtocol, SeverityError},
	CodeInvalidRequest:       {CodeInvalidRequest, "InvalidRequest", "Invalid Request object", CategoryProtocol, SeverityError},
	CodeMethodNotFound:       {CodeMethodNotFound, "MethodNotFound", "Method does not exist", CategoryProtocol, SeverityError},
	CodeInvalidParams:        {CodeInvalidParams, "InvalidParams", "Invalid method parameters", CategoryValidation, SeverityError},
	CodeInternalError:        {CodeInternalError, "InternalError", "Internal error", CategoryInternal, SeverityError},
	CodeResourceNotFound:     {CodeResourceNotFound, "ResourceNotFound", "Resource not found", CategoryNotFound, SeverityError},
	CodeServerNotInitialized: {CodeServerNotInitialized, "ServerNotInitialized", "Server not initialized", CategoryProtocol, SeverityError},
	CodeRequestCancelled:     {CodeRequestCancelled, "RequestCancelled", "Request cancelled", CategoryCancelled, SeverityInfo},

	CodeTransportError:    {CodeTransportError, "TransportError", "Transport failure", CategoryTransport, SeverityError},
	CodeConnectionLost:    {CodeConnectionLost, "ConnectionLost", "Connection lost", CategoryTransport, SeverityError},
	CodeConnectionTimeout: {CodeConnectionTimeout, "ConnectionTimeout", "Connection timed out", CategoryTransport, SeverityWarning},

	CodeProviderNotConfigured: {CodeProviderNotConfigured, "ProviderNotConfigured", "Provider not configured", CategoryProvider, SeverityError},
	CodeProviderUnavailable:   {CodeProviderUnavailable, "ProviderUnavailable", "Provider unavailable", CategoryProvider, SeverityWarning},
	CodeProviderError:         {CodeProviderError, "ProviderError", "Provider operation failed", CategoryProvider, SeverityError},

	CodeCapabilityRequired: {CodeCapabilityRequired, "CapabilityRequired", "Required capability not enabled", CategoryProtocol, SeverityError},

	CodeInvalidCursor: {CodeInvalidCursor, "InvalidCursor", "Invalid pagination cursor", CategoryValidation, SeverityError},
	CodeInvalidLimit:  {CodeInvalidLimit, "InvalidLimit", "Invalid pagination limit", CategoryValidation, SeverityError},
}

// LookupCode returns information about an error code, if registered.
func LookupCode(code int) (ErrorCodeInfo, bool) {
	info, ok := errorCodeRegistry[code]
	return info, ok
}

// CodeName returns the registered name of an error code, or "Unknown".
func CodeName(code int) string {
	if info, ok := errorCodeRegistry[code]; ok {
		return info.Name
	}
	return "Unknown"
}
