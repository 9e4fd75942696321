package errors

import (
	"fmt"
	"time"
)

// TransportErrorData describes a transport failure.
type TransportErrorData struct {
	Transport string `json:"transport"`
	Operation string `json:"operation,omitempty"`
	Endpoint  string `json:"endpoint,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// ProviderErrorData describes a provider failure.
type ProviderErrorData struct {
	ProviderType string `json:"provider_type"`
	Operation    string `json:"operation,omitempty"`
	Configured   bool   `json:"configured"`
	Reason       string `json:"reason,omitempty"`
}

// Transport errors

// TransportError creates a generic transport error.
func TransportError(transport, operation string, cause error) MCPError {
	reason := ""
	if cause != nil {
		reason = cause.Error()
	}
	return WrapError(
		cause,
		CodeTransportError,
		fmt.Sprintf("%s transport error during %s", transport, operation),
		CategoryTransport,
		SeverityError,
	).WithData(&TransportErrorData{
		Transport: transport,
		Operation: operation,
		Reason:    reason,
	})
}

// StdioTransportError creates an error for stdio transport failures.
func StdioTransportError(operation string, cause error) MCPError {
	return TransportError("stdio", operation, cause)
}

// TransportNotInitialized creates an error for operations on a transport
// that has not been initialized.
func TransportNotInitialized(transport string) MCPError {
	return NewError(
		CodeTransportError,
		fmt.Sprintf("%s transport not initialized", transport),
		CategoryTransport,
		SeverityError,
	).WithData(&TransportErrorData{
		Transport: transport,
		Reason:    "not initialized",
	})
}

// ConnectionLost creates an error for a connection dropped mid-operation.
func ConnectionLost(transport string, cause error) MCPError {
	return WrapError(
		cause,
		CodeConnectionLost,
		fmt.Sprintf("%s connection lost", transport),
		CategoryTransport,
		SeverityError,
	)
}

// ResponseTimeout creates an error for requests that received no response
// within the deadline.
func ResponseTimeout(transport, requestID string, timeout time.Duration) MCPError {
	return NewError(
		CodeConnectionTimeout,
		fmt.Sprintf("no response to request %s within %s", requestID, timeout),
		CategoryTransport,
		SeverityWarning,
	).WithData(&TransportErrorData{
		Transport: transport,
		Operation: "send_request",
		Reason:    fmt.Sprintf("timeout after %s", timeout),
	})
}

// Validation errors

// ValidationError creates a generic validation error.
func ValidationError(message string) MCPError {
	return NewError(CodeInvalidParams, message, CategoryValidation, SeverityError)
}

// ValidationErrorf creates a validation error with a formatted message.
func ValidationErrorf(format string, args ...interface{}) MCPError {
	return NewErrorf(CodeInvalidParams, CategoryValidation, SeverityError, format, args...)
}

// MissingParameter creates an error for a required parameter that is absent.
func MissingParameter(param string) MCPError {
	return NewError(
		CodeInvalidParams,
		fmt.Sprintf("required parameter '%s' is missing", param),
		CategoryValidation,
		SeverityError,
	)
}

// InvalidParameter creates an error for a parameter with an unacceptable value.
func InvalidParameter(param string, value interface{}, expected string) MCPError {
	return NewError(
		CodeInvalidParams,
		fmt.Sprintf("invalid value for parameter '%s': got %v, expected %s", param, value, expected),
		CategoryValidation,
		SeverityError,
	)
}

// Pagination errors

// InvalidCursor creates an error for an unparseable pagination cursor.
func InvalidCursor(cursor, reason string) MCPError {
	return NewError(
		CodeInvalidCursor,
		fmt.Sprintf("invalid pagination cursor '%s': %s", cursor, reason),
		CategoryValidation,
		SeverityError,
	)
}

// InvalidLimit creates an error for an out-of-range pagination limit.
func InvalidLimit(limit, maxLimit int) MCPError {
	return NewError(
		CodeInvalidLimit,
		fmt.Sprintf("pagination limit %d exceeds maximum %d", limit, maxLimit),
		CategoryValidation,
		SeverityError,
	)
}

// Lookup errors

// ResourceNotFoundByURI creates an error for an unknown resource URI.
func ResourceNotFoundByURI(uri string) MCPError {
	return NewError(
		CodeResourceNotFound,
		fmt.Sprintf("resource '%s' not found", uri),
		CategoryNotFound,
		SeverityError,
	)
}

// ToolNotFound creates an error for an unknown tool name.
func ToolNotFound(name string) MCPError {
	return NewError(
		CodeInvalidParams,
		fmt.Sprintf("tool '%s' not found", name),
		CategoryNotFound,
		SeverityError,
	)
}

// PromptNotFound creates an error for an unknown prompt name.
func PromptNotFound(name string) MCPError {
	return NewError(
		CodeInvalidParams,
		fmt.Sprintf("prompt '%s' not found", name),
		CategoryNotFound,
		SeverityError,
	)
}

// MethodNotFound creates an error for an unhandled method.
func MethodNotFound(method string) MCPError {
	return NewError(
		CodeMethodNotFound,
		fmt.Sprintf("method '%s' not found", method),
		CategoryProtocol,
		SeverityError,
	)
}

// Provider errors

// ProviderNotConfigured creates an error for a capability whose provider
// is not configured on the server.
func ProviderNotConfigured(providerType string) MCPError {
	return NewError(
		CodeProviderNotConfigured,
		fmt.Sprintf("%s provider not configured", providerType),
		CategoryProvider,
		SeverityError,
	).WithData(&ProviderErrorData{
		ProviderType: providerType,
		Configured:   false,
	})
}

// ProviderError wraps a failure inside a provider operation.
func ProviderError(providerType, operation string, cause error) MCPError {
	reason := ""
	if cause != nil {
		reason = cause.Error()
	}
	return WrapError(
		cause,
		CodeProviderError,
		fmt.Sprintf("%s provider failed during %s", providerType, operation),
		CategoryProvider,
		SeverityError,
	).WithData(&ProviderErrorData{
		ProviderType: providerType,
		Operation:    operation,
		Configured:   true,
		Reason:       reason,
	})
}

// Protocol errors

// ServerNotInitialized creates an error for requests received before the
// initialize handshake completed.
func ServerNotInitialized(method string) MCPError {
	return NewError(
		CodeServerNotInitialized,
		fmt.Sprintf("server not initialized, cannot handle '%s'", method),
		CategoryProtocol,
		SeverityError,
	)
}

// RequestCancelled creates an error for a request cancelled before completion.
func RequestCancelled(requestID, reason string) MCPError {
	msg := fmt.Sprintf("request %s cancelled", requestID)
	if reason != "" {
		msg = fmt.Sprintf("%s: %s", msg, reason)
	}
	return NewError(CodeRequestCancelled, msg, CategoryCancelled, SeverityInfo)
}

// CapabilityRequired creates an error for a request that needs a capability
// the peer did not negotiate.
func CapabilityRequired(capability string) MCPError {
	return NewError(
		CodeCapabilityRequired,
		fmt.Sprintf("capability '%s' is required but not enabled", capability),
		CategoryProtocol,
		SeverityError,
	)
}

// VersionMismatch creates an error for a protocol revision the server does
// not support.
func VersionMismatch(expected, actual string) MCPError {
	return NewError(
		CodeInvalidRequest,
		fmt.Sprintf("protocol version mismatch: expected %s, got %s", expected, actual),
		CategoryProtocol,
		SeverityError,
	)
}

// Internal errors

// InternalError wraps an unexpected failure.
func InternalError(cause error) MCPError {
	return WrapError(cause, CodeInternalError, "internal error", CategoryInternal, SeverityCritical)
}

// InternalErrorf creates an internal error with a formatted message.
func InternalErrorf(format string, args ...interface{}) MCPError {
	return NewErrorf(CodeInternalError, CategoryInternal, SeverityCritical, format, args...)
}

// ParseError wraps a JSON decoding failure.
func ParseError(cause error) MCPError {
	return WrapError(cause, CodeParseError, "parse error", CategoryProtocol, SeverityError)
}
