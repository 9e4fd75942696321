// Package errors provides structured error handling for the SDK. Errors
// carry a JSON-RPC code, a category for classification, and optional
// context describing where the failure happened.
package errors

import (
	"encoding/json"
	"fmt"
	"time"
)

// Category classifies an error for handling and reporting.
type Category string

const (
	CategoryValidation Category = "validation"
	CategoryNotFound   Category = "not_found"
	CategoryTransport  Category = "transport"
	CategoryProvider   Category = "provider"
	CategoryInternal   Category = "internal"
	CategoryCancelled  Category = "cancelled"
	CategoryProtocol   Category = "protocol"
)

// Severity indicates how critical an error is.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Context records where and when an error occurred.
type Context struct {
	RequestID string    `json:"request_id,omitempty"`
	Method    string    `json:"method,omitempty"`
	Component string    `json:"component,omitempty"`
	Operation string    `json:"operation,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// MCPError is the interface implemented by all SDK errors.
type MCPError interface {
	error

	// Code returns the JSON-RPC error code.
	Code() int

	// Message returns a human-readable error message.
	Message() string

	// Details returns a technical description for debugging.
	Details() string

	// Data returns structured error data for programmatic handling.
	Data() interface{}

	// Category returns the error category.
	Category() Category

	// Severity returns the error severity.
	Severity() Severity

	// Context returns the error context, which may be nil.
	Context() *Context

	// WithContext returns a copy of the error with the given context.
	WithContext(ctx *Context) MCPError

	// WithDetail returns a copy of the error with an additional detail.
	WithDetail(detail string) MCPError

	// WithData returns a copy of the error with structured data attached.
	WithData(data interface{}) MCPError

	// Unwrap returns the underlying cause, if any.
	Unwrap() error

	// ToJSON returns the error as a JSON-serializable map.
	ToJSON() map[string]interface{}
}

type baseError struct {
	code     int
	message  string
	details  string
	data     interface{}
	category Category
	severity Severity
	context  *Context
	cause    error
}

func (e *baseError) Error() string {
	if e.details != "" {
		return fmt.Sprintf("%s: %s", e.message, e.details)
	}
	return e.message
}

func (e *baseError) Code() int           { return e.code }
func (e *baseError) Message() string     { return e.message }
func (e *baseError) Details() string     { return e.details }
func (e *baseError) Data() interface{}   { return e.data }
func (e *baseError) Category() Category  { return e.category }
func (e *baseError) Severity() Severity  { return e.severity }
func (e *baseError) Context() *Context   { return e.context }
func (e *baseError) Unwrap() error       { return e.cause }

func (e *baseError) WithContext(ctx *Context) MCPError {
	clone := *e
	clone.context = ctx
	return &clone
}

func (e *baseError) WithDetail(detail string) MCPError {
	clone := *e
	if clone.details != "" {
		clone.details = fmt.Sprintf("%s; %s", clone.details, detail)
	} else {
		clone.details = detail
	}
	return &clone
}

func (e *baseError) WithData(data interface{}) MCPError {
	clone := *e
	clone.data = data
	return &clone
}

func (e *baseError) ToJSON() map[string]interface{} {
	result := map[string]interface{}{
		"code":     e.code,
		"message":  e.message,
		"category": string(e.category),
		"severity": string(e.severity),
	}
	if e.details != "" {
		result["details"] = e.details
	}
	if e.data != nil {
		result["data"] = e.data
	}
	if e.context != nil {
		result["context"] = e.context
	}
	if e.cause != nil {
		result["cause"] = e.cause.Error()
	}
	return result
}

// MarshalJSON implements json.Marshaler.
func (e *baseError) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.ToJSON())
}

// NewError creates a new MCPError with the given code, message, category
// and severity.
func NewError(code int, message string, category Category, severity Severity) MCPError {
	return &baseError{
		code:     code,
		message:  message,
		category: category,
		severity: severity,
		context:  &Context{Timestamp: time.Now()},
	}
}

// NewErrorf creates a new MCPError with a formatted message.
func NewErrorf(code int, category Category, severity Severity, format string, args ...interface{}) MCPError {
	return &baseError{
		code:     code,
		message:  fmt.Sprintf(format, args...),
		category: category,
		severity: severity,
		context:  &Context{Timestamp: time.Now()},
	}
}

// WrapError wraps an existing error as an MCPError, preserving it as the
// cause for errors.Unwrap.
func WrapError(err error, code int, message string, category Category, severity Severity) MCPError {
	return &baseError{
		code:     code,
		message:  message,
		category: category,
		severity: severity,
		cause:    err,
		context:  &Context{Timestamp: time.Now()},
	}
}

// AsMCPError extracts an MCPError from err if it is one.
func AsMCPError(err error) (MCPError, bool) {
	if err == nil {
		return nil, false
	}
	if mcpErr, ok := err.(MCPError); ok {
		return mcpErr, true
	}
	return nil, false
}

// IsMCPError reports whether err is an MCPError.
func IsMCPError(err error) bool {
	_, ok := AsMCPError(err)
	return ok
}

// IsCategory reports whether err is an MCPError of the given category.
func IsCategory(err error, category Category) bool {
	if mcpErr, ok := AsMCPError(err); ok {
		return mcpErr.Category() == category
	}
	return false
}

// IsCode reports whether err is an MCPError with the given code.
func IsCode(err error, code int) bool {
	if mcpErr, ok := AsMCPError(err); ok {
		return mcpErr.Code() == code
	}
	return false
}
