package protocol

import "encoding/json"

// Tool describes a callable tool exposed by a server
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
	Categories  []string        `json:"categories,omitempty"`
}

// ListToolsParams defines parameters for tools/list
type ListToolsParams struct {
	Category string `json:"category,omitempty"`
	PaginationParams
}

// ListToolsResult defines the response for tools/list
type ListToolsResult struct {
	Tools []Tool `json:"tools"`
	PaginationResult
}

// CallToolParams defines parameters for tools/call
type CallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// CallToolResult defines the response for tools/call. Tool execution
// failures are reported in-band: IsError is set and Content carries the
// error text, so a failed tool call is still a successful JSON-RPC exchange.
type CallToolResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// NewToolResult wraps a structured value as a successful tool result
func NewToolResult(v interface{}) (*CallToolResult, error) {
	content, err := NewJSONContent(v)
	if err != nil {
		return nil, err
	}
	return &CallToolResult{Content: []Content{content}}, nil
}

// NewToolError wraps an error message as a failed tool result
func NewToolError(msg string) *CallToolResult {
	return &CallToolResult{
		Content: []Content{NewTextContent(msg)},
		IsError: true,
	}
}

// ToolsListChangedParams defines parameters for notifications/tools/list_changed
type ToolsListChangedParams struct {
	Added   []Tool   `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
}
