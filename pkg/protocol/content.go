package protocol

import (
	"encoding/json"
	"fmt"
)

// Content is a single item of the MCP content union carried by tool results
// and prompt messages. Exactly one payload field is populated according to
// Type; the demos in this repository emit text content only, but the wire
// format accepts the full union.
type Content struct {
	Type string `json:"type"`

	// Text payload, set when Type == "text"
	Text string `json:"text,omitempty"`

	// Binary payload (base64), set when Type == "image"
	Data     string `json:"data,omitempty"`
	MimeType string `json:"mimeType,omitempty"`

	// Embedded resource, set when Type == "resource"
	Resource *ResourceContents `json:"resource,omitempty"`
}

// NewTextContent creates a text content item
func NewTextContent(text string) Content {
	return Content{Type: "text", Text: text}
}

// NewJSONContent marshals v with indentation and wraps it as text content.
// Tool handlers use this for structured results, matching the transcript
// format the demo servers print.
func NewJSONContent(v interface{}) (Content, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return Content{}, fmt.Errorf("failed to marshal content: %w", err)
	}
	return Content{Type: "text", Text: string(data)}, nil
}

// Validate checks that the content item is well formed
func (c Content) Validate() error {
	switch c.Type {
	case "text":
		if c.Text == "" {
			return fmt.Errorf("text content must have text")
		}
	case "image":
		if c.Data == "" || c.MimeType == "" {
			return fmt.Errorf("image content must have data and mimeType")
		}
	case "resource":
		if c.Resource == nil {
			return fmt.Errorf("resource content must have a resource")
		}
	default:
		return fmt.Errorf("unknown content type: %q", c.Type)
	}
	return nil
}
