package protocol

import "time"

// Resource describes a readable resource exposed by a server
type Resource struct {
	URI         string    `json:"uri"`
	Name        string    `json:"name,omitempty"`
	Description string    `json:"description,omitempty"`
	MimeType    string    `json:"mimeType,omitempty"`
	Size        int64     `json:"size,omitempty"`
	ModTime     time.Time `json:"modTime,omitempty"`
}

// ResourceContents is the content of a resource returned by resources/read
type ResourceContents struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`

	// Text is set for textual resources; Blob (base64) for binary ones.
	Text string `json:"text,omitempty"`
	Blob string `json:"blob,omitempty"`
}

// ListResourcesParams defines parameters for resources/list
type ListResourcesParams struct {
	PaginationParams
}

// ListResourcesResult defines the response for resources/list
type ListResourcesResult struct {
	Resources []Resource `json:"resources"`
	PaginationResult
}

// ReadResourceParams defines parameters for resources/read
type ReadResourceParams struct {
	URI string `json:"uri"`
}

// ReadResourceResult defines the response for resources/read
type ReadResourceResult struct {
	Contents []ResourceContents `json:"contents"`
}

// SubscribeResourceParams defines parameters for resources/subscribe
type SubscribeResourceParams struct {
	URI string `json:"uri"`
}

// SubscribeResourceResult defines the response for resources/subscribe
type SubscribeResourceResult struct{}

// UnsubscribeResourceParams defines parameters for resources/unsubscribe
type UnsubscribeResourceParams struct {
	URI string `json:"uri"`
}

// ResourceUpdatedParams defines parameters for notifications/resources/updated
type ResourceUpdatedParams struct {
	URI string `json:"uri"`
}

// ResourcesListChangedParams defines parameters for notifications/resources/list_changed
type ResourcesListChangedParams struct {
	Added   []Resource `json:"added,omitempty"`
	Removed []string   `json:"removed,omitempty"`
}
