package protocol

// Prompt describes a conversation template exposed by a server
type Prompt struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
	Tags        []string         `json:"tags,omitempty"`
}

// PromptArgument defines a parameter accepted by a prompt
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// PromptMessage is one message of a rendered prompt
type PromptMessage struct {
	Role    string  `json:"role"`
	Content Content `json:"content"`
}

// NewTextPromptMessage creates a prompt message with text content
func NewTextPromptMessage(role, text string) PromptMessage {
	return PromptMessage{Role: role, Content: NewTextContent(text)}
}

// ListPromptsParams defines parameters for prompts/list
type ListPromptsParams struct {
	Tag string `json:"tag,omitempty"`
	PaginationParams
}

// ListPromptsResult defines the response for prompts/list
type ListPromptsResult struct {
	Prompts []Prompt `json:"prompts"`
	PaginationResult
}

// GetPromptParams defines parameters for prompts/get
type GetPromptParams struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments,omitempty"`
}

// GetPromptResult defines the response for prompts/get
type GetPromptResult struct {
	Description string          `json:"description,omitempty"`
	Messages    []PromptMessage `json:"messages"`
}

// PromptsListChangedParams defines parameters for notifications/prompts/list_changed
type PromptsListChangedParams struct {
	Added   []Prompt `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
}
