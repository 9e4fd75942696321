package server

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	mcperrors "github.com/mcplabs/foundations/pkg/errors"
	"github.com/mcplabs/foundations/pkg/pagination"
	"github.com/mcplabs/foundations/pkg/protocol"
)

// ToolsProvider supplies the tools capability.
type ToolsProvider interface {
	// ListTools returns tools, optionally filtered by category.
	ListTools(ctx context.Context, category string, page *protocol.PaginationParams) ([]protocol.Tool, *protocol.PaginationResult, error)

	// CallTool executes a tool. Execution failures should be reported
	// in-band via CallToolResult.IsError; returned errors fail the
	// JSON-RPC request itself.
	CallTool(ctx context.Context, name string, args json.RawMessage) (*protocol.CallToolResult, error)
}

// ResourcesProvider supplies the resources capability.
type ResourcesProvider interface {
	// ListResources returns the available resources.
	ListResources(ctx context.Context, page *protocol.PaginationParams) ([]protocol.Resource, *protocol.PaginationResult, error)

	// ReadResource reads a resource by URI.
	ReadResource(ctx context.Context, uri string) ([]protocol.ResourceContents, error)
}

// PromptsProvider supplies the prompts capability.
type PromptsProvider interface {
	// ListPrompts returns prompts, optionally filtered by tag.
	ListPrompts(ctx context.Context, tag string, page *protocol.PaginationParams) ([]protocol.Prompt, *protocol.PaginationResult, error)

	// GetPrompt renders a prompt with the given arguments.
	GetPrompt(ctx context.Context, name string, args map[string]string) (*protocol.GetPromptResult, error)
}

// ToolHandler executes a single tool call.
type ToolHandler func(ctx context.Context, args json.RawMessage) (*protocol.CallToolResult, error)

// BaseToolsProvider is a map-backed ToolsProvider. Tools are registered
// with a handler that executes them.
type BaseToolsProvider struct {
	mu       sync.RWMutex
	tools    map[string]protocol.Tool
	handlers map[string]ToolHandler
}

// NewBaseToolsProvider creates an empty tools provider.
func NewBaseToolsProvider() *BaseToolsProvider {
	return &BaseToolsProvider{
		tools:    make(map[string]protocol.Tool),
		handlers: make(map[string]ToolHandler),
	}
}

// RegisterTool registers a tool and its handler.
func (p *BaseToolsProvider) RegisterTool(tool protocol.Tool, handler ToolHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tools[tool.Name] = tool
	p.handlers[tool.Name] = handler
}

// ListTools implements ToolsProvider. Tools are returned in name order so
// pagination cursors stay stable.
func (p *BaseToolsProvider) ListTools(ctx context.Context, category string, page *protocol.PaginationParams) ([]protocol.Tool, *protocol.PaginationResult, error) {
	if err := pagination.ValidateParams(page); err != nil {
		return nil, nil, err
	}

	p.mu.RLock()
	tools := make([]protocol.Tool, 0, len(p.tools))
	for _, tool := range p.tools {
		if category != "" && !containsString(tool.Categories, category) {
			continue
		}
		tools = append(tools, tool)
	}
	p.mu.RUnlock()

	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })

	start, end, result, err := pagination.Page(len(tools), page)
	if err != nil {
		return nil, nil, err
	}
	return tools[start:end], result, nil
}

// CallTool implements ToolsProvider.
func (p *BaseToolsProvider) CallTool(ctx context.Context, name string, args json.RawMessage) (*protocol.CallToolResult, error) {
	p.mu.RLock()
	handler, ok := p.handlers[name]
	p.mu.RUnlock()

	if !ok {
		return nil, mcperrors.ToolNotFound(name)
	}
	return handler(ctx, args)
}

// ResourceReader produces the current contents of a resource.
type ResourceReader func(ctx context.Context) ([]protocol.ResourceContents, error)

// BaseResourcesProvider is a map-backed ResourcesProvider. Resources are
// registered with a reader that produces their contents on demand, so
// dynamic resources always reflect current state.
type BaseResourcesProvider struct {
	mu        sync.RWMutex
	resources map[string]protocol.Resource
	readers   map[string]ResourceReader
}

// NewBaseResourcesProvider creates an empty resources provider.
func NewBaseResourcesProvider() *BaseResourcesProvider {
	return &BaseResourcesProvider{
		resources: make(map[string]protocol.Resource),
		readers:   make(map[string]ResourceReader),
	}
}

// RegisterResource registers a resource and its reader.
func (p *BaseResourcesProvider) RegisterResource(resource protocol.Resource, reader ResourceReader) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resources[resource.URI] = resource
	p.readers[resource.URI] = reader
}

// RegisterStaticResource registers a resource with fixed text contents.
func (p *BaseResourcesProvider) RegisterStaticResource(resource protocol.Resource, text string) {
	contents := []protocol.ResourceContents{{
		URI:      resource.URI,
		MimeType: resource.MimeType,
		Text:     text,
	}}
	p.RegisterResource(resource, func(ctx context.Context) ([]protocol.ResourceContents, error) {
		return contents, nil
	})
}

// ListResources implements ResourcesProvider, ordered by URI.
func (p *BaseResourcesProvider) ListResources(ctx context.Context, page *protocol.PaginationParams) ([]protocol.Resource, *protocol.PaginationResult, error) {
	if err := pagination.ValidateParams(page); err != nil {
		return nil, nil, err
	}

	p.mu.RLock()
	resources := make([]protocol.Resource, 0, len(p.resources))
	for _, resource := range p.resources {
		resources = append(resources, resource)
	}
	p.mu.RUnlock()

	sort.Slice(resources, func(i, j int) bool { return resources[i].URI < resources[j].URI })

	start, end, result, err := pagination.Page(len(resources), page)
	if err != nil {
		return nil, nil, err
	}
	return resources[start:end], result, nil
}

// ReadResource implements ResourcesProvider.
func (p *BaseResourcesProvider) ReadResource(ctx context.Context, uri string) ([]protocol.ResourceContents, error) {
	p.mu.RLock()
	reader, ok := p.readers[uri]
	p.mu.RUnlock()

	if !ok {
		return nil, mcperrors.ResourceNotFoundByURI(uri)
	}
	return reader(ctx)
}

// PromptRenderer renders a prompt with the given arguments.
type PromptRenderer func(ctx context.Context, args map[string]string) (*protocol.GetPromptResult, error)

// BasePromptsProvider is a map-backed PromptsProvider.
type BasePromptsProvider struct {
	mu        sync.RWMutex
	prompts   map[string]protocol.Prompt
	renderers map[string]PromptRenderer
}

// NewBasePromptsProvider creates an empty prompts provider.
func NewBasePromptsProvider() *BasePromptsProvider {
	return &BasePromptsProvider{
		prompts:   make(map[string]protocol.Prompt),
		renderers: make(map[string]PromptRenderer),
	}
}

// RegisterPrompt registers a prompt and its renderer.
func (p *BasePromptsProvider) RegisterPrompt(prompt protocol.Prompt, renderer PromptRenderer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompts[prompt.Name] = prompt
	p.renderers[prompt.Name] = renderer
}

// ListPrompts implements PromptsProvider, ordered by name.
func (p *BasePromptsProvider) ListPrompts(ctx context.Context, tag string, page *protocol.PaginationParams) ([]protocol.Prompt, *protocol.PaginationResult, error) {
	if err := pagination.ValidateParams(page); err != nil {
		return nil, nil, err
	}

	p.mu.RLock()
	prompts := make([]protocol.Prompt, 0, len(p.prompts))
	for _, prompt := range p.prompts {
		if tag != "" && !containsString(prompt.Tags, tag) {
			continue
		}
		prompts = append(prompts, prompt)
	}
	p.mu.RUnlock()

	sort.Slice(prompts, func(i, j int) bool { return prompts[i].Name < prompts[j].Name })

	start, end, result, err := pagination.Page(len(prompts), page)
	if err != nil {
		return nil, nil, err
	}
	return prompts[start:end], result, nil
}

// GetPrompt implements PromptsProvider. Required arguments are validated
// before the renderer runs.
func (p *BasePromptsProvider) GetPrompt(ctx context.Context, name string, args map[string]string) (*protocol.GetPromptResult, error) {
	p.mu.RLock()
	prompt, ok := p.prompts[name]
	renderer := p.renderers[name]
	p.mu.RUnlock()

	if !ok {
		return nil, mcperrors.PromptNotFound(name)
	}

	for _, arg := range prompt.Arguments {
		if arg.Required {
			if _, present := args[arg.Name]; !present {
				return nil, mcperrors.MissingParameter(arg.Name)
			}
		}
	}

	return renderer(ctx, args)
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
