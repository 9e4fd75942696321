package server

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcperrors "github.com/mcplabs/foundations/pkg/errors"
	"github.com/mcplabs/foundations/pkg/pagination"
	"github.com/mcplabs/foundations/pkg/protocol"
)

func noopTool(ctx context.Context, args json.RawMessage) (*protocol.CallToolResult, error) {
	return protocol.NewToolResult("ok")
}

func TestToolsProviderListOrderingAndFilter(t *testing.T) {
	p := NewBaseToolsProvider()
	p.RegisterTool(protocol.Tool{Name: "zeta", Categories: []string{"misc"}}, noopTool)
	p.RegisterTool(protocol.Tool{Name: "alpha", Categories: []string{"math"}}, noopTool)
	p.RegisterTool(protocol.Tool{Name: "mid", Categories: []string{"math", "misc"}}, noopTool)

	tools, _, err := p.ListTools(context.Background(), "", nil)
	require.NoError(t, err)
	require.Len(t, tools, 3)
	assert.Equal(t, "alpha", tools[0].Name)
	assert.Equal(t, "mid", tools[1].Name)
	assert.Equal(t, "zeta", tools[2].Name)

	mathTools, _, err := p.ListTools(context.Background(), "math", nil)
	require.NoError(t, err)
	require.Len(t, mathTools, 2)
	assert.Equal(t, "alpha", mathTools[0].Name)
	assert.Equal(t, "mid", mathTools[1].Name)
}

func TestToolsProviderPagination(t *testing.T) {
	p := NewBaseToolsProvider()
	for i := 0; i < 5; i++ {
		p.RegisterTool(protocol.Tool{Name: fmt.Sprintf("tool-%d", i)}, noopTool)
	}

	page1, result, err := p.ListTools(context.Background(), "", &protocol.PaginationParams{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page1, 2)
	assert.Equal(t, "tool-0", page1[0].Name)
	require.NotNil(t, result)
	assert.True(t, result.HasMore)
	assert.Equal(t, 5, result.TotalCount)

	page2, result, err := p.ListTools(context.Background(), "",
		&protocol.PaginationParams{Limit: 2, Cursor: result.NextCursor})
	require.NoError(t, err)
	require.Len(t, page2, 2)
	assert.Equal(t, "tool-2", page2[0].Name)

	page3, result, err := p.ListTools(context.Background(), "",
		&protocol.PaginationParams{Limit: 2, Cursor: result.NextCursor})
	require.NoError(t, err)
	require.Len(t, page3, 1)
	assert.Equal(t, "tool-4", page3[0].Name)
	assert.False(t, result.HasMore)
	assert.Empty(t, result.NextCursor)
}

func TestToolsProviderInvalidCursor(t *testing.T) {
	p := NewBaseToolsProvider()
	p.RegisterTool(protocol.Tool{Name: "only"}, noopTool)

	_, _, err := p.ListTools(context.Background(), "",
		&protocol.PaginationParams{Cursor: "not base64!"})
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeInvalidCursor))
}

func TestToolsProviderUnknownTool(t *testing.T) {
	p := NewBaseToolsProvider()

	_, err := p.CallTool(context.Background(), "missing", nil)
	assert.True(t, mcperrors.IsCategory(err, mcperrors.CategoryNotFound))
}

func TestResourcesProviderDynamicReader(t *testing.T) {
	p := NewBaseResourcesProvider()

	counter := 0
	p.RegisterResource(protocol.Resource{URI: "test://counter", MimeType: "text/plain"},
		func(ctx context.Context) ([]protocol.ResourceContents, error) {
			counter++
			return []protocol.ResourceContents{{
				URI:      "test://counter",
				MimeType: "text/plain",
				Text:     fmt.Sprintf("%d", counter),
			}}, nil
		})

	first, err := p.ReadResource(context.Background(), "test://counter")
	require.NoError(t, err)
	second, err := p.ReadResource(context.Background(), "test://counter")
	require.NoError(t, err)

	assert.Equal(t, "1", first[0].Text)
	assert.Equal(t, "2", second[0].Text)
}

func TestResourcesProviderListOrdering(t *testing.T) {
	p := NewBaseResourcesProvider()
	p.RegisterStaticResource(protocol.Resource{URI: "b://two"}, "2")
	p.RegisterStaticResource(protocol.Resource{URI: "a://one"}, "1")

	resources, _, err := p.ListResources(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, resources, 2)
	assert.Equal(t, "a://one", resources[0].URI)
	assert.Equal(t, "b://two", resources[1].URI)
}

func TestResourcesProviderUnknownURI(t *testing.T) {
	p := NewBaseResourcesProvider()

	_, err := p.ReadResource(context.Background(), "test://missing")
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeResourceNotFound))
}

func TestPromptsProviderRequiredArguments(t *testing.T) {
	p := NewBasePromptsProvider()
	p.RegisterPrompt(protocol.Prompt{
		Name: "summary",
		Arguments: []protocol.PromptArgument{
			{Name: "subject", Required: true},
			{Name: "tone", Required: false},
		},
	}, func(ctx context.Context, args map[string]string) (*protocol.GetPromptResult, error) {
		return &protocol.GetPromptResult{
			Messages: []protocol.PromptMessage{
				protocol.NewTextPromptMessage("user", "Summarize "+args["subject"]),
			},
		}, nil
	})

	_, err := p.GetPrompt(context.Background(), "summary", nil)
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeInvalidParams))

	result, err := p.GetPrompt(context.Background(), "summary",
		map[string]string{"subject": "the report"})
	require.NoError(t, err)
	require.Len(t, result.Messages, 1)
	assert.Contains(t, result.Messages[0].Content.Text, "the report")
}

func TestPromptsProviderTagFilter(t *testing.T) {
	renderer := func(ctx context.Context, args map[string]string) (*protocol.GetPromptResult, error) {
		return &protocol.GetPromptResult{}, nil
	}

	p := NewBasePromptsProvider()
	p.RegisterPrompt(protocol.Prompt{Name: "daily", Tags: []string{"report"}}, renderer)
	p.RegisterPrompt(protocol.Prompt{Name: "debug", Tags: []string{"internal"}}, renderer)

	prompts, _, err := p.ListPrompts(context.Background(), "report", nil)
	require.NoError(t, err)
	require.Len(t, prompts, 1)
	assert.Equal(t, "daily", prompts[0].Name)
}

func TestProviderPaginationDefaults(t *testing.T) {
	p := NewBasePromptsProvider()
	renderer := func(ctx context.Context, args map[string]string) (*protocol.GetPromptResult, error) {
		return &protocol.GetPromptResult{}, nil
	}
	for i := 0; i < pagination.DefaultLimit+5; i++ {
		p.RegisterPrompt(protocol.Prompt{Name: fmt.Sprintf("p-%03d", i)}, renderer)
	}

	prompts, result, err := p.ListPrompts(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Len(t, prompts, pagination.DefaultLimit)
	require.NotNil(t, result)
	assert.True(t, result.HasMore)
}
