package client

import (
	"context"

	"github.com/mcplabs/foundations/pkg/pagination"
	"github.com/mcplabs/foundations/pkg/protocol"
)

// ListAllTools walks every page of tools/list and returns the combined
// result.
func (c *Client) ListAllTools(ctx context.Context, category string) ([]protocol.Tool, error) {
	var all []protocol.Tool
	collector := pagination.NewCollector()
	var params *protocol.PaginationParams

	for collector.HasMore {
		tools, result, err := c.ListTools(ctx, category, params)
		if err != nil {
			return nil, err
		}
		all = append(all, tools...)
		collector.Update(result, len(tools))
		params = collector.NextParams(params)
	}
	return all, nil
}

// ListAllResources walks every page of resources/list and returns the
// combined result.
func (c *Client) ListAllResources(ctx context.Context) ([]protocol.Resource, error) {
	var all []protocol.Resource
	collector := pagination.NewCollector()
	var params *protocol.PaginationParams

	for collector.HasMore {
		resources, result, err := c.ListResources(ctx, params)
		if err != nil {
			return nil, err
		}
		all = append(all, resources...)
		collector.Update(result, len(resources))
		params = collector.NextParams(params)
	}
	return all, nil
}

// ListAllPrompts walks every page of prompts/list and returns the combined
// result.
func (c *Client) ListAllPrompts(ctx context.Context, tag string) ([]protocol.Prompt, error) {
	var all []protocol.Prompt
	collector := pagination.NewCollector()
	var params *protocol.PaginationParams

	for collector.HasMore {
		prompts, result, err := c.ListPrompts(ctx, tag, params)
		if err != nil {
			return nil, err
		}
		all = append(all, prompts...)
		collector.Update(result, len(prompts))
		params = collector.NextParams(params)
	}
	return all, nil
}
