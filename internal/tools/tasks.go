package tools

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// CompleteTaskInput defines the input schema for the complete_task tool.
type CompleteTaskInput struct {
	ID string `json:"id" jsonschema:"Task id"`
}

// NewCompleteTaskHandler creates the complete_task tool handler.
func NewCompleteTaskHandler(deps *Dependencies) mcp.ToolHandlerFor[CompleteTaskInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input CompleteTaskInput) (
		*mcp.CallToolResult, any, error,
	) {
		id := strings.TrimSpace(input.ID)
		if id == "" {
			return ErrorResult("id is required", "Use search with types=[task] to find it"), nil, nil
		}

		task, err := deps.Service.CompleteTask(ctx, id)
		if err != nil {
			return ErrorResult("Failed to complete task: "+err.Error(), hintFor(err)), nil, nil
		}
		return JSONResult(task), nil, nil
	}
}

// StatsInput defines the (empty) input schema for the stats tool.
type StatsInput struct{}

// NewStatsHandler creates the stats tool handler.
func NewStatsHandler(deps *Dependencies) mcp.ToolHandlerFor[StatsInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatsInput) (
		*mcp.CallToolResult, any, error,
	) {
		st, err := deps.Service.Stats(ctx)
		if err != nil {
			return ErrorResult("Failed to read stats: "+err.Error(), hintFor(err)), nil, nil
		}
		return JSONResult(st), nil, nil
	}
}
