package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ForgetInput defines the input schema for the forget tool.
type ForgetInput struct {
	IDs []string `json:"ids" jsonschema:"Item ids to remove"`
}

// ForgetResult is the response from the forget tool.
type ForgetResult struct {
	Deleted int    `json:"deleted"`
	Message string `json:"message"`
}

// NewForgetHandler creates the forget tool handler.
// Removal is all-or-nothing: one unknown id leaves every item in place.
func NewForgetHandler(deps *Dependencies) mcp.ToolHandlerFor[ForgetInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ForgetInput) (
		*mcp.CallToolResult, any, error,
	) {
		ids := make([]string, 0, len(input.IDs))
		for _, id := range input.IDs {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			return ErrorResult("At least one ID is required", "Provide ids array with item IDs to remove"), nil, nil
		}

		forgotten, err := deps.Service.Forget(ctx, ids...)
		if err != nil {
			deps.Logger.Error("forget failed", "ids", ids, "error", err)
			return ErrorResult("Failed to forget items: "+err.Error(), hintFor(err)), nil, nil
		}

		result := ForgetResult{
			Deleted: len(forgotten),
			Message: fmt.Sprintf("Forgot %d items", len(forgotten)),
		}

		deps.Logger.Info("forget completed", "deleted", result.Deleted, "requested", len(ids))
		return JSONResult(result), nil, nil
	}
}
