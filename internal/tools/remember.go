package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Rab-crypto/tenax-sub001/internal/models"
	"github.com/Rab-crypto/tenax-sub001/internal/service"
)

// RememberInput defines the input schema for the remember tool.
type RememberInput struct {
	SessionID string                `json:"sessionId,omitempty" jsonschema:"Session to attribute items to (default manual)"`
	Decisions []service.RawDecision `json:"decisions,omitempty" jsonschema:"Decisions with topic, decision, optional rationale and supersedes id"`
	Patterns  []service.RawPattern  `json:"patterns,omitempty" jsonschema:"Patterns with name, description and optional usage"`
	Tasks     []service.RawTask     `json:"tasks,omitempty" jsonschema:"Tasks with title, optional description and priority low|medium|high"`
	Insights  []service.RawInsight  `json:"insights,omitempty" jsonschema:"Insights with content and optional context"`
}

// RememberedItem identifies a stored item in the response.
type RememberedItem struct {
	ID       string          `json:"id"`
	Type     models.ItemType `json:"type"`
	Headline string          `json:"headline"`
}

// RememberResult is the response from the remember tool.
type RememberResult struct {
	Added      models.ItemCounts   `json:"added"`
	Duplicates models.ItemCounts   `json:"duplicates"`
	Rejected   []service.Rejection `json:"rejected,omitempty"`
	Items      []RememberedItem    `json:"items"`
}

// NewRememberHandler creates the remember tool handler.
// Items go through the same dedup and embedding path as transcript capture.
func NewRememberHandler(deps *Dependencies) mcp.ToolHandlerFor[RememberInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input RememberInput) (
		*mcp.CallToolResult, any, error,
	) {
		batch := service.RawBatch{
			SessionID: input.SessionID,
			Decisions: input.Decisions,
			Patterns:  input.Patterns,
			Tasks:     input.Tasks,
			Insights:  input.Insights,
		}
		if batch.Len() == 0 {
			return ErrorResult("Nothing to remember", "Provide at least one decision, pattern, task or insight"), nil, nil
		}

		res, err := deps.Service.RecordItems(ctx, batch)
		if err != nil {
			deps.Logger.Error("remember failed", "error", err)
			return ErrorResult("Failed to store items: "+err.Error(), hintFor(err)), nil, nil
		}

		result := RememberResult{
			Added:      res.Added,
			Duplicates: res.Duplicates,
			Rejected:   res.Rejected,
			Items:      make([]RememberedItem, 0, len(res.Items)),
		}
		for _, it := range res.Items {
			result.Items = append(result.Items, RememberedItem{ID: it.ItemID(), Type: it.Kind(), Headline: models.Headline(it)})
		}

		deps.Logger.Info("remember completed", "added", res.Added.Total(), "duplicates", res.Duplicates.Total())
		return JSONResult(result), nil, nil
	}
}
