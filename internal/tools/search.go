package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Rab-crypto/tenax-sub001/internal/models"
)

// maxSearchLimit bounds the limit a caller may ask for.
const maxSearchLimit = 100

// SearchInput defines the input schema for the search tool.
type SearchInput struct {
	Query string   `json:"query" jsonschema:"The search query text"`
	Limit int      `json:"limit,omitempty" jsonschema:"Max results 1-100"`
	Types []string `json:"types,omitempty" jsonschema:"Restrict to decisions, patterns, tasks or insights"`
}

// SearchHit is one ranked result.
type SearchHit struct {
	ID       string          `json:"id"`
	Type     models.ItemType `json:"type"`
	Score    float64         `json:"score"`
	Headline string          `json:"headline"`
	Item     models.Item     `json:"item"`
}

// SearchResult is the response from the search tool.
type SearchResult struct {
	Hits  []SearchHit `json:"hits"`
	Count int         `json:"count"`
}

// NewSearchHandler creates the search tool handler.
func NewSearchHandler(deps *Dependencies) mcp.ToolHandlerFor[SearchInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (
		*mcp.CallToolResult, any, error,
	) {
		if input.Query == "" {
			return ErrorResult("Query cannot be empty", "Provide a search query"), nil, nil
		}

		limit := input.Limit
		if limit <= 0 {
			limit = deps.SearchLimit
		}
		if limit > maxSearchLimit {
			return ErrorResult("Limit must be 1-100", "Reduce limit value"), nil, nil
		}

		types := make([]models.ItemType, 0, len(input.Types))
		for _, s := range input.Types {
			t, ok := models.ParseItemType(s)
			if !ok {
				return ErrorResult("Unknown type "+s, "Use decision, pattern, task or insight"), nil, nil
			}
			types = append(types, t)
		}

		hits, err := deps.Service.Search(ctx, input.Query, limit, types...)
		if err != nil {
			deps.Logger.Error("search failed", "error", err)
			return ErrorResult("Search failed: "+err.Error(), hintFor(err)), nil, nil
		}

		result := SearchResult{Hits: make([]SearchHit, 0, len(hits)), Count: len(hits)}
		for _, h := range hits {
			result.Hits = append(result.Hits, SearchHit{
				ID:       h.Item.ItemID(),
				Type:     h.Type,
				Score:    h.Score,
				Headline: models.Headline(h.Item),
				Item:     h.Item,
			})
		}

		deps.Logger.Info("search completed", "query", models.Truncate(input.Query, 30), "results", len(hits))
		return JSONResult(result), nil, nil
	}
}
