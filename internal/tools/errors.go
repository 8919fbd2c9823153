package tools

import (
	"encoding/json"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Rab-crypto/tenax-sub001/internal/index"
	"github.com/Rab-crypto/tenax-sub001/internal/vectorstore"
)

// ErrorResult creates a tool error result with optional recovery hint.
// If hint is non-empty, formats as "{msg}. {hint}".
// Returns IsError=true so the agent can see the error and self-correct.
func ErrorResult(msg, hint string) *mcp.CallToolResult {
	text := msg
	if hint != "" {
		text = msg + ". " + hint
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
		IsError: true,
	}
}

// TextResult creates a success result with text content.
func TextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// JSONResult renders v as indented JSON.
func JSONResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ErrorResult("Failed to encode result", err.Error())
	}
	return TextResult(string(data))
}

// hintFor suggests a recovery step for known failures.
func hintFor(err error) string {
	switch {
	case errors.Is(err, index.ErrNotInitialized):
		return "Run `tenax init` in the project first"
	case errors.Is(err, index.ErrNotFound):
		return "Use search to find the item id"
	case errors.Is(err, index.ErrDanglingSupersedes):
		return "supersedes must be the id of an existing decision"
	case errors.Is(err, index.ErrReferenced):
		return "Forget the superseding decision first"
	case errors.Is(err, index.ErrLocked):
		return "Another tenax process is writing; retry shortly"
	case errors.Is(err, vectorstore.ErrModelMismatch), errors.Is(err, vectorstore.ErrDimensionMismatch):
		return "The vector store was built with another embedding model"
	default:
		return ""
	}
}
