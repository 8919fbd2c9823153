package tools

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Rab-crypto/tenax-sub001/internal/models"
)

// CaptureInput defines the input schema for the capture tool.
type CaptureInput struct {
	TranscriptPath string `json:"transcriptPath" jsonschema:"Path to the session transcript (JSONL)"`
	SessionID      string `json:"sessionId,omitempty" jsonschema:"Session id (defaults to the transcript's conversation id)"`
}

// CaptureResult is the response from the capture tool.
type CaptureResult struct {
	SessionID     string            `json:"sessionId"`
	Summary       string            `json:"summary"`
	Extracted     models.ItemCounts `json:"extracted"`
	Added         models.ItemCounts `json:"added"`
	Heuristic     bool              `json:"heuristic"`
	TokenEstimate int               `json:"tokenEstimate"`
}

// NewCaptureHandler creates the capture tool handler. It runs the full
// extraction pipeline over a transcript file.
func NewCaptureHandler(deps *Dependencies) mcp.ToolHandlerFor[CaptureInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input CaptureInput) (
		*mcp.CallToolResult, any, error,
	) {
		path := strings.TrimSpace(input.TranscriptPath)
		if path == "" {
			return ErrorResult("transcriptPath is required", "Pass the path of the session JSONL file"), nil, nil
		}

		res, err := deps.Service.ProcessTranscript(ctx, path, strings.TrimSpace(input.SessionID))
		if err != nil {
			deps.Logger.Error("capture failed", "path", path, "error", err)
			return ErrorResult("Failed to process transcript: "+err.Error(), hintFor(err)), nil, nil
		}

		return JSONResult(CaptureResult{
			SessionID:     res.Session.ID,
			Summary:       res.Session.Summary,
			Extracted:     res.Extracted,
			Added:         res.Added,
			Heuristic:     res.Heuristic,
			TokenEstimate: res.TokenEstimate,
		}), nil, nil
	}
}
