package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Rab-crypto/tenax-sub001/internal/models"
)

// maxArgLogLen is the maximum length for logged arguments before truncation.
const maxArgLogLen = 200

// slowRequestThreshold is the duration above which requests are logged at WARN level.
// Tool calls that embed text run longer, so they get their own threshold.
const (
	slowRequestThreshold = 100 * time.Millisecond
	slowToolThreshold    = 2 * time.Second
)

// LoggingMiddleware returns middleware that logs all requests with timing.
// Slow requests are logged at WARN level; tool results flagged as errors at
// INFO, since the agent sees and handles them.
func LoggingMiddleware(logger *slog.Logger) mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			start := time.Now()

			result, err := next(ctx, method, req)

			duration := time.Since(start)

			attrs := []any{
				"method", method,
				"duration_ms", duration.Milliseconds(),
			}

			threshold := slowRequestThreshold
			if tool := toolName(req); tool != "" {
				attrs = append(attrs, "tool", tool)
				threshold = slowToolThreshold
			}

			if params := formatParams(req); params != "" {
				attrs = append(attrs, "params", models.Truncate(params, maxArgLogLen))
			}

			switch {
			case err != nil:
				attrs = append(attrs, "error", err.Error())
				logger.Error("request failed", attrs...)
			case isToolError(result):
				logger.Info("tool returned error", attrs...)
			case duration > threshold:
				logger.Warn("slow request", attrs...)
			default:
				logger.Debug("request completed", attrs...)
			}

			return result, err
		}
	}
}

// toolName returns the tool of a tools/call request.
func toolName(req mcp.Request) string {
	if r, ok := req.(*mcp.CallToolRequest); ok && r.Params != nil {
		return r.Params.Name
	}
	return ""
}

func isToolError(res mcp.Result) bool {
	r, ok := res.(*mcp.CallToolResult)
	return ok && r != nil && r.IsError
}

// formatParams extracts and formats request parameters for logging.
func formatParams(req mcp.Request) string {
	if req == nil {
		return ""
	}
	params := req.GetParams()
	if params == nil {
		return ""
	}
	return fmt.Sprintf("%+v", params)
}
