package tools

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterAll registers all tools with the MCP server.
// This is called from main after server creation but before Run().
func RegisterAll(server *mcp.Server, deps *Dependencies) {
	if deps.SearchLimit <= 0 {
		deps.SearchLimit = 10
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search",
		Description: "Semantic search over the project's decisions, patterns, tasks and insights",
	}, NewSearchHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "remember",
		Description: "Store decisions, patterns, tasks or insights directly; duplicates are skipped",
	}, NewRememberHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "capture",
		Description: "Extract knowledge from a session transcript and store it",
	}, NewCaptureHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "complete_task",
		Description: "Mark a pending task as completed",
	}, NewCompleteTaskHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "forget",
		Description: "Remove items from memory by id",
	}, NewForgetHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "stats",
		Description: "Report index totals, vector count and timings",
	}, NewStatsHandler(deps))
}

// ToolNames lists the registered tools in registration order.
var ToolNames = []string{"search", "remember", "capture", "complete_task", "forget", "stats"}
