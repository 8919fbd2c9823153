// Package tools provides MCP tool handlers and registration.
package tools

import (
	"log/slog"

	"github.com/Rab-crypto/tenax-sub001/internal/service"
)

// Dependencies holds shared services for tool handlers.
// Passed to handler factories via closure capture.
type Dependencies struct {
	Service *service.Service
	Logger  *slog.Logger

	// SearchLimit caps results when the caller gives no limit.
	SearchLimit int
}
