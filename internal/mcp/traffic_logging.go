package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rpggio/plantrack/internal/observability"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// trafficMiddleware logs requests and responses at debug level and times
// tool calls.
func trafficMiddleware(logger *slog.Logger, direction string) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			start := time.Now()
			debug := logger != nil && logger.Enabled(ctx, slog.LevelDebug)
			if debug {
				logger.Debug("mcp traffic", "direction", direction, "stage", "request", "method", method,
					"session_id", safeSessionID(req), "subject", getSubject(ctx), "params", formatPayload(safeParams(req)))
			}

			result, err := next(ctx, method, req)

			if method == "tools/call" && direction == "inbound" {
				observability.ObserveToolCall(toolName(req), time.Since(start).Seconds(), toolFailure(result, err))
			}
			if debug && !strings.HasPrefix(method, "notifications/") {
				attrs := []any{"direction", direction, "stage", "response", "method", method,
					"elapsed", time.Since(start), "result", formatPayload(result)}
				if err != nil {
					attrs = append(attrs, "error", err)
				}
				logger.Debug("mcp traffic", attrs...)
			}
			return result, err
		}
	}
}

func toolName(req sdkmcp.Request) string {
	var params struct {
		Name string `json:"name"`
	}
	data, err := json.Marshal(safeParams(req))
	if err != nil || json.Unmarshal(data, &params) != nil || params.Name == "" {
		return "unknown"
	}
	return params.Name
}

func toolFailure(result sdkmcp.Result, err error) error {
	if err != nil {
		return err
	}
	if res, ok := result.(*sdkmcp.CallToolResult); ok && res != nil && res.IsError {
		return fmt.Errorf("tool error")
	}
	return nil
}

func safeSessionID(req sdkmcp.Request) string {
	if req == nil {
		return ""
	}
	defer func() { recover() }()
	session := req.GetSession()
	if session == nil {
		return ""
	}
	return session.ID()
}

func safeParams(req sdkmcp.Request) any {
	if req == nil {
		return nil
	}
	defer func() { recover() }()
	return req.GetParams()
}

func formatPayload(payload any) string {
	if payload == nil {
		return "<nil>"
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("%T", payload)
	}
	return string(data)
}
