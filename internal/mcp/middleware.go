package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/rpggio/plantrack/internal/auth"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type contextKey int

const subjectKey contextKey = iota

// getSubject extracts the authenticated subject from context.
func getSubject(ctx context.Context) string {
	v, _ := ctx.Value(subjectKey).(string)
	return v
}

// authMiddleware verifies a JWT bearer token on every non-protocol method.
func authMiddleware(cfg auth.Config) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			// Skip auth for protocol methods
			if method == "initialize" || method == "ping" || strings.HasPrefix(method, "notifications/") {
				return next(ctx, method, req)
			}

			extra := req.GetExtra()
			if extra == nil || extra.Header == nil {
				return nil, fmt.Errorf("unauthorized: missing headers")
			}

			header := extra.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			claims, err := auth.Parse(token, cfg)
			if err != nil {
				return nil, fmt.Errorf("unauthorized: %w", err)
			}

			ctx = context.WithValue(ctx, subjectKey, claims.Subject)
			return next(ctx, method, req)
		}
	}
}

// noAuthMiddleware injects a fixed subject when auth is disabled.
func noAuthMiddleware(subject string) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			ctx = context.WithValue(ctx, subjectKey, subject)
			return next(ctx, method, req)
		}
	}
}
