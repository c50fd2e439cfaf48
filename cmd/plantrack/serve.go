package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/rpggio/plantrack/internal/auth"
	"github.com/rpggio/plantrack/internal/holiday"
	"github.com/rpggio/plantrack/internal/mcp"
	"github.com/rpggio/plantrack/internal/observability"
	"github.com/rpggio/plantrack/internal/transport"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server over stdio or streamable HTTP",
		Long: `Serve the tracker as an MCP server. The transport comes from
PLANTRACK_TRANSPORT (stdio or http). In HTTP mode /metrics exposes
Prometheus metrics and /health reports liveness.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.logger
	if err := a.startChangeFeed(ctx); err != nil {
		return err
	}

	book := holiday.NewBook()
	client := holiday.NewClient(a.cfg.Calendar.HolidayURL, a.cfg.Calendar.HolidayTimeout, logger)
	book.Preload(ctx, client, logger, preloadYears(time.Now(), a.cfg.Calendar.ReferenceYear)...)

	authCfg := auth.Config{Secret: a.cfg.Auth.Secret, Issuer: a.cfg.Auth.Issuer}
	server := mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Projects: a.projects,
			Backups:  a.backups,
			Changes:  a.changes,
			Holidays: book,
		},
		Auth:          authCfg,
		AuthEnabled:   a.cfg.Auth.Enabled,
		TransportMode: a.cfg.Transport.Mode,
		ReferenceYear: a.cfg.Calendar.ReferenceYear,
		Logger:        logger,
	})

	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.projects.Flush(flushCtx); err != nil {
			logger.Error("final flush failed", "error", err)
		}
	}()

	if a.cfg.Transport.Mode == "stdio" {
		return runStdioMode(ctx, logger, server)
	}
	var authMiddleware func(http.Handler) http.Handler
	if a.cfg.Auth.Enabled {
		authMiddleware = transport.AuthMiddleware(authCfg)
	}
	return runHTTPMode(ctx, logger, server, authMiddleware, a.cfg.Server.Host, a.cfg.Server.Port)
}

// preloadYears lists the holiday years to fetch: the reference year the
// timeline is anchored to, plus this year and next for the calendar.
func preloadYears(now time.Time, referenceYear int) []int {
	years := []int{referenceYear}
	for _, y := range []int{now.Year(), now.Year() + 1} {
		if !slices.Contains(years, y) {
			years = append(years, y)
		}
	}
	return years
}

func runStdioMode(ctx context.Context, logger *slog.Logger, server *sdkmcp.Server) error {
	logger.Info("starting stdio transport", "auth", "disabled")

	// Run blocks until stdin closes or context is canceled
	if err := server.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio server: %w", err)
	}
	logger.Info("shutting down")
	return nil
}

func runHTTPMode(ctx context.Context, logger *slog.Logger, server *sdkmcp.Server, authMiddleware func(http.Handler) http.Handler, host string, port int) error {
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(r *http.Request) *sdkmcp.Server { return server },
		&sdkmcp.StreamableHTTPOptions{
			Stateless:      false,
			SessionTimeout: 30 * time.Minute,
		},
	)

	router := transport.NewRouter(transport.Routes{
		MCP:     mcpHandler,
		Metrics: observability.Handler(),
	}, authMiddleware, logger)

	addr := fmt.Sprintf("%s:%d", host, port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
