package transport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes are the handlers mounted by NewRouter. Metrics may be nil.
type Routes struct {
	MCP     http.Handler
	Metrics http.Handler
}

// NewRouter creates the HTTP router. authMiddleware guards only the MCP
// endpoint; health and metrics stay open for probes and scrapers.
func NewRouter(routes Routes, authMiddleware func(http.Handler) http.Handler, logger *slog.Logger) *chi.Mux {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := chi.NewRouter()
	r.Use(LoggingMiddleware(logger))

	r.Get("/health", handleHealth)
	if routes.Metrics != nil {
		r.Handle("/metrics", routes.Metrics)
	}

	r.Group(func(r chi.Router) {
		if authMiddleware != nil {
			r.Use(authMiddleware)
		}
		r.Handle("/mcp", routes.MCP)
		r.Handle("/mcp/*", routes.MCP)
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
