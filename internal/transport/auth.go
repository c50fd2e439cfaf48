package transport

import (
	"context"
	"net/http"

	"github.com/rpggio/plantrack/internal/auth"
)

type subjectKey struct{}

// SubjectFromContext returns the authenticated subject, if present.
func SubjectFromContext(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(subjectKey{}).(string)
	return subject, ok
}

// AuthMiddleware enforces JWT bearer authentication.
func AuthMiddleware(cfg auth.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := auth.Parse(auth.BearerToken(r), cfg)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="plantrack"`)
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), subjectKey{}, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
