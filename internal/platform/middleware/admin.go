package middleware

import (
	"log/slog"
	"net/http"
)

// AdminTokenHeader authenticates administrative requests.
const AdminTokenHeader = "X-Admin-Token"

// RequireAdminToken guards mutating routes with a shared admin token.
func RequireAdminToken(token string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" || r.Header.Get(AdminTokenHeader) != token {
				logger.WarnContext(r.Context(), "rejected request without valid admin token", "path", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
