package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"masters/pkg/tenancy"
)

// TenantHeader carries an explicit tenant id on a request. It takes
// precedence over the JWT claim.
const TenantHeader = "X-Tenant-ID"

// ResolveTenant scopes each request's context to its tenant. The tenant
// comes from the X-Tenant-ID header or, failing that, from the tenant_id
// claim of a Bearer token. Requests without either run in global scope;
// a present but invalid Bearer token is rejected.
func ResolveTenant(signingKey string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if tenantID := r.Header.Get(TenantHeader); tenantID != "" {
				next.ServeHTTP(w, r.WithContext(tenancy.WithTenant(ctx, tenantID)))
				return
			}

			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			tenantID, err := tenantClaim(token, signingKey)
			if err != nil {
				logger.WarnContext(ctx, "rejected request with invalid bearer token", "error", err)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}
			next.ServeHTTP(w, r.WithContext(tenancy.WithTenant(ctx, tenantID)))
		})
	}
}

// tenantClaim validates the token signature and extracts the tenant_id
// claim. An authenticated token without the claim maps to global scope.
func tenantClaim(token, signingKey string) (string, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(signingKey), nil
	})
	if err != nil {
		return "", err
	}
	tenantID, _ := claims["tenant_id"].(string)
	return tenantID, nil
}
