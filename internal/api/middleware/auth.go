package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/careloop/appointment-engine/internal/domain/entities"
	"github.com/careloop/appointment-engine/internal/domain/providers"
)

type principalContextKey struct{}

// AuthMiddleware resolves the bearer token into a Principal and stores
// it on the request context. Any verifier failure is surfaced as an
// opaque 401; the reason is never leaked to the client.
func AuthMiddleware(verifier providers.TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w)
				return
			}

			principal, err := verifier.Verify(r.Context(), token)
			if err != nil || principal == nil {
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), principalContextKey{}, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PrincipalFromContext returns the authenticated principal, or nil when
// the request did not pass through AuthMiddleware.
func PrincipalFromContext(ctx context.Context) *entities.Principal {
	principal, _ := ctx.Value(principalContextKey{}).(*entities.Principal)
	return principal
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
}
