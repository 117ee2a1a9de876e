package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"stockwatch/internal/domain/model"
	"stockwatch/internal/domain/port"
)

type contextKey string

const identityKey contextKey = "identity"

// RequireAuth verifies the bearer token on every request and stashes the
// resolved identity in the request context. Any verification failure is 401.
func RequireAuth(verifier port.TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || token == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			id, err := verifier.Verify(r.Context(), token)
			if err != nil {
				logger.Debug("token verification failed", "error", err)
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFrom returns the verified identity attached by RequireAuth.
func IdentityFrom(ctx context.Context) *model.Identity {
	id, _ := ctx.Value(identityKey).(*model.Identity)
	return id
}
