package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Lixing-Zhang/deliverus-backend/internal/config"
	"github.com/Lixing-Zhang/deliverus-backend/internal/models"
)

type actorKey struct{}

// Authenticate validates the API key from the "api_key" header and resolves
// the acting user from the X-User-Id and X-User-Role headers set by the gateway.
func Authenticate(cfg config.AuthConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get("api_key")

			if apiKey == "" {
				writeAuthError(w, http.StatusUnauthorized, "Unauthorized: API key required")
				return
			}

			// Validate API key
			valid := false
			for _, validKey := range cfg.APIKeys {
				if apiKey == validKey {
					valid = true
					break
				}
			}

			if !valid {
				writeAuthError(w, http.StatusForbidden, "Forbidden: Invalid API key")
				return
			}

			id, err := strconv.ParseInt(r.Header.Get("X-User-Id"), 10, 64)
			if err != nil || id <= 0 {
				writeAuthError(w, http.StatusUnauthorized, "Unauthorized: user identity required")
				return
			}

			role := models.Role(r.Header.Get("X-User-Role"))
			if !role.Valid() {
				writeAuthError(w, http.StatusUnauthorized, "Unauthorized: unknown user role")
				return
			}

			ctx := WithActor(r.Context(), models.Actor{ID: id, Role: role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithActor returns a context carrying actor
func WithActor(ctx context.Context, actor models.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the actor resolved by Authenticate
func ActorFrom(ctx context.Context) (models.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(models.Actor)
	return actor, ok
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
