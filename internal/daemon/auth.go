package daemon

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"clipforge/internal/config"
	"clipforge/internal/services"
)

// identity is the resolved caller of an API request.
type identity struct {
	Tenant string
	Role   string
}

func (id identity) canMutate() bool {
	return id.Role == config.RoleEditor || id.Role == config.RoleAdmin
}

type identityKey struct{}

// resolveIdentity maps a bearer token to its configured tenant and role.
func resolveIdentity(cfg *config.Config, r *http.Request) (identity, bool) {
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return identity{}, false
	}
	token = strings.TrimSpace(token)
	for _, entry := range cfg.Auth.Tokens {
		if entry.Token == token {
			return identity{Tenant: entry.Tenant, Role: entry.Role}, true
		}
	}
	return identity{}, false
}

// authMiddleware rejects requests without a recognized bearer token and
// stashes the resolved identity in the request context.
func authMiddleware(cfg *config.Config, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := resolveIdentity(cfg, r)
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), identityKey{}, id)
		ctx = services.WithTenant(ctx, id.Tenant)
		ctx = services.WithRequestID(ctx, uuid.NewString())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func identityFrom(r *http.Request) identity {
	id, _ := r.Context().Value(identityKey{}).(identity)
	return id
}
