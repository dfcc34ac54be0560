package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/attestly/attestly/internal/apperr"
	"github.com/attestly/attestly/internal/auth"
	"github.com/attestly/attestly/internal/model"
)

type contextKeyAuth string

// principalKey is the context key for the authenticated identity.
const principalKey contextKeyAuth = "auth_principal"

// RequireRoles returns an HTTP middleware that authenticates the request's
// bearer token and enforces membership in the given role set. When
// allowBootstrap is set, the bootstrap credential is also accepted (it
// bypasses the role check and yields the bootstrap pseudo-role).
//
// On success the auth.Result is attached to the request context for
// handlers to read via Principal.
func RequireRoles(a *auth.Authenticator, allowBootstrap bool, roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result, err := a.Authenticate(r, roles, allowBootstrap)
			if err != nil {
				writeAuthError(w, apperr.From(err, "Internal Server Error: authentication failed"))
				return
			}
			ctx := context.WithValue(r.Context(), principalKey, result)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Principal extracts the authenticated identity from the context. Returns
// nil for unauthenticated requests (public routes).
func Principal(ctx context.Context) *auth.Result {
	if p, ok := ctx.Value(principalKey).(*auth.Result); ok {
		return p
	}
	return nil
}

func writeAuthError(w http.ResponseWriter, e *apperr.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)

	resp := model.MessageResponse{Message: e.Message}
	if e.Status >= 500 && e.Err != nil {
		resp.Error = e.Err.Error()
	}
	json.NewEncoder(w).Encode(resp)
}
