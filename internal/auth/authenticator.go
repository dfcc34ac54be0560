// Package auth validates bearer tokens against the key store and enforces
// the role policy. The check ladder is ordered so each step fails fast
// before the more expensive or sensitive ones: header extraction, structural
// token decode, bootstrap short-circuit, store lookup, record invariants,
// cryptographic verification, activity, role membership.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/attestly/attestly/internal/apperr"
	"github.com/attestly/attestly/internal/model"
	"github.com/attestly/attestly/internal/store"
	"github.com/attestly/attestly/internal/token"
)

// Client-facing messages for every authentication outcome. The exact wording
// is load-bearing: the front-end and the test suite match on it.
const (
	MsgMissingAuthHeader = "Authentication required: Missing or invalid Authorization header"
	MsgMissingKeyID      = "Bad Request: JWT payload missing keyId"
	MsgKeyNotFound       = `Forbidden: API key not found in "keys" collection`
	MsgMissingSecret     = "Internal Server Error: Key document missing secret"
	MsgTokenExpired      = "Authentication failed: JWT expired"
	MsgBadSignature      = "Authentication failed: Invalid JWT signature or malformed token"
	MsgKeyInactive       = "Forbidden: API key is not active"
)

// MsgRoleNotAuthorized formats the 403 for a role outside the required set.
func MsgRoleNotAuthorized(role model.Role) string {
	return fmt.Sprintf("Forbidden: Role %q not authorized for this operation", string(role))
}

// Result is the identity of a successfully authenticated request.
type Result struct {
	KeyID string
	Role  model.Role
}

// Authenticator validates bearer tokens. The store client and the bootstrap
// secret are injected at construction; there is no lazy global state.
type Authenticator struct {
	store           *store.Store
	bootstrapSecret string
}

// New creates an Authenticator. The bootstrap secret must be non-empty;
// enforcing that is the caller's startup responsibility.
func New(st *store.Store, bootstrapSecret string) *Authenticator {
	return &Authenticator{
		store:           st,
		bootstrapSecret: bootstrapSecret,
	}
}

// Authenticate validates the request's bearer token and checks the resolved
// role against required. When allowBootstrap is set, a token whose claimed
// keyId is the bootstrap identifier is verified against the bootstrap secret
// instead of the store and yields the bootstrap pseudo-role.
//
// Failures are *apperr.Error values carrying the HTTP status and message.
func (a *Authenticator) Authenticate(r *http.Request, required []model.Role, allowBootstrap bool) (*Result, error) {
	// 1. Bearer token extraction.
	header := r.Header.Get("Authorization")
	tokenStr, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || tokenStr == "" {
		return nil, apperr.New(http.StatusUnauthorized, MsgMissingAuthHeader)
	}

	// 2. Structural decode. A token without a discoverable keyId is a
	// client error, not an authentication failure.
	keyID, err := token.DecodeUnverified(tokenStr)
	if err != nil {
		return nil, apperr.New(http.StatusBadRequest, MsgMissingKeyID)
	}

	// 3. Bootstrap short-circuit: verified against configuration, never
	// against the store.
	if allowBootstrap && keyID == model.BootstrapKeyID {
		if _, err := token.Verify(tokenStr, a.bootstrapSecret); err != nil {
			return nil, apperr.New(http.StatusUnauthorized, MsgBadSignature)
		}
		return &Result{KeyID: model.BootstrapKeyID, Role: model.RoleBootstrap}, nil
	}

	// 4. Key lookup. Not-found is reported as 403, matching the contract
	// the front-end depends on.
	key, err := a.store.GetKey(r.Context(), keyID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.New(http.StatusForbidden, MsgKeyNotFound)
		}
		return nil, apperr.Wrap(http.StatusInternalServerError, "Internal Server Error: key lookup failed", err)
	}

	// 5. A record without a secret is corrupted; surface it loudly.
	if key.Secret == "" {
		return nil, apperr.New(http.StatusInternalServerError, MsgMissingSecret)
	}

	// 6. Cryptographic verification against the record's secret.
	if _, err := token.Verify(tokenStr, key.Secret); err != nil {
		if errors.Is(err, token.ErrExpired) {
			return nil, apperr.New(http.StatusUnauthorized, MsgTokenExpired)
		}
		return nil, apperr.New(http.StatusUnauthorized, MsgBadSignature)
	}

	// 7. Activity.
	if !key.IsActive {
		return nil, apperr.New(http.StatusForbidden, MsgKeyInactive)
	}

	// 8. Role membership. Roles are a closed enum; anything outside the
	// required set is rejected with the offending role in the message.
	for _, role := range required {
		if key.Role == role {
			return &Result{KeyID: key.ID, Role: key.Role}, nil
		}
	}
	return nil, apperr.New(http.StatusForbidden, MsgRoleNotAuthorized(key.Role))
}
