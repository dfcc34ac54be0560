// Package keys implements the key lifecycle: creation, role and activity
// changes, and deactivation. Every operation requires an authenticated
// acting identity; the business rules here (escalation limits, uniqueness,
// admin self-lockout protection) sit on top of the authenticator's verdict.
package keys

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/attestly/attestly/internal/apperr"
	"github.com/attestly/attestly/internal/auth"
	"github.com/attestly/attestly/internal/model"
	"github.com/attestly/attestly/internal/secret"
	"github.com/attestly/attestly/internal/store"
)

// Client-facing messages. Exact wording is part of the API contract.
const (
	MsgInvalidRole          = "Invalid role provided. Allowed roles are: admin, issuer, reader"
	MsgMissingKeyData       = "Missing required key data: role and isActive are required"
	MsgDescriptionTooShort  = "Description must be at least 3 characters long"
	MsgDuplicateDescription = "A key with this description already exists"
	MsgDuplicateID          = "A key with this identifier already exists. Please use a different description."
	MsgSelfDeactivate       = "Cannot deactivate your own admin key"
	MsgSelfRoleChange       = "Cannot change your own admin role"
	MsgNoFields             = "No valid fields provided to update"
	MsgAmbiguousTarget      = "Multiple keys match this description. Please use the key id instead."
	MsgKeyNotFound          = "Key not found"
)

// SecretWarning accompanies every creation response.
const SecretWarning = "Store this secret now. It will not be retrievable again."

const minDescriptionLen = 3

// Manager mutates key records through the store. Validation happens before
// any store write; a failed validation never leaves a partial record.
//
// Uniqueness of description and derived id is checked read-then-write, as
// the source system did; the store's unique constraints are the backstop
// for the remaining race between concurrent creates.
type Manager struct {
	store *store.Store
}

// NewManager creates a Manager on the injected store client.
func NewManager(st *store.Store) *Manager {
	return &Manager{store: st}
}

// CreateInput carries the client-supplied fields for a new key. IsActive is
// a pointer so a missing field is distinguishable from false. Secret is
// normally empty and generated server-side.
type CreateInput struct {
	Role        string  `json:"role"`
	IsActive    *bool   `json:"isActive"`
	Description *string `json:"description,omitempty"`
	Secret      string  `json:"secret,omitempty"`
}

// Create validates and persists a new key record, returning it with the
// one-time secret still populated. Reader keys may be created by admin,
// issuer, or the bootstrap credential; issuer and admin keys only by an
// admin.
func (m *Manager) Create(ctx context.Context, actor auth.Result, in CreateInput) (*model.Key, error) {
	if in.Role == "" || in.IsActive == nil {
		return nil, apperr.New(http.StatusBadRequest, MsgMissingKeyData)
	}

	role, ok := model.ParseRole(in.Role)
	if !ok {
		return nil, apperr.New(http.StatusBadRequest, MsgInvalidRole)
	}

	if !createAllowed(actor.Role, role) {
		return nil, apperr.New(http.StatusForbidden, auth.MsgRoleNotAuthorized(actor.Role))
	}

	var description *string
	if in.Description != nil {
		trimmed := strings.TrimSpace(*in.Description)
		if len(trimmed) < minDescriptionLen {
			return nil, apperr.New(http.StatusBadRequest, MsgDescriptionTooShort)
		}
		existing, err := m.store.GetKeysByDescription(ctx, trimmed)
		if err != nil {
			return nil, apperr.Internal("Internal Server Error: key lookup failed", err)
		}
		if len(existing) > 0 {
			return nil, apperr.New(http.StatusConflict, MsgDuplicateDescription)
		}
		description = &trimmed
	}

	label := string(role)
	if description != nil {
		label = *description
	}
	id := secret.DeriveKeyID(label)

	if _, err := m.store.GetKey(ctx, id); err == nil {
		// Collision is surfaced, not retried with a new salt.
		return nil, apperr.New(http.StatusConflict, MsgDuplicateID)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Internal("Internal Server Error: key lookup failed", err)
	}

	keySecret := in.Secret
	if keySecret == "" {
		var err error
		keySecret, err = secret.Generate()
		if err != nil {
			return nil, apperr.Internal("Internal Server Error: secret generation failed", err)
		}
	}

	key := &model.Key{
		ID:          id,
		Secret:      keySecret,
		Role:        role,
		IsActive:    *in.IsActive,
		Description: description,
		CreatedBy:   actor.KeyID,
	}
	if err := m.store.InsertKey(ctx, key); err != nil {
		if store.IsUniqueViolation(err) {
			if strings.Contains(err.Error(), "description") {
				return nil, apperr.New(http.StatusConflict, MsgDuplicateDescription)
			}
			return nil, apperr.New(http.StatusConflict, MsgDuplicateID)
		}
		return nil, apperr.Internal("Internal Server Error: key insert failed", err)
	}
	return key, nil
}

// createAllowed is the role-escalation policy for key creation.
func createAllowed(acting model.Role, requested model.Role) bool {
	switch requested {
	case model.RoleReader:
		return acting == model.RoleBootstrap || acting == model.RoleAdmin || acting == model.RoleIssuer
	case model.RoleIssuer, model.RoleAdmin:
		return acting == model.RoleAdmin
	}
	return false
}

// UpdatePatch carries the mutable key fields. Nil means "leave unchanged".
type UpdatePatch struct {
	Role        *string `json:"role,omitempty"`
	IsActive    *bool   `json:"isActive,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Update applies a partial update to the key identified by target (id first,
// then unique description). Returns the applied field values keyed by their
// client-facing names.
func (m *Manager) Update(ctx context.Context, actor auth.Result, target string, patch UpdatePatch) (map[string]interface{}, error) {
	key, err := m.resolveTarget(ctx, target)
	if err != nil {
		return nil, err
	}

	var role *model.Role
	if patch.Role != nil {
		parsed, ok := model.ParseRole(*patch.Role)
		if !ok {
			return nil, apperr.New(http.StatusBadRequest, MsgInvalidRole)
		}
		role = &parsed
	}

	var description *string
	if patch.Description != nil {
		trimmed := strings.TrimSpace(*patch.Description)
		if len(trimmed) < minDescriptionLen {
			return nil, apperr.New(http.StatusBadRequest, MsgDescriptionTooShort)
		}
		existing, err := m.store.GetKeysByDescription(ctx, trimmed)
		if err != nil {
			return nil, apperr.Internal("Internal Server Error: key lookup failed", err)
		}
		for _, other := range existing {
			if other.ID != key.ID {
				return nil, apperr.New(http.StatusConflict, MsgDuplicateDescription)
			}
		}
		description = &trimmed
	}

	// Self-protection: an admin cannot lock itself out, no matter what else
	// the patch contains.
	if key.Role == model.RoleAdmin && key.ID == actor.KeyID {
		if patch.IsActive != nil && !*patch.IsActive {
			return nil, apperr.New(http.StatusBadRequest, MsgSelfDeactivate)
		}
		if role != nil && *role != model.RoleAdmin {
			return nil, apperr.New(http.StatusBadRequest, MsgSelfRoleChange)
		}
	}

	fields := make(map[string]interface{})
	applied := make(map[string]interface{})
	if role != nil {
		fields["role"] = string(*role)
		applied["role"] = *role
	}
	if patch.IsActive != nil {
		fields["is_active"] = *patch.IsActive
		applied["isActive"] = *patch.IsActive
	}
	if description != nil {
		fields["description"] = *description
		applied["description"] = *description
	}
	if len(fields) == 0 {
		return nil, apperr.New(http.StatusBadRequest, MsgNoFields)
	}

	now := time.Now().UTC()
	fields["updated_at"] = now
	fields["updated_by"] = actor.KeyID

	if err := m.store.UpdateKeyFields(ctx, key.ID, fields); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, apperr.New(http.StatusConflict, MsgDuplicateDescription)
		}
		return nil, apperr.Internal("Internal Server Error: key update failed", err)
	}
	return applied, nil
}

// Deactivate soft-disables the key identified by target. The record stays
// queryable and keeps its id and description reserved.
func (m *Manager) Deactivate(ctx context.Context, actor auth.Result, target string) (*model.Key, error) {
	key, err := m.resolveTarget(ctx, target)
	if err != nil {
		return nil, err
	}

	if key.Role == model.RoleAdmin && key.ID == actor.KeyID {
		return nil, apperr.New(http.StatusBadRequest, MsgSelfDeactivate)
	}

	now := time.Now().UTC()
	fields := map[string]interface{}{
		"is_active":      false,
		"deactivated_at": now,
		"deactivated_by": actor.KeyID,
		"updated_at":     now,
		"updated_by":     actor.KeyID,
	}
	if err := m.store.UpdateKeyFields(ctx, key.ID, fields); err != nil {
		return nil, apperr.Internal("Internal Server Error: key update failed", err)
	}

	key.IsActive = false
	key.DeactivatedAt = &now
	key.DeactivatedBy = &actor.KeyID
	return key, nil
}

// Get returns a single key by id or unique description, for read paths.
func (m *Manager) Get(ctx context.Context, target string) (*model.Key, error) {
	return m.resolveTarget(ctx, target)
}

// List returns all key records.
func (m *Manager) List(ctx context.Context) ([]model.Key, error) {
	recs, err := m.store.ListKeys(ctx)
	if err != nil {
		return nil, apperr.Internal("Internal Server Error: key list failed", err)
	}
	return recs, nil
}

// resolveTarget looks up a key by id first, then by unique description.
func (m *Manager) resolveTarget(ctx context.Context, target string) (*model.Key, error) {
	key, err := m.store.GetKey(ctx, target)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Internal("Internal Server Error: key lookup failed", err)
	}

	matches, err := m.store.GetKeysByDescription(ctx, target)
	if err != nil {
		return nil, apperr.Internal("Internal Server Error: key lookup failed", err)
	}
	switch len(matches) {
	case 0:
		return nil, apperr.New(http.StatusNotFound, MsgKeyNotFound)
	case 1:
		return &matches[0], nil
	default:
		return nil, apperr.New(http.StatusBadRequest, MsgAmbiguousTarget)
	}
}
