package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/attestly/attestly/internal/keys"
	"github.com/attestly/attestly/internal/model"
	"github.com/attestly/attestly/internal/server/middleware"
)

// KeyHandler exposes key creation and management. Authentication and role
// enforcement happen in the route middleware; handlers read the acting
// identity from the request context and delegate business rules to the
// key manager.
type KeyHandler struct {
	manager *keys.Manager
}

// NewKeyHandler creates a KeyHandler.
func NewKeyHandler(manager *keys.Manager) *KeyHandler {
	return &KeyHandler{manager: manager}
}

// createKeyResponse carries the one-time secret. Every other read path
// serializes model.Key, which excludes the secret.
type createKeyResponse struct {
	KeyID       string     `json:"keyId"`
	Secret      string     `json:"secret"`
	Role        model.Role `json:"role"`
	IsActive    bool       `json:"isActive"`
	Description *string    `json:"description,omitempty"`
	Warning     string     `json:"warning"`
}

// Create issues a new API key.
// POST /api/v1/keys
func (h *KeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := middleware.Principal(r.Context())

	var in keys.CreateInput
	if err := readJSON(r, &in); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	key, err := h.manager.Create(r.Context(), *actor, in)
	if err != nil {
		writeAppError(w, err, "Internal Server Error: key creation failed")
		return
	}

	writeJSON(w, http.StatusCreated, createKeyResponse{
		KeyID:       key.ID,
		Secret:      key.Secret,
		Role:        key.Role,
		IsActive:    key.IsActive,
		Description: key.Description,
		Warning:     keys.SecretWarning,
	})
}

// List returns all key records, secrets omitted.
// GET /api/v1/keys
func (h *KeyHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.manager.List(r.Context())
	if err != nil {
		writeAppError(w, err, "Internal Server Error: key list failed")
		return
	}
	writeJSON(w, http.StatusOK, model.ListResponse{Resource: records, Count: len(records)})
}

// Get returns a single key record by id or unique description, secret
// omitted.
// GET /api/v1/keys/{target}
func (h *KeyHandler) Get(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "target")

	key, err := h.manager.Get(r.Context(), target)
	if err != nil {
		writeAppError(w, err, "Internal Server Error: key lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, key)
}

// Update applies a partial update to a key record.
// PATCH /api/v1/keys/{target}
func (h *KeyHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor := middleware.Principal(r.Context())
	target := chi.URLParam(r, "target")

	var patch keys.UpdatePatch
	if err := readJSON(r, &patch); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	applied, err := h.manager.Update(r.Context(), *actor, target, patch)
	if err != nil {
		writeAppError(w, err, "Internal Server Error: key update failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Key updated",
		"updated": applied,
	})
}

// Deactivate soft-disables a key record.
// DELETE /api/v1/keys/{target}
func (h *KeyHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	actor := middleware.Principal(r.Context())
	target := chi.URLParam(r, "target")

	key, err := h.manager.Deactivate(r.Context(), *actor, target)
	if err != nil {
		writeAppError(w, err, "Internal Server Error: key deactivation failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Key deactivated",
		"keyId":   key.ID,
	})
}
