package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/attestly/attestly/internal/model"
	"github.com/attestly/attestly/internal/server/middleware"
	"github.com/attestly/attestly/internal/store"
)

// CertificateHandler exposes certificate issue/read/revoke plus the public
// validation lookup. These are thin pass-throughs over the store; the
// interesting policy lives in the route middleware's role sets.
type CertificateHandler struct {
	store *store.Store
}

// NewCertificateHandler creates a CertificateHandler.
func NewCertificateHandler(st *store.Store) *CertificateHandler {
	return &CertificateHandler{store: st}
}

type createCertificateRequest struct {
	Code          string `json:"code,omitempty"`
	RecipientName string `json:"recipientName"`
	EventName     string `json:"eventName"`
	EventDate     string `json:"eventDate,omitempty"`
}

// Create issues a new certificate. The code is client-supplied or generated.
// POST /api/v1/certificates
func (h *CertificateHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := middleware.Principal(r.Context())

	var req createCertificateRequest
	if err := readJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	req.RecipientName = strings.TrimSpace(req.RecipientName)
	req.EventName = strings.TrimSpace(req.EventName)
	if req.RecipientName == "" || req.EventName == "" {
		writeMessage(w, http.StatusBadRequest, "Missing required certificate data: recipientName and eventName are required")
		return
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		code = uuid.NewString()
	}

	cert := &model.Certificate{
		Code:          code,
		RecipientName: req.RecipientName,
		EventName:     req.EventName,
		EventDate:     req.EventDate,
		IssuedBy:      actor.KeyID,
	}
	if err := h.store.InsertCertificate(r.Context(), cert); err != nil {
		if store.IsUniqueViolation(err) {
			writeMessage(w, http.StatusConflict, "A certificate with this code already exists")
			return
		}
		writeAppError(w, err, "Internal Server Error: certificate insert failed")
		return
	}

	writeJSON(w, http.StatusCreated, cert)
}

// List returns all certificates.
// GET /api/v1/certificates
func (h *CertificateHandler) List(w http.ResponseWriter, r *http.Request) {
	certs, err := h.store.ListCertificates(r.Context())
	if err != nil {
		writeAppError(w, err, "Internal Server Error: certificate list failed")
		return
	}
	writeJSON(w, http.StatusOK, model.ListResponse{Resource: certs, Count: len(certs)})
}

// Get returns a single certificate by code.
// GET /api/v1/certificates/{code}
func (h *CertificateHandler) Get(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	cert, err := h.store.GetCertificate(r.Context(), code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "Certificate not found")
			return
		}
		writeAppError(w, err, "Internal Server Error: certificate lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, cert)
}

// Revoke soft-revokes a certificate. The record remains queryable and its
// code stays reserved.
// DELETE /api/v1/certificates/{code}
func (h *CertificateHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	actor := middleware.Principal(r.Context())
	code := chi.URLParam(r, "code")

	if err := h.store.RevokeCertificate(r.Context(), code, actor.KeyID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "Certificate not found")
			return
		}
		writeAppError(w, err, "Internal Server Error: certificate revoke failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Certificate revoked",
		"code":    code,
	})
}

// validateResponse is the public validation result consumed by the lookup
// front-end.
type validateResponse struct {
	Valid       bool               `json:"valid"`
	Message     string             `json:"message,omitempty"`
	Certificate *publicCertificate `json:"certificate,omitempty"`
}

// publicCertificate is the subset of a certificate safe for anonymous
// callers: no issuer identity, no audit trail.
type publicCertificate struct {
	Code          string `json:"code"`
	RecipientName string `json:"recipientName"`
	EventName     string `json:"eventName"`
	EventDate     string `json:"eventDate,omitempty"`
}

// Validate is the unauthenticated certificate lookup.
// GET /api/v1/validate/{code}
func (h *CertificateHandler) Validate(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	cert, err := h.store.GetCertificate(r.Context(), code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, validateResponse{
				Valid:   false,
				Message: "Certificate not found",
			})
			return
		}
		writeAppError(w, err, "Internal Server Error: certificate lookup failed")
		return
	}

	if !cert.Valid() {
		writeJSON(w, http.StatusOK, validateResponse{
			Valid:   false,
			Message: "Certificate has been revoked",
		})
		return
	}

	writeJSON(w, http.StatusOK, validateResponse{
		Valid: true,
		Certificate: &publicCertificate{
			Code:          cert.Code,
			RecipientName: cert.RecipientName,
			EventName:     cert.EventName,
			EventDate:     cert.EventDate,
		},
	})
}
