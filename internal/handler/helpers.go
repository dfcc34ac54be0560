package handler

import (
	"encoding/json"
	"net/http"

	"github.com/attestly/attestly/internal/apperr"
	"github.com/attestly/attestly/internal/model"
)

// writeJSON serializes v and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeMessage writes the standard message envelope.
func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, model.MessageResponse{Message: message})
}

// writeAppError maps an error from the auth or keys layer onto the message
// envelope. Underlying diagnostics are attached only for 5xx responses.
func writeAppError(w http.ResponseWriter, err error, fallback string) {
	e := apperr.From(err, fallback)
	resp := model.MessageResponse{Message: e.Message}
	if e.Status >= 500 && e.Err != nil {
		resp.Error = e.Err.Error()
	}
	writeJSON(w, e.Status, resp)
}

// readJSON decodes the request body into v, closing the body afterward.
func readJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
