package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Status values of StatusBody.
const (
	StatusSuccess = "Success"
	StatusError   = "Error"
)

// StatusBody is the flat body used by the REMS webhook and the API key gate,
// matching what REMS and existing export consumers expect.
type StatusBody struct {
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
}

// Succeeded writes 200 {"status": "Success"}.
func Succeeded(w http.ResponseWriter) {
	Raw(w, http.StatusOK, StatusBody{Status: StatusSuccess})
}

// Failed writes {"status": "Error", "description": description}.
func Failed(w http.ResponseWriter, status int, description string) {
	Raw(w, status, StatusBody{Status: StatusError, Description: description})
}

// Raw writes v as JSON without an envelope.
func Raw(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
