package handler

import (
	"log/slog"
	"net/http"
	"sync"

	"sigs.k8s.io/yaml"

	"github.com/daisy-gov/daisy/internal/api/middleware"
	"github.com/daisy-gov/daisy/internal/api/response"
)

// OpenAPIHandler serves the API description in YAML and JSON.
type OpenAPIHandler struct {
	rawYAML  []byte
	jsonOnce sync.Once
	jsonSpec []byte
	jsonErr  error
}

// NewOpenAPIHandler creates a handler for the given YAML document. The JSON
// form is converted on first request and cached.
func NewOpenAPIHandler(yamlSpec []byte) *OpenAPIHandler {
	return &OpenAPIHandler{rawYAML: yamlSpec}
}

// JSON handles GET /openapi.json.
func (h *OpenAPIHandler) JSON(w http.ResponseWriter, r *http.Request) {
	h.jsonOnce.Do(func() {
		h.jsonSpec, h.jsonErr = yaml.YAMLToJSON(h.rawYAML)
	})

	if h.jsonErr != nil {
		slog.Error("failed to convert OpenAPI document to JSON", "error", h.jsonErr)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to convert OpenAPI document",
			middleware.GetRequestID(r.Context()))
		return
	}

	h.write(w, "application/json", h.jsonSpec)
}

// YAML handles GET /openapi.yaml.
func (h *OpenAPIHandler) YAML(w http.ResponseWriter, _ *http.Request) {
	h.write(w, "application/yaml", h.rawYAML)
}

func (h *OpenAPIHandler) write(w http.ResponseWriter, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		slog.Error("failed to write OpenAPI document", "error", err)
	}
}
