package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/daisy-gov/daisy/internal/api/middleware"
	"github.com/daisy-gov/daisy/internal/api/response"
	"github.com/daisy-gov/daisy/internal/api/validation"
	"github.com/daisy-gov/daisy/internal/endpoint"
)

// EndpointRegistrar creates endpoint consumers with fresh API keys.
type EndpointRegistrar interface {
	RegisterEndpoint(ctx context.Context, name string) (*endpoint.Endpoint, string, error)
}

type createEndpointRequest struct {
	Name string `json:"name"`
}

type endpointWithKeyResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	APIKey    string `json:"apiKey"`
	CreatedAt string `json:"createdAt"`
}

// EndpointHandler handles endpoint consumer registration.
type EndpointHandler struct {
	registrar EndpointRegistrar
}

// NewEndpointHandler creates a new EndpointHandler.
func NewEndpointHandler(registrar EndpointRegistrar) *EndpointHandler {
	return &EndpointHandler{registrar: registrar}
}

// Create handles POST /api/endpoints. The raw key is only returned here.
func (h *EndpointHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req createEndpointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	fieldErrors := validation.ValidateCreateEndpointRequest(validation.CreateEndpointRequest{Name: req.Name})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	e, rawKey, err := h.registrar.RegisterEndpoint(r.Context(), strings.TrimSpace(req.Name))
	if err != nil {
		if errors.Is(err, endpoint.ErrDuplicateName) {
			response.Err(w, http.StatusConflict, "DUPLICATE_NAME", "An endpoint with this name already exists", requestID)
			return
		}
		slog.Error("failed to register endpoint", "error", err, "requestId", requestID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to register endpoint", requestID)
		return
	}

	response.Success(w, http.StatusCreated, endpointWithKeyResponse{
		ID:        e.ID.String(),
		Name:      e.Name,
		APIKey:    rawKey,
		CreatedAt: e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}, requestID)
}
