package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/daisy-gov/daisy/internal/api/middleware"
	"github.com/daisy-gov/daisy/internal/api/response"
	"github.com/daisy-gov/daisy/internal/entitlement"
	"github.com/daisy-gov/daisy/internal/rems"
)

const maxWebhookBody = 10 << 20

// BatchHandler processes a batch of entitlement notifications.
type BatchHandler interface {
	HandleBatch(ctx context.Context, items []rems.Notification) entitlement.BatchResult
}

// RemsHandler handles POST /api/rems, the REMS entitlement webhook.
type RemsHandler struct {
	processor BatchHandler
}

// NewRemsHandler creates a new RemsHandler.
func NewRemsHandler(processor BatchHandler) *RemsHandler {
	return &RemsHandler{processor: processor}
}

// ServeHTTP decodes the notification list and reports success only when
// every item was granted or already present.
func (h *RemsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)

	var items []rems.Notification
	// A JSON null decodes into a nil slice without error; only an array is accepted.
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil || items == nil {
		response.Failed(w, http.StatusBadRequest, "Payload must be a JSON list of entitlements")
		return
	}

	result := h.processor.HandleBatch(r.Context(), items)
	if !result.OK() {
		slog.Warn("rems webhook: batch had failures",
			"failed", result.Failed,
			"total", result.Total,
			"requestId", middleware.GetRequestID(r.Context()),
		)
		response.Failed(w, http.StatusInternalServerError,
			fmt.Sprintf("%d of %d entitlements could not be processed", result.Failed, result.Total))
		return
	}

	response.Succeeded(w)
}
