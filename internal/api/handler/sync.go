package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/daisy-gov/daisy/internal/api/middleware"
	"github.com/daisy-gov/daisy/internal/api/response"
	"github.com/daisy-gov/daisy/internal/reconcile"
)

// Syncer runs a full roster synchronization.
type Syncer interface {
	SynchronizeAll(ctx context.Context) (*reconcile.SyncResult, error)
}

// SyncHandler handles POST /api/sync.
type SyncHandler struct {
	syncer Syncer
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(syncer Syncer) *SyncHandler {
	return &SyncHandler{syncer: syncer}
}

type syncResponse struct {
	*reconcile.SyncResult
	Inconsistencies []string `json:"inconsistencies"`
}

// ServeHTTP triggers a roster sync and returns its counts. Inconsistencies
// are reported in the body; they do not fail the request.
func (h *SyncHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	result, err := h.syncer.SynchronizeAll(r.Context())
	switch {
	case errors.Is(err, reconcile.ErrSyncInProgress):
		response.Err(w, http.StatusConflict, "SYNC_IN_PROGRESS", "A roster sync is already running", requestID)
		return
	case err != nil && !errors.Is(err, reconcile.ErrInconsistentState):
		slog.Error("roster sync failed", "error", err, "requestId", requestID)
		response.ErrWithDetails(w, http.StatusInternalServerError, "SYNC_FAILED", "Roster sync failed", result, requestID)
		return
	}

	body := syncResponse{SyncResult: result, Inconsistencies: []string{}}
	if err != nil {
		body.Inconsistencies = splitJoined(err)
	}
	response.Success(w, http.StatusOK, body, requestID)
}

// splitJoined returns the messages of an errors.Join result, or of err itself.
func splitJoined(err error) []string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var msgs []string
		for _, e := range joined.Unwrap() {
			msgs = append(msgs, e.Error())
		}
		return msgs
	}
	return []string{err.Error()}
}
