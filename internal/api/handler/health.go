package handler

import (
	"context"
	"net/http"

	"github.com/daisy-gov/daisy/internal/api/middleware"
	"github.com/daisy-gov/daisy/internal/api/response"
	"github.com/daisy-gov/daisy/internal/identity"
)

// ConnectivityChecker reports whether the identity provider is reachable.
type ConnectivityChecker interface {
	Name() string
	CheckConnectivity(ctx context.Context) bool
}

// DBPinger checks database connectivity.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles the GET /health endpoint.
type HealthHandler struct {
	identity ConnectivityChecker
	db       DBPinger
	version  string
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(checker ConnectivityChecker, db DBPinger, version string) *HealthHandler {
	return &HealthHandler{
		identity: checker,
		db:       db,
		version:  version,
	}
}

type identityStatus struct {
	Backend   string `json:"backend"`
	Connected bool   `json:"connected"`
}

type databaseStatus struct {
	Connected bool `json:"connected"`
}

type healthData struct {
	Status   string         `json:"status"`
	Version  string         `json:"version"`
	Identity identityStatus `json:"identityProvider"`
	Database databaseStatus `json:"database"`
}

// ServeHTTP handles the health check request. A disabled identity backend
// does not degrade the status.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	idStatus := identityStatus{
		Backend:   h.identity.Name(),
		Connected: h.identity.CheckConnectivity(r.Context()),
	}
	dbStatus := databaseStatus{Connected: h.db == nil || h.db.Ping(r.Context()) == nil}

	status := "healthy"
	if !dbStatus.Connected || (!idStatus.Connected && idStatus.Backend != identity.NoopName) {
		status = "degraded"
	}

	response.Success(w, http.StatusOK, healthData{
		Status:   status,
		Version:  h.version,
		Identity: idStatus,
		Database: dbStatus,
	}, requestID)
}
