package handler

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/daisy-gov/daisy/internal/api/middleware"
	"github.com/daisy-gov/daisy/internal/api/response"
	"github.com/daisy-gov/daisy/internal/contact"
	"github.com/daisy-gov/daisy/internal/dataset"
	"github.com/daisy-gov/daisy/internal/export"
	"github.com/daisy-gov/daisy/internal/partner"
)

// ExportHandler serves the dataset and contact export documents.
type ExportHandler struct {
	datasets  dataset.Repository
	contacts  contact.Repository
	partners  partner.Repository
	validator *export.Validator
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(datasets dataset.Repository, contacts contact.Repository, partners partner.Repository, validator *export.Validator) *ExportHandler {
	return &ExportHandler{
		datasets:  datasets,
		contacts:  contacts,
		partners:  partners,
		validator: validator,
	}
}

// Datasets handles GET /api/datasets.
func (h *ExportHandler) Datasets(w http.ResponseWriter, r *http.Request) {
	rows, err := h.datasets.List(r.Context())
	if err != nil {
		slog.Error("failed to list datasets", "error", err, "requestId", middleware.GetRequestID(r.Context()))
		response.Failed(w, http.StatusInternalServerError, "Failed to list datasets")
		return
	}

	items := make([]export.DatasetItem, 0, len(rows))
	for _, d := range rows {
		items = append(items, export.FromDataset(d))
	}
	response.Raw(w, http.StatusOK, export.Build(h.validator, export.KindDataset, items))
}

// Contacts handles GET /api/contacts.
func (h *ExportHandler) Contacts(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	rows, err := h.contacts.List(r.Context())
	if err != nil {
		slog.Error("failed to list contacts", "error", err, "requestId", requestID)
		response.Failed(w, http.StatusInternalServerError, "Failed to list contacts")
		return
	}
	partners, err := h.partners.List(r.Context())
	if err != nil {
		slog.Error("failed to list partners", "error", err, "requestId", requestID)
		response.Failed(w, http.StatusInternalServerError, "Failed to list contacts")
		return
	}

	acronyms := make(map[uuid.UUID]string, len(partners))
	for _, p := range partners {
		acronyms[p.ID] = p.Acronym
	}

	items := make([]export.ContactItem, 0, len(rows))
	for _, c := range rows {
		items = append(items, export.FromContact(c, acronyms))
	}
	response.Raw(w, http.StatusOK, export.Build(h.validator, export.KindContact, items))
}
