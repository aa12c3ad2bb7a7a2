package api

import (
	_ "embed"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/go-chi/chi/v5"

	"github.com/daisy-gov/daisy/internal/api/handler"
	"github.com/daisy-gov/daisy/internal/api/middleware"
	"github.com/daisy-gov/daisy/internal/auth"
	"github.com/daisy-gov/daisy/internal/contact"
	"github.com/daisy-gov/daisy/internal/dataset"
	"github.com/daisy-gov/daisy/internal/export"
	"github.com/daisy-gov/daisy/internal/partner"
)

// OpenAPISpec is the API description served on /openapi.yaml and /openapi.json.
//
//go:embed openapi.yaml
var OpenAPISpec []byte

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	Identity handler.ConnectivityChecker
	DBPinger handler.DBPinger
	Version  string
	Metrics  http.Handler

	Auth      middleware.Authenticator
	Registrar handler.EndpointRegistrar
	Processor handler.BatchHandler
	Syncer    handler.Syncer

	Datasets  dataset.Repository
	Contacts  contact.Repository
	Partners  partner.Repository
	Validator *export.Validator
}

// NewRouter creates and configures a Chi router with all middleware and routes.
// Route groups whose dependencies are nil are not mounted.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(chimiddleware.Logger)

	healthHandler := handler.NewHealthHandler(deps.Identity, deps.DBPinger, deps.Version)
	r.Get("/health", healthHandler.ServeHTTP)

	openapiHandler := handler.NewOpenAPIHandler(OpenAPISpec)
	r.Get("/openapi.json", openapiHandler.JSON)
	r.Get("/openapi.yaml", openapiHandler.YAML)

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	if deps.Auth == nil {
		return r
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKey(deps.Auth))

		if deps.Processor != nil {
			r.Post("/rems", handler.NewRemsHandler(deps.Processor).ServeHTTP)
		}

		if deps.Datasets != nil && deps.Contacts != nil && deps.Partners != nil && deps.Validator != nil {
			exportHandler := handler.NewExportHandler(deps.Datasets, deps.Contacts, deps.Partners, deps.Validator)
			r.Get("/datasets", exportHandler.Datasets)
			r.Get("/contacts", exportHandler.Contacts)
		}

		if deps.Syncer != nil {
			r.With(middleware.RequireKind(auth.KindGlobal, auth.KindUser)).
				Post("/sync", handler.NewSyncHandler(deps.Syncer).ServeHTTP)
		}

		if deps.Registrar != nil {
			r.With(middleware.RequireKind(auth.KindGlobal)).
				Post("/endpoints", handler.NewEndpointHandler(deps.Registrar).Create)
		}
	})

	return r
}
