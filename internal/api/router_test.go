package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/daisy-gov/daisy/internal/api"
	"github.com/daisy-gov/daisy/internal/auth"
	"github.com/daisy-gov/daisy/internal/dataset"
	"github.com/daisy-gov/daisy/internal/entitlement"
	"github.com/daisy-gov/daisy/internal/export"
	"github.com/daisy-gov/daisy/internal/identity/static"
	"github.com/daisy-gov/daisy/internal/memstore"
	"github.com/daisy-gov/daisy/internal/metrics"
	"github.com/daisy-gov/daisy/internal/reconcile"
)

const (
	globalKey = "global-secret"
	roster    = `
accounts:
  - id: u1
    email: ada@example.org
    firstName: Ada
    lastName: Lovelace
  - id: u2
    email: alan@example.org
    firstName: Alan
    lastName: Turing
`
)

type testServer struct {
	store  *memstore.Store
	router *chi.Mux
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	path := filepath.Join(t.TempDir(), "roster.yaml")
	require.NoError(t, os.WriteFile(path, []byte(roster), 0o600))

	store := memstore.New()
	require.NoError(t, store.Datasets().Create(context.Background(), &dataset.Dataset{Accession: "ACC-1", Title: "Cohort"}))

	source := static.New(path)
	engine := reconcile.NewEngine(source, reconcile.Store{
		Users:    store.Users(),
		Contacts: store.Contacts(),
		Partners: store.Partners(),
	})
	processor := entitlement.NewProcessor(engine, store.Datasets(), store.Accesses(),
		entitlement.WithClock(func() time.Time { return time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC) }))

	validator, err := export.NewValidator("https://schemas.test/v1")
	require.NoError(t, err)

	authSvc := auth.NewService(globalKey, store.Users(), store.Endpoints(), bcrypt.MinCost)

	return &testServer{
		store: store,
		router: api.NewRouter(api.RouterDeps{
			Identity:  source,
			Version:   "test",
			Metrics:   metrics.Handler(prometheus.NewRegistry()),
			Auth:      authSvc,
			Registrar: authSvc,
			Processor: processor,
			Syncer:    engine,
			Datasets:  store.Datasets(),
			Contacts:  store.Contacts(),
			Partners:  store.Partners(),
			Validator: validator,
		}),
	}
}

func (s *testServer) do(method, path, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRouter_PublicRoutes(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["data"].(map[string]any)["status"])

	w = s.do(http.MethodGet, "/openapi.json", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w), "paths")
}

func TestRouter_APIKeyRequired(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/api/datasets", "", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"status": "Error", "description": "API key is required"}`, w.Body.String())

	w = s.do(http.MethodGet, "/api/datasets", "wrong", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"status": "Error", "description": "API key is invalid"}`, w.Body.String())
}

func TestRouter_APIKeyQueryParameter(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/api/datasets?API_KEY="+globalKey, "", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://schemas.test/v1/dataset.json", decode(t, w)["$schema"])
}

func TestRouter_RemsWebhookGrantsOnce(t *testing.T) {
	s := newTestServer(t)
	payload := `[{"application": 7, "resource": "ACC-1", "user": "u1", "mail": "ada@example.org", "end": null}]`

	w := s.do(http.MethodPost, "/api/rems", globalKey, payload)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"status": "Success"}`, w.Body.String())

	w = s.do(http.MethodPost, "/api/rems", globalKey, payload)
	require.Equal(t, http.StatusOK, w.Code)

	accesses := s.store.AllAccesses()
	require.Len(t, accesses, 1)
	assert.Equal(t, "2027-01-17", accesses[0].GrantExpiresOn.Format("2006-01-02"))
	require.Len(t, s.store.AllContacts(), 1)
	assert.Equal(t, "ada@example.org", s.store.AllContacts()[0].Email)
}

func TestRouter_RemsWebhookUnknownDataset(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/rems", globalKey, `[{"application": 1, "resource": "NOPE", "user": "u1"}]`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, s.store.AllAccesses())
}

func TestRouter_EndpointKeyScope(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/endpoints", globalKey, `{"name": "data-portal"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	key := decode(t, w)["data"].(map[string]any)["apiKey"].(string)

	w = s.do(http.MethodGet, "/api/contacts", key, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/api/sync", key, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, "/api/endpoints", key, `{"name": "other"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRouter_Sync(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/sync", globalKey, "")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, float64(2), data["fetched"])
	assert.Equal(t, float64(2), data["created"])
	assert.Len(t, s.store.AllUsers(), 2)
}
