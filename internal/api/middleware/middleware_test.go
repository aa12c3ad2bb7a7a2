package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daisy-gov/daisy/internal/api/middleware"
	"github.com/daisy-gov/daisy/internal/auth"
)

type mockAuthenticator struct {
	authenticateFn func(ctx context.Context, rawKey string) (*auth.Identity, error)
}

func (m *mockAuthenticator) Authenticate(ctx context.Context, rawKey string) (*auth.Identity, error) {
	return m.authenticateFn(ctx, rawKey)
}

func keyAuthenticator() *mockAuthenticator {
	return &mockAuthenticator{authenticateFn: func(_ context.Context, rawKey string) (*auth.Identity, error) {
		switch rawKey {
		case "global":
			return &auth.Identity{Kind: auth.KindGlobal, Name: auth.KindGlobal}, nil
		case "endpoint":
			return &auth.Identity{Kind: auth.KindEndpoint, Name: "portal"}, nil
		case "broken":
			return nil, errors.New("db down")
		}
		return nil, auth.ErrInvalidKey
	}}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func parseStatusBody(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestAPIKey_MissingKey(t *testing.T) {
	handler := middleware.APIKey(keyAuthenticator())(okHandler())
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/datasets", nil))

	assert.Equal(t, http.StatusForbidden, w.Code)
	body := parseStatusBody(t, w)
	assert.Equal(t, "Error", body["status"])
	assert.NotEmpty(t, body["description"])
}

func TestAPIKey_InvalidKey(t *testing.T) {
	handler := middleware.APIKey(keyAuthenticator())(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/api/datasets", nil)
	req.Header.Set("X-API-Key", "nope")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "API key is invalid", parseStatusBody(t, w)["description"])
}

func TestAPIKey_HeaderKeySetsIdentity(t *testing.T) {
	var got *auth.Identity
	handler := middleware.APIKey(keyAuthenticator())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = middleware.GetIdentity(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/datasets", nil)
	req.Header.Set("X-API-Key", "endpoint")

	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, got)
	assert.Equal(t, "portal", got.Name)
}

func TestAPIKey_QueryParameter(t *testing.T) {
	handler := middleware.APIKey(keyAuthenticator())(okHandler())
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/datasets?API_KEY=global", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPIKey_AuthenticatorFailure(t *testing.T) {
	handler := middleware.APIKey(keyAuthenticator())(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/api/datasets", nil)
	req.Header.Set("X-API-Key", "broken")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRequireKind(t *testing.T) {
	chain := func(key string) *httptest.ResponseRecorder {
		handler := middleware.APIKey(keyAuthenticator())(middleware.RequireKind(auth.KindGlobal)(okHandler()))
		req := httptest.NewRequest(http.MethodPost, "/api/endpoints", nil)
		req.Header.Set("X-API-Key", key)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, chain("global").Code)
	w := chain("endpoint")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Insufficient permissions", parseStatusBody(t, w)["description"])
}

func TestRequireKind_NoIdentity(t *testing.T) {
	w := httptest.NewRecorder()
	middleware.RequireKind(auth.KindGlobal)(okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequestID_GeneratesWhenMissing(t *testing.T) {
	var ctxID string
	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = middleware.GetRequestID(r.Context())
	}))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	_, err := uuid.Parse(ctxID)
	assert.NoError(t, err)
	assert.Equal(t, ctxID, w.Header().Get("X-Request-ID"))
}

func TestRequestID_KeepsCallerID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "rems-42")
	w := httptest.NewRecorder()

	middleware.RequestID(okHandler()).ServeHTTP(w, req)

	assert.Equal(t, "rems-42", w.Header().Get("X-Request-ID"))
}

func TestRequestID_ReplacesOversizedID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("x", 500))
	w := httptest.NewRecorder()

	middleware.RequestID(okHandler()).ServeHTTP(w, req)

	_, err := uuid.Parse(w.Header().Get("X-Request-ID"))
	assert.NoError(t, err)
}

func TestRecovery(t *testing.T) {
	handler := middleware.RequestID(middleware.Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var env map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "INTERNAL_ERROR", env["error"].(map[string]any)["code"])
}
