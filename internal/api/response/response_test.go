package response_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daisy-gov/daisy/internal/api/response"
)

func TestNewMeta_GeneratesUUID(t *testing.T) {
	meta := response.NewMeta("")

	_, err := uuid.Parse(meta.RequestID)
	assert.NoError(t, err, "requestId should be a valid UUID")
}

func TestNewMeta_UsesProvidedRequestID(t *testing.T) {
	meta := response.NewMeta("my-custom-request-id")
	assert.Equal(t, "my-custom-request-id", meta.RequestID)
}

func TestNewMeta_TimestampIsRFC3339(t *testing.T) {
	before := time.Now().UTC().Add(-1 * time.Second)

	meta := response.NewMeta("")

	parsed, err := time.Parse(time.RFC3339, meta.Timestamp)
	require.NoError(t, err, "timestamp should be valid RFC3339")
	assert.False(t, parsed.Before(before), "timestamp should be recent")
}

func TestSuccess_WritesEnvelope(t *testing.T) {
	w := httptest.NewRecorder()

	response.Success(w, http.StatusOK, map[string]string{"key": "value"}, "test-req-id")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var env map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, map[string]any{"key": "value"}, env["data"])
	assert.Nil(t, env["error"])
	assert.Equal(t, "test-req-id", env["meta"].(map[string]any)["requestId"])
}

func TestErrWithDetails_WritesErrorEnvelope(t *testing.T) {
	w := httptest.NewRecorder()

	response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed",
		[]string{"name is required"}, "req-2")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var env map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Nil(t, env["data"])
	errObj := env["error"].(map[string]any)
	assert.Equal(t, "VALIDATION_ERROR", errObj["code"])
	assert.Equal(t, []any{"name is required"}, errObj["details"])
}

func TestSucceeded(t *testing.T) {
	w := httptest.NewRecorder()

	response.Succeeded(w)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "Success"}`, w.Body.String())
}

func TestFailed(t *testing.T) {
	w := httptest.NewRecorder()

	response.Failed(w, http.StatusForbidden, "API key is invalid")

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"status": "Error", "description": "API key is invalid"}`, w.Body.String())
}

func TestErr_OmitsDetails(t *testing.T) {
	w := httptest.NewRecorder()
	response.Err(w, http.StatusConflict, "SYNC_IN_PROGRESS", "A roster sync is already running", "")

	var env map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	errObj := env["error"].(map[string]any)
	assert.Equal(t, "SYNC_IN_PROGRESS", errObj["code"])
	assert.NotContains(t, errObj, "details")
	assert.NotEmpty(t, env["meta"].(map[string]any)["requestId"])
}
