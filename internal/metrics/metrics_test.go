package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daisy-gov/daisy/internal/metrics"
)

func TestCollector_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	c.SyncRun(metrics.SyncOK)
	c.SyncRun(metrics.SyncOK)
	c.SyncRun(metrics.SyncLocked)
	c.AccountsCreated(3)
	c.AccountsPatched(2)
	c.Inconsistency("oidc_id")
	c.EntitlementItem(metrics.ItemFailed)
	c.AccessesExpired(4)
	c.RemsFetchAttempt(false)
	c.RemsFetchAttempt(true)

	count, err := testutil.GatherAndCount(reg, "daisy_roster_sync_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "one series per outcome label")

	families, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if m.GetCounter() != nil {
				values[mf.GetName()] += m.GetCounter().GetValue()
			}
		}
	}

	assert.Equal(t, 3.0, values["daisy_roster_sync_runs_total"])
	assert.Equal(t, 3.0, values["daisy_accounts_created_total"])
	assert.Equal(t, 2.0, values["daisy_accounts_patched_total"])
	assert.Equal(t, 1.0, values["daisy_inconsistent_state_total"])
	assert.Equal(t, 1.0, values["daisy_entitlement_items_total"])
	assert.Equal(t, 4.0, values["daisy_accesses_expired_total"])
	assert.Equal(t, 2.0, values["daisy_rems_fetch_attempts_total"])
}

func TestHandler_ServesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)
	c.AccountsCreated(1)

	rec := httptest.NewRecorder()
	metrics.Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "daisy_accounts_created_total 1")
}
