// Package metrics collects and exposes Prometheus metrics for the sync jobs,
// the entitlement webhook and the access expiration sweep.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels used by SyncRun.
const (
	SyncOK           = "ok"
	SyncUnchanged    = "unchanged"
	SyncInconsistent = "inconsistent"
	SyncFailed       = "failed"
	SyncLocked       = "locked"
)

// Outcome labels used by EntitlementItem.
const (
	ItemSatisfied = "satisfied"
	ItemProcessed = "processed"
	ItemFailed    = "failed"
)

// Recorder is the metrics interface used by the reconciliation engine,
// the entitlement processor and the jobs.
type Recorder interface {
	SyncRun(outcome string)
	AccountsCreated(n int)
	AccountsPatched(n int)
	Inconsistency(kind string)
	EntitlementItem(outcome string)
	AccessesExpired(n int64)
	RemsFetchAttempt(success bool)
}

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	syncRuns         *prometheus.CounterVec
	accountsCreated  prometheus.Counter
	accountsPatched  prometheus.Counter
	inconsistencies  *prometheus.CounterVec
	entitlementItems *prometheus.CounterVec
	accessesExpired  prometheus.Counter
	remsFetches      *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		syncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "daisy_roster_sync_runs_total",
			Help: "Roster synchronization runs by outcome.",
		}, []string{"outcome"}),
		accountsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "daisy_accounts_created_total",
			Help: "Local records created from external accounts.",
		}),
		accountsPatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "daisy_accounts_patched_total",
			Help: "Local records patched from external accounts.",
		}),
		inconsistencies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "daisy_inconsistent_state_total",
			Help: "Uniqueness violations detected in the local store, by key.",
		}, []string{"key"}),
		entitlementItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "daisy_entitlement_items_total",
			Help: "Entitlement notification items by outcome.",
		}, []string{"outcome"}),
		accessesExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "daisy_accesses_expired_total",
			Help: "Access grants transitioned to expired.",
		}),
		remsFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "daisy_rems_fetch_attempts_total",
			Help: "External reference id fetch attempts against REMS.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.syncRuns,
		c.accountsCreated,
		c.accountsPatched,
		c.inconsistencies,
		c.entitlementItems,
		c.accessesExpired,
		c.remsFetches,
	)

	return c
}

// SyncRun records the outcome of a roster synchronization run.
func (c *Collector) SyncRun(outcome string) {
	c.syncRuns.WithLabelValues(outcome).Inc()
}

// AccountsCreated adds n created records.
func (c *Collector) AccountsCreated(n int) {
	c.accountsCreated.Add(float64(n))
}

// AccountsPatched adds n patched records.
func (c *Collector) AccountsPatched(n int) {
	c.accountsPatched.Add(float64(n))
}

// Inconsistency records one detected uniqueness violation.
func (c *Collector) Inconsistency(kind string) {
	c.inconsistencies.WithLabelValues(kind).Inc()
}

// EntitlementItem records the outcome of one notification item.
func (c *Collector) EntitlementItem(outcome string) {
	c.entitlementItems.WithLabelValues(outcome).Inc()
}

// AccessesExpired adds n expired grants.
func (c *Collector) AccessesExpired(n int64) {
	c.accessesExpired.Add(float64(n))
}

// RemsFetchAttempt records one REMS request.
func (c *Collector) RemsFetchAttempt(success bool) {
	result := "error"
	if success {
		result = "success"
	}
	c.remsFetches.WithLabelValues(result).Inc()
}

// Handler returns the HTTP handler serving metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Noop discards every measurement.
type Noop struct{}

func (Noop) SyncRun(string)         {}
func (Noop) AccountsCreated(int)    {}
func (Noop) AccountsPatched(int)    {}
func (Noop) Inconsistency(string)   {}
func (Noop) EntitlementItem(string) {}
func (Noop) AccessesExpired(int64)  {}
func (Noop) RemsFetchAttempt(bool)  {}

var (
	_ Recorder = (*Collector)(nil)
	_ Recorder = Noop{}
)
