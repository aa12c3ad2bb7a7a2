package reconcile_test

import (
	"context"
	"sync"

	"github.com/daisy-gov/daisy/internal/identity"
	"github.com/daisy-gov/daisy/internal/memstore"
	"github.com/daisy-gov/daisy/internal/reconcile"
)

type fakeSource struct {
	accounts  []identity.Account
	listErr   error
	listCalls int
	getCalls  int
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) ListAccounts(context.Context) ([]identity.Account, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]identity.Account(nil), f.accounts...), nil
}

func (f *fakeSource) GetAccount(_ context.Context, id string) (*identity.Account, error) {
	f.getCalls++
	for _, a := range f.accounts {
		if a.ExternalID == id {
			found := a
			return &found, nil
		}
	}
	return nil, identity.ErrAccountNotFound
}

func (f *fakeSource) CheckConnectivity(context.Context) bool { return true }

type countingRecorder struct {
	mu              sync.Mutex
	runs            []string
	created         int
	patched         int
	inconsistencies map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{inconsistencies: map[string]int{}}
}

func (r *countingRecorder) SyncRun(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, outcome)
}

func (r *countingRecorder) AccountsCreated(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created += n
}

func (r *countingRecorder) AccountsPatched(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patched += n
}

func (r *countingRecorder) Inconsistency(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inconsistencies[kind]++
}

func (r *countingRecorder) EntitlementItem(string) {}
func (r *countingRecorder) AccessesExpired(int64)  {}
func (r *countingRecorder) RemsFetchAttempt(bool)  {}

func newEngine(src identity.Source, s *memstore.Store, opts ...reconcile.Option) *reconcile.Engine {
	return reconcile.NewEngine(src, reconcile.Store{
		Users:    s.Users(),
		Contacts: s.Contacts(),
		Partners: s.Partners(),
	}, opts...)
}

func strPtr(s string) *string { return &s }
