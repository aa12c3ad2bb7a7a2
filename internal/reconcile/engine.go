// Package reconcile merges accounts from an external identity source into the
// local registry of users and contacts.
package reconcile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/daisy-gov/daisy/internal/contact"
	"github.com/daisy-gov/daisy/internal/identity"
	"github.com/daisy-gov/daisy/internal/metrics"
	"github.com/daisy-gov/daisy/internal/partner"
	"github.com/daisy-gov/daisy/internal/user"
)

// Store groups the repositories the engine reads and writes.
type Store struct {
	Users    user.Repository
	Contacts contact.Repository
	Partners partner.Repository
}

// SyncResult summarizes one SynchronizeAll run.
type SyncResult struct {
	Fetched      int  `json:"fetched"`
	Skipped      int  `json:"skipped"` // accounts without email
	Created      int  `json:"created"`
	Patched      int  `json:"patched"`
	Inconsistent int  `json:"inconsistent"`
	Unchanged    bool `json:"unchanged"` // roster identical to the previous run
}

// Engine reconciles external accounts with local users and contacts.
type Engine struct {
	source  identity.Source
	store   Store
	locker  Locker
	metrics metrics.Recorder

	cacheRoster bool
	mu          sync.Mutex
	lastRoster  []byte
}

// Option configures an Engine.
type Option func(*Engine)

// WithRosterCache skips reconciliation when the fetched roster is identical
// to the one of the previous clean run.
func WithRosterCache() Option {
	return func(e *Engine) { e.cacheRoster = true }
}

// WithLocker sets the run lock implementation. The default is a LocalLocker.
func WithLocker(l Locker) Option {
	return func(e *Engine) { e.locker = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(rec metrics.Recorder) Option {
	return func(e *Engine) { e.metrics = rec }
}

// NewEngine creates an Engine reading accounts from source.
func NewEngine(source identity.Source, store Store, opts ...Option) *Engine {
	e := &Engine{
		source:  source,
		store:   store,
		locker:  NewLocalLocker(),
		metrics: metrics.Noop{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Source returns the identity source the engine reads from.
func (e *Engine) Source() identity.Source {
	return e.source
}

// SynchronizeAll fetches the full roster and creates or patches one User per
// account, matched on oidc_id, in roster order. Each write is committed on its
// own, so a store error aborts the run but keeps earlier writes.
//
// Accounts matching several users are counted as inconsistent and skipped;
// their errors are joined into the returned error alongside a non-nil result.
func (e *Engine) SynchronizeAll(ctx context.Context) (*SyncResult, error) {
	release, ok, err := e.locker.TryLock(ctx, "roster-sync:"+e.source.Name())
	if err != nil {
		e.metrics.SyncRun(metrics.SyncFailed)
		return nil, fmt.Errorf("acquiring sync lock: %w", err)
	}
	if !ok {
		e.metrics.SyncRun(metrics.SyncLocked)
		return nil, ErrSyncInProgress
	}
	defer release()

	start := time.Now()

	fetched, err := e.source.ListAccounts(ctx)
	if err != nil {
		e.metrics.SyncRun(metrics.SyncFailed)
		return nil, fmt.Errorf("listing %s accounts: %w", e.source.Name(), err)
	}

	accounts := identity.FilterReconcilable(e.source.Name(), fetched)
	result := &SyncResult{
		Fetched: len(fetched),
		Skipped: len(fetched) - len(accounts),
	}

	var snapshot []byte
	if e.cacheRoster {
		snapshot, err = json.Marshal(fetched)
		if err != nil {
			e.metrics.SyncRun(metrics.SyncFailed)
			return nil, fmt.Errorf("encoding roster snapshot: %w", err)
		}
		if e.sameAsLastRoster(snapshot) {
			result.Unchanged = true
			e.metrics.SyncRun(metrics.SyncUnchanged)
			slog.Info("reconcile: roster unchanged, skipping sync",
				"source", e.source.Name(),
				"accounts", len(fetched),
			)
			return result, nil
		}
	}

	var inconsistencies []error
	for _, account := range accounts {
		created, err := e.syncAccount(ctx, account)

		var stateErr *InconsistentStateError
		if errors.As(err, &stateErr) {
			result.Inconsistent++
			inconsistencies = append(inconsistencies, err)
			e.metrics.Inconsistency(stateErr.Key)
			slog.Error("reconcile: inconsistent state, account skipped",
				"source", e.source.Name(),
				"oidc_id", account.ExternalID,
				"error", err,
			)
			continue
		}
		if err != nil {
			e.recordCounts(result)
			e.metrics.SyncRun(metrics.SyncFailed)
			return result, fmt.Errorf("reconciling account %s: %w", account.ExternalID, err)
		}

		if created {
			result.Created++
		} else {
			result.Patched++
		}
	}

	e.recordCounts(result)
	slog.Info("reconcile: roster sync finished",
		"source", e.source.Name(),
		"fetched", result.Fetched,
		"skipped", result.Skipped,
		"created", result.Created,
		"patched", result.Patched,
		"inconsistent", result.Inconsistent,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if len(inconsistencies) > 0 {
		e.metrics.SyncRun(metrics.SyncInconsistent)
		return result, errors.Join(inconsistencies...)
	}

	if e.cacheRoster {
		e.rememberRoster(snapshot)
	}
	e.metrics.SyncRun(metrics.SyncOK)
	return result, nil
}

// syncAccount creates or patches the User holding account's external id and
// reports whether it created one. The id may be held by at most one User or
// Contact, so a Contact match is reported as inconsistent.
func (e *Engine) syncAccount(ctx context.Context, account identity.Account) (bool, error) {
	matches, err := e.store.Users.ListByOIDCID(ctx, account.ExternalID)
	if err != nil {
		return false, fmt.Errorf("looking up users by oidc_id: %w", err)
	}
	contacts, err := e.store.Contacts.ListByOIDCID(ctx, account.ExternalID)
	if err != nil {
		return false, fmt.Errorf("looking up contacts by oidc_id: %w", err)
	}

	// A Contact already holding the id rules out creating or patching a User.
	if len(contacts) > 0 {
		return false, &InconsistentStateError{
			Key:     KeyOIDCID,
			Value:   account.ExternalID,
			Matches: len(matches) + len(contacts),
		}
	}

	switch len(matches) {
	case 0:
		oidcID := account.ExternalID
		username := account.Username
		if username == "" {
			username = account.Email
		}
		u := &user.User{
			OIDCID:    &oidcID,
			Email:     account.Email,
			FirstName: account.FirstName,
			LastName:  account.LastName,
			Username:  username,
		}
		if err := e.store.Users.Create(ctx, u); err != nil {
			return false, fmt.Errorf("creating user: %w", err)
		}
		slog.Debug("reconcile: user created", "oidc_id", account.ExternalID, "user_id", u.ID)
		return true, nil
	case 1:
		u := matches[0]
		u.Email = account.Email
		u.FirstName = account.FirstName
		u.LastName = account.LastName
		if err := e.store.Users.Update(ctx, &u); err != nil {
			return false, fmt.Errorf("patching user %s: %w", u.ID, err)
		}
		return false, nil
	default:
		return false, &InconsistentStateError{
			Key:     KeyOIDCID,
			Value:   account.ExternalID,
			Matches: len(matches),
		}
	}
}

func (e *Engine) recordCounts(r *SyncResult) {
	e.metrics.AccountsCreated(r.Created)
	e.metrics.AccountsPatched(r.Patched)
}

func (e *Engine) sameAsLastRoster(snapshot []byte) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastRoster != nil && bytes.Equal(e.lastRoster, snapshot)
}

func (e *Engine) rememberRoster(snapshot []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastRoster = snapshot
}
