// Package entitlement turns REMS entitlement notifications into access grants.
package entitlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/daisy-gov/daisy/internal/access"
	"github.com/daisy-gov/daisy/internal/dataset"
	"github.com/daisy-gov/daisy/internal/metrics"
	"github.com/daisy-gov/daisy/internal/reconcile"
	"github.com/daisy-gov/daisy/internal/rems"
)

// DefaultGraceDays is the grant length used when a notification has no end date.
const DefaultGraceDays = 90

// ErrDatasetNotFound is returned when a notification names an unknown accession.
var ErrDatasetNotFound = fmt.Errorf("entitlement: %w", dataset.ErrNotFound)

// Resolver maps an external identity to a local user or contact.
type Resolver interface {
	RetrieveAndUpdate(ctx context.Context, oidcID, email string, createContactIfNotFound bool) (*reconcile.Grantee, error)
}

// ExternalIDFetcher looks up the external reference id of a REMS application.
type ExternalIDFetcher interface {
	FetchExternalID(ctx context.Context, applicationID int64) (string, error)
}

// BatchResult summarizes one HandleBatch call.
type BatchResult struct {
	Total            int
	AlreadySatisfied int
	Processed        int
	Failed           int
	Errors           []error
}

// OK reports whether every item was either already satisfied or processed.
func (r BatchResult) OK() bool {
	return r.Failed == 0
}

// Processor records access grants for approved REMS applications.
type Processor struct {
	resolver  Resolver
	datasets  dataset.Repository
	accesses  access.Repository
	fetcher   ExternalIDFetcher
	graceDays int
	metrics   metrics.Recorder
	now       func() time.Time
}

// Option configures a Processor.
type Option func(*Processor)

// WithExternalIDs enables the external reference id lookup.
func WithExternalIDs(f ExternalIDFetcher) Option {
	return func(p *Processor) { p.fetcher = f }
}

// WithGraceDays sets the default grant length in days.
func WithGraceDays(days int) Option {
	return func(p *Processor) { p.graceDays = days }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(rec metrics.Recorder) Option {
	return func(p *Processor) { p.metrics = rec }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

// NewProcessor creates a Processor.
func NewProcessor(resolver Resolver, datasets dataset.Repository, accesses access.Repository, opts ...Option) *Processor {
	p := &Processor{
		resolver:  resolver,
		datasets:  datasets,
		accesses:  accesses,
		graceDays: DefaultGraceDays,
		metrics:   metrics.Noop{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// HandleBatch processes every item. Items that already have a matching
// automatic grant are skipped. A failed item is logged and recorded in the
// result; it never stops the rest of the batch.
func (p *Processor) HandleBatch(ctx context.Context, items []rems.Notification) BatchResult {
	result := BatchResult{Total: len(items)}

	for i, n := range items {
		satisfied, err := p.handle(ctx, n)
		switch {
		case err != nil:
			result.Failed++
			result.Errors = append(result.Errors, fmt.Errorf("item %d (application %d): %w", i, n.Application, err))
			p.metrics.EntitlementItem(metrics.ItemFailed)
			slog.Warn("entitlement: notification failed",
				"application", n.Application,
				"resource", n.Resource,
				"user", n.User,
				"error", err,
			)
		case satisfied:
			result.AlreadySatisfied++
			p.metrics.EntitlementItem(metrics.ItemSatisfied)
		default:
			result.Processed++
			p.metrics.EntitlementItem(metrics.ItemProcessed)
		}
	}

	slog.Info("entitlement: batch handled",
		"total", result.Total,
		"already_satisfied", result.AlreadySatisfied,
		"processed", result.Processed,
		"failed", result.Failed,
	)
	return result
}

// HandleOne grants access for a single notification without the replay check.
func (p *Processor) HandleOne(ctx context.Context, n rems.Notification) error {
	expiresOn, err := p.expiration(n)
	if err != nil {
		return err
	}
	return p.grant(ctx, n, expiresOn)
}

func (p *Processor) handle(ctx context.Context, n rems.Notification) (satisfied bool, err error) {
	expiresOn, err := p.expiration(n)
	if err != nil {
		return false, err
	}

	satisfied, err = p.accesses.HasActiveAutomatic(ctx, n.Resource, n.User, expiresOn)
	if err != nil {
		return false, fmt.Errorf("checking existing grants: %w", err)
	}
	if satisfied {
		slog.Debug("entitlement: grant already present",
			"application", n.Application,
			"resource", n.Resource,
			"user", n.User,
		)
		return true, nil
	}

	return false, p.grant(ctx, n, expiresOn)
}

func (p *Processor) grant(ctx context.Context, n rems.Notification, expiresOn time.Time) error {
	if err := n.Validate(); err != nil {
		return fmt.Errorf("invalid notification: %w", err)
	}

	ds, err := p.datasets.GetByAccession(ctx, n.Resource)
	if err != nil {
		if errors.Is(err, dataset.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrDatasetNotFound, n.Resource)
		}
		return fmt.Errorf("looking up dataset %s: %w", n.Resource, err)
	}

	grantee, err := p.resolver.RetrieveAndUpdate(ctx, n.User, n.Mail, true)
	if err != nil {
		return fmt.Errorf("resolving grantee %s: %w", n.User, err)
	}

	externalID := p.externalID(ctx, n.Application)
	applicationID := n.Application

	a := &access.Access{
		DatasetID:                 ds.ID,
		UserID:                    grantee.UserID(),
		ContactID:                 grantee.ContactID(),
		Status:                    access.StatusActive,
		GrantedOn:                 p.now().UTC(),
		GrantExpiresOn:            expiresOn,
		WasGeneratedAutomatically: true,
		ApplicationID:             &applicationID,
		ApplicationExternalID:     externalID,
		Notes:                     notes(n.Application, externalID),
	}
	if err := p.accesses.Create(ctx, a); err != nil {
		return fmt.Errorf("creating access grant: %w", err)
	}

	slog.Info("entitlement: access granted",
		"application", n.Application,
		"dataset", ds.Accession,
		"user", n.User,
		"expires_on", expiresOn.Format(time.DateOnly),
	)
	return nil
}

// expiration is the notification's end date, or today plus the grace period.
func (p *Processor) expiration(n rems.Notification) (time.Time, error) {
	end, ok, err := n.EndDate()
	if err != nil {
		return time.Time{}, err
	}
	if ok {
		return access.Date(end), nil
	}
	return access.Date(p.now().UTC()).AddDate(0, 0, p.graceDays), nil
}

// externalID is best effort: a failed lookup leaves the reference empty.
func (p *Processor) externalID(ctx context.Context, applicationID int64) *string {
	if p.fetcher == nil {
		return nil
	}
	id, err := p.fetcher.FetchExternalID(ctx, applicationID)
	if err != nil {
		slog.Warn("entitlement: giving up on external reference id",
			"application", applicationID,
			"error", err,
		)
		return nil
	}
	if id == "" {
		return nil
	}
	return &id
}

func notes(applicationID int64, externalID *string) string {
	s := "Set automatically by REMS data access request #" + strconv.FormatInt(applicationID, 10)
	if externalID != nil {
		s += " (" + *externalID + ")"
	}
	return s
}
