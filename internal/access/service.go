package access

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/daisy-gov/daisy/internal/metrics"
)

// Service runs the access expiration sweep.
type Service struct {
	repo    Repository
	metrics metrics.Recorder
}

// NewService creates a new Service. A nil recorder disables metrics.
func NewService(repo Repository, rec metrics.Recorder) *Service {
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &Service{repo: repo, metrics: rec}
}

// ExpireAccesses transitions every active grant whose expiration date is
// before asOf to expired. Running it twice for the same date changes nothing
// the second time.
func (s *Service) ExpireAccesses(ctx context.Context, asOf time.Time) (int64, error) {
	start := time.Now()

	n, err := s.repo.ExpireBefore(ctx, Date(asOf))
	if err != nil {
		return 0, fmt.Errorf("expiring accesses before %s: %w", Date(asOf).Format(time.DateOnly), err)
	}

	s.metrics.AccessesExpired(n)
	slog.Info("access: expiration sweep finished",
		"as_of", Date(asOf).Format(time.DateOnly),
		"expired", n,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return n, nil
}
