package subscription

import (
	"log/slog"
	"time"

	"github.com/learnpro/learnpro/pkg/idempotency"
	"github.com/learnpro/learnpro/pkg/metrics"
)

// DefaultDedupeTTL is how long processed webhook ids are remembered.
const DefaultDedupeTTL = 72 * time.Hour

// ServiceOption configures a Service instance.
type ServiceOption func(*Service)

// WithDeduplication drops webhook deliveries whose event id was already
// processed within ttl. A non-positive ttl keeps DefaultDedupeTTL.
func WithDeduplication(store idempotency.Store, ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.dedupe = store
		if ttl > 0 {
			s.dedupeTTL = ttl
		}
	}
}

func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
