package billing

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerConfig configures the circuit breaker around provider calls.
type BreakerConfig struct {
	MaxRequests      uint32        `env:"BILLING_BREAKER_MAX_REQUESTS" envDefault:"3"`
	Interval         time.Duration `env:"BILLING_BREAKER_INTERVAL" envDefault:"30s"`
	Timeout          time.Duration `env:"BILLING_BREAKER_TIMEOUT" envDefault:"20s"`
	FailureThreshold uint32        `env:"BILLING_BREAKER_FAILURES" envDefault:"5"`
}

// BreakerProvider guards a Provider with a circuit breaker. Only transport
// failures count against the breaker; bad signatures and invalid input do not.
type BreakerProvider struct {
	next Provider
	cb   *gobreaker.CircuitBreaker[any]
}

// WithBreaker wraps p. State changes are logged through log.
func WithBreaker(p Provider, cfg BreakerConfig, log *slog.Logger) *BreakerProvider {
	if log == nil {
		log = slog.Default()
	}
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	settings := gobreaker.Settings{
		Name:        "billing-" + p.Name(),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, ErrProviderRequest)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("billing circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	}

	return &BreakerProvider{
		next: p,
		cb:   gobreaker.NewCircuitBreaker[any](settings),
	}
}

func (b *BreakerProvider) Name() string { return b.next.Name() }

// State exposes the breaker state for readiness reporting.
func (b *BreakerProvider) State() gobreaker.State { return b.cb.State() }

func (b *BreakerProvider) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	v, err := b.cb.Execute(func() (any, error) {
		return b.next.CreateCheckout(ctx, req)
	})
	if err != nil {
		return nil, breakerErr(err)
	}
	return v.(*CheckoutSession), nil
}

func (b *BreakerProvider) PortalLink(ctx context.Context, req PortalRequest) (*PortalLink, error) {
	v, err := b.cb.Execute(func() (any, error) {
		return b.next.PortalLink(ctx, req)
	})
	if err != nil {
		return nil, breakerErr(err)
	}
	return v.(*PortalLink), nil
}

func (b *BreakerProvider) ParseWebhook(ctx context.Context, payload []byte, header http.Header) (*WebhookEvent, error) {
	v, err := b.cb.Execute(func() (any, error) {
		return b.next.ParseWebhook(ctx, payload, header)
	})
	if err != nil {
		return nil, breakerErr(err)
	}
	return v.(*WebhookEvent), nil
}

// CaptureCheckout captures through the wrapped provider when it supports
// capturing and fails with ErrCaptureUnsupported otherwise.
func (b *BreakerProvider) CaptureCheckout(ctx context.Context, event *WebhookEvent) (*WebhookEvent, error) {
	c, ok := b.next.(Capturer)
	if !ok {
		return nil, ErrCaptureUnsupported
	}
	v, err := b.cb.Execute(func() (any, error) {
		return c.CaptureCheckout(ctx, event)
	})
	if err != nil {
		return nil, breakerErr(err)
	}
	return v.(*WebhookEvent), nil
}

func breakerErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.Join(ErrProviderUnavailable, err)
	}
	return err
}
