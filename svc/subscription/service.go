package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/learnpro/learnpro/pkg/billing"
	"github.com/learnpro/learnpro/pkg/idempotency"
	"github.com/learnpro/learnpro/pkg/logger"
	"github.com/learnpro/learnpro/pkg/metrics"
	"github.com/learnpro/learnpro/svc/catalog"
)

// Store is the subscription persistence. *Repository implements it.
type Store interface {
	ActiveByUser(ctx context.Context, userID uuid.UUID) (*Subscription, error)
	Activate(ctx context.Context, s Subscription) (*Subscription, error)
	Update(ctx context.Context, provider, ref string, c Change) (*Subscription, error)
	ExpireLapsed(ctx context.Context, now time.Time) (int64, error)
}

// Plans resolves plans for checkout and webhooks. *catalog.Service implements it.
type Plans interface {
	PlanByID(ctx context.Context, id uuid.UUID) (*catalog.Plan, error)
	PlanByName(ctx context.Context, name string) (*catalog.Plan, error)
	PlanByDuration(ctx context.Context, months int) (*catalog.Plan, error)
	PlanByPaddlePrice(ctx context.Context, priceID string) (*catalog.Plan, error)
}

// CheckoutParams selects a plan by name or, when the name is empty, by
// duration in months.
type CheckoutParams struct {
	PlanName       string       `json:"plan_name" validate:"required_without=DurationMonths,max=100"`
	DurationMonths int          `json:"duration_months" validate:"required_without=PlanName,gte=0,lte=120"`
	Provider       string       `json:"provider" validate:"omitempty,oneof=paddle paypal"`
	Mode           billing.Mode `json:"mode" validate:"omitempty,oneof=hosted embedded"`
	SuccessURL     string       `json:"success_url" validate:"required,url"`
	CancelURL      string       `json:"cancel_url" validate:"omitempty,url"`
	Email          string       `json:"email" validate:"omitempty,email"`
}

// Checkout is the answer to a checkout request. Free plans are activated
// right away and carry the subscription instead of a provider session.
type Checkout struct {
	billing.CheckoutSession
	Plan         catalog.Plan  `json:"plan"`
	Activated    bool          `json:"activated"`
	Subscription *Subscription `json:"subscription,omitempty"`
}

// Service sells plans through billing providers and mirrors provider
// webhooks into the subscriptions table.
type Service struct {
	store     Store
	plans     Plans
	providers *billing.Registry
	dedupe    idempotency.Store
	dedupeTTL time.Duration
	metrics   *metrics.Metrics
	log       *slog.Logger
	now       func() time.Time
}

// NewService panics if a required dependency is nil.
func NewService(store Store, plans Plans, providers *billing.Registry, opts ...ServiceOption) *Service {
	if store == nil {
		panic("subscription: Store is required")
	}
	if plans == nil {
		panic("subscription: Plans is required")
	}
	if providers == nil {
		panic("subscription: provider registry is required")
	}

	s := &Service{
		store:     store,
		plans:     plans,
		providers: providers,
		dedupeTTL: DefaultDedupeTTL,
		log:       slog.Default(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("subscription"))
	return s
}

// Current returns the user's active subscription.
func (s *Service) Current(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	return s.store.ActiveByUser(ctx, userID)
}

func (s *Service) resolvePlan(ctx context.Context, p CheckoutParams) (*catalog.Plan, error) {
	if name := strings.TrimSpace(p.PlanName); name != "" {
		return s.plans.PlanByName(ctx, name)
	}
	if p.DurationMonths > 0 {
		return s.plans.PlanByDuration(ctx, p.DurationMonths)
	}
	return nil, ErrPlanRequired
}

// CreateCheckout starts a purchase of the plan selected by p.
//
// Users who already hold an active subscription of the same or a higher
// tier are refused with ErrSubscriptionAlreadyExists; upgrades are allowed.
// Free plans never reach a provider.
func (s *Service) CreateCheckout(ctx context.Context, userID uuid.UUID, p CheckoutParams) (*Checkout, error) {
	plan, err := s.resolvePlan(ctx, p)
	if err != nil {
		return nil, err
	}

	current, err := s.store.ActiveByUser(ctx, userID)
	switch {
	case err == nil:
		if current.Tier.Includes(plan.Tier) {
			return nil, ErrSubscriptionAlreadyExists
		}
	case !errors.Is(err, ErrSubscriptionNotFound):
		return nil, err
	}

	if plan.IsFree() {
		now := s.now()
		sub, err := s.store.Activate(ctx, Subscription{
			UserID:    userID,
			PlanID:    plan.ID,
			StartDate: now,
			EndDate:   plan.EndDate(now),
		})
		if err != nil {
			return nil, err
		}
		sub.PlanName, sub.Tier = plan.Name, plan.Tier
		s.metrics.Checkout("free", "activated")
		s.log.InfoContext(ctx, "free plan activated", logger.UserID(userID), logger.PlanID(plan.ID))
		return &Checkout{
			CheckoutSession: billing.CheckoutSession{URL: p.SuccessURL, ExpiresAt: now.Add(5 * time.Minute)},
			Plan:            *plan,
			Activated:       true,
			Subscription:    sub,
		}, nil
	}

	provider, err := s.providers.Get(p.Provider)
	if err != nil {
		return nil, err
	}

	mode := p.Mode
	if mode == "" {
		mode = billing.ModeHosted
	}

	session, err := provider.CreateCheckout(ctx, billing.CheckoutRequest{
		UserID:      userID.String(),
		PlanID:      plan.ID.String(),
		PlanName:    plan.Name,
		PriceID:     plan.PaddlePriceID,
		AmountCents: plan.AmountCents(),
		Currency:    plan.Currency,
		Email:       p.Email,
		SuccessURL:  p.SuccessURL,
		CancelURL:   p.CancelURL,
		Mode:        mode,
	})
	if err != nil {
		s.metrics.Checkout(provider.Name(), "error")
		s.log.ErrorContext(ctx, "checkout failed",
			logger.UserID(userID), logger.PlanID(plan.ID), logger.Provider(provider.Name()), logger.Error(err))
		return nil, err
	}

	s.metrics.Checkout(provider.Name(), "created")
	s.log.InfoContext(ctx, "checkout created",
		logger.UserID(userID), logger.PlanID(plan.ID), logger.Provider(provider.Name()),
		slog.String("mode", string(mode)))
	return &Checkout{CheckoutSession: *session, Plan: *plan}, nil
}

// PortalLink returns the provider's customer portal for the user's active
// subscription.
func (s *Service) PortalLink(ctx context.Context, userID uuid.UUID) (*billing.PortalLink, error) {
	sub, err := s.store.ActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub.IsFree() {
		return nil, ErrNoPortal
	}

	provider, err := s.providers.Get(sub.Provider)
	if err != nil {
		return nil, err
	}
	link, err := provider.PortalLink(ctx, billing.PortalRequest{
		CustomerID:     sub.ProviderCustomerID,
		SubscriptionID: sub.ProviderSubscriptionID,
	})
	if errors.Is(err, billing.ErrPortalUnsupported) || errors.Is(err, billing.ErrMissingCustomerID) {
		return nil, errors.Join(ErrNoPortal, err)
	}
	return link, err
}

// HandleWebhook verifies and applies a provider event. Duplicate deliveries
// are acknowledged without side effects. Events that fail to apply are
// released so the provider's retry is processed.
func (s *Service) HandleWebhook(ctx context.Context, providerName string, payload []byte, header http.Header) error {
	provider, err := s.providers.Get(providerName)
	if err != nil {
		return err
	}
	name := provider.Name()

	event, err := provider.ParseWebhook(ctx, payload, header)
	if err != nil {
		s.metrics.Webhook(name, "unknown", "rejected")
		s.log.WarnContext(ctx, "webhook rejected", logger.Provider(name), logger.Error(err))
		return err
	}

	log := s.log.With(
		logger.Provider(name),
		logger.EventType(string(event.Type)),
		slog.String("event_id", event.ID),
		slog.String("provider_event", event.ProviderEvent),
	)

	key := name + ":" + event.ID
	if s.dedupe != nil && event.ID != "" {
		claimed, err := s.dedupe.Claim(ctx, key, s.dedupeTTL)
		if err != nil {
			// Fail open; every event type applies idempotently.
			log.WarnContext(ctx, "webhook dedupe unavailable", logger.Error(err))
		} else if !claimed {
			s.metrics.Webhook(name, string(event.Type), "duplicate")
			log.DebugContext(ctx, "duplicate webhook ignored")
			return nil
		}
	}

	if err := s.apply(ctx, log, provider, event); err != nil {
		if s.dedupe != nil && event.ID != "" {
			if rerr := s.dedupe.Release(ctx, key); rerr != nil {
				log.WarnContext(ctx, "failed to release webhook key", logger.Error(rerr))
			}
		}
		s.metrics.Webhook(name, string(event.Type), "error")
		log.ErrorContext(ctx, "webhook processing failed", logger.Error(err))
		return err
	}

	s.metrics.Webhook(name, string(event.Type), "processed")
	return nil
}

func (s *Service) apply(ctx context.Context, log *slog.Logger, provider billing.Provider, event *billing.WebhookEvent) error {
	switch event.Type {
	case billing.EventCheckoutApproved:
		return s.capture(ctx, log, provider, event)

	case billing.EventCheckoutCompleted, billing.EventSubscriptionCreated:
		return s.activate(ctx, log, event)

	case billing.EventSubscriptionUpdated:
		change := Change{Status: mirrorStatus(event.Status)}
		if plan, err := s.planForEvent(ctx, event); err == nil {
			change.Plan = plan
		} else if !errors.Is(err, catalog.ErrPlanNotFound) {
			return err
		}
		return s.update(ctx, log, event, change)

	case billing.EventSubscriptionCancelled:
		return s.update(ctx, log, event, Change{Status: StatusCancelled})

	case billing.EventPaymentFailed:
		return s.update(ctx, log, event, Change{Status: StatusPastDue})

	default:
		log.InfoContext(ctx, "webhook event ignored")
		return nil
	}
}

// capture settles an approved checkout and activates it once the provider
// reports the payment completed. Declined captures are acknowledged; the
// learner has to check out again.
func (s *Service) capture(ctx context.Context, log *slog.Logger, provider billing.Provider, event *billing.WebhookEvent) error {
	c, ok := provider.(billing.Capturer)
	if !ok {
		log.WarnContext(ctx, "approved checkout from provider without capture ignored")
		return nil
	}
	captured, err := c.CaptureCheckout(ctx, event)
	if errors.Is(err, billing.ErrCaptureUnsupported) {
		log.WarnContext(ctx, "approved checkout from provider without capture ignored")
		return nil
	}
	if errors.Is(err, billing.ErrCaptureDeclined) {
		s.metrics.Checkout(event.Provider, "declined")
		log.WarnContext(ctx, "checkout capture declined", logger.Error(err))
		return nil
	}
	if err != nil {
		return err
	}
	if !captured.Type.Activates() {
		log.InfoContext(ctx, "checkout capture pending", slog.String("status", captured.Status))
		return nil
	}
	s.metrics.Checkout(event.Provider, "captured")
	return s.activate(ctx, log, captured)
}

func (s *Service) activate(ctx context.Context, log *slog.Logger, event *billing.WebhookEvent) error {
	userID, err := uuid.Parse(event.UserID)
	if err != nil {
		return errors.Join(ErrInvalidWebhookUser, err)
	}
	plan, err := s.planForEvent(ctx, event)
	if err != nil {
		return fmt.Errorf("resolve plan for webhook: %w", err)
	}

	start := event.OccurredAt
	if start.IsZero() {
		start = s.now()
	}
	sub, err := s.store.Activate(ctx, Subscription{
		UserID:                 userID,
		PlanID:                 plan.ID,
		Provider:               event.Provider,
		ProviderSubscriptionID: event.SubscriptionID,
		ProviderCustomerID:     event.CustomerID,
		StartDate:              start,
		EndDate:                plan.EndDate(start),
	})
	if err != nil {
		return err
	}
	log.InfoContext(ctx, "subscription activated",
		logger.UserID(userID), logger.PlanID(plan.ID), logger.SubscriptionID(sub.ID), logger.Tier(string(plan.Tier)))
	return nil
}

func (s *Service) update(ctx context.Context, log *slog.Logger, event *billing.WebhookEvent, c Change) error {
	if c.Plan == nil && c.Status == "" {
		log.InfoContext(ctx, "webhook carries no changes")
		return nil
	}
	sub, err := s.store.Update(ctx, event.Provider, event.SubscriptionID, c)
	if errors.Is(err, ErrSubscriptionNotFound) {
		log.WarnContext(ctx, "webhook for unknown subscription ignored", slog.String("provider_subscription_id", event.SubscriptionID))
		return nil
	}
	if err != nil {
		return err
	}
	log.InfoContext(ctx, "subscription mirrored",
		logger.UserID(sub.UserID), logger.SubscriptionID(sub.ID), slog.String("status", string(sub.Status)))
	return nil
}

// planForEvent prefers the plan id echoed in custom data and falls back to
// the provider price id.
func (s *Service) planForEvent(ctx context.Context, event *billing.WebhookEvent) (*catalog.Plan, error) {
	if id, err := uuid.Parse(event.PlanID); err == nil {
		return s.plans.PlanByID(ctx, id)
	}
	if event.PriceID != "" {
		return s.plans.PlanByPaddlePrice(ctx, event.PriceID)
	}
	return nil, catalog.ErrPlanNotFound
}

// ExpireLapsed marks lapsed subscriptions as expired.
func (s *Service) ExpireLapsed(ctx context.Context) (int64, error) {
	n, err := s.store.ExpireLapsed(ctx, s.now())
	if err != nil {
		return 0, err
	}
	s.metrics.Expired(n)
	if n > 0 {
		s.log.InfoContext(ctx, "lapsed subscriptions expired", slog.Int64("count", n))
	}
	return n, nil
}
