package learning

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/learnpro/learnpro/handler"
	"github.com/learnpro/learnpro/pkg/billing"
	"github.com/learnpro/learnpro/pkg/binder"
	"github.com/learnpro/learnpro/svc/subscription"
)

// maxWebhookBody caps provider payloads.
const maxWebhookBody = 1 << 20

// BillingService sells plans and mirrors provider webhooks.
// *subscription.Service implements it.
type BillingService interface {
	Current(ctx context.Context, userID uuid.UUID) (*subscription.Subscription, error)
	CreateCheckout(ctx context.Context, userID uuid.UUID, p subscription.CheckoutParams) (*subscription.Checkout, error)
	PortalLink(ctx context.Context, userID uuid.UUID) (*billing.PortalLink, error)
	HandleWebhook(ctx context.Context, provider string, payload []byte, header http.Header) error
}

type billingRoutes struct {
	*module
	svc BillingService
}

func newBillingRoutes(m *module, svc BillingService) *billingRoutes {
	return &billingRoutes{module: m, svc: svc}
}

func (b *billingRoutes) Handle() http.Handler {
	r := chi.NewRouter()
	r.Get("/subscription", wrap(b.module, b.current))
	r.Get("/portal", wrap(b.module, b.portal))
	return r
}

func (b *billingRoutes) current(ctx handler.Context, _ struct{}) handler.Response {
	userID, _, err := caller(ctx)
	if err != nil {
		return b.fail(ctx, err)
	}
	sub, err := b.svc.Current(ctx, userID)
	if err != nil {
		return b.fail(ctx, err)
	}
	return handler.JSON(sub)
}

func (b *billingRoutes) portal(ctx handler.Context, _ struct{}) handler.Response {
	userID, _, err := caller(ctx)
	if err != nil {
		return b.fail(ctx, err)
	}
	link, err := b.svc.PortalLink(ctx, userID)
	if err != nil {
		return b.fail(ctx, err)
	}
	return handler.JSON(link)
}

func checkoutHandler(m *module, svc BillingService) http.HandlerFunc {
	return wrap(m, func(ctx handler.Context, req subscription.CheckoutParams) handler.Response {
		userID, claims, err := caller(ctx)
		if err != nil {
			return m.fail(ctx, err)
		}
		if req.Email == "" {
			req.Email = claims.Email
		}
		if err := m.validate.Struct(req); err != nil {
			return m.fail(ctx, err)
		}

		checkout, err := svc.CreateCheckout(ctx, userID, req)
		if err != nil {
			return m.fail(ctx, err)
		}
		status := http.StatusOK
		if checkout.Activated {
			status = http.StatusCreated
		}
		return handler.JSON(checkout, handler.WithJSONStatus(status))
	}, binder.JSON())
}

type webhookRoutes struct {
	*module
	svc BillingService
}

func newWebhookRoutes(m *module, svc BillingService) *webhookRoutes {
	return &webhookRoutes{module: m, svc: svc}
}

func (h *webhookRoutes) Handle() http.Handler {
	r := chi.NewRouter()
	r.Post("/{provider}", wrap(h.module, h.receive, binder.Path(chi.URLParam)))
	return r
}

type webhookRequest struct {
	Provider string `path:"provider"`
}

// receive hands the raw body to the provider for signature verification.
// Ignored and duplicate events are still acknowledged with 200.
func (h *webhookRoutes) receive(ctx handler.Context, req webhookRequest) handler.Response {
	r := ctx.Request()
	payload, err := io.ReadAll(http.MaxBytesReader(ctx.ResponseWriter(), r.Body, maxWebhookBody))
	if err != nil {
		return h.fail(ctx, handler.ErrBadRequest.WithMessage("unreadable webhook body"))
	}
	if err := h.svc.HandleWebhook(ctx, req.Provider, payload, r.Header); err != nil {
		return h.fail(ctx, err)
	}
	return handler.JSON(map[string]bool{"received": true})
}
