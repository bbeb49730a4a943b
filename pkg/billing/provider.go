package billing

import (
	"context"
	"net/http"
	"time"
)

// Provider is a hosted payment provider. Implementations verify webhook
// signatures themselves and normalise provider events into WebhookEvent.
type Provider interface {
	Name() string

	// CreateCheckout opens a checkout session for a single plan purchase.
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)

	// PortalLink returns a short lived link to the provider's customer
	// portal. Providers without a portal return ErrPortalUnsupported.
	PortalLink(ctx context.Context, req PortalRequest) (*PortalLink, error)

	// ParseWebhook validates the signature carried in header and parses payload.
	ParseWebhook(ctx context.Context, payload []byte, header http.Header) (*WebhookEvent, error)
}

// Mode selects how the client completes a checkout.
type Mode string

const (
	// ModeHosted redirects the learner to the provider's checkout page.
	ModeHosted Mode = "hosted"
	// ModeEmbedded returns a token for an on-page checkout overlay.
	ModeEmbedded Mode = "embedded"
)

// CheckoutRequest contains data needed to create a checkout session.
type CheckoutRequest struct {
	UserID      string // our user id, echoed back in webhook custom data
	PlanID      string // our plan id, echoed back in webhook custom data
	PlanName    string
	PriceID     string // provider catalog price, required by Paddle
	AmountCents int64
	Currency    string
	Email       string
	SuccessURL  string
	CancelURL   string
	Mode        Mode
}

// CheckoutSession is the provider's answer to a checkout request. Hosted
// sessions carry URL; embedded sessions carry ClientToken.
type CheckoutSession struct {
	Provider    string    `json:"provider"`
	SessionID   string    `json:"session_id"`
	URL         string    `json:"url,omitempty"`
	ClientToken string    `json:"client_token,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// PortalRequest identifies the provider side customer and subscription.
type PortalRequest struct {
	CustomerID     string
	SubscriptionID string
}

// PortalLink represents a customer portal session.
type PortalLink struct {
	URL              string    `json:"url"`
	CancelURL        string    `json:"cancel_url,omitempty"`
	UpdatePaymentURL string    `json:"update_payment_url,omitempty"`
	ExpiresAt        time.Time `json:"expires_at"`
}

// WebhookEvent is a provider event normalised for subscription mirroring.
type WebhookEvent struct {
	ID             string // provider event id, used for de-duplication
	Provider       string
	Type           EventType
	ProviderEvent  string // original event name
	SubscriptionID string // provider subscription, order or transaction id
	CustomerID     string // provider customer id
	UserID         string // our user id from custom data
	PlanID         string // our plan id from custom data
	PriceID        string // provider price id
	Status         string
	OccurredAt     time.Time
}

// EventType is the normalised billing event type.
type EventType string

const (
	EventCheckoutApproved      EventType = "checkout_approved"
	EventCheckoutCompleted     EventType = "checkout_completed"
	EventSubscriptionCreated   EventType = "subscription_created"
	EventSubscriptionUpdated   EventType = "subscription_updated"
	EventSubscriptionCancelled EventType = "subscription_cancelled"
	EventPaymentFailed         EventType = "payment_failed"
)

// Capturer is implemented by providers whose approved checkouts move no
// money until the merchant captures them. CaptureCheckout takes an
// EventCheckoutApproved event and returns it as EventCheckoutCompleted once
// the capture settled. A capture still pending at the provider comes back
// with its type unchanged.
type Capturer interface {
	CaptureCheckout(ctx context.Context, event *WebhookEvent) (*WebhookEvent, error)
}

// Activates reports whether the event starts a new paid period.
func (t EventType) Activates() bool {
	return t == EventCheckoutCompleted || t == EventSubscriptionCreated
}
