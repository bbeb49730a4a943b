package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/text/currency"
)

// ProviderPayPal is the PayPal provider name used in routes and storage.
const ProviderPayPal = "paypal"

const (
	paypalSandboxURL = "https://api-m.sandbox.paypal.com"
	paypalLiveURL    = "https://api-m.paypal.com"
)

// PayPalConfig holds configuration for the PayPal REST integration.
type PayPalConfig struct {
	ClientID     string        `env:"PAYPAL_CLIENT_ID"`
	ClientSecret string        `env:"PAYPAL_CLIENT_SECRET"`
	WebhookID    string        `env:"PAYPAL_WEBHOOK_ID"`
	Environment  string        `env:"PAYPAL_ENVIRONMENT" envDefault:"sandbox"`
	BaseURL      string        `env:"PAYPAL_BASE_URL"`
	Timeout      time.Duration `env:"PAYPAL_TIMEOUT" envDefault:"10s"`
}

// Enabled reports whether PayPal credentials are configured.
func (c PayPalConfig) Enabled() bool { return c.ClientID != "" }

// PayPalProvider implements Provider with the PayPal Orders v2 API. Requests
// are authenticated with an OAuth2 client credentials token that the
// transport caches and refreshes.
type PayPalProvider struct {
	client    *resty.Client
	webhookID string
}

// NewPayPalProvider creates a PayPal billing provider.
func NewPayPalProvider(cfg PayPalConfig) (*PayPalProvider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrMissingCredentials
	}
	if cfg.WebhookID == "" {
		return nil, ErrMissingWebhookSecret
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		switch strings.ToLower(cfg.Environment) {
		case "sandbox", "":
			baseURL = paypalSandboxURL
		case "live", "production":
			baseURL = paypalLiveURL
		default:
			return nil, fmt.Errorf("%w: %s", ErrInvalidEnvironment, cfg.Environment)
		}
	}
	baseURL = strings.TrimRight(baseURL, "/")

	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     baseURL + "/v1/oauth2/token",
	}
	httpClient := cc.Client(context.Background())
	if cfg.Timeout > 0 {
		httpClient.Timeout = cfg.Timeout
	}

	client := resty.NewWithClient(httpClient).
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &PayPalProvider{client: client, webhookID: cfg.WebhookID}, nil
}

func (p *PayPalProvider) Name() string { return ProviderPayPal }

type paypalLink struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

type paypalOrder struct {
	ID     string       `json:"id"`
	Status string       `json:"status"`
	Links  []paypalLink `json:"links"`
	Payer  struct {
		PayerID string `json:"payer_id"`
	} `json:"payer"`
}

type paypalError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Details []struct {
		Issue string `json:"issue"`
	} `json:"details"`
}

func (e paypalError) hasIssue(issue string) bool {
	for _, d := range e.Details {
		if d.Issue == issue {
			return true
		}
	}
	return false
}

// CreateCheckout creates a CAPTURE order for the plan price. The learner and
// plan are carried in the purchase unit's custom_id.
func (p *PayPalProvider) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if req.UserID == "" {
		return nil, ErrMissingUserID
	}
	if req.AmountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	value, err := formatAmount(req.AmountCents, req.Currency)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"reference_id": req.PlanID,
			"custom_id":    encodeCustomID(req.UserID, req.PlanID),
			"description":  req.PlanName,
			"amount": map[string]string{
				"currency_code": strings.ToUpper(req.Currency),
				"value":         value,
			},
		}},
		"application_context": map[string]string{
			"return_url":  req.SuccessURL,
			"cancel_url":  req.CancelURL,
			"user_action": "PAY_NOW",
		},
	}

	var order paypalOrder
	var apiErr paypalError
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&order).
		SetError(&apiErr).
		Post("/v2/checkout/orders")
	if err != nil {
		return nil, errors.Join(ErrProviderRequest, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: create order: %d %s", ErrProviderRequest, resp.StatusCode(), apiErr.Message)
	}

	session := &CheckoutSession{
		Provider:  ProviderPayPal,
		SessionID: order.ID,
		ExpiresAt: time.Now().Add(3 * time.Hour),
	}
	if req.Mode == ModeEmbedded {
		session.ClientToken = order.ID
		return session, nil
	}
	for _, l := range order.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			session.URL = l.Href
			break
		}
	}
	if session.URL == "" {
		return nil, ErrNoCheckoutURL
	}
	return session, nil
}

// CaptureCheckout captures the order behind an approved checkout. The
// webhook event id is sent as PayPal-Request-Id, so a redelivered approval
// replays the first capture instead of charging twice.
func (p *PayPalProvider) CaptureCheckout(ctx context.Context, event *WebhookEvent) (*WebhookEvent, error) {
	if event == nil || event.SubscriptionID == "" {
		return nil, ErrInvalidWebhookPayload
	}

	var order paypalOrder
	var apiErr paypalError
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("PayPal-Request-Id", "capture-"+event.ID).
		SetBody(map[string]any{}).
		SetResult(&order).
		SetError(&apiErr).
		Post("/v2/checkout/orders/" + url.PathEscape(event.SubscriptionID) + "/capture")
	if err != nil {
		return nil, errors.Join(ErrProviderRequest, err)
	}

	switch {
	case resp.StatusCode() == http.StatusUnprocessableEntity && apiErr.hasIssue("ORDER_ALREADY_CAPTURED"):
		order.Status = "COMPLETED"
	case resp.StatusCode() == http.StatusUnprocessableEntity:
		return nil, fmt.Errorf("%w: order %s: %s", ErrCaptureDeclined, event.SubscriptionID, apiErr.Message)
	case resp.IsError():
		return nil, fmt.Errorf("%w: capture order: %d %s", ErrProviderRequest, resp.StatusCode(), apiErr.Message)
	}

	captured := *event
	captured.Status = order.Status
	if order.Payer.PayerID != "" {
		captured.CustomerID = order.Payer.PayerID
	}
	if order.Status == "COMPLETED" {
		captured.Type = EventCheckoutCompleted
	}
	return &captured, nil
}

// PortalLink is not available for PayPal one-off orders.
func (p *PayPalProvider) PortalLink(context.Context, PortalRequest) (*PortalLink, error) {
	return nil, ErrPortalUnsupported
}

type paypalEvent struct {
	ID         string         `json:"id"`
	EventType  string         `json:"event_type"`
	CreateTime time.Time      `json:"create_time"`
	Resource   paypalResource `json:"resource"`
}

type paypalResource struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	CustomID      string `json:"custom_id"`
	PlanID        string `json:"plan_id"`
	PurchaseUnits []struct {
		ReferenceID string `json:"reference_id"`
		CustomID    string `json:"custom_id"`
	} `json:"purchase_units"`
	Subscriber struct {
		PayerID string `json:"payer_id"`
	} `json:"subscriber"`
	Payer struct {
		PayerID string `json:"payer_id"`
	} `json:"payer"`
	SupplementaryData struct {
		RelatedIDs struct {
			OrderID string `json:"order_id"`
		} `json:"related_ids"`
	} `json:"supplementary_data"`
}

// ParseWebhook asks PayPal to verify the transmission headers against the
// configured webhook id, then parses the event.
func (p *PayPalProvider) ParseWebhook(ctx context.Context, payload []byte, header http.Header) (*WebhookEvent, error) {
	if !json.Valid(payload) {
		return nil, ErrInvalidWebhookPayload
	}

	verify := map[string]any{
		"auth_algo":         header.Get("PAYPAL-AUTH-ALGO"),
		"cert_url":          header.Get("PAYPAL-CERT-URL"),
		"transmission_id":   header.Get("PAYPAL-TRANSMISSION-ID"),
		"transmission_sig":  header.Get("PAYPAL-TRANSMISSION-SIG"),
		"transmission_time": header.Get("PAYPAL-TRANSMISSION-TIME"),
		"webhook_id":        p.webhookID,
		"webhook_event":     json.RawMessage(payload),
	}

	var result struct {
		VerificationStatus string `json:"verification_status"`
	}
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(verify).
		SetResult(&result).
		Post("/v1/notifications/verify-webhook-signature")
	if err != nil {
		return nil, errors.Join(ErrProviderRequest, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: verify webhook: %d", ErrProviderRequest, resp.StatusCode())
	}
	if result.VerificationStatus != "SUCCESS" {
		return nil, ErrWebhookVerificationFailed
	}

	return parsePayPalEvent(payload)
}

func parsePayPalEvent(payload []byte) (*WebhookEvent, error) {
	var ev paypalEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, errors.Join(ErrInvalidWebhookPayload, err)
	}
	if ev.ID == "" || ev.EventType == "" {
		return nil, ErrInvalidWebhookPayload
	}

	res := ev.Resource
	event := &WebhookEvent{
		ID:             ev.ID,
		Provider:       ProviderPayPal,
		Type:           mapPayPalEventType(ev.EventType),
		ProviderEvent:  ev.EventType,
		SubscriptionID: res.ID,
		Status:         res.Status,
		PriceID:        res.PlanID,
		OccurredAt:     ev.CreateTime,
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	customID := res.CustomID
	if len(res.PurchaseUnits) > 0 {
		if customID == "" {
			customID = res.PurchaseUnits[0].CustomID
		}
		event.PlanID = res.PurchaseUnits[0].ReferenceID
	}
	if customID != "" {
		userID, planID := decodeCustomID(customID)
		event.UserID = userID
		if planID != "" {
			event.PlanID = planID
		}
	}
	if id := res.SupplementaryData.RelatedIDs.OrderID; id != "" {
		event.SubscriptionID = id
	}

	event.CustomerID = res.Subscriber.PayerID
	if event.CustomerID == "" {
		event.CustomerID = res.Payer.PayerID
	}

	return event, nil
}

func mapPayPalEventType(name string) EventType {
	switch name {
	case "CHECKOUT.ORDER.APPROVED":
		return EventCheckoutApproved
	case "CHECKOUT.ORDER.COMPLETED", "PAYMENT.CAPTURE.COMPLETED":
		return EventCheckoutCompleted
	case "BILLING.SUBSCRIPTION.CREATED", "BILLING.SUBSCRIPTION.ACTIVATED":
		return EventSubscriptionCreated
	case "BILLING.SUBSCRIPTION.UPDATED", "BILLING.SUBSCRIPTION.RE-ACTIVATED":
		return EventSubscriptionUpdated
	case "BILLING.SUBSCRIPTION.CANCELLED":
		return EventSubscriptionCancelled
	case "BILLING.SUBSCRIPTION.PAYMENT.FAILED", "PAYMENT.CAPTURE.DENIED":
		return EventPaymentFailed
	default:
		return EventType(name)
	}
}

// custom_id is limited to 127 characters; two UUIDs and a separator fit.
func encodeCustomID(userID, planID string) string {
	if planID == "" {
		return userID
	}
	return userID + ":" + planID
}

func decodeCustomID(v string) (userID, planID string) {
	userID, planID, _ = strings.Cut(v, ":")
	return userID, planID
}

// formatAmount renders hundredths of a currency unit with as many decimals
// as the currency uses. Zero-decimal currencies round to whole units.
func formatAmount(cents int64, code string) (string, error) {
	unit, err := currency.ParseISO(strings.ToUpper(code))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	whole, frac := cents/100, cents%100
	scale, _ := currency.Standard.Rounding(unit)
	if scale == 0 {
		if frac >= 50 {
			whole++
		}
		return strconv.FormatInt(whole, 10), nil
	}
	value := fmt.Sprintf("%d.%02d", whole, frac)
	if scale > 2 {
		value += strings.Repeat("0", scale-2)
	}
	return value, nil
}
