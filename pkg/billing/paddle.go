package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
)

// ProviderPaddle is the Paddle provider name used in routes and storage.
const ProviderPaddle = "paddle"

// PaddleConfig holds configuration for the Paddle billing provider.
type PaddleConfig struct {
	APIKey        string `env:"PADDLE_API_KEY"`
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET"`
	Environment   string `env:"PADDLE_ENVIRONMENT" envDefault:"sandbox"`
}

// Enabled reports whether Paddle credentials are configured.
func (c PaddleConfig) Enabled() bool { return c.APIKey != "" }

// PaddleProvider implements Provider on top of the official Paddle SDK.
type PaddleProvider struct {
	client   *paddle.SDK
	verifier *paddle.WebhookVerifier
}

// NewPaddleProvider creates a Paddle billing provider.
func NewPaddleProvider(cfg PaddleConfig) (*PaddleProvider, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}

	var (
		client *paddle.SDK
		err    error
	)
	switch strings.ToLower(cfg.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(cfg.APIKey)
	case "production", "":
		client, err = paddle.New(cfg.APIKey)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidEnvironment, cfg.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("create paddle client: %w", err)
	}

	return &PaddleProvider{
		client:   client,
		verifier: paddle.NewWebhookVerifier(cfg.WebhookSecret),
	}, nil
}

func (p *PaddleProvider) Name() string { return ProviderPaddle }

// CreateCheckout creates a Paddle transaction for the plan's catalog price.
// Hosted mode returns the transaction's checkout URL; embedded mode returns
// the transaction id for Paddle.js.
func (p *PaddleProvider) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if req.PriceID == "" {
		return nil, ErrMissingPriceID
	}
	if req.UserID == "" {
		return nil, ErrMissingUserID
	}

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  req.PriceID,
		Quantity: 1,
	})

	txReq := &paddle.CreateTransactionRequest{
		Items: []paddle.CreateTransactionItems{*item},
		CustomData: paddle.CustomData{
			"user_id": req.UserID,
			"plan_id": req.PlanID,
		},
	}
	if req.Email != "" {
		txReq.CustomData["email"] = req.Email
	}
	if req.SuccessURL != "" {
		txReq.Checkout = &paddle.TransactionCheckout{URL: paddle.PtrTo(req.SuccessURL)}
	}

	tx, err := p.client.TransactionsClient.CreateTransaction(ctx, txReq)
	if err != nil {
		return nil, errors.Join(ErrProviderRequest, err)
	}

	session := &CheckoutSession{
		Provider:  ProviderPaddle,
		SessionID: tx.ID,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
	if req.Mode == ModeEmbedded {
		session.ClientToken = tx.ID
		return session, nil
	}
	if tx.Checkout == nil || tx.Checkout.URL == nil || *tx.Checkout.URL == "" {
		return nil, ErrNoCheckoutURL
	}
	session.URL = *tx.Checkout.URL
	return session, nil
}

// PortalLink opens a Paddle customer portal session scoped to one subscription.
func (p *PaddleProvider) PortalLink(ctx context.Context, req PortalRequest) (*PortalLink, error) {
	if req.CustomerID == "" {
		return nil, ErrMissingCustomerID
	}

	portalReq := &paddle.CreateCustomerPortalSessionRequest{CustomerID: req.CustomerID}
	if req.SubscriptionID != "" {
		portalReq.SubscriptionIDs = []string{req.SubscriptionID}
	}

	session, err := p.client.CustomerPortalSessionsClient.CreateCustomerPortalSession(ctx, portalReq)
	if err != nil {
		return nil, errors.Join(ErrProviderRequest, err)
	}

	link := &PortalLink{
		URL:       session.URLs.General.Overview,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
	for _, sub := range session.URLs.Subscriptions {
		if sub.ID == req.SubscriptionID {
			link.CancelURL = sub.CancelSubscription
			link.UpdatePaymentURL = sub.UpdateSubscriptionPaymentMethod
			break
		}
	}
	if link.URL == "" {
		return nil, ErrNoPortalURL
	}
	return link, nil
}

type paddleEnvelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       paddleEventData `json:"data"`
}

type paddleEventData struct {
	ID             string            `json:"id"`
	Status         string            `json:"status"`
	CustomerID     string            `json:"customer_id"`
	SubscriptionID string            `json:"subscription_id"`
	CustomData     map[string]any    `json:"custom_data"`
	Items          []paddleEventItem `json:"items"`
}

type paddleEventItem struct {
	PriceID string `json:"price_id"`
	Price   struct {
		ID string `json:"id"`
	} `json:"price"`
}

// ParseWebhook verifies the Paddle-Signature header and parses the event.
func (p *PaddleProvider) ParseWebhook(ctx context.Context, payload []byte, header http.Header) (*WebhookEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhook", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build verification request: %w", err)
	}
	req.Header.Set("Paddle-Signature", header.Get("Paddle-Signature"))

	valid, err := p.verifier.Verify(req)
	if err != nil {
		return nil, errors.Join(ErrWebhookVerificationFailed, err)
	}
	if !valid {
		return nil, ErrWebhookVerificationFailed
	}

	return parsePaddleEvent(payload)
}

func parsePaddleEvent(payload []byte) (*WebhookEvent, error) {
	var env paddleEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, errors.Join(ErrInvalidWebhookPayload, err)
	}
	if env.EventID == "" || env.EventType == "" {
		return nil, ErrInvalidWebhookPayload
	}

	event := &WebhookEvent{
		ID:            env.EventID,
		Provider:      ProviderPaddle,
		Type:          mapPaddleEventType(env.EventType),
		ProviderEvent: env.EventType,
		CustomerID:    env.Data.CustomerID,
		Status:        env.Data.Status,
		OccurredAt:    env.OccurredAt,
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	event.SubscriptionID = env.Data.ID
	if strings.HasPrefix(env.EventType, "transaction.") && env.Data.SubscriptionID != "" {
		event.SubscriptionID = env.Data.SubscriptionID
	}
	if v, ok := env.Data.CustomData["user_id"].(string); ok {
		event.UserID = v
	}
	if v, ok := env.Data.CustomData["plan_id"].(string); ok {
		event.PlanID = v
	}
	if len(env.Data.Items) > 0 {
		event.PriceID = env.Data.Items[0].Price.ID
		if event.PriceID == "" {
			event.PriceID = env.Data.Items[0].PriceID
		}
	}

	return event, nil
}

func mapPaddleEventType(name string) EventType {
	switch name {
	case "transaction.completed":
		return EventCheckoutCompleted
	case "subscription.created", "subscription.activated":
		return EventSubscriptionCreated
	case "subscription.updated", "subscription.resumed":
		return EventSubscriptionUpdated
	case "subscription.canceled":
		return EventSubscriptionCancelled
	case "transaction.payment_failed":
		return EventPaymentFailed
	default:
		return EventType(name)
	}
}
