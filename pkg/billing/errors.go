package billing

import "errors"

var (
	ErrMissingAPIKey             = errors.New("billing provider API key is required")
	ErrMissingWebhookSecret      = errors.New("billing provider webhook secret is required")
	ErrMissingCredentials        = errors.New("billing provider client credentials are required")
	ErrInvalidEnvironment        = errors.New("invalid billing provider environment")
	ErrWebhookVerificationFailed = errors.New("webhook signature verification failed")
	ErrInvalidWebhookPayload     = errors.New("invalid webhook payload")
	ErrNoCheckoutURL             = errors.New("no checkout URL returned from provider")
	ErrNoPortalURL               = errors.New("no portal URL returned from provider")
	ErrPortalUnsupported         = errors.New("billing provider has no customer portal")
	ErrMissingCustomerID         = errors.New("provider customer ID not available")
	ErrMissingUserID             = errors.New("user ID is required")
	ErrMissingPriceID            = errors.New("price ID is required")
	ErrInvalidAmount             = errors.New("checkout amount must be positive")
	ErrInvalidCurrency           = errors.New("unknown currency code")
	ErrProviderRequest           = errors.New("billing provider request failed")
	ErrProviderUnavailable       = errors.New("billing provider temporarily unavailable")
	ErrUnknownProvider           = errors.New("unknown billing provider")
	ErrCaptureUnsupported        = errors.New("billing provider does not capture checkouts")
	ErrCaptureDeclined           = errors.New("billing provider declined the capture")
)
