// Package billing integrates hosted payment providers.
//
// Two providers are available: Paddle, through the official SDK, and PayPal,
// through its REST API with an OAuth2 client credentials token. Both
// implement Provider, which creates checkout sessions, opens customer portal
// links and turns signed webhooks into normalised WebhookEvent values.
//
// Wrap providers with WithBreaker so a failing provider is short-circuited
// instead of tying up request goroutines:
//
//	paddle, err := billing.NewPaddleProvider(cfg)
//	if err != nil { ... }
//	registry := billing.NewRegistry(billing.WithBreaker(paddle, breakerCfg, log))
//
// Payment data never touches this service; checkout and card handling happen
// on the provider's pages.
package billing
