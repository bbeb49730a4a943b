// Package subscription sells plans and mirrors the billing provider's view
// of each learner's subscription.
//
// CreateCheckout resolves a plan by name or duration, refuses purchases the
// learner's current tier already covers, activates free plans directly and
// hands paid plans to a billing.Provider. HandleWebhook verifies provider
// events, drops duplicate deliveries and writes the resulting state:
//
//	checkout completed, subscription created  -> active, other actives cancelled
//	subscription updated                       -> plan and status mirrored
//	subscription cancelled                     -> cancelled
//	payment failed                             -> past_due
//
// There is no local state machine; the provider is the source of truth.
// Sweeper expires subscriptions whose end date passed.
package subscription
