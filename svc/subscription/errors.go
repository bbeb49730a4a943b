package subscription

import "errors"

var (
	ErrSubscriptionNotFound      = errors.New("subscription not found")
	ErrSubscriptionAlreadyExists = errors.New("subscription already exists")
	ErrPlanRequired              = errors.New("plan name or duration is required")
	ErrInvalidWebhookUser        = errors.New("webhook carries no valid user id")
	ErrNoPortal                  = errors.New("no customer portal for this subscription")
	ErrFailedToSaveSubscription  = errors.New("failed to save subscription")
)
