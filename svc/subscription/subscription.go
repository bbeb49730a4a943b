package subscription

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/learnpro/learnpro/svc/catalog"
)

// Status mirrors the provider's view of a subscription.
type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
	StatusPastDue   Status = "past_due"
)

// Subscription is a learner's paid (or free) period on a plan.
// At most one subscription per user is active at a time.
type Subscription struct {
	ID                     uuid.UUID    `json:"id"`
	UserID                 uuid.UUID    `json:"user_id"`
	PlanID                 uuid.UUID    `json:"plan_id"`
	PlanName               string       `json:"plan_name,omitempty"`
	Tier                   catalog.Tier `json:"tier,omitempty"`
	Status                 Status       `json:"status"`
	Provider               string       `json:"provider,omitempty"`
	ProviderSubscriptionID string       `json:"-"`
	ProviderCustomerID     string       `json:"-"`
	StartDate              time.Time    `json:"start_date"`
	EndDate                time.Time    `json:"end_date"`
	CancelledAt            *time.Time   `json:"cancelled_at,omitempty"`
	CreatedAt              time.Time    `json:"created_at"`
	UpdatedAt              time.Time    `json:"updated_at"`
}

// ActiveAt reports whether s grants access at t.
func (s *Subscription) ActiveAt(t time.Time) bool {
	return s.Status == StatusActive && !s.EndDate.Before(t)
}

// IsFree reports whether s was activated without a payment provider.
func (s *Subscription) IsFree() bool {
	return s.ProviderSubscriptionID == ""
}

// Change is a partial update mirrored from a provider event. Zero fields
// are left alone.
type Change struct {
	Plan   *catalog.Plan
	Status Status
}

// mirrorStatus maps provider status strings onto ours. Unknown values
// return "" and leave the stored status alone.
func mirrorStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active", "trialing", "approved", "completed":
		return StatusActive
	case "canceled", "cancelled":
		return StatusCancelled
	case "past_due", "paused", "suspended":
		return StatusPastDue
	case "expired":
		return StatusExpired
	default:
		return ""
	}
}
