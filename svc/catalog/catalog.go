package catalog

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Course is a unit of sale gated by a subscription tier.
type Course struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Tier        Tier      `json:"subscription_tier"`
	IsPublished bool      `json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Lessons     []Lesson  `json:"lessons,omitempty"`
}

// Lesson belongs to one course. Only published lessons count towards progress.
type Lesson struct {
	ID              uuid.UUID `json:"id"`
	CourseID        uuid.UUID `json:"course_id"`
	Title           string    `json:"title"`
	Position        int       `json:"position"`
	DurationSeconds int       `json:"duration_seconds"`
	IsPublished     bool      `json:"is_published"`
}

// Plan is a purchasable subscription plan.
type Plan struct {
	ID             uuid.UUID `json:"id" yaml:"-"`
	Name           string    `json:"name" yaml:"name"`
	Tier           Tier      `json:"tier" yaml:"tier"`
	Price          float64   `json:"price" yaml:"price"`
	Currency       string    `json:"currency" yaml:"currency"`
	DurationMonths int       `json:"duration_months" yaml:"duration_months"`
	PaddlePriceID  string    `json:"-" yaml:"paddle_price_id"`
	Public         bool      `json:"-" yaml:"public"`
	PriceLabel     string    `json:"price_label,omitempty" yaml:"-"`
}

// lifetimeYears is how far a zero-month plan reaches.
const lifetimeYears = 100

// AmountCents converts the decimal price into integer minor units.
func (p Plan) AmountCents() int64 {
	return int64(math.Round(p.Price * 100))
}

func (p Plan) IsFree() bool {
	return p.AmountCents() == 0
}

// TermMonths is the length of one paid period. Plans with zero months
// count as lifetime.
func (p Plan) TermMonths() int {
	if p.DurationMonths <= 0 {
		return lifetimeYears * 12
	}
	return p.DurationMonths
}

// EndDate returns when a subscription to p that starts at start lapses.
func (p Plan) EndDate(start time.Time) time.Time {
	return start.AddDate(0, p.TermMonths(), 0)
}

// CourseFilter narrows a course listing.
type CourseFilter struct {
	Tier               Tier
	Query              string
	Limit              int
	Offset             int
	IncludeUnpublished bool
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

func (f CourseFilter) normalized() CourseFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// CourseInput carries the fields of a new course.
type CourseInput struct {
	Title       string `json:"title" validate:"required,notblank,max=200"`
	Description string `json:"description" validate:"max=5000"`
	Tier        Tier   `json:"subscription_tier" validate:"required,tier"`
	IsPublished bool   `json:"is_published"`
}

// CourseUpdate carries optional course changes; nil fields are left alone.
type CourseUpdate struct {
	Title       *string `json:"title" validate:"omitempty,notblank,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	Tier        *Tier   `json:"subscription_tier" validate:"omitempty,tier"`
	IsPublished *bool   `json:"is_published"`
}

func (u CourseUpdate) empty() bool {
	return u.Title == nil && u.Description == nil && u.Tier == nil && u.IsPublished == nil
}

// LessonInput carries the fields of a new lesson.
type LessonInput struct {
	CourseID        uuid.UUID `json:"-"`
	Title           string    `json:"title" validate:"required,notblank,max=200"`
	Position        int       `json:"position" validate:"gte=0"`
	DurationSeconds int       `json:"duration_seconds" validate:"gte=0"`
	IsPublished     *bool     `json:"is_published"`
}
