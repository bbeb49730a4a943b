package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/learnpro/learnpro/pkg/analytics"
	"github.com/learnpro/learnpro/pkg/logger"
	"github.com/learnpro/learnpro/pkg/metrics"
	"github.com/learnpro/learnpro/svc/catalog"
	"github.com/learnpro/learnpro/svc/enrollment"
	"github.com/learnpro/learnpro/svc/subscription"
)

// Denial reasons.
const (
	ReasonNoSubscription = "no active subscription"
	ReasonCourseNotFound = "course not found"
	ReasonNotPublished   = "course not published"
)

// Subscriptions looks up the caller's active subscription. It returns
// subscription.ErrSubscriptionNotFound when there is none.
type Subscriptions interface {
	ActiveByUser(ctx context.Context, userID uuid.UUID) (*subscription.Subscription, error)
}

// Courses reads course rows without caching.
type Courses interface {
	CourseSummary(ctx context.Context, id uuid.UUID) (*catalog.Course, error)
}

type Enrollments interface {
	Upsert(ctx context.Context, userID, courseID uuid.UUID) (*enrollment.Enrollment, error)
}

// SubscriptionSummary is the part of the subscription returned to clients.
type SubscriptionSummary struct {
	ID       uuid.UUID    `json:"id"`
	PlanName string       `json:"plan_name"`
	Tier     catalog.Tier `json:"tier"`
	EndDate  time.Time    `json:"end_date"`
}

type CourseSummary struct {
	ID    uuid.UUID    `json:"id"`
	Title string       `json:"title"`
	Tier  catalog.Tier `json:"subscription_tier"`
}

// Decision is the outcome of an access check.
type Decision struct {
	HasAccess    bool                   `json:"hasAccess"`
	Reason       string                 `json:"reason,omitempty"`
	Subscription *SubscriptionSummary   `json:"subscription,omitempty"`
	Course       *CourseSummary         `json:"course,omitempty"`
	Enrollment   *enrollment.Enrollment `json:"enrollment,omitempty"`
}

// Service decides whether learners may open courses.
type Service struct {
	subs        Subscriptions
	courses     Courses
	enrollments Enrollments
	tracker     analytics.Tracker
	metrics     *metrics.Metrics
	log         *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTracker reports first-time enrollments. Tracking failures are logged.
func WithTracker(t analytics.Tracker) Option {
	return func(s *Service) {
		if t != nil {
			s.tracker = t
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

func NewService(subs Subscriptions, courses Courses, enrollments Enrollments, opts ...Option) *Service {
	s := &Service{
		subs:        subs,
		courses:     courses,
		enrollments: enrollments,
		tracker:     analytics.Noop{},
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("access"))
	return s
}

// Check evaluates access and enrolls the learner when it is granted.
// Repeated checks for an enrolled pair leave the enrollment as it is.
func (s *Service) Check(ctx context.Context, userID, courseID uuid.UUID) (*Decision, error) {
	d, err := s.decide(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	s.metrics.AccessDecision(d.HasAccess)

	if !d.HasAccess {
		s.log.DebugContext(ctx, "access denied",
			logger.UserID(userID), logger.CourseID(courseID), slog.String("reason", d.Reason))
		return d, nil
	}

	e, err := s.enrollments.Upsert(ctx, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("enroll: %w", err)
	}
	s.metrics.EnrollmentUpserted()
	d.Enrollment = e
	if e.Created {
		event := analytics.NewEvent(analytics.EventCourseEnrolled, userID.String(), map[string]any{
			"course_id": courseID.String(),
			"tier":      string(d.Subscription.Tier),
		})
		if err := s.tracker.Track(ctx, event); err != nil {
			s.log.WarnContext(ctx, "failed to track enrollment", logger.UserID(userID), logger.Error(err))
		}
	}
	s.log.InfoContext(ctx, "access granted",
		logger.UserID(userID), logger.CourseID(courseID), logger.Tier(string(d.Subscription.Tier)))
	return d, nil
}

// CanAccess runs the same evaluation as Check without enrolling.
func (s *Service) CanAccess(ctx context.Context, userID, courseID uuid.UUID) (*Decision, error) {
	return s.decide(ctx, userID, courseID)
}

func (s *Service) decide(ctx context.Context, userID, courseID uuid.UUID) (*Decision, error) {
	var (
		sub    *subscription.Subscription
		course *catalog.Course
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sub, err = s.subs.ActiveByUser(gctx, userID)
		if errors.Is(err, subscription.ErrSubscriptionNotFound) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		var err error
		course, err = s.courses.CourseSummary(gctx, courseID)
		if errors.Is(err, catalog.ErrCourseNotFound) {
			return nil
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if sub == nil {
		return &Decision{Reason: ReasonNoSubscription}, nil
	}

	d := &Decision{Subscription: &SubscriptionSummary{
		ID:       sub.ID,
		PlanName: sub.PlanName,
		Tier:     sub.Tier,
		EndDate:  sub.EndDate,
	}}

	if course == nil {
		d.Reason = ReasonCourseNotFound
		return d, nil
	}
	d.Course = &CourseSummary{ID: course.ID, Title: course.Title, Tier: course.Tier}
	if !course.IsPublished {
		d.Reason = ReasonNotPublished
		return d, nil
	}

	if !sub.Tier.Includes(course.Tier) {
		d.Reason = TierReason(sub.Tier, course.Tier)
		return d, nil
	}

	d.HasAccess = true
	return d, nil
}

// TierReason explains why a plan tier does not cover a course tier.
func TierReason(plan, course catalog.Tier) string {
	return fmt.Sprintf("Plan %s doesn't include %s courses", plan, course)
}
