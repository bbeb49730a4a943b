package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/learnpro/learnpro/pkg/analytics"
	"github.com/learnpro/learnpro/pkg/logger"
	"github.com/learnpro/learnpro/pkg/metrics"
	"github.com/learnpro/learnpro/svc/access"
	"github.com/learnpro/learnpro/svc/catalog"
	"github.com/learnpro/learnpro/svc/enrollment"
	"github.com/learnpro/learnpro/svc/exam"
)

// Store persists lesson progress. *Repository implements it.
type Store interface {
	Save(ctx context.Context, u Update) (*LessonProgress, *enrollment.Enrollment, error)
	ListByCourse(ctx context.Context, userID, courseID uuid.UUID) ([]LessonProgress, error)
}

type Enrollments interface {
	Get(ctx context.Context, userID, courseID uuid.UUID) (*enrollment.Enrollment, error)
}

type Lessons interface {
	Lesson(ctx context.Context, courseID, lessonID uuid.UUID) (*catalog.Lesson, error)
}

// Access re-checks the learner's subscription without side effects.
type Access interface {
	CanAccess(ctx context.Context, userID, courseID uuid.UUID) (*access.Decision, error)
}

// Certificates issues a certificate held back until the course is completed.
type Certificates interface {
	IssueForCompletedCourse(ctx context.Context, learner exam.Learner, courseID uuid.UUID) (*exam.Certificate, error)
}

// Service records lesson progress for enrolled learners.
type Service struct {
	store        Store
	enrollments  Enrollments
	lessons      Lessons
	access       Access
	certificates Certificates
	tracker     analytics.Tracker
	metrics     *metrics.Metrics
	log         *slog.Logger
}

type Option func(*Service)

func WithTracker(t analytics.Tracker) Option {
	return func(s *Service) {
		if t != nil {
			s.tracker = t
		}
	}
}

// WithCertificates issues pending certificates when a course is completed.
func WithCertificates(c Certificates) Option {
	return func(s *Service) { s.certificates = c }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

func NewService(store Store, enrollments Enrollments, lessons Lessons, acc Access, opts ...Option) *Service {
	s := &Service{
		store:       store,
		enrollments: enrollments,
		lessons:     lessons,
		access:      acc,
		tracker:     analytics.Noop{},
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("progress"))
	return s
}

// Record stores a progress report and returns the recomputed enrollment.
func (s *Service) Record(ctx context.Context, u Update) (*Result, error) {
	before, err := s.enrollments.Get(ctx, u.UserID, u.CourseID)
	if err != nil {
		if errors.Is(err, enrollment.ErrNotFound) {
			return nil, ErrNotEnrolled
		}
		return nil, err
	}

	decision, err := s.access.CanAccess(ctx, u.UserID, u.CourseID)
	if err != nil {
		return nil, err
	}
	if !decision.HasAccess {
		return nil, fmt.Errorf("%w: %s", ErrAccessRevoked, decision.Reason)
	}

	lesson, err := s.lessons.Lesson(ctx, u.CourseID, u.LessonID)
	if err != nil {
		if errors.Is(err, catalog.ErrLessonNotFound) {
			return nil, ErrLessonNotInCourse
		}
		return nil, err
	}
	if !lesson.IsPublished {
		return nil, ErrLessonNotInCourse
	}

	lp, e, err := s.store.Save(ctx, u)
	if err != nil {
		return nil, err
	}
	s.metrics.ProgressUpdated()

	s.track(ctx, analytics.NewEvent(analytics.EventLessonProgress, u.UserID.String(), map[string]any{
		"course_id":          u.CourseID.String(),
		"lesson_id":          u.LessonID.String(),
		"watch_time_seconds": lp.WatchTimeSeconds,
		"completed":          lp.Completed,
		"progress":           e.ProgressPercentage,
	}))
	res := &Result{Lesson: lp, Enrollment: e}
	if e.IsCompleted() && !before.IsCompleted() {
		s.log.InfoContext(ctx, "course completed", logger.UserID(u.UserID), logger.CourseID(u.CourseID))
		s.track(ctx, analytics.NewEvent(analytics.EventCourseCompleted, u.UserID.String(), map[string]any{
			"course_id": u.CourseID.String(),
		}))
		res.Certificate = s.issuePending(ctx, u)
	}

	return res, nil
}

// issuePending is best-effort; the progress update is already stored.
func (s *Service) issuePending(ctx context.Context, u Update) *exam.Certificate {
	if s.certificates == nil {
		return nil
	}
	cert, err := s.certificates.IssueForCompletedCourse(ctx, exam.Learner{ID: u.UserID, Email: u.Email}, u.CourseID)
	if err != nil {
		s.log.WarnContext(ctx, "failed to issue certificate on completion",
			logger.UserID(u.UserID), logger.CourseID(u.CourseID), logger.Error(err))
		return nil
	}
	return cert
}

// CourseProgress returns the enrollment and lesson rows of one course.
func (s *Service) CourseProgress(ctx context.Context, userID, courseID uuid.UUID) (*CourseProgress, error) {
	e, err := s.enrollments.Get(ctx, userID, courseID)
	if err != nil {
		if errors.Is(err, enrollment.ErrNotFound) {
			return nil, ErrNotEnrolled
		}
		return nil, err
	}
	lessons, err := s.store.ListByCourse(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	return &CourseProgress{Enrollment: e, Lessons: lessons}, nil
}

// track is best-effort.
func (s *Service) track(ctx context.Context, event analytics.Event) {
	if err := s.tracker.Track(ctx, event); err != nil {
		s.log.WarnContext(ctx, "failed to track analytics event",
			logger.Event(event.Name), logger.UserID(event.UserID), logger.Error(err))
	}
}
