package exam

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/learnpro/learnpro/pkg/analytics"
	"github.com/learnpro/learnpro/pkg/email"
	"github.com/learnpro/learnpro/pkg/email/templates"
	"github.com/learnpro/learnpro/pkg/logger"
	"github.com/learnpro/learnpro/pkg/metrics"
	"github.com/learnpro/learnpro/pkg/pg"
	"github.com/learnpro/learnpro/pkg/qrcode"
	"github.com/learnpro/learnpro/svc/access"
	"github.com/learnpro/learnpro/svc/catalog"
	"github.com/learnpro/learnpro/svc/enrollment"
)

// Config holds certificate settings.
type Config struct {
	VerifyBaseURL string `env:"CERTIFICATE_VERIFY_BASE_URL" envDefault:"https://learnpro.app/certificates"`
}

// VerifyURL is the public page for a certificate number.
func (c Config) VerifyURL(number string) string {
	return strings.TrimRight(c.VerifyBaseURL, "/") + "/" + number
}

// Store persists exams and certificates. *Repository implements it.
type Store interface {
	CreateExam(ctx context.Context, in ExamInput) (*Exam, error)
	GetExam(ctx context.Context, id uuid.UUID) (*Exam, error)
	ListByCourse(ctx context.Context, courseID uuid.UUID) ([]Exam, error)
	SaveAttempt(ctx context.Context, a Attempt) (*Attempt, error)
	BestPassedAttempt(ctx context.Context, userID, courseID uuid.UUID) (*Attempt, error)
	IssueCertificate(ctx context.Context, c Certificate) (*Certificate, error)
	CertificateByNumber(ctx context.Context, number string) (*Certificate, error)
}

type Courses interface {
	CourseSummary(ctx context.Context, id uuid.UUID) (*catalog.Course, error)
}

type Enrollments interface {
	Get(ctx context.Context, userID, courseID uuid.UUID) (*enrollment.Enrollment, error)
}

type Access interface {
	CanAccess(ctx context.Context, userID, courseID uuid.UUID) (*access.Decision, error)
}

// Service runs exams and issues certificates.
type Service struct {
	store       Store
	courses     Courses
	enrollments Enrollments
	access      Access
	cfg         Config
	mailer      email.Sender
	tracker     analytics.Tracker
	metrics     *metrics.Metrics
	log         *slog.Logger
	now         func() time.Time
}

type Option func(*Service)

// WithMailer enables certificate emails. Delivery failures are logged.
func WithMailer(m email.Sender) Option {
	return func(s *Service) { s.mailer = m }
}

func WithTracker(t analytics.Tracker) Option {
	return func(s *Service) {
		if t != nil {
			s.tracker = t
		}
	}
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

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(store Store, courses Courses, enrollments Enrollments, acc Access, cfg Config, opts ...Option) *Service {
	s := &Service{
		store:       store,
		courses:     courses,
		enrollments: enrollments,
		access:      acc,
		cfg:         cfg,
		tracker:     analytics.Noop{},
		log:         slog.Default(),
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("exam"))
	return s
}

// CreateExam stores a new exam for an existing course.
func (s *Service) CreateExam(ctx context.Context, in ExamInput) (*Exam, error) {
	for i, q := range in.Questions {
		if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
			return nil, fmt.Errorf("%w: question %d", ErrInvalidQuestion, i)
		}
	}
	if _, err := s.courses.CourseSummary(ctx, in.CourseID); err != nil {
		return nil, err
	}

	e, err := s.store.CreateExam(ctx, in)
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "exam created", logger.ExamID(e.ID), logger.CourseID(e.CourseID))
	return e, nil
}

// CourseExams lists the exams of a course.
func (s *Service) CourseExams(ctx context.Context, courseID uuid.UUID) ([]Exam, error) {
	return s.store.ListByCourse(ctx, courseID)
}

// GetExam returns the exam for a learner who may currently open its course.
func (s *Service) GetExam(ctx context.Context, userID, examID uuid.UUID) (*Exam, error) {
	e, err := s.store.GetExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	if _, err := s.gate(ctx, userID, e.CourseID); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) gate(ctx context.Context, userID, courseID uuid.UUID) (*enrollment.Enrollment, error) {
	en, err := s.enrollments.Get(ctx, userID, courseID)
	if err != nil {
		if errors.Is(err, enrollment.ErrNotFound) {
			return nil, ErrNotEnrolled
		}
		return nil, err
	}
	d, err := s.access.CanAccess(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	if !d.HasAccess {
		return nil, fmt.Errorf("%w: %s", ErrAccessRevoked, d.Reason)
	}
	return en, nil
}

// SubmitAttempt grades an attempt. A passing attempt on a completed course issues
// the learner's certificate for that course, once. A learner who passes before
// finishing the course gets the certificate from IssueForCompletedCourse when
// the last lesson is completed.
func (s *Service) SubmitAttempt(ctx context.Context, learner Learner, examID uuid.UUID, answers []int) (*Attempt, error) {
	e, err := s.store.GetExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	en, err := s.gate(ctx, learner.ID, e.CourseID)
	if err != nil {
		return nil, err
	}
	if len(answers) != len(e.Questions) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrAnswerCount, len(answers), len(e.Questions))
	}

	correct, score := Grade(e.Questions, answers)
	attempt, err := s.store.SaveAttempt(ctx, Attempt{
		ExamID:  e.ID,
		UserID:  learner.ID,
		Score:   score,
		Passed:  score >= e.PassingScore,
		Correct: correct,
		Total:   len(e.Questions),
		Answers: answers,
	})
	if err != nil {
		return nil, err
	}
	s.metrics.ExamAttempt(attempt.Passed)
	s.log.InfoContext(ctx, "exam submitted",
		logger.UserID(learner.ID), logger.ExamID(e.ID), slog.Int("score", score), slog.Bool("passed", attempt.Passed))
	s.track(ctx, analytics.NewEvent(analytics.EventExamSubmitted, learner.ID.String(), map[string]any{
		"exam_id":   e.ID.String(),
		"course_id": e.CourseID.String(),
		"score":     score,
		"passed":    attempt.Passed,
	}))

	if !attempt.Passed || !en.IsCompleted() {
		return attempt, nil
	}

	cert, err := s.issue(ctx, learner, e, score)
	if err != nil {
		return nil, err
	}
	attempt.Certificate = cert
	return attempt, nil
}

// IssueForCompletedCourse issues the certificate for a course the learner has
// just completed, based on their best passing attempt. It returns nil when
// the learner has not passed any exam of the course yet.
func (s *Service) IssueForCompletedCourse(ctx context.Context, learner Learner, courseID uuid.UUID) (*Certificate, error) {
	a, err := s.store.BestPassedAttempt(ctx, learner.ID, courseID)
	if errors.Is(err, ErrAttemptNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, learner, &Exam{ID: a.ExamID, CourseID: courseID}, a.Score)
}

const numberAttempts = 3

func (s *Service) issue(ctx context.Context, learner Learner, e *Exam, score int) (*Certificate, error) {
	examID := e.ID
	var (
		cert *Certificate
		err  error
	)
	for range numberAttempts {
		cert, err = s.store.IssueCertificate(ctx, Certificate{
			Number:   NewCertificateNumber(s.now()),
			UserID:   learner.ID,
			CourseID: e.CourseID,
			ExamID:   &examID,
			Score:    score,
		})
		if err == nil || !pg.IsDuplicateKeyError(err) {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	cert.VerifyURL = s.cfg.VerifyURL(cert.Number)
	if !cert.Created {
		return cert, nil
	}

	s.metrics.CertificateIssued()
	s.log.InfoContext(ctx, "certificate issued",
		logger.UserID(learner.ID), logger.CourseID(e.CourseID), slog.String("number", cert.Number))
	s.track(ctx, analytics.NewEvent(analytics.EventCertificateIssued, learner.ID.String(), map[string]any{
		"course_id": e.CourseID.String(),
		"number":    cert.Number,
	}))
	s.notify(ctx, learner, cert)
	return cert, nil
}

// notify is best-effort.
func (s *Service) notify(ctx context.Context, learner Learner, cert *Certificate) {
	if s.mailer == nil || learner.Email == "" {
		return
	}
	title := ""
	if course, err := s.courses.CourseSummary(ctx, cert.CourseID); err == nil {
		title = course.Title
	}
	body, err := templates.Render(ctx, templates.CertificateIssuedEmail(templates.CertificateIssued{
		LearnerName: learner.Name,
		CourseTitle: title,
		Number:      cert.Number,
		IssuedAt:    cert.IssuedAt,
		VerifyURL:   cert.VerifyURL,
	}))
	if err == nil {
		err = s.mailer.SendEmail(ctx, email.SendEmailParams{
			SendTo:   learner.Email,
			Subject:  "Your LearnPro certificate",
			BodyHTML: body,
			Tag:      "certificate",
			Metadata: map[string]string{"certificate": cert.Number},
		})
	}
	if err != nil {
		s.log.WarnContext(ctx, "failed to send certificate email", logger.UserID(learner.ID), logger.Error(err))
	}
}

// VerifyCertificate looks a certificate up by its public number.
func (s *Service) VerifyCertificate(ctx context.Context, number string) (*Certificate, error) {
	number = strings.ToUpper(strings.TrimSpace(number))
	if !ValidCertificateNumber(number) {
		return nil, ErrCertificateNotFound
	}
	c, err := s.store.CertificateByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	c.VerifyURL = s.cfg.VerifyURL(c.Number)
	return c, nil
}

// CertificateQR renders a PNG QR code of the certificate's verification URL.
func (s *Service) CertificateQR(ctx context.Context, number string, size int) ([]byte, error) {
	c, err := s.VerifyCertificate(ctx, number)
	if err != nil {
		return nil, err
	}
	return qrcode.PNG(c.VerifyURL, size)
}

func (s *Service) track(ctx context.Context, event analytics.Event) {
	if err := s.tracker.Track(ctx, event); err != nil {
		s.log.WarnContext(ctx, "failed to track analytics event", logger.Event(event.Name), logger.Error(err))
	}
}
