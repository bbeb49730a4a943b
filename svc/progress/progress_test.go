package progress_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/learnpro/learnpro/pkg/analytics"
	"github.com/learnpro/learnpro/svc/access"
	"github.com/learnpro/learnpro/svc/catalog"
	"github.com/learnpro/learnpro/svc/enrollment"
	"github.com/learnpro/learnpro/svc/exam"
	"github.com/learnpro/learnpro/svc/progress"
)

func TestPercentage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		completed, total, want int
	}{
		{0, 0, 0},
		{3, 0, 0},
		{0, 7, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13},
		{7, 7, 100},
		{9, 7, 100},
		{-1, 4, 0},
	}
	for _, tt := range tests {
		got := progress.Percentage(tt.completed, tt.total)
		assert.Equal(t, tt.want, got, "%d/%d", tt.completed, tt.total)
		assert.GreaterOrEqual(t, got, 0)
		assert.LessOrEqual(t, got, 100)
	}
}

type mockStore struct{ mock.Mock }

func (m *mockStore) Save(ctx context.Context, u progress.Update) (*progress.LessonProgress, *enrollment.Enrollment, error) {
	args := m.Called(ctx, u)
	lp, _ := args.Get(0).(*progress.LessonProgress)
	e, _ := args.Get(1).(*enrollment.Enrollment)
	return lp, e, args.Error(2)
}

func (m *mockStore) ListByCourse(ctx context.Context, userID, courseID uuid.UUID) ([]progress.LessonProgress, error) {
	args := m.Called(ctx, userID, courseID)
	list, _ := args.Get(0).([]progress.LessonProgress)
	return list, args.Error(1)
}

type mockEnrollments struct{ mock.Mock }

func (m *mockEnrollments) Get(ctx context.Context, userID, courseID uuid.UUID) (*enrollment.Enrollment, error) {
	args := m.Called(ctx, userID, courseID)
	e, _ := args.Get(0).(*enrollment.Enrollment)
	return e, args.Error(1)
}

type mockLessons struct{ mock.Mock }

func (m *mockLessons) Lesson(ctx context.Context, courseID, lessonID uuid.UUID) (*catalog.Lesson, error) {
	args := m.Called(ctx, courseID, lessonID)
	l, _ := args.Get(0).(*catalog.Lesson)
	return l, args.Error(1)
}

type mockAccess struct{ mock.Mock }

func (m *mockAccess) CanAccess(ctx context.Context, userID, courseID uuid.UUID) (*access.Decision, error) {
	args := m.Called(ctx, userID, courseID)
	d, _ := args.Get(0).(*access.Decision)
	return d, args.Error(1)
}

type mockTracker struct{ mock.Mock }

func (m *mockTracker) Track(ctx context.Context, e analytics.Event) error {
	return m.Called(ctx, e).Error(0)
}

type mockCertificates struct{ mock.Mock }

func (m *mockCertificates) IssueForCompletedCourse(ctx context.Context, learner exam.Learner, courseID uuid.UUID) (*exam.Certificate, error) {
	args := m.Called(ctx, learner, courseID)
	c, _ := args.Get(0).(*exam.Certificate)
	return c, args.Error(1)
}

type fixture struct {
	store        *mockStore
	enrollments  *mockEnrollments
	lessons      *mockLessons
	access       *mockAccess
	certificates *mockCertificates
	tracker      *mockTracker
	svc          *progress.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:        &mockStore{},
		enrollments:  &mockEnrollments{},
		lessons:      &mockLessons{},
		access:       &mockAccess{},
		certificates: &mockCertificates{},
		tracker:      &mockTracker{},
	}
	f.svc = progress.NewService(f.store, f.enrollments, f.lessons, f.access,
		progress.WithCertificates(f.certificates),
		progress.WithTracker(f.tracker),
		progress.WithLogger(slog.New(slog.DiscardHandler)),
	)
	t.Cleanup(func() {
		f.store.AssertExpectations(t)
		f.enrollments.AssertExpectations(t)
		f.lessons.AssertExpectations(t)
		f.access.AssertExpectations(t)
		f.certificates.AssertExpectations(t)
		f.tracker.AssertExpectations(t)
	})
	return f
}

func eventNamed(name string) any {
	return mock.MatchedBy(func(e analytics.Event) bool { return e.Name == name })
}

func TestRecord(t *testing.T) {
	t.Parallel()

	t.Run("not enrolled", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		u := progress.Update{UserID: uuid.New(), CourseID: uuid.New(), LessonID: uuid.New()}
		f.enrollments.On("Get", mock.Anything, u.UserID, u.CourseID).Return(nil, enrollment.ErrNotFound)

		_, err := f.svc.Record(context.Background(), u)
		assert.ErrorIs(t, err, progress.ErrNotEnrolled)
	})

	t.Run("lapsed subscription", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		u := progress.Update{UserID: uuid.New(), CourseID: uuid.New(), LessonID: uuid.New()}
		f.enrollments.On("Get", mock.Anything, u.UserID, u.CourseID).Return(&enrollment.Enrollment{Status: enrollment.StatusActive}, nil)
		f.access.On("CanAccess", mock.Anything, u.UserID, u.CourseID).Return(&access.Decision{Reason: access.ReasonNoSubscription}, nil)

		_, err := f.svc.Record(context.Background(), u)
		assert.ErrorIs(t, err, progress.ErrAccessRevoked)
		assert.Contains(t, err.Error(), access.ReasonNoSubscription)
	})

	t.Run("lesson from another course", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		u := progress.Update{UserID: uuid.New(), CourseID: uuid.New(), LessonID: uuid.New()}
		f.enrollments.On("Get", mock.Anything, u.UserID, u.CourseID).Return(&enrollment.Enrollment{}, nil)
		f.access.On("CanAccess", mock.Anything, u.UserID, u.CourseID).Return(&access.Decision{HasAccess: true}, nil)
		f.lessons.On("Lesson", mock.Anything, u.CourseID, u.LessonID).Return(nil, catalog.ErrLessonNotFound)

		_, err := f.svc.Record(context.Background(), u)
		assert.ErrorIs(t, err, progress.ErrLessonNotInCourse)
	})

	t.Run("records and completes course despite tracking failure", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		u := progress.Update{UserID: uuid.New(), Email: "ada@learnpro.test", CourseID: uuid.New(), LessonID: uuid.New(), WatchTimeSeconds: 300, Completed: true}
		now := time.Now()

		f.enrollments.On("Get", mock.Anything, u.UserID, u.CourseID).
			Return(&enrollment.Enrollment{Status: enrollment.StatusActive, ProgressPercentage: 67}, nil)
		f.access.On("CanAccess", mock.Anything, u.UserID, u.CourseID).Return(&access.Decision{HasAccess: true}, nil)
		f.lessons.On("Lesson", mock.Anything, u.CourseID, u.LessonID).
			Return(&catalog.Lesson{ID: u.LessonID, CourseID: u.CourseID, IsPublished: true}, nil)
		f.store.On("Save", mock.Anything, u).Return(
			&progress.LessonProgress{LessonID: u.LessonID, Completed: true, WatchTimeSeconds: 300},
			&enrollment.Enrollment{Status: enrollment.StatusCompleted, ProgressPercentage: 100, CompletedAt: &now},
			nil,
		)
		f.tracker.On("Track", mock.Anything, eventNamed(analytics.EventLessonProgress)).Return(errors.New("nats: no servers"))
		f.tracker.On("Track", mock.Anything, eventNamed(analytics.EventCourseCompleted)).Return(nil)
		f.certificates.On("IssueForCompletedCourse", mock.Anything, exam.Learner{ID: u.UserID, Email: u.Email}, u.CourseID).
			Return(nil, nil)

		res, err := f.svc.Record(context.Background(), u)
		require.NoError(t, err)
		assert.Equal(t, 100, res.Enrollment.ProgressPercentage)
		assert.True(t, res.Enrollment.IsCompleted())
		assert.True(t, res.Lesson.Completed)
		assert.Nil(t, res.Certificate)
	})
}

func TestRecord_CertificateOnCompletion(t *testing.T) {
	t.Parallel()

	setup := func(t *testing.T, beforePct, afterPct int) (*fixture, progress.Update) {
		t.Helper()
		f := newFixture(t)
		u := progress.Update{UserID: uuid.New(), Email: "ada@learnpro.test", CourseID: uuid.New(), LessonID: uuid.New(), Completed: true}

		before := &enrollment.Enrollment{Status: enrollment.StatusActive, ProgressPercentage: beforePct}
		if beforePct == 100 {
			before.Status = enrollment.StatusCompleted
		}
		after := &enrollment.Enrollment{Status: enrollment.StatusActive, ProgressPercentage: afterPct}
		if afterPct == 100 {
			after.Status = enrollment.StatusCompleted
		}

		f.enrollments.On("Get", mock.Anything, u.UserID, u.CourseID).Return(before, nil)
		f.access.On("CanAccess", mock.Anything, u.UserID, u.CourseID).Return(&access.Decision{HasAccess: true}, nil)
		f.lessons.On("Lesson", mock.Anything, u.CourseID, u.LessonID).
			Return(&catalog.Lesson{ID: u.LessonID, CourseID: u.CourseID, IsPublished: true}, nil)
		f.store.On("Save", mock.Anything, u).Return(&progress.LessonProgress{LessonID: u.LessonID, Completed: true}, after, nil)
		f.tracker.On("Track", mock.Anything, mock.Anything).Return(nil)
		return f, u
	}

	t.Run("earlier passing attempt earns the certificate", func(t *testing.T) {
		t.Parallel()
		f, u := setup(t, 50, 100)
		cert := &exam.Certificate{Number: "LP-2026-0A1B2C3D", UserID: u.UserID, CourseID: u.CourseID, Score: 90}
		f.certificates.On("IssueForCompletedCourse", mock.Anything, exam.Learner{ID: u.UserID, Email: u.Email}, u.CourseID).
			Return(cert, nil).Once()

		res, err := f.svc.Record(context.Background(), u)
		require.NoError(t, err)
		assert.Same(t, cert, res.Certificate)
	})

	t.Run("issuing failure keeps the progress update", func(t *testing.T) {
		t.Parallel()
		f, u := setup(t, 50, 100)
		f.certificates.On("IssueForCompletedCourse", mock.Anything, mock.Anything, u.CourseID).
			Return(nil, errors.New("db down")).Once()

		res, err := f.svc.Record(context.Background(), u)
		require.NoError(t, err)
		assert.True(t, res.Enrollment.IsCompleted())
		assert.Nil(t, res.Certificate)
	})

	t.Run("course not completed yet", func(t *testing.T) {
		t.Parallel()
		f, u := setup(t, 25, 50)

		res, err := f.svc.Record(context.Background(), u)
		require.NoError(t, err)
		assert.Nil(t, res.Certificate)
		f.certificates.AssertNotCalled(t, "IssueForCompletedCourse", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("already completed course is not re-issued", func(t *testing.T) {
		t.Parallel()
		f, u := setup(t, 100, 100)

		_, err := f.svc.Record(context.Background(), u)
		require.NoError(t, err)
		f.certificates.AssertNotCalled(t, "IssueForCompletedCourse", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestCourseProgress(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	userID, courseID := uuid.New(), uuid.New()
	f.enrollments.On("Get", mock.Anything, userID, courseID).Return(&enrollment.Enrollment{ProgressPercentage: 50}, nil)
	f.store.On("ListByCourse", mock.Anything, userID, courseID).Return([]progress.LessonProgress{{Completed: true}, {}}, nil)

	cp, err := f.svc.CourseProgress(context.Background(), userID, courseID)
	require.NoError(t, err)
	assert.Equal(t, 50, cp.Enrollment.ProgressPercentage)
	assert.Len(t, cp.Lessons, 2)
}

func TestRepository_Save(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		done, total int
		want        int
		status      enrollment.Status
	}{
		{"one of three", 1, 3, 33, enrollment.StatusActive},
		{"two of three rounds up", 2, 3, 67, enrollment.StatusActive},
		{"one of eight rounds half up", 1, 8, 13, enrollment.StatusActive},
		{"all lessons", 4, 4, 100, enrollment.StatusCompleted},
		{"no published lessons", 0, 0, 0, enrollment.StatusActive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			u := progress.Update{UserID: uuid.New(), CourseID: uuid.New(), LessonID: uuid.New(), WatchTimeSeconds: 120}
			now := time.Now().UTC()

			mock.ExpectBegin()
			mock.ExpectQuery(`INSERT INTO lesson_progress .+ GREATEST\(lesson_progress.watch_time_seconds, EXCLUDED.watch_time_seconds\).+lesson_progress.completed OR EXCLUDED.completed`).
				WithArgs(u.UserID, u.LessonID, u.CourseID, false, 120).
				WillReturnRows(pgxmock.NewRows([]string{"user_id", "lesson_id", "course_id", "completed", "watch_time_seconds", "updated_at"}).
					AddRow(u.UserID, u.LessonID, u.CourseID, true, 300, now))
			mock.ExpectQuery(`SELECT COUNT\(\*\), COUNT\(\*\) FILTER \(WHERE lp.completed\)\s+FROM lessons l`).
				WithArgs(u.UserID, u.CourseID).
				WillReturnRows(pgxmock.NewRows([]string{"count", "count"}).AddRow(tt.total, tt.done))
			mock.ExpectQuery(`UPDATE enrollments SET\s+progress_percentage = \$3::int`).
				WithArgs(u.UserID, u.CourseID, tt.want).
				WillReturnRows(pgxmock.NewRows([]string{"user_id", "course_id", "status", "progress_percentage", "enrolled_at", "completed_at"}).
					AddRow(u.UserID, u.CourseID, tt.status, tt.want, now, (*time.Time)(nil)))
			mock.ExpectCommit()

			lp, e, err := progress.NewRepository(mock).Save(context.Background(), u)
			require.NoError(t, err)
			assert.True(t, lp.Completed, "completion stays set")
			assert.Equal(t, 300, lp.WatchTimeSeconds, "watch time keeps the maximum")
			assert.Equal(t, tt.want, e.ProgressPercentage)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepository_Save_NotEnrolled(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	u := progress.Update{UserID: uuid.New(), CourseID: uuid.New(), LessonID: uuid.New()}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO lesson_progress`).
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "lesson_id", "course_id", "completed", "watch_time_seconds", "updated_at"}).
			AddRow(u.UserID, u.LessonID, u.CourseID, false, 0, time.Now()))
	mock.ExpectQuery(`SELECT COUNT`).WillReturnRows(pgxmock.NewRows([]string{"count", "count"}).AddRow(2, 0))
	mock.ExpectQuery(`UPDATE enrollments`).WithArgs(u.UserID, u.CourseID, 0).WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, _, err = progress.NewRepository(mock).Save(context.Background(), u)
	assert.ErrorIs(t, err, progress.ErrNotEnrolled)
	assert.NoError(t, mock.ExpectationsWereMet())
}
