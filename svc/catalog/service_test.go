package catalog_test

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/learnpro/learnpro/svc/catalog"
)

func squirrelEq(col string, v any) squirrel.Sqlizer { return squirrel.Eq{col: v} }

type mockStore struct {
	mock.Mock
}

func (m *mockStore) ListCourses(ctx context.Context, f catalog.CourseFilter) ([]catalog.Course, error) {
	args := m.Called(ctx, f)
	courses, _ := args.Get(0).([]catalog.Course)
	return courses, args.Error(1)
}

func (m *mockStore) GetCourse(ctx context.Context, id uuid.UUID) (*catalog.Course, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(*catalog.Course)
	return c, args.Error(1)
}

func (m *mockStore) ListLessons(ctx context.Context, courseID uuid.UUID, publishedOnly bool) ([]catalog.Lesson, error) {
	args := m.Called(ctx, courseID, publishedOnly)
	lessons, _ := args.Get(0).([]catalog.Lesson)
	return lessons, args.Error(1)
}

func (m *mockStore) GetLesson(ctx context.Context, courseID, lessonID uuid.UUID) (*catalog.Lesson, error) {
	args := m.Called(ctx, courseID, lessonID)
	l, _ := args.Get(0).(*catalog.Lesson)
	return l, args.Error(1)
}

func (m *mockStore) CreateCourse(ctx context.Context, in catalog.CourseInput) (*catalog.Course, error) {
	args := m.Called(ctx, in)
	c, _ := args.Get(0).(*catalog.Course)
	return c, args.Error(1)
}

func (m *mockStore) UpdateCourse(ctx context.Context, id uuid.UUID, u catalog.CourseUpdate) (*catalog.Course, error) {
	args := m.Called(ctx, id, u)
	c, _ := args.Get(0).(*catalog.Course)
	return c, args.Error(1)
}

func (m *mockStore) CreateLesson(ctx context.Context, in catalog.LessonInput) (*catalog.Lesson, error) {
	args := m.Called(ctx, in)
	l, _ := args.Get(0).(*catalog.Lesson)
	return l, args.Error(1)
}

func (m *mockStore) ListPlans(ctx context.Context, publicOnly bool) ([]catalog.Plan, error) {
	args := m.Called(ctx, publicOnly)
	plans, _ := args.Get(0).([]catalog.Plan)
	return plans, args.Error(1)
}

func (m *mockStore) FindPlan(ctx context.Context, where squirrel.Sqlizer) (*catalog.Plan, error) {
	args := m.Called(ctx, where)
	p, _ := args.Get(0).(*catalog.Plan)
	return p, args.Error(1)
}

func (m *mockStore) UpsertPlan(ctx context.Context, p catalog.Plan) (uuid.UUID, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func newService(store catalog.Store) *catalog.Service {
	return catalog.NewService(store, slog.New(slog.DiscardHandler))
}

func TestService_CourseIsCached(t *testing.T) {
	t.Parallel()

	store := &mockStore{}
	id := uuid.New()
	store.On("GetCourse", mock.Anything, id).Return(&catalog.Course{ID: id, IsPublished: true}, nil).Once()
	store.On("ListLessons", mock.Anything, id, true).Return([]catalog.Lesson{{ID: uuid.New(), CourseID: id}}, nil).Once()

	svc := newService(store)
	for range 3 {
		c, err := svc.Course(context.Background(), id, false)
		require.NoError(t, err)
		assert.Len(t, c.Lessons, 1)
	}
	store.AssertExpectations(t)
}

func TestService_UnpublishedCourseHidden(t *testing.T) {
	t.Parallel()

	store := &mockStore{}
	id := uuid.New()
	store.On("GetCourse", mock.Anything, id).Return(&catalog.Course{ID: id}, nil)
	store.On("ListLessons", mock.Anything, id, false).Return([]catalog.Lesson(nil), nil)

	svc := newService(store)
	_, err := svc.Course(context.Background(), id, false)
	assert.ErrorIs(t, err, catalog.ErrCourseNotFound)

	c, err := svc.Course(context.Background(), id, true)
	require.NoError(t, err)
	assert.Equal(t, id, c.ID)
}

func TestService_UpdateInvalidatesCache(t *testing.T) {
	t.Parallel()

	store := &mockStore{}
	id := uuid.New()
	store.On("GetCourse", mock.Anything, id).Return(&catalog.Course{ID: id, IsPublished: true}, nil).Twice()
	store.On("ListLessons", mock.Anything, id, true).Return([]catalog.Lesson(nil), nil).Twice()
	store.On("UpdateCourse", mock.Anything, id, mock.Anything).Return(&catalog.Course{ID: id, IsPublished: true}, nil)

	svc := newService(store)
	_, err := svc.Course(context.Background(), id, false)
	require.NoError(t, err)

	title := "Renamed"
	_, err = svc.UpdateCourse(context.Background(), id, catalog.CourseUpdate{Title: &title})
	require.NoError(t, err)

	_, err = svc.Course(context.Background(), id, false)
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestService_ListCoursesRejectsUnknownTier(t *testing.T) {
	t.Parallel()

	_, err := newService(&mockStore{}).ListCourses(context.Background(), catalog.CourseFilter{Tier: "gold"})
	assert.ErrorIs(t, err, catalog.ErrInvalidTier)
}

func TestService_ListPlansAddsLabels(t *testing.T) {
	t.Parallel()

	store := &mockStore{}
	store.On("ListPlans", mock.Anything, true).Return([]catalog.Plan{
		{Name: "Free", Tier: catalog.TierFree},
		{Name: "Premium Monthly", Tier: catalog.TierPremium, Price: 19.99, Currency: "USD", DurationMonths: 1},
	}, nil)

	plans, err := newService(store).ListPlans(context.Background())
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "Free", plans[0].PriceLabel)
	assert.Contains(t, plans[1].PriceLabel, "19.99")
}

func TestService_PlanLookups(t *testing.T) {
	t.Parallel()

	svc := newService(&mockStore{})
	_, err := svc.PlanByName(context.Background(), "  ")
	assert.ErrorIs(t, err, catalog.ErrPlanNotFound)
	_, err = svc.PlanByDuration(context.Background(), 0)
	assert.ErrorIs(t, err, catalog.ErrPlanNotFound)
	_, err = svc.PlanByPaddlePrice(context.Background(), "")
	assert.ErrorIs(t, err, catalog.ErrPlanNotFound)
}

func TestService_SyncPlans(t *testing.T) {
	t.Parallel()

	store := &mockStore{}
	store.On("UpsertPlan", mock.Anything, mock.MatchedBy(func(p catalog.Plan) bool { return p.Name == "Team" })).
		Return(uuid.New(), nil).Once()

	src := catalog.NewYAMLPlanSourceFromReader(strings.NewReader("plans:\n  - name: Team\n    tier: basic\n    price: 5\n    duration_months: 1\n"))
	require.NoError(t, newService(store).SyncPlans(context.Background(), src))
	store.AssertExpectations(t)
}
