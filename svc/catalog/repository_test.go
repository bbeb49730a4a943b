package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnpro/learnpro/svc/catalog"
)

var courseCols = []string{"id", "title", "description", "subscription_tier", "is_published", "created_at", "updated_at"}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestRepository_ListCourses(t *testing.T) {
	t.Parallel()

	mock := newMock(t)
	repo := catalog.NewRepository(mock)
	now := time.Now().UTC()
	id := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM courses WHERE is_published = \$1 AND subscription_tier = \$2 AND title ILIKE \$3`).
		WithArgs(true, catalog.TierBasic, `%go\_lang%`).
		WillReturnRows(pgxmock.NewRows(courseCols).
			AddRow(id, "Go", "Learn Go", catalog.TierBasic, true, now, now))

	courses, err := repo.ListCourses(context.Background(), catalog.CourseFilter{Tier: catalog.TierBasic, Query: "go_lang"})
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, id, courses[0].ID)
	assert.Equal(t, catalog.TierBasic, courses[0].Tier)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetCourse_NotFound(t *testing.T) {
	t.Parallel()

	mock := newMock(t)
	repo := catalog.NewRepository(mock)

	mock.ExpectQuery(`SELECT .+ FROM courses WHERE id = \$1`).WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetCourse(context.Background(), uuid.New())
	assert.ErrorIs(t, err, catalog.ErrCourseNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpdateCourse(t *testing.T) {
	t.Parallel()

	t.Run("nothing to update", func(t *testing.T) {
		t.Parallel()
		repo := catalog.NewRepository(newMock(t))
		_, err := repo.UpdateCourse(context.Background(), uuid.New(), catalog.CourseUpdate{})
		assert.ErrorIs(t, err, catalog.ErrNothingToUpdate)
	})

	t.Run("publishes", func(t *testing.T) {
		t.Parallel()
		mock := newMock(t)
		repo := catalog.NewRepository(mock)
		id := uuid.New()
		now := time.Now().UTC()
		published := true

		mock.ExpectQuery(`UPDATE courses SET updated_at = \$1, is_published = \$2 WHERE id = \$3 RETURNING`).
			WithArgs(pgxmock.AnyArg(), true, id.String()).
			WillReturnRows(pgxmock.NewRows(courseCols).
				AddRow(id, "Go", "", catalog.TierFree, true, now, now))

		c, err := repo.UpdateCourse(context.Background(), id, catalog.CourseUpdate{IsPublished: &published})
		require.NoError(t, err)
		assert.True(t, c.IsPublished)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_CreateLesson_UnknownCourse(t *testing.T) {
	t.Parallel()

	mock := newMock(t)
	repo := catalog.NewRepository(mock)

	mock.ExpectQuery(`INSERT INTO lessons`).
		WillReturnError(&pgconn.PgError{Code: "23503"})

	_, err := repo.CreateLesson(context.Background(), catalog.LessonInput{CourseID: uuid.New(), Title: "Intro"})
	assert.ErrorIs(t, err, catalog.ErrCourseNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_FindPlan(t *testing.T) {
	t.Parallel()

	mock := newMock(t)
	repo := catalog.NewRepository(mock)
	id := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM plans WHERE id = \$1 ORDER BY public DESC, price LIMIT 1`).
		WithArgs(id.String()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "tier", "price", "currency", "duration_months", "paddle_price_id", "public"}).
			AddRow(id, "Premium Monthly", catalog.TierPremium, 19.99, "USD", 1, "pri_01", true))

	p, err := repo.FindPlan(context.Background(), squirrelEq("id", id))
	require.NoError(t, err)
	assert.Equal(t, int64(1999), p.AmountCents())
	assert.Equal(t, "pri_01", p.PaddlePriceID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpsertPlan(t *testing.T) {
	t.Parallel()

	mock := newMock(t)
	repo := catalog.NewRepository(mock)
	id := uuid.New()

	mock.ExpectQuery(`INSERT INTO plans .+ ON CONFLICT \(\(LOWER\(name\)\)\) DO UPDATE`).
		WithArgs("Basic Monthly", catalog.TierBasic, 9.99, "USD", 1, "", true).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(id))

	got, err := repo.UpsertPlan(context.Background(), catalog.Plan{
		Name: "Basic Monthly", Tier: catalog.TierBasic, Price: 9.99, Currency: "usd", DurationMonths: 1, Public: true,
	})
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
