package subscription_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnpro/learnpro/svc/catalog"
	"github.com/learnpro/learnpro/svc/subscription"
)

var subCols = []string{
	"id", "user_id", "plan_id", "status", "provider", "provider_subscription_id", "provider_customer_id",
	"start_date", "end_date", "cancelled_at", "created_at", "updated_at",
}

func TestRepository_ActiveByUser(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := subscription.NewRepository(mock)
	userID, planID := uuid.New(), uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM subscriptions s\s+JOIN plans p .+ s.status = 'active' AND s.end_date >= NOW\(\)`).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows(append(subCols, "name", "tier")).
			AddRow(uuid.New(), userID, planID, subscription.StatusActive, "paddle", "sub_1", "ctm_1",
				now, now.AddDate(0, 1, 0), (*time.Time)(nil), now, now, "Basic Monthly", "basic"))
	mock.ExpectQuery(`FROM subscriptions s`).WithArgs(userID).WillReturnError(pgx.ErrNoRows)

	s, err := repo.ActiveByUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, catalog.TierBasic, s.Tier)
	assert.Equal(t, "Basic Monthly", s.PlanName)
	assert.True(t, s.ActiveAt(now))

	_, err = repo.ActiveByUser(context.Background(), userID)
	assert.ErrorIs(t, err, subscription.ErrSubscriptionNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Activate(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := subscription.NewRepository(mock)
	userID, planID := uuid.New(), uuid.New()
	start := time.Now().UTC()
	end := start.AddDate(0, 1, 0)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE subscriptions SET status = \$1, cancelled_at = NOW\(\), updated_at = NOW\(\) WHERE`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(`INSERT INTO subscriptions .+ ON CONFLICT \(provider, provider_subscription_id\) WHERE provider_subscription_id IS NOT NULL`).
		WithArgs(userID, planID, "paddle", "sub_1", "ctm_1", start, end).
		WillReturnRows(pgxmock.NewRows(subCols).
			AddRow(uuid.New(), userID, planID, subscription.StatusActive, "paddle", "sub_1", "ctm_1",
				start, end, (*time.Time)(nil), start, start))
	mock.ExpectCommit()

	s, err := repo.Activate(context.Background(), subscription.Subscription{
		UserID: userID, PlanID: planID, Provider: "paddle",
		ProviderSubscriptionID: "sub_1", ProviderCustomerID: "ctm_1",
		StartDate: start, EndDate: end,
	})
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusActive, s.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Activate_RollsBack(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE subscriptions`).WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(`INSERT INTO subscriptions`).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err = subscription.NewRepository(mock).Activate(context.Background(), subscription.Subscription{
		UserID: uuid.New(), PlanID: uuid.New(), StartDate: time.Now(), EndDate: time.Now(),
	})
	assert.ErrorIs(t, err, subscription.ErrFailedToSaveSubscription)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Update(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`UPDATE subscriptions SET updated_at = NOW\(\), status = \$1, cancelled_at = COALESCE\(cancelled_at, NOW\(\)\) WHERE provider = \$2 AND provider_subscription_id = \$3`).
		WithArgs(subscription.StatusCancelled, "paddle", "sub_404").
		WillReturnError(pgx.ErrNoRows)

	_, err = subscription.NewRepository(mock).Update(context.Background(), "paddle", "sub_404",
		subscription.Change{Status: subscription.StatusCancelled})
	assert.ErrorIs(t, err, subscription.ErrSubscriptionNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Update_ActiveCancelsOthers(t *testing.T) {
	t.Parallel()

	t.Run("other active subscription is cancelled first", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		userID, planID := uuid.New(), uuid.New()
		now := time.Now().UTC()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE subscriptions SET status = 'cancelled', cancelled_at = NOW\(\), updated_at = NOW\(\)\s+WHERE status = 'active'\s+AND user_id = \(SELECT user_id FROM subscriptions WHERE provider = \$1 AND provider_subscription_id = \$2\)\s+AND \(provider <> \$1 OR provider_subscription_id IS DISTINCT FROM \$2\)`).
			WithArgs("paddle", "sub_a").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectQuery(`UPDATE subscriptions SET updated_at = NOW\(\), status = \$1, cancelled_at = NULL WHERE provider = \$2 AND provider_subscription_id = \$3`).
			WithArgs(subscription.StatusActive, "paddle", "sub_a").
			WillReturnRows(pgxmock.NewRows(subCols).
				AddRow(uuid.New(), userID, planID, subscription.StatusActive, "paddle", "sub_a", "ctm_1",
					now, now.AddDate(0, 1, 0), (*time.Time)(nil), now, now))
		mock.ExpectCommit()

		s, err := subscription.NewRepository(mock).Update(context.Background(), "paddle", "sub_a",
			subscription.Change{Status: subscription.StatusActive})
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusActive, s.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown subscription rolls back", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE subscriptions SET status = 'cancelled'`).
			WithArgs("paddle", "sub_404").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectQuery(`UPDATE subscriptions SET updated_at = NOW\(\)`).
			WithArgs(subscription.StatusActive, "paddle", "sub_404").
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectRollback()

		_, err = subscription.NewRepository(mock).Update(context.Background(), "paddle", "sub_404",
			subscription.Change{Status: subscription.StatusActive})
		assert.ErrorIs(t, err, subscription.ErrSubscriptionNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_ExpireLapsed(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	mock.ExpectExec(`UPDATE subscriptions SET status = 'expired'`).
		WithArgs(now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	n, err := subscription.NewRepository(mock).ExpireLapsed(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
