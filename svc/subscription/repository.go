package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/learnpro/learnpro/pkg/pg"
	"github.com/learnpro/learnpro/svc/catalog"
)

const tracerName = "SubscriptionRepo"

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

const returning = `RETURNING id, user_id, plan_id, status, provider,
	COALESCE(provider_subscription_id, ''), COALESCE(provider_customer_id, ''),
	start_date, end_date, cancelled_at, created_at, updated_at`

// Repository stores subscriptions in Postgres.
type Repository struct {
	db pg.DB
}

func NewRepository(db pg.DB) *Repository {
	return &Repository{db: db}
}

func scan(row pgx.Row, extra ...any) (*Subscription, error) {
	var s Subscription
	dest := append([]any{
		&s.ID, &s.UserID, &s.PlanID, &s.Status, &s.Provider,
		&s.ProviderSubscriptionID, &s.ProviderCustomerID,
		&s.StartDate, &s.EndDate, &s.CancelledAt, &s.CreatedAt, &s.UpdatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &s, nil
}

// ActiveByUser returns the user's active, unexpired subscription joined with
// its plan tier.
func (r *Repository) ActiveByUser(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "ActiveByUser", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	const query = `
		SELECT s.id, s.user_id, s.plan_id, s.status, s.provider,
			COALESCE(s.provider_subscription_id, ''), COALESCE(s.provider_customer_id, ''),
			s.start_date, s.end_date, s.cancelled_at, s.created_at, s.updated_at,
			p.name, p.tier
		FROM subscriptions s
		JOIN plans p ON p.id = s.plan_id
		WHERE s.user_id = $1 AND s.status = 'active' AND s.end_date >= NOW()
		ORDER BY s.end_date DESC
		LIMIT 1`

	var (
		name string
		tier string
	)
	s, err := scan(r.db.QueryRow(ctx, query, userID), &name, &tier)
	if err != nil {
		if pg.IsNotFoundError(err) {
			span.SetStatus(codes.Ok, "no active subscription")
			return nil, ErrSubscriptionNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("get active subscription: %w", err)
	}
	s.PlanName = name
	s.Tier = catalog.Tier(tier)
	span.SetStatus(codes.Ok, "active subscription found")
	return s, nil
}

// Activate stores s as the user's active subscription. Any other active
// subscription of the user is cancelled in the same transaction. A repeated
// activation for the same provider reference re-activates the existing row.
func (r *Repository) Activate(ctx context.Context, s Subscription) (*Subscription, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "Activate", trace.WithAttributes(
		attribute.String("user.id", s.UserID.String()),
		attribute.String("plan.id", s.PlanID.String()),
		attribute.String("provider", s.Provider),
	))
	defer span.End()

	var saved *Subscription
	err := pg.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		cancel := psql.Update("subscriptions").
			Set("status", StatusCancelled).
			Set("cancelled_at", squirrel.Expr("NOW()")).
			Set("updated_at", squirrel.Expr("NOW()")).
			Where(squirrel.Eq{"user_id": s.UserID, "status": StatusActive})
		if s.ProviderSubscriptionID != "" {
			cancel = cancel.Where(squirrel.Or{
				squirrel.NotEq{"provider": s.Provider},
				squirrel.Expr("provider_subscription_id IS DISTINCT FROM ?", s.ProviderSubscriptionID),
			})
		}
		sql, args, err := cancel.ToSql()
		if err != nil {
			return fmt.Errorf("build cancel query: %w", err)
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("cancel previous subscriptions: %w", err)
		}

		query := `
			INSERT INTO subscriptions (user_id, plan_id, status, provider, provider_subscription_id, provider_customer_id, start_date, end_date)
			VALUES ($1, $2, 'active', $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7)
			ON CONFLICT (provider, provider_subscription_id) WHERE provider_subscription_id IS NOT NULL
			DO UPDATE SET
				plan_id = EXCLUDED.plan_id,
				status = 'active',
				provider_customer_id = COALESCE(EXCLUDED.provider_customer_id, subscriptions.provider_customer_id),
				end_date = GREATEST(subscriptions.end_date, EXCLUDED.end_date),
				cancelled_at = NULL,
				updated_at = NOW()
			` + returning

		saved, err = scan(tx.QueryRow(ctx, query,
			s.UserID, s.PlanID, s.Provider, s.ProviderSubscriptionID, s.ProviderCustomerID, s.StartDate, s.EndDate,
		))
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "activation failed")
		return nil, errors.Join(ErrFailedToSaveSubscription, err)
	}
	span.SetStatus(codes.Ok, "subscription activated")
	return saved, nil
}

// cancelOthersByRef cancels every other active subscription of the user who
// owns the subscription with the given provider reference.
const cancelOthersByRef = `
	UPDATE subscriptions SET status = 'cancelled', cancelled_at = NOW(), updated_at = NOW()
	WHERE status = 'active'
		AND user_id = (SELECT user_id FROM subscriptions WHERE provider = $1 AND provider_subscription_id = $2)
		AND (provider <> $1 OR provider_subscription_id IS DISTINCT FROM $2)`

// Update applies c to the subscription identified by the provider reference.
// A plan change recomputes end_date from start_date. Mirroring an active
// status cancels the user's other active subscriptions in the same
// transaction, as Activate does.
func (r *Repository) Update(ctx context.Context, provider, ref string, c Change) (*Subscription, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "Update", trace.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("provider.subscription_id", ref),
		attribute.String("status", string(c.Status)),
	))
	defer span.End()

	q := psql.Update("subscriptions").
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"provider": provider, "provider_subscription_id": ref}).
		Suffix(returning)
	if c.Plan != nil {
		q = q.Set("plan_id", c.Plan.ID).
			Set("end_date", squirrel.Expr("start_date + make_interval(months => ?)", c.Plan.TermMonths()))
	}
	switch c.Status {
	case "":
	case StatusCancelled:
		q = q.Set("status", c.Status).Set("cancelled_at", squirrel.Expr("COALESCE(cancelled_at, NOW())"))
	case StatusActive:
		q = q.Set("status", c.Status).Set("cancelled_at", squirrel.Expr("NULL"))
	default:
		q = q.Set("status", c.Status)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update subscription query: %w", err)
	}

	var s *Subscription
	if c.Status == StatusActive {
		err = pg.WithTx(ctx, r.db, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, cancelOthersByRef, provider, ref); err != nil {
				return fmt.Errorf("cancel other subscriptions: %w", err)
			}
			var err error
			s, err = scan(tx.QueryRow(ctx, sql, args...))
			return err
		})
	} else {
		s, err = scan(r.db.QueryRow(ctx, sql, args...))
	}
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrSubscriptionNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return nil, errors.Join(ErrFailedToSaveSubscription, err)
	}
	span.SetStatus(codes.Ok, "subscription updated")
	return s, nil
}

// ExpireLapsed marks active subscriptions whose end date passed before now
// as expired and returns how many rows changed.
func (r *Repository) ExpireLapsed(ctx context.Context, now time.Time) (int64, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "ExpireLapsed")
	defer span.End()

	tag, err := r.db.Exec(ctx, `
		UPDATE subscriptions SET status = 'expired', updated_at = NOW()
		WHERE status = 'active' AND end_date < $1`, now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return 0, fmt.Errorf("expire subscriptions: %w", err)
	}
	span.SetAttributes(attribute.Int64("expired", tag.RowsAffected()))
	span.SetStatus(codes.Ok, "lapsed subscriptions expired")
	return tag.RowsAffected(), nil
}
