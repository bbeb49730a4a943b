package enrollment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/learnpro/learnpro/pkg/pg"
)

const columns = "user_id, course_id, status, progress_percentage, enrolled_at, completed_at"

// Repository stores enrollments in Postgres.
type Repository struct {
	db pg.DB
}

func NewRepository(db pg.DB) *Repository {
	return &Repository{db: db}
}

func scan(row pgx.Row) (*Enrollment, error) {
	var e Enrollment
	if err := row.Scan(&e.UserID, &e.CourseID, &e.Status, &e.ProgressPercentage, &e.EnrolledAt, &e.CompletedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

// Upsert creates the enrollment for (userID, courseID) or touches the
// existing one. Concurrent calls for the same pair converge on one row, and
// status and progress of an existing row are left untouched.
func (r *Repository) Upsert(ctx context.Context, userID, courseID uuid.UUID) (*Enrollment, error) {
	ctx, span := otel.Tracer("EnrollmentRepo").Start(ctx, "Upsert", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("course.id", courseID.String()),
	))
	defer span.End()

	query := `
		INSERT INTO enrollments (user_id, course_id, status)
		VALUES ($1, $2, 'active')
		ON CONFLICT (user_id, course_id) DO UPDATE SET updated_at = NOW()
		RETURNING ` + columns + `, (xmax = 0)`

	var e Enrollment
	err := r.db.QueryRow(ctx, query, userID, courseID).
		Scan(&e.UserID, &e.CourseID, &e.Status, &e.ProgressPercentage, &e.EnrolledAt, &e.CompletedAt, &e.Created)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB upsert failed")
		return nil, fmt.Errorf("upsert enrollment: %w", err)
	}
	span.SetAttributes(attribute.Bool("enrollment.created", e.Created))
	span.SetStatus(codes.Ok, "enrollment upserted")
	return &e, nil
}

func (r *Repository) Get(ctx context.Context, userID, courseID uuid.UUID) (*Enrollment, error) {
	query := `SELECT ` + columns + ` FROM enrollments WHERE user_id = $1 AND course_id = $2`

	e, err := scan(r.db.QueryRow(ctx, query, userID, courseID))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get enrollment: %w", err)
	}
	return e, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Enrollment, error) {
	query := `SELECT ` + columns + ` FROM enrollments WHERE user_id = $1 ORDER BY enrolled_at DESC`
	return r.list(ctx, query, userID)
}

func (r *Repository) ListByCourse(ctx context.Context, courseID uuid.UUID) ([]Enrollment, error) {
	query := `SELECT ` + columns + ` FROM enrollments WHERE course_id = $1 ORDER BY enrolled_at`
	return r.list(ctx, query, courseID)
}

func (r *Repository) list(ctx context.Context, query string, id uuid.UUID) ([]Enrollment, error) {
	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	defer rows.Close()

	list := []Enrollment{}
	for rows.Next() {
		e, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		list = append(list, *e)
	}
	return list, rows.Err()
}
