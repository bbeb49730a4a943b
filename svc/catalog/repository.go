package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/learnpro/learnpro/pkg/pg"
)

const tracerName = "CatalogRepo"

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var (
	courseColumns = []string{"id", "title", "description", "subscription_tier", "is_published", "created_at", "updated_at"}
	lessonColumns = []string{"id", "course_id", "title", "position", "duration_seconds", "is_published"}
	planColumns   = []string{"id", "name", "tier", "price::float8", "currency", "duration_months", "COALESCE(paddle_price_id, '')", "public"}
)

// Repository persists courses, lessons and plans in Postgres.
type Repository struct {
	db pg.DB
}

func NewRepository(db pg.DB) *Repository {
	return &Repository{db: db}
}

func scanCourse(row pgx.Row) (*Course, error) {
	var c Course
	err := row.Scan(&c.ID, &c.Title, &c.Description, &c.Tier, &c.IsPublished, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanPlan(row pgx.Row) (*Plan, error) {
	var p Plan
	err := row.Scan(&p.ID, &p.Name, &p.Tier, &p.Price, &p.Currency, &p.DurationMonths, &p.PaddlePriceID, &p.Public)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func fail(span trace.Span, err error, msg string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
}

func (r *Repository) ListCourses(ctx context.Context, f CourseFilter) ([]Course, error) {
	f = f.normalized()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "ListCourses", trace.WithAttributes(
		attribute.String("filter.tier", string(f.Tier)),
		attribute.Int("filter.limit", f.Limit),
		attribute.Int("filter.offset", f.Offset),
	))
	defer span.End()

	q := psql.Select(courseColumns...).
		From("courses").
		OrderBy("created_at DESC", "id").
		Limit(uint64(f.Limit)).
		Offset(uint64(f.Offset))
	if !f.IncludeUnpublished {
		q = q.Where(squirrel.Eq{"is_published": true})
	}
	if f.Tier != "" {
		q = q.Where(squirrel.Eq{"subscription_tier": f.Tier})
	}
	if term := strings.TrimSpace(f.Query); term != "" {
		q = q.Where(squirrel.ILike{"title": "%" + escapeLike(term) + "%"})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		fail(span, err, "build query failed")
		return nil, fmt.Errorf("build list courses query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		fail(span, err, "DB query failed")
		return nil, fmt.Errorf("list courses: %w", err)
	}
	defer rows.Close()

	courses := make([]Course, 0, f.Limit)
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			fail(span, err, "scan failed")
			return nil, fmt.Errorf("scan course: %w", err)
		}
		courses = append(courses, *c)
	}
	if err := rows.Err(); err != nil {
		fail(span, err, "rows failed")
		return nil, fmt.Errorf("list courses: %w", err)
	}

	span.SetStatus(codes.Ok, "courses listed")
	return courses, nil
}

func (r *Repository) GetCourse(ctx context.Context, id uuid.UUID) (*Course, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "GetCourse", trace.WithAttributes(
		attribute.String("course.id", id.String()),
	))
	defer span.End()

	sql, args, err := psql.Select(courseColumns...).From("courses").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get course query: %w", err)
	}

	c, err := scanCourse(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		fail(span, err, "DB query failed")
		return nil, fmt.Errorf("get course: %w", err)
	}
	return c, nil
}

func (r *Repository) ListLessons(ctx context.Context, courseID uuid.UUID, publishedOnly bool) ([]Lesson, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "ListLessons", trace.WithAttributes(
		attribute.String("course.id", courseID.String()),
	))
	defer span.End()

	q := psql.Select(lessonColumns...).From("lessons").
		Where(squirrel.Eq{"course_id": courseID}).
		OrderBy("position", "created_at")
	if publishedOnly {
		q = q.Where(squirrel.Eq{"is_published": true})
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list lessons query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		fail(span, err, "DB query failed")
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	defer rows.Close()

	var lessons []Lesson
	for rows.Next() {
		var l Lesson
		if err := rows.Scan(&l.ID, &l.CourseID, &l.Title, &l.Position, &l.DurationSeconds, &l.IsPublished); err != nil {
			return nil, fmt.Errorf("scan lesson: %w", err)
		}
		lessons = append(lessons, l)
	}
	return lessons, rows.Err()
}

// GetLesson returns a lesson only when it belongs to courseID.
func (r *Repository) GetLesson(ctx context.Context, courseID, lessonID uuid.UUID) (*Lesson, error) {
	sql, args, err := psql.Select(lessonColumns...).From("lessons").
		Where(squirrel.Eq{"id": lessonID, "course_id": courseID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get lesson query: %w", err)
	}

	var l Lesson
	err = r.db.QueryRow(ctx, sql, args...).Scan(&l.ID, &l.CourseID, &l.Title, &l.Position, &l.DurationSeconds, &l.IsPublished)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrLessonNotFound
		}
		return nil, fmt.Errorf("get lesson: %w", err)
	}
	return &l, nil
}

func (r *Repository) CreateCourse(ctx context.Context, in CourseInput) (*Course, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "CreateCourse")
	defer span.End()

	sql, args, err := psql.Insert("courses").
		Columns("title", "description", "subscription_tier", "is_published").
		Values(strings.TrimSpace(in.Title), in.Description, in.Tier, in.IsPublished).
		Suffix("RETURNING " + strings.Join(courseColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert course query: %w", err)
	}

	c, err := scanCourse(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		fail(span, err, "DB INSERT failed")
		return nil, fmt.Errorf("create course: %w", err)
	}
	span.SetStatus(codes.Ok, "course created")
	return c, nil
}

func (r *Repository) UpdateCourse(ctx context.Context, id uuid.UUID, u CourseUpdate) (*Course, error) {
	if u.empty() {
		return nil, ErrNothingToUpdate
	}
	ctx, span := otel.Tracer(tracerName).Start(ctx, "UpdateCourse", trace.WithAttributes(
		attribute.String("course.id", id.String()),
	))
	defer span.End()

	q := psql.Update("courses").
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING " + strings.Join(courseColumns, ", "))
	if u.Title != nil {
		q = q.Set("title", strings.TrimSpace(*u.Title))
	}
	if u.Description != nil {
		q = q.Set("description", *u.Description)
	}
	if u.Tier != nil {
		q = q.Set("subscription_tier", *u.Tier)
	}
	if u.IsPublished != nil {
		q = q.Set("is_published", *u.IsPublished)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update course query: %w", err)
	}

	c, err := scanCourse(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		fail(span, err, "DB UPDATE failed")
		return nil, fmt.Errorf("update course: %w", err)
	}
	span.SetStatus(codes.Ok, "course updated")
	return c, nil
}

func (r *Repository) CreateLesson(ctx context.Context, in LessonInput) (*Lesson, error) {
	published := true
	if in.IsPublished != nil {
		published = *in.IsPublished
	}

	sql, args, err := psql.Insert("lessons").
		Columns("course_id", "title", "position", "duration_seconds", "is_published").
		Values(in.CourseID, strings.TrimSpace(in.Title), in.Position, in.DurationSeconds, published).
		Suffix("RETURNING " + strings.Join(lessonColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert lesson query: %w", err)
	}

	var l Lesson
	err = r.db.QueryRow(ctx, sql, args...).Scan(&l.ID, &l.CourseID, &l.Title, &l.Position, &l.DurationSeconds, &l.IsPublished)
	if err != nil {
		if pg.IsForeignKeyViolationError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("create lesson: %w", err)
	}
	return &l, nil
}

func (r *Repository) ListPlans(ctx context.Context, publicOnly bool) ([]Plan, error) {
	q := psql.Select(planColumns...).From("plans").OrderBy("price", "duration_months")
	if publicOnly {
		q = q.Where(squirrel.Eq{"public": true})
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list plans query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var plans []Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		plans = append(plans, *p)
	}
	return plans, rows.Err()
}

// FindPlan returns the first plan matching where, e.g. squirrel.Eq{"id": id}.
func (r *Repository) FindPlan(ctx context.Context, where squirrel.Sqlizer) (*Plan, error) {
	sql, args, err := psql.Select(planColumns...).From("plans").Where(where).
		OrderBy("public DESC", "price").Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find plan query: %w", err)
	}

	p, err := scanPlan(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("find plan: %w", err)
	}
	return p, nil
}

// UpsertPlan inserts or updates a plan keyed on its case-insensitive name.
func (r *Repository) UpsertPlan(ctx context.Context, p Plan) (uuid.UUID, error) {
	const query = `
		INSERT INTO plans (name, tier, price, currency, duration_months, paddle_price_id, public)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)
		ON CONFLICT ((LOWER(name))) DO UPDATE SET
			tier = EXCLUDED.tier,
			price = EXCLUDED.price,
			currency = EXCLUDED.currency,
			duration_months = EXCLUDED.duration_months,
			paddle_price_id = EXCLUDED.paddle_price_id,
			public = EXCLUDED.public,
			updated_at = NOW()
		RETURNING id`

	var id uuid.UUID
	err := r.db.QueryRow(ctx, query, p.Name, p.Tier, p.Price, strings.ToUpper(p.Currency), p.DurationMonths, p.PaddlePriceID, p.Public).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("upsert plan %q: %w", p.Name, err)
	}
	return id, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

