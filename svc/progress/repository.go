package progress

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
	"github.com/learnpro/learnpro/svc/enrollment"
)

const upsertLessonQuery = `
	INSERT INTO lesson_progress (user_id, lesson_id, course_id, completed, watch_time_seconds)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (user_id, lesson_id) DO UPDATE SET
		watch_time_seconds = GREATEST(lesson_progress.watch_time_seconds, EXCLUDED.watch_time_seconds),
		completed = lesson_progress.completed OR EXCLUDED.completed,
		updated_at = NOW()
	RETURNING user_id, lesson_id, course_id, completed, watch_time_seconds, updated_at`

// countLessonsQuery counts published lessons of a course and how many of
// them the learner completed.
const countLessonsQuery = `
	SELECT COUNT(*), COUNT(*) FILTER (WHERE lp.completed)
	FROM lessons l
	LEFT JOIN lesson_progress lp ON lp.lesson_id = l.id AND lp.user_id = $1
	WHERE l.course_id = $2 AND l.is_published`

// setPercentageQuery stores the enrollment percentage. Completion is sticky
// once reached.
const setPercentageQuery = `
	UPDATE enrollments SET
		progress_percentage = $3::int,
		status = CASE WHEN $3::int = 100 THEN 'completed' ELSE status END,
		completed_at = CASE WHEN $3::int = 100 THEN COALESCE(completed_at, NOW()) ELSE completed_at END,
		updated_at = NOW()
	WHERE user_id = $1 AND course_id = $2
	RETURNING user_id, course_id, status, progress_percentage, enrolled_at, completed_at`

// Repository stores lesson progress in Postgres.
type Repository struct {
	db pg.DB
}

func NewRepository(db pg.DB) *Repository {
	return &Repository{db: db}
}

// Save records u and recomputes the enrollment in one transaction.
func (r *Repository) Save(ctx context.Context, u Update) (*LessonProgress, *enrollment.Enrollment, error) {
	ctx, span := otel.Tracer("ProgressRepo").Start(ctx, "Save", trace.WithAttributes(
		attribute.String("user.id", u.UserID.String()),
		attribute.String("lesson.id", u.LessonID.String()),
		attribute.Bool("lesson.completed", u.Completed),
	))
	defer span.End()

	var (
		lp LessonProgress
		e  enrollment.Enrollment
	)
	err := pg.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, upsertLessonQuery, u.UserID, u.LessonID, u.CourseID, u.Completed, u.WatchTimeSeconds).
			Scan(&lp.UserID, &lp.LessonID, &lp.CourseID, &lp.Completed, &lp.WatchTimeSeconds, &lp.UpdatedAt)
		if err != nil {
			return fmt.Errorf("upsert lesson progress: %w", err)
		}

		var total, done int
		if err := tx.QueryRow(ctx, countLessonsQuery, u.UserID, u.CourseID).Scan(&total, &done); err != nil {
			return fmt.Errorf("count lessons: %w", err)
		}

		err = tx.QueryRow(ctx, setPercentageQuery, u.UserID, u.CourseID, Percentage(done, total)).
			Scan(&e.UserID, &e.CourseID, &e.Status, &e.ProgressPercentage, &e.EnrolledAt, &e.CompletedAt)
		if err != nil {
			if pg.IsNotFoundError(err) {
				return ErrNotEnrolled
			}
			return fmt.Errorf("recompute progress: %w", err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save progress failed")
		return nil, nil, err
	}

	span.SetAttributes(attribute.Int("enrollment.progress", e.ProgressPercentage))
	span.SetStatus(codes.Ok, "progress saved")
	return &lp, &e, nil
}

// ListByCourse returns the learner's progress rows for a course.
func (r *Repository) ListByCourse(ctx context.Context, userID, courseID uuid.UUID) ([]LessonProgress, error) {
	rows, err := r.db.Query(ctx, `
		SELECT user_id, lesson_id, course_id, completed, watch_time_seconds, updated_at
		FROM lesson_progress
		WHERE user_id = $1 AND course_id = $2
		ORDER BY updated_at`, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("list lesson progress: %w", err)
	}
	defer rows.Close()

	list := []LessonProgress{}
	for rows.Next() {
		var lp LessonProgress
		if err := rows.Scan(&lp.UserID, &lp.LessonID, &lp.CourseID, &lp.Completed, &lp.WatchTimeSeconds, &lp.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan lesson progress: %w", err)
		}
		list = append(list, lp)
	}
	return list, rows.Err()
}
