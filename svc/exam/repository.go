package exam

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/learnpro/learnpro/pkg/pg"
)

const tracerName = "ExamRepo"

// Repository stores exams, attempts and certificates in Postgres.
type Repository struct {
	db pg.DB
}

func NewRepository(db pg.DB) *Repository {
	return &Repository{db: db}
}

// CreateExam inserts the exam and its questions in one transaction.
func (r *Repository) CreateExam(ctx context.Context, in ExamInput) (*Exam, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "CreateExam", trace.WithAttributes(
		attribute.String("course.id", in.CourseID.String()),
		attribute.Int("exam.questions", len(in.Questions)),
	))
	defer span.End()

	var e Exam
	err := pg.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO exams (course_id, title, passing_score)
			VALUES ($1, $2, $3)
			RETURNING id, course_id, title, passing_score, created_at`,
			in.CourseID, strings.TrimSpace(in.Title), in.PassingScore,
		).Scan(&e.ID, &e.CourseID, &e.Title, &e.PassingScore, &e.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert exam: %w", err)
		}

		e.Questions = make([]Question, 0, len(in.Questions))
		for i, q := range in.Questions {
			question := Question{Position: i, Prompt: strings.TrimSpace(q.Prompt), Options: q.Options, CorrectOption: q.CorrectOption}
			err := tx.QueryRow(ctx, `
				INSERT INTO exam_questions (exam_id, position, prompt, options, correct_option)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING id`,
				e.ID, question.Position, question.Prompt, question.Options, question.CorrectOption,
			).Scan(&question.ID)
			if err != nil {
				return fmt.Errorf("insert question %d: %w", i, err)
			}
			e.Questions = append(e.Questions, question)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create exam failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "exam created")
	return &e, nil
}

// GetExam returns the exam with questions in position order.
func (r *Repository) GetExam(ctx context.Context, id uuid.UUID) (*Exam, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "GetExam", trace.WithAttributes(
		attribute.String("exam.id", id.String()),
	))
	defer span.End()

	var e Exam
	err := r.db.QueryRow(ctx, `
		SELECT id, course_id, title, passing_score, created_at FROM exams WHERE id = $1`, id,
	).Scan(&e.ID, &e.CourseID, &e.Title, &e.PassingScore, &e.CreatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("get exam: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, position, prompt, options, correct_option
		FROM exam_questions WHERE exam_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var q Question
		if err := rows.Scan(&q.ID, &q.Position, &q.Prompt, &q.Options, &q.CorrectOption); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		e.Questions = append(e.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	span.SetStatus(codes.Ok, "exam loaded")
	return &e, nil
}

// ListByCourse returns the exams of a course without questions.
func (r *Repository) ListByCourse(ctx context.Context, courseID uuid.UUID) ([]Exam, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, course_id, title, passing_score, created_at
		FROM exams WHERE course_id = $1 ORDER BY created_at`, courseID)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	defer rows.Close()

	exams := []Exam{}
	for rows.Next() {
		var e Exam
		if err := rows.Scan(&e.ID, &e.CourseID, &e.Title, &e.PassingScore, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan exam: %w", err)
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

func (r *Repository) SaveAttempt(ctx context.Context, a Attempt) (*Attempt, error) {
	err := r.db.QueryRow(ctx, `
		INSERT INTO exam_attempts (exam_id, user_id, score, passed, answers)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		a.ExamID, a.UserID, a.Score, a.Passed, a.Answers,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("save attempt: %w", err)
	}
	return &a, nil
}

// BestPassedAttempt returns the learner's highest scoring passed attempt on
// any exam of the course.
func (r *Repository) BestPassedAttempt(ctx context.Context, userID, courseID uuid.UUID) (*Attempt, error) {
	a := Attempt{UserID: userID}
	err := r.db.QueryRow(ctx, `
		SELECT a.id, a.exam_id, a.score, a.created_at
		FROM exam_attempts a
		JOIN exams e ON e.id = a.exam_id
		WHERE a.user_id = $1 AND e.course_id = $2 AND a.passed
		ORDER BY a.score DESC, a.created_at
		LIMIT 1`, userID, courseID,
	).Scan(&a.ID, &a.ExamID, &a.Score, &a.CreatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get passed attempt: %w", err)
	}
	a.Passed = true
	return &a, nil
}

// IssueCertificate stores c unless the learner already holds a certificate
// for the course, in which case the existing one is returned.
func (r *Repository) IssueCertificate(ctx context.Context, c Certificate) (*Certificate, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "IssueCertificate", trace.WithAttributes(
		attribute.String("user.id", c.UserID.String()),
		attribute.String("course.id", c.CourseID.String()),
	))
	defer span.End()

	err := r.db.QueryRow(ctx, `
		INSERT INTO certificates (number, user_id, course_id, exam_id, score)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, course_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING id, number, exam_id, score, issued_at, (xmax = 0)`,
		c.Number, c.UserID, c.CourseID, c.ExamID, c.Score,
	).Scan(&c.ID, &c.Number, &c.ExamID, &c.Score, &c.IssuedAt, &c.Created)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB INSERT failed")
		return nil, fmt.Errorf("issue certificate: %w", err)
	}
	span.SetStatus(codes.Ok, "certificate stored")
	return &c, nil
}

func (r *Repository) CertificateByNumber(ctx context.Context, number string) (*Certificate, error) {
	var c Certificate
	err := r.db.QueryRow(ctx, `
		SELECT c.id, c.number, c.user_id, c.course_id, co.title, c.exam_id, c.score, c.issued_at
		FROM certificates c
		JOIN courses co ON co.id = c.course_id
		WHERE c.number = $1`, number,
	).Scan(&c.ID, &c.Number, &c.UserID, &c.CourseID, &c.CourseTitle, &c.ExamID, &c.Score, &c.IssuedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrCertificateNotFound
		}
		return nil, fmt.Errorf("get certificate: %w", err)
	}
	return &c, nil
}
