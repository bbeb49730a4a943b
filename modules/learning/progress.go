package learning

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/learnpro/learnpro/handler"
	"github.com/learnpro/learnpro/pkg/binder"
	"github.com/learnpro/learnpro/svc/enrollment"
	"github.com/learnpro/learnpro/svc/progress"
)

// ProgressService records lesson progress. *progress.Service implements it.
type ProgressService interface {
	Record(ctx context.Context, u progress.Update) (*progress.Result, error)
	CourseProgress(ctx context.Context, userID, courseID uuid.UUID) (*progress.CourseProgress, error)
}

// EnrollmentService lists enrollments. *enrollment.Repository implements it.
type EnrollmentService interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]enrollment.Enrollment, error)
	ListByCourse(ctx context.Context, courseID uuid.UUID) ([]enrollment.Enrollment, error)
}

type progressRoutes struct {
	*module
	svc ProgressService
}

func newProgressRoutes(m *module, svc ProgressService) *progressRoutes {
	return &progressRoutes{module: m, svc: svc}
}

func (p *progressRoutes) Handle() http.Handler {
	r := chi.NewRouter()
	r.Post("/", wrap(p.module, p.record, binder.JSON()))
	return r
}

func (p *progressRoutes) record(ctx handler.Context, req progress.Update) handler.Response {
	userID, claims, err := caller(ctx)
	if err != nil {
		return p.fail(ctx, err)
	}
	req.UserID = userID
	req.Email = claims.Email
	if err := p.validate.Struct(req); err != nil {
		return p.fail(ctx, err)
	}

	res, err := p.svc.Record(ctx, req)
	if err != nil {
		return p.fail(ctx, err)
	}
	return handler.JSON(res)
}

type courseRequest struct {
	CourseID uuid.UUID `path:"courseID" json:"-"`
}

func courseProgressHandler(m *module, svc ProgressService) http.HandlerFunc {
	return wrap(m, func(ctx handler.Context, req courseRequest) handler.Response {
		userID, _, err := caller(ctx)
		if err != nil {
			return m.fail(ctx, err)
		}
		cp, err := svc.CourseProgress(ctx, userID, req.CourseID)
		if err != nil {
			return m.fail(ctx, err)
		}
		return handler.JSON(cp)
	}, binder.Path(chi.URLParam))
}

func myEnrollmentsHandler(m *module, svc EnrollmentService) http.HandlerFunc {
	return wrap(m, func(ctx handler.Context, _ struct{}) handler.Response {
		userID, _, err := caller(ctx)
		if err != nil {
			return m.fail(ctx, err)
		}
		list, err := svc.ListByUser(ctx, userID)
		if err != nil {
			return m.fail(ctx, err)
		}
		return handler.JSON(list)
	})
}
