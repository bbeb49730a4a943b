package learning

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/learnpro/learnpro/handler"
	"github.com/learnpro/learnpro/pkg/binder"
	"github.com/learnpro/learnpro/svc/access"
)

// AccessService decides course access. *access.Service implements it.
type AccessService interface {
	Check(ctx context.Context, userID, courseID uuid.UUID) (*access.Decision, error)
	CanAccess(ctx context.Context, userID, courseID uuid.UUID) (*access.Decision, error)
}

type accessRoutes struct {
	*module
	svc AccessService
}

func newAccessRoutes(m *module, svc AccessService) *accessRoutes {
	return &accessRoutes{module: m, svc: svc}
}

func (a *accessRoutes) Handle() http.Handler {
	r := chi.NewRouter()
	r.Post("/check", wrap(a.module, a.check, binder.JSON()))
	return r
}

// checkAccessRequest keeps the camelCase body the SPA already sends.
// UserID defaults to the caller.
type checkAccessRequest struct {
	UserID   uuid.UUID `json:"userId"`
	CourseID uuid.UUID `json:"courseId" validate:"required"`
}

func (a *accessRoutes) check(ctx handler.Context, req checkAccessRequest) handler.Response {
	if err := a.validate.Struct(req); err != nil {
		return a.fail(ctx, err)
	}
	userID, err := actingAs(ctx, req.UserID)
	if err != nil {
		return a.fail(ctx, err)
	}

	decision, err := a.svc.Check(ctx, userID, req.CourseID)
	if err != nil {
		return a.fail(ctx, err)
	}
	return handler.JSON(decision)
}
