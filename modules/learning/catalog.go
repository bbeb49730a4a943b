package learning

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/learnpro/learnpro/handler"
	"github.com/learnpro/learnpro/pkg/binder"
	"github.com/learnpro/learnpro/pkg/jwt"
	"github.com/learnpro/learnpro/svc/catalog"
	"github.com/learnpro/learnpro/svc/subscription"
)

// CatalogService reads and edits courses and plans. *catalog.Service
// implements it.
type CatalogService interface {
	ListCourses(ctx context.Context, f catalog.CourseFilter) ([]catalog.Course, error)
	Course(ctx context.Context, id uuid.UUID, includeUnpublished bool) (*catalog.Course, error)
	ListPlans(ctx context.Context) ([]catalog.Plan, error)
	CreateCourse(ctx context.Context, in catalog.CourseInput) (*catalog.Course, error)
	UpdateCourse(ctx context.Context, id uuid.UUID, u catalog.CourseUpdate) (*catalog.Course, error)
	SetPublished(ctx context.Context, id uuid.UUID, published bool) (*catalog.Course, error)
	AddLesson(ctx context.Context, in catalog.LessonInput) (*catalog.Lesson, error)
}

// courseView is a course as a learner sees it. Locked is true when the
// caller's current subscription would not open the course.
type courseView struct {
	catalog.Course
	Locked bool `json:"locked"`
}

type catalogRoutes struct {
	*module
	svc     CatalogService
	access  AccessService
	billing BillingService
}

func newCatalogRoutes(m *module, svc CatalogService, acc AccessService, bill BillingService) *catalogRoutes {
	return &catalogRoutes{module: m, svc: svc, access: acc, billing: bill}
}

type listCoursesRequest struct {
	Tier   string `query:"tier"`
	Query  string `query:"q"`
	Limit  int    `query:"limit"`
	Offset int    `query:"offset"`
}

func (req listCoursesRequest) filter() (catalog.CourseFilter, error) {
	f := catalog.CourseFilter{Query: req.Query, Limit: req.Limit, Offset: req.Offset}
	if req.Tier != "" {
		tier, err := catalog.ParseTier(req.Tier)
		if err != nil {
			return f, err
		}
		f.Tier = tier
	}
	return f, nil
}

func (c *catalogRoutes) listCourses() http.HandlerFunc {
	return wrap(c.module, func(ctx handler.Context, req listCoursesRequest) handler.Response {
		f, err := req.filter()
		if err != nil {
			return c.fail(ctx, err)
		}
		courses, err := c.svc.ListCourses(ctx, f)
		if err != nil {
			return c.fail(ctx, err)
		}

		tier, err := c.callerTier(ctx)
		if err != nil {
			return c.fail(ctx, err)
		}
		views := make([]courseView, len(courses))
		for i, course := range courses {
			views[i] = courseView{Course: course, Locked: tier == "" || !tier.Includes(course.Tier)}
		}
		return handler.JSON(views)
	}, binder.Query())
}

// callerTier is the tier of the caller's active subscription, or "" for
// anonymous callers and users without one.
func (c *catalogRoutes) callerTier(ctx context.Context) (catalog.Tier, error) {
	userID := jwt.UserIDFromContext(ctx)
	if userID == uuid.Nil {
		return "", nil
	}
	sub, err := c.billing.Current(ctx, userID)
	if errors.Is(err, subscription.ErrSubscriptionNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return sub.Tier, nil
}

func (c *catalogRoutes) getCourse() http.HandlerFunc {
	return wrap(c.module, func(ctx handler.Context, req courseRequest) handler.Response {
		course, err := c.svc.Course(ctx, req.CourseID, false)
		if err != nil {
			return c.fail(ctx, err)
		}

		view := courseView{Course: *course, Locked: true}
		if userID := jwt.UserIDFromContext(ctx); userID != uuid.Nil {
			d, err := c.access.CanAccess(ctx, userID, course.ID)
			if err != nil {
				return c.fail(ctx, err)
			}
			view.Locked = !d.HasAccess
		}
		return handler.JSON(view)
	}, binder.Path(chi.URLParam))
}

func (c *catalogRoutes) listPlans() http.HandlerFunc {
	return wrap(c.module, func(ctx handler.Context, _ struct{}) handler.Response {
		plans, err := c.svc.ListPlans(ctx)
		if err != nil {
			return c.fail(ctx, err)
		}
		return handler.JSON(plans)
	})
}
