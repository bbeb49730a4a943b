package learning

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/learnpro/learnpro/handler"
	"github.com/learnpro/learnpro/pkg/binder"
	"github.com/learnpro/learnpro/svc/catalog"
	"github.com/learnpro/learnpro/svc/exam"
)

// adminRoutes is the back-office API. The router guards it with
// jwt.RequireAdmin.
type adminRoutes struct {
	*module
	catalog     CatalogService
	enrollments EnrollmentService
	exams       ExamService
}

func newAdminRoutes(m *module, cat CatalogService, enrollments EnrollmentService, exams ExamService) *adminRoutes {
	return &adminRoutes{module: m, catalog: cat, enrollments: enrollments, exams: exams}
}

func (a *adminRoutes) Handle() http.Handler {
	path := binder.Path(chi.URLParam)

	r := chi.NewRouter()
	r.Route("/courses", func(r chi.Router) {
		r.Get("/", wrap(a.module, a.listCourses, binder.Query()))
		r.Post("/", wrap(a.module, a.createCourse, binder.JSON()))

		r.Route("/{courseID}", func(r chi.Router) {
			r.Get("/", wrap(a.module, a.getCourse, path))
			r.Patch("/", wrap(a.module, a.updateCourse, path, binder.JSON()))
			r.Post("/publish", wrap(a.module, a.publish(true), path))
			r.Post("/unpublish", wrap(a.module, a.publish(false), path))
			r.Post("/lessons", wrap(a.module, a.addLesson, path, binder.JSON()))
			r.Get("/enrollments", wrap(a.module, a.listEnrollments, path))
			r.Get("/exams", wrap(a.module, a.listExams, path))
			r.Post("/exams", wrap(a.module, a.createExam, path, binder.JSON()))
		})
	})
	return r
}

func (a *adminRoutes) listCourses(ctx handler.Context, req listCoursesRequest) handler.Response {
	f, err := req.filter()
	if err != nil {
		return a.fail(ctx, err)
	}
	f.IncludeUnpublished = true
	courses, err := a.catalog.ListCourses(ctx, f)
	if err != nil {
		return a.fail(ctx, err)
	}
	return handler.JSON(courses)
}

func (a *adminRoutes) createCourse(ctx handler.Context, req catalog.CourseInput) handler.Response {
	if err := a.validate.Struct(req); err != nil {
		return a.fail(ctx, err)
	}
	course, err := a.catalog.CreateCourse(ctx, req)
	if err != nil {
		return a.fail(ctx, err)
	}
	return handler.JSON(course, handler.WithJSONStatus(http.StatusCreated))
}

func (a *adminRoutes) getCourse(ctx handler.Context, req courseRequest) handler.Response {
	course, err := a.catalog.Course(ctx, req.CourseID, true)
	if err != nil {
		return a.fail(ctx, err)
	}
	return handler.JSON(course)
}

type updateCourseRequest struct {
	CourseID uuid.UUID `path:"courseID" json:"-"`
	catalog.CourseUpdate
}

func (a *adminRoutes) updateCourse(ctx handler.Context, req updateCourseRequest) handler.Response {
	if err := a.validate.Struct(req.CourseUpdate); err != nil {
		return a.fail(ctx, err)
	}
	course, err := a.catalog.UpdateCourse(ctx, req.CourseID, req.CourseUpdate)
	if err != nil {
		return a.fail(ctx, err)
	}
	return handler.JSON(course)
}

func (a *adminRoutes) publish(published bool) func(handler.Context, courseRequest) handler.Response {
	return func(ctx handler.Context, req courseRequest) handler.Response {
		course, err := a.catalog.SetPublished(ctx, req.CourseID, published)
		if err != nil {
			return a.fail(ctx, err)
		}
		return handler.JSON(course)
	}
}

type addLessonRequest struct {
	CourseID uuid.UUID `path:"courseID" json:"-"`
	catalog.LessonInput
}

func (a *adminRoutes) addLesson(ctx handler.Context, req addLessonRequest) handler.Response {
	in := req.LessonInput
	in.CourseID = req.CourseID
	if err := a.validate.Struct(in); err != nil {
		return a.fail(ctx, err)
	}
	lesson, err := a.catalog.AddLesson(ctx, in)
	if err != nil {
		return a.fail(ctx, err)
	}
	return handler.JSON(lesson, handler.WithJSONStatus(http.StatusCreated))
}

func (a *adminRoutes) listEnrollments(ctx handler.Context, req courseRequest) handler.Response {
	list, err := a.enrollments.ListByCourse(ctx, req.CourseID)
	if err != nil {
		return a.fail(ctx, err)
	}
	return handler.JSON(list)
}

func (a *adminRoutes) listExams(ctx handler.Context, req courseRequest) handler.Response {
	list, err := a.exams.CourseExams(ctx, req.CourseID)
	if err != nil {
		return a.fail(ctx, err)
	}
	return handler.JSON(list)
}

type createExamRequest struct {
	CourseID uuid.UUID `path:"courseID" json:"-"`
	exam.ExamInput
}

func (a *adminRoutes) createExam(ctx handler.Context, req createExamRequest) handler.Response {
	in := req.ExamInput
	in.CourseID = req.CourseID
	if err := a.validate.Struct(in); err != nil {
		return a.fail(ctx, err)
	}
	ex, err := a.exams.CreateExam(ctx, in)
	if err != nil {
		return a.fail(ctx, err)
	}
	return handler.JSON(ex, handler.WithJSONStatus(http.StatusCreated))
}
