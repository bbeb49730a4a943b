package learning

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/learnpro/learnpro/handler"
	"github.com/learnpro/learnpro/pkg/binder"
	"github.com/learnpro/learnpro/svc/exam"
)

// ExamService runs exams and certificates. *exam.Service implements it.
type ExamService interface {
	CreateExam(ctx context.Context, in exam.ExamInput) (*exam.Exam, error)
	CourseExams(ctx context.Context, courseID uuid.UUID) ([]exam.Exam, error)
	GetExam(ctx context.Context, userID, examID uuid.UUID) (*exam.Exam, error)
	SubmitAttempt(ctx context.Context, learner exam.Learner, examID uuid.UUID, answers []int) (*exam.Attempt, error)
	VerifyCertificate(ctx context.Context, number string) (*exam.Certificate, error)
	CertificateQR(ctx context.Context, number string, size int) ([]byte, error)
}

type examRoutes struct {
	*module
	svc ExamService
}

func newExamRoutes(m *module, svc ExamService) *examRoutes {
	return &examRoutes{module: m, svc: svc}
}

func (e *examRoutes) Handle() http.Handler {
	r := chi.NewRouter()
	r.Get("/{examID}", wrap(e.module, e.get, binder.Path(chi.URLParam)))
	r.Post("/{examID}/attempts", wrap(e.module, e.submit, binder.Path(chi.URLParam), binder.JSON()))
	return r
}

type examRequest struct {
	ExamID uuid.UUID `path:"examID" json:"-"`
}

func (e *examRoutes) get(ctx handler.Context, req examRequest) handler.Response {
	userID, _, err := caller(ctx)
	if err != nil {
		return e.fail(ctx, err)
	}
	ex, err := e.svc.GetExam(ctx, userID, req.ExamID)
	if err != nil {
		return e.fail(ctx, err)
	}
	return handler.JSON(ex)
}

type submitAttemptRequest struct {
	ExamID uuid.UUID `path:"examID" json:"-"`
	exam.Answers
}

func (e *examRoutes) submit(ctx handler.Context, req submitAttemptRequest) handler.Response {
	userID, claims, err := caller(ctx)
	if err != nil {
		return e.fail(ctx, err)
	}
	if err := e.validate.Struct(req.Answers); err != nil {
		return e.fail(ctx, err)
	}

	learner := exam.Learner{ID: userID, Email: claims.Email}
	attempt, err := e.svc.SubmitAttempt(ctx, learner, req.ExamID, req.Answers.Answers)
	if err != nil {
		return e.fail(ctx, err)
	}
	return handler.JSON(attempt, handler.WithJSONStatus(http.StatusCreated))
}

type certificateRoutes struct {
	*module
	svc ExamService
}

func newCertificateRoutes(m *module, svc ExamService) *certificateRoutes {
	return &certificateRoutes{module: m, svc: svc}
}

func (c *certificateRoutes) Handle() http.Handler {
	r := chi.NewRouter()
	r.Get("/{number}", wrap(c.module, c.verify, binder.Path(chi.URLParam)))
	r.Get("/{number}/qr.png", wrap(c.module, c.qr, binder.Path(chi.URLParam), binder.Query()))
	return r
}

type certificateRequest struct {
	Number string `path:"number"`
	Size   int    `query:"size"`
}

func (c *certificateRoutes) verify(ctx handler.Context, req certificateRequest) handler.Response {
	cert, err := c.svc.VerifyCertificate(ctx, req.Number)
	if err != nil {
		return c.fail(ctx, err)
	}
	return handler.JSON(cert)
}

func (c *certificateRoutes) qr(ctx handler.Context, req certificateRequest) handler.Response {
	png, err := c.svc.CertificateQR(ctx, req.Number, req.Size)
	if err != nil {
		return c.fail(ctx, err)
	}
	return handler.Bytes("image/png", png)
}
