package learning

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/learnpro/learnpro/handler"
	"github.com/learnpro/learnpro/pkg/httpserver"
	"github.com/learnpro/learnpro/pkg/jwt"
	"github.com/learnpro/learnpro/pkg/metrics"
	"github.com/learnpro/learnpro/pkg/requestid"
	"github.com/learnpro/learnpro/pkg/validator"
)

// Config holds HTTP surface settings.
type Config struct {
	AllowedOrigins    []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`
	CheckoutRateLimit int      `env:"CHECKOUT_RATE_LIMIT" envDefault:"10"`
	WebhookRateLimit  int      `env:"WEBHOOK_RATE_LIMIT" envDefault:"300"`
}

// Mountable is a group of routes that can be mounted under a prefix.
type Mountable interface {
	Handle() http.Handler
}

// RouterOptions configures the API router. Auth and the services the mounted
// groups need are required; Metrics and Readiness are optional.
type RouterOptions struct {
	Config      Config
	Auth        *jwt.Service
	Access      AccessService
	Billing     BillingService
	Progress    ProgressService
	Enrollments EnrollmentService
	Catalog     CatalogService
	Exams       ExamService
	Metrics     *metrics.Metrics
	Readiness   []httpserver.Check
	Logger      *slog.Logger
}

// module carries what every route group shares.
type module struct {
	log      *slog.Logger
	validate *validator.Validator
	onError  handler.ErrorHandler[handler.Context]
}

func newModule(log *slog.Logger) *module {
	if log == nil {
		log = slog.Default()
	}
	return &module{
		log:      log,
		validate: validator.New(),
		onError:  handler.NewErrorHandler(log),
	}
}

// Router builds the versioned JSON API together with the ops endpoints.
//
//	r := learning.Router(learning.RouterOptions{
//		Auth:    jwtSvc,
//		Access:  accessSvc,
//		Billing: subscriptionSvc,
//		...
//	})
//	srv.Run(ctx, r)
func Router(opts RouterOptions) chi.Router {
	m := newModule(opts.Logger)

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(opts.Metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.Config.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", requestid.Header},
		ExposedHeaders:   []string{requestid.Header},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", httpserver.LivenessHandler())
	r.Get("/readyz", httpserver.ReadinessHandler(m.log, opts.Readiness...))
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics.Handler())
	}

	authenticate := jwt.Middleware(opts.Auth, m.authError)
	identify := jwt.Optional(opts.Auth, m.authError)

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(identify)
			catalog := newCatalogRoutes(m, opts.Catalog, opts.Access, opts.Billing)
			r.Get("/courses", catalog.listCourses())
			r.Get("/courses/{courseID}", catalog.getCourse())
			r.Get("/plans", catalog.listPlans())
		})

		r.Group(func(r chi.Router) {
			r.Use(httprate.LimitByIP(rateOrDefault(opts.Config.WebhookRateLimit, 300), time.Minute))
			r.Mount("/webhooks", newWebhookRoutes(m, opts.Billing).Handle())
		})

		r.Mount("/certificates", newCertificateRoutes(m, opts.Exams).Handle())

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Mount("/access", newAccessRoutes(m, opts.Access).Handle())
			r.Mount("/billing", newBillingRoutes(m, opts.Billing).Handle())
			r.With(httprate.LimitByIP(rateOrDefault(opts.Config.CheckoutRateLimit, 10), time.Minute)).
				Post("/checkout", checkoutHandler(m, opts.Billing))
			r.Mount("/progress", newProgressRoutes(m, opts.Progress).Handle())
			r.Get("/courses/{courseID}/progress", courseProgressHandler(m, opts.Progress))
			r.Get("/me/enrollments", myEnrollmentsHandler(m, opts.Enrollments))
			r.Mount("/exams", newExamRoutes(m, opts.Exams).Handle())

			r.With(jwt.RequireAdmin(m.authError)).
				Mount("/admin", newAdminRoutes(m, opts.Catalog, opts.Enrollments, opts.Exams).Handle())
		})
	})

	return r
}

func rateOrDefault(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}
