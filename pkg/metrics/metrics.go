package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "learnpro"

// Metrics holds the service's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests         *prometheus.CounterVec
	HTTPDuration         *prometheus.HistogramVec
	AccessDecisions      *prometheus.CounterVec
	Enrollments          prometheus.Counter
	CheckoutSessions     *prometheus.CounterVec
	WebhookEvents        *prometheus.CounterVec
	ProgressUpdates      prometheus.Counter
	ExamAttempts         *prometheus.CounterVec
	CertificatesIssued   prometheus.Counter
	SubscriptionsExpired prometheus.Counter
}

// New registers all collectors on a fresh registry together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		AccessDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "access_decisions_total",
			Help:      "Course access decisions by outcome.",
		}, []string{"outcome"}),
		Enrollments: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrollment_upserts_total",
			Help:      "Enrollment upserts performed on granted access.",
		}),
		CheckoutSessions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_sessions_total",
			Help:      "Checkout sessions by provider and outcome.",
		}, []string{"provider", "outcome"}),
		WebhookEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Billing webhook events by provider, event type and outcome.",
		}, []string{"provider", "type", "outcome"}),
		ProgressUpdates: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lesson_progress_updates_total",
			Help:      "Lesson progress updates recorded.",
		}),
		ExamAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exam_attempts_total",
			Help:      "Exam attempts by result.",
		}, []string{"result"}),
		CertificatesIssued: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "certificates_issued_total",
			Help:      "Certificates issued.",
		}),
		SubscriptionsExpired: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscriptions_expired_total",
			Help:      "Subscriptions marked expired by the sweeper.",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) AccessDecision(granted bool) {
	if m == nil {
		return
	}
	outcome := "denied"
	if granted {
		outcome = "granted"
	}
	m.AccessDecisions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) EnrollmentUpserted() {
	if m == nil {
		return
	}
	m.Enrollments.Inc()
}

func (m *Metrics) Checkout(provider, outcome string) {
	if m == nil {
		return
	}
	m.CheckoutSessions.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) Webhook(provider, eventType, outcome string) {
	if m == nil {
		return
	}
	m.WebhookEvents.WithLabelValues(provider, eventType, outcome).Inc()
}

func (m *Metrics) ProgressUpdated() {
	if m == nil {
		return
	}
	m.ProgressUpdates.Inc()
}

func (m *Metrics) ExamAttempt(passed bool) {
	if m == nil {
		return
	}
	result := "failed"
	if passed {
		result = "passed"
	}
	m.ExamAttempts.WithLabelValues(result).Inc()
}

func (m *Metrics) CertificateIssued() {
	if m == nil {
		return
	}
	m.CertificatesIssued.Inc()
}

func (m *Metrics) Expired(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.SubscriptionsExpired.Add(float64(n))
}
