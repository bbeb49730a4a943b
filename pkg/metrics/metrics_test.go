package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/learnpro/learnpro/pkg/metrics"
)

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/v1/courses/{courseID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/courses/"+id, nil))
	}

	assert.InDelta(t, 2, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/v1/courses/{courseID}", "404")), 0)
}

func TestDomainCounters(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	m.AccessDecision(true)
	m.AccessDecision(false)
	m.AccessDecision(false)
	m.Webhook("paddle", "subscription_created", "processed")
	m.Expired(3)
	m.Expired(0)

	assert.InDelta(t, 1, testutil.ToFloat64(m.AccessDecisions.WithLabelValues("granted")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.AccessDecisions.WithLabelValues("denied")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.WebhookEvents.WithLabelValues("paddle", "subscription_created", "processed")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.SubscriptionsExpired), 0)
}

func TestNilMetrics(t *testing.T) {
	t.Parallel()

	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.AccessDecision(true)
		m.Checkout("paddle", "created")
		m.CertificateIssued()
	})

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	assert.NotNil(t, m.Middleware(next))
}

func TestHandler(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	m.CertificateIssued()

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "learnpro_certificates_issued_total 1")
}
