package learning

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/learnpro/learnpro/handler"
	"github.com/learnpro/learnpro/pkg/billing"
	"github.com/learnpro/learnpro/pkg/logger"
	"github.com/learnpro/learnpro/pkg/qrcode"
	"github.com/learnpro/learnpro/svc/catalog"
	"github.com/learnpro/learnpro/svc/enrollment"
	"github.com/learnpro/learnpro/svc/exam"
	"github.com/learnpro/learnpro/svc/progress"
	"github.com/learnpro/learnpro/svc/subscription"
)

// errorMapping turns a domain error into a client error. An empty message
// exposes the domain error text, which is safe for these sentinels.
type errorMapping struct {
	target  error
	status  int
	key     string
	message string
}

var errorMappings = []errorMapping{
	{progress.ErrNotEnrolled, http.StatusForbidden, "not_enrolled", ""},
	{exam.ErrNotEnrolled, http.StatusForbidden, "not_enrolled", ""},
	{progress.ErrAccessRevoked, http.StatusForbidden, "access_revoked", ""},
	{exam.ErrAccessRevoked, http.StatusForbidden, "access_revoked", ""},

	{catalog.ErrCourseNotFound, http.StatusNotFound, "course_not_found", ""},
	{catalog.ErrLessonNotFound, http.StatusNotFound, "lesson_not_found", ""},
	{catalog.ErrPlanNotFound, http.StatusNotFound, "plan_not_found", ""},
	{enrollment.ErrNotFound, http.StatusNotFound, "enrollment_not_found", ""},
	{subscription.ErrSubscriptionNotFound, http.StatusNotFound, "subscription_not_found", ""},
	{subscription.ErrNoPortal, http.StatusNotFound, "portal_unavailable", "no customer portal for this subscription"},
	{exam.ErrExamNotFound, http.StatusNotFound, "exam_not_found", ""},
	{exam.ErrCertificateNotFound, http.StatusNotFound, "certificate_not_found", ""},

	{subscription.ErrSubscriptionAlreadyExists, http.StatusConflict, "subscription_already_exists", ""},

	{billing.ErrWebhookVerificationFailed, http.StatusUnauthorized, "webhook_verification_failed", "webhook signature verification failed"},
	{billing.ErrInvalidWebhookPayload, http.StatusBadRequest, "invalid_webhook_payload", "invalid webhook payload"},
	{billing.ErrUnknownProvider, http.StatusBadRequest, "unknown_provider", "unknown billing provider"},
	{subscription.ErrInvalidWebhookUser, http.StatusBadRequest, "invalid_webhook_payload", "webhook does not reference a valid user"},
	{subscription.ErrPlanRequired, http.StatusBadRequest, "plan_required", ""},
	{catalog.ErrInvalidTier, http.StatusBadRequest, "invalid_tier", ""},
	{catalog.ErrNothingToUpdate, http.StatusBadRequest, "nothing_to_update", ""},

	{progress.ErrLessonNotInCourse, http.StatusUnprocessableEntity, "lesson_not_in_course", ""},
	{exam.ErrInvalidQuestion, http.StatusUnprocessableEntity, "invalid_question", ""},
	{exam.ErrAnswerCount, http.StatusUnprocessableEntity, "answer_count_mismatch", ""},
	{qrcode.ErrInvalidSize, http.StatusBadRequest, "invalid_size", ""},

	{billing.ErrProviderUnavailable, http.StatusServiceUnavailable, "provider_unavailable", "payment provider temporarily unavailable"},
	{billing.ErrProviderRequest, http.StatusBadGateway, "provider_error", "payment provider request failed"},
}

// mapError leaves transport errors alone and translates known domain errors.
// Anything else stays unknown and renders as a generic 500.
func mapError(err error) error {
	var httpErr handler.HTTPError
	var validationErr handler.ValidationError
	if errors.As(err, &httpErr) || errors.As(err, &validationErr) {
		return err
	}
	for _, em := range errorMappings {
		if !errors.Is(err, em.target) {
			continue
		}
		msg := em.message
		if msg == "" {
			msg = err.Error()
		}
		return handler.NewHTTPError(em.status, em.key).WithMessage(msg)
	}
	return err
}

// fail logs err with request context and renders the error envelope.
func (m *module) fail(ctx handler.Context, err error) handler.Response {
	mapped := mapError(err)
	info := handler.ClassifyError(mapped)

	level := slog.LevelWarn
	if info.StatusCode >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	r := ctx.Request()
	m.log.LogAttrs(r.Context(), level, "request failed",
		logger.Error(err),
		slog.Int("status_code", info.StatusCode),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)
	return handler.JSONError(mapped)
}
