package learning

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/learnpro/learnpro/handler"
	"github.com/learnpro/learnpro/pkg/jwt"
)

// authError renders jwt middleware rejections in the JSON envelope.
func (m *module) authError(w http.ResponseWriter, r *http.Request, err error) {
	status := handler.ErrUnauthorized.WithMessage("authentication required")
	switch {
	case errors.Is(err, jwt.ErrForbidden):
		status = handler.ErrForbidden.WithMessage("admin role required")
	case errors.Is(err, jwt.ErrExpiredToken):
		status = handler.NewHTTPError(http.StatusUnauthorized, "token_expired").WithMessage("token has expired")
	}
	m.onError(handler.NewContext(w, r), fmt.Errorf("%w: %w", status, err))
}

// caller returns the authenticated user and their claims.
func caller(ctx context.Context) (uuid.UUID, *jwt.Claims, error) {
	claims, ok := jwt.ClaimsFromContext(ctx)
	if !ok {
		return uuid.Nil, nil, handler.ErrUnauthorized.WithMessage("authentication required")
	}
	id, err := claims.UserID()
	if err != nil {
		return uuid.Nil, nil, handler.ErrUnauthorized.WithMessage("invalid token subject")
	}
	return id, claims, nil
}

// actingAs resolves the user a request is about. Learners may only act for
// themselves; admins may name any user.
func actingAs(ctx context.Context, requested uuid.UUID) (uuid.UUID, error) {
	id, claims, err := caller(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	if requested == uuid.Nil || requested == id {
		return id, nil
	}
	if !claims.IsAdmin() {
		return uuid.Nil, handler.ErrForbidden.WithMessage("cannot act for another user")
	}
	return requested, nil
}

func wrap[R any](m *module, h func(handler.Context, R) handler.Response, binders ...handler.Bind) http.HandlerFunc {
	return handler.Wrap(handler.HandlerFunc[handler.Context, R](h),
		handler.WithBinders[handler.Context, R](binders...),
		handler.WithErrorHandler[handler.Context, R](m.onError),
	)
}
