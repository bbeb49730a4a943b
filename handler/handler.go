package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/learnpro/learnpro/pkg/binder"
)

// HandlerFunc is a typed endpoint. Binders fill R from the request before it
// runs, and the returned Response is rendered by Wrap.
//
//	h := handler.HandlerFunc[handler.Context, checkAccessRequest](
//		func(ctx handler.Context, req checkAccessRequest) handler.Response {
//			decision, err := svc.Check(ctx, req.UserID, req.CourseID)
//			if err != nil {
//				return handler.JSONError(err)
//			}
//			return handler.JSON(decision)
//		},
//	)
type HandlerFunc[C Context, R any] func(ctx C, req R) Response

// Response writes itself to the client.
type Response interface {
	Render(w http.ResponseWriter, r *http.Request) error
}

// Bind decodes part of a request into v.
type Bind func(r *http.Request, v any) error

// ErrorHandler answers requests whose binding, handling or rendering failed.
type ErrorHandler[C Context] func(ctx C, err error)

// WrapOption configures Wrap.
type WrapOption[C Context, R any] func(*wrapConfig[C, R])

type wrapConfig[C Context, R any] struct {
	binders      []Bind
	errorHandler ErrorHandler[C]
}

// WithBinders runs binders in order. A binder returning
// binder.ErrBinderNotApplicable is skipped.
//
//	r.Post("/courses/{courseID}/lessons", handler.Wrap(h,
//		handler.WithBinders[handler.Context, addLessonRequest](
//			binder.Path(chi.URLParam),
//			binder.JSON(),
//		),
//	))
func WithBinders[C Context, R any](binders ...Bind) WrapOption[C, R] {
	return func(c *wrapConfig[C, R]) {
		c.binders = append(c.binders, binders...)
	}
}

// WithErrorHandler replaces the default error handler, which renders the
// error envelope without logging.
func WithErrorHandler[C Context, R any](h ErrorHandler[C]) WrapOption[C, R] {
	return func(c *wrapConfig[C, R]) {
		if h != nil {
			c.errorHandler = h
		}
	}
}

func renderError[C Context](ctx C, err error) {
	_ = JSONError(err).Render(ctx.ResponseWriter(), ctx.Request())
}

// Wrap adapts h to net/http. C must be satisfied by the value NewContext
// returns.
func Wrap[C Context, R any](h HandlerFunc[C, R], opts ...WrapOption[C, R]) http.HandlerFunc {
	cfg := &wrapConfig[C, R]{errorHandler: renderError[C]}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, ok := NewContext(w, r).(C)
		if !ok {
			panic(fmt.Sprintf("handler: %T does not implement the requested context type", NewContext(w, r)))
		}

		var req R
		for _, bind := range cfg.binders {
			err := bind(r, &req)
			if errors.Is(err, binder.ErrBinderNotApplicable) {
				continue
			}
			if err != nil {
				cfg.errorHandler(ctx, err)
				return
			}
		}

		resp := h(ctx, req)
		if resp == nil {
			cfg.errorHandler(ctx, ErrNilResponse)
			return
		}
		if err := resp.Render(w, r); err != nil {
			cfg.errorHandler(ctx, err)
		}
	}
}
