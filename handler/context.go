package handler

import (
	"context"
	"net/http"
	"time"
)

// Context is the request scoped value handed to every HandlerFunc. It is a
// context.Context backed by the request's context, so it can be passed
// straight to services.
type Context interface {
	context.Context
	Request() *http.Request
	ResponseWriter() http.ResponseWriter
}

// NewContext binds w and r into a Context.
func NewContext(w http.ResponseWriter, r *http.Request) Context {
	return requestContext{w: w, r: r}
}

type requestContext struct {
	w http.ResponseWriter
	r *http.Request
}

func (c requestContext) Request() *http.Request              { return c.r }
func (c requestContext) ResponseWriter() http.ResponseWriter { return c.w }

func (c requestContext) Deadline() (time.Time, bool) { return c.r.Context().Deadline() }
func (c requestContext) Done() <-chan struct{}       { return c.r.Context().Done() }
func (c requestContext) Err() error                  { return c.r.Context().Err() }
func (c requestContext) Value(key any) any           { return c.r.Context().Value(key) }
