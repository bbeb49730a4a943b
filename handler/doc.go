// Package handler provides typed HTTP handlers for the LearnPro API.
//
// A HandlerFunc receives a Context and a request value populated by binders,
// and returns a Response. Wrap adapts it to http.HandlerFunc:
//
//	r.Post("/v1/progress", handler.Wrap(updateProgress,
//		handler.WithBinders[handler.Context, UpdateProgressRequest](binder.JSON()),
//		handler.WithErrorHandler[handler.Context, UpdateProgressRequest](errHandler),
//	))
//
// Every response uses the JSONResponse envelope. Errors are classified by
// ClassifyError: ValidationError maps to 422 with field details, HTTPError to
// its own code and key, binder failures to 400, and anything else to a
// generic 500 so internal messages never reach the client.
package handler
