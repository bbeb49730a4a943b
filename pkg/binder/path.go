package binder

import (
	"fmt"
	"net/http"
)

// Path creates a path parameter binder using the given extractor, typically
// chi.URLParam. Fields are matched by their `path:"name"` tag; `path:"-"`
// skips a field and untagged fields use their lowercased name.
//
//	type GetCourseRequest struct {
//		CourseID string `path:"courseID"`
//	}
//
//	r.Get("/v1/courses/{courseID}", handler.Wrap(h,
//		handler.WithBinders[handler.Context, GetCourseRequest](binder.Path(chi.URLParam)),
//	))
func Path(extractor func(r *http.Request, key string) string) func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		if extractor == nil {
			return fmt.Errorf("%w: extractor function is nil", ErrFailedToParsePath)
		}
		return bindFields(v, "path", func(name string) []string {
			if value := extractor(r, name); value != "" {
				return []string{value}
			}
			return nil
		}, ErrFailedToParsePath)
	}
}

// Query creates a query string binder using `query:"name"` tags. Slices accept
// both repeated parameters and comma separated values.
func Query() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		values := r.URL.Query()
		return bindFields(v, "query", func(name string) []string {
			return values[name]
		}, ErrFailedToParseQuery)
	}
}
