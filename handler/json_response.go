package handler

import (
	"encoding/json"
	"errors"
	"maps"
	"net/http"

	"github.com/learnpro/learnpro/pkg/binder"
)

// JSONResponse is the envelope every API response is wrapped in.
//
//	{"success": true, "data": {...}}
//	{"success": false, "error": "Not Found", "code": "course_not_found"}
type JSONResponse struct {
	Success bool                `json:"success"`
	Data    any                 `json:"data,omitempty"`
	Meta    map[string]any      `json:"meta,omitempty"`
	Error   string              `json:"error,omitempty"`
	Code    string              `json:"code,omitempty"`
	Details map[string][]string `json:"details,omitempty"`
}

type jsonResponse struct {
	status int
	body   JSONResponse
}

func (j jsonResponse) Render(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(j.status)
	return json.NewEncoder(w).Encode(j.body)
}

// JSONOption configures JSON response
type JSONOption func(*jsonResponse)

// WithJSONStatus sets custom HTTP status code
func WithJSONStatus(status int) JSONOption {
	return func(r *jsonResponse) {
		r.status = status
	}
}

// WithJSONMeta adds metadata to response
func WithJSONMeta(meta map[string]any) JSONOption {
	return func(r *jsonResponse) {
		r.body.Meta = meta
	}
}

// JSON creates a success response carrying v as data.
// Passing an error is equivalent to JSONError.
func JSON(v any, opts ...JSONOption) Response {
	if err, ok := v.(error); ok {
		return JSONError(err, opts...)
	}

	r := &jsonResponse{
		status: http.StatusOK,
		body:   JSONResponse{Success: true, Data: v},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// JSONError creates an error response. The status code and key are derived
// from the error; unknown errors become a generic 500.
func JSONError(err error, opts ...JSONOption) Response {
	info := ClassifyError(err)
	r := &jsonResponse{
		status: info.StatusCode,
		body: JSONResponse{
			Error:   info.Message,
			Code:    info.Code,
			Details: info.Details,
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ErrorInfo is the client facing view of an error.
type ErrorInfo struct {
	StatusCode int
	Code       string
	Message    string
	Details    map[string][]string
}

// ClassifyError maps an error to its status code, key and public message.
func ClassifyError(err error) ErrorInfo {
	info := ErrorInfo{
		StatusCode: http.StatusInternalServerError,
		Code:       ErrInternalServerError.Key,
		Message:    "internal server error",
	}
	if err == nil {
		return info
	}

	var validationErr ValidationError
	if errors.As(err, &validationErr) {
		info.StatusCode = http.StatusUnprocessableEntity
		info.Code = "validation_error"
		info.Message = "validation failed"
		if len(validationErr) > 0 {
			info.Details = make(map[string][]string, len(validationErr))
			maps.Copy(info.Details, validationErr)
		}
		return info
	}

	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		info.StatusCode = httpErr.Code
		info.Code = httpErr.Key
		info.Message = httpErr.Message
		if info.Message == "" {
			info.Message = http.StatusText(httpErr.Code)
		}
		return info
	}

	if binder.IsBindError(err) {
		info.StatusCode = http.StatusBadRequest
		info.Code = ErrBadRequest.Key
		info.Message = err.Error()
	}

	return info
}
