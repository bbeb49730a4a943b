package handler_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnpro/learnpro/handler"
	"github.com/learnpro/learnpro/pkg/binder"
)

func render(t *testing.T, resp handler.Response) (*httptest.ResponseRecorder, handler.JSONResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, resp.Render(w, r))

	var body handler.JSONResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestJSON(t *testing.T) {
	t.Parallel()

	t.Run("wraps data in success envelope", func(t *testing.T) {
		t.Parallel()
		w, body := render(t, handler.JSON(map[string]any{"hasAccess": true}))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
		assert.True(t, body.Success)
		assert.Equal(t, map[string]any{"hasAccess": true}, body.Data)
		assert.Empty(t, body.Error)
	})

	t.Run("custom status and meta", func(t *testing.T) {
		t.Parallel()
		w, body := render(t, handler.JSON(
			[]string{"a"},
			handler.WithJSONStatus(http.StatusCreated),
			handler.WithJSONMeta(map[string]any{"total": float64(1)}),
		))

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, map[string]any{"total": float64(1)}, body.Meta)
	})

	t.Run("error value becomes error response", func(t *testing.T) {
		t.Parallel()
		w, body := render(t, handler.JSON(handler.ErrNotFound))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.False(t, body.Success)
		assert.Equal(t, "not_found", body.Code)
	})
}

func TestJSONError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "http error uses status text",
			err:        handler.ErrForbidden,
			wantStatus: http.StatusForbidden,
			wantCode:   "forbidden",
			wantMsg:    "Forbidden",
		},
		{
			name:       "http error with message",
			err:        handler.NewHTTPError(http.StatusConflict, "subscription_exists").WithMessage("subscription already exists"),
			wantStatus: http.StatusConflict,
			wantCode:   "subscription_exists",
			wantMsg:    "subscription already exists",
		},
		{
			name:       "wrapped http error",
			err:        fmt.Errorf("checkout: %w", handler.ErrBadRequest),
			wantStatus: http.StatusBadRequest,
			wantCode:   "bad_request",
			wantMsg:    "Bad Request",
		},
		{
			name:       "binder error",
			err:        fmt.Errorf("%w: empty body", binder.ErrFailedToParseJSON),
			wantStatus: http.StatusBadRequest,
			wantCode:   "bad_request",
			wantMsg:    "failed to parse JSON request body: empty body",
		},
		{
			name:       "unknown error is hidden",
			err:        errors.New("pq: relation enrollments does not exist"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_server_error",
			wantMsg:    "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w, body := render(t, handler.JSONError(tt.err))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.False(t, body.Success)
			assert.Equal(t, tt.wantCode, body.Code)
			assert.Equal(t, tt.wantMsg, body.Error)
		})
	}

	t.Run("validation error carries details", func(t *testing.T) {
		t.Parallel()
		verr := handler.NewValidationError()
		verr.Add("course_id", "course_id is required")

		w, body := render(t, handler.JSONError(verr))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "validation_error", body.Code)
		assert.Equal(t, map[string][]string{"course_id": {"course_id is required"}}, body.Details)
	})
}

func TestValidationError(t *testing.T) {
	t.Parallel()

	verr := handler.NewValidationError()
	assert.True(t, verr.IsEmpty())
	assert.Equal(t, "validation failed", verr.Error())

	verr.Add("lesson_id", "lesson_id is required")
	verr.Add("course_id", "course_id must be a valid UUID")

	assert.False(t, verr.IsEmpty())
	assert.True(t, verr.Has("lesson_id"))
	assert.False(t, verr.Has("watch_time_seconds"))
	assert.Equal(t, "lesson_id is required", verr.Get("lesson_id"))
	assert.Equal(t, "validation error: course_id: course_id must be a valid UUID, lesson_id: lesson_id is required", verr.Error())
}
