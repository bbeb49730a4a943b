package binder_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnpro/learnpro/pkg/binder"
)

type progressRequest struct {
	LessonID    string `json:"lesson_id"`
	CourseID    string `json:"course_id"`
	WatchTime   int    `json:"watch_time_seconds"`
	IsCompleted bool   `json:"is_completed"`
}

func jsonRequest(body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json; charset=utf-8")
	return r
}

func TestJSON(t *testing.T) {
	t.Parallel()

	t.Run("decodes and trims", func(t *testing.T) {
		t.Parallel()
		var req progressRequest
		err := binder.JSON()(jsonRequest(`{"lesson_id":" l1 ","course_id":"c1","watch_time_seconds":42,"is_completed":true}`), &req)
		require.NoError(t, err)
		assert.Equal(t, progressRequest{LessonID: "l1", CourseID: "c1", WatchTime: 42, IsCompleted: true}, req)
	})

	tests := []struct {
		name    string
		req     func() *http.Request
		wantErr error
	}{
		{
			name: "missing content type",
			req: func() *http.Request {
				return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
			},
			wantErr: binder.ErrMissingContentType,
		},
		{
			name: "wrong content type",
			req: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
				r.Header.Set("Content-Type", "text/plain")
				return r
			},
			wantErr: binder.ErrUnsupportedMediaType,
		},
		{
			name:    "empty body",
			req:     func() *http.Request { return jsonRequest("") },
			wantErr: binder.ErrFailedToParseJSON,
		},
		{
			name:    "unknown field",
			req:     func() *http.Request { return jsonRequest(`{"lesson":"l1"}`) },
			wantErr: binder.ErrFailedToParseJSON,
		},
		{
			name:    "trailing data",
			req:     func() *http.Request { return jsonRequest(`{"lesson_id":"l1"}{}`) },
			wantErr: binder.ErrFailedToParseJSON,
		},
		{
			name:    "type mismatch",
			req:     func() *http.Request { return jsonRequest(`{"watch_time_seconds":"ten"}`) },
			wantErr: binder.ErrFailedToParseJSON,
		},
		{
			name:    "too large",
			req:     func() *http.Request { return jsonRequest(`{"lesson_id":"` + strings.Repeat("a", binder.DefaultMaxJSONSize) + `"}`) },
			wantErr: binder.ErrFailedToParseJSON,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var req progressRequest
			err := binder.JSON()(tt.req(), &req)
			require.ErrorIs(t, err, tt.wantErr)
			assert.True(t, binder.IsBindError(err))
		})
	}
}

type listCoursesRequest struct {
	CourseID string   `path:"courseID"`
	Tier     string   `query:"tier"`
	Limit    int      `query:"limit"`
	Tags     []string `query:"tags"`
	Draft    *bool    `query:"draft"`
	Internal string   `query:"-"`
}

func TestPathAndQuery(t *testing.T) {
	t.Parallel()

	t.Run("binds path and query", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodGet, "/?tier=premium&limit=20&tags=go,sql&tags=web&draft=yes&Internal=x", nil)
		extractor := func(_ *http.Request, key string) string {
			if key == "courseID" {
				return "c-1"
			}
			return ""
		}

		var req listCoursesRequest
		require.NoError(t, binder.Path(extractor)(r, &req))
		require.NoError(t, binder.Query()(r, &req))

		assert.Equal(t, "c-1", req.CourseID)
		assert.Equal(t, "premium", req.Tier)
		assert.Equal(t, 20, req.Limit)
		assert.Equal(t, []string{"go", "sql", "web"}, req.Tags)
		require.NotNil(t, req.Draft)
		assert.True(t, *req.Draft)
		assert.Empty(t, req.Internal)
	})

	t.Run("text unmarshaler", func(t *testing.T) {
		t.Parallel()
		id := uuid.New()
		extractor := func(_ *http.Request, key string) string {
			if key == "examID" {
				return id.String()
			}
			return ""
		}

		var req struct {
			ExamID uuid.UUID `path:"examID"`
		}
		require.NoError(t, binder.Path(extractor)(httptest.NewRequest(http.MethodGet, "/", nil), &req))
		assert.Equal(t, id, req.ExamID)

		bad := func(*http.Request, string) string { return "not-a-uuid" }
		err := binder.Path(bad)(httptest.NewRequest(http.MethodGet, "/", nil), &req)
		assert.ErrorIs(t, err, binder.ErrFailedToParsePath)
	})

	t.Run("invalid int", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodGet, "/?limit=many", nil)
		var req listCoursesRequest
		err := binder.Query()(r, &req)
		require.ErrorIs(t, err, binder.ErrFailedToParseQuery)
	})

	t.Run("nil extractor", func(t *testing.T) {
		t.Parallel()
		var req listCoursesRequest
		err := binder.Path(nil)(httptest.NewRequest(http.MethodGet, "/", nil), &req)
		require.ErrorIs(t, err, binder.ErrFailedToParsePath)
	})

	t.Run("non pointer target", func(t *testing.T) {
		t.Parallel()
		err := binder.Query()(httptest.NewRequest(http.MethodGet, "/", nil), listCoursesRequest{})
		require.ErrorIs(t, err, binder.ErrFailedToParseQuery)
	})
}
