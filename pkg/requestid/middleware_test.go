package requestid_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnpro/learnpro/pkg/requestid"
)

func serve(t *testing.T, incoming string) (ctxID, respID string) {
	t.Helper()
	h := requestid.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = requestid.FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/courses", nil)
	if incoming != "" {
		req.Header.Set(requestid.Header, incoming)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	return ctxID, rec.Header().Get(requestid.Header)
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("keeps a well formed id", func(t *testing.T) {
		t.Parallel()
		ctxID, respID := serve(t, "spa-7f3a_01")
		assert.Equal(t, "spa-7f3a_01", ctxID)
		assert.Equal(t, "spa-7f3a_01", respID)
	})

	replaced := map[string]string{
		"missing":          "",
		"spaces":           "a b",
		"header injection": "id\r\nSet-Cookie: x=1",
		"punctuation":      "id@host",
		"too long":         strings.Repeat("a", 129),
	}
	for name, incoming := range replaced {
		t.Run("replaces "+name, func(t *testing.T) {
			t.Parallel()
			ctxID, respID := serve(t, incoming)
			assert.NotEmpty(t, ctxID)
			assert.NotEqual(t, incoming, ctxID)
			assert.Equal(t, ctxID, respID)
		})
	}

	t.Run("generated ids differ", func(t *testing.T) {
		t.Parallel()
		a, _ := serve(t, "")
		b, _ := serve(t, "")
		assert.NotEqual(t, a, b)
	})
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	extract := requestid.LoggerExtractor()

	_, ok := extract(context.Background())
	assert.False(t, ok)

	attr, ok := extract(requestid.WithContext(context.Background(), "req-1"))
	require.True(t, ok)
	assert.Equal(t, "request_id", attr.Key)
	assert.Equal(t, "req-1", attr.Value.String())
}
