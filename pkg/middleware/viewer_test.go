package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestViewer_HeaderPresent(t *testing.T) {
	var got string
	handler := Viewer()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ViewerIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/tools", nil)
	req.Header.Set("X-User-ID", "user-42")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "user-42", got)
}

func TestViewer_Anonymous(t *testing.T) {
	var got string
	handler := Viewer()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ViewerIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/tools", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Empty(t, got)
}

func TestRequestLogging_GeneratesCorrelationID(t *testing.T) {
	handler := RequestLogging(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/tools", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.NotEmpty(t, rr.Header().Get("X-Correlation-ID"))
}

func TestRequestLogging_PropagatesCorrelationID(t *testing.T) {
	handler := RequestLogging(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/tools", nil)
	req.Header.Set("X-Correlation-ID", "corr-123")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, "corr-123", rr.Header().Get("X-Correlation-ID"))
}
