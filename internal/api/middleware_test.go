package api

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shaiso/Kontur/internal/telemetry"
)

func TestLogging_ContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Handlers log through the request-scoped logger.
		telemetry.FromContext(r.Context()).Info("handled")
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/workspaces/w1/tasks", nil)
	req.Header.Set(headerSession, "sess9")
	rec := httptest.NewRecorder()

	Logging(logger)(inner).ServeHTTP(rec, req)

	out := buf.String()
	if !strings.Contains(out, `"msg":"handled"`) {
		t.Errorf("handler log must go through the context logger, got %q", out)
	}
	if !strings.Contains(out, `"session_id":"sess9"`) {
		t.Errorf("context logger must carry the caller session, got %q", out)
	}
	if !strings.Contains(out, `"msg":"http request"`) {
		t.Errorf("middleware must log the request itself, got %q", out)
	}
}

func TestLogging_NoSessionHeader(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	Logging(logger)(inner).ServeHTTP(rec, req)

	if strings.Contains(buf.String(), "session_id") {
		t.Errorf("no session header must mean no session attribute, got %q", buf.String())
	}
}
