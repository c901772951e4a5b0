package logging

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLoggingMiddlewareLogsRequests(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))

	req := httptest.NewRequest("GET", "/regimens?limit=5", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Errorf("Middleware should pass the status through, got %d", rr.Code)
	}

	logged := buf.String()
	for _, want := range []string{`"path":"/regimens"`, `"status_code":418`, `"query":"limit=5"`, `"method":"GET"`} {
		if !strings.Contains(logged, want) {
			t.Errorf("Log line should contain %s, got: %s", want, logged)
		}
	}
}

func TestLoggingMiddlewareSkipsProbeEndpoints(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, path := range []string{"/health", "/metrics"} {
		req := httptest.NewRequest("GET", path, nil)
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	if buf.Len() != 0 {
		t.Errorf("Probe endpoints should not be logged, got: %s", buf.String())
	}
}

func TestResponseWriterWrapperCapturesBytes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("0123456789"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/regimens", nil))

	logged := buf.String()
	if !strings.Contains(logged, `"bytes_written":10`) {
		t.Errorf("Log line should record bytes written, got: %s", logged)
	}
	if !strings.Contains(logged, `"status_code":200`) {
		t.Errorf("Implicit status should be recorded as 200, got: %s", logged)
	}
}
