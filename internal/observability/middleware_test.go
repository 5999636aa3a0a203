package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestRegisterMetricsIdempotent(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("GET", "/api/health", 200, 5*time.Millisecond)
	RecordCommand("conda", 0)
	RecordCommand("systemctl", 124)
	RecordEnvFileWrite(true)
}

func TestCommandOutcome(t *testing.T) {
	require.Equal(t, "ok", commandOutcome(0))
	require.Equal(t, "error", commandOutcome(1))
	require.Equal(t, "timeout", commandOutcome(124))
	require.Equal(t, "not_found", commandOutcome(127))
}

func TestMetricsPath(t *testing.T) {
	cases := map[string]string{
		"":              "/",
		"/":             "/",
		"/metrics":      "/metrics",
		"/api/health":   "/api/health",
		"/api/envfile":  "/api/envfile",
		"/api/services": "/api/services",
		"/api/services/user/comfyui.service/start": "/api/services/user",
		"/api/services/":  "/api/services",
		"/api/conda/envs": "/api/conda/envs",
	}
	for in, want := range cases {
		require.Equal(t, want, MetricsPath(in), "path %q", in)
	}
}

func TestRequestLoggerPreservesHandlerBehavior(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	})
	wrapped := RequestLogger(zerolog.Nop(), RequestMetrics(inner))

	rr := httptest.NewRecorder()
	wrapped.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusTeapot, rr.Code)
	require.Equal(t, "short and stout", rr.Body.String())
}

func TestStatusWriterDefaultsTo200(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rec, status: http.StatusOK}

	_, err := sw.Write([]byte("ok"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, sw.status)
	require.Equal(t, 2, sw.bytes)
}

func TestStatusWriterKeepsFirstStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rec, status: http.StatusOK}

	sw.WriteHeader(http.StatusNotFound)
	sw.WriteHeader(http.StatusOK)
	require.Equal(t, http.StatusNotFound, sw.status)
}
