package observability

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// RequestLogger wraps next and emits one structured line per request.
// Server errors log at error level and client errors at warn.
func RequestLogger(logger zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		event := logger.Info()
		if sw.status >= 500 {
			event = logger.Error()
		} else if sw.status >= 400 {
			event = logger.Warn()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Int("bytes", sw.bytes).
			Msg("http_request")
	})
}

// RequestMetrics wraps next and records the HTTP request collectors.
func RequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		RecordHTTPRequest(r.Method, MetricsPath(r.URL.Path), sw.status, time.Since(start))
	})
}

// MetricsPath truncates a request path to its first three segments so
// per-unit and per-action paths do not explode label cardinality.
func MetricsPath(p string) string {
	const maxSegments = 3
	if p == "" || p == "/" {
		return "/"
	}
	seen := 0
	for i := 1; i < len(p); i++ {
		if p[i] != '/' {
			continue
		}
		seen++
		if seen >= maxSegments {
			return p[:i]
		}
	}
	return strings.TrimSuffix(p, "/")
}

// statusWriter captures the response status and size while delegating
// everything else, including hijacking for websocket upgrades.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
	wrote  bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.wrote {
		w.status = status
		w.wrote = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	w.wrote = true
	n, err := w.ResponseWriter.Write(p)
	w.bytes += n
	return n, err
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
