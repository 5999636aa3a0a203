package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"condash/internal/runner"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "condash",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "condash",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	commandRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "condash",
			Subsystem: "command",
			Name:      "runs_total",
			Help:      "External tool invocations by outcome.",
		},
		[]string{"tool", "outcome"},
	)
	envFileWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "condash",
			Subsystem: "envfile",
			Name:      "writes_total",
			Help:      "Applied config file rewrites.",
		},
		[]string{"restart_required"},
	)
)

// RegisterMetrics registers the collectors exactly once.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, commandRuns, envFileWrites)
	})
}

// RecordHTTPRequest counts one served request and observes its duration.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

// RecordCommand counts one external tool invocation.
func RecordCommand(tool string, code int) {
	RegisterMetrics()
	commandRuns.WithLabelValues(tool, commandOutcome(code)).Inc()
}

// RecordEnvFileWrite counts one applied config rewrite.
func RecordEnvFileWrite(restartRequired bool) {
	RegisterMetrics()
	envFileWrites.WithLabelValues(strconv.FormatBool(restartRequired)).Inc()
}

func commandOutcome(code int) string {
	switch code {
	case 0:
		return "ok"
	case runner.ExitTimeout:
		return "timeout"
	case runner.ExitNotFound:
		return "not_found"
	default:
		return "error"
	}
}
