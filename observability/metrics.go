package observability

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type commandMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	errors   *prometheus.CounterVec
}

var (
	commandMetricsOnce sync.Once
	commandRegistry    *commandMetrics
)

// Commands returns the lazily-initialised metrics registry used to record
// host command activity against the fund ledger.
func Commands() *commandMetrics {
	commandMetricsOnce.Do(func() {
		commandRegistry = &commandMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "fund",
				Subsystem: "command",
				Name:      "requests_total",
				Help:      "Total ledger commands segmented by command and outcome.",
			}, []string{"command", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "fund",
				Subsystem: "command",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for ledger commands.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"command"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "fund",
				Subsystem: "command",
				Name:      "errors_total",
				Help:      "Count of command failures segmented by command and reason.",
			}, []string{"command", "reason"}),
		}
		prometheus.MustRegister(
			commandRegistry.requests,
			commandRegistry.latency,
			commandRegistry.errors,
		)
	})
	return commandRegistry
}

// Observe records the execution metrics for one command invocation.
func (m *commandMetrics) Observe(command string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	cmd := strings.TrimSpace(command)
	if cmd == "" {
		cmd = "unknown"
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
		reason := strings.TrimSpace(err.Error())
		if reason == "" {
			reason = "unknown"
		}
		m.errors.WithLabelValues(cmd, reason).Inc()
	}
	m.requests.WithLabelValues(cmd, outcome).Inc()
	m.latency.WithLabelValues(cmd).Observe(duration.Seconds())
}
