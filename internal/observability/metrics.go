package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/crmarques/liveops/faults"
	"github.com/crmarques/liveops/orchestrator"
	"github.com/crmarques/liveops/resource"
)

const namespace = "liveops"

var _ orchestrator.Recorder = (*Metrics)(nil)

// Metrics collects the counters of one invocation in a private registry so
// they can be written out as a node-exporter textfile.
type Metrics struct {
	registry *prometheus.Registry

	entries         *prometheus.CounterVec
	serviceRuns     *prometheus.CounterVec
	serviceDuration *prometheus.HistogramVec
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		entries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "entries_total",
				Help:      "Entries processed, by service, operation and status.",
			},
			[]string{"service", "operation", "status"},
		),
		serviceRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "service",
				Name:      "runs_total",
				Help:      "Service executions, by outcome.",
			},
			[]string{"service", "operation", "outcome"},
		),
		serviceDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "service",
				Name:      "duration_seconds",
				Help:      "Service execution duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"service", "operation"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "backend",
				Name:      "requests_total",
				Help:      "Backend HTTP requests.",
			},
			[]string{"purpose", "method", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "backend",
				Name:      "request_duration_seconds",
				Help:      "Backend HTTP request duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"purpose", "method"},
		),
	}
	m.registry.MustRegister(m.entries, m.serviceRuns, m.serviceDuration, m.requests, m.requestDuration)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveService(service string, operation resource.Operation, result resource.Result, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	op := string(operation)
	m.serviceDuration.WithLabelValues(service, op).Observe(elapsed.Seconds())
	m.serviceRuns.WithLabelValues(service, op, serviceOutcome(result, err)).Inc()

	statuses := []struct {
		status  string
		entries []resource.Entry
	}{
		{status: "created", entries: result.Created},
		{status: "updated", entries: result.Updated},
		{status: "deleted", entries: result.Deleted},
		{status: "unchanged", entries: result.Unchanged},
		{status: "failed", entries: result.Failed},
	}
	for _, item := range statuses {
		if len(item.entries) > 0 {
			m.entries.WithLabelValues(service, op, item.status).Add(float64(len(item.entries)))
		}
	}
}

func serviceOutcome(result resource.Result, err error) string {
	switch {
	case err != nil && faults.IsCategory(err, faults.CanceledError):
		return "canceled"
	case err != nil:
		return "fault"
	case result.HasFailures():
		return "partial"
	}
	return "ok"
}

func (m *Metrics) ObserveRequest(purpose string, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	statusLabel := "error"
	if status > 0 {
		statusLabel = strconv.Itoa(status)
	}
	m.requests.WithLabelValues(purpose, method, statusLabel).Inc()
	m.requestDuration.WithLabelValues(purpose, method).Observe(elapsed.Seconds())
}

// WriteTextfile writes every collected metric to path in the text exposition
// format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return faults.NewTypedError(faults.InternalError, "failed to write metrics textfile", err)
	}
	return nil
}
