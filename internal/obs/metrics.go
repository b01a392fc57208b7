package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the per-process Prometheus instruments the labeling loop
// and extractor report into. One Metrics is constructed per process and
// shared by reference across concurrent requests (registration happens
// once; Observe/Inc calls are goroutine-safe on the underlying collectors).
type Metrics struct {
	LabelIterations  prometheus.Counter
	StopProcessCount prometheus.Histogram
	LabelDuration    prometheus.Histogram
	EnumerateDuration prometheus.Histogram
	RequestsFailed   *prometheus.CounterVec
}

// NewMetrics registers the core's instruments against reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with the default
// global registry across parallel test runs.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LabelIterations: factory.NewCounter(prometheus.CounterOpts{
			Name: "pathfind_label_iterations_total",
			Help: "Total labeling-loop pop/relax iterations across all requests.",
		}),
		StopProcessCount: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pathfind_stop_process_count",
			Help:    "Per-request maximum (stop,side) process count reached during labeling.",
			Buckets: prometheus.LinearBuckets(0, 2, 15),
		}),
		LabelDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pathfind_label_duration_seconds",
			Help:    "Wall-clock time spent in the labeling loop per request.",
			Buckets: prometheus.DefBuckets,
		}),
		EnumerateDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pathfind_enumerate_duration_seconds",
			Help:    "Wall-clock time spent in path extraction per request.",
			Buckets: prometheus.DefBuckets,
		}),
		RequestsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pathfind_requests_failed_total",
			Help: "Requests that returned a non-success RET_* code, by reason.",
		}, []string{"reason"}),
	}
}

// RequestFailed increments the failure counter for reason. Safe to call on
// a nil *Metrics (metrics disabled), in which case it is a no-op.
func (m *Metrics) RequestFailed(reason string) {
	if m == nil {
		return
	}
	m.RequestsFailed.WithLabelValues(reason).Inc()
}
