package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder counts and times store operations per collection. A nil
// *Recorder is valid and records nothing.
type Recorder struct {
	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec
}

// NewRecorder creates the store collectors and registers them on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "farmacia",
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Store operations by collection, operation and result.",
		}, []string{"collection", "operation", "result"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "farmacia",
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Store operation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"collection", "operation"}),
	}
	if reg != nil {
		reg.MustRegister(r.operations, r.durations)
	}
	return r
}

// Observe records one finished operation that started at start.
func (r *Recorder) Observe(collection, operation string, start time.Time, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.operations.WithLabelValues(collection, operation, result).Inc()
	r.durations.WithLabelValues(collection, operation).Observe(time.Since(start).Seconds())
}
