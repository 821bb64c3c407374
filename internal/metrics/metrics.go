// Package metrics records lifecycle operation outcomes with Prometheus.
//
// ucsm-ops runs one operation per process, so metrics are not scraped;
// they are written to a node-exporter textfile collector file instead.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ucsm"

// Recorder implements lifecycle.Recorder
type Recorder struct {
	operations  *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
}

// NewRecorder creates the collectors and registers them with reg
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Lifecycle operations by outcome.",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Wall time of lifecycle operations, including login and logout.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"operation"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "operation_last_success_timestamp_seconds",
			Help:      "Unix time of the last operation that did not fail.",
		}, []string{"operation"}),
	}

	for _, c := range []prometheus.Collector{r.operations, r.duration, r.lastSuccess} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}
	return r, nil
}

// ObserveOperation records one completed operation
func (r *Recorder) ObserveOperation(operation, outcome string, elapsed time.Duration) {
	r.operations.WithLabelValues(operation, outcome).Inc()
	r.duration.WithLabelValues(operation).Observe(elapsed.Seconds())

	switch outcome {
	case "success", "no-change":
		r.lastSuccess.WithLabelValues(operation).SetToCurrentTime()
	}
}

// WriteTextfile writes everything g gathers to path in the text
// exposition format, replacing the file atomically.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
