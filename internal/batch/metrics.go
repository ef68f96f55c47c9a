package batch

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/FocuswithJustin/horae/core/errors"
)

// Metrics holds the counters of batch runs on a private registry, so that
// command-line runs can dump them to a node_exporter textfile.
type Metrics struct {
	registry  *prometheus.Registry
	documents *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewMetrics creates and registers the batch metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		documents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "horae_documents_total",
				Help: "Count of processed documents by outcome",
			},
			[]string{"operation", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "horae_document_duration_seconds",
				Help:    "Time spent processing one document",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			},
			[]string{"operation"},
		),
	}
	m.registry.MustRegister(m.documents, m.duration)
	return m
}

// Registry returns the registry holding the metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) observe(operation string, s Status, seconds float64) {
	m.documents.WithLabelValues(operation, string(s)).Inc()
	m.duration.WithLabelValues(operation).Observe(seconds)
}

// WriteToTextfile writes the metrics in the text exposition format.
func (m *Metrics) WriteToTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return errors.NewIO("write metrics", path, err)
	}
	return nil
}
