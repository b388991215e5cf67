package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	filesTotal    *prometheus.CounterVec
	factsInserted *prometheus.CounterVec
	factsSkipped  *prometheus.CounterVec
	unresolved    *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	latency       *prometheus.HistogramVec
}

// New creates a recorder registered on the default registerer.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder registered on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		filesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scoutsync_files_total",
				Help: "Workbooks processed, by mode and outcome",
			},
			[]string{"mode", "status"},
		),
		factsInserted: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scoutsync_facts_inserted_total",
				Help: "Facts inserted",
			},
			[]string{"mode", "stream"},
		),
		factsSkipped: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scoutsync_facts_skipped_total",
				Help: "Records skipped because the fact already existed",
			},
			[]string{"mode", "stream"},
		),
		unresolved: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scoutsync_unresolved_identifiers_total",
				Help: "Identifiers that matched no stock",
			},
			[]string{"mode"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scoutsync_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scoutsync_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordFile counts one finished workbook.
func (r *Recorder) RecordFile(mode, status string) {
	r.filesTotal.WithLabelValues(mode, status).Inc()
}

// RecordFacts adds inserted and skipped counts for one stream.
func (r *Recorder) RecordFacts(mode, stream string, inserted, skipped int) {
	if inserted > 0 {
		r.factsInserted.WithLabelValues(mode, stream).Add(float64(inserted))
	}
	if skipped > 0 {
		r.factsSkipped.WithLabelValues(mode, stream).Add(float64(skipped))
	}
}

func (r *Recorder) RecordUnresolved(mode string, n int) {
	if n > 0 {
		r.unresolved.WithLabelValues(mode).Add(float64(n))
	}
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
