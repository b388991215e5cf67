package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	RunTriggers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scoutsync",
			Subsystem: "runs",
			Name:      "triggers_total",
			Help:      "Ingest runs requested, by trigger and outcome",
		},
		[]string{"trigger", "outcome"},
	)

	RunLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "scoutsync",
			Subsystem: "runs",
			Name:      "latency_seconds",
			Help:      "Wall time of whole ingest runs",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"trigger"},
	)
)

// Register adds the run metrics to the default registry once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(RunTriggers, RunLatency)
	})
}
