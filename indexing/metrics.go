package indexing

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	runs            *prometheus.CounterVec
	documents       *prometheus.CounterVec
	runDuration     prometheus.Histogram
	running         prometheus.Gauge
	lastSuccessTime prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spexregister",
			Subsystem: "indexer",
			Name:      "runs_total",
			Help:      "Indexing runs by outcome",
		}, []string{"outcome"}),

		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spexregister",
			Subsystem: "indexer",
			Name:      "documents_total",
			Help:      "Documents written to or removed from the index",
		}, []string{"operation"}),

		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "spexregister",
			Subsystem: "indexer",
			Name:      "run_duration_seconds",
			Help:      "Duration of indexing runs",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),

		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "spexregister",
			Subsystem: "indexer",
			Name:      "running",
			Help:      "1 while an indexing run is in progress",
		}),

		lastSuccessTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "spexregister",
			Subsystem: "indexer",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.runs, m.documents, m.runDuration, m.running, m.lastSuccessTime)
	}

	return m
}
