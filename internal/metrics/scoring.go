package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Scoring Prometheus metrics.
var (
	RecordsScoredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ila",
			Name:      "records_scored_total",
			Help:      "Total number of businesses scored, by mode and outcome",
		},
		[]string{"mode", "status"}, // "single" / "batch"; "ok" / "error" / "skipped"
	)

	IndexDistribution = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ila",
			Name:      "index",
			Help:      "Distribution of computed attraction indices",
			Buckets:   []float64{20, 40, 60, 80, 100, 120},
		},
		[]string{"sector"},
	)

	BatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "ila",
			Name:      "batch_duration_seconds",
			Help:      "Batch run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	BenchmarkCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ila",
			Name:      "benchmark_cache_total",
			Help:      "Benchmark cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss" / "error"
	)
)

func init() {
	prometheus.MustRegister(RecordsScoredTotal)
	prometheus.MustRegister(IndexDistribution)
	prometheus.MustRegister(BatchDuration)
	prometheus.MustRegister(BenchmarkCacheTotal)
}

// ObserveRecord counts one record outcome; successful records also feed the index histogram.
func ObserveRecord(mode, status, sector string, index int) {
	RecordsScoredTotal.WithLabelValues(mode, status).Inc()
	if status == "ok" {
		IndexDistribution.WithLabelValues(sectorLabel(sector)).Observe(float64(index))
	}
}

func ObserveBatch(started time.Time) {
	BatchDuration.Observe(time.Since(started).Seconds())
}

func sectorLabel(sector string) string {
	if sector == "" {
		return "unknown"
	}
	return sector
}
