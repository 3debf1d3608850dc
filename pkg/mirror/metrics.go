package mirror

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are gitcache's only instrumentation surface: an in-process
// prometheus.Registerer the gitcache persona can dump via
// prometheus/promhttp's text format to stdout on --show-statistics. There
// is no HTTP listener (spec.md's explicit non-goal); EnableMetrics simply
// makes the vectors available for a caller to collect and print.
//
// Adapted from the teacher's repository/metrics.go: same Gauge/Counter/
// Histogram shape, relabeled from "repo" to "mirror" and extended with an
// lfsFetchCount counter for gitcache's LFS fetch bookkeeping.
var (
	lastUpdateTimestamp *prometheus.GaugeVec
	updateCount         *prometheus.CounterVec
	updateLatency       *prometheus.HistogramVec
	lfsFetchCount       *prometheus.CounterVec
)

// EnableMetrics registers gitcache's mirror metrics with registerer.
//
//   - gitcache_mirror_last_update_timestamp (tags: mirror): Unix time of the
//     last successful update.
//   - gitcache_mirror_update_count (tags: mirror, success): update attempts.
//   - gitcache_mirror_update_latency_seconds (tags: mirror): update duration.
//   - gitcache_mirror_lfs_fetch_count (tags: mirror, success): LFS fetches.
func EnableMetrics(registerer prometheus.Registerer) {
	lastUpdateTimestamp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "gitcache",
		Subsystem: "mirror",
		Name:      "last_update_timestamp",
		Help:      "Timestamp of the last successful mirror update",
	}, []string{"mirror"})

	updateCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gitcache",
		Subsystem: "mirror",
		Name:      "update_count",
		Help:      "Count of mirror update operations",
	}, []string{"mirror", "success"})

	updateLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gitcache",
		Subsystem: "mirror",
		Name:      "update_latency_seconds",
		Help:      "Latency of mirror update operations",
		Buckets:   []float64{0.5, 1, 5, 10, 20, 30, 60, 90, 120, 150, 300},
	}, []string{"mirror"})

	lfsFetchCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gitcache",
		Subsystem: "mirror",
		Name:      "lfs_fetch_count",
		Help:      "Count of LFS fetch operations",
	}, []string{"mirror", "success"})

	registerer.MustRegister(lastUpdateTimestamp, updateCount, updateLatency, lfsFetchCount)
}

func recordUpdate(mirrorPath string, success bool, start time.Time) {
	if updateCount == nil {
		return
	}
	if success {
		lastUpdateTimestamp.WithLabelValues(mirrorPath).Set(float64(time.Now().Unix()))
	}
	updateCount.WithLabelValues(mirrorPath, boolLabel(success)).Inc()
	updateLatency.WithLabelValues(mirrorPath).Observe(time.Since(start).Seconds())
}

func recordLFSFetch(mirrorPath string, success bool) {
	if lfsFetchCount == nil {
		return
	}
	lfsFetchCount.WithLabelValues(mirrorPath, boolLabel(success)).Inc()
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
