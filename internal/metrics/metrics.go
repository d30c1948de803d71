// Package metrics provides Prometheus metrics for batch encoding.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Labels stay low cardinality: no job names or paths.

var (
	// JobsTotal counts jobs that reached a terminal state, by status.
	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "avsbatch_jobs_total",
		Help: "Total number of finished jobs, by terminal status.",
	}, []string{"status"})

	// SegmentsTotal counts encoded segments, by result.
	SegmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "avsbatch_segments_total",
		Help: "Total number of segment encodes, by result (success/failed/interrupted).",
	}, []string{"result"})

	// EncodedFrames tracks frames encoded so far across the whole queue.
	EncodedFrames = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "avsbatch_encoded_frames",
		Help: "Frames encoded so far across all queued jobs.",
	})

	// EncodeFPS tracks the summed encoder throughput of the running job.
	EncodeFPS = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "avsbatch_encode_fps",
		Help: "Summed frames per second of all running segment encoders.",
	})

	// MergeDuration observes how long container merges take.
	MergeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "avsbatch_merge_duration_seconds",
		Help:    "Duration of container merge runs.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})
)

// RecordJob increments the job counter for a terminal status.
func RecordJob(status string) {
	JobsTotal.WithLabelValues(status).Inc()
}

// RecordSegment increments the segment counter for a result.
func RecordSegment(result string) {
	SegmentsTotal.WithLabelValues(result).Inc()
}

// SetProgress publishes the queue-wide frame count and current fps.
func SetProgress(framesDone int64, fps float64) {
	EncodedFrames.Set(float64(framesDone))
	EncodeFPS.Set(fps)
}

// ObserveMerge records the duration of one merge run.
func ObserveMerge(d time.Duration) {
	MergeDuration.Observe(d.Seconds())
}

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
