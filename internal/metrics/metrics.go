// Package metrics records scan pipeline metrics with Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "comicocr"

// Pipeline stage names used as the "stage" label.
const (
	StagePrepare   = "prepare"
	StageDetect    = "detect"
	StageDecode    = "decode"
	StageSuppress  = "suppress"
	StageCluster   = "cluster"
	StageRecognize = "recognize"
)

// Image outcome labels.
const (
	StatusOK      = "ok"
	StatusEmpty   = "empty"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

// Recorder holds the scan metrics. A nil *Recorder records nothing.
type Recorder struct {
	imagesTotal      *prometheus.CounterVec
	stageDuration    *prometheus.HistogramVec
	candidates       prometheus.Histogram
	clusters         prometheus.Histogram
	tokensTotal      prometheus.Counter
	failedCropsTotal prometheus.Counter
	tokenLength      prometheus.Histogram
}

// NewRecorder registers the scan metrics with reg. A nil reg uses a fresh
// private registry, which keeps repeated construction in tests safe.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Recorder{
		imagesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "images_scanned_total",
				Help:      "Total number of scanned images",
			},
			[]string{"status"}, // status: ok, empty, error, skipped
		),
		stageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of each pipeline stage in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"stage"},
		),
		candidates: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "candidates_per_image",
				Help:      "Number of decoded candidate boxes per image",
				Buckets:   []float64{0, 10, 50, 100, 500, 1000, 5000, 10000},
			},
		),
		clusters: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "clusters_per_image",
				Help:      "Number of final text clusters per image",
				Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
			},
		),
		tokensTotal: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tokens_total",
				Help:      "Total number of text tokens yielded",
			},
		),
		failedCropsTotal: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "failed_crops_total",
				Help:      "Total number of crops whose recognition failed",
			},
		),
		tokenLength: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "token_length",
				Help:      "Length of yielded text tokens",
				Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
			},
		),
	}
}

// ObserveStage records the duration of one stage run.
func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// Since records the time elapsed since start for stage.
func (r *Recorder) Since(stage string, start time.Time) {
	r.ObserveStage(stage, time.Since(start))
}

// ImageScanned counts one image with the given status.
func (r *Recorder) ImageScanned(status string) {
	if r == nil {
		return
	}
	r.imagesTotal.WithLabelValues(status).Inc()
}

// Candidates records the candidate count of one image.
func (r *Recorder) Candidates(n int) {
	if r == nil {
		return
	}
	r.candidates.Observe(float64(n))
}

// Clusters records the final cluster count of one image.
func (r *Recorder) Clusters(n int) {
	if r == nil {
		return
	}
	r.clusters.Observe(float64(n))
}

// Token counts one yielded token.
func (r *Recorder) Token(text string) {
	if r == nil {
		return
	}
	r.tokensTotal.Inc()
	r.tokenLength.Observe(float64(len(text)))
}

// FailedCrop counts one crop whose recognition failed.
func (r *Recorder) FailedCrop() {
	if r == nil {
		return
	}
	r.failedCropsTotal.Inc()
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
