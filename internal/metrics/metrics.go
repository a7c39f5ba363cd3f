// Package metrics collects run counters and pushes them to a Prometheus
// Pushgateway at the end of a batch run.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "media_sync"

type Recorder struct {
	reg *prometheus.Registry

	units      *prometheus.CounterVec
	media      *prometheus.CounterVec
	bytes      prometheus.Counter
	blobDelete *prometheus.CounterVec
	duration   prometheus.Gauge
	lastRun    *prometheus.GaugeVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		units: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "units_total", Help: "Units handled, by outcome.",
		}, []string{"outcome"}),
		media: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "media_total", Help: "Media items, by type and outcome.",
		}, []string{"type", "outcome"}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "thumbnail_bytes_total", Help: "Bytes of thumbnails uploaded.",
		}),
		blobDelete: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "cleanup_blobs_total", Help: "Cleanup blob deletions, by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "run_duration_seconds", Help: "Duration of the last run.",
		}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_run_timestamp_seconds", Help: "Finish time of the last run, by status.",
		}, []string{"status"}),
	}
	r.reg.MustRegister(r.units, r.media, r.bytes, r.blobDelete, r.duration, r.lastRun)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

func (r *Recorder) Unit(outcome string) { r.units.WithLabelValues(outcome).Inc() }

func (r *Recorder) Media(mediaType, outcome string) {
	r.media.WithLabelValues(mediaType, outcome).Inc()
}

func (r *Recorder) ThumbnailBytes(n int64) { r.bytes.Add(float64(n)) }

func (r *Recorder) BlobDelete(outcome string) { r.blobDelete.WithLabelValues(outcome).Inc() }

func (r *Recorder) RunFinished(status string, took time.Duration) {
	r.duration.Set(took.Seconds())
	r.lastRun.WithLabelValues(status).SetToCurrentTime()
}

// Push sends every collected metric to the Pushgateway at url under job.
func (r *Recorder) Push(url, job string) error {
	if err := push.New(url, job).Gatherer(r.reg).Push(); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
