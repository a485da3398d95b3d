package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	// Producer loop
	FramesRead      atomic.Uint64
	FramesSkipped   atomic.Uint64
	FramesProcessed atomic.Uint64

	// Pipeline
	DetectionsRecorded atomic.Uint64
	DetectionsUnzoned  atomic.Uint64
	DetectionsFiltered atomic.Uint64

	// Errors
	CaptureErrors  atomic.Uint64
	DetectErrors   atomic.Uint64
	StoreErrors    atomic.Uint64
	AnnotateErrors atomic.Uint64

	// Live viewers
	ActiveViewers atomic.Int64

	registry *prometheus.Registry
}

// New creates a new Metrics instance with Prometheus collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.registerPrometheusMetrics()
	return m
}

func (m *Metrics) registerPrometheusMetrics() {
	counters := []struct {
		name string
		help string
		v    *atomic.Uint64
	}{
		{"zonewatch_frames_read_total", "Frames read from the capture source", &m.FramesRead},
		{"zonewatch_frames_skipped_total", "Frames skipped by the processing interval", &m.FramesSkipped},
		{"zonewatch_frames_processed_total", "Frames run through the detector", &m.FramesProcessed},
		{"zonewatch_detections_recorded_total", "Detection records appended to the log", &m.DetectionsRecorded},
		{"zonewatch_detections_unzoned_total", "Recorded detections outside every zone", &m.DetectionsUnzoned},
		{"zonewatch_detections_filtered_total", "Detections dropped below the confidence threshold", &m.DetectionsFiltered},
		{"zonewatch_capture_errors_total", "Frame capture errors", &m.CaptureErrors},
		{"zonewatch_detect_errors_total", "Detector errors", &m.DetectErrors},
		{"zonewatch_store_errors_total", "Failed detection log appends", &m.StoreErrors},
		{"zonewatch_annotate_errors_total", "Frame annotation errors", &m.AnnotateErrors},
	}
	for _, c := range counters {
		v := c.v
		m.registry.MustRegister(prometheus.NewCounterFunc(
			prometheus.CounterOpts{Name: c.name, Help: c.help},
			func() float64 { return float64(v.Load()) },
		))
	}

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "zonewatch_active_viewers",
			Help: "Connected live view clients",
		},
		func() float64 { return float64(m.ActiveViewers.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGoCollector())
	m.registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
}

// Handler serves the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
