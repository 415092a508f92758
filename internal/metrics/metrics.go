// Package metrics records per-run diagnostics as prometheus collectors on a
// private registry, which the CLI can dump in textfile-collector format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "rolextract"

// Recorder methods are safe on a nil *Recorder, which records nothing.
type Recorder struct {
	registry *prometheus.Registry

	pagesTotal     *prometheus.CounterVec
	pageDuration   prometheus.Histogram
	pagesInFlight  prometheus.Gauge
	patternMatches *prometheus.CounterVec
	candidates     *prometheus.CounterVec
	rejections     *prometheus.CounterVec
	duplicates     prometheus.Counter
	outputRows     prometheus.Counter
	ocrRequests    *prometheus.CounterVec
	ocrDuration    *prometheus.HistogramVec
}

func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()

	pagesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "pages_total",
			Help:      "Processed pages by final status.",
		},
		[]string{"status"},
	)
	pageDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "page_duration_seconds",
			Help:      "Wall time spent on one page from preprocessing to validation.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)
	pagesInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "pages_in_flight",
			Help:      "Pages currently being processed.",
		},
	)
	patternMatches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extract",
			Name:      "pattern_matches_total",
			Help:      "Regular expression matches by pattern.",
		},
		[]string{"pattern"},
	)
	candidates := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extract",
			Name:      "candidates_total",
			Help:      "Candidates emitted by pattern.",
		},
		[]string{"pattern"},
	)
	rejections := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "validate",
			Name:      "rejections_total",
			Help:      "Rejected candidates by reason.",
		},
		[]string{"reason"},
	)
	duplicates := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "finalize",
			Name:      "duplicates_total",
			Help:      "Validated records dropped as duplicates.",
		},
	)
	outputRows := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "finalize",
			Name:      "output_rows_total",
			Help:      "Rows written to the output table.",
		},
	)
	ocrRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ocr",
			Name:      "requests_total",
			Help:      "Page recognitions by engine and result (hit, miss, error).",
		},
		[]string{"engine", "result"},
	)
	ocrDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ocr",
			Name:      "duration_seconds",
			Help:      "Page recognition time by engine, cache hits included.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"engine"},
	)

	registry.MustRegister(pagesTotal, pageDuration, pagesInFlight, patternMatches, candidates,
		rejections, duplicates, outputRows, ocrRequests, ocrDuration)

	return &Recorder{
		registry:       registry,
		pagesTotal:     pagesTotal,
		pageDuration:   pageDuration,
		pagesInFlight:  pagesInFlight,
		patternMatches: patternMatches,
		candidates:     candidates,
		rejections:     rejections,
		duplicates:     duplicates,
		outputRows:     outputRows,
		ocrRequests:    ocrRequests,
		ocrDuration:    ocrDuration,
	}
}

// Registry exposes the collectors for gathering.
func (m *Recorder) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Recorder) StartPage() {
	if m == nil {
		return
	}
	m.pagesInFlight.Inc()
}

func (m *Recorder) FinishPage(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.pagesInFlight.Dec()
	m.pagesTotal.WithLabelValues(status).Inc()
	m.pageDuration.Observe(duration.Seconds())
}

// SkipPage counts a page that was never started.
func (m *Recorder) SkipPage(status string) {
	if m == nil {
		return
	}
	m.pagesTotal.WithLabelValues(status).Inc()
}

func (m *Recorder) ObservePattern(pattern string, matches, candidates int) {
	if m == nil {
		return
	}
	m.patternMatches.WithLabelValues(pattern).Add(float64(matches))
	m.candidates.WithLabelValues(pattern).Add(float64(candidates))
}

func (m *Recorder) ObserveRejections(reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.rejections.WithLabelValues(reason).Add(float64(n))
}

func (m *Recorder) ObserveFinalize(duplicates, rows int) {
	if m == nil {
		return
	}
	m.duplicates.Add(float64(duplicates))
	m.outputRows.Add(float64(rows))
}

// ObserveOCR satisfies ocr.Observer.
func (m *Recorder) ObserveOCR(engine string, cacheHit bool, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	result := "miss"
	switch {
	case err != nil:
		result = "error"
	case cacheHit:
		result = "hit"
	}
	m.ocrRequests.WithLabelValues(engine, result).Inc()
	m.ocrDuration.WithLabelValues(engine).Observe(elapsed.Seconds())
}

// WriteTextfile writes every metric to path in the text exposition format
// read by node_exporter's textfile collector.
func (m *Recorder) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
