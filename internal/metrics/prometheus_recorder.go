package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "pagebuilder"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	registry      *prom.Registry
	stageDuration *prom.HistogramVec
	buildDuration prom.Histogram
	stageResults  *prom.CounterVec
	buildOutcome  *prom.CounterVec
	docErrors     *prom.CounterVec
	pages         prom.Gauge
	workers       prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics on reg
// (a fresh registry when nil).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{registry: reg}
	pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "stage_duration_seconds",
		Help:      "Duration of individual pipeline stages per document",
		Buckets:   prom.DefBuckets,
	}, []string{"stage"})
	pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "build_duration_seconds",
		Help:      "Total build duration",
		Buckets:   prom.DefBuckets,
	})
	pr.stageResults = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "stage_results_total",
		Help:      "Stage result counts by outcome",
	}, []string{"stage", "result"})
	pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "build_outcomes_total",
		Help:      "Build outcomes by final status",
	}, []string{"outcome"})
	pr.docErrors = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "document_errors_total",
		Help:      "Per-document errors by kind",
	}, []string{"kind"})
	pr.pages = prom.NewGauge(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "pages_rendered",
		Help:      "Pages rendered by the last build",
	})
	pr.workers = prom.NewGauge(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "workers",
		Help:      "Worker pool size of the last build",
	})
	reg.MustRegister(pr.stageDuration, pr.buildDuration, pr.stageResults, pr.buildOutcome, pr.docErrors, pr.pages, pr.workers)
	return pr
}

// Registry returns the registry the metrics are registered on.
func (p *PrometheusRecorder) Registry() *prom.Registry { return p.registry }

// WriteTextfile writes all gathered metrics in the node-exporter textfile
// format. The file is replaced atomically.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	return prom.WriteToTextfile(path, p.registry)
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil || p.stageResults == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome BuildOutcomeLabel) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncDocumentError(kind string) {
	if p == nil || p.docErrors == nil {
		return
	}
	p.docErrors.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) SetPagesRendered(n int) {
	if p == nil || p.pages == nil {
		return
	}
	p.pages.Set(float64(n))
}

func (p *PrometheusRecorder) SetWorkers(n int) {
	if p == nil || p.workers == nil {
		return
	}
	p.workers.Set(float64(n))
}
