package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mcpdir"

// PrometheusRecorder implements Recorder using Prometheus collectors.
type PrometheusRecorder struct {
	buildDuration    *prom.HistogramVec
	renderDuration   prom.Histogram
	templateFallback prom.Counter
	markerMissing    *prom.CounterVec
}

var _ Recorder = (*PrometheusRecorder)(nil)

// NewPrometheusRecorder constructs the collectors and registers them with reg.
func NewPrometheusRecorder(reg prom.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		buildDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ssr",
			Name:      "document_build_duration_seconds",
			Help:      "Time to build a complete HTML document, by outcome.",
			Buckets:   prom.DefBuckets,
		}, []string{"outcome"}),
		renderDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ssr",
			Name:      "page_render_duration_seconds",
			Help:      "Time spent inside the page renderer.",
			Buckets:   prom.DefBuckets,
		}),
		templateFallback: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Subsystem: "ssr",
			Name:      "template_fallback_total",
			Help:      "Template loads served from the fallback location.",
		}),
		markerMissing: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Subsystem: "ssr",
			Name:      "template_marker_missing_total",
			Help:      "Document builds where a template marker was absent.",
		}, []string{"marker"}),
	}
	reg.MustRegister(pr.buildDuration, pr.renderDuration, pr.templateFallback, pr.markerMissing)
	return pr
}

func (p *PrometheusRecorder) ObserveBuildDuration(outcome Outcome, d time.Duration) {
	if p == nil {
		return
	}
	p.buildDuration.WithLabelValues(string(outcome)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveRenderDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.renderDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncTemplateFallback() {
	if p == nil {
		return
	}
	p.templateFallback.Inc()
}

func (p *PrometheusRecorder) IncMarkerMissing(marker string) {
	if p == nil {
		return
	}
	p.markerMissing.WithLabelValues(marker).Inc()
}

// NewRegistry returns a registry preloaded with the Go runtime and process collectors.
func NewRegistry() *prom.Registry {
	reg := prom.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// HTTPHandler serves the metrics gathered by reg.
func HTTPHandler(reg *prom.Registry) http.Handler {
	if reg == nil {
		reg = NewRegistry()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
