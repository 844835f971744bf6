package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wesleyorama2/riposte/internal/results"
)

// PromExporter mirrors step records into Prometheus collectors. It
// implements results.Sink so it can sit in the same fan-out as the
// JSONL writer.
type PromExporter struct {
	registry     *prometheus.Registry
	stepsTotal   *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	bytesTotal   prometheus.Counter
	activeVUs    prometheus.Gauge
}

// NewPromExporter builds an exporter with its own registry.
func NewPromExporter() *PromExporter {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &PromExporter{
		registry: registry,
		stepsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "riposte",
			Name:      "steps_total",
			Help:      "Executed request steps by step name and outcome.",
		}, []string{"step", "outcome"}),
		stepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "riposte",
			Name:      "step_duration_seconds",
			Help:      "Request step latency.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15),
		}, []string{"step"}),
		bytesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "riposte",
			Name:      "response_bytes_total",
			Help:      "Total response body bytes read.",
		}),
		activeVUs: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "riposte",
			Name:      "active_vus",
			Help:      "Currently running virtual users.",
		}),
	}
}

// Record implements results.Sink.
func (p *PromExporter) Record(rec results.StepRecord) {
	outcome := "success"
	if !rec.Success {
		outcome = "failure"
	}
	p.stepsTotal.WithLabelValues(rec.Step, outcome).Inc()
	p.stepDuration.WithLabelValues(rec.Step).Observe(rec.LatencyMS / 1000.0)
	p.bytesTotal.Add(float64(rec.Bytes))
}

// Close implements results.Sink.
func (p *PromExporter) Close() error { return nil }

// SetActiveVUs updates the active-VU gauge.
func (p *PromExporter) SetActiveVUs(n int) {
	p.activeVUs.Set(float64(n))
}

// Handler returns the scrape endpoint for this exporter's registry.
func (p *PromExporter) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
