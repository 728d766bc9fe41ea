package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "cvbuilder"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	reg         *prom.Registry
	rendered    *prom.CounterVec
	skipped     *prom.CounterVec
	jobDuration *prom.HistogramVec
	runOutcome  *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics on reg,
// or on a fresh registry when reg is nil.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		reg: reg,
		rendered: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "outputs_rendered_total",
			Help:      "Rendered outputs by content type and format",
		}, []string{"content_type", "format"}),
		skipped: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "records_skipped_total",
			Help:      "Records skipped because of data errors",
		}, []string{"content_type", "reason"}),
		jobDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Duration of individual generation jobs",
			Buckets:   prom.DefBuckets,
		}, []string{"content_type"}),
		runOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "run_outcomes_total",
			Help:      "Generation runs by final status",
		}, []string{"outcome"}),
	}
	reg.MustRegister(pr.rendered, pr.skipped, pr.jobDuration, pr.runOutcome)
	return pr
}

// Registry returns the registry the metrics are registered on.
func (p *PrometheusRecorder) Registry() *prom.Registry { return p.reg }

func (p *PrometheusRecorder) IncRendered(contentType, format string) {
	if p == nil {
		return
	}
	p.rendered.WithLabelValues(contentType, format).Inc()
}

func (p *PrometheusRecorder) IncSkipped(contentType string, reason SkipReason) {
	if p == nil {
		return
	}
	p.skipped.WithLabelValues(contentType, string(reason)).Inc()
}

func (p *PrometheusRecorder) ObserveJobDuration(contentType string, d time.Duration) {
	if p == nil {
		return
	}
	p.jobDuration.WithLabelValues(contentType).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRunOutcome(outcome Outcome) {
	if p == nil {
		return
	}
	p.runOutcome.WithLabelValues(string(outcome)).Inc()
}

// WriteTextfile writes the registry in the node-exporter textfile format.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	return prom.WriteToTextfile(path, p.reg)
}
