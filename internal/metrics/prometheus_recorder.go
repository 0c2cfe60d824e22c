package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "pubgate"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration  *prom.HistogramVec
	runDuration    prom.Histogram
	runOutcomes    *prom.CounterVec
	decisions      *prom.CounterVec
	blocked        *prom.CounterVec
	published      prom.Gauge
	transitions    *prom.CounterVec
	nextTransition prom.Gauge
}

// NewPrometheusRecorder constructs the metrics and registers them with reg.
// A nil reg gets a private registry.
func NewPrometheusRecorder(reg prom.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual run stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		runDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Total evaluation run duration",
			Buckets:   prom.DefBuckets,
		}),
		runOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "run_outcomes_total",
			Help:      "Evaluation runs by final status",
		}, []string{"outcome"}),
		decisions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Document decisions by result",
		}, []string{"result"}),
		blocked: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "blocked_total",
			Help:      "Documents blocked, by gate",
		}, []string{"gate"}),
		published: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "published_documents",
			Help:      "Documents in the publish set after the last run",
		}),
		transitions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Publication transitions by kind",
		}, []string{"kind"}),
		nextTransition: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "next_transition_timestamp_seconds",
			Help:      "Unix time of the next scheduled publication change, 0 when none",
		}),
	}
	reg.MustRegister(pr.stageDuration, pr.runDuration, pr.runOutcomes, pr.decisions,
		pr.blocked, pr.published, pr.transitions, pr.nextTransition)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRunOutcome(outcome RunOutcome) {
	p.runOutcomes.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncDecision(publishable bool) {
	res := "skip"
	if publishable {
		res = "publish"
	}
	p.decisions.WithLabelValues(res).Inc()
}

func (p *PrometheusRecorder) IncBlocked(gate string) {
	p.blocked.WithLabelValues(gate).Inc()
}

func (p *PrometheusRecorder) SetPublished(n int) { p.published.Set(float64(n)) }

func (p *PrometheusRecorder) IncTransition(kind string) {
	p.transitions.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) SetNextTransition(t time.Time) {
	if t.IsZero() {
		p.nextTransition.Set(0)
		return
	}
	p.nextTransition.Set(float64(t.Unix()))
}
