// Package metrics exposes Prometheus counters for turn processing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder counts turns and generation failures. A nil *Recorder is a no-op.
type Recorder struct {
	turns    *prometheus.CounterVec
	failures *prometheus.CounterVec
	gatherer prometheus.Gatherer
}

// New registers the counters on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	return NewWithRegisterer(reg, reg)
}

// NewWithRegisterer registers the counters on reg and serves them from g.
func NewWithRegisterer(reg prometheus.Registerer, g prometheus.Gatherer) *Recorder {
	r := &Recorder{
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lumi",
			Name:      "turns_total",
			Help:      "Completed chat turns by matched intent and reply source.",
		}, []string{"intent", "source"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lumi",
			Name:      "generation_failures_total",
			Help:      "Remote generation failures by kind.",
		}, []string{"kind"}),
		gatherer: g,
	}
	reg.MustRegister(r.turns, r.failures)
	return r
}

// Turn records one completed turn.
func (r *Recorder) Turn(intent, source string) {
	if r == nil {
		return
	}
	r.turns.WithLabelValues(intent, source).Inc()
}

// GenerationFailure records one failed remote call.
func (r *Recorder) GenerationFailure(kind string) {
	if r == nil {
		return
	}
	r.failures.WithLabelValues(kind).Inc()
}

// Handler serves the registered metrics.
func (r *Recorder) Handler() http.Handler {
	if r == nil || r.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}
