// Package metrics exposes Prometheus instruments for the alert engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"theftalert/internal/domain"
)

// Metrics holds the engine instruments on a private registry.
type Metrics struct {
	registry         *prometheus.Registry
	intents          *prometheus.CounterVec
	usersMatched     *prometheus.CounterVec
	invocations      *prometheus.CounterVec
	regionFaults     prometheus.Counter
	dispatchDuration *prometheus.HistogramVec
}

// New registers the engine instruments on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		intents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "theftalert_intents_total",
				Help: "Notification intents by channel and outcome.",
			},
			[]string{"channel", "outcome"},
		),
		usersMatched: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "theftalert_users_matched_total",
				Help: "Users matched for a report by reason.",
			},
			[]string{"reason"},
		),
		invocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "theftalert_invocations_total",
				Help: "Report-created invocations by result.",
			},
			[]string{"result"},
		),
		regionFaults: factory.NewCounter(prometheus.CounterOpts{
			Name: "theftalert_region_faults_total",
			Help: "Stored regions skipped because they could not be evaluated.",
		}),
		dispatchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "theftalert_dispatch_seconds",
				Help:    "Duration of individual channel deliveries.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"channel"},
		),
	}
}

// WithRuntimeCollectors adds Go runtime and process collectors. The daemon
// enables them; tests keep the registry minimal.
func (m *Metrics) WithRuntimeCollectors() *Metrics {
	if m == nil {
		return nil
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveOutcome records a dispatch outcome and how long the delivery took.
func (m *Metrics) ObserveOutcome(o domain.DispatchOutcome, elapsed time.Duration) {
	if m == nil {
		return
	}
	channel := string(o.Key.Channel)
	m.intents.WithLabelValues(channel, string(o.Kind)).Inc()
	if elapsed > 0 {
		m.dispatchDuration.WithLabelValues(channel).Observe(elapsed.Seconds())
	}
}

// ObserveMatch records a matched user.
func (m *Metrics) ObserveMatch(reason domain.Reason) {
	if m == nil {
		return
	}
	m.usersMatched.WithLabelValues(string(reason)).Inc()
}

// ObserveRegionFaults records skipped regions.
func (m *Metrics) ObserveRegionFaults(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.regionFaults.Add(float64(n))
}

// ObserveInvocation records the result of one invocation: completed, noop,
// cancelled or failed.
func (m *Metrics) ObserveInvocation(result string) {
	if m == nil {
		return
	}
	m.invocations.WithLabelValues(result).Inc()
}
