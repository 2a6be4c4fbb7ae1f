package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/reel/pkg/domain"
)

const namespace = "reel"

// Metrics holds the Prometheus collectors fed by the lifecycle hooks.
type Metrics struct {
	registry *prometheus.Registry

	runsStarted  prometheus.Counter
	runsFinished *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	runsActive   prometheus.Gauge
	stepVisits   *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	budgetSpent  *prometheus.CounterVec
}

// NewMetrics creates the collectors in a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_started_total",
			Help:      "Total number of runs started.",
		}),
		runsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_finished_total",
			Help:      "Total number of finished runs by status and error category.",
		}, []string{"status", "category"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of finished runs.",
			Buckets:   []float64{10, 30, 60, 120, 300, 600, 1200, 1800},
		}, []string{"status"}),
		runsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_active",
			Help:      "Runs currently executing.",
		}),
		stepVisits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_invocations_total",
			Help:      "Total number of step invocations by outcome.",
		}, []string{"step", "outcome"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of step invocations.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14),
		}, []string{"step"}),
		budgetSpent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "budget_spent_total",
			Help:      "Revision budget units spent by kind.",
		}, []string{"budget"}),
	}
	m.registry.MustRegister(
		m.runsStarted, m.runsFinished, m.runDuration, m.runsActive,
		m.stepVisits, m.stepDuration, m.budgetSpent,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunStart: func(_ context.Context, _ *domain.RunEvent) {
			m.runsStarted.Inc()
			m.runsActive.Inc()
		},
		OnStepLeave: func(_ context.Context, e *domain.StepEvent) {
			m.stepVisits.WithLabelValues(e.Step, string(e.Outcome)).Inc()
			m.stepDuration.WithLabelValues(e.Step).Observe(e.Duration.Seconds())
		},
		OnRoute: func(_ context.Context, e *domain.RouteEvent) {
			if e.Spent != "" {
				m.budgetSpent.WithLabelValues(string(e.Spent)).Inc()
			}
		},
		OnRunFinish: func(_ context.Context, e *domain.RunEvent) {
			m.runsActive.Dec()
			m.runsFinished.WithLabelValues(string(e.Status), string(e.Category)).Inc()
			m.runDuration.WithLabelValues(string(e.Status)).Observe(e.Duration.Seconds())
		},
	}
}
