package observability

import (
	"context"
	"net/http"

	"github.com/aretw0/storyline/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storyline"

// Metrics holds the Prometheus collectors fed by lifecycle hooks.
type Metrics struct {
	SessionsStarted   prometheus.Counter
	SessionsReset     prometheus.Counter
	ChoicesAccepted   *prometheus.CounterVec
	ChoicesStale      prometheus.Counter
	PayloadsInvalid   prometheus.Counter
	JourneysCompleted prometheus.Counter

	gatherer prometheus.Gatherer
}

// NewMetrics creates the collectors and registers them with reg.
// Pass prometheus.NewRegistry() in tests to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Total number of journeys started.",
		}),
		SessionsReset: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_reset_total",
			Help:      "Total number of journeys reset by the user.",
		}),
		ChoicesAccepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "choices_accepted_total",
			Help:      "Total number of accepted choices by label.",
		}, []string{"label"}),
		ChoicesStale: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "choices_stale_total",
			Help:      "Total number of presses on already passed steps.",
		}),
		PayloadsInvalid: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payloads_invalid_total",
			Help:      "Total number of rejected choice payloads.",
		}),
		JourneysCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "journeys_completed_total",
			Help:      "Total number of journeys that reached the ending.",
		}),
	}

	reg.MustRegister(
		m.SessionsStarted,
		m.SessionsReset,
		m.ChoicesAccepted,
		m.ChoicesStale,
		m.PayloadsInvalid,
		m.JourneysCompleted,
	)

	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// Hooks returns lifecycle hooks that update the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStart: func(ctx context.Context, e *domain.SessionEvent) {
			m.SessionsStarted.Inc()
		},
		OnReset: func(ctx context.Context, e *domain.SessionEvent) {
			m.SessionsReset.Inc()
		},
		OnChoice: func(ctx context.Context, e *domain.ChoiceEvent) {
			m.ChoicesAccepted.WithLabelValues(string(e.Label)).Inc()
		},
		OnStale: func(ctx context.Context, e *domain.ChoiceEvent) {
			m.ChoicesStale.Inc()
		},
		OnInvalid: func(ctx context.Context, e *domain.ChoiceEvent) {
			m.PayloadsInvalid.Inc()
		},
		OnComplete: func(ctx context.Context, e *domain.CompleteEvent) {
			m.JourneysCompleted.Inc()
		},
	}
}

// Handler serves the registry the metrics were registered with,
// or the default gatherer when that registry cannot be gathered.
func (m *Metrics) Handler() http.Handler {
	if m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
