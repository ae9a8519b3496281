package observability

import (
	"context"
	"errors"
	"time"

	"github.com/aretw0/convo/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors that report client activity.
type Metrics struct {
	turns            *prometheus.CounterVec
	turnDuration     *prometheus.HistogramVec
	dispatched       *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	ended            prometheus.Counter
}

// MustNewMetrics constructs a Metrics instance using the provided registerer.
// Collectors already registered with the same name are reused, so building
// Metrics twice on one registry is safe. Any other registration error panics.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "convo",
				Subsystem: "session",
				Name:      "turns_total",
				Help:      "Total number of turns by request type and outcome.",
			},
			[]string{"request_type", "status"},
		),
		turnDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "convo",
				Subsystem: "session",
				Name:      "turn_duration_seconds",
				Help:      "Duration of a turn including runtime exchange and dispatch.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"request_type"},
		),
		dispatched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "convo",
				Subsystem: "dispatch",
				Name:      "events_total",
				Help:      "Total number of dispatched traces and batch notifications.",
			},
			[]string{"selector", "status"},
		),
		dispatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "convo",
				Subsystem: "dispatch",
				Name:      "duration_seconds",
				Help:      "Time spent running the handlers of one dispatch.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"selector"},
		),
		ended: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "convo",
				Subsystem: "session",
				Name:      "conversations_ended_total",
				Help:      "Number of turns that ended their conversation.",
			},
		),
	}

	m.turns = register(reg, m.turns)
	m.turnDuration = register(reg, m.turnDuration)
	m.dispatched = register(reg, m.dispatched)
	m.dispatchDuration = register(reg, m.dispatchDuration)
	m.ended = register(reg, m.ended)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func requestLabel(t domain.RequestType) string {
	if t == "" {
		return "launch"
	}
	return string(t)
}

// ObserveTurn records a finished turn.
func (m *Metrics) ObserveTurn(requestType domain.RequestType, duration time.Duration, ended bool, err error) {
	if m == nil {
		return
	}
	label := requestLabel(requestType)
	m.turns.WithLabelValues(label, status(err)).Inc()
	m.turnDuration.WithLabelValues(label).Observe(duration.Seconds())
	if ended && err == nil {
		m.ended.Inc()
	}
}

// ObserveDispatch records one dispatch call.
func (m *Metrics) ObserveDispatch(selector string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.dispatched.WithLabelValues(selector, status(err)).Inc()
	m.dispatchDuration.WithLabelValues(selector).Observe(duration.Seconds())
}

// Hooks returns lifecycle hooks that feed m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurnEnd: func(_ context.Context, e *domain.TurnEvent) {
			m.ObserveTurn(e.RequestType, e.Duration, e.Ended, e.Err)
		},
		OnDispatch: func(_ context.Context, e *domain.DispatchEvent) {
			m.ObserveDispatch(e.Selector, e.Duration, e.Err)
		},
	}
}
