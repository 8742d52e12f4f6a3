// Package metric instruments rx pipelines with Prometheus metrics.
package metric

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/baxromumarov/rx"
)

// Metrics contains the per-stage pipeline metrics. Every vector is labelled
// by the stage name passed to [Instrument].
type Metrics struct {
	ValuesTotal         *prometheus.CounterVec
	CompletionsTotal    *prometheus.CounterVec
	FailuresTotal       *prometheus.CounterVec
	ActiveSubscriptions *prometheus.GaugeVec
	RunDuration         *prometheus.HistogramVec
}

// NewMetrics creates the pipeline metrics under the given namespace.
// They are not registered; call [Metrics.Register].
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ValuesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stage",
				Name:      "values_total",
				Help:      "Total number of values pushed through a stage",
			},
			[]string{"stage"},
		),

		CompletionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stage",
				Name:      "completions_total",
				Help:      "Total number of subscriptions that completed",
			},
			[]string{"stage"},
		),

		FailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stage",
				Name:      "failures_total",
				Help:      "Total number of subscriptions that failed",
			},
			[]string{"stage"},
		),

		ActiveSubscriptions: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "stage",
				Name:      "active_subscriptions",
				Help:      "Number of subscriptions currently running",
			},
			[]string{"stage"},
		),

		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "stage",
				Name:      "run_duration_seconds",
				Help:      "Wall-clock duration of a subscription in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
	}
}

// Register registers every collector with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.ValuesTotal,
		m.CompletionsTotal,
		m.FailuresTotal,
		m.ActiveSubscriptions,
		m.RunDuration,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// RecordValue increments the value counter
func (m *Metrics) RecordValue(stage string) {
	m.ValuesTotal.WithLabelValues(stage).Inc()
}

// RecordRun records the outcome and duration of one subscription
func (m *Metrics) RecordRun(stage string, err error, d time.Duration) {
	if err != nil {
		m.FailuresTotal.WithLabelValues(stage).Inc()
	} else {
		m.CompletionsTotal.WithLabelValues(stage).Inc()
	}
	m.RunDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// Instrument returns src unchanged in behaviour but recording, under the
// stage label, every value that passes, every subscription's outcome and
// duration, and the number of running subscriptions.
//
// opts apply to the instrumented stage and to its subscription upstream;
// pass [rx.WithLogger] so the stage logs with the caller's fields.
//
// Panics if src or m is nil.
func Instrument[T any](src *rx.Observable[T], m *Metrics, stage string, opts ...rx.Option) *rx.Observable[T] {
	if src == nil {
		panic("metric: Instrument requires non-nil source observable")
	}
	if m == nil {
		panic("metric: Instrument requires non-nil metrics")
	}
	return rx.Create(func(ctx context.Context, emit rx.Observer[T]) error {
		active := m.ActiveSubscriptions.WithLabelValues(stage)
		active.Inc()
		defer active.Dec()

		start := time.Now()
		var stopped bool
		err := src.SubscribeWith(ctx, func(v T) error {
			m.RecordValue(stage)
			err := emit(v)
			if rx.IsComplete(err) {
				stopped = true
			}
			return err
		}, opts...)
		m.RecordRun(stage, err, time.Since(start))
		if err == nil && stopped {
			return rx.ErrComplete
		}
		return err
	}, append(opts[:len(opts):len(opts)], rx.WithName(stage))...)
}
