package syncer

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var passBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}

// Metrics are the reconciler's prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	records      *prometheus.CounterVec
	passes       *prometheus.CounterVec
	passDuration prometheus.Histogram
	dirty        *prometheus.GaugeVec
}

// NewMetrics registers the collectors with reg. Collectors that are already
// registered are reused, so two reconcilers can share one registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "splitit",
			Subsystem: "sync",
			Name:      "records_total",
			Help:      "Records handled by sync passes, by kind and outcome",
		}, []string{"kind", "outcome"}),
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "splitit",
			Subsystem: "sync",
			Name:      "passes_total",
			Help:      "Completed sync passes, by result",
		}, []string{"result"}),
		passDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "splitit",
			Subsystem: "sync",
			Name:      "pass_duration_seconds",
			Help:      "Duration of sync passes",
			Buckets:   passBuckets,
		}),
		dirty: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "splitit",
			Subsystem: "sync",
			Name:      "dirty_records",
			Help:      "Dirty records found at the start of the last pass",
		}, []string{"kind"}),
	}
	if reg == nil {
		return m
	}

	m.records = register(reg, m.records)
	m.passes = register(reg, m.passes)
	m.passDuration = register(reg, m.passDuration)
	m.dirty = register(reg, m.dirty)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

// Record outcomes.
const (
	outcomePushed    = "pushed"
	outcomeConfirmed = "confirmed"
	outcomeStale     = "stale"
	outcomeFailed    = "failed"
)

func (m *Metrics) record(kind Kind, outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.records.WithLabelValues(string(kind), outcome).Add(float64(n))
}

func (m *Metrics) pass(result string, seconds float64) {
	if m == nil {
		return
	}
	m.passes.WithLabelValues(result).Inc()
	m.passDuration.Observe(seconds)
}

func (m *Metrics) setDirty(kind Kind, n int) {
	if m == nil {
		return
	}
	m.dirty.WithLabelValues(string(kind)).Set(float64(n))
}
