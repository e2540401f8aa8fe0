// Package metrics implements model.MetricsSink, the thin metrics collaborator
// MultiChain is handed at construction and passes on to each BlockChain
// (spec.md SS9). Grounded on weisyn/v1's prometheus.NewDesc/MustNewConstMetric
// collector style (internal/core/infrastructure/clock/metrics.go), adapted
// here to per-call label vectors instead of a periodic-fetch collector,
// since the core reports discrete events rather than polled gauges.
package metrics

import (
	"sync"

	"github.com/liuhongchao/alephium/domain/consensus/model"
	"github.com/prometheus/client_golang/prometheus"
)

// Sink registers counters/histograms/gauges lazily on first use against a
// caller-supplied Registry, so a single Sink can serve every label set a
// component names at runtime (chain indexes, peer addresses) without
// pre-declaring every metric name up front.
type Sink struct {
	registry *prometheus.Registry

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
	gauges     map[string]*prometheus.GaugeVec
}

// New creates a Sink registering its collectors on registry.
func New(registry *prometheus.Registry) *Sink {
	return &Sink{
		registry:   registry,
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
	}
}

var _ model.MetricsSink = (*Sink)(nil)

// labelNames and labelValues split a (key, value, key, value...) pair list
// into prometheus's separate names/values form, matching model.MetricsSink's
// variadic tag convention.
func labelNames(labels []string) []string {
	names := make([]string, 0, len(labels)/2)
	for i := 0; i < len(labels); i += 2 {
		names = append(names, labels[i])
	}
	return names
}

func labelValues(labels []string) []string {
	values := make([]string, 0, len(labels)/2)
	for i := 1; i < len(labels); i += 2 {
		values = append(values, labels[i])
	}
	return values
}

func (s *Sink) IncCounter(name string, labels ...string) {
	s.mu.Lock()
	vec, ok := s.counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{Name: name}, labelNames(labels))
		s.registry.MustRegister(vec)
		s.counters[name] = vec
	}
	s.mu.Unlock()
	vec.WithLabelValues(labelValues(labels)...).Inc()
}

func (s *Sink) ObserveHistogram(name string, value float64, labels ...string) {
	s.mu.Lock()
	vec, ok := s.histograms[name]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: name}, labelNames(labels))
		s.registry.MustRegister(vec)
		s.histograms[name] = vec
	}
	s.mu.Unlock()
	vec.WithLabelValues(labelValues(labels)...).Observe(value)
}

func (s *Sink) SetGauge(name string, value float64, labels ...string) {
	s.mu.Lock()
	vec, ok := s.gauges[name]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name}, labelNames(labels))
		s.registry.MustRegister(vec)
		s.gauges[name] = vec
	}
	s.mu.Unlock()
	vec.WithLabelValues(labelValues(labels)...).Set(value)
}
