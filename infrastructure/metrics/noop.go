package metrics

import "github.com/liuhongchao/alephium/domain/consensus/model"

// Noop implements model.MetricsSink by discarding everything, a sink that
// needs no Prometheus registry (spec.md SS9). Nothing in the node selects it
// by default: nodeboot wires a registry-backed Sink, and BlockChain skips a
// nil sink.
type Noop struct{}

var _ model.MetricsSink = Noop{}

func (Noop) IncCounter(name string, labels ...string)                      {}
func (Noop) ObserveHistogram(name string, value float64, labels ...string) {}
func (Noop) SetGauge(name string, value float64, labels ...string)         {}
