package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type EscrowMetrics struct {
	transitions    *prometheus.CounterVec
	rejections     *prometheus.CounterVec
	custodiedFunds *prometheus.GaugeVec
}

var (
	escrowOnce     sync.Once
	escrowRegistry *EscrowMetrics
)

func Escrow() *EscrowMetrics {
	escrowOnce.Do(func() {
		escrowRegistry = &EscrowMetrics{
			transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "escrow_transitions_total",
				Help: "Count of successful order transitions by operation.",
			}, []string{"op"}),
			rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "escrow_rejections_total",
				Help: "Count of rejected operations by operation and reason.",
			}, []string{"op", "reason"}),
			custodiedFunds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "escrow_custodied_funds",
				Help: "Funds currently held across vaults per asset.",
			}, []string{"asset"}),
		}
		prometheus.MustRegister(
			escrowRegistry.transitions,
			escrowRegistry.rejections,
			escrowRegistry.custodiedFunds,
		)
	})
	return escrowRegistry
}

func (m *EscrowMetrics) ObserveTransition(op string) {
	if m == nil {
		return
	}
	if op == "" {
		op = "unknown"
	}
	m.transitions.WithLabelValues(op).Inc()
}

func (m *EscrowMetrics) ObserveRejection(op, reason string) {
	if m == nil {
		return
	}
	if op == "" {
		op = "unknown"
	}
	if reason == "" {
		reason = "unknown"
	}
	m.rejections.WithLabelValues(op, reason).Inc()
}

func (m *EscrowMetrics) AddCustodiedFunds(asset string, delta float64) {
	if m == nil {
		return
	}
	if asset == "" {
		asset = "unknown"
	}
	m.custodiedFunds.WithLabelValues(asset).Add(delta)
}
