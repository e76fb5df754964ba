package telemetry

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus instrumentation the demo driver records
// around OrderBook.Add calls: counters, a histogram and a gauge per
// instrument and side, scoped to what the matching core itself can
// observe.
type Metrics struct {
	OrdersReceived *prometheus.CounterVec
	OrdersRejected *prometheus.CounterVec
	TradesExecuted *prometheus.CounterVec
	AddLatency     *prometheus.HistogramVec
	RestingVolume  *prometheus.GaugeVec
}

// NewMetrics builds a Metrics instance and registers its collectors with
// reg. Passing prometheus.NewRegistry() keeps tests hermetic.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OrdersReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matchcore_orders_received_total",
			Help: "Total number of orders submitted to the book.",
		}, []string{"instrument", "side", "order_type"}),
		OrdersRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matchcore_orders_rejected_total",
			Help: "Total number of orders rejected before or during matching.",
		}, []string{"instrument", "reason"}),
		TradesExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matchcore_trades_executed_total",
			Help: "Total number of Trade events emitted.",
		}, []string{"instrument"}),
		AddLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "matchcore_add_latency_seconds",
			Help:    "Latency of OrderBook.Add calls.",
			Buckets: prometheus.ExponentialBuckets(0.000001, 4, 12),
		}, []string{"instrument"}),
		RestingVolume: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "matchcore_resting_volume",
			Help: "Aggregate remaining volume resting on the book.",
		}, []string{"instrument", "side"}),
	}

	reg.MustRegister(
		m.OrdersReceived,
		m.OrdersRejected,
		m.TradesExecuted,
		m.AddLatency,
		m.RestingVolume,
	)
	return m
}
