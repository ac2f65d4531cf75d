// Package metrics exposes Prometheus instrumentation for the bot.
//
// Metrics the workers update during operation:
//   - mm_ticks_total{worker,result}        — tick outcomes (ok|error)
//   - mm_tick_duration_seconds{worker}     — tick latency histogram
//   - mm_orders_placed_total{worker,side}  — orders placed per side
//   - mm_orders_cancelled_total{worker}    — stale/duplicate orders cancelled
//   - mm_reference_price{worker}           — last reference price used
//   - mm_proposal_orders{worker}           — size of the last adjusted proposal
//
// All collectors register with the default registry in init() and are
// served by the dashboard's /metrics handler.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mm_ticks_total",
			Help: "Completed ticks by outcome",
		},
		[]string{"worker", "result"},
	)

	TickDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mm_tick_duration_seconds",
			Help:    "Wall-clock duration of a full tick",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"worker"},
	)

	OrdersPlaced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mm_orders_placed_total",
			Help: "Orders placed on the venue",
		},
		[]string{"worker", "side"},
	)

	OrdersCancelled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mm_orders_cancelled_total",
			Help: "Orders cancelled by the reconciler",
		},
		[]string{"worker"},
	)

	ReferencePrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mm_reference_price",
			Help: "Reference price used by the last proposal",
		},
		[]string{"worker"},
	)

	ProposalOrders = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mm_proposal_orders",
			Help: "Orders in the last budget-adjusted proposal",
		},
		[]string{"worker"},
	)
)

func init() {
	prometheus.MustRegister(
		TicksTotal,
		TickDuration,
		OrdersPlaced,
		OrdersCancelled,
		ReferencePrice,
		ProposalOrders,
	)
}
