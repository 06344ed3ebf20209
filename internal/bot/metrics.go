// Package bot – Prometheus instrumentation for bot traffic.
//
// Counters are labeled coarsely (update kind, relay outcome) to keep
// cardinality bounded; per-user labels are deliberately avoided.
package bot

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// updatesTotal counts inbound updates by kind: command, callback, text.
	updatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_updates_total",
			Help: "Total number of inbound Telegram updates.",
		},
		[]string{"kind"},
	)

	// ordersTotal counts order lifecycle events: created, confirmed, cancelled.
	ordersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_orders_total",
			Help: "Total number of order lifecycle events.",
		},
		[]string{"event"},
	)

	// ticketsTotal counts ticket lifecycle events: opened, accepted, closed.
	ticketsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_tickets_total",
			Help: "Total number of support ticket lifecycle events.",
		},
		[]string{"event"},
	)

	// relayTotal counts relay routing outcomes: forwarded, dropped.
	relayTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_relay_messages_total",
			Help: "Total number of relay routing decisions.",
		},
		[]string{"outcome"},
	)

	// sendFailures counts outbound deliveries that the transport rejected.
	sendFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_send_failures_total",
			Help: "Total number of failed outbound message deliveries.",
		},
	)
)

func init() {
	prometheus.MustRegister(updatesTotal, ordersTotal, ticketsTotal, relayTotal, sendFailures)
}
