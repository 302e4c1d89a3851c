package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	notificationsReceivedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "webhook",
			Name:      "notifications_received_total",
			Help:      "Total webhook notifications received, by event type.",
		},
		[]string{"event_type"},
	)

	messageFetchesCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "webhook",
			Name:      "nylas_message_fetches_total",
			Help:      "Total Nylas message fetch attempts.",
		},
		[]string{"status"}, // "ok", "error"
	)

	ordersDispatchedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "webhook",
			Name:      "salesys_orders_dispatched_total",
			Help:      "Total Salesys order dispatch outcomes.",
		},
		[]string{"status"}, // "ok", "error", "skipped"
	)
)
