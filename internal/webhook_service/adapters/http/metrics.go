package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var signatureFailuresCounter = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "webhook",
		Name:      "signature_failures_total",
		Help:      "Total rejected POST deliveries.",
	},
	[]string{"reason"}, // "missing", "invalid"
)
